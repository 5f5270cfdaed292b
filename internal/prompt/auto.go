// Package prompt answers the bot's decision requests: on a terminal, or
// automatically when nobody is watching.
package prompt

import (
	"context"
	"errors"

	"github.com/ppiankov/wikipub/internal/model"
)

// ErrAborted is returned when the operator quits a prompt
var ErrAborted = errors.New("aborted by operator")

// Auto answers every request the same way without asking anyone.
// It never picks a search candidate and never opens a browser.
type Auto struct {
	Answer model.Answer
}

// Confirm returns the fixed answer
func (a Auto) Confirm(ctx context.Context, _ model.Proposal) (model.Answer, error) {
	if err := ctx.Err(); err != nil {
		return model.AnswerNo, err
	}
	return a.Answer, nil
}

// Choose declines to pick
func (a Auto) Choose(ctx context.Context, _ model.Choice) (int, bool, error) {
	return -1, false, ctx.Err()
}

// Review declines to open the item
func (a Auto) Review(ctx context.Context, _ model.Escalation) (bool, error) {
	return false, ctx.Err()
}
