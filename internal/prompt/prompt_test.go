package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/wikipub/internal/model"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func proposal() model.Proposal {
	return model.Proposal{
		Page:      model.ParsePath("Journal/1925/No3/Page7"),
		Item:      "Q21",
		ItemLabel: "Page 7",
		Decision: model.Decision{
			Action:   model.ActionAdd,
			Property: "P1433",
			Expected: "Q100",
			Tag:      model.TagHierarchy,
			Reason:   "no claim yet",
		},
		Resolution: model.Resolved("Q100", model.ParsePath("Journal/1925"), "Journal 1925", model.StrategyHierarchy),
	}
}

func TestConfirmModel_Keys(t *testing.T) {
	tests := []struct {
		key     tea.KeyMsg
		answer  model.Answer
		aborted bool
	}{
		{runes("y"), model.AnswerYes, false},
		{runes("n"), model.AnswerNo, false},
		{runes("a"), model.AnswerAll, false},
		{tea.KeyMsg{Type: tea.KeyEnter}, model.AnswerNo, false},
		{tea.KeyMsg{Type: tea.KeyCtrlC}, model.AnswerNo, true},
	}

	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			next, cmd := newConfirmModel(proposal(), "NavigacePaP").Update(tt.key)
			m := next.(confirmModel)
			assert.True(t, m.done)
			assert.NotNil(t, cmd)
			assert.Equal(t, tt.answer, m.answer)
			assert.Equal(t, tt.aborted, m.aborted)
		})
	}
}

func TestConfirmModel_IgnoresOtherKeys(t *testing.T) {
	next, cmd := newConfirmModel(proposal(), "NavigacePaP").Update(runes("x"))
	assert.False(t, next.(confirmModel).done)
	assert.Nil(t, cmd)
}

func TestConfirmModel_View(t *testing.T) {
	view := newConfirmModel(proposal(), "NavigacePaP").View()
	assert.Contains(t, view, "Journal/1925/No3/Page7")
	assert.Contains(t, view, "P1433 = Q100")
	assert.Contains(t, view, "[estimated-from-hierarchy]")
	assert.Contains(t, view, "[a]ll")
}

func choice() model.Choice {
	return model.Choice{
		Page:  model.ParsePath("Noviny/1925/3"),
		Title: "Lumír",
		Candidates: []model.Candidate{
			{Page: model.ParsePath("Lumír (časopis)"), Item: "Q50", Label: "Lumír"},
			{Page: model.ParsePath("Starý Lumír"), Item: "Q51"},
		},
	}
}

func TestChooseModel_CursorAndEnter(t *testing.T) {
	var m tea.Model = newChooseModel(choice())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.(chooseModel).cursor, "cursor stops at the last candidate")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, m.(chooseModel).chosen)
}

func TestChooseModel_DigitsAndSkip(t *testing.T) {
	m, _ := newChooseModel(choice()).Update(runes("1"))
	assert.Equal(t, 0, m.(chooseModel).chosen)

	m, cmd := newChooseModel(choice()).Update(runes("9"))
	assert.Nil(t, cmd, "out of range digits are ignored")
	assert.False(t, m.(chooseModel).done)

	m, _ = newChooseModel(choice()).Update(runes("s"))
	assert.Equal(t, -1, m.(chooseModel).chosen)
	assert.True(t, m.(chooseModel).done)
}

func TestChooseModel_View(t *testing.T) {
	view := newChooseModel(choice()).View()
	assert.Contains(t, view, "Lumír (časopis)")
	assert.Contains(t, view, "Starý Lumír")
	assert.Contains(t, view, "[s]kip")
}

func TestReviewModel(t *testing.T) {
	e := model.Escalation{
		Page:    model.ParsePath("A/B"),
		Item:    "Q9",
		URL:     "https://www.wikidata.org/wiki/Q9",
		Reason:  "claims point at 2 different targets",
		Targets: []model.Target{model.ItemTarget("Q1"), model.ItemTarget("Q2")},
	}

	view := newReviewModel(e).View()
	assert.Contains(t, view, "current: Q1")
	assert.Contains(t, view, "current: Q2")
	assert.Contains(t, view, e.URL)

	m, _ := newReviewModel(e).Update(runes("o"))
	assert.True(t, m.(reviewModel).open)

	m, _ = newReviewModel(e).Update(runes("n"))
	assert.False(t, m.(reviewModel).open)
	assert.True(t, m.(reviewModel).done)
}

func TestTerminal_ConfirmFromInput(t *testing.T) {
	var out bytes.Buffer
	term := &Terminal{in: strings.NewReader("a"), out: &out, template: "NavigacePaP"}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	answer, err := term.Confirm(ctx, proposal())
	require.NoError(t, err)
	assert.Equal(t, model.AnswerAll, answer)
}

func TestAuto(t *testing.T) {
	ctx := context.Background()
	auto := Auto{Answer: model.AnswerYes}

	answer, err := auto.Confirm(ctx, proposal())
	require.NoError(t, err)
	assert.Equal(t, model.AnswerYes, answer)

	_, ok, err := auto.Choose(ctx, choice())
	require.NoError(t, err)
	assert.False(t, ok, "search candidates are never picked automatically")

	open, err := auto.Review(ctx, model.Escalation{})
	require.NoError(t, err)
	assert.False(t, open)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = auto.Confirm(canceled, proposal())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Printer{W: &buf}.Open("https://www.wikidata.org/wiki/Q1"))
	assert.Equal(t, "review: https://www.wikidata.org/wiki/Q1\n", buf.String())
}
