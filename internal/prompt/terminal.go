package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/wikipub/internal/model"
)

// Terminal asks the operator on the terminal, one short bubbletea program
// per request
type Terminal struct {
	in       io.Reader
	out      io.Writer
	template string
}

// NewTerminal creates a terminal responder on stdin/stderr. template names
// the navigation template shown in edit summaries.
func NewTerminal(template string) *Terminal {
	return &Terminal{in: os.Stdin, out: os.Stderr, template: template}
}

// Confirm shows the proposed edit and waits for y/n/a
func (t *Terminal) Confirm(ctx context.Context, p model.Proposal) (model.Answer, error) {
	m, err := t.run(ctx, newConfirmModel(p, t.template))
	if err != nil {
		return model.AnswerNo, err
	}
	cm := m.(confirmModel)
	if cm.aborted {
		return model.AnswerNo, ErrAborted
	}
	return cm.answer, nil
}

// Choose lists search candidates and waits for a pick or a skip
func (t *Terminal) Choose(ctx context.Context, c model.Choice) (int, bool, error) {
	m, err := t.run(ctx, newChooseModel(c))
	if err != nil {
		return -1, false, err
	}
	cm := m.(chooseModel)
	if cm.aborted {
		return -1, false, ErrAborted
	}
	return cm.chosen, cm.chosen >= 0, nil
}

// Review describes the conflict and asks whether to open the item
func (t *Terminal) Review(ctx context.Context, e model.Escalation) (bool, error) {
	m, err := t.run(ctx, newReviewModel(e))
	if err != nil {
		return false, err
	}
	rm := m.(reviewModel)
	if rm.aborted {
		return false, ErrAborted
	}
	return rm.open, nil
}

func (t *Terminal) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)
	final, err := p.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, tea.ErrProgramKilled) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("prompt: %w", err)
	}
	return final, nil
}

// confirmModel asks yes / no / all for one edit
type confirmModel struct {
	lines   []string
	answer  model.Answer
	done    bool
	aborted bool
}

func newConfirmModel(p model.Proposal, template string) confirmModel {
	d := p.Decision
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s  %s %s", p.Page, p.Item, dimStyle.Render(p.ItemLabel))),
		actionStyle.Render(strings.ToUpper(string(d.Action))) + " " + describe(d),
		dimStyle.Render(d.Reason),
	}
	if p.Resolution.Page != nil {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("from %s (%s)", p.Resolution.Page, p.Resolution.Strategy)))
	}
	if d.Tag != "" {
		lines = append(lines, dimStyle.Render("summary: "+d.Tag.Summary(template)))
	}
	return confirmModel{lines: lines}
}

func describe(d model.Decision) string {
	switch d.Action {
	case model.ActionAdd:
		return fmt.Sprintf("%s = %s", d.Property, d.Expected)
	case model.ActionReplace:
		s := fmt.Sprintf("%s: %s -> %s", d.Property, d.Retarget.Target, d.Expected)
		if len(d.Remove) > 0 {
			s += fmt.Sprintf(", remove %d duplicates", len(d.Remove))
		}
		return s
	case model.ActionDedup:
		return fmt.Sprintf("%s: remove %d duplicates of %s", d.Property, len(d.Remove), d.Survivor.Target)
	}
	return string(d.Property)
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answer, m.done = model.AnswerYes, true
	case "n", "N", "enter":
		m.answer, m.done = model.AnswerNo, true
	case "a", "A":
		m.answer, m.done = model.AnswerAll, true
	case "ctrl+c", "q", "esc":
		m.aborted, m.done = true, true
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	return strings.Join(m.lines, "\n") + "\n" +
		keyHelpStyle.Render("[y]es  [n]o  [a]ll  [q]uit") + "\n"
}

// chooseModel picks one of the search candidates
type chooseModel struct {
	title      string
	candidates []model.Candidate
	cursor     int
	chosen     int
	done       bool
	aborted    bool
}

func newChooseModel(c model.Choice) chooseModel {
	return chooseModel{
		title:      fmt.Sprintf("%s: which work is %q?", c.Page, c.Title),
		candidates: c.Candidates,
		chosen:     -1,
	}
}

func (m chooseModel) Init() tea.Cmd { return nil }

func (m chooseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch s := key.String(); s {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.candidates)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		if len(m.candidates) > 0 {
			m.chosen = m.cursor
		}
	case "s", "esc":
		m.chosen = -1
	case "ctrl+c", "q":
		m.aborted = true
	default:
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > len(m.candidates) {
			return m, nil
		}
		m.chosen = n - 1
	}
	m.done = true
	return m, tea.Quit
}

func (m chooseModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	for i, c := range m.candidates {
		line := fmt.Sprintf("%d. %s  %s %s", i+1, c.Page, c.Item, dimStyle.Render(c.Label))
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> ") + selectedStyle.Render(line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString(keyHelpStyle.Render("[1-9] or enter to pick  [s]kip  [q]uit"))
	b.WriteString("\n")
	return b.String()
}

// reviewModel reports an escalation and offers to open the item
type reviewModel struct {
	e       model.Escalation
	open    bool
	done    bool
	aborted bool
}

func newReviewModel(e model.Escalation) reviewModel {
	return reviewModel{e: e}
}

func (m reviewModel) Init() tea.Cmd { return nil }

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "o", "y":
		m.open = true
	case "n", "enter", "s":
		m.open = false
	case "ctrl+c", "q", "esc":
		m.aborted = true
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

func (m reviewModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(warnStyle.Render(fmt.Sprintf("REVIEW %s  %s", m.e.Page, m.e.Item)))
	b.WriteString("\n" + m.e.Reason + "\n")
	for _, t := range m.e.Targets {
		b.WriteString("  current: " + t.String() + "\n")
	}
	for _, c := range m.e.Candidates {
		b.WriteString(fmt.Sprintf("  candidate: %s %s\n", c.Item, dimStyle.Render(c.Page.String())))
	}
	b.WriteString(dimStyle.Render(m.e.URL) + "\n")
	b.WriteString(keyHelpStyle.Render("[o]pen in browser  [n]ext  [q]uit") + "\n")
	return b.String()
}
