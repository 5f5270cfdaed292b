package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/wikipub/internal/logging"
	"github.com/ppiankov/wikipub/internal/metrics"
	"github.com/ppiankov/wikipub/internal/model"
	"github.com/ppiankov/wikipub/internal/pipeline"
	"github.com/ppiankov/wikipub/internal/wiki"
	"github.com/ppiankov/wikipub/internal/wiki/wikitest"
)

const (
	publishedIn model.PropertyID = "P1433"
	follows     model.PropertyID = "P155"
	followedBy  model.PropertyID = "P156"
)

// scripted answers requests from queues and records what it was asked
type scripted struct {
	answers    []model.Answer
	picks      []int
	open       bool
	confirmErr error

	proposals []model.Proposal
	choices   []model.Choice
	reviews   []model.Escalation
}

func (s *scripted) Confirm(_ context.Context, p model.Proposal) (model.Answer, error) {
	s.proposals = append(s.proposals, p)
	if s.confirmErr != nil {
		return model.AnswerNo, s.confirmErr
	}
	if len(s.answers) == 0 {
		return model.AnswerNo, nil
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func (s *scripted) Choose(_ context.Context, c model.Choice) (int, bool, error) {
	s.choices = append(s.choices, c)
	if len(s.picks) == 0 {
		return -1, false, nil
	}
	i := s.picks[0]
	s.picks = s.picks[1:]
	return i, i >= 0, nil
}

func (s *scripted) Review(_ context.Context, e model.Escalation) (bool, error) {
	s.reviews = append(s.reviews, e)
	return s.open, nil
}

type openerFunc func(string) error

func (f openerFunc) Open(url string) error { return f(url) }

func newController(store *wikitest.Store, r pipeline.Responder, opener pipeline.Opener, m *metrics.Metrics) *pipeline.Controller {
	return pipeline.NewController(model.DefaultConfig(), pipeline.Deps{
		Pages:     store,
		Items:     store,
		Responder: r,
		Opener:    opener,
		Metrics:   m,
		Log:       logging.Nop(),
	})
}

func feed(titles ...string) func(func(model.PagePath, error) bool) {
	return wiki.FromPaths(wiki.ParseTitles(titles))
}

// journal builds Journal/1925 (Q100) with an item-less issue and page 7
func journal(pageText string) *wikitest.Store {
	return wikitest.New().
		AddItem("Journal/1925", "Q100", "Journal 1925").
		AddPage("Journal/1925/No3", "").
		AddPage("Journal/1925/No3/Page7", pageText).
		AddItem("Journal/1925/No3/Page7", "Q21", "Page 7")
}

func TestRun_HierarchyAdd(t *testing.T) {
	store := journal("{{NavigacePaP|PŘEDCHOZÍ=|DALŠÍ=}}")
	r := &scripted{answers: []model.Answer{model.AnswerYes}}
	m := metrics.New()

	report, state := newController(store, r, nil, m).Run(context.Background(), feed("Journal/1925/No3/Page7"), model.SessionState{})

	require.Len(t, report.Pages, 1)
	out := report.Pages[0]
	assert.Equal(t, model.StatusEdited, out.Status)
	assert.True(t, out.Applied)
	assert.Equal(t, "yes", out.Answer)
	assert.False(t, state.ApplyAll)

	require.Len(t, r.proposals, 1)
	assert.Equal(t, model.ActionAdd, r.proposals[0].Decision.Action)
	assert.Equal(t, model.ItemID("Q100"), r.proposals[0].Decision.Expected)

	claims := store.ClaimsOf("Q21", publishedIn)
	require.Len(t, claims, 1)
	assert.Equal(t, model.ItemTarget("Q100"), claims[0].Target)

	adds := store.EditsOf("add")
	require.Len(t, adds, 1)
	assert.Contains(t, adds[0].Summary, "[estimated-from-hierarchy]")
	assert.Contains(t, adds[0].Summary, "{{NavigacePaP}}")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("edited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EditsTotal.WithLabelValues("add", "true")))
}

func TestRun_ReplaceMismatch(t *testing.T) {
	store := wikitest.New().
		AddItem("Journal/1925", "Q9", "Journal 1925").
		AddItem("Journal/1925/Page7", "Q21", "Page 7")
	old := store.SeedClaim("Q21", publishedIn, "Q5", nil)
	r := &scripted{answers: []model.Answer{model.AnswerYes}}

	report, _ := newController(store, r, nil, nil).Run(context.Background(), feed("Journal/1925/Page7"), model.SessionState{})

	require.Len(t, report.Pages, 1)
	assert.Equal(t, model.StatusEdited, report.Pages[0].Status)

	changes := store.EditsOf("change")
	require.Len(t, changes, 1)
	assert.Equal(t, old.ID, changes[0].ClaimID)
	assert.Equal(t, model.ItemID("Q9"), changes[0].Target)
	assert.Contains(t, changes[0].Summary, "[mismatch-correction]")

	claims := store.ClaimsOf("Q21", publishedIn)
	require.Len(t, claims, 1)
	assert.Equal(t, model.ItemTarget("Q9"), claims[0].Target)
}

func TestRun_NavigationQualifiers(t *testing.T) {
	store := journal("{{NavigacePaP|PŘEDCHOZÍ=[[../Page6|Page6]]|DALŠÍ=Page8}}").
		AddItem("Journal/1925/No3/Page6", "Q20", "Page 6").
		AddItem("Journal/1925/No3/Page8", "Q30", "Page 8")

	report, _ := newController(store, &scripted{}, nil, nil).
		Run(context.Background(), feed("Journal/1925/No3/Page7"), model.SessionState{ApplyAll: true})

	require.Len(t, report.Pages, 1)
	out := report.Pages[0]
	assert.Equal(t, model.StatusEdited, out.Status)
	assert.Empty(t, out.Answer, "apply-all never asks")
	require.Len(t, out.Qualifiers, 2)
	assert.Equal(t, 2, report.Totals.Qualifiers)

	claims := store.ClaimsOf("Q21", publishedIn)
	require.Len(t, claims, 1)
	assert.Equal(t, []model.ItemID{"Q20"}, claims[0].Qualifiers[follows])
	assert.Equal(t, []model.ItemID{"Q30"}, claims[0].Qualifiers[followedBy])

	for _, e := range store.EditsOf("qualifier") {
		assert.Contains(t, e.Summary, "[navigation-qualifier]")
	}
}

func TestRun_MissingSiblingWarns(t *testing.T) {
	store := journal("{{NavigacePaP|PŘEDCHOZÍ=Page6|DALŠÍ=Page8}}").
		AddItem("Journal/1925/No3/Page8", "Q30", "Page 8")

	report, _ := newController(store, &scripted{}, nil, nil).
		Run(context.Background(), feed("Journal/1925/No3/Page7"), model.SessionState{ApplyAll: true})

	out := report.Pages[0]
	assert.Equal(t, model.StatusEdited, out.Status)
	require.Len(t, out.Qualifiers, 1)
	assert.Equal(t, followedBy, out.Qualifiers[0].Property)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "Page6")
}

func TestRun_Idempotent(t *testing.T) {
	store := journal("{{NavigacePaP|PŘEDCHOZÍ=Page6|DALŠÍ=Page8}}").
		AddItem("Journal/1925/No3/Page6", "Q20", "Page 6").
		AddItem("Journal/1925/No3/Page8", "Q30", "Page 8")
	store.AddItem("Journal/1925/No3/Page9", "Q22", "Page 9")
	store.SeedClaim("Q22", publishedIn, "Q100", nil)
	store.SeedClaim("Q22", publishedIn, "Q100", nil)

	titles := []string{"Journal/1925/No3/Page7", "Journal/1925/No3/Page9"}
	ctrl := newController(store, &scripted{}, nil, nil)

	first, _ := ctrl.Run(context.Background(), feed(titles...), model.SessionState{ApplyAll: true})
	assert.Equal(t, 2, first.Totals.Edited)
	editsAfterFirst := len(store.Edits)

	second, _ := ctrl.Run(context.Background(), feed(titles...), model.SessionState{ApplyAll: true})
	assert.Equal(t, 2, second.Totals.Unchanged)
	assert.Zero(t, second.Totals.Edited)
	assert.Len(t, store.Edits, editsAfterFirst, "second run must not edit anything")
	for _, p := range second.Pages {
		assert.Equal(t, model.ActionNone, p.Decision.Action, p.Title)
	}
}

func TestRun_ApplyAllCarriesForward(t *testing.T) {
	store := wikitest.New().
		AddItem("A", "Q1", "A").
		AddItem("A/1", "Q11", "A 1").
		AddItem("A/2", "Q12", "A 2").
		AddItem("A/3", "Q13", "A 3")
	r := &scripted{answers: []model.Answer{model.AnswerYes, model.AnswerAll}}

	report, state := newController(store, r, nil, nil).Run(context.Background(), feed("A/1", "A/2", "A/3"), model.SessionState{})

	assert.True(t, state.ApplyAll)
	assert.Len(t, r.proposals, 2, "no confirmation after answering all")
	assert.Equal(t, 3, report.Totals.Edited)
	assert.Equal(t, "all", report.Pages[1].Answer)
	assert.Empty(t, report.Pages[2].Answer)
}

func TestRun_Declined(t *testing.T) {
	store := journal("")
	r := &scripted{answers: []model.Answer{model.AnswerNo}}
	m := metrics.New()

	report, _ := newController(store, r, nil, m).Run(context.Background(), feed("Journal/1925/No3/Page7"), model.SessionState{})

	require.Len(t, report.Pages, 1)
	assert.Equal(t, model.StatusDeclined, report.Pages[0].Status)
	assert.False(t, report.Pages[0].Applied)
	assert.Empty(t, store.Edits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EditsTotal.WithLabelValues("add", "false")))
}

func TestRun_EscalatesConflictingClaims(t *testing.T) {
	store := journal("")
	store.SeedClaim("Q21", publishedIn, "Q1", nil)
	store.SeedClaim("Q21", publishedIn, "Q2", nil)

	var opened []string
	opener := openerFunc(func(url string) error {
		opened = append(opened, url)
		return nil
	})
	r := &scripted{open: true}

	report, _ := newController(store, r, opener, nil).
		Run(context.Background(), feed("Journal/1925/No3/Page7"), model.SessionState{ApplyAll: true})

	require.Len(t, report.Pages, 1)
	assert.Equal(t, model.StatusEscalated, report.Pages[0].Status)
	assert.Empty(t, store.Edits, "escalations never edit")
	assert.Empty(t, r.proposals)

	require.Len(t, r.reviews, 1)
	assert.Equal(t, []model.Target{model.ItemTarget("Q1"), model.ItemTarget("Q2")}, r.reviews[0].Targets)
	assert.Equal(t, []string{"https://www.wikidata.org/wiki/Q21"}, opened)
}

func TestRun_EscalationOpenFailureWarns(t *testing.T) {
	store := journal("")
	store.SeedClaim("Q21", publishedIn, "Q1", nil)
	store.SeedClaim("Q21", publishedIn, "Q2", nil)
	opener := openerFunc(func(string) error { return errors.New("no browser") })

	report, _ := newController(store, &scripted{open: true}, opener, nil).
		Run(context.Background(), feed("Journal/1925/No3/Page7"), model.SessionState{})

	out := report.Pages[0]
	assert.Equal(t, model.StatusEscalated, out.Status)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "no browser")
}

func TestRun_MutationFailureContinues(t *testing.T) {
	store := wikitest.New().
		AddItem("A", "Q1", "A").
		AddItem("A/1", "Q11", "A 1").
		AddItem("B", "Q9", "B").
		AddItem("B/1", "Q21", "B 1")
	store.SeedClaim("Q21", publishedIn, "Q5", nil)
	store.MutationErrors["add"] = errors.New("api unavailable")

	report, _ := newController(store, &scripted{}, nil, nil).
		Run(context.Background(), feed("A/1", "B/1"), model.SessionState{ApplyAll: true})

	require.Len(t, report.Pages, 2)
	assert.Equal(t, model.StatusFailed, report.Pages[0].Status)
	assert.Contains(t, report.Pages[0].Error, "api unavailable")
	assert.Equal(t, model.StatusEdited, report.Pages[1].Status)
	assert.Equal(t, 1, report.Totals.Failed)
	assert.Equal(t, 1, report.Totals.Edited)
	assert.Empty(t, report.Error)
}

// lumir builds an issue declaring the title "Lumír" and two top-level works
// whose titles contain it
func lumir() *wikitest.Store {
	return wikitest.New().
		AddPage("Noviny/1925/3", "{{NavigacePaP|TITUL=Lumír}}").
		AddItem("Noviny/1925/3", "Q60", "Noviny 3").
		AddItem("Lumír (časopis)", "Q50", "Lumír").
		AddItem("Starý Lumír", "Q51", "Starý Lumír")
}

func TestRun_SearchCandidatesAreChosen(t *testing.T) {
	store := lumir()
	r := &scripted{picks: []int{0}}

	report, _ := newController(store, r, nil, nil).
		Run(context.Background(), feed("Noviny/1925/3"), model.SessionState{ApplyAll: true})

	require.Len(t, r.choices, 1, "search hits are chosen even in apply-all mode")
	assert.Equal(t, "Lumír", r.choices[0].Title)
	assert.Len(t, r.choices[0].Candidates, 2)

	out := report.Pages[0]
	assert.Equal(t, model.StatusEdited, out.Status)
	claims := store.ClaimsOf("Q60", publishedIn)
	require.Len(t, claims, 1)
	assert.Equal(t, model.ItemTarget("Q50"), claims[0].Target)
	assert.Contains(t, store.EditsOf("add")[0].Summary, "[similar-title-match]")
}

func TestRun_SearchSkippedEscalates(t *testing.T) {
	store := lumir()
	r := &scripted{picks: []int{-1}}

	report, _ := newController(store, r, nil, nil).
		Run(context.Background(), feed("Noviny/1925/3"), model.SessionState{ApplyAll: true})

	assert.Equal(t, model.StatusEscalated, report.Pages[0].Status)
	assert.Empty(t, store.Edits)
	assert.Len(t, r.reviews, 1)
}

func TestRun_SearchMatchingClaimNeedsNoChoice(t *testing.T) {
	store := lumir()
	store.SeedClaim("Q60", publishedIn, "Q51", nil)
	r := &scripted{}

	report, _ := newController(store, r, nil, nil).
		Run(context.Background(), feed("Noviny/1925/3"), model.SessionState{})

	assert.Empty(t, r.choices)
	assert.Empty(t, r.proposals)
	assert.Equal(t, model.StatusUnchanged, report.Pages[0].Status)
}

func TestRun_SingleSearchHitStillChosen(t *testing.T) {
	store := wikitest.New().
		AddPage("Noviny/1925/3", "{{NavigacePaP|TITUL=Lumír}}").
		AddItem("Noviny/1925/3", "Q60", "Noviny 3").
		AddItem("Lumír (časopis)", "Q50", "Lumír")
	r := &scripted{}

	report, _ := newController(store, r, nil, nil).
		Run(context.Background(), feed("Noviny/1925/3"), model.SessionState{ApplyAll: true})

	require.Len(t, r.choices, 1)
	assert.Equal(t, model.StatusDeclined, report.Pages[0].Status)
	assert.Empty(t, store.Edits)
}

func TestRun_OutOfRangePickIsNoPick(t *testing.T) {
	store := wikitest.New().
		AddPage("Noviny/1925/3", "{{NavigacePaP|TITUL=Lumír}}").
		AddItem("Noviny/1925/3", "Q60", "Noviny 3").
		AddItem("Lumír (časopis)", "Q50", "Lumír")
	r := &scripted{picks: []int{7}}

	report, _ := newController(store, r, nil, nil).
		Run(context.Background(), feed("Noviny/1925/3"), model.SessionState{ApplyAll: true})

	require.Len(t, r.choices, 1)
	out := report.Pages[0]
	assert.Equal(t, model.StatusDeclined, out.Status)
	assert.Equal(t, "no search candidate picked", out.Reason)
	assert.Empty(t, store.Edits, "a pick outside the candidates never edits")
	assert.Empty(t, store.ClaimsOf("Q60", publishedIn))
}

func TestRun_OutOfRangePickEscalates(t *testing.T) {
	store := lumir()
	r := &scripted{picks: []int{2}}

	report, _ := newController(store, r, nil, nil).
		Run(context.Background(), feed("Noviny/1925/3"), model.SessionState{ApplyAll: true})

	assert.Equal(t, model.StatusEscalated, report.Pages[0].Status)
	assert.Empty(t, store.Edits)
	assert.Len(t, r.reviews, 1)
}

func TestRun_SkipsPages(t *testing.T) {
	store := wikitest.New().
		AddItem("A", "Q1", "A").
		AddPage("A/no-item", "").
		AddRedirect("A/old", "A/1").
		AddItem("A/1", "Q11", "A 1")

	report, _ := newController(store, &scripted{}, nil, nil).
		Run(context.Background(), feed("A/missing", "A/old", "A/no-item", "A"), model.SessionState{ApplyAll: true})

	require.Len(t, report.Pages, 4)
	assert.Equal(t, "page does not exist", report.Pages[0].Reason)
	assert.Contains(t, report.Pages[1].Reason, "redirect")
	assert.Equal(t, "page has no item", report.Pages[2].Reason)
	assert.Equal(t, model.StatusSkipped, report.Pages[3].Status, "top-level pages have nothing to resolve")
	assert.Equal(t, model.ActionUnresolved, report.Pages[3].Decision.Action)
	assert.Equal(t, 4, report.Totals.Skipped)
	assert.Empty(t, store.Edits)
}

func TestRun_LookupFailureSkipsPage(t *testing.T) {
	store := wikitest.New().
		AddItem("A", "Q1", "A").
		AddItem("A/1", "Q11", "A 1").
		AddItem("A/2", "Q12", "A 2")
	store.LookupErrors["A/1"] = errors.New("timeout")

	report, _ := newController(store, &scripted{}, nil, nil).
		Run(context.Background(), feed("A/1", "A/2"), model.SessionState{ApplyAll: true})

	require.Len(t, report.Pages, 2)
	assert.Equal(t, model.StatusSkipped, report.Pages[0].Status)
	assert.Contains(t, report.Pages[0].Error, "timeout")
	assert.Equal(t, model.StatusEdited, report.Pages[1].Status)
}

func TestRun_ResponderErrorStops(t *testing.T) {
	store := wikitest.New().
		AddItem("A", "Q1", "A").
		AddItem("A/1", "Q11", "A 1").
		AddItem("A/2", "Q12", "A 2")
	r := &scripted{confirmErr: errors.New("aborted by operator")}

	report, _ := newController(store, r, nil, nil).Run(context.Background(), feed("A/1", "A/2"), model.SessionState{})

	require.Len(t, report.Pages, 1)
	assert.Equal(t, "aborted by operator", report.Error)
	assert.Empty(t, store.Edits)
}

func TestRun_CancelledContext(t *testing.T) {
	store := wikitest.New().AddItem("A", "Q1", "A").AddItem("A/1", "Q11", "A 1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, _ := newController(store, &scripted{}, nil, nil).Run(ctx, feed("A/1"), model.SessionState{ApplyAll: true})

	assert.True(t, report.Interrupted)
	assert.Empty(t, report.Pages)
}

func TestRun_FeedErrorStops(t *testing.T) {
	store := wikitest.New().AddItem("A", "Q1", "A").AddItem("A/1", "Q11", "A 1")
	failing := func(yield func(model.PagePath, error) bool) {
		if !yield(model.ParsePath("A/1"), nil) {
			return
		}
		yield(nil, errors.New("continuation lost"))
	}

	report, _ := newController(store, &scripted{}, nil, nil).Run(context.Background(), failing, model.SessionState{ApplyAll: true})

	assert.Len(t, report.Pages, 1)
	assert.Contains(t, report.Error, "continuation lost")
}

func TestProcessPage_MissingTitleFallsBackToHierarchy(t *testing.T) {
	store := journal("{{NavigacePaP|TITUL=|PŘEDCHOZÍ=Page6}}")

	out, state := newController(store, &scripted{answers: []model.Answer{model.AnswerAll}}, nil, nil).
		ProcessPage(context.Background(), model.ParsePath("Journal/1925/No3/Page7"), model.SessionState{})

	assert.True(t, state.ApplyAll)
	assert.Equal(t, model.StatusEdited, out.Status)
	require.NotNil(t, out.Resolution)
	assert.Equal(t, model.StrategyHierarchy, out.Resolution.Strategy)
	require.Len(t, out.Warnings, 1, "the unknown previous part is the only warning")
	assert.Contains(t, out.Warnings[0], "Page6")
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	store := journal("")
	cfg := model.DefaultConfig()
	cfg.Session.DryRun = true
	ctrl := pipeline.NewController(cfg, pipeline.Deps{
		Pages:     store,
		Items:     wiki.NewDryRun(store, logging.Nop()),
		Responder: &scripted{},
		Log:       logging.Nop(),
	})

	report, _ := ctrl.Run(context.Background(), feed("Journal/1925/No3/Page7"), model.SessionState{ApplyAll: true})

	assert.True(t, report.DryRun)
	assert.Equal(t, model.StatusEdited, report.Pages[0].Status)
	assert.Empty(t, store.Edits)
	assert.Empty(t, store.ClaimsOf("Q21", publishedIn))
}
