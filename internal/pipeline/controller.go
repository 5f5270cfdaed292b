// Package pipeline runs the bot over a feed of pages: one page at a time,
// from item lookup through resolution and reconciliation to the edits a
// human confirmed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/wikipub/internal/extract"
	"github.com/ppiankov/wikipub/internal/logging"
	"github.com/ppiankov/wikipub/internal/metrics"
	"github.com/ppiankov/wikipub/internal/model"
	"github.com/ppiankov/wikipub/internal/reconcile"
	"github.com/ppiankov/wikipub/internal/resolve"
	"github.com/ppiankov/wikipub/internal/wiki"
)

// Responder answers the requests the controller cannot decide alone
type Responder interface {
	// Confirm asks whether a mutating decision may be applied
	Confirm(ctx context.Context, p model.Proposal) (model.Answer, error)
	// Choose asks which search candidate, if any, is the publication
	Choose(ctx context.Context, c model.Choice) (int, bool, error)
	// Review reports an escalation and asks whether to open the item
	Review(ctx context.Context, e model.Escalation) (bool, error)
}

// Opener shows an item URL to a human
type Opener interface {
	Open(url string) error
}

// Deps are the collaborators of a Controller. Items receives the writes, so
// wrap it in wiki.DryRun to keep the knowledge base untouched.
type Deps struct {
	Pages     wiki.PageStore
	Items     wiki.ItemStore
	Responder Responder
	Opener    Opener           // optional
	Metrics   *metrics.Metrics // optional
	Log       zerolog.Logger
}

// Controller processes pages sequentially
type Controller struct {
	pages      wiki.PageStore
	items      wiki.ItemStore
	responder  Responder
	opener     Opener
	metrics    *metrics.Metrics
	log        zerolog.Logger
	extractor  *extract.NavigationExtractor
	resolver   *resolve.Resolver
	reconciler *reconcile.Reconciler
	annotator  *reconcile.Annotator
	property   model.PropertyID
	site       string
	language   string
	dryRun     bool
}

// NewController wires the resolver, reconciler and annotator for cfg
func NewController(cfg *model.Config, deps Deps) *Controller {
	return &Controller{
		pages:     deps.Pages,
		items:     deps.Items,
		responder: deps.Responder,
		opener:    deps.Opener,
		metrics:   deps.Metrics,
		log:       deps.Log,
		extractor: extract.NewNavigationExtractor(cfg.Template),
		resolver: resolve.New(deps.Pages, deps.Items, resolve.Options{
			Language:    cfg.Wiki.Language,
			SearchLimit: cfg.Session.SearchLimit,
		}, deps.Log),
		reconciler: reconcile.New(cfg.Properties.PublishedIn),
		annotator:  reconcile.NewAnnotator(deps.Pages, deps.Items, cfg.Properties, deps.Log),
		property:   cfg.Properties.PublishedIn,
		site:       cfg.Wiki.Site,
		language:   cfg.Wiki.Language,
		dryRun:     cfg.Session.DryRun,
	}
}

// Run consumes feed until it ends, the context is cancelled or the operator
// quits. The returned state carries apply-all into the next run, if any.
func (c *Controller) Run(ctx context.Context, feed iter.Seq2[model.PagePath, error], state model.SessionState) (*model.RunReport, model.SessionState) {
	start := time.Now()
	report := &model.RunReport{
		RunID:     logging.RunID(ctx),
		Site:      c.site,
		Property:  c.property,
		DryRun:    c.dryRun,
		StartedAt: start.UTC(),
	}
	log := c.log.With().Str("run_id", report.RunID).Logger()
	log.Info().Bool("dry_run", c.dryRun).Bool("apply_all", state.ApplyAll).Msg("run started")

	for page, err := range feed {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		if err != nil {
			log.Error().Err(err).Msg("page feed failed")
			report.Error = fmt.Sprintf("page feed: %v", err)
			break
		}

		var (
			outcome model.PageOutcome
			stop    error
		)
		if reason, err := c.checkPage(ctx, page); reason != "" || err != nil {
			outcome = c.skip(model.PageOutcome{Title: page.String()}, c.log.With().Str("page", page.String()).Logger(), reason, err)
		} else {
			outcome, state, stop = c.processPage(ctx, page, state)
		}
		report.Record(outcome)

		if stop != nil {
			if ctx.Err() != nil {
				report.Interrupted = true
			} else {
				report.Error = stop.Error()
			}
			log.Warn().Err(stop).Msg("run stopped")
			break
		}
	}

	report.FinishedAt = time.Now().UTC()
	c.metrics.SetDuration(time.Since(start).Seconds())

	t := report.Totals
	log.Info().Int("pages", t.Pages).Int("edited", t.Edited).Int("unchanged", t.Unchanged).
		Int("declined", t.Declined).Int("escalated", t.Escalated).Int("skipped", t.Skipped).
		Int("failed", t.Failed).Bool("interrupted", report.Interrupted).Msg("run finished")
	return report, state
}

// checkPage returns a reason to skip pages that do not exist or are redirects
func (c *Controller) checkPage(ctx context.Context, page model.PagePath) (string, error) {
	cand, err := wiki.Candidate(ctx, c.pages, page)
	switch {
	case err != nil:
		return "", &model.LookupError{Op: "page", Title: page.String(), Err: err}
	case cand.Redirect:
		return "page is a redirect to " + cand.Resolved.String(), nil
	case !cand.Exists:
		return "page does not exist", nil
	}
	return "", nil
}

// ProcessPage handles one existing page. Operator aborts and cancellation are
// recorded in the outcome's error.
func (c *Controller) ProcessPage(ctx context.Context, page model.PagePath, state model.SessionState) (model.PageOutcome, model.SessionState) {
	outcome, state, _ := c.processPage(ctx, page, state)
	return outcome, state
}

// processPage returns a non-nil error only when the run must stop
func (c *Controller) processPage(ctx context.Context, page model.PagePath, state model.SessionState) (model.PageOutcome, model.SessionState, error) {
	out := model.PageOutcome{Title: page.String()}
	log := c.log.With().Str("page", page.String()).Logger()

	ref, err := wiki.LookupItem(ctx, c.items, page)
	if err != nil {
		return c.skip(out, log, "", &model.LookupError{Op: "item", Title: page.String(), Err: err}), state, nil
	}
	if !ref.Found() {
		return c.skip(out, log, "page has no item", nil), state, nil
	}
	item := ref.ID()
	out.Item = item
	log = log.With().Str("item", string(item)).Logger()

	text, err := c.pages.Text(ctx, page)
	if err != nil {
		return c.skip(out, log, "", &model.LookupError{Op: "text", Title: page.String(), Err: err}), state, nil
	}
	nav := c.extractor.Extract(text)
	if err := nav.Err(); err != nil {
		log.Debug().Err(err).Str("template", c.extractor.Template()).Msg("no declared title, using the page hierarchy")
	}

	res := c.resolver.Resolve(ctx, page, nav)
	c.metrics.Resolution(res.Kind.String(), string(res.Strategy))

	claims, err := c.items.Claims(ctx, item, c.property)
	if err != nil {
		out.Resolution = &res
		return c.skip(out, log, "", &model.LookupError{Op: "claims", Title: string(item), Err: err}), state, nil
	}

	d := c.reconciler.Reconcile(claims, res)
	if needsPick(res, d) {
		picked, ok, err := c.responder.Choose(ctx, model.Choice{Page: page, Title: nav.Title, Candidates: res.Candidates})
		if err != nil {
			out.Resolution, out.Decision = &res, &d
			return c.stopped(out, err), state, err
		}
		chosen, valid := res.Choose(picked)
		if ok && !valid {
			log.Warn().Int("pick", picked).Int("candidates", len(res.Candidates)).Msg("search pick out of range, treated as no pick")
		}
		switch {
		case ok && valid:
			res = chosen
			d = c.reconciler.Reconcile(claims, res)
		case d.Action != model.ActionEscalate:
			out.Resolution, out.Decision = &res, &d
			out.Status = model.StatusDeclined
			out.Reason = "no search candidate picked"
			c.metrics.Edit(string(d.Action), false)
			log.Info().Str("action", string(d.Action)).Msg("search candidate not picked")
			return c.finish(out), state, nil
		}
	}
	out.Resolution, out.Decision = &res, &d
	out.Reason = d.Reason

	log.Info().Str("action", string(d.Action)).Str("expected", string(d.Expected)).
		Str("tag", string(d.Tag)).Str("reason", d.Reason).Msg("decision")

	var survivor *model.Claim
	switch d.Action {
	case model.ActionEscalate:
		out.Status = model.StatusEscalated
		if err := c.escalate(ctx, page, item, d, &out); err != nil {
			return c.stopped(out, err), state, err
		}
		return c.finish(out), state, nil

	case model.ActionUnresolved:
		out.Status = model.StatusSkipped
		return c.finish(out), state, nil

	case model.ActionNone:
		out.Status = model.StatusUnchanged
		survivor = d.Survivor

	default:
		answer := model.AnswerYes
		if !state.ApplyAll {
			proposal := model.Proposal{
				Page:       page,
				Item:       item,
				ItemLabel:  ref.Item.Label(c.language),
				Decision:   d,
				Resolution: res,
			}
			answer, err = c.responder.Confirm(ctx, proposal)
			if err != nil {
				return c.stopped(out, err), state, err
			}
			out.Answer = answer.String()
			state = state.After(answer)
		}

		if !answer.Approves() {
			out.Status = model.StatusDeclined
			c.metrics.Edit(string(d.Action), false)
			log.Info().Str("action", string(d.Action)).Msg("edit declined")
			return c.finish(out), state, nil
		}

		survivor, err = c.apply(ctx, item, d)
		c.metrics.Edit(string(d.Action), err == nil)
		if err != nil {
			out.Status = model.StatusFailed
			out.Error = err.Error()
			log.Error().Err(err).Str("action", string(d.Action)).Msg("edit failed")
			return c.finish(out), state, nil
		}
		out.Applied = true
		out.Status = model.StatusEdited
	}

	if survivor != nil {
		c.annotate(ctx, page, nav, *survivor, &out, log)
	}
	return c.finish(out), state, nil
}

// needsPick reports whether a human has to pick among search candidates.
// A claim that already points at one of them needs nobody, and mutually
// exclusive claims escalate whatever is picked.
func needsPick(res model.Resolution, d model.Decision) bool {
	if res.Strategy != model.StrategySimilarTitle || len(res.Candidates) == 0 {
		return false
	}
	switch d.Action {
	case model.ActionNone, model.ActionDedup:
		return false
	case model.ActionEscalate:
		return len(d.Targets) <= 1
	}
	return true
}

// apply writes the decision and returns the claim that now carries the target
func (c *Controller) apply(ctx context.Context, item model.ItemID, d model.Decision) (*model.Claim, error) {
	summary := d.Tag.Summary(c.extractor.Template())

	switch d.Action {
	case model.ActionAdd:
		claim, err := c.items.AddClaim(ctx, item, d.Property, d.Expected, summary)
		if err != nil {
			return nil, err
		}
		return &claim, nil

	case model.ActionReplace:
		updated, err := c.items.ChangeClaimTarget(ctx, *d.Retarget, d.Expected, summary)
		if err != nil {
			return nil, err
		}
		if len(d.Remove) > 0 {
			if err := c.items.RemoveClaims(ctx, d.Remove, model.TagDuplicate.Summary(c.extractor.Template())); err != nil {
				return nil, err
			}
		}
		return &updated, nil

	case model.ActionDedup:
		if err := c.items.RemoveClaims(ctx, d.Remove, summary); err != nil {
			return nil, err
		}
		return d.Survivor, nil
	}
	return nil, fmt.Errorf("apply %s: not a mutating action", d.Action)
}

// annotate attaches navigation qualifiers to survivor. Failures only affect
// the qualifiers, the main edit stays applied.
func (c *Controller) annotate(ctx context.Context, page model.PagePath, nav extract.Navigation, survivor model.Claim, out *model.PageOutcome, log zerolog.Logger) {
	edits, warnings := c.annotator.Plan(ctx, page, nav, survivor)
	for _, w := range warnings {
		out.Warn(w)
		log.Warn().Msg(w)
	}
	if len(edits) == 0 {
		return
	}

	applied, err := c.annotator.Apply(ctx, edits, model.TagQualifier.Summary(c.extractor.Template()))
	out.Qualifiers = applied
	for range applied {
		c.metrics.Edit("qualifier", true)
	}
	if err != nil {
		c.metrics.Edit("qualifier", false)
		out.Status = model.StatusFailed
		out.Error = err.Error()
		log.Error().Err(err).Msg("qualifier failed")
		return
	}
	if out.Status == model.StatusUnchanged && len(applied) > 0 {
		out.Status = model.StatusEdited
	}
}

// escalate hands the item to a human and opens it on request
func (c *Controller) escalate(ctx context.Context, page model.PagePath, item model.ItemID, d model.Decision, out *model.PageOutcome) error {
	e := model.Escalation{
		Page:       page,
		Item:       item,
		URL:        c.items.ItemURL(item),
		Reason:     d.Reason,
		Targets:    d.Targets,
		Candidates: d.Candidates,
	}
	c.log.Warn().Str("page", page.String()).Str("item", string(item)).
		Str("url", e.URL).Str("reason", d.Reason).Msg("escalated for review")

	open, err := c.responder.Review(ctx, e)
	if err != nil {
		return err
	}
	if open && c.opener != nil {
		if err := c.opener.Open(e.URL); err != nil {
			out.Warn(fmt.Sprintf("open %s: %v", e.URL, err))
		}
	}
	return nil
}

func (c *Controller) skip(out model.PageOutcome, log zerolog.Logger, reason string, err error) model.PageOutcome {
	out.Status = model.StatusSkipped
	out.Reason = reason
	if err != nil {
		out.Error = err.Error()
		log.Warn().Err(err).Msg("page skipped")
	} else {
		log.Info().Str("reason", reason).Msg("page skipped")
	}
	return c.finish(out)
}

// stopped records a responder failure on the page that was being asked about
func (c *Controller) stopped(out model.PageOutcome, err error) model.PageOutcome {
	out.Status = model.StatusSkipped
	out.Error = err.Error()
	if errors.Is(err, context.Canceled) {
		out.Reason = "interrupted"
	}
	return c.finish(out)
}

func (c *Controller) finish(out model.PageOutcome) model.PageOutcome {
	c.metrics.Page(string(out.Status))
	return out
}
