// Package resolve decides which page's item a subpage was published in.
//
// A page that declares its work title in the navigation template is resolved
// through that title: directly, then as a sibling of the page's parent, and
// finally by a capped substring search over top-level pages whose hits a
// human must confirm. A page without a declared title is resolved through its
// own ancestors, nearest first, and the first ancestor with an item wins.
package resolve

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/ppiankov/wikipub/internal/extract"
	"github.com/ppiankov/wikipub/internal/model"
	"github.com/ppiankov/wikipub/internal/wiki"
)

// DefaultSearchLimit caps the similar-title search
const DefaultSearchLimit = 5

// Options configures a Resolver
type Options struct {
	Language    string // label language
	SearchLimit int    // maximum search hits, DefaultSearchLimit when zero
}

// Resolver implements the hierarchy resolution policy
type Resolver struct {
	pages wiki.PageStore
	items wiki.ItemStore
	opts  Options
	fold  cases.Caser
	log   zerolog.Logger
}

// New creates a resolver
func New(pages wiki.PageStore, items wiki.ItemStore, opts Options, log zerolog.Logger) *Resolver {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	return &Resolver{
		pages: pages,
		items: items,
		opts:  opts,
		fold:  cases.Fold(),
		log:   log,
	}
}

// Resolve returns the publication target for page given its navigation data
func (r *Resolver) Resolve(ctx context.Context, page model.PagePath, nav extract.Navigation) model.Resolution {
	log := r.log.With().Str("page", page.String()).Logger()

	var res model.Resolution
	switch {
	case !page.IsSubpage():
		res = model.Resolution{Kind: model.KindNoAncestor, Reason: "top-level page has no ancestor", Err: model.ErrNoAncestorResolvable}
	case nav.HasTitle():
		res = r.fromTitle(ctx, page, nav.Title)
	default:
		res = r.fromHierarchy(ctx, page)
	}

	ev := log.Debug()
	if res.Kind != model.KindResolved {
		ev = log.Info()
	}
	ev.Stringer("kind", res.Kind).Str("strategy", string(res.Strategy)).
		Str("target", string(res.Target)).Int("candidates", len(res.Candidates)).
		Str("reason", res.Reason).Msg("resolved")
	return res
}

// fromTitle follows the declared title: direct match, then parent + title,
// then similar titles
func (r *Resolver) fromTitle(ctx context.Context, page model.PagePath, title string) model.Resolution {
	declared := model.ParsePath(title)

	if ref := r.itemAt(ctx, declared); ref.Found() {
		return model.Resolved(ref.ID(), ref.Page, ref.Item.Label(r.opts.Language), model.StrategyDirectMatch)
	}

	parent := page.Parent()
	if page.Len() > 2 && !declared.HasPrefix(parent) {
		guess := parent.Join(title)
		r.log.Debug().Str("page", page.String()).Str("guess", guess.String()).Msg("trying multi-level title")
		if ref := r.itemAt(ctx, guess); ref.Found() {
			return model.Resolved(ref.ID(), ref.Page, ref.Item.Label(r.opts.Language), model.StrategyMultiLevel)
		}
	}

	return r.search(ctx, title)
}

// search scans top-level pages for titles containing title. At most
// SearchLimit hits are taken and the page list is never read further.
func (r *Resolver) search(ctx context.Context, title string) model.Resolution {
	needle := r.fold.String(model.NormalizeTitle(title))

	var hits []model.PagePath
	for p, err := range r.pages.TopLevelPages(ctx) {
		if err != nil {
			r.lookupFailed("search", model.PagePath{title}, err)
			break
		}
		if p.IsSubpage() {
			continue
		}
		if strings.Contains(r.fold.String(p.String()), needle) {
			hits = append(hits, p)
			if len(hits) >= r.opts.SearchLimit {
				break
			}
		}
	}

	var candidates []model.Candidate
	seen := make(map[model.ItemID]bool)
	for _, hit := range hits {
		ref := r.itemAt(ctx, hit)
		if !ref.Found() || seen[ref.ID()] {
			continue
		}
		seen[ref.ID()] = true
		candidates = append(candidates, model.Candidate{
			Page:  ref.Page,
			Item:  ref.ID(),
			Label: ref.Item.Label(r.opts.Language),
		})
	}

	switch len(candidates) {
	case 0:
		return model.Resolution{
			Kind:   model.KindNotFound,
			Reason: "no page titled like " + title + " has an item",
		}
	case 1:
		res := model.Resolved(candidates[0].Item, candidates[0].Page, candidates[0].Label, model.StrategySimilarTitle)
		res.Candidates = candidates
		return res
	default:
		return model.Resolution{
			Kind:       model.KindAmbiguous,
			Strategy:   model.StrategySimilarTitle,
			Candidates: candidates,
			Reason:     "several pages are titled like " + title,
			Err:        model.ErrAmbiguousResolution,
		}
	}
}

// fromHierarchy walks ancestors nearest first. The first existing ancestor
// with an item wins; otherwise the highest existing ancestor is reported.
func (r *Resolver) fromHierarchy(ctx context.Context, page model.PagePath) model.Resolution {
	var highest model.PagePath
	for _, ancestor := range page.Ancestors() {
		cand, ok := r.candidate(ctx, ancestor)
		if !ok || !cand.Exists {
			continue
		}
		highest = cand.Resolved

		ref := r.lookupItem(ctx, cand.Resolved)
		if ref.Found() {
			return model.Resolved(ref.ID(), ref.Page, ref.Item.Label(r.opts.Language), model.StrategyHierarchy)
		}
	}

	reason := "no ancestor has an item"
	if highest.IsZero() {
		reason = "no ancestor exists"
	}
	return model.Resolution{
		Kind:     model.KindNotFound,
		Fallback: highest,
		Reason:   reason,
		Err:      model.ErrNoAncestorResolvable,
	}
}

// itemAt resolves p through one redirect hop to its item
func (r *Resolver) itemAt(ctx context.Context, p model.PagePath) model.ItemRef {
	cand, ok := r.candidate(ctx, p)
	if !ok || !cand.Exists {
		return model.ItemRef{Page: p}
	}
	return r.lookupItem(ctx, cand.Resolved)
}

func (r *Resolver) candidate(ctx context.Context, p model.PagePath) (model.CandidatePage, bool) {
	cand, err := wiki.Candidate(ctx, r.pages, p)
	if err != nil {
		r.lookupFailed("page", p, err)
		return cand, false
	}
	return cand, true
}

func (r *Resolver) lookupItem(ctx context.Context, p model.PagePath) model.ItemRef {
	ref, err := wiki.LookupItem(ctx, r.items, p)
	if err != nil {
		r.lookupFailed("item", p, err)
		return model.ItemRef{Page: p}
	}
	return ref
}

// lookupFailed logs a store failure. The lookup counts as not found.
func (r *Resolver) lookupFailed(op string, p model.PagePath, err error) {
	lookupErr := &model.LookupError{Op: op, Title: p.String(), Err: err}
	r.log.Warn().Err(lookupErr).Msg("lookup failed, treating as not found")
}
