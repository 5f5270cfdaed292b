package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ppiankov/wikipub/internal/extract"
	"github.com/ppiankov/wikipub/internal/model"
	"github.com/ppiankov/wikipub/internal/wiki"
)

// Annotator attaches previous/next part qualifiers taken from the navigation
// template to the surviving claim
type Annotator struct {
	pages      wiki.PageStore
	items      wiki.ItemStore
	follows    model.PropertyID
	followedBy model.PropertyID
	log        zerolog.Logger
}

// NewAnnotator creates an annotator for the configured role properties
func NewAnnotator(pages wiki.PageStore, items wiki.ItemStore, props model.PropertyConfig, log zerolog.Logger) *Annotator {
	return &Annotator{
		pages:      pages,
		items:      items,
		follows:    props.Follows,
		followedBy: props.FollowedBy,
		log:        log,
	}
}

// Plan lists the qualifiers survivor is missing. A claim that already has a
// previous or next qualifier is considered curated and gets nothing. Siblings
// without items come back as warnings.
func (a *Annotator) Plan(ctx context.Context, page model.PagePath, nav extract.Navigation, survivor model.Claim) ([]model.QualifierEdit, []string) {
	if !nav.Present || survivor.HasAnyQualifier(a.follows, a.followedBy) {
		return nil, nil
	}

	var (
		edits    []model.QualifierEdit
		warnings []string
	)
	roles := []struct {
		prop model.PropertyID
		name string
		role string
	}{
		{a.follows, nav.Previous, "previous"},
		{a.followedBy, nav.Next, "next"},
	}

	for _, r := range roles {
		if r.name == "" || r.prop == "" {
			continue
		}
		sibling := page.Sibling(r.name)
		ref, err := a.siblingItem(ctx, sibling)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s part %s: %v", r.role, sibling, err))
			continue
		}
		if !ref.Found() {
			warnings = append(warnings, fmt.Sprintf("%s part %s has no item", r.role, sibling))
			continue
		}
		if survivor.HasQualifier(r.prop, ref.ID()) {
			continue
		}
		edits = append(edits, model.QualifierEdit{
			Claim:    survivor,
			ClaimID:  survivor.ID,
			Property: r.prop,
			Target:   ref.ID(),
			Sibling:  ref.Page,
		})
	}
	return edits, warnings
}

// Apply writes planned qualifiers and returns those that were written. The
// claim is read again from the item store before each write so nothing is
// added twice.
func (a *Annotator) Apply(ctx context.Context, edits []model.QualifierEdit, summary string) ([]model.QualifierEdit, error) {
	var applied []model.QualifierEdit
	for _, e := range edits {
		current, err := a.currentClaim(ctx, e.Claim)
		if err != nil {
			return applied, err
		}
		if current.HasQualifier(e.Property, e.Target) {
			a.log.Debug().Str("claim", e.ClaimID).Str("property", string(e.Property)).Msg("qualifier already present")
			continue
		}
		if err := a.items.AddQualifier(ctx, e.Claim, e.Property, e.Target, summary); err != nil {
			return applied, err
		}
		a.log.Info().Str("claim", e.ClaimID).Str("property", string(e.Property)).
			Str("target", string(e.Target)).Msg("qualifier added")
		applied = append(applied, e)
	}
	return applied, nil
}

// currentClaim returns the stored version of c. A claim the store does not
// list (yet) is returned as planned.
func (a *Annotator) currentClaim(ctx context.Context, c model.Claim) (model.Claim, error) {
	claims, err := a.items.Claims(ctx, c.Item(), c.Property)
	if err != nil {
		return c, fmt.Errorf("re-read claim %s: %w", c.ID, err)
	}
	for _, cur := range claims {
		if cur.ID == c.ID {
			return cur, nil
		}
	}
	return c, nil
}

// siblingItem resolves a sibling page through one redirect hop
func (a *Annotator) siblingItem(ctx context.Context, p model.PagePath) (model.ItemRef, error) {
	cand, err := wiki.Candidate(ctx, a.pages, p)
	if err != nil {
		return model.ItemRef{Page: p}, &model.LookupError{Op: "page", Title: p.String(), Err: err}
	}
	if !cand.Exists {
		return model.ItemRef{Page: p}, nil
	}
	ref, err := wiki.LookupItem(ctx, a.items, cand.Resolved)
	if err != nil {
		return ref, &model.LookupError{Op: "item", Title: cand.Resolved.String(), Err: err}
	}
	return ref, nil
}
