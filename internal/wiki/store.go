// Package wiki connects wikipub to the page wiki (Wikisource) and the
// knowledge base (Wikidata).
package wiki

import (
	"context"
	"errors"
	"iter"

	"github.com/ppiankov/wikipub/internal/model"
)

// PageStore reads pages of the wiki that hosts the works
type PageStore interface {
	Exists(ctx context.Context, p model.PagePath) (bool, error)
	IsRedirect(ctx context.Context, p model.PagePath) (bool, error)
	RedirectTarget(ctx context.Context, p model.PagePath) (model.PagePath, error)
	Text(ctx context.Context, p model.PagePath) (string, error)

	// TopLevelPages yields main-namespace pages lazily. Consumers stop early.
	TopLevelPages(ctx context.Context) iter.Seq2[model.PagePath, error]
}

// ItemStore reads and edits knowledge-base items. ItemForPage returns
// model.ErrItemNotFound for pages without an item.
type ItemStore interface {
	ItemForPage(ctx context.Context, p model.PagePath) (*model.Item, error)
	Claims(ctx context.Context, item model.ItemID, prop model.PropertyID) ([]model.Claim, error)
	AddClaim(ctx context.Context, item model.ItemID, prop model.PropertyID, target model.ItemID, summary string) (model.Claim, error)
	ChangeClaimTarget(ctx context.Context, claim model.Claim, target model.ItemID, summary string) (model.Claim, error)
	RemoveClaims(ctx context.Context, claims []model.Claim, summary string) error
	AddQualifier(ctx context.Context, claim model.Claim, prop model.PropertyID, target model.ItemID, summary string) error
	ItemURL(item model.ItemID) string
}

// Store is both halves together
type Store interface {
	PageStore
	ItemStore
}

// Candidate checks whether p exists and follows at most one redirect
func Candidate(ctx context.Context, pages PageStore, p model.PagePath) (model.CandidatePage, error) {
	c := model.CandidatePage{Requested: p, Resolved: p}

	exists, err := pages.Exists(ctx, p)
	if err != nil || !exists {
		return c, err
	}
	c.Exists = true

	redirect, err := pages.IsRedirect(ctx, p)
	if err != nil || !redirect {
		return c, err
	}

	target, err := pages.RedirectTarget(ctx, p)
	if err != nil {
		return c, err
	}
	c.Redirect = true
	c.Resolved = target

	c.Exists, err = pages.Exists(ctx, target)
	return c, err
}

// LookupItem returns the item connected to p. A page without an item is a
// normal outcome, not an error.
func LookupItem(ctx context.Context, items ItemStore, p model.PagePath) (model.ItemRef, error) {
	item, err := items.ItemForPage(ctx, p)
	if errors.Is(err, model.ErrItemNotFound) {
		return model.ItemRef{Page: p}, nil
	}
	if err != nil {
		return model.ItemRef{Page: p}, err
	}
	return model.ItemRef{Page: p, Item: item}, nil
}
