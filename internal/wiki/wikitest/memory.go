// Package wikitest provides an in-memory wiki.Store for tests.
package wikitest

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"github.com/ppiankov/wikipub/internal/model"
	"github.com/ppiankov/wikipub/internal/wiki"
)

var _ wiki.Store = (*Store)(nil)

// Edit is one recorded mutation
type Edit struct {
	Op       string
	Item     model.ItemID
	ClaimID  string
	Property model.PropertyID
	Target   model.ItemID
	Summary  string
}

type page struct {
	text     string
	redirect string
}

// Store keeps pages and items in maps and records every mutation
type Store struct {
	pages  map[string]page
	byPage map[string]model.ItemID
	items  map[model.ItemID]*model.Item
	nextID int

	// Edits lists mutations in the order they were applied
	Edits []Edit
	// Scanned counts pages yielded by TopLevelPages
	Scanned int
	// LookupErrors makes page and item lookups for a title fail
	LookupErrors map[string]error
	// MutationErrors makes a mutation op ("add", "change", "remove", "qualifier") fail
	MutationErrors map[string]error
}

// New creates an empty store
func New() *Store {
	return &Store{
		pages:          make(map[string]page),
		byPage:         make(map[string]model.ItemID),
		items:          make(map[model.ItemID]*model.Item),
		LookupErrors:   make(map[string]error),
		MutationErrors: make(map[string]error),
	}
}

// AddPage creates a page with wikitext
func (s *Store) AddPage(title, text string) *Store {
	s.pages[model.ParsePath(title).String()] = page{text: text}
	return s
}

// AddRedirect creates a redirect page
func (s *Store) AddRedirect(from, to string) *Store {
	s.pages[model.ParsePath(from).String()] = page{redirect: model.ParsePath(to).String()}
	return s
}

// AddItem links a new item to a page, creating the page when missing
func (s *Store) AddItem(title string, id model.ItemID, label string) *Store {
	key := model.ParsePath(title).String()
	if _, ok := s.pages[key]; !ok {
		s.pages[key] = page{}
	}
	s.byPage[key] = id
	s.items[id] = &model.Item{
		ID:     id,
		Labels: map[string]string{"cs": label},
		Claims: make(map[model.PropertyID][]model.Claim),
	}
	return s
}

// SeedClaim gives item an existing claim and returns it
func (s *Store) SeedClaim(item model.ItemID, prop model.PropertyID, target model.ItemID, qualifiers map[model.PropertyID][]model.ItemID) model.Claim {
	c := model.Claim{
		ID:         s.claimID(item),
		Property:   prop,
		Target:     model.ItemTarget(target),
		Qualifiers: qualifiers,
	}
	it := s.mustItem(item)
	it.Claims[prop] = append(it.Claims[prop], c)
	return c
}

// ClaimsOf returns the stored claims, for assertions
func (s *Store) ClaimsOf(item model.ItemID, prop model.PropertyID) []model.Claim {
	return copyClaims(s.mustItem(item).Claims[prop])
}

// EditsOf filters recorded edits by op
func (s *Store) EditsOf(op string) []Edit {
	var out []Edit
	for _, e := range s.Edits {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) mustItem(id model.ItemID) *model.Item {
	it, ok := s.items[id]
	if !ok {
		panic(fmt.Sprintf("wikitest: unknown item %s", id))
	}
	return it
}

func (s *Store) claimID(item model.ItemID) string {
	s.nextID++
	return fmt.Sprintf("%s$%04d", item, s.nextID)
}

// Exists implements wiki.PageStore
func (s *Store) Exists(_ context.Context, p model.PagePath) (bool, error) {
	if err := s.LookupErrors[p.String()]; err != nil {
		return false, err
	}
	_, ok := s.pages[p.String()]
	return ok, nil
}

// IsRedirect implements wiki.PageStore
func (s *Store) IsRedirect(_ context.Context, p model.PagePath) (bool, error) {
	return s.pages[p.String()].redirect != "", nil
}

// RedirectTarget implements wiki.PageStore
func (s *Store) RedirectTarget(_ context.Context, p model.PagePath) (model.PagePath, error) {
	pg := s.pages[p.String()]
	if pg.redirect == "" {
		return p, nil
	}
	return model.ParsePath(pg.redirect), nil
}

// Text implements wiki.PageStore
func (s *Store) Text(_ context.Context, p model.PagePath) (string, error) {
	pg, ok := s.pages[p.String()]
	if !ok {
		return "", fmt.Errorf("page %q: missing page", p.String())
	}
	return pg.text, nil
}

// TopLevelPages implements wiki.PageStore, yielding titles in sorted order
func (s *Store) TopLevelPages(_ context.Context) iter.Seq2[model.PagePath, error] {
	titles := make([]string, 0, len(s.pages))
	for t := range s.pages {
		titles = append(titles, t)
	}
	sort.Strings(titles)

	return func(yield func(model.PagePath, error) bool) {
		for _, t := range titles {
			p := model.ParsePath(t)
			if p.IsSubpage() {
				continue
			}
			s.Scanned++
			if !yield(p, nil) {
				return
			}
		}
	}
}

// ItemForPage implements wiki.ItemStore
func (s *Store) ItemForPage(_ context.Context, p model.PagePath) (*model.Item, error) {
	if err := s.LookupErrors[p.String()]; err != nil {
		return nil, err
	}
	id, ok := s.byPage[p.String()]
	if !ok {
		return nil, fmt.Errorf("item for %q: %w", p.String(), model.ErrItemNotFound)
	}
	it := s.items[id]
	out := &model.Item{ID: it.ID, Labels: it.Labels, Claims: make(map[model.PropertyID][]model.Claim)}
	for prop, claims := range it.Claims {
		out.Claims[prop] = copyClaims(claims)
	}
	return out, nil
}

// Claims implements wiki.ItemStore
func (s *Store) Claims(_ context.Context, item model.ItemID, prop model.PropertyID) ([]model.Claim, error) {
	it, ok := s.items[item]
	if !ok {
		return nil, model.ErrItemNotFound
	}
	return copyClaims(it.Claims[prop]), nil
}

// AddClaim implements wiki.ItemStore
func (s *Store) AddClaim(_ context.Context, item model.ItemID, prop model.PropertyID, target model.ItemID, summary string) (model.Claim, error) {
	if err := s.MutationErrors["add"]; err != nil {
		return model.Claim{}, &model.MutationError{Op: "add claim", Item: item, Err: err}
	}
	if _, ok := s.items[item]; !ok {
		return model.Claim{}, &model.MutationError{Op: "add claim", Item: item, Err: model.ErrItemNotFound}
	}
	c := s.SeedClaim(item, prop, target, nil)
	s.Edits = append(s.Edits, Edit{Op: "add", Item: item, ClaimID: c.ID, Property: prop, Target: target, Summary: summary})
	return c, nil
}

// ChangeClaimTarget implements wiki.ItemStore
func (s *Store) ChangeClaimTarget(_ context.Context, claim model.Claim, target model.ItemID, summary string) (model.Claim, error) {
	item, idx, ok := s.findClaim(claim)
	if !ok {
		return model.Claim{}, &model.MutationError{Op: "change claim", Item: item, Err: fmt.Errorf("no claim %s", claim.ID)}
	}
	if err := s.MutationErrors["change"]; err != nil {
		return model.Claim{}, &model.MutationError{Op: "change claim", Item: item, Err: err}
	}
	claims := s.items[item].Claims[claim.Property]
	claims[idx].Target = model.ItemTarget(target)
	s.Edits = append(s.Edits, Edit{Op: "change", Item: item, ClaimID: claim.ID, Property: claim.Property, Target: target, Summary: summary})
	return copyClaims(claims[idx : idx+1])[0], nil
}

// RemoveClaims implements wiki.ItemStore
func (s *Store) RemoveClaims(_ context.Context, claims []model.Claim, summary string) error {
	if err := s.MutationErrors["remove"]; err != nil && len(claims) > 0 {
		item, _, _ := s.findClaim(claims[0])
		return &model.MutationError{Op: "remove claims", Item: item, Err: err}
	}
	for _, c := range claims {
		item, idx, ok := s.findClaim(c)
		if !ok {
			return &model.MutationError{Op: "remove claims", Item: item, Err: fmt.Errorf("no claim %s", c.ID)}
		}
		list := s.items[item].Claims[c.Property]
		s.items[item].Claims[c.Property] = append(list[:idx:idx], list[idx+1:]...)
		s.Edits = append(s.Edits, Edit{Op: "remove", Item: item, ClaimID: c.ID, Property: c.Property, Target: c.Target.Item, Summary: summary})
	}
	return nil
}

// AddQualifier implements wiki.ItemStore
func (s *Store) AddQualifier(_ context.Context, claim model.Claim, prop model.PropertyID, target model.ItemID, summary string) error {
	item, idx, ok := s.findClaim(claim)
	if !ok {
		return &model.MutationError{Op: "add qualifier", Item: item, Err: fmt.Errorf("no claim %s", claim.ID)}
	}
	if err := s.MutationErrors["qualifier"]; err != nil {
		return &model.MutationError{Op: "add qualifier", Item: item, Err: err}
	}
	claims := s.items[item].Claims[claim.Property]
	claims[idx] = claims[idx].WithQualifier(prop, target)
	s.Edits = append(s.Edits, Edit{Op: "qualifier", Item: item, ClaimID: claim.ID, Property: prop, Target: target, Summary: summary})
	return nil
}

// ItemURL implements wiki.ItemStore
func (s *Store) ItemURL(item model.ItemID) string {
	return "https://www.wikidata.org/wiki/" + string(item)
}

func (s *Store) findClaim(c model.Claim) (model.ItemID, int, bool) {
	for id, it := range s.items {
		for i, existing := range it.Claims[c.Property] {
			if existing.ID == c.ID {
				return id, i, true
			}
		}
	}
	return "", -1, false
}

func copyClaims(claims []model.Claim) []model.Claim {
	if claims == nil {
		return nil
	}
	out := make([]model.Claim, len(claims))
	for i, c := range claims {
		out[i] = c
		if c.Qualifiers != nil {
			out[i].Qualifiers = make(map[model.PropertyID][]model.ItemID, len(c.Qualifiers))
			for k, v := range c.Qualifiers {
				out[i].Qualifiers[k] = append([]model.ItemID(nil), v...)
			}
		}
	}
	return out
}
