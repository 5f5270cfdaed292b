package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ppiankov/wikipub/internal/model"
)

// Items is an ItemStore backed by the Wikibase API. Items are never cached.
type Items struct {
	client   *Client
	api      string
	site     string
	language string
	urlBase  string
	loggedIn bool
	token    string
	log      zerolog.Logger
}

// NewItems creates an item store for pages of site (e.g. "cswikisource")
func NewItems(client *Client, cfg model.WikiConfig, log zerolog.Logger) *Items {
	return &Items{
		client:   client,
		api:      cfg.RepoAPI,
		site:     cfg.Site,
		language: cfg.Language,
		urlBase:  cfg.ItemURLBase,
		log:      log,
	}
}

// Login signs in to the repository. Edits without a login are refused.
func (s *Items) Login(ctx context.Context, username, password string) error {
	if err := s.client.Login(ctx, s.api, username, password); err != nil {
		return err
	}
	s.loggedIn = true
	s.token = ""
	return nil
}

// ItemForPage returns the item linked to the page via its site link
func (s *Items) ItemForPage(ctx context.Context, p model.PagePath) (*model.Item, error) {
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("sites", s.site)
	params.Set("titles", p.String())
	params.Set("props", "labels|claims")
	params.Set("languages", s.language)

	var resp entitiesResponse
	if err := s.client.Get(ctx, s.api, params, &resp); err != nil {
		return nil, fmt.Errorf("item for %q: %w", p.String(), err)
	}
	for _, e := range resp.Entities {
		if len(e.Missing) > 0 || e.ID == "" {
			continue
		}
		return e.item(), nil
	}
	return nil, fmt.Errorf("item for %q: %w", p.String(), model.ErrItemNotFound)
}

// Claims returns the current claims of item for prop
func (s *Items) Claims(ctx context.Context, item model.ItemID, prop model.PropertyID) ([]model.Claim, error) {
	params := url.Values{}
	params.Set("action", "wbgetclaims")
	params.Set("entity", string(item))
	params.Set("property", string(prop))

	var resp claimsResponse
	if err := s.client.Get(ctx, s.api, params, &resp); err != nil {
		return nil, fmt.Errorf("claims of %s: %w", item, err)
	}
	return claimsOf(resp.Claims[string(prop)]), nil
}

// AddClaim creates prop=target on item
func (s *Items) AddClaim(ctx context.Context, item model.ItemID, prop model.PropertyID, target model.ItemID, summary string) (model.Claim, error) {
	value, err := itemValue(target)
	if err != nil {
		return model.Claim{}, &model.MutationError{Op: "add claim", Item: item, Err: err}
	}

	params := url.Values{}
	params.Set("action", "wbcreateclaim")
	params.Set("entity", string(item))
	params.Set("property", string(prop))
	params.Set("snaktype", "value")
	params.Set("value", value)
	params.Set("summary", summary)

	var resp claimResponse
	if err := s.edit(ctx, params, &resp); err != nil {
		return model.Claim{}, &model.MutationError{Op: "add claim", Item: item, Err: err}
	}
	return resp.Claim.claim(), nil
}

// ChangeClaimTarget points an existing claim at target
func (s *Items) ChangeClaimTarget(ctx context.Context, claim model.Claim, target model.ItemID, summary string) (model.Claim, error) {
	item := claim.Item()
	value, err := itemValue(target)
	if err != nil {
		return model.Claim{}, &model.MutationError{Op: "change claim", Item: item, Err: err}
	}

	params := url.Values{}
	params.Set("action", "wbsetclaimvalue")
	params.Set("claim", claim.ID)
	params.Set("snaktype", "value")
	params.Set("value", value)
	params.Set("summary", summary)

	var resp claimResponse
	if err := s.edit(ctx, params, &resp); err != nil {
		return model.Claim{}, &model.MutationError{Op: "change claim", Item: item, Err: err}
	}

	updated := resp.Claim.claim()
	if updated.ID == "" {
		// Older Wikibase versions only return the success flag
		updated = claim
		updated.Target = model.ItemTarget(target)
	}
	return updated, nil
}

// RemoveClaims deletes claims in a single edit
func (s *Items) RemoveClaims(ctx context.Context, claims []model.Claim, summary string) error {
	if len(claims) == 0 {
		return nil
	}
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ID)
	}

	params := url.Values{}
	params.Set("action", "wbremoveclaims")
	params.Set("claim", strings.Join(ids, "|"))
	params.Set("summary", summary)

	if err := s.edit(ctx, params, nil); err != nil {
		return &model.MutationError{Op: "remove claims", Item: claims[0].Item(), Err: err}
	}
	return nil
}

// AddQualifier attaches prop=target to claim
func (s *Items) AddQualifier(ctx context.Context, claim model.Claim, prop model.PropertyID, target model.ItemID, summary string) error {
	item := claim.Item()
	value, err := itemValue(target)
	if err != nil {
		return &model.MutationError{Op: "add qualifier", Item: item, Err: err}
	}

	params := url.Values{}
	params.Set("action", "wbsetqualifier")
	params.Set("claim", claim.ID)
	params.Set("property", string(prop))
	params.Set("snaktype", "value")
	params.Set("value", value)
	params.Set("summary", summary)

	if err := s.edit(ctx, params, nil); err != nil {
		return &model.MutationError{Op: "add qualifier", Item: item, Err: err}
	}
	return nil
}

// ItemURL returns the page a human opens to review the item
func (s *Items) ItemURL(item model.ItemID) string {
	return s.urlBase + string(item)
}

// edit posts a write action with a CSRF token, refreshing a stale token once
func (s *Items) edit(ctx context.Context, params url.Values, out any) error {
	if !s.loggedIn {
		return errors.New("not logged in")
	}

	for attempt := 0; attempt < 2; attempt++ {
		if s.token == "" {
			token, err := s.client.CSRFToken(ctx, s.api)
			if err != nil {
				return fmt.Errorf("csrf token: %w", err)
			}
			if token == anonymousToken {
				return errors.New("session expired: got anonymous token")
			}
			s.token = token
		}

		params.Set("token", s.token)
		params.Set("bot", "1")
		params.Set("assert", "user")

		err := s.client.Post(ctx, s.api, params, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "badtoken" {
			s.log.Debug().Msg("csrf token expired, refreshing")
			s.token = ""
			continue
		}
		return err
	}
	return errors.New("csrf token rejected twice")
}
