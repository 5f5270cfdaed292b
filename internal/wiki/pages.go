package wiki

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/wikipub/internal/cache"
	"github.com/ppiankov/wikipub/internal/model"
)

const listLimit = "500"

// Pages is a PageStore backed by the MediaWiki action API
type Pages struct {
	client *Client
	api    string
	cache  cache.Cache // page info, may outlive the run
	text   cache.Cache // wikitext, this process only
	ttl    time.Duration
	log    zerolog.Logger
}

// NewPages creates a page store. c may be nil to disable caching. Page text
// is never taken from c: an edited page must be read fresh by the next run.
func NewPages(client *Client, api string, c cache.Cache, ttl time.Duration, log zerolog.Logger) *Pages {
	p := &Pages{client: client, api: api, cache: c, ttl: ttl, log: log}
	if c != nil {
		p.text = cache.NewMemoryCache(ttl, ttl)
	}
	return p
}

// pageInfo is what one info query tells about a title
type pageInfo struct {
	Exists   bool   `json:"exists"`
	Redirect bool   `json:"redirect"`
	Target   string `json:"target,omitempty"`
}

func (p *Pages) info(ctx context.Context, path model.PagePath) (pageInfo, error) {
	title := path.String()
	key := cache.CacheKey("page-info", p.api, title)

	var info pageInfo
	if cache.GetJSON(p.cache, key, &info) {
		return info, nil
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "info")
	params.Set("redirects", "1")
	params.Set("titles", title)

	var resp queryResponse
	if err := p.client.Get(ctx, p.api, params, &resp); err != nil {
		return pageInfo{}, fmt.Errorf("page info %q: %w", title, err)
	}

	if len(resp.Query.Redirects) > 0 {
		// The redirect page itself exists even when its target does not
		info = pageInfo{Exists: true, Redirect: true, Target: resp.Query.Redirects[0].To}
	} else if len(resp.Query.Pages) > 0 {
		pg := resp.Query.Pages[0]
		info = pageInfo{Exists: !pg.Missing && !pg.Invalid}
	}

	if err := cache.SetJSON(p.cache, key, info, p.ttl); err != nil {
		p.log.Debug().Err(err).Str("title", title).Msg("page info not cached")
	}
	return info, nil
}

// Exists reports whether the page exists
func (p *Pages) Exists(ctx context.Context, path model.PagePath) (bool, error) {
	info, err := p.info(ctx, path)
	return info.Exists, err
}

// IsRedirect reports whether the page is a redirect
func (p *Pages) IsRedirect(ctx context.Context, path model.PagePath) (bool, error) {
	info, err := p.info(ctx, path)
	return info.Redirect, err
}

// RedirectTarget returns the page a redirect points at
func (p *Pages) RedirectTarget(ctx context.Context, path model.PagePath) (model.PagePath, error) {
	info, err := p.info(ctx, path)
	if err != nil {
		return nil, err
	}
	if !info.Redirect {
		return path, nil
	}
	return model.ParsePath(info.Target), nil
}

// Text returns the current wikitext of the page
func (p *Pages) Text(ctx context.Context, path model.PagePath) (string, error) {
	title := path.String()
	key := cache.CacheKey("page-text", p.api, title)

	var text string
	if cache.GetJSON(p.text, key, &text) {
		return text, nil
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "revisions")
	params.Set("rvprop", "content")
	params.Set("rvslots", "main")
	params.Set("titles", title)

	var resp queryResponse
	if err := p.client.Get(ctx, p.api, params, &resp); err != nil {
		return "", fmt.Errorf("page text %q: %w", title, err)
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing {
		// A cached "exists" is stale now
		if err := cache.Forget(p.cache, cache.CacheKey("page-info", p.api, title)); err != nil {
			p.log.Debug().Err(err).Str("title", title).Msg("stale page info kept")
		}
		return "", fmt.Errorf("page text %q: missing page", title)
	}
	revs := resp.Query.Pages[0].Revisions
	if len(revs) > 0 {
		text = revs[0].Slots.Main.Content
	}

	if err := cache.SetJSON(p.text, key, text, p.ttl); err != nil {
		p.log.Debug().Err(err).Str("title", title).Msg("page text not cached")
	}
	return text, nil
}

// TopLevelPages yields main-namespace pages that are not subpages
func (p *Pages) TopLevelPages(ctx context.Context) iter.Seq2[model.PagePath, error] {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "allpages")
	params.Set("apnamespace", "0")
	params.Set("aplimit", listLimit)

	all := p.list(ctx, params, func(r *queryResponse) []listedPage { return r.Query.AllPages })
	return func(yield func(model.PagePath, error) bool) {
		for path, err := range all {
			if err == nil && path.IsSubpage() {
				continue
			}
			if !yield(path, err) {
				return
			}
		}
	}
}

// Transclusions yields main-namespace pages that use the template
func (p *Pages) Transclusions(ctx context.Context, template string) iter.Seq2[model.PagePath, error] {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "embeddedin")
	params.Set("eititle", "Template:"+template)
	params.Set("einamespace", "0")
	params.Set("eilimit", listLimit)

	return p.list(ctx, params, func(r *queryResponse) []listedPage { return r.Query.EmbeddedIn })
}

// list pages through a list= query, following continuation until the
// consumer stops or the list ends
func (p *Pages) list(ctx context.Context, params url.Values, pick func(*queryResponse) []listedPage) iter.Seq2[model.PagePath, error] {
	return func(yield func(model.PagePath, error) bool) {
		cont := map[string]string{}
		for {
			q := url.Values{}
			for k, v := range params {
				q[k] = v
			}
			for k, v := range cont {
				q.Set(k, v)
			}

			var resp queryResponse
			if err := p.client.Get(ctx, p.api, q, &resp); err != nil {
				yield(nil, fmt.Errorf("list %s: %w", params.Get("list"), err))
				return
			}
			for _, lp := range pick(&resp) {
				if !yield(model.ParsePath(lp.Title), nil) {
					return
				}
			}
			if len(resp.Continue) == 0 {
				return
			}
			cont = resp.Continue
		}
	}
}
