package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/wikipub/internal/model"
)

// Navigation holds the navigation template parameters of one page.
// Present is false when the page does not use the template at all.
type Navigation struct {
	Present  bool   `json:"present"`
	Title    string `json:"title,omitempty"`
	Previous string `json:"previous,omitempty"`
	Next     string `json:"next,omitempty"`
}

// HasTitle reports whether the title parameter was declared
func (n Navigation) HasTitle() bool {
	return n.Present && n.Title != ""
}

// Err returns ErrParamMissing when the template is used without a title
func (n Navigation) Err() error {
	if n.Present && n.Title == "" {
		return model.ErrParamMissing
	}
	return nil
}

// NavigationExtractor reads the navigation template out of page wikitext
type NavigationExtractor struct {
	cfg model.TemplateConfig
}

// NewNavigationExtractor creates an extractor for the configured template
func NewNavigationExtractor(cfg model.TemplateConfig) *NavigationExtractor {
	return &NavigationExtractor{cfg: cfg}
}

// Template returns the configured template name
func (e *NavigationExtractor) Template() string {
	return e.cfg.Name
}

// Extract parses text. Values are cleaned into plain page titles.
func (e *NavigationExtractor) Extract(text string) Navigation {
	tpl, ok := FindTemplate(text, e.cfg.Name)
	if !ok {
		return Navigation{}
	}

	nav := Navigation{Present: true}
	nav.Title = e.param(tpl, e.cfg.TitleParam)
	nav.Previous = e.param(tpl, e.cfg.PreviousParam)
	nav.Next = e.param(tpl, e.cfg.NextParam)
	return nav
}

func (e *NavigationExtractor) param(tpl Template, name string) string {
	if name == "" {
		return ""
	}
	raw, ok := tpl.Param(name)
	if !ok {
		return ""
	}
	return CleanTitle(raw)
}

var (
	linkPattern = regexp.MustCompile(`\[\[([^\]|]*)(?:\|[^\]]*)?\]\]`)
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
)

// CleanTitle turns a template value into a page title: entities are decoded,
// links reduced to their target, markup removed and relative "../" dropped.
func CleanTitle(raw string) string {
	s := html.UnescapeString(raw)
	s = linkPattern.ReplaceAllString(s, "$1")
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, "../") {
		s = strings.TrimPrefix(s, "../")
	}
	s = strings.TrimPrefix(s, ":")
	return model.NormalizeTitle(s)
}
