package model

import "strings"

// PathSeparator separates the hierarchy levels of a page title
const PathSeparator = "/"

// PagePath is a page title split into its hierarchy levels.
// "Journal/1925/No3" has three segments; a top-level page has one.
type PagePath []string

// ParsePath splits a page title into a PagePath. Titles are normalised the
// way MediaWiki does it: underscores become spaces and runs of whitespace
// collapse. Empty segments are dropped.
func ParsePath(title string) PagePath {
	title = NormalizeTitle(title)
	if title == "" {
		return nil
	}

	var path PagePath
	for _, seg := range strings.Split(title, PathSeparator) {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			path = append(path, seg)
		}
	}
	return path
}

// NormalizeTitle applies MediaWiki-style title normalisation
func NormalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "_", " ")
	return strings.Join(strings.Fields(title), " ")
}

// String joins the segments back into a title
func (p PagePath) String() string {
	return strings.Join(p, PathSeparator)
}

// Len returns the number of segments
func (p PagePath) Len() int {
	return len(p)
}

// IsZero reports whether the path is empty
func (p PagePath) IsZero() bool {
	return len(p) == 0
}

// IsSubpage reports whether the path has at least one ancestor
func (p PagePath) IsSubpage() bool {
	return len(p) > 1
}

// Last returns the final segment
func (p PagePath) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Equal compares two paths segment by segment
func (p PagePath) Equal(other PagePath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a (not necessarily strict) prefix of p
func (p PagePath) HasPrefix(prefix PagePath) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// Parent returns the immediate prefix, or the path itself for a top-level page
func (p PagePath) Parent() PagePath {
	if len(p) <= 1 {
		return p.clone()
	}
	return p[:len(p)-1].clone()
}

// Ancestors returns every strict non-empty prefix, nearest ancestor first.
// A/B/C/D yields A/B/C, A/B, A.
func (p PagePath) Ancestors() []PagePath {
	if len(p) <= 1 {
		return nil
	}
	out := make([]PagePath, 0, len(p)-1)
	for i := len(p) - 1; i >= 1; i-- {
		out = append(out, p[:i].clone())
	}
	return out
}

// AncestorsTopDown returns every strict non-empty prefix, farthest ancestor first
func (p PagePath) AncestorsTopDown() []PagePath {
	bottomUp := p.Ancestors()
	out := make([]PagePath, len(bottomUp))
	for i, a := range bottomUp {
		out[len(bottomUp)-1-i] = a
	}
	return out
}

// Sibling replaces the final segment with name. A name that itself contains
// separators contributes all of its segments.
func (p PagePath) Sibling(name string) PagePath {
	rel := ParsePath(name)
	if len(rel) == 0 {
		return p.clone()
	}
	if len(p) <= 1 {
		return rel
	}
	return append(p[:len(p)-1].clone(), rel...)
}

// Join appends the segments of title under p
func (p PagePath) Join(title string) PagePath {
	return append(p.clone(), ParsePath(title)...)
}

func (p PagePath) clone() PagePath {
	if p == nil {
		return nil
	}
	out := make(PagePath, len(p))
	copy(out, p)
	return out
}

// CandidatePage is a page considered during resolution, after existence and
// redirect checks. Redirects are followed exactly one hop.
type CandidatePage struct {
	Requested PagePath `json:"requested"`
	Resolved  PagePath `json:"resolved"`
	Exists    bool     `json:"exists"`
	Redirect  bool     `json:"redirect,omitempty"`
}
