package model

// Strategy names the rule that produced a resolution. The value doubles as the
// provenance tag appended to edit summaries.
type Strategy string

const (
	StrategyDirectMatch  Strategy = "direct-match"             // declared title resolved as-is
	StrategyMultiLevel   Strategy = "multi-level-title-guess"  // parent path + declared title
	StrategySimilarTitle Strategy = "similar-title-match"      // picked from a substring search
	StrategyHierarchy    Strategy = "estimated-from-hierarchy" // nearest ancestor with an item

	// StrategyUnknown marks resolutions that did not come from any rule
	StrategyUnknown Strategy = ""
)

// ResolutionKind classifies a Resolution
type ResolutionKind int

const (
	// KindNoAncestor means the page is top-level and has nothing to resolve against
	KindNoAncestor ResolutionKind = iota
	// KindNotFound means no candidate page has an item
	KindNotFound
	// KindResolved means exactly one target was found
	KindResolved
	// KindAmbiguous means two or more mutually exclusive targets were found
	KindAmbiguous
)

func (k ResolutionKind) String() string {
	switch k {
	case KindNoAncestor:
		return "no-ancestor"
	case KindNotFound:
		return "not-found"
	case KindResolved:
		return "resolved"
	case KindAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in reports
func (k ResolutionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Candidate is a page whose item is a possible publication target
type Candidate struct {
	Page  PagePath `json:"page"`
	Item  ItemID   `json:"item"`
	Label string   `json:"label,omitempty"`
}

// Resolution is the HierarchyResolver's answer for one page
type Resolution struct {
	Kind     ResolutionKind `json:"kind"`
	Strategy Strategy       `json:"strategy,omitempty"`

	// Resolved
	Target ItemID   `json:"target,omitempty"`
	Page   PagePath `json:"page,omitempty"` // page the target item belongs to
	Label  string   `json:"label,omitempty"`

	// Ambiguous, and single search hits that still need a human pick
	Candidates []Candidate `json:"candidates,omitempty"`

	// NotFound: highest existing ancestor, best effort and never an item
	Fallback PagePath `json:"fallback,omitempty"`

	// Reason explains NotFound/NoAncestor outcomes
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

// NeedsChoice reports whether a human must pick among Candidates before the
// resolution may drive an edit. Substring search hits are never trusted on
// their own, even when only one was found.
func (r Resolution) NeedsChoice() bool {
	return r.Strategy == StrategySimilarTitle && len(r.Candidates) > 0
}

// HasCandidate reports whether id is one of the candidates (or the single target)
func (r Resolution) HasCandidate(id ItemID) bool {
	if r.Kind == KindResolved && r.Target == id {
		return true
	}
	for _, c := range r.Candidates {
		if c.Item == id {
			return true
		}
	}
	return false
}

// Resolved builds a single-target resolution
func Resolved(target ItemID, page PagePath, label string, strategy Strategy) Resolution {
	return Resolution{
		Kind:     KindResolved,
		Strategy: strategy,
		Target:   target,
		Page:     page,
		Label:    label,
	}
}

// Choose turns candidate i into a single-target resolution
func (r Resolution) Choose(i int) (Resolution, bool) {
	if i < 0 || i >= len(r.Candidates) {
		return r, false
	}
	c := r.Candidates[i]
	return Resolved(c.Item, c.Page, c.Label, r.Strategy), true
}
