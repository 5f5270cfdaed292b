package model

import "fmt"

// Action is the kind of edit the reconciler proposes
type Action string

const (
	ActionNone       Action = "no-op"      // claims already match
	ActionAdd        Action = "add"        // no claim yet, add one
	ActionReplace    Action = "replace"    // single mismatching target, retarget it
	ActionDedup      Action = "dedup"      // redundant unqualified duplicates
	ActionEscalate   Action = "escalate"   // mutually exclusive targets, human review
	ActionUnresolved Action = "unresolved" // nothing to add and nothing to compare against
)

// Mutating reports whether the action changes the knowledge base
func (a Action) Mutating() bool {
	switch a {
	case ActionAdd, ActionReplace, ActionDedup:
		return true
	}
	return false
}

// EditTag is the provenance tag carried by every edit summary
type EditTag string

const (
	TagHierarchy    EditTag = EditTag(StrategyHierarchy)
	TagMultiLevel   EditTag = EditTag(StrategyMultiLevel)
	TagSimilarTitle EditTag = EditTag(StrategySimilarTitle)
	TagDirectMatch  EditTag = EditTag(StrategyDirectMatch)
	TagMismatch     EditTag = "mismatch-correction"
	TagDuplicate    EditTag = "duplicate-cleanup"
	TagQualifier    EditTag = "navigation-qualifier"
)

var tagDescriptions = map[EditTag]string{
	TagHierarchy:    "added published in, estimated from the page hierarchy",
	TagMultiLevel:   "added published in, guessed from a multi-level title",
	TagSimilarTitle: "added published in, matched a similar title",
	TagDirectMatch:  "added published in from the navigation title",
	TagMismatch:     "corrected published in",
	TagDuplicate:    "removed duplicate published in without qualifiers",
	TagQualifier:    "added part order qualifier from navigation",
}

// Summary renders the edit summary for a tag. template names the navigation
// template that the information came from.
func (t EditTag) Summary(template string) string {
	desc, ok := tagDescriptions[t]
	if !ok {
		desc = "updated published in"
	}
	if template == "" {
		return fmt.Sprintf("%s [%s]", desc, t)
	}
	return fmt.Sprintf("%s ({{%s}}) [%s]", desc, template, t)
}

// TagForStrategy maps a resolution strategy onto the tag of an ADD edit
func TagForStrategy(s Strategy) EditTag {
	switch s {
	case StrategyMultiLevel:
		return TagMultiLevel
	case StrategySimilarTitle:
		return TagSimilarTitle
	case StrategyDirectMatch:
		return TagDirectMatch
	default:
		return TagHierarchy
	}
}

// Decision is the minimal edit the reconciler proposes for one property of
// one item. Only Add, Replace and Dedup mutate anything.
type Decision struct {
	Action   Action     `json:"action"`
	Property PropertyID `json:"property"`
	Expected ItemID     `json:"expected,omitempty"`
	Tag      EditTag    `json:"tag,omitempty"`
	Reason   string     `json:"reason,omitempty"`

	// Retarget is the claim whose value changes (Replace)
	Retarget *Claim `json:"retarget,omitempty"`

	// Remove lists redundant claims (Dedup, and stale duplicates on Replace)
	Remove []Claim `json:"remove,omitempty"`

	// Survivor is the claim that represents the target afterwards. Qualifiers
	// are attached to it. Nil when nothing survives yet (Add) or on escalation.
	Survivor *Claim `json:"survivor,omitempty"`

	// Escalate
	Targets    []Target    `json:"targets,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Mutating reports whether applying the decision edits the knowledge base
func (d Decision) Mutating() bool {
	return d.Action.Mutating()
}

// QualifierEdit is one qualifier the annotator wants to attach
type QualifierEdit struct {
	Claim    Claim      `json:"-"`
	ClaimID  string     `json:"claim_id"`
	Property PropertyID `json:"property"`
	Target   ItemID     `json:"target"`
	Sibling  PagePath   `json:"sibling"`
}

// Answer is a human's reply to a confirmation request
type Answer int

const (
	AnswerNo  Answer = iota // skip this edit
	AnswerYes               // apply this edit
	AnswerAll               // apply this and every later edit without asking
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerAll:
		return "all"
	default:
		return "no"
	}
}

// Approves reports whether the edit may be applied
func (a Answer) Approves() bool {
	return a == AnswerYes || a == AnswerAll
}

// SessionState is the only state carried from one page to the next.
// Once ApplyAll is set it stays set for the rest of the run.
type SessionState struct {
	ApplyAll bool `json:"apply_all"`
}

// After returns the state that follows answer a
func (s SessionState) After(a Answer) SessionState {
	if a == AnswerAll {
		s.ApplyAll = true
	}
	return s
}
