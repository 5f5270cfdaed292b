package model

import "strings"

// ItemID identifies a knowledge-base item (e.g., "Q100")
type ItemID string

// PropertyID identifies a knowledge-base property (e.g., "P1433")
type PropertyID string

// Item is a knowledge-base item as seen by one page run. Items are looked up
// on demand and never cached across pages.
type Item struct {
	ID     ItemID                 `json:"id"`
	Labels map[string]string      `json:"labels,omitempty"` // language -> label
	Claims map[PropertyID][]Claim `json:"claims,omitempty"`
}

// Label returns the label in lang, falling back to the item id
func (i *Item) Label(lang string) string {
	if i == nil {
		return ""
	}
	if l, ok := i.Labels[lang]; ok && l != "" {
		return l
	}
	return string(i.ID)
}

// Target is the value of a claim: either an item reference or a literal
// value of some other datatype. Target is comparable and used as a map key.
type Target struct {
	Item    ItemID `json:"item,omitempty"`
	Literal string `json:"literal,omitempty"`
}

// ItemTarget builds a Target pointing at an item
func ItemTarget(id ItemID) Target {
	return Target{Item: id}
}

// IsItem reports whether the target references an item
func (t Target) IsItem() bool {
	return t.Item != ""
}

func (t Target) String() string {
	if t.IsItem() {
		return string(t.Item)
	}
	if t.Literal == "" {
		return "(no value)"
	}
	return "value:" + t.Literal
}

// Claim is one statement of an item
type Claim struct {
	ID         string                  `json:"id,omitempty"` // statement GUID
	Property   PropertyID              `json:"property"`
	Target     Target                  `json:"target"`
	Qualifiers map[PropertyID][]ItemID `json:"qualifiers,omitempty"`
}

// Item returns the item the claim belongs to, read from the statement GUID
// ("Q1$uuid")
func (c Claim) Item() ItemID {
	id, _, _ := strings.Cut(c.ID, "$")
	return ItemID(strings.ToUpper(id))
}

// HasQualifiers reports whether the claim carries any qualifier at all.
// Such claims are never removed automatically.
func (c Claim) HasQualifiers() bool {
	for _, values := range c.Qualifiers {
		if len(values) > 0 {
			return true
		}
	}
	return false
}

// HasAnyQualifier reports whether the claim has a qualifier for any of props
func (c Claim) HasAnyQualifier(props ...PropertyID) bool {
	for _, p := range props {
		if len(c.Qualifiers[p]) > 0 {
			return true
		}
	}
	return false
}

// HasQualifier reports whether the claim already has prop=target
func (c Claim) HasQualifier(prop PropertyID, target ItemID) bool {
	for _, v := range c.Qualifiers[prop] {
		if v == target {
			return true
		}
	}
	return false
}

// WithQualifier returns a copy of the claim with prop=target appended
func (c Claim) WithQualifier(prop PropertyID, target ItemID) Claim {
	out := c
	out.Qualifiers = make(map[PropertyID][]ItemID, len(c.Qualifiers)+1)
	for k, v := range c.Qualifiers {
		out.Qualifiers[k] = append([]ItemID(nil), v...)
	}
	out.Qualifiers[prop] = append(out.Qualifiers[prop], target)
	return out
}

// ParseItemID validates and normalises an item id such as "q42"
func ParseItemID(s string) (ItemID, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || s[0] != 'Q' {
		return "", false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return ItemID(s), true
}

// ItemRef is the result of looking up the item connected to a page.
// A nil Item means the page has no item.
type ItemRef struct {
	Page PagePath `json:"page"`
	Item *Item    `json:"item,omitempty"`
}

// Found reports whether the page has an item
func (r ItemRef) Found() bool {
	return r.Item != nil
}

// ID returns the item id or "" when not found
func (r ItemRef) ID() ItemID {
	if r.Item == nil {
		return ""
	}
	return r.Item.ID
}
