package model

// Proposal asks a human to confirm one mutating decision
type Proposal struct {
	Page       PagePath   `json:"page"`
	Item       ItemID     `json:"item"`
	ItemLabel  string     `json:"item_label,omitempty"`
	Decision   Decision   `json:"decision"`
	Resolution Resolution `json:"resolution"`
}

// Choice asks a human to pick the publication among search candidates
type Choice struct {
	Page       PagePath    `json:"page"`
	Title      string      `json:"title"` // declared title that was searched for
	Candidates []Candidate `json:"candidates"`
}

// Escalation hands an item a human has to fix by hand
type Escalation struct {
	Page       PagePath    `json:"page"`
	Item       ItemID      `json:"item"`
	URL        string      `json:"url"`
	Reason     string      `json:"reason"`
	Targets    []Target    `json:"targets,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}
