package model

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	// ErrItemNotFound means the page has no knowledge-base item
	ErrItemNotFound = errors.New("item not found")

	// ErrParamMissing means the navigation template lacks the title parameter
	ErrParamMissing = errors.New("navigation parameter missing")

	// ErrAmbiguousResolution means several mutually exclusive targets exist
	ErrAmbiguousResolution = errors.New("ambiguous resolution")

	// ErrNoAncestorResolvable means no ancestor page leads to an item
	ErrNoAncestorResolvable = errors.New("no ancestor resolvable")

	// ErrLookupFailure means an external store failed during a lookup
	ErrLookupFailure = errors.New("lookup failure")
)

// LookupError wraps an external store failure during a lookup. Lookups that
// fail this way count as "not found" for that one lookup.
type LookupError struct {
	Op    string
	Title string
	Err   error
}

// Error implements the error interface
func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s %q: %v", e.Op, e.Title, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *LookupError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *LookupError) Is(target error) bool {
	return target == ErrLookupFailure
}

// MutationError is a failed knowledge-base edit. It is fatal for the page's
// edit but never for the run.
type MutationError struct {
	Op   string
	Item ItemID
	Err  error
}

// Error implements the error interface
func (e *MutationError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Item, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *MutationError) Unwrap() error {
	return e.Err
}
