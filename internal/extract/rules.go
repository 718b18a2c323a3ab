// Package extract implements the field extraction ruleset shared by both
// acquisition strategies: for each target field, an ordered list of accessors
// is tried against heterogeneous raw data (live DOM layouts or search-API
// JSON shapes) and the first acceptable value wins.
package extract

import "strings"

// Accessor pulls one candidate value out of a raw source. ok=false means the
// source does not have this shape; the caller moves on to the next accessor.
type Accessor func() (string, bool)

// Predicate decides whether a candidate value is acceptable for a field.
type Predicate func(string) bool

// FirstMatch evaluates accessors in order and returns the first value that
// is present, non-blank, and accepted. Evaluation stops at the first hit, so
// later accessors are never run once a value is found.
func FirstMatch(accessors []Accessor, accept Predicate) (string, bool) {
	if accept == nil {
		accept = NonBlank
	}
	for _, get := range accessors {
		v, ok := get()
		if !ok {
			continue
		}
		v = CleanText(v)
		if v == "" || !accept(v) {
			continue
		}
		return v, true
	}
	return "", false
}

// NonBlank accepts any value that survives whitespace cleanup.
func NonBlank(s string) bool { return strings.TrimSpace(s) != "" }

// MinLen accepts values of at least n characters. Used to keep short UI
// chrome text ("See more", "About") from matching long-form fields.
func MinLen(n int) Predicate {
	return func(s string) bool { return len(s) >= n }
}

// ContainsComma accepts values containing a comma. Real locations are almost
// always "City, Region"; single words tend to be nav labels.
func ContainsComma(s string) bool { return strings.Contains(s, ",") }

// CleanText collapses internal whitespace runs (including newlines and tabs)
// into single spaces and trims the result.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
