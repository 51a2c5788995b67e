package domain

import (
	"strings"
	"time"
)

// QueryFilter narrows an EventStore query. Nil set / zero time fields match
// everything; Limit <= 0 means no truncation.
type QueryFilter struct {
	Since      time.Time
	Until      time.Time
	Symbols    map[string]struct{}
	Exchanges  map[Exchange]struct{}
	Directions map[Direction]struct{}
	Limit      int
}

// Match reports whether the event passes every populated criterion.
func (f QueryFilter) Match(e Event) bool {
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Time.After(f.Until) {
		return false
	}
	if f.Symbols != nil {
		if _, ok := f.Symbols[strings.ToUpper(e.Symbol)]; !ok {
			return false
		}
	}
	if f.Exchanges != nil {
		if _, ok := f.Exchanges[e.Exchange]; !ok {
			return false
		}
	}
	if f.Directions != nil {
		if _, ok := f.Directions[e.Direction]; !ok {
			return false
		}
	}
	return true
}

// SymbolSet builds an uppercase symbol set from a comma-separated list.
// Empty input yields nil (match all).
func SymbolSet(csv string) map[string]struct{} {
	var set map[string]struct{}
	for _, s := range strings.Split(csv, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{})
		}
		set[s] = struct{}{}
	}
	return set
}
