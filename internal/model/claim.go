package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateKey is returned when a specification repeats a key
var ErrDuplicateKey = errors.New("duplicate specification key")

// Pair is one dimension of a claim's specification
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Specification is an ordered set of key/value pairs, unique by key
type Specification struct {
	pairs []Pair
}

// NewSpecification builds a specification, preserving pair order
func NewSpecification(pairs ...Pair) (Specification, error) {
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if seen[p.Key] {
			return Specification{}, fmt.Errorf("%w: %q", ErrDuplicateKey, p.Key)
		}
		seen[p.Key] = true
	}

	copied := make([]Pair, len(pairs))
	copy(copied, pairs)
	return Specification{pairs: copied}, nil
}

// Pairs returns a copy of the pairs in insertion order
func (s Specification) Pairs() []Pair {
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Len returns the number of pairs
func (s Specification) Len() int {
	return len(s.pairs)
}

// Keys returns the keys in insertion order
func (s Specification) Keys() []string {
	keys := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		keys[i] = p.Key
	}
	return keys
}

// Get returns the value stored under key
func (s Specification) Get(key string) (string, bool) {
	for _, p := range s.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Equal reports whether two specifications hold the same pairs in the same order
func (s Specification) Equal(other Specification) bool {
	if len(s.pairs) != len(other.pairs) {
		return false
	}
	for i := range s.pairs {
		if s.pairs[i] != other.pairs[i] {
			return false
		}
	}
	return true
}

// Claim is an assertion extracted from one table cell:
// under Specification, Metric took Outcome.
type Claim struct {
	spec    Specification
	metric  string
	outcome string
	layout  LayoutType // Layout that produced the claim; selects the text form
}

// NewClaim creates an immutable claim
func NewClaim(layout LayoutType, metric, outcome string, pairs ...Pair) (Claim, error) {
	spec, err := NewSpecification(pairs...)
	if err != nil {
		return Claim{}, err
	}
	return Claim{
		spec:    spec,
		metric:  metric,
		outcome: outcome,
		layout:  layout,
	}, nil
}

// Specification returns the claim's specification
func (c Claim) Specification() Specification { return c.spec }

// Metric returns the measured quantity's name
func (c Claim) Metric() string { return c.metric }

// Outcome returns the observed value
func (c Claim) Outcome() string { return c.outcome }

// Layout returns the layout the claim was extracted from
func (c Claim) Layout() LayoutType { return c.layout }
