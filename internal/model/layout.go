package model

import (
	"math"
	"strconv"
	"strings"
)

// LayoutType is the structural shape a table was classified as
type LayoutType int

const (
	LayoutUnknown      LayoutType = 0 // Absent or unrecognized classification
	LayoutFlat         LayoutType = 1 // One header row, last column is the metric
	LayoutKeyed        LayoutType = 2 // Entity rows by condition columns, caption-driven naming
	LayoutHierarchical LayoutType = 3 // Grouping row + sub-value row
)

func (l LayoutType) String() string {
	switch l {
	case LayoutFlat:
		return "flat"
	case LayoutKeyed:
		return "keyed"
	case LayoutHierarchical:
		return "hierarchical"
	default:
		return "unknown"
	}
}

// Known reports whether the layout has an extraction strategy
func (l LayoutType) Known() bool {
	return l == LayoutFlat || l == LayoutKeyed || l == LayoutHierarchical
}

// ParseLayoutType converts a decoded mapping value into a layout.
// Anything other than the integers 1, 2 or 3 is LayoutUnknown.
func ParseLayoutType(v interface{}) LayoutType {
	var n int
	switch val := v.(type) {
	case int:
		n = val
	case int64:
		n = int(val)
	case uint64:
		n = int(val)
	case float64:
		if val != math.Trunc(val) {
			return LayoutUnknown
		}
		n = int(val)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return LayoutUnknown
		}
		n = parsed
	default:
		return LayoutUnknown
	}

	l := LayoutType(n)
	if !l.Known() {
		return LayoutUnknown
	}
	return l
}
