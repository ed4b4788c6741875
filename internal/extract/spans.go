package extract

import (
	"strings"

	"github.com/ppiankov/tabclaim/internal/markup"
)

const (
	// PlaceholderLabel stands in for an empty grouping cell
	PlaceholderLabel = "N/A"
	// DefaultSpecLabel is used when no group bound covers a column
	DefaultSpecLabel = "Spec_name"
)

// SpanMap maps grouping labels to the cumulative, 1-based, inclusive upper
// bound of the columns they cover. Labels keep their first-seen order.
type SpanMap struct {
	labels []string
	bounds map[string]int
}

// Labels returns the labels in first-seen order
func (m SpanMap) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

// Bound returns the cumulative bound recorded for label
func (m SpanMap) Bound(label string) (int, bool) {
	b, ok := m.bounds[label]
	return b, ok
}

// Len returns the number of labels
func (m SpanMap) Len() int {
	return len(m.labels)
}

// Lookup returns the first label, in insertion order, whose bound is >= column.
// This is a linear first-match scan: with repeated labels the bounds need not
// be monotonic, and the scan order decides the result.
func (m SpanMap) Lookup(column int) (string, bool) {
	for _, label := range m.labels {
		if column <= m.bounds[label] {
			return label, true
		}
	}
	return DefaultSpecLabel, false
}

// ResolveSpans builds the span map of a grouping row.
//
// Placeholder cells (empty or "N/A") never get an entry. Before the first real
// label they are ignored: they sit above the metric-name column. After a
// label, their width joins the running total and is folded into the next
// label's bound. A repeated label overwrites its bound and keeps its position.
func ResolveSpans(row markup.Row) (SpanMap, error) {
	if len(row) == 0 {
		return SpanMap{}, &MalformedHeaderError{Column: -1, Reason: "grouping row has no cells"}
	}

	m := SpanMap{
		labels: make([]string, 0, len(row)),
		bounds: make(map[string]int, len(row)),
	}

	total := 0
	seenLabel := false
	for i, cell := range row {
		span, err := cell.Span()
		if err != nil {
			return SpanMap{}, &MalformedHeaderError{Column: i, Reason: "invalid span", Err: err}
		}

		label := strings.TrimSpace(cell.Text)
		if label == "" {
			label = PlaceholderLabel
		}

		if label == PlaceholderLabel {
			if seenLabel {
				total += span
			}
			continue
		}

		seenLabel = true
		total += span
		if _, exists := m.bounds[label]; !exists {
			m.labels = append(m.labels, label)
		}
		m.bounds[label] = total
	}

	return m, nil
}
