// Package markup reads HTML table markup into a row/cell snapshot.
package markup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoTable is returned when the markup holds no <table> element
var ErrNoTable = errors.New("no table element found")

// Cell is one td/th cell of a row
type Cell struct {
	Text    string // Trimmed text content of the cell and its descendants
	ColSpan string // Raw colspan attribute, empty when absent
	Header  bool   // Whether the cell is a <th>
}

// Span returns the cell's column span, 1 when unspecified.
// Non-numeric or non-positive spans are an error.
func (c Cell) Span() (int, error) {
	raw := strings.TrimSpace(c.ColSpan)
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid colspan %q: %w", c.ColSpan, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid colspan %q: must be positive", c.ColSpan)
	}
	return n, nil
}

// Row is an ordered sequence of cells
type Row []Cell

// Texts returns the text of every cell in order
func (r Row) Texts() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Text
	}
	return out
}

// Last returns the final cell of the row
func (r Row) Last() (Cell, bool) {
	if len(r) == 0 {
		return Cell{}, false
	}
	return r[len(r)-1], true
}

// Snapshot is a read-only projection of one table into rows of cells
type Snapshot struct {
	Rows []Row
}

// Len returns the number of rows
func (s *Snapshot) Len() int {
	return len(s.Rows)
}

// Row returns row i, or nil when out of range
func (s *Snapshot) Row(i int) Row {
	if i < 0 || i >= len(s.Rows) {
		return nil
	}
	return s.Rows[i]
}

// Parse reads the first <table> in htmlContent. Every <tr> of that table
// becomes a row, in document order; rows of nested tables are not included.
func Parse(htmlContent string) (*Snapshot, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	table := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Table
	})
	if table == nil {
		return nil, ErrNoTable
	}

	snap := &Snapshot{Rows: make([]Row, 0)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				// nested table, skip
			case atom.Tr:
				snap.Rows = append(snap.Rows, parseRow(c))
			default:
				walk(c)
			}
		}
	}
	walk(table)

	return snap, nil
}

// parseRow collects the direct td/th children of a tr
func parseRow(tr *html.Node) Row {
	row := make(Row, 0)
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom != atom.Td && c.DataAtom != atom.Th {
			continue
		}
		row = append(row, Cell{
			Text:    strings.TrimSpace(textContent(c)),
			ColSpan: attribute(c, "colspan"),
			Header:  c.DataAtom == atom.Th,
		})
	}
	return row
}

// textContent concatenates every descendant text node without separators
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		buf.WriteString(textContent(c))
	}
	return buf.String()
}

// attribute gets an attribute value from a node
func attribute(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// findFirst finds the first node matching a predicate, depth first
func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}
