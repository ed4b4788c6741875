package extract

import (
	"context"
	"fmt"

	"github.com/ppiankov/tabclaim/internal/logging"
	"github.com/ppiankov/tabclaim/internal/model"
)

const minHierarchicalRows = 3

// Hierarchical extracts claims from tables with a grouping header row over a
// sub-value header row. Column 0 of each data row names the metric.
type Hierarchical struct{}

// NewHierarchical creates the layout-3 strategy
func NewHierarchical() *Hierarchical {
	return &Hierarchical{}
}

// Layout returns model.LayoutHierarchical
func (h *Hierarchical) Layout() model.LayoutType {
	return model.LayoutHierarchical
}

// Extract emits one single-pair claim per non-empty data cell. The pair's key
// is the grouping label covering the column and its value the sub-header.
func (h *Hierarchical) Extract(ctx context.Context, in TableInput) (*Result, error) {
	snap, err := readTable(in)
	if err != nil {
		return nil, err
	}

	if snap.Len() < minHierarchicalRows {
		return nil, &InsufficientRowsError{Got: snap.Len(), Want: minHierarchicalRows}
	}

	spans, err := ResolveSpans(snap.Row(0))
	if err != nil {
		return nil, fmt.Errorf("resolve grouping row: %w", err)
	}

	subHeaders := snap.Row(1).Texts()
	log := logging.With("document", in.DocumentID, "table", in.Key, "layout", model.LayoutHierarchical.String())
	result := &Result{Claims: make([]model.Claim, 0)}

	for i, row := range snap.Rows[2:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(row) != len(subHeaders) {
			rowErr := &RowWidthMismatchError{Row: i + minHierarchicalRows, Got: len(row), Want: len(subHeaders)}
			log.Warn("skipping row", "error", rowErr)
			result.RowErrors = append(result.RowErrors, rowErr)
			continue
		}

		metric := row[0].Text
		for col := 1; col < len(row); col++ {
			outcome := row[col].Text
			if outcome == "" {
				continue
			}

			label, _ := spans.Lookup(col)
			claim, err := model.NewClaim(model.LayoutHierarchical, metric, outcome,
				model.Pair{Key: label, Value: subHeaders[col]},
			)
			if err != nil {
				return nil, err
			}
			result.Claims = append(result.Claims, claim)
		}
	}

	return result, nil
}
