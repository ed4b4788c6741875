package extract

import (
	"context"

	"github.com/ppiankov/tabclaim/internal/model"
)

// Flat extracts claims from single-header tables whose last column is the metric
type Flat struct{}

// NewFlat creates the layout-1 strategy
func NewFlat() *Flat {
	return &Flat{}
}

// Layout returns model.LayoutFlat
func (f *Flat) Layout() model.LayoutType {
	return model.LayoutFlat
}

// Extract emits one claim per data row with a non-empty last cell.
//
// Every header but the last names a specification dimension, paired with the
// row's cell at the same index when the row has one. Ragged rows are
// truncated rather than rejected; the row's last cell is always the outcome
// and is never also used as a specification value.
func (f *Flat) Extract(ctx context.Context, in TableInput) (*Result, error) {
	snap, err := readTable(in)
	if err != nil {
		return nil, err
	}

	result := &Result{Claims: make([]model.Claim, 0)}
	if snap.Len() < 2 {
		return result, nil
	}

	headers := snap.Row(0).Texts()
	if len(headers) == 0 {
		return result, nil
	}
	metric := headers[len(headers)-1]
	dims := headers[:len(headers)-1]

	for _, row := range snap.Rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		last, ok := row.Last()
		if !ok || last.Text == "" {
			continue
		}

		pairs := make([]model.Pair, 0, len(dims))
		for i, dim := range dims {
			// a short row still pairs its own last cell
			if i >= len(row) {
				break
			}
			pairs = append(pairs, model.Pair{Key: dim, Value: row[i].Text})
		}

		claim, err := model.NewClaim(model.LayoutFlat, metric, last.Text, pairs...)
		if err != nil {
			// repeated header names cannot form a specification
			result.RowErrors = append(result.RowErrors, err)
			continue
		}
		result.Claims = append(result.Claims, claim)
	}

	return result, nil
}
