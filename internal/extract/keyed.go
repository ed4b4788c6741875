package extract

import (
	"context"
	"fmt"

	"github.com/ppiankov/tabclaim/internal/logging"
	"github.com/ppiankov/tabclaim/internal/model"
)

const (
	// PlaceholderMetric is used when no metric name can be inferred from the caption
	PlaceholderMetric = "METRIC_NAME"
	// PlaceholderSpec is used when no dimension name can be inferred for a column
	PlaceholderSpec = "SPEC_NAME"
)

// Keyed extracts claims from entity-by-condition tables. Names that the
// table itself does not carry (the metric, and the dimension each condition
// column belongs to) are inferred from the caption.
type Keyed struct {
	namer Namer
}

// NewKeyed creates the layout-2 strategy. A nil namer always misses.
func NewKeyed(namer Namer) *Keyed {
	if namer == nil {
		namer = NoopNamer{}
	}
	return &Keyed{namer: namer}
}

// Layout returns model.LayoutKeyed
func (k *Keyed) Layout() model.LayoutType {
	return model.LayoutKeyed
}

// Extract emits one claim per non-empty data cell right of the entity column
func (k *Keyed) Extract(ctx context.Context, in TableInput) (*Result, error) {
	if !in.HasTable {
		return nil, ErrMissingTable
	}
	if !in.HasCaption {
		return nil, ErrMissingCaption
	}

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

	metric, ok := k.namer.InferMetric(ctx, in.Caption)
	if !ok || metric == "" {
		metric = PlaceholderMetric
	}

	log := logging.With("document", in.DocumentID, "table", in.Key, "layout", model.LayoutKeyed.String())
	specNames := make(map[int]string)

	for r, row := range snap.Rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}

		entity := row[0].Text
		for col := 1; col < len(row); col++ {
			value := row[col].Text
			if value == "" {
				continue
			}
			if col >= len(headers) {
				rowErr := fmt.Errorf("row %d cell %d has no header", r+2, col)
				log.Warn("skipping cell", "error", rowErr)
				result.RowErrors = append(result.RowErrors, rowErr)
				continue
			}

			specName, cached := specNames[col]
			if !cached {
				name, ok := k.namer.InferSpecification(ctx, in.Caption, headers[col])
				// a name equal to the entity dimension would repeat its key
				if !ok || name == "" || name == headers[0] {
					name = PlaceholderSpec
				}
				specName = name
				specNames[col] = specName
			}

			claim, err := model.NewClaim(model.LayoutKeyed, metric, value,
				model.Pair{Key: headers[0], Value: entity},
				model.Pair{Key: specName, Value: headers[col]},
			)
			if err != nil {
				log.Warn("skipping cell", "row", r+2, "column", col, "error", err)
				result.RowErrors = append(result.RowErrors, err)
				continue
			}
			result.Claims = append(result.Claims, claim)
		}
	}

	return result, nil
}
