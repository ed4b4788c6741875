// Package extract turns classified result tables into claims.
//
// Each recognized layout has one Strategy. Strategies are stateless apart from
// their injected Namer and can be shared across goroutines; every call owns
// its snapshot, span map and claims.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/tabclaim/internal/markup"
	"github.com/ppiankov/tabclaim/internal/model"
)

// TableInput is one table handed to a strategy
type TableInput struct {
	DocumentID string
	model.TableEntry
}

// Result is the output of one strategy invocation
type Result struct {
	Claims    []model.Claim
	RowErrors []error // Rows skipped without failing the table
}

// Strategy extracts claims from one table layout
type Strategy interface {
	// Layout returns the layout this strategy handles
	Layout() model.LayoutType

	// Extract extracts the table's claims in emission order
	Extract(ctx context.Context, in TableInput) (*Result, error)
}

// Registry maps layouts to strategies
type Registry struct {
	strategies map[model.LayoutType]Strategy
}

// NewRegistry creates a registry with the three built-in strategies
func NewRegistry(namer Namer) *Registry {
	r := &Registry{strategies: make(map[model.LayoutType]Strategy)}
	r.Register(NewFlat())
	r.Register(NewKeyed(namer))
	r.Register(NewHierarchical())
	return r
}

// Register registers a strategy, replacing any previous one for its layout
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Layout()] = s
}

// For returns the strategy for layout
func (r *Registry) For(layout model.LayoutType) (Strategy, bool) {
	s, ok := r.strategies[layout]
	return s, ok
}

// readTable checks the payload and parses its markup
func readTable(in TableInput) (*markup.Snapshot, error) {
	if !in.HasTable {
		return nil, ErrMissingTable
	}
	snap, err := markup.Parse(in.Table)
	if err != nil {
		if errors.Is(err, markup.ErrNoTable) {
			return nil, ErrNoTableFound
		}
		return nil, fmt.Errorf("read table: %w", err)
	}
	return snap, nil
}
