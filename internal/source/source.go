// Package source loads documents and the classification mapping.
package source

import (
	"context"
	"path"
	"strings"

	"github.com/ppiankov/tabclaim/internal/model"
)

// Source yields the documents of a run
type Source interface {
	Load(ctx context.Context) (*Batch, error)
}

// Batch is what a source produced: decoded documents plus the ones that
// could not be read. A failed document never aborts its siblings.
type Batch struct {
	Documents []model.Document
	Failures  []Failure
}

// Failure records a document that could not be loaded
type Failure struct {
	DocumentID string
	Origin     string
	Err        error
}

// Merge appends other's documents and failures
func (b *Batch) Merge(other *Batch) {
	if other == nil {
		return
	}
	b.Documents = append(b.Documents, other.Documents...)
	b.Failures = append(b.Failures, other.Failures...)
}

// DocumentID derives a document ID from a file name or URL path:
// the last path segment without its .json extension
func DocumentID(name string) string {
	name = strings.TrimRight(name, "/")
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(base, ".json")
}
