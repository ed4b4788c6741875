package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ppiankov/tabclaim/internal/logging"
	"github.com/ppiankov/tabclaim/internal/model"
)

// DirSource reads every *.json file of a directory as one document
type DirSource struct {
	Dir string
}

// NewDirSource creates a directory source
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Load decodes the documents in file name order
func (s *DirSource) Load(ctx context.Context) (*Batch, error) {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input directory: %s is not a directory", s.Dir)
	}

	paths, err := filepath.Glob(filepath.Join(s.Dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	sort.Strings(paths)

	batch := &Batch{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		id := DocumentID(p)
		doc, err := s.readFile(id, p)
		if err != nil {
			logging.Warn("document not loaded", "document", id, "path", p, "error", err)
			batch.Failures = append(batch.Failures, Failure{DocumentID: id, Origin: p, Err: err})
			continue
		}
		batch.Documents = append(batch.Documents, doc)
	}

	logging.Debug("documents loaded", "dir", s.Dir, "documents", len(batch.Documents), "failures", len(batch.Failures))
	return batch, nil
}

func (s *DirSource) readFile(id, path string) (model.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Document{}, err
	}
	defer func() { _ = f.Close() }()

	return DecodeDocument(id, path, f)
}
