package worker

import (
	"context"
	"sort"

	"github.com/ppiankov/tabclaim/internal/model"
)

// Processor extracts the claims of one document
type Processor interface {
	ProcessDocument(ctx context.Context, doc model.Document) model.DocumentResult
}

// DocumentJob runs one document through a Processor
type DocumentJob struct {
	Document  model.Document
	Processor Processor
}

// Execute executes the document job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	return &DocumentOutcome{Result: j.Processor.ProcessDocument(ctx, j.Document)}
}

// DocumentOutcome wraps a document result for the pool
type DocumentOutcome struct {
	Result model.DocumentResult
}

// GetError returns the document-level failure, if any
func (r *DocumentOutcome) GetError() error {
	if r.Result.Error == "" {
		return nil
	}
	return documentError(r.Result.Error)
}

type documentError string

func (e documentError) Error() string { return string(e) }

// BatchProcessor processes documents concurrently. Documents are independent:
// each gets its own position counter and output files.
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessDocuments runs every document and returns results sorted by document ID
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docs []model.Document) []model.DocumentResult {
	if len(docs) == 0 {
		return []model.DocumentResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for _, doc := range docs {
			if !pool.Submit(&DocumentJob{Document: doc, Processor: b.processor}) {
				break
			}
		}
		pool.Close()
	}()

	results := make([]model.DocumentResult, 0, len(docs))
	for result := range pool.Results() {
		results = append(results, result.(*DocumentOutcome).Result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DocumentID < results[j].DocumentID
	})

	return results
}
