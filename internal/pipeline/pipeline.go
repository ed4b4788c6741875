// Package pipeline dispatches classified tables to their extraction strategy
// and persists one claims artifact per successfully processed table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/tabclaim/internal/claimtext"
	"github.com/ppiankov/tabclaim/internal/extract"
	"github.com/ppiankov/tabclaim/internal/logging"
	"github.com/ppiankov/tabclaim/internal/model"
	"github.com/ppiankov/tabclaim/internal/source"
	"github.com/ppiankov/tabclaim/internal/worker"
)

// Recorder receives every processed table of a run (see store.Store)
type Recorder interface {
	BeginRun(ctx context.Context, runID string, startedAt time.Time, outputDir string) error
	RecordTable(ctx context.Context, runID, documentID string, table model.TableResult, claims []model.Claim) error
	FinishRun(ctx context.Context, report *model.RunReport) error
}

// Engine runs documents through the layout strategies
type Engine struct {
	registry  *extract.Registry
	mapping   model.Mapping
	outputDir string
	workers   int
	recorder  Recorder
}

// Option configures an Engine
type Option func(*Engine)

// WithRegistry replaces the default strategy registry
func WithRegistry(r *extract.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithWorkers sets how many documents are processed concurrently
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithRecorder indexes processed tables
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine creates an engine writing artifacts into outputDir
func NewEngine(mapping model.Mapping, outputDir string, opts ...Option) *Engine {
	e := &Engine{
		mapping:   mapping,
		outputDir: outputDir,
		workers:   1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = extract.NewRegistry(nil)
	}
	return e
}

// ProcessDocument extracts every classified table of doc, in source order.
// Only tables whose strategy succeeds take a position; skipped and failed
// tables are reported but leave no artifact.
func (e *Engine) ProcessDocument(ctx context.Context, doc model.Document) model.DocumentResult {
	return e.process(ctx, "", doc)
}

func (e *Engine) process(ctx context.Context, runID string, doc model.Document) model.DocumentResult {
	res := model.DocumentResult{
		DocumentID: doc.ID,
		Origin:     doc.Origin,
		Tables:     make([]model.TableResult, 0, len(doc.Tables)),
	}
	log := logging.With("document", doc.ID)

	position := 0
	for _, entry := range doc.Tables {
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			break
		}

		layout := e.mapping.Lookup(doc.ID, entry.Key)
		tr := model.TableResult{Key: entry.Key, Layout: layout}

		strategy, ok := e.registry.For(layout)
		if !ok {
			tr.Status = model.TableSkipped
			tr.Reason = "no recognized layout"
			log.Info("table skipped", "table", entry.Key, "reason", tr.Reason)
			res.Tables = append(res.Tables, tr)
			continue
		}

		result, err := strategy.Extract(ctx, extract.TableInput{DocumentID: doc.ID, TableEntry: entry})
		if err != nil {
			tr.Status = model.TableFailed
			tr.Reason = err.Error()
			log.Warn("table not processed", "table", entry.Key, "layout", layout.String(), "error", err)
			res.Tables = append(res.Tables, tr)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				res.Error = err.Error()
				break
			}
			continue
		}

		art, err := claimtext.WriteArtifact(e.outputDir, doc.ID, position+1, result.Claims)
		if err != nil {
			tr.Status = model.TableFailed
			tr.Reason = err.Error()
			log.Error("artifact not written", "table", entry.Key, "error", err)
			res.Tables = append(res.Tables, tr)
			continue
		}
		position++

		tr.Status = model.TableProcessed
		tr.Position = position
		tr.Claims = art.Claims
		tr.SkippedRows = len(result.RowErrors)
		tr.Artifact = art.Name
		tr.Digest = art.Digest
		res.Tables = append(res.Tables, tr)

		log.Debug("table processed", "table", entry.Key, "layout", layout.String(), "position", position, "claims", art.Claims)

		if e.recorder != nil && runID != "" {
			if err := e.recorder.RecordTable(ctx, runID, doc.ID, tr, result.Claims); err != nil {
				log.Warn("claims not indexed", "table", entry.Key, "error", err)
			}
		}
	}

	return res
}

// runProcessor binds document processing to one run
type runProcessor struct {
	engine *Engine
	runID  string
}

func (p *runProcessor) ProcessDocument(ctx context.Context, doc model.Document) model.DocumentResult {
	return p.engine.process(ctx, p.runID, doc)
}

// Run processes docs concurrently and returns a report sorted by document ID.
// The output directory is created if missing but never cleared; see ResetOutput.
func (e *Engine) Run(ctx context.Context, docs []model.Document) (*model.RunReport, error) {
	return e.run(ctx, docs, nil)
}

// RunBatch is Run for a source batch; unreadable documents are reported as
// document-level failures
func (e *Engine) RunBatch(ctx context.Context, batch *source.Batch) (*model.RunReport, error) {
	return e.run(ctx, batch.Documents, batch.Failures)
}

func (e *Engine) run(ctx context.Context, docs []model.Document, failures []source.Failure) (*model.RunReport, error) {
	report := &model.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		OutputDir: e.outputDir,
	}

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	if e.recorder != nil {
		if err := e.recorder.BeginRun(ctx, report.RunID, report.StartedAt, e.outputDir); err != nil {
			return nil, fmt.Errorf("index run: %w", err)
		}
	}

	warnDuplicateIDs(docs)

	processor := &runProcessor{engine: e, runID: report.RunID}
	report.Documents = worker.NewBatchProcessor(processor, e.workers).ProcessDocuments(ctx, docs)

	for _, f := range failures {
		report.Documents = append(report.Documents, model.DocumentResult{
			DocumentID: f.DocumentID,
			Origin:     f.Origin,
			Tables:     []model.TableResult{},
			Error:      f.Err.Error(),
		})
	}
	sort.SliceStable(report.Documents, func(i, j int) bool {
		return report.Documents[i].DocumentID < report.Documents[j].DocumentID
	})

	report.FinishedAt = time.Now().UTC()
	report.Summarize()

	if e.recorder != nil {
		if err := e.recorder.FinishRun(context.WithoutCancel(ctx), report); err != nil {
			logging.Warn("run totals not indexed", "run", report.RunID, "error", err)
		}
	}

	logging.Info("run finished",
		"run", report.RunID,
		"documents", report.Totals.Documents,
		"processed", report.Totals.Processed,
		"skipped", report.Totals.Skipped,
		"failed", report.Totals.Failed,
		"claims", report.Totals.Claims,
	)

	return report, ctx.Err()
}

// warnDuplicateIDs flags documents that share an ID. They write to the same
// artifact names and index rows, so only the last one survives.
func warnDuplicateIDs(docs []model.Document) []string {
	var dupes []string
	seen := make(map[string]string, len(docs))
	for _, d := range docs {
		if first, ok := seen[d.ID]; ok {
			logging.Warn("duplicate document ID: artifacts are overwritten and the claim index will be incomplete",
				"document", d.ID, "origin", d.Origin, "first_origin", first)
			dupes = append(dupes, d.ID)
			continue
		}
		seen[d.ID] = d.Origin
	}
	return dupes
}

// ResetOutput deletes and recreates the output directory. Callers run it
// before Run when a fresh output tree is wanted.
func ResetOutput(dir string) error {
	clean := filepath.Clean(dir)
	if dir == "" || clean == "." || clean == string(filepath.Separator) {
		return fmt.Errorf("refusing to reset output dir %q", dir)
	}
	if home, err := os.UserHomeDir(); err == nil && clean == filepath.Clean(home) {
		return fmt.Errorf("refusing to reset output dir %q", dir)
	}

	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("remove output dir: %w", err)
	}
	if err := os.MkdirAll(clean, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
