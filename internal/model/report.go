package model

import "time"

// RunReport summarizes one engine run over a set of documents
type RunReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	OutputDir  string           `json:"output_dir"`
	Documents  []DocumentResult `json:"documents"`
	Totals     Totals           `json:"totals"`
}

// Totals aggregates table outcomes across a run
type Totals struct {
	Documents int `json:"documents"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Claims    int `json:"claims"`
}

// DocumentResult records what happened to each table of one document
type DocumentResult struct {
	DocumentID string        `json:"document_id"`
	Origin     string        `json:"origin,omitempty"`
	Tables     []TableResult `json:"tables"`
	Error      string        `json:"error,omitempty"` // Document-level failure (e.g. unreadable source)
}

// TableResult records the outcome of one table
type TableResult struct {
	Key         string      `json:"key"`
	Layout      LayoutType  `json:"layout"`
	Status      TableStatus `json:"status"`
	Position    int         `json:"position,omitempty"` // Position among processed tables (1-based)
	Claims      int         `json:"claims"`
	SkippedRows int         `json:"skipped_rows,omitempty"`
	Artifact    string      `json:"artifact,omitempty"`
	Digest      string      `json:"digest,omitempty"` // BLAKE3 of the artifact bytes
	Reason      string      `json:"reason,omitempty"`
}

// TableStatus classifies a table outcome
type TableStatus string

const (
	TableProcessed TableStatus = "processed" // Strategy succeeded and an artifact was written
	TableSkipped   TableStatus = "skipped"   // No recognized layout
	TableFailed    TableStatus = "failed"    // Strategy or output error; siblings continue
)

// Summarize recomputes the run totals from the document results
func (r *RunReport) Summarize() {
	t := Totals{Documents: len(r.Documents)}
	for _, d := range r.Documents {
		for _, tbl := range d.Tables {
			switch tbl.Status {
			case TableProcessed:
				t.Processed++
				t.Claims += tbl.Claims
			case TableSkipped:
				t.Skipped++
			case TableFailed:
				t.Failed++
			}
		}
	}
	r.Totals = t
}
