package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/tabclaim/internal/model"
)

// ReportFileName is the run report written next to the artifacts
const ReportFileName = "run_report.json"

// WriteReport writes the run report as indented JSON into dir
func WriteReport(report *model.RunReport, dir string) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(dir, ReportFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// RenderSummary prints a human-readable summary of the run.
// With verbose set, every table outcome is listed.
func RenderSummary(w io.Writer, report *model.RunReport, verbose bool) {
	for _, doc := range report.Documents {
		if doc.Error != "" {
			fmt.Fprintf(w, "✗ %s: %s\n", doc.DocumentID, doc.Error)
			continue
		}

		processed, claims := 0, 0
		for _, t := range doc.Tables {
			if t.Status == model.TableProcessed {
				processed++
				claims += t.Claims
			}
		}
		fmt.Fprintf(w, "✓ %s (%d/%d tables, %d claims)\n", doc.DocumentID, processed, len(doc.Tables), claims)

		if !verbose {
			continue
		}
		for _, t := range doc.Tables {
			switch t.Status {
			case model.TableProcessed:
				fmt.Fprintf(w, "    %-12s %-12s → %s (%d claims", t.Key, t.Layout, t.Artifact, t.Claims)
				if t.SkippedRows > 0 {
					fmt.Fprintf(w, ", %d rows skipped", t.SkippedRows)
				}
				fmt.Fprintf(w, ")\n")
			default:
				fmt.Fprintf(w, "    %-12s %-12s %s: %s\n", t.Key, t.Layout, t.Status, t.Reason)
			}
		}
	}

	t := report.Totals
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Extraction Complete\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Documents:  %d\n", t.Documents)
	fmt.Fprintf(w, "  Processed:  %d tables\n", t.Processed)
	fmt.Fprintf(w, "  Skipped:    %d tables\n", t.Skipped)
	fmt.Fprintf(w, "  Failed:     %d tables\n", t.Failed)
	fmt.Fprintf(w, "  Claims:     %d\n", t.Claims)
	fmt.Fprintf(w, "  Output:     %s\n", report.OutputDir)
	fmt.Fprintf(w, "  Duration:   %v\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
}
