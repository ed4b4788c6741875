package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tabclaim/internal/claimtext"
	"github.com/ppiankov/tabclaim/internal/logging"
	"github.com/ppiankov/tabclaim/internal/model"
	"github.com/ppiankov/tabclaim/internal/source"
	"github.com/ppiankov/tabclaim/internal/store"
)

const (
	flatTable = `<table>
		<tr><th>Dataset</th><th>Model</th><th>Accuracy</th></tr>
		<tr><td>MNIST</td><td>CNN</td><td>98.2</td></tr>
	</table>`
	hierarchicalTable = `<table>
		<tr><th colspan="2">Noise</th></tr>
		<tr><th>Metric</th><th>Low</th><th>High</th></tr>
		<tr><td>F1</td><td>0.8</td><td>0.6</td></tr>
	</table>`
)

func entry(key, table string) model.TableEntry {
	return model.TableEntry{Key: key, Table: table, HasTable: true}
}

func readArtifact(t *testing.T, dir, name string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	texts, err := claimtext.Decode(data)
	require.NoError(t, err)
	return texts
}

func TestProcessDocument_EndToEnd(t *testing.T) {
	out := t.TempDir()
	mapping := model.Mapping{"paper_table_1": model.LayoutFlat, "paper_table_3": model.LayoutHierarchical}
	doc := model.Document{ID: "paper", Tables: []model.TableEntry{
		entry("table_1", flatTable),
		entry("table_3", hierarchicalTable),
	}}

	res := NewEngine(mapping, out).ProcessDocument(context.Background(), doc)
	require.Empty(t, res.Error)
	require.Len(t, res.Tables, 2)

	assert.Equal(t, []string{"|{|Dataset, MNIST|,|Model, CNN|}, Accuracy, 98.2|"}, readArtifact(t, out, "paper_1_claims.json"))
	assert.Equal(t, []string{"|{|Noise, Low|}, F1, 0.8|", "|{|Noise, High|}, F1, 0.6|"}, readArtifact(t, out, "paper_2_claims.json"))

	data, err := os.ReadFile(filepath.Join(out, "paper_1_claims.json"))
	require.NoError(t, err)
	assert.Equal(t, "[\n    {\n        \"Claim 0\": \"|{|Dataset, MNIST|,|Model, CNN|}, Accuracy, 98.2|\"\n    }\n]", string(data))
}

func TestProcessDocument_PositionsCountOnlySuccesses(t *testing.T) {
	out := t.TempDir()
	mapping := model.Mapping{
		"d_a": model.LayoutFlat,
		"d_b": model.LayoutUnknown,
		"d_c": model.LayoutHierarchical, // fails: too few rows
		"d_e": model.LayoutFlat,
		"d_f": model.LayoutKeyed, // fails: no table payload
	}
	doc := model.Document{ID: "d", Tables: []model.TableEntry{
		entry("a", flatTable),
		entry("b", flatTable),
		entry("c", `<table><tr><th>x</th></tr></table>`),
		entry("d", flatTable), // not in mapping
		entry("e", flatTable),
		{Key: "f", Caption: "c", HasCaption: true},
	}}

	res := NewEngine(mapping, out).ProcessDocument(context.Background(), doc)

	statuses := make([]model.TableStatus, len(res.Tables))
	for i, tr := range res.Tables {
		statuses[i] = tr.Status
	}
	assert.Equal(t, []model.TableStatus{
		model.TableProcessed, model.TableSkipped, model.TableFailed,
		model.TableSkipped, model.TableProcessed, model.TableFailed,
	}, statuses)

	assert.Equal(t, 1, res.Tables[0].Position)
	assert.Equal(t, 2, res.Tables[4].Position)
	assert.Equal(t, "d_2_claims.json", res.Tables[4].Artifact)

	files, err := filepath.Glob(filepath.Join(out, "*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestProcessDocument_ZeroClaimTableStillWritesArtifact(t *testing.T) {
	out := t.TempDir()
	doc := model.Document{ID: "d", Tables: []model.TableEntry{
		entry("t", `<table><tr><th>Model</th><th>Accuracy</th></tr></table>`),
	}}

	res := NewEngine(model.Mapping{"d_t": model.LayoutFlat}, out).ProcessDocument(context.Background(), doc)
	require.Equal(t, model.TableProcessed, res.Tables[0].Status)

	data, err := os.ReadFile(filepath.Join(out, "d_1_claims.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestProcessDocument_NoTableInMarkup(t *testing.T) {
	out := t.TempDir()
	doc := model.Document{ID: "d", Tables: []model.TableEntry{
		entry("t1", `<p>figure only</p>`),
		entry("t2", flatTable),
	}}
	mapping := model.Mapping{"d_t1": model.LayoutFlat, "d_t2": model.LayoutFlat}

	res := NewEngine(mapping, out).ProcessDocument(context.Background(), doc)
	assert.Equal(t, model.TableFailed, res.Tables[0].Status)
	assert.Contains(t, res.Tables[0].Reason, "no table")
	assert.Equal(t, 1, res.Tables[1].Position)
}

var _ Recorder = (*store.Store)(nil)

// memRecorder is an in-memory Recorder
type memRecorder struct {
	mu       sync.Mutex
	begun    []string
	tables   map[string]int
	finished *model.RunReport
}

func (m *memRecorder) BeginRun(_ context.Context, runID string, _ time.Time, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.begun = append(m.begun, runID)
	return nil
}

func (m *memRecorder) RecordTable(_ context.Context, _, documentID string, _ model.TableResult, claims []model.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables == nil {
		m.tables = make(map[string]int)
	}
	m.tables[documentID] += len(claims)
	return nil
}

func (m *memRecorder) FinishRun(_ context.Context, report *model.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = report
	return nil
}

func corpus() ([]model.Document, model.Mapping) {
	mapping := model.Mapping{}
	var docs []model.Document
	for _, id := range []string{"p3", "p1", "p2"} {
		docs = append(docs, model.Document{ID: id, Tables: []model.TableEntry{
			entry("table_1", flatTable),
			entry("table_2", hierarchicalTable),
		}})
		mapping[model.MappingKey(id, "table_1")] = model.LayoutFlat
		mapping[model.MappingKey(id, "table_2")] = model.LayoutHierarchical
	}
	return docs, mapping
}

func TestRun_ReportSortedAndTotals(t *testing.T) {
	out := filepath.Join(t.TempDir(), "JSON_CLAIMS")
	docs, mapping := corpus()
	rec := &memRecorder{}

	report, err := NewEngine(mapping, out, WithWorkers(3), WithRecorder(rec)).Run(context.Background(), docs)
	require.NoError(t, err)

	require.Len(t, report.Documents, 3)
	assert.Equal(t, "p1", report.Documents[0].DocumentID)
	assert.Equal(t, "p3", report.Documents[2].DocumentID)
	assert.Equal(t, model.Totals{Documents: 3, Processed: 6, Claims: 9}, report.Totals)
	assert.NotEmpty(t, report.RunID)

	assert.Equal(t, []string{report.RunID}, rec.begun)
	assert.Equal(t, 3, rec.tables["p2"])
	assert.Same(t, report, rec.finished)
}

func TestWarnDuplicateIDs_AcrossSourcesSaysIndexIncomplete(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(&buf, "warn", "text")
	t.Cleanup(func() { logging.Init(os.Stderr, "info", "text") })

	docs := []model.Document{
		{ID: "p1", Origin: "corpus/p1.json", Tables: []model.TableEntry{entry("table_1", flatTable)}},
		{ID: "p2", Origin: "corpus/p2.json", Tables: []model.TableEntry{entry("table_1", flatTable)}},
		{ID: "p1", Origin: "https://example.org/p1.json", Tables: []model.TableEntry{entry("table_1", flatTable)}},
	}
	assert.Equal(t, []string{"p1"}, warnDuplicateIDs(docs))

	out := buf.String()
	assert.Contains(t, out, "claim index will be incomplete")
	assert.Contains(t, out, "https://example.org/p1.json")
	assert.Equal(t, 1, strings.Count(out, "duplicate document ID"))
}

func TestRun_IdempotentWithReset(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	docs, mapping := corpus()
	engine := NewEngine(mapping, out, WithWorkers(2))

	snapshot := func() map[string]string {
		files, err := filepath.Glob(filepath.Join(out, "*_claims.json"))
		require.NoError(t, err)
		got := make(map[string]string, len(files))
		for _, f := range files {
			data, err := os.ReadFile(f)
			require.NoError(t, err)
			got[filepath.Base(f)] = string(data)
		}
		return got
	}

	require.NoError(t, ResetOutput(out))
	_, err := engine.Run(context.Background(), docs)
	require.NoError(t, err)
	first := snapshot()

	// A stale artifact from an earlier corpus must not survive the reset
	require.NoError(t, os.WriteFile(filepath.Join(out, "stale_9_claims.json"), []byte("[]"), 0644))

	require.NoError(t, ResetOutput(out))
	_, err = engine.Run(context.Background(), docs)
	require.NoError(t, err)
	second := snapshot()

	assert.Len(t, first, 6)
	assert.Equal(t, first, second)
}

func TestRunBatch_IncludesLoadFailures(t *testing.T) {
	out := t.TempDir()
	docs, mapping := corpus()
	batch := &source.Batch{
		Documents: docs,
		Failures:  []source.Failure{{DocumentID: "p0", Origin: "p0.json", Err: errors.New("unexpected EOF")}},
	}

	report, err := NewEngine(mapping, out).RunBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, report.Documents, 4)
	assert.Equal(t, "p0", report.Documents[0].DocumentID)
	assert.Equal(t, "unexpected EOF", report.Documents[0].Error)
	assert.Equal(t, 4, report.Totals.Documents)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs, mapping := corpus()
	_, err := NewEngine(mapping, t.TempDir()).Run(ctx, docs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResetOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), []byte("x"), 0644))

	require.NoError(t, ResetOutput(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	for _, bad := range []string{"", ".", "/"} {
		assert.Error(t, ResetOutput(bad), bad)
	}
}

func TestWriteReportAndSummary(t *testing.T) {
	out := t.TempDir()
	docs, mapping := corpus()
	report, err := NewEngine(mapping, out).Run(context.Background(), docs)
	require.NoError(t, err)

	path, err := WriteReport(report, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, ReportFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "`+report.RunID+`"`)
	assert.Contains(t, string(data), `"artifact": "p1_1_claims.json"`)

	var buf bytes.Buffer
	RenderSummary(&buf, report, true)
	text := buf.String()
	assert.Contains(t, text, "✓ p1 (2/2 tables, 3 claims)")
	assert.Contains(t, text, "p2_2_claims.json")
	assert.True(t, strings.Contains(text, "Claims:     9"), text)
}
