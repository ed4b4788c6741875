package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/tabclaim/internal/model"
)

// mockProcessor implements Processor
type mockProcessor struct {
	failID string
	calls  int32
}

func (m *mockProcessor) ProcessDocument(_ context.Context, doc model.Document) model.DocumentResult {
	atomic.AddInt32(&m.calls, 1)
	time.Sleep(5 * time.Millisecond) // Simulate work
	res := model.DocumentResult{DocumentID: doc.ID}
	if doc.ID == m.failID {
		res.Error = "boom"
	}
	return res
}

func TestBatchProcessor_ProcessDocuments(t *testing.T) {
	proc := &mockProcessor{}
	batch := NewBatchProcessor(proc, 3)

	var docs []model.Document
	for i := 9; i >= 0; i-- {
		docs = append(docs, model.Document{ID: fmt.Sprintf("doc%d", i)})
	}

	results := batch.ProcessDocuments(context.Background(), docs)

	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	for i, res := range results {
		if want := fmt.Sprintf("doc%d", i); res.DocumentID != want {
			t.Errorf("result %d: expected %s, got %s", i, want, res.DocumentID)
		}
	}
	if atomic.LoadInt32(&proc.calls) != 10 {
		t.Errorf("expected 10 calls, got %d", proc.calls)
	}
}

func TestBatchProcessor_DocumentErrors(t *testing.T) {
	batch := NewBatchProcessor(&mockProcessor{failID: "b"}, 2)

	results := batch.ProcessDocuments(context.Background(), []model.Document{{ID: "a"}, {ID: "b"}})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != "" {
		t.Errorf("unexpected error for a: %s", results[0].Error)
	}
	if results[1].Error != "boom" {
		t.Errorf("expected error for b, got %q", results[1].Error)
	}

	outcome := &DocumentOutcome{Result: results[1]}
	if outcome.GetError() == nil || outcome.GetError().Error() != "boom" {
		t.Errorf("expected GetError to surface the document error")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	batch := NewBatchProcessor(&mockProcessor{}, 2)
	results := batch.ProcessDocuments(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := &mockProcessor{}
	batch := NewBatchProcessor(proc, 2)

	done := make(chan []model.DocumentResult)
	go func() {
		done <- batch.ProcessDocuments(ctx, []model.Document{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	}()

	select {
	case results := <-done:
		if len(results) > 3 {
			t.Errorf("unexpected result count %d", len(results))
		}
	case <-time.After(time.Second):
		t.Fatal("ProcessDocuments blocked on a cancelled context")
	}
}
