package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/tabclaim/internal/cache"
	"github.com/ppiankov/tabclaim/internal/extract"
	"github.com/ppiankov/tabclaim/internal/worker"
)

var _ extract.Namer = (*Namer)(nil)

// MockProvider answers from a function and counts calls
type MockProvider struct {
	answer func(req CompletionRequest) (string, error)
	calls  int32
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	atomic.AddInt32(&m.calls, 1)
	text, err := m.answer(req)
	if err != nil {
		return nil, err
	}
	return &CompletionResponse{Text: text, Model: "mock-1"}, nil
}

func (m *MockProvider) IsAvailable(_ context.Context) bool {
	return true
}

func TestNamer_InferMetric(t *testing.T) {
	provider := &MockProvider{answer: func(req CompletionRequest) (string, error) {
		if req.System != SystemPrompt {
			t.Errorf("expected system prompt")
		}
		if !strings.Contains(req.Prompt, "Results on GLUE") {
			t.Errorf("expected caption in prompt, got %q", req.Prompt)
		}
		return "Accuracy.", nil
	}}

	name, ok := NewNamer(provider).InferMetric(context.Background(), "Results on GLUE")
	if !ok || name != "Accuracy" {
		t.Errorf("expected Accuracy, got %q %v", name, ok)
	}
}

func TestNamer_CachesAnswersAndMisses(t *testing.T) {
	provider := &MockProvider{answer: func(req CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, `"SST-2"`) {
			return "Dataset", nil
		}
		return "UNKNOWN", nil
	}}
	n := NewNamer(provider, WithCache(cache.NewMemoryCache(time.Minute, time.Minute), 0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		name, ok := n.InferSpecification(ctx, "Results", "SST-2")
		if !ok || name != "Dataset" {
			t.Fatalf("expected Dataset, got %q %v", name, ok)
		}
		if _, ok := n.InferSpecification(ctx, "Results", "Params"); ok {
			t.Fatal("expected miss for Params")
		}
	}

	if calls := atomic.LoadInt32(&provider.calls); calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", calls)
	}
}

func TestNamer_QueryKindsDoNotShareCacheEntries(t *testing.T) {
	provider := &MockProvider{answer: func(req CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, "What metric") {
			return "F1", nil
		}
		return "Task", nil
	}}
	n := NewNamer(provider, WithCache(cache.NewMemoryCache(time.Minute, time.Minute), 0))
	ctx := context.Background()

	metric, _ := n.InferMetric(ctx, "caption")
	spec, _ := n.InferSpecification(ctx, "caption", "")
	if metric != "F1" || spec != "Task" {
		t.Errorf("expected F1 and Task, got %q and %q", metric, spec)
	}
}

func TestNamer_ProviderErrorIsAMiss(t *testing.T) {
	provider := &MockProvider{answer: func(CompletionRequest) (string, error) {
		return "", errors.New("connection refused")
	}}
	n := NewNamer(provider, WithCache(cache.NewMemoryCache(time.Minute, time.Minute), 0))

	if _, ok := n.InferMetric(context.Background(), "caption"); ok {
		t.Error("expected miss on provider error")
	}
	// Failures are not cached
	n.InferMetric(context.Background(), "caption")
	if calls := atomic.LoadInt32(&provider.calls); calls != 2 {
		t.Errorf("expected retry after failure, got %d calls", calls)
	}
}

func TestNamer_LimiterCancellation(t *testing.T) {
	provider := &MockProvider{answer: func(CompletionRequest) (string, error) { return "BLEU", nil }}
	limiter := worker.NewLimiter(0.001, 1)
	n := NewNamer(provider, WithLimiter(limiter))

	if _, ok := n.InferMetric(context.Background(), "first"); !ok {
		t.Fatal("expected first query to pass")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := n.InferMetric(ctx, "second"); ok {
		t.Error("expected throttled query to miss")
	}
	if calls := atomic.LoadInt32(&provider.calls); calls != 1 {
		t.Errorf("expected 1 provider call, got %d", calls)
	}
}

func TestNamer_NilProvider(t *testing.T) {
	if _, ok := NewNamer(nil).InferMetric(context.Background(), "caption"); ok {
		t.Error("expected miss without provider")
	}
}
