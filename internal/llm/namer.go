package llm

import (
	"context"
	"time"

	"github.com/ppiankov/tabclaim/internal/cache"
	"github.com/ppiankov/tabclaim/internal/logging"
	"github.com/ppiankov/tabclaim/internal/worker"
)

const (
	kindMetric        = "metric"
	kindSpecification = "specification"
)

// Namer answers caption naming questions with a language model. Answers,
// including "don't know", are cached so a rerun over the same corpus does
// not repeat queries and yields the same names. Provider failures are
// logged and reported as a miss, never as an extraction error.
type Namer struct {
	provider Provider
	cache    cache.Cache
	ttl      time.Duration
	limiter  *worker.Limiter
}

// NamerOption configures a Namer
type NamerOption func(*Namer)

// WithCache memoizes answers in c for ttl (0 uses the cache default)
func WithCache(c cache.Cache, ttl time.Duration) NamerOption {
	return func(n *Namer) {
		n.cache = c
		n.ttl = ttl
	}
}

// WithLimiter throttles provider calls, keyed by provider name
func WithLimiter(l *worker.Limiter) NamerOption {
	return func(n *Namer) {
		n.limiter = l
	}
}

// NewNamer wraps a provider
func NewNamer(provider Provider, opts ...NamerOption) *Namer {
	n := &Namer{provider: provider}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// InferMetric names the quantity a table reports
func (n *Namer) InferMetric(ctx context.Context, caption string) (string, bool) {
	return n.ask(ctx, BuildMetricPrompt(caption), kindMetric, caption)
}

// InferSpecification names the dimension a column header belongs to
func (n *Namer) InferSpecification(ctx context.Context, caption, header string) (string, bool) {
	return n.ask(ctx, BuildSpecificationPrompt(caption, header), kindSpecification, caption, header)
}

func (n *Namer) ask(ctx context.Context, prompt string, kind string, subject ...string) (string, bool) {
	if n.provider == nil {
		return "", false
	}

	key := cache.Key(append([]string{n.provider.Name(), kind}, subject...)...)
	if n.cache != nil {
		if val, ok := n.cache.Get(key); ok {
			return string(val), len(val) > 0
		}
	}

	if n.limiter != nil {
		if err := n.limiter.Wait(ctx, n.provider.Name()); err != nil {
			logging.Warn("naming query not sent", "kind", kind, "error", err)
			return "", false
		}
	}

	resp, err := n.provider.Complete(ctx, CompletionRequest{
		System: SystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		logging.Warn("naming query failed", "provider", n.provider.Name(), "kind", kind, "error", err)
		return "", false
	}

	name, ok := CleanAnswer(resp.Text)
	logging.Debug("naming query answered", "provider", n.provider.Name(), "kind", kind, "answer", name, "tokens", resp.TokensUsed)

	if n.cache != nil {
		if err := n.cache.Set(key, []byte(name), n.ttl); err != nil {
			logging.Warn("cache write failed", "kind", kind, "error", err)
		}
	}

	return name, ok
}
