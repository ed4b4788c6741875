package extract

import (
	"context"
	"regexp"
	"strings"
)

// Namer infers names a table does not carry from its caption. A miss is
// reported with ok=false; implementations never fail the table.
type Namer interface {
	// InferMetric guesses the measured quantity a caption describes
	InferMetric(ctx context.Context, caption string) (name string, ok bool)

	// InferSpecification guesses the dimension a column header is a value of
	InferSpecification(ctx context.Context, caption, header string) (name string, ok bool)
}

// NoopNamer always misses, leaving placeholders in place
type NoopNamer struct{}

// InferMetric always misses
func (NoopNamer) InferMetric(context.Context, string) (string, bool) { return "", false }

// InferSpecification always misses
func (NoopNamer) InferSpecification(context.Context, string, string) (string, bool) {
	return "", false
}

// ChainNamer asks each namer in turn; the first hit wins
type ChainNamer []Namer

// InferMetric returns the first non-empty metric name
func (c ChainNamer) InferMetric(ctx context.Context, caption string) (string, bool) {
	for _, n := range c {
		if name, ok := n.InferMetric(ctx, caption); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// InferSpecification returns the first non-empty dimension name
func (c ChainNamer) InferSpecification(ctx context.Context, caption, header string) (string, bool) {
	for _, n := range c {
		if name, ok := n.InferSpecification(ctx, caption, header); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// term is a canonical name and the phrases that signal it
type term struct {
	name     string
	patterns []*regexp.Regexp
}

func newTerm(name string, aliases ...string) term {
	t := term{name: name}
	for _, alias := range aliases {
		t.patterns = append(t.patterns, regexp.MustCompile(`(?i)(^|[^\pL\pN])`+regexp.QuoteMeta(alias)+`($|[^\pL\pN])`))
	}
	return t
}

// earliest returns the position of the first alias match in text, -1 if none
func (t term) earliest(text string) int {
	best := -1
	for _, p := range t.patterns {
		loc := p.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best < 0 || loc[0] < best {
			best = loc[0]
		}
	}
	return best
}

// KeywordNamer matches captions and headers against a fixed vocabulary of
// result-table metrics and experimental dimensions.
type KeywordNamer struct {
	metrics    []term
	dimensions []term
}

// NewKeywordNamer creates a namer with the built-in vocabulary
func NewKeywordNamer() *KeywordNamer {
	return &KeywordNamer{
		metrics: []term{
			newTerm("Accuracy", "accuracy", "acc"),
			newTerm("F1", "f1", "f1-score", "f1 score", "f-score", "f-measure"),
			newTerm("Precision", "precision"),
			newTerm("Recall", "recall"),
			newTerm("BLEU", "bleu"),
			newTerm("ROUGE", "rouge", "rouge-l", "rouge-1", "rouge-2"),
			newTerm("Perplexity", "perplexity", "ppl"),
			newTerm("AUC", "auc", "roc-auc", "auroc"),
			newTerm("mAP", "map", "mean average precision"),
			newTerm("Error rate", "error rate", "error"),
			newTerm("WER", "wer", "word error rate"),
			newTerm("MSE", "mse", "mean squared error"),
			newTerm("RMSE", "rmse"),
			newTerm("MAE", "mae", "mean absolute error"),
			newTerm("Exact match", "exact match", "em"),
			newTerm("Runtime", "runtime", "inference time", "latency"),
		},
		dimensions: []term{
			newTerm("Dataset", "dataset", "datasets", "benchmark", "benchmarks", "corpus", "corpora"),
			newTerm("Language", "language", "languages"),
			newTerm("Task", "task", "tasks"),
			newTerm("Noise level", "noise", "noise level", "noise levels"),
			newTerm("Model size", "model size", "model sizes", "parameters"),
			newTerm("Epochs", "epoch", "epochs"),
			newTerm("Learning rate", "learning rate", "learning rates"),
			newTerm("Batch size", "batch size", "batch sizes"),
			newTerm("Split", "split", "splits", "test set", "validation set"),
			newTerm("Shots", "shot", "shots", "few-shot", "zero-shot"),
			newTerm("Setting", "setting", "settings"),
		},
	}
}

// InferMetric returns the metric whose alias appears earliest in the caption
func (k *KeywordNamer) InferMetric(_ context.Context, caption string) (string, bool) {
	return pickEarliest(k.metrics, caption)
}

// InferSpecification prefers a dimension named in the header itself, then
// the dimension mentioned earliest in the caption.
func (k *KeywordNamer) InferSpecification(_ context.Context, caption, header string) (string, bool) {
	if name, ok := pickEarliest(k.dimensions, header); ok {
		return name, true
	}
	return pickEarliest(k.dimensions, caption)
}

func pickEarliest(terms []term, text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	best, bestPos := "", -1
	for _, t := range terms {
		pos := t.earliest(text)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos {
			best, bestPos = t.name, pos
		}
	}
	return best, bestPos >= 0
}
