package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/tabclaim/internal/logging"
)

// OllamaProvider answers naming questions with a local Ollama model
type OllamaProvider struct {
	client *jsonClient
	config Config
}

type ollamaGenerate struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerated struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// NewOllamaProvider creates a provider for the daemon at config.BaseURL
// (default http://localhost:11434)
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	// Local models can be slow to load
	client := newJSONClient(config, "http://localhost:11434", 60*time.Second)
	client.describe = func(body []byte) string {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil {
			return e.Error
		}
		return ""
	}
	return &OllamaProvider{client: client, config: config}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable reports whether the daemon answers its model listing
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	if err := p.client.do(ctx, http.MethodGet, "/api/tags", nil, nil); err != nil {
		logging.Warn("Ollama availability check failed", "base_url", p.client.baseURL, "error", err)
		return false
	}
	return true
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	var out ollamaGenerated
	err := p.client.do(ctx, http.MethodPost, "/api/generate", ollamaGenerate{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Options: ollamaOptions{
			NumPredict: p.config.maxTokens(req.MaxTokens),
		},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(out.Response),
		Model:      out.Model,
		TokensUsed: out.PromptEvalCount + out.EvalCount,
	}, nil
}
