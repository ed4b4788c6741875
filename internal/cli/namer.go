package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/tabclaim/internal/cache"
	"github.com/ppiankov/tabclaim/internal/extract"
	"github.com/ppiankov/tabclaim/internal/llm"
	"github.com/ppiankov/tabclaim/internal/logging"
	"github.com/ppiankov/tabclaim/internal/model"
	"github.com/ppiankov/tabclaim/internal/worker"
)

func usesLLM(mode string) bool {
	return mode == "llm" || mode == "chain"
}

// buildNamer assembles the name inference used by keyed tables. The returned
// cache is nil unless language-model answers are memoized.
func buildNamer(cfg *model.Config) (extract.Namer, *cache.LayeredCache, error) {
	switch cfg.Namer.Mode {
	case "", "keyword":
		return extract.NewKeywordNamer(), nil, nil
	case "none":
		return extract.NoopNamer{}, nil, nil
	case "llm", "chain":
	default:
		return nil, nil, fmt.Errorf("unknown namer mode %q (want keyword, llm, chain or none)", cfg.Namer.Mode)
	}

	if err := applyLLMEnv(cfg); err != nil {
		return nil, nil, err
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("create LLM provider: %w", err)
	}

	opts := []llm.NamerOption{
		llm.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
	}
	var nameCache *cache.LayeredCache
	if cfg.Cache.Enabled {
		nameCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		if n, err := nameCache.Prune(); err != nil {
			logging.Warn("cache prune failed", "dir", cfg.Cache.Dir, "error", err)
		} else if n > 0 {
			logging.Debug("pruned expired cache entries", "count", n)
		}
		opts = append(opts, llm.WithCache(nameCache, cfg.Cache.DiskTTL))
	}
	llmNamer := llm.NewNamer(provider, opts...)

	if cfg.Namer.Mode == "llm" {
		return llmNamer, nameCache, nil
	}
	return extract.ChainNamer{extract.NewKeywordNamer(), llmNamer}, nameCache, nil
}

// applyLLMEnv reads provider credentials from the environment
func applyLLMEnv(cfg *model.Config) error {
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	return nil
}
