package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds the complete tabclaim configuration
type Config struct {
	Input        InputConfig        `yaml:"input" mapstructure:"input"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Namer        NamerConfig        `yaml:"namer" mapstructure:"namer"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// InputConfig locates documents and the classification mapping
type InputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`                   // Directory of <document_id>.json files
	URLsFile    string `yaml:"urls_file" mapstructure:"urls_file"`       // Optional file of document URLs, one per line
	MappingFile string `yaml:"mapping_file" mapstructure:"mapping_file"` // Classification mapping (JSON or YAML)
}

// OutputConfig controls artifact output
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Reset   bool   `yaml:"reset" mapstructure:"reset"`   // Empty the output dir before a run
	Report  bool   `yaml:"report" mapstructure:"report"` // Write run_report.json
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// ConcurrencyConfig controls document-level parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// NamerConfig selects how caption-derived names are inferred
type NamerConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // keyword, llm, chain, none
}

// LLMConfig configures the optional language-model namer
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"-" mapstructure:"api_key"` // Read from env, never written to disk
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CacheConfig controls memoization of inferred names
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitingConfig bounds outbound request rates
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// HTTPConfig configures remote document fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// StoreConfig controls the SQLite claim index
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := ".tabclaim-cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".tabclaim", "cache")
	}

	return &Config{
		Input: InputConfig{
			Dir:         "sources/json",
			MappingFile: "classification_mapping.json",
		},
		Output: OutputConfig{
			Dir:    "JSON_CLAIMS",
			Reset:  true,
			Report: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Namer: NamerConfig{
			Mode: "keyword",
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   30 * time.Second,
			MaxTokens: 32,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "tabclaim/0.1 (+https://github.com/ppiankov/tabclaim)",
			MaxBodyBytes:  20_000_000,
			RespectRobots: true,
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    "tabclaim.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
