package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tabclaim/internal/extract"
	"github.com/ppiankov/tabclaim/internal/llm"
	"github.com/ppiankov/tabclaim/internal/model"
)

func TestDecodeConfig_Defaults(t *testing.T) {
	cfg, err := decodeConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestDecodeConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output:
  dir: out
  reset: false
namer:
  mode: chain
llm:
  timeout: 5s
log:
  level: debug
`), 0644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.False(t, cfg.Output.Reset)
	assert.True(t, cfg.Output.Report, "unset keys keep their defaults")
	assert.Equal(t, "chain", cfg.Namer.Mode)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tabclaim", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig().Output, cfg.Output)
	assert.Equal(t, model.DefaultConfig().LLM.Timeout, cfg.LLM.Timeout)

	assert.Error(t, writeDefaultConfig(path), "existing file is not overwritten")
}

func TestBuildNamer(t *testing.T) {
	cfg := model.DefaultConfig()

	cfg.Namer.Mode = "keyword"
	n, _, err := buildNamer(cfg)
	require.NoError(t, err)
	assert.IsType(t, &extract.KeywordNamer{}, n)

	cfg.Namer.Mode = "none"
	n, _, err = buildNamer(cfg)
	require.NoError(t, err)
	assert.IsType(t, extract.NoopNamer{}, n)

	cfg.Namer.Mode = "guess"
	_, _, err = buildNamer(cfg)
	assert.Error(t, err)
}

func TestBuildNamer_LLMModes(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "llama3"
	cfg.LLM.BaseURL = "http://127.0.0.1:1"

	cfg.Namer.Mode = "llm"
	n, _, err := buildNamer(cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.Namer{}, n)

	cfg.Namer.Mode = "chain"
	n, _, err = buildNamer(cfg)
	require.NoError(t, err)
	chain, ok := n.(extract.ChainNamer)
	require.True(t, ok)
	assert.Len(t, chain, 2)
}

func TestBuildNamer_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := model.DefaultConfig()
	cfg.Namer.Mode = "llm"
	cfg.LLM.Provider = "openai"
	_, _, err := buildNamer(cfg)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}
