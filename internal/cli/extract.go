package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/tabclaim/internal/extract"
	"github.com/ppiankov/tabclaim/internal/logging"
	"github.com/ppiankov/tabclaim/internal/model"
	"github.com/ppiankov/tabclaim/internal/pipeline"
	"github.com/ppiankov/tabclaim/internal/source"
	"github.com/ppiankov/tabclaim/internal/store"
	"github.com/ppiankov/tabclaim/internal/util"
	"github.com/ppiankov/tabclaim/internal/worker"
)

var runTimeout time.Duration

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract claims from every classified table",
	Long: `Extract reads every <document_id>.json file in the input directory (and,
optionally, documents listed in a URLs file), looks up each table's layout
in the classification mapping and writes one claims artifact per processed
table:

  <output_dir>/<document_id>_<n>_claims.json

n counts only the tables of a document whose extraction succeeded.

Example:
  tabclaim extract --input sources/json --mapping classification_mapping.json
  tabclaim extract --output JSON_CLAIMS --namer chain --llm-provider openai
  tabclaim extract --urls urls.txt --store --store-path claims.db`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	f := extractCmd.Flags()
	d := model.DefaultConfig()

	// Input/output flags
	f.String("input", d.Input.Dir, "directory of <document_id>.json files")
	f.String("urls", "", "file of document URLs, one per line")
	f.String("mapping", d.Input.MappingFile, "classification mapping file (JSON or YAML)")
	f.String("output", d.Output.Dir, "output directory for claims artifacts")
	f.Bool("no-reset", false, "keep existing artifacts in the output directory")
	f.Bool("no-report", false, "do not write run_report.json")
	f.Int("concurrency", d.Concurrency.Workers, "number of documents processed concurrently")
	f.DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall run timeout")

	// Naming flags
	f.String("namer", d.Namer.Mode, "name inference for keyed tables (keyword, llm, chain, none)")
	f.String("llm-provider", d.LLM.Provider, "LLM provider (openai, anthropic, ollama)")
	f.String("llm-model", d.LLM.Model, "LLM model name")
	f.Bool("no-cache", false, "disable the inferred-name cache")

	// HTTP flags
	f.String("ua", d.HTTP.UserAgent, "HTTP User-Agent")
	f.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	f.Bool("ignore-robots", false, "fetch documents even where robots.txt disallows it")

	// Store flags
	f.Bool("store", false, "index claims in a SQLite database")
	f.String("store-path", d.Store.Path, "SQLite database path")

	bind := map[string]string{
		"input.dir":           "input",
		"input.urls_file":     "urls",
		"input.mapping_file":  "mapping",
		"output.dir":          "output",
		"concurrency.workers": "concurrency",
		"namer.mode":          "namer",
		"llm.provider":        "llm-provider",
		"llm.model":           "llm-model",
		"http.user_agent":     "ua",
		"http.http_proxy":     "http-proxy",
		"http.https_proxy":    "https-proxy",
		"store.enabled":       "store",
		"store.path":          "store-path",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
}

// applyExtractFlags overlays flags that only ever switch a default off
func applyExtractFlags(cmd *cobra.Command, cfg *model.Config) {
	f := cmd.Flags()
	if v, _ := f.GetBool("no-reset"); v {
		cfg.Output.Reset = false
	}
	if v, _ := f.GetBool("no-report"); v {
		cfg.Output.Report = false
	}
	if v, _ := f.GetBool("no-cache"); v {
		cfg.Cache.Enabled = false
	}
	if v, _ := f.GetBool("ignore-robots"); v {
		cfg.HTTP.RespectRobots = false
	}
	if cfg.Concurrency.Workers < 1 {
		cfg.Concurrency.Workers = model.DefaultConfig().Concurrency.Workers
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyExtractFlags(cmd, cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  tabclaim Extraction\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input dir:    %s\n", cfg.Input.Dir)
	if cfg.Input.URLsFile != "" {
		fmt.Fprintf(os.Stderr, "  URLs file:    %s\n", cfg.Input.URLsFile)
	}
	fmt.Fprintf(os.Stderr, "  Mapping:      %s\n", cfg.Input.MappingFile)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Namer:        %s\n", cfg.Namer.Mode)

	mapping, err := source.LoadMapping(cfg.Input.MappingFile)
	if err != nil {
		return err
	}

	namer, nameCache, err := buildNamer(cfg)
	if err != nil {
		return err
	}
	if usesLLM(cfg.Namer.Mode) {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	batch, err := loadDocuments(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d documents (%d unreadable)\n", len(batch.Documents), len(batch.Failures))
	fmt.Fprintf(os.Stderr, "✓ Loaded %d table classifications\n", len(mapping))

	opts := []pipeline.Option{
		pipeline.WithRegistry(extract.NewRegistry(namer)),
		pipeline.WithWorkers(cfg.Concurrency.Workers),
	}

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				logging.Warn("close store", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithRecorder(st))
		fmt.Fprintf(os.Stderr, "✓ Indexing claims in %s\n", cfg.Store.Path)
	}

	if cfg.Output.Reset {
		if err := pipeline.ResetOutput(cfg.Output.Dir); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "⚙️  Extracting claims with %d workers...\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "\n")

	engine := pipeline.NewEngine(mapping, cfg.Output.Dir, opts...)
	report, runErr := engine.RunBatch(ctx, batch)
	if report == nil {
		return fmt.Errorf("extraction failed: %w", runErr)
	}

	if cfg.Output.Report {
		path, err := pipeline.WriteReport(report, cfg.Output.Dir)
		if err != nil {
			return err
		}
		logging.Debug("report written", "path", path)
	}

	pipeline.RenderSummary(os.Stderr, report, cfg.Output.Verbose)

	if nameCache != nil {
		stats := nameCache.Stats()
		logging.Info("name cache", "memory_hits", stats.MemoryHits, "disk_hits", stats.DiskHits, "misses", stats.Misses)
	}

	if runErr != nil {
		return fmt.Errorf("extraction interrupted: %w", runErr)
	}
	return nil
}

// loadDocuments reads the input directory and, when configured, the URL list
func loadDocuments(ctx context.Context, cfg *model.Config) (*source.Batch, error) {
	batch := &source.Batch{}

	if cfg.Input.Dir != "" {
		dirBatch, err := source.NewDirSource(cfg.Input.Dir).Load(ctx)
		if err != nil {
			return nil, err
		}
		batch.Merge(dirBatch)
	}

	if cfg.Input.URLsFile != "" {
		urls, err := source.ReadURLsFromFile(cfg.Input.URLsFile)
		if err != nil {
			return nil, fmt.Errorf("read urls: %w", err)
		}

		fetcher := source.NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
			cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
		opts := []source.HTTPOption{
			source.WithRateLimit(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
		}
		if cfg.HTTP.RespectRobots {
			transport := util.NewTransport(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
			opts = append(opts, source.WithRobots(util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout, transport)))
		}

		httpBatch, err := source.NewHTTPSource(urls, fetcher, opts...).Load(ctx)
		if err != nil {
			return nil, err
		}
		batch.Merge(httpBatch)
	}

	return batch, nil
}
