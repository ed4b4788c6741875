package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tabclaim/internal/store"
)

var (
	queryStorePath string
	queryFilter    store.Query
	queryJSON      bool
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query claims indexed by a previous run",
	Long: `Query searches the SQLite claim index written by 'tabclaim extract --store'.
Without --run, the most recent run is queried.

Example:
  tabclaim query --metric accuracy
  tabclaim query --doc paper_1 --spec-key Dataset --spec-value MNIST
  tabclaim query --metric F1 --json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	f := queryCmd.Flags()
	f.StringVar(&queryStorePath, "store-path", "", "SQLite database path (default from config)")
	f.StringVar(&queryFilter.RunID, "run", "", "run ID (default: latest)")
	f.StringVar(&queryFilter.DocumentID, "doc", "", "document ID")
	f.StringVar(&queryFilter.Metric, "metric", "", "metric name (case-insensitive)")
	f.StringVar(&queryFilter.SpecKey, "spec-key", "", "specification key")
	f.StringVar(&queryFilter.SpecValue, "spec-value", "", "specification value (requires --spec-key)")
	f.IntVar(&queryFilter.Limit, "limit", 0, "maximum number of claims")
	f.BoolVar(&queryJSON, "json", false, "print claims as JSON")
}

// queryOutput is the JSON form of one matching claim
type queryOutput struct {
	RunID      string `json:"run_id"`
	DocumentID string `json:"document_id"`
	Position   int    `json:"position"`
	Table      string `json:"table"`
	Claim      int    `json:"claim"`
	Text       string `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryFilter.SpecValue != "" && queryFilter.SpecKey == "" {
		return fmt.Errorf("--spec-value requires --spec-key")
	}

	path := queryStorePath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Store.Path
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("claim index not found: %w", err)
	}

	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	rows, err := st.Query(cmd.Context(), queryFilter)
	if err != nil {
		return err
	}

	if queryJSON {
		out := make([]queryOutput, len(rows))
		for i, r := range rows {
			out[i] = queryOutput{
				RunID:      r.RunID,
				DocumentID: r.DocumentID,
				Position:   r.Position,
				Table:      r.TableKey,
				Claim:      r.Ordinal,
				Text:       r.Text,
			}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tPOS\tTABLE\tCLAIM")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.DocumentID, r.Position, r.TableKey, r.Text)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\n%d claims\n", len(rows))
	return nil
}
