package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/upb/grounded-qa/models"
	"go.yaml.in/yaml/v3"
)

// Output formats for query results
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer one question and print the response",
	Long: `Query runs one question through the answering pipeline. In full_book mode
the indexed collection is searched; in selection_based mode only --selection
is used as context. The response is printed as JSON or YAML. A refusal is a
normal result; only a pipeline error exits non-zero.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(viper.GetString("query.output"))
		if format != outputJSON && format != outputYAML {
			return fmt.Errorf("unknown output format %q (want json or yaml)", format)
		}

		deps, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer shutdown(deps)

		q := models.Query{
			Text:      strings.Join(args, " "),
			Mode:      models.QueryMode(viper.GetString("query.mode")),
			Selection: viper.GetString("query.selection"),
		}
		if err := deps.Orchestrator.ValidateQuery(q); err != nil {
			return err
		}

		resp := deps.Orchestrator.Process(cmd.Context(), q)
		if err := writeResponse(cmd.OutOrStdout(), format, resp); err != nil {
			return err
		}
		if resp.Status == models.StatusError {
			return fmt.Errorf("query %s failed", resp.QueryID)
		}
		return nil
	},
}

// writeResponse prints resp in the requested format
func writeResponse(w io.Writer, format string, resp models.Response) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
		return nil
	}
}

func init() {
	queryCmd.Flags().String("mode", string(models.QueryModeFullBook), "query type: full_book or selection_based")
	queryCmd.Flags().String("selection", "", "selected passage for selection_based queries")
	queryCmd.Flags().Int("top-k", 5, "number of chunks to retrieve (TOP_K)")
	queryCmd.Flags().StringP("output", "o", outputJSON, "output format: json or yaml")

	_ = bindFlag(queryCmd, "query.mode", "mode")
	_ = bindFlag(queryCmd, "query.selection", "selection")
	_ = bindFlag(queryCmd, "top_k", "top-k")
	_ = bindFlag(queryCmd, "query.output", "output")

	rootCmd.AddCommand(queryCmd)
}
