package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Chunk, embed and store a book file or directory",
	Long: `Ingest loads .md, .txt and .pdf files (per INGEST_EXTENSIONS), splits them
into overlapping word windows, embeds the chunks and upserts them into the
configured collection. Re-ingesting unchanged files is idempotent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer shutdown(deps)

		result, err := deps.Ingest.IngestPath(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		deps.Logger.Info("ingest finished",
			zap.Int("files", len(result.Files)),
			zap.Int("chunks", result.Chunks),
			zap.Int("skipped", result.Skipped),
			zap.Int("errors", len(result.Errors)))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("%d file(s) failed to ingest", len(result.Errors))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().Int("chunk-size", 200, "words per chunk (CHUNK_SIZE)")
	ingestCmd.Flags().Int("chunk-overlap", 40, "words shared by adjacent chunks (CHUNK_OVERLAP)")

	_ = bindFlag(ingestCmd, "chunk_size", "chunk-size")
	_ = bindFlag(ingestCmd, "chunk_overlap", "chunk-overlap")

	rootCmd.AddCommand(ingestCmd)
}
