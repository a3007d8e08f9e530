package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/upb/grounded-qa/services/ingest"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest a directory, then re-ingest files as they change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer shutdown(deps)

		dir := args[0]
		result, err := deps.Ingest.IngestPath(ctx, dir)
		if err != nil {
			return err
		}
		deps.Logger.Info("initial ingest finished",
			zap.Int("chunks", result.Chunks),
			zap.Int("errors", len(result.Errors)))

		watcher := ingest.NewWatcher(deps.Ingest, deps.Config.Ingest.WatchDebounce, deps.Logger.Named("watcher"))
		return watcher.Run(ctx, dir)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
