package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Harshitk-cp/prest/internal/config"
	"github.com/Harshitk-cp/prest/internal/rpc"
	"github.com/Harshitk-cp/prest/internal/theory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var coreCmd = &cobra.Command{
	Use:   "core",
	Short: "Serve estimation calls over stdin and stdout",
	Long: `Runs the binary message protocol on stdin and stdout for a frontend
process. Logs go to stderr. The command exits when stdin closes or the
frontend sends quit.`,
	Args: cobra.NoArgs,
	RunE: runCore,
}

func runCore(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pre, err := loadPreorders(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := rpc.NewServer(pre, theory.NewSpace(pre), config.EstimationWorkers(), logger)
	logger.Info("core started", zap.Int("preorder_cache_size", pre.Size()))
	return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}
