package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Harshitk-cp/prest/internal/theory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var precomputeOutput string

var precomputeCmd = &cobra.Command{
	Use:   "precompute <alternatives>",
	Short: "Build the preorder cache and write it to a file",
	Long: `Enumerates every preorder on up to the given number of alternatives and
writes the cache to --output. Servers and the core command load the file
with --precomputed-preorders instead of rebuilding it on first use.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrecompute,
}

func init() {
	precomputeCmd.Flags().StringVarP(&precomputeOutput, "output", "o", "preorders.bin", "File to write the cache to")
}

func runPrecompute(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("alternatives must be a non-negative integer, got %q", args[0])
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	start := time.Now()
	pre := theory.NewPrecomputed()
	if err := pre.Ensure(n); err != nil {
		return err
	}
	logger.Info("preorders enumerated", zap.Int("alternatives", n), zap.Duration("duration", time.Since(start)))

	return writePreorders(pre, precomputeOutput)
}

func writePreorders(pre *theory.Precomputed, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := pre.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
