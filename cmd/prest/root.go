package main

import (
	"fmt"
	"os"

	"github.com/Harshitk-cp/prest/internal/config"
	"github.com/Harshitk-cp/prest/internal/theory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logLevel             string
	precomputedPreorders string
)

var rootCmd = &cobra.Command{
	Use:   "prest",
	Short: "Estimate choice theories from experimental choice data",
	Long: `prest fits the catalog of choice theories to each subject of a
choice experiment and reports the best-fitting instances.

Input is a CSV with one row per observation: a subject key column, the
offered menu, an optional default and the chosen subset.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Load()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&precomputedPreorders, "precomputed-preorders", "", "Preorder cache file to load (default from PRECOMPUTED_PREORDERS)")

	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(precomputeCmd)
	rootCmd.AddCommand(coreCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger logs JSON to stderr; stdout carries command output.
func newLogger() (*zap.Logger, error) {
	level := logLevel
	if level == "" {
		level = config.LogLevel()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// loadPreorders returns a cache seeded from the configured file, if any.
func loadPreorders(logger *zap.Logger) (*theory.Precomputed, error) {
	pre := theory.NewPrecomputed()
	path := precomputedPreorders
	if path == "" {
		path = config.PrecomputedPreordersPath()
	}
	if path == "" {
		return pre, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open precomputed preorders: %w", err)
	}
	defer f.Close()

	if err := pre.Load(f); err != nil {
		return nil, fmt.Errorf("load precomputed preorders %s: %w", path, err)
	}
	logger.Debug("loaded precomputed preorders", zap.String("path", path), zap.Int("alternatives", pre.Size()))
	return pre, nil
}
