package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Harshitk-cp/prest/internal/config"
	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/estimation"
	"github.com/Harshitk-cp/prest/internal/ingest"
	"github.com/Harshitk-cp/prest/internal/theory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	estimateTheories     []string
	estimateForcedChoice bool
	estimateSequential   bool
	estimateWorkers      int
	estimateKeyColumn    string
	estimateFormat       string
)

var estimateCmd = &cobra.Command{
	Use:   "estimate <file.csv>",
	Short: "Find the best-fitting theory instances for every subject",
	Long: `Reads a choice-experiment CSV ("-" for stdin) and, for every subject,
searches every instance of each requested theory for the minimal number of
mismatched observations.

Theories use the form printed by the API, for example:
  --theory 'preorder_maximization{strict=true,total=true}'
  --theory undominated_choice{strict=false} --theory top_two`,
	Args: cobra.ExactArgs(1),
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().StringArrayVarP(&estimateTheories, "theory", "t", []string{theory.StrictTotalPreorderMaximization.String()}, "Theory to estimate (repeatable)")
	estimateCmd.Flags().BoolVar(&estimateForcedChoice, "forced-choice", false, "Treat the data as forced choice; deferrals are rejected")
	estimateCmd.Flags().BoolVar(&estimateSequential, "sequential", false, "Estimate subjects one at a time")
	estimateCmd.Flags().IntVar(&estimateWorkers, "workers", 0, "Concurrent subjects (default from ESTIMATION_WORKERS)")
	estimateCmd.Flags().StringVar(&estimateKeyColumn, "key-column", ingest.DefaultKeyColumn, "Column holding the subject key")
	estimateCmd.Flags().StringVar(&estimateFormat, "format", "json", "Output format: json or wire")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	if estimateFormat != "json" && estimateFormat != "wire" {
		return fmt.Errorf("unknown format %q", estimateFormat)
	}

	theories, err := parseTheories(estimateTheories)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	subjects, _, err := readSubjects(args[0], cmd.InOrStdin(), ingest.Options{
		KeyColumn:    estimateKeyColumn,
		ForcedChoice: estimateForcedChoice,
	})
	if err != nil {
		return err
	}

	pre, err := loadPreorders(logger)
	if err != nil {
		return err
	}

	workers := estimateWorkers
	if workers <= 0 {
		workers = config.EstimationWorkers()
	}

	start := time.Now()
	resps, err := estimation.Run(cmd.Context(), pre, theory.NewSpace(pre), &estimation.Request{
		Subjects:           subjects,
		Theories:           theories,
		ForcedChoice:       estimateForcedChoice,
		DisableParallelism: estimateSequential,
	},
		estimation.WithWorkers(workers),
		estimation.WithProgress(func(done, total int) {
			logger.Debug("subject estimated", zap.Int("done", done), zap.Int("total", total))
		}),
	)
	if err != nil {
		return err
	}
	logger.Info("estimation finished",
		zap.Int("subjects", len(subjects)),
		zap.Int("theories", len(theories)),
		zap.Duration("duration", time.Since(start)),
	)

	return writeResponses(cmd.OutOrStdout(), estimateFormat, resps)
}

func parseTheories(names []string) ([]theory.Theory, error) {
	out := make([]theory.Theory, 0, len(names))
	for _, name := range names {
		t, err := theory.Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// readSubjects reads path, or stdin when path is "-".
func readSubjects(path string, stdin io.Reader, opts ingest.Options) ([]domain.Subject, []string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		r = f
	}

	subjects, labels, err := ingest.ReadChoiceSubjects(r, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return subjects, labels, nil
}

func writeResponses(w io.Writer, format string, resps []estimation.Response) error {
	if format == "wire" {
		p, err := estimation.MarshalResponses(resps)
		if err != nil {
			return err
		}
		_, err = w.Write(p)
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(estimation.ToJSON(resps))
}
