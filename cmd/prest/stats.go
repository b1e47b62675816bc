package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/ingest"
	"github.com/spf13/cobra"
)

var (
	statsForcedChoice bool
	statsKeyColumn    string
)

var statsCmd = &cobra.Command{
	Use:   "stats <file.csv>",
	Short: "Summarize the observations of every subject",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsForcedChoice, "forced-choice", false, "Reject deferrals while reading")
	statsCmd.Flags().StringVar(&statsKeyColumn, "key-column", ingest.DefaultKeyColumn, "Column holding the subject key")
}

func runStats(cmd *cobra.Command, args []string) error {
	subjects, labels, err := readSubjects(args[0], cmd.InOrStdin(), ingest.Options{
		KeyColumn:    statsKeyColumn,
		ForcedChoice: statsForcedChoice,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d subjects, %d alternatives\n\n", len(subjects), len(labels))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tOBSERVATIONS\tACTIVE\tDEFERRALS")
	for i := range subjects {
		s := domain.Summarize(&subjects[i])
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.Name, s.Observations, s.ActiveChoices, s.Deferrals)
	}
	return tw.Flush()
}
