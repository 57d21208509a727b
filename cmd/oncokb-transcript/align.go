package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/oncokb-transcript/internal/genome"
	"github.com/inodb/oncokb-transcript/internal/match"
	"github.com/inodb/oncokb-transcript/internal/resolve"
)

func newAlignCmd() *cobra.Command {
	var (
		assemblyA string
		assemblyB string
		global    bool
	)

	cmd := &cobra.Command{
		Use:   "align <transcript-a> <transcript-b>",
		Short: "Align the protein sequences of two transcripts",
		Long: `Align the protein sequence of the second transcript against the first and
print the alignment with its penalty. End gaps are free unless --global is
set.`,
		Example: `  oncokb-transcript align ENST00000288602 ENST00000646891 --assembly-a GRCh37 --assembly-b GRCh38`,
		Args:    exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := genome.Parse(assemblyA)
			if err != nil {
				return &usageError{err}
			}
			b, err := genome.Parse(assemblyB)
			if err != nil {
				return &usageError{err}
			}

			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.service.CompareTranscripts(ctx,
				resolve.TranscriptRef{Assembly: a, TranscriptID: args[0]},
				resolve.TranscriptRef{Assembly: b, TranscriptID: args[1]},
				global)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, res.String())
			fmt.Fprintf(w, "Penalty: %d\n", res.Penalty)
			fmt.Fprintf(w, "Identity: %.1f%%\n", res.Identity()*100)
			fmt.Fprintf(w, "Gaps: %d\n", res.Gaps())
			if len(res.Mismatches) > 0 {
				fmt.Fprintf(w, "Mismatches: %s\n", match.FormatMismatches(res.Mismatches))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&assemblyA, "assembly-a", string(genome.GRCh37), "Assembly of the first transcript")
	cmd.Flags().StringVar(&assemblyB, "assembly-b", string(genome.GRCh38), "Assembly of the second transcript")
	cmd.Flags().BoolVar(&global, "global", false, "Force a global alignment")
	return cmd
}
