package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/inodb/oncokb-transcript/internal/genome"
	"github.com/inodb/oncokb-transcript/internal/match"
	"github.com/inodb/oncokb-transcript/internal/output"
)

var errCanonicalNeedsTranscript = errors.New("--canonical requires a transcript")

func newMatchCmd() *cobra.Command {
	var (
		from      string
		to        string
		save      bool
		canonical bool
	)

	cmd := &cobra.Command{
		Use:   "match <gene> <transcript>",
		Short: "Find the transcript on another assembly with a matching protein",
		Long: `Match a transcript of a gene to the transcript on the target assembly whose
protein sequence corresponds to it. Candidates are compared in order: an
identical sequence, then the same length with the fewest mismatches, then a
longer sequence containing the reference.

With --save the matched transcript is stored, and --canonical makes it the
gene's canonical transcript on the target assembly.`,
		Example: `  oncokb-transcript match BRAF ENST00000288602 --from GRCh37 --to GRCh38
  oncokb-transcript match BRAF ENST00000288602 --save --canonical`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromAssembly, err := genome.Parse(from)
			if err != nil {
				return &usageError{err}
			}
			toAssembly, err := genome.Parse(to)
			if err != nil {
				return &usageError{err}
			}
			if canonical && !save {
				return &usageError{errors.New("--canonical requires --save")}
			}

			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			g, err := app.service.FindGene(ctx, args[0])
			if err != nil {
				return err
			}
			ref, err := app.service.Transcript(ctx, fromAssembly, args[1])
			if err != nil {
				return err
			}

			var res *match.Result
			if save {
				res, _, err = app.service.MatchAndSave(ctx, g, fromAssembly, args[1], toAssembly, canonical)
			} else {
				res, err = app.service.MatchTranscript(ctx, g, fromAssembly, args[1], toAssembly)
			}
			if err != nil {
				return err
			}

			w := output.NewMatchWriter(cmd.OutOrStdout())
			if err := w.WriteHeader(); err != nil {
				return err
			}
			if err := w.Write(ref, res); err != nil {
				return err
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", string(genome.GRCh37), "Assembly of the reference transcript")
	cmd.Flags().StringVar(&to, "to", string(genome.GRCh38), "Assembly to search")
	cmd.Flags().BoolVar(&save, "save", false, "Store the matched transcript")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "Make the matched transcript canonical")
	return cmd
}
