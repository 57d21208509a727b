package main

import (
	"github.com/spf13/cobra"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/genome"
	"github.com/inodb/oncokb-transcript/internal/output"
)

// parseAssemblies parses assembly flag values, defaulting to all assemblies.
func parseAssemblies(values []string) ([]genome.Assembly, error) {
	if len(values) == 0 {
		return genome.All(), nil
	}
	out := make([]genome.Assembly, 0, len(values))
	for _, v := range values {
		a, err := genome.Parse(v)
		if err != nil {
			return nil, &usageError{err}
		}
		out = append(out, a)
	}
	return out, nil
}

func newResolveCmd() *cobra.Command {
	var (
		assemblies   []string
		transcriptID string
		canonical    bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <gene>",
		Short: "Attach the canonical transcript, or a named transcript, to a gene",
		Long: `Resolve the canonical transcript of a gene on each assembly and store it
with its Ensembl gene, exons and protein sequence. The gene is given by Hugo
symbol or Entrez Gene ID.

With --transcript the named transcript is stored instead, and --canonical
makes it the gene's canonical transcript, demoting the previous one.`,
		Example: `  oncokb-transcript resolve BRAF
  oncokb-transcript resolve 673 --assembly GRCh38
  oncokb-transcript resolve BRAF --assembly GRCh37 --transcript ENST00000288602 --canonical`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := parseAssemblies(assemblies)
			if err != nil {
				return err
			}
			if canonical && transcriptID == "" {
				return &usageError{errCanonicalNeedsTranscript}
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

			w := output.NewTranscriptWriter(cmd.OutOrStdout())
			if err := w.WriteHeader(); err != nil {
				return err
			}
			for _, a := range targets {
				var t *cache.Transcript
				if transcriptID != "" {
					t, err = app.service.ResolveTranscript(ctx, g, a, transcriptID, canonical)
				} else {
					t, err = app.service.ResolveCanonicalTranscript(ctx, g, a)
				}
				if err != nil {
					return err
				}
				if err := w.Write(t); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVar(&assemblies, "assembly", nil, "Assemblies to resolve (default: GRCh37,GRCh38)")
	cmd.Flags().StringVar(&transcriptID, "transcript", "", "Ensembl transcript ID to store instead of the canonical one")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "Make --transcript the canonical transcript")
	return cmd
}
