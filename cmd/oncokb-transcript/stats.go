package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show row counts of the local store",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			st, err := app.store.Stats(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Store:\t%s\n", app.store.Path())
			fmt.Fprintf(w, "Genes:\t%d\n", st.Genes)
			fmt.Fprintf(w, "Ensembl genes:\t%d\n", st.EnsemblGenes)
			fmt.Fprintf(w, "Transcripts:\t%d\n", st.Transcripts)
			fmt.Fprintf(w, "Sequences:\t%d\n", st.Sequences)
			fmt.Fprintf(w, "Consequences:\t%d\n", st.Consequences)
			fmt.Fprintf(w, "Alterations:\t%d\n", st.Alterations)
			return w.Flush()
		},
	}
}
