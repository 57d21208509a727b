package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/oncokb-transcript/internal/datasource/oncokb"
)

func newImportGenesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-genes <cancerGeneList.tsv>",
		Short: "Load curated genes from an OncoKB cancer gene list",
		Long: `Insert or update genes from an OncoKB cancerGeneList.tsv file. Curated
isoforms and RefSeq IDs are stored with each gene and take precedence when
resolving canonical transcripts.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			genes, err := oncokb.LoadCancerGeneList(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.store.ImportGenes(ctx, genes.Genes())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d genes into %s\n", n, app.store.Path())
			return nil
		},
	}
}
