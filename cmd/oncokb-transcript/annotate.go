package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/annotate"
	"github.com/inodb/oncokb-transcript/internal/maf"
	"github.com/inodb/oncokb-transcript/internal/output"
)

func newAnnotateCmd() *cobra.Command {
	var (
		mafPath string
		save    bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "annotate [<gene> <alteration>...]",
		Short: "Annotate protein alterations",
		Long: `Annotate protein alterations of a gene with their consequence, protein
positions, reference residues and the reference genomes they are valid on.

Alterations are given as arguments after the gene, or read from a MAF-like
table with --maf. The table needs a Hugo_Symbol column and one of
HGVSp_Short, Protein_Change, Alteration or HGVSp.`,
		Example: `  oncokb-transcript annotate BRAF V600E V600K Amplification
  oncokb-transcript annotate BRAF "ATP6V1H-BRAF Fusion" --save
  oncokb-transcript annotate --maf mutations.maf --policy require-explicit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case mafPath != "" && len(args) > 0:
				return &usageError{errors.New("give either --maf or a gene with alterations, not both")}
			case mafPath == "" && len(args) < 2:
				return &usageError{errors.New("requires a gene and at least one alteration, or --maf")}
			}

			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			w := output.NewAlterationWriter(cmd.OutOrStdout())
			if err := w.WriteHeader(); err != nil {
				return err
			}
			if mafPath != "" {
				err = annotateMAF(ctx, app, w, mafPath, save)
			} else {
				err = annotateArgs(ctx, app, w, args[0], args[1:], workers, save)
			}
			if err != nil {
				return err
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&mafPath, "maf", "", "Read alterations from a MAF file (.maf or .maf.gz)")
	cmd.Flags().BoolVar(&save, "save", false, "Store annotated alterations")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of parallel workers (0 = all CPUs)")
	cmd.Flags().String("policy", "", "Reference residue policy: consensus, first-assembly or require-explicit")
	viper.BindPFlag(keyRefResiduePolicy, cmd.Flags().Lookup("policy"))
	return cmd
}

// annotateArgs annotates alterations of one gene in parallel. Failed
// alterations are reported in the output and do not stop the run.
func annotateArgs(ctx context.Context, app *app, w *output.AlterationWriter, hugo string, raws []string, workers int, save bool) error {
	results, err := app.service.AnnotateBatch(ctx, hugo, raws, workers)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			if err := w.WriteError(r.Raw, hugo, r.Err); err != nil {
				return err
			}
			continue
		}
		var id string
		if save {
			if id, err = app.store.SaveAlteration(ctx, r.Alteration); err != nil {
				return err
			}
		}
		if err := w.Write(r.Raw, r.Alteration, id); err != nil {
			return err
		}
	}
	return nil
}

// annotateMAF annotates each record of a MAF file. A recognized
// Consequence column value is used as the alteration's consequence.
func annotateMAF(ctx context.Context, app *app, w *output.AlterationWriter, path string, save bool) error {
	parser, err := maf.NewParser(path)
	if err != nil {
		return err
	}
	defer parser.Close()

	var total, failed int
	for {
		rec, err := parser.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}
		total++

		patch, err := recordPatch(ctx, app, rec)
		if err != nil {
			return err
		}
		alt, id, err := app.service.AnnotateAlteration(ctx, rec.ProteinChange, rec.HugoSymbol, patch, save)
		if err != nil {
			failed++
			app.logger.Debug("could not annotate record",
				zap.Int("line", rec.Line),
				zap.String("gene", rec.HugoSymbol),
				zap.String("alteration", rec.ProteinChange),
				zap.Error(err))
			if err := w.WriteError(rec.ProteinChange, rec.HugoSymbol, err); err != nil {
				return err
			}
			continue
		}
		if err := w.Write(rec.ProteinChange, alt, id); err != nil {
			return err
		}
	}

	app.logger.Info("annotated MAF",
		zap.String("path", path),
		zap.Int("records", total),
		zap.Int("failed", failed))
	return nil
}

func recordPatch(ctx context.Context, app *app, rec *maf.Record) (annotate.Patch, error) {
	var patch annotate.Patch
	if rec.Consequence == "" {
		return patch, nil
	}
	c, ok, err := app.store.FindConsequence(ctx, rec.Consequence)
	if err != nil {
		return patch, fmt.Errorf("line %d: %w", rec.Line, err)
	}
	if ok {
		patch.Consequence = &c
	}
	return patch, nil
}
