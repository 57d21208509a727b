package resolve

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/annotate"
	"github.com/inodb/oncokb-transcript/internal/cache"
)

// Annotator returns the alteration annotator backed by this service.
func (s *Service) Annotator() *annotate.Annotator {
	return s.annotator
}

// AnnotateAlteration annotates raw for the gene named by hugo. Genes named
// in fusion text are added when the repository knows them. With save set
// the alteration is stored and its ID returned.
func (s *Service) AnnotateAlteration(ctx context.Context, raw, hugo string, patch annotate.Patch, save bool) (*annotate.Alteration, string, error) {
	genes, err := s.alterationGenes(ctx, raw, hugo)
	if err != nil {
		return nil, "", err
	}

	alt, err := s.annotator.Annotate(ctx, raw, genes, patch)
	if err != nil {
		return nil, "", err
	}
	if !save {
		return alt, "", nil
	}

	id, err := s.repo.SaveAlteration(ctx, alt)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("saved alteration",
		zap.String("id", id),
		zap.String("alteration", alt.String()))
	return alt, id, nil
}

// AnnotateBatch annotates every raw string for the gene with the given
// number of workers. Results are returned in input order; per-item
// failures are reported in WorkResult.Err.
func (s *Service) AnnotateBatch(ctx context.Context, hugo string, raws []string, workers int) ([]annotate.WorkResult, error) {
	g, err := s.FindGene(ctx, hugo)
	if err != nil {
		return nil, err
	}

	items := make(chan annotate.WorkItem)
	go func() {
		defer close(items)
		for i, raw := range raws {
			select {
			case items <- annotate.WorkItem{Seq: i, Raw: raw, Genes: []*cache.Gene{g}}:
			case <-ctx.Done():
				return
			}
		}
	}()

	out := make([]annotate.WorkResult, 0, len(raws))
	err = annotate.OrderedCollect(s.annotator.ParallelAnnotate(ctx, items, workers), func(r annotate.WorkResult) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// alterationGenes returns the gene named by hugo followed by any other known
// gene named in raw.
func (s *Service) alterationGenes(ctx context.Context, raw, hugo string) ([]*cache.Gene, error) {
	var genes []*cache.Gene
	seen := make(map[int]bool)
	if hugo != "" {
		g, err := s.FindGene(ctx, hugo)
		if err != nil {
			return nil, err
		}
		genes = append(genes, g)
		seen[g.EntrezGeneID] = true
	}

	pc, err := annotate.ParseProteinChange(raw)
	if err != nil {
		return nil, err
	}
	for _, symbol := range pc.Genes {
		g, err := s.FindGene(ctx, strings.ToUpper(symbol))
		if errors.Is(err, ErrGeneNotFound) {
			s.logger.Debug("fusion partner not in repository", zap.String("gene", symbol))
			continue
		}
		if err != nil {
			return nil, err
		}
		if !seen[g.EntrezGeneID] {
			genes = append(genes, g)
			seen[g.EntrezGeneID] = true
		}
	}
	return genes, nil
}
