package resolve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/datasource"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// ResolveCanonicalTranscript returns the canonical transcript of the gene on
// the assembly. A stored canonical transcript is returned unchanged;
// otherwise the canonical source chain names one and it is resolved with
// canonical=true.
func (s *Service) ResolveCanonicalTranscript(ctx context.Context, g *cache.Gene, a genome.Assembly) (*cache.Transcript, error) {
	key := cache.Key{Kind: cache.KindCanonicalTranscript, ID: geneKey(g), Assembly: a}
	if v, ok := s.cache.Get(key); ok {
		return v.(*cache.Transcript).Clone(), nil
	}

	unlock := s.locks.Lock(lockKey{g.EntrezGeneID, a})
	defer unlock()

	fail := func(err error) error {
		return &ResolutionError{Op: "resolve canonical", Gene: g.HugoSymbol, Assembly: a, Err: err}
	}

	stored, err := s.repo.FindCanonicalTranscript(ctx, g.EntrezGeneID, a)
	if err != nil {
		return nil, fail(err)
	}
	if stored != nil {
		s.cache.Set(key, stored)
		return stored.Clone(), nil
	}

	id, err := s.canonicalTranscriptID(ctx, g, a)
	if err != nil {
		return nil, fail(err)
	}
	if id == "" {
		return nil, fail(fmt.Errorf("no canonical transcript named for %s: %w", g.HugoSymbol, datasource.ErrTranscriptNotFound))
	}

	s.logger.Info("resolving canonical transcript",
		zap.String("gene", g.HugoSymbol),
		zap.String("assembly", string(a)),
		zap.String("transcript", id))
	return s.resolveTranscript(ctx, g, a, id, true)
}

// canonicalTranscriptID asks each canonical source in order and returns the
// first non-empty answer.
func (s *Service) canonicalTranscriptID(ctx context.Context, g *cache.Gene, a genome.Assembly) (string, error) {
	key := cache.Key{Kind: cache.KindCanonicalID, ID: g.HugoSymbol, Assembly: a}
	v, err := s.cache.GetOrLoad(key, func() (any, error) {
		for _, src := range s.canonical {
			rctx, cancel := s.remote(ctx)
			id, err := src.CanonicalTranscriptID(rctx, a, g)
			cancel()
			if err != nil {
				return nil, sourceErr(err)
			}
			if id != "" {
				return cache.StripVersion(id), nil
			}
		}
		return nil, nil
	})
	if err != nil || v == nil {
		return "", err
	}
	return v.(string), nil
}

// ResolveTranscript attaches the transcript to the gene on the assembly and
// returns the stored record. With canonical=true it becomes the only
// canonical transcript of the gene on that assembly; with canonical=false an
// existing canonical flag is cleared.
func (s *Service) ResolveTranscript(ctx context.Context, g *cache.Gene, a genome.Assembly, transcriptID string, canonical bool) (*cache.Transcript, error) {
	unlock := s.locks.Lock(lockKey{g.EntrezGeneID, a})
	defer unlock()
	return s.resolveTranscript(ctx, g, a, transcriptID, canonical)
}

// resolveTranscript must be called with the (gene, assembly) lock held.
func (s *Service) resolveTranscript(ctx context.Context, g *cache.Gene, a genome.Assembly, transcriptID string, canonical bool) (*cache.Transcript, error) {
	id := cache.StripVersion(transcriptID)
	fail := func(err error) error {
		return &ResolutionError{Op: "resolve", Gene: g.HugoSymbol, Assembly: a, TranscriptID: id, Err: err}
	}

	rctx, cancel := s.remote(ctx)
	remote, err := s.source.FetchTranscript(rctx, a, id)
	cancel()
	if err != nil {
		return nil, fail(sourceErr(err))
	}
	if remote == nil {
		return nil, fail(datasource.ErrTranscriptNotFound)
	}

	if err := s.ensureEnsemblGene(ctx, g, a, remote, canonical); err != nil {
		return nil, fail(err)
	}

	prev, err := s.repo.FindCanonicalTranscript(ctx, g.EntrezGeneID, a)
	if err != nil {
		return nil, fail(err)
	}

	existing, err := s.repo.FindTranscript(ctx, a, id)
	if err != nil {
		return nil, fail(err)
	}

	if existing == nil {
		t := remote.Clone()
		t.EntrezGeneID = g.EntrezGeneID
		t.HugoSymbol = g.HugoSymbol
		t.Assembly = a
		t.ID = id
		t.Canonical = false
		if t.RefSeqID == "" && g.Isoform(a) == id {
			t.RefSeqID = g.RefSeq(a)
		}
		if err := s.repo.SaveTranscript(ctx, t); err != nil {
			return nil, fail(err)
		}
		s.logger.Info("created transcript",
			zap.String("gene", g.HugoSymbol),
			zap.String("assembly", string(a)),
			zap.String("transcript", id))

		if t.ProteinID != "" {
			if err := s.ensureSequence(ctx, a, t); err != nil {
				return nil, fail(err)
			}
		}
	}

	isCanonical := existing != nil && existing.Canonical
	switch {
	case canonical && !isCanonical:
		if _, err := s.repo.SetCanonicalTranscript(ctx, g.EntrezGeneID, a, id); err != nil {
			return nil, fail(err)
		}
		demoted := ""
		if prev != nil && prev.ID != id {
			demoted = prev.ID
			s.logger.Info("demoted canonical transcript",
				zap.String("gene", g.HugoSymbol),
				zap.String("assembly", string(a)),
				zap.String("transcript", prev.ID))
		}
		s.invalidateCanonical(g, a, id, demoted)
	case !canonical && isCanonical:
		if err := s.repo.DemoteTranscript(ctx, a, id); err != nil {
			return nil, fail(err)
		}
		s.invalidateCanonical(g, a, id, "")
	}

	stored, err := s.repo.FindTranscript(ctx, a, id)
	if err != nil {
		return nil, fail(err)
	}
	if stored == nil {
		return nil, fail(fmt.Errorf("transcript %s missing after save", id))
	}
	s.cache.Set(cache.Key{Kind: cache.KindTranscript, ID: id, Assembly: a}, stored)
	return stored.Clone(), nil
}

// ensureEnsemblGene creates the gene-level record for the remote
// transcript's gene if the store lacks it. When a canonical transcript
// resolves to it, it becomes the only canonical Ensembl gene of the gene on
// the assembly.
func (s *Service) ensureEnsemblGene(ctx context.Context, g *cache.Gene, a genome.Assembly, remote *cache.Transcript, canonical bool) error {
	geneID := cache.StripVersion(remote.GeneID)
	if geneID == "" {
		return nil
	}

	stored, err := s.repo.FindEnsemblGenes(ctx, g.EntrezGeneID, a)
	if err != nil {
		return err
	}
	var existing *cache.EnsemblGene
	for _, eg := range stored {
		if eg.ID == geneID {
			existing = eg
			continue
		}
		if canonical && eg.Canonical {
			eg.Canonical = false
			if err := s.repo.SaveEnsemblGene(ctx, eg); err != nil {
				return err
			}
			s.logger.Info("demoted canonical Ensembl gene",
				zap.String("gene", g.HugoSymbol),
				zap.String("assembly", string(a)),
				zap.String("ensembl_gene", eg.ID))
		}
	}
	if existing != nil {
		if canonical && !existing.Canonical {
			existing.Canonical = true
			return s.repo.SaveEnsemblGene(ctx, existing)
		}
		return nil
	}

	eg := &cache.EnsemblGene{
		ID:     geneID,
		Chrom:  remote.Chrom,
		Start:  remote.Start,
		End:    remote.End,
		Strand: remote.Strand,
	}
	if src, ok := s.source.(EnsemblGeneSource); ok {
		rctx, cancel := s.remote(ctx)
		fetched, err := src.FetchEnsemblGene(rctx, a, geneID)
		cancel()
		if err != nil {
			return sourceErr(err)
		}
		eg = fetched
	}
	eg.EntrezGeneID = g.EntrezGeneID
	eg.Assembly = a
	eg.Canonical = canonical
	return s.repo.SaveEnsemblGene(ctx, eg)
}

// ensureSequence stores the transcript's protein sequence if the store
// lacks it.
func (s *Service) ensureSequence(ctx context.Context, a genome.Assembly, t *cache.Transcript) error {
	_, ok, err := s.repo.FindSequence(ctx, a, t.ProteinID)
	if err != nil || ok {
		return err
	}

	seqs, err := s.proteinSequences(ctx, a, []string{t.ProteinID})
	if err != nil {
		return err
	}
	seq, ok := seqs[t.ProteinID]
	if !ok {
		return fmt.Errorf("protein sequence %s: %w", t.ProteinID, datasource.ErrTranscriptNotFound)
	}
	seq.TranscriptID = t.ID
	return s.repo.SaveSequence(ctx, seq)
}

// invalidateCanonical drops cached entries affected by a canonical flag change.
func (s *Service) invalidateCanonical(g *cache.Gene, a genome.Assembly, transcriptIDs ...string) {
	s.cache.InvalidateKey(cache.Key{Kind: cache.KindCanonicalTranscript, ID: geneKey(g), Assembly: a})
	for _, id := range transcriptIDs {
		if id != "" {
			s.cache.InvalidateKey(cache.Key{Kind: cache.KindTranscript, ID: id, Assembly: a})
		}
	}
}
