package resolve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/align"
	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/datasource"
	"github.com/inodb/oncokb-transcript/internal/genome"
	"github.com/inodb/oncokb-transcript/internal/match"
)

// TranscriptRef names a transcript on an assembly.
type TranscriptRef struct {
	Assembly     genome.Assembly
	TranscriptID string
}

func (r TranscriptRef) String() string {
	return r.TranscriptID + " (" + string(r.Assembly) + ")"
}

// MatchTranscript finds the transcript of the gene on assembly to whose
// protein sequence best corresponds to the transcript on assembly from.
// A result with tier match.TierNone is not an error.
func (s *Service) MatchTranscript(ctx context.Context, g *cache.Gene, from genome.Assembly, transcriptID string, to genome.Assembly) (*match.Result, error) {
	id := cache.StripVersion(transcriptID)
	fail := func(err error) error {
		return &ResolutionError{Op: "match", Gene: g.HugoSymbol, Assembly: from, TranscriptID: id, Err: err}
	}

	ref, refSeq, err := s.referenceSequence(ctx, from, id)
	if err != nil {
		return nil, fail(err)
	}

	rctx, cancel := s.remote(ctx)
	candidates, err := s.source.FetchGeneTranscripts(rctx, to, g.HugoSymbol)
	cancel()
	if err != nil {
		return nil, fail(sourceErr(err))
	}

	proteinIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c.EntrezGeneID = g.EntrezGeneID
		c.HugoSymbol = g.HugoSymbol
		c.Assembly = to
		if c.ProteinID != "" {
			proteinIDs = append(proteinIDs, c.ProteinID)
		}
	}
	seqs, err := s.proteinSequences(ctx, to, proteinIDs)
	if err != nil {
		return nil, fail(err)
	}
	sequences := make(map[string]string, len(seqs))
	for pid, seq := range seqs {
		sequences[pid] = seq.Sequence
	}

	res, err := match.Match(ref, refSeq, candidates, sequences)
	if err != nil {
		return nil, fail(err)
	}

	fields := []zap.Field{
		zap.String("gene", g.HugoSymbol),
		zap.String("from", string(from)),
		zap.String("transcript", id),
		zap.String("to", string(to)),
		zap.Stringer("tier", res.Tier),
		zap.Int("candidates", len(candidates)),
	}
	if res.Target != nil {
		fields = append(fields, zap.String("target", res.Target.ID))
	}
	s.logger.Info("matched transcript", fields...)
	return res, nil
}

// MatchAndSave matches like MatchTranscript and resolves the picked target
// on assembly to. The returned transcript is nil when nothing matched.
func (s *Service) MatchAndSave(ctx context.Context, g *cache.Gene, from genome.Assembly, transcriptID string, to genome.Assembly, canonical bool) (*match.Result, *cache.Transcript, error) {
	res, err := s.MatchTranscript(ctx, g, from, transcriptID, to)
	if err != nil {
		return nil, nil, err
	}
	if res.Target == nil {
		return res, nil, nil
	}
	t, err := s.ResolveTranscript(ctx, g, to, res.Target.ID, canonical)
	if err != nil {
		return res, nil, err
	}
	return res, t, nil
}

// CompareTranscripts aligns the protein sequence of b against that of a.
func (s *Service) CompareTranscripts(ctx context.Context, a, b TranscriptRef, forceGlobal bool) (*align.Result, error) {
	_, seqA, err := s.referenceSequence(ctx, a.Assembly, cache.StripVersion(a.TranscriptID))
	if err != nil {
		return nil, &ResolutionError{Op: "compare", Assembly: a.Assembly, TranscriptID: a.TranscriptID, Err: err}
	}
	_, seqB, err := s.referenceSequence(ctx, b.Assembly, cache.StripVersion(b.TranscriptID))
	if err != nil {
		return nil, &ResolutionError{Op: "compare", Assembly: b.Assembly, TranscriptID: b.TranscriptID, Err: err}
	}
	res, err := align.Align(seqA, seqB, forceGlobal)
	if err != nil {
		return nil, &ResolutionError{Op: "compare", TranscriptID: a.TranscriptID, Err: err}
	}
	return res, nil
}

// referenceSequence returns the transcript and its protein sequence.
func (s *Service) referenceSequence(ctx context.Context, a genome.Assembly, id string) (*cache.Transcript, string, error) {
	t, err := s.transcript(ctx, a, id)
	if err != nil {
		return nil, "", err
	}
	if t == nil {
		return nil, "", fmt.Errorf("transcript %s: %w", id, datasource.ErrTranscriptNotFound)
	}
	if t.ProteinID == "" {
		return nil, "", fmt.Errorf("transcript %s has no translation: %w", id, datasource.ErrTranscriptNotFound)
	}
	seqs, err := s.proteinSequences(ctx, a, []string{t.ProteinID})
	if err != nil {
		return nil, "", err
	}
	seq, ok := seqs[t.ProteinID]
	if !ok || seq.Sequence == "" {
		return nil, "", fmt.Errorf("protein sequence %s: %w", t.ProteinID, datasource.ErrTranscriptNotFound)
	}
	return t, seq.Sequence, nil
}
