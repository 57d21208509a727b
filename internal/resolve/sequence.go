package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/datasource"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// CanonicalProteinSequence returns the protein sequence of the gene's
// canonical transcript on the assembly. It does not write to the store.
// ok is false when no canonical transcript or sequence can be found.
func (s *Service) CanonicalProteinSequence(ctx context.Context, g *cache.Gene, a genome.Assembly) (cache.ProteinSequence, bool, error) {
	t, err := s.canonicalTranscript(ctx, g, a)
	if err != nil || t == nil || t.ProteinID == "" {
		return cache.ProteinSequence{}, false, err
	}
	seqs, err := s.proteinSequences(ctx, a, []string{t.ProteinID})
	if err != nil {
		return cache.ProteinSequence{}, false, err
	}
	seq, ok := seqs[t.ProteinID]
	if ok && seq.TranscriptID == "" {
		seq.TranscriptID = t.ID
	}
	return seq, ok, nil
}

// canonicalTranscript looks up the canonical transcript without resolving it.
func (s *Service) canonicalTranscript(ctx context.Context, g *cache.Gene, a genome.Assembly) (*cache.Transcript, error) {
	key := cache.Key{Kind: cache.KindCanonicalTranscript, ID: geneKey(g), Assembly: a}
	if v, ok := s.cache.Get(key); ok {
		return v.(*cache.Transcript), nil
	}

	// Read and cache under the lock so a concurrent promotion cannot
	// invalidate the entry between the two.
	unlock := s.locks.Lock(lockKey{g.EntrezGeneID, a})
	stored, err := s.repo.FindCanonicalTranscript(ctx, g.EntrezGeneID, a)
	if err == nil && stored != nil {
		s.cache.Set(key, stored)
	}
	unlock()
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}

	id, err := s.canonicalTranscriptID(ctx, g, a)
	if err != nil || id == "" {
		return nil, err
	}
	return s.transcript(ctx, a, id)
}

// Transcript looks a transcript up in the store, then the remote source,
// without storing it.
func (s *Service) Transcript(ctx context.Context, a genome.Assembly, transcriptID string) (*cache.Transcript, error) {
	t, err := s.transcript(ctx, a, transcriptID)
	if err != nil {
		return nil, &ResolutionError{Op: "lookup", Assembly: a, TranscriptID: transcriptID, Err: err}
	}
	if t == nil {
		return nil, &ResolutionError{Op: "lookup", Assembly: a, TranscriptID: transcriptID, Err: datasource.ErrTranscriptNotFound}
	}
	return t.Clone(), nil
}

// transcript returns the stored transcript, falling back to the source.
// Remote results are cached but not stored.
func (s *Service) transcript(ctx context.Context, a genome.Assembly, id string) (*cache.Transcript, error) {
	id = cache.StripVersion(id)
	key := cache.Key{Kind: cache.KindTranscript, ID: id, Assembly: a}
	v, err := s.cache.GetOrLoad(key, func() (any, error) {
		t, err := s.repo.FindTranscript(ctx, a, id)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
		rctx, cancel := s.remote(ctx)
		defer cancel()
		t, err = s.source.FetchTranscript(rctx, a, id)
		if err != nil {
			return nil, sourceErr(err)
		}
		if t == nil {
			return nil, nil
		}
		return t, nil
	})
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*cache.Transcript), nil
}

// proteinSequences returns the sequences it can find for the protein IDs,
// consulting the cache, the store and local files before one batched
// remote fetch for the remainder.
func (s *Service) proteinSequences(ctx context.Context, a genome.Assembly, proteinIDs []string) (map[string]cache.ProteinSequence, error) {
	out := make(map[string]cache.ProteinSequence, len(proteinIDs))
	var missing []string
	for _, raw := range proteinIDs {
		id := cache.StripVersion(raw)
		if id == "" {
			continue
		}
		if _, done := out[id]; done {
			continue
		}
		seq, ok, err := s.localSequence(ctx, a, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = seq
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	rctx, cancel := s.remote(ctx)
	fetched, err := s.source.FetchProteinSequences(rctx, a, missing)
	cancel()
	if err != nil {
		return nil, sourceErr(err)
	}
	for _, id := range missing {
		seq, ok := fetched[id]
		if !ok {
			s.logger.Debug("protein sequence not found",
				zap.String("protein", id),
				zap.String("assembly", string(a)))
			continue
		}
		seq.ProteinID = id
		seq.Assembly = a
		s.cache.Set(cache.Key{Kind: cache.KindSequence, ID: id, Assembly: a}, seq)
		out[id] = seq
	}
	return out, nil
}

// localSequence consults the cache, the store and the local files, in order.
func (s *Service) localSequence(ctx context.Context, a genome.Assembly, id string) (cache.ProteinSequence, bool, error) {
	key := cache.Key{Kind: cache.KindSequence, ID: id, Assembly: a}
	if v, ok := s.cache.Get(key); ok {
		return v.(cache.ProteinSequence), true, nil
	}

	seq, ok, err := s.repo.FindSequence(ctx, a, id)
	if err != nil {
		return cache.ProteinSequence{}, false, err
	}
	if !ok {
		for _, l := range s.local[a] {
			if seq, ok = l.Lookup(id); ok {
				seq.ProteinID = id
				seq.Assembly = a
				break
			}
		}
	}
	if ok {
		s.cache.Set(key, seq)
	}
	return seq, ok, nil
}
