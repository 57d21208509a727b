package resolve

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/oncokb-transcript/internal/annotate"
	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/datasource"
	"github.com/inodb/oncokb-transcript/internal/duckdb"
	"github.com/inodb/oncokb-transcript/internal/genome"
	"github.com/inodb/oncokb-transcript/internal/match"
)

var ctx = context.Background()

// fakeSource serves transcripts and sequences from memory and counts calls.
type fakeSource struct {
	mu          sync.Mutex
	transcripts map[genome.Assembly]map[string]*cache.Transcript
	sequences   map[genome.Assembly]map[string]string
	block       bool

	transcriptCalls int
	sequenceCalls   int
	geneCalls       int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		transcripts: make(map[genome.Assembly]map[string]*cache.Transcript),
		sequences:   make(map[genome.Assembly]map[string]string),
	}
}

func (f *fakeSource) add(a genome.Assembly, id, proteinID, seq string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transcripts[a] == nil {
		f.transcripts[a] = make(map[string]*cache.Transcript)
		f.sequences[a] = make(map[string]string)
	}
	f.transcripts[a][id] = &cache.Transcript{
		ID:        id,
		ProteinID: proteinID,
		GeneID:    "ENSG00000157764",
		Biotype:   "protein_coding",
		Assembly:  a,
		Chrom:     "7",
		Start:     140719327,
		End:       140924929,
		Strand:    -1,
		Fragments: []cache.Fragment{
			{Type: cache.FragmentExon, Rank: 1, Chrom: "7", Start: 140924566, End: 140924929, Strand: -1},
		},
	}
	if proteinID != "" {
		f.sequences[a][proteinID] = seq
	}
}

func (f *fakeSource) wait(ctx context.Context) error {
	if !f.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSource) FetchTranscript(ctx context.Context, a genome.Assembly, id string) (*cache.Transcript, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcriptCalls++
	t, ok := f.transcripts[a][id]
	if !ok {
		return nil, fmt.Errorf("lookup %s: %w", id, datasource.ErrTranscriptNotFound)
	}
	return t.Clone(), nil
}

func (f *fakeSource) FetchGeneTranscripts(ctx context.Context, a genome.Assembly, hugo string) ([]*cache.Transcript, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geneCalls++
	var out []*cache.Transcript
	ids := make([]string, 0, len(f.transcripts[a]))
	for id := range f.transcripts[a] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		out = append(out, f.transcripts[a][id].Clone())
	}
	return out, nil
}

func (f *fakeSource) FetchProteinSequences(ctx context.Context, a genome.Assembly, ids []string) (map[string]cache.ProteinSequence, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sequenceCalls++
	out := make(map[string]cache.ProteinSequence)
	for _, id := range ids {
		if seq, ok := f.sequences[a][id]; ok {
			out[id] = cache.ProteinSequence{ProteinID: id, Assembly: a, Sequence: seq}
		}
	}
	return out, nil
}

func (f *fakeSource) calls() (transcripts, sequences, genes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transcriptCalls, f.sequenceCalls, f.geneCalls
}

type localFASTA struct {
	assembly genome.Assembly
	seqs     map[string]string
}

func (l localFASTA) Assembly() genome.Assembly { return l.assembly }

func (l localFASTA) Lookup(id string) (cache.ProteinSequence, bool) {
	s, ok := l.seqs[id]
	return cache.ProteinSequence{ProteinID: id, Assembly: l.assembly, Sequence: s}, ok
}

var braf = &cache.Gene{
	EntrezGeneID:  673,
	HugoSymbol:    "BRAF",
	GeneType:      "ONCOGENE",
	GRCh37Isoform: "ENST00000288602",
	GRCh38Isoform: "ENST00000646891",
}

// brafSequence has residue v at position 600.
func brafSequence(v string) string {
	return strings.Repeat("A", 599) + v + strings.Repeat("K", 166)
}

func setup(t *testing.T, opts ...Option) (*Service, *duckdb.Store, *fakeSource) {
	t.Helper()
	store, err := duckdb.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveGene(ctx, braf))
	require.NoError(t, store.SeedConsequences(ctx, annotate.DefaultConsequences()))

	src := newFakeSource()
	src.add(genome.GRCh37, "ENST00000288602", "ENSP00000288602", brafSequence("V"))
	src.add(genome.GRCh37, "ENST00000496384", "ENSP00000419060", "MAALSGGGG")
	src.add(genome.GRCh38, "ENST00000646891", "ENSP00000493543", brafSequence("V"))
	src.add(genome.GRCh38, "ENST00000288602", "ENSP00000288602", brafSequence("V")+"Q")
	return New(store, src, opts...), store, src
}

func TestFindGene(t *testing.T) {
	s, _, _ := setup(t)

	g, err := s.FindGene(ctx, "673")
	require.NoError(t, err)
	assert.Equal(t, "BRAF", g.HugoSymbol)

	g, err = s.FindGene(ctx, "braf")
	require.NoError(t, err)
	assert.Equal(t, 673, g.EntrezGeneID)

	_, err = s.FindGene(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrGeneNotFound)
}

func TestResolveTranscript_Create(t *testing.T) {
	s, store, _ := setup(t)

	tr, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000288602.7", false)
	require.NoError(t, err)
	assert.Equal(t, "ENST00000288602", tr.ID)
	assert.Equal(t, 673, tr.EntrezGeneID)
	assert.Equal(t, "BRAF", tr.HugoSymbol)
	assert.False(t, tr.Canonical)
	require.Len(t, tr.Fragments, 1)

	seq, ok, err := store.FindSequence(ctx, genome.GRCh37, "ENSP00000288602")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ENST00000288602", seq.TranscriptID)
	assert.Equal(t, brafSequence("V"), seq.Sequence)

	genes, err := store.FindEnsemblGenes(ctx, 673, genome.GRCh37)
	require.NoError(t, err)
	require.Len(t, genes, 1)
	assert.Equal(t, "ENSG00000157764", genes[0].ID)
	assert.False(t, genes[0].Canonical)
}

func TestResolveTranscript_CanonicalDemotion(t *testing.T) {
	s, store, _ := setup(t)

	_, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000288602", true)
	require.NoError(t, err)
	second, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000496384", true)
	require.NoError(t, err)
	assert.True(t, second.Canonical)

	n, err := store.CountCanonical(ctx, 673, genome.GRCh37)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	first, err := store.FindTranscript(ctx, genome.GRCh37, "ENST00000288602")
	require.NoError(t, err)
	assert.False(t, first.Canonical)

	canonical, err := store.FindCanonicalTranscript(ctx, 673, genome.GRCh37)
	require.NoError(t, err)
	assert.Equal(t, "ENST00000496384", canonical.ID)

	// The other assembly is untouched.
	n, err = store.CountCanonical(ctx, 673, genome.GRCh38)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestResolveTranscript_Idempotent(t *testing.T) {
	s, store, src := setup(t)

	a, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000288602", true)
	require.NoError(t, err)
	b, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000288602", true)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	all, err := store.FindTranscriptsByGene(ctx, 673, genome.GRCh37)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	n, err := store.CountCanonical(ctx, 673, genome.GRCh37)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, seqCalls, _ := src.calls()
	assert.Equal(t, 1, seqCalls, "sequence stored once")
}

func TestResolveTranscript_Demote(t *testing.T) {
	s, store, _ := setup(t)

	_, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000288602", true)
	require.NoError(t, err)
	tr, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000288602", false)
	require.NoError(t, err)
	assert.False(t, tr.Canonical)

	n, err := store.CountCanonical(ctx, 673, genome.GRCh37)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestResolveTranscript_NotFound(t *testing.T) {
	s, store, _ := setup(t)

	_, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000000000", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.ErrorIs(t, err, datasource.ErrTranscriptNotFound)

	var rerr *ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "resolve", rerr.Op)
	assert.Equal(t, "BRAF", rerr.Gene)
	assert.Equal(t, genome.GRCh37, rerr.Assembly)
	assert.Equal(t, "ENST00000000000", rerr.TranscriptID)
	assert.Contains(t, err.Error(), "resolve ENST00000000000 of BRAF on GRCh37")

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Transcripts)
}

func TestResolveTranscript_SourceTimeout(t *testing.T) {
	s, _, src := setup(t, WithSourceTimeout(10*time.Millisecond))
	src.block = true

	_, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000288602", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.ErrorIs(t, err, datasource.ErrSourceUnavailable)
}

func TestResolveTranscript_Concurrent(t *testing.T) {
	s, store, _ := setup(t)
	ids := []string{"ENST00000288602", "ENST00000496384"}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.ResolveTranscript(ctx, braf, genome.GRCh37, ids[i%2], true)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	n, err := store.CountCanonical(ctx, 673, genome.GRCh37)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, s.locks.size())
}

func TestResolveTranscript_CanonicalMovesEnsemblGene(t *testing.T) {
	s, store, src := setup(t)
	src.mu.Lock()
	src.transcripts[genome.GRCh37]["ENST00000496384"].GeneID = "ENSG00000289788"
	src.mu.Unlock()

	_, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000288602", true)
	require.NoError(t, err)
	_, err = s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000496384", true)
	require.NoError(t, err)

	genes, err := store.FindEnsemblGenes(ctx, 673, genome.GRCh37)
	require.NoError(t, err)
	require.Len(t, genes, 2)
	assert.Equal(t, "ENSG00000157764", genes[0].ID)
	assert.False(t, genes[0].Canonical, "previous canonical gene is demoted")
	assert.Equal(t, "ENSG00000289788", genes[1].ID)
	assert.True(t, genes[1].Canonical)
}

// pausingStore holds the first FindCanonicalTranscript call after arm,
// between the read and the return, until release is closed.
type pausingStore struct {
	*duckdb.Store
	armed   atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func (p *pausingStore) FindCanonicalTranscript(ctx context.Context, entrezGeneID int, a genome.Assembly) (*cache.Transcript, error) {
	t, err := p.Store.FindCanonicalTranscript(ctx, entrezGeneID, a)
	if p.armed.CompareAndSwap(true, false) {
		close(p.reached)
		<-p.release
	}
	return t, err
}

func TestCanonicalProteinSequence_ConcurrentPromotion(t *testing.T) {
	_, store, src := setup(t)
	paused := &pausingStore{Store: store, reached: make(chan struct{}), release: make(chan struct{})}
	s := New(paused, src)

	_, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000288602", true)
	require.NoError(t, err)

	paused.armed.Store(true)
	readerDone := make(chan error, 1)
	go func() {
		_, _, err := s.CanonicalProteinSequence(ctx, braf, genome.GRCh37)
		readerDone <- err
	}()
	<-paused.reached

	writerDone := make(chan error, 1)
	go func() {
		_, err := s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000496384", true)
		writerDone <- err
	}()
	assert.Never(t, func() bool { return len(writerDone) > 0 }, 50*time.Millisecond, 5*time.Millisecond,
		"promotion waits for the in-flight canonical read")

	close(paused.release)
	require.NoError(t, <-readerDone)
	require.NoError(t, <-writerDone)

	tr, err := s.ResolveCanonicalTranscript(ctx, braf, genome.GRCh37)
	require.NoError(t, err)
	assert.Equal(t, "ENST00000496384", tr.ID)

	seq, ok, err := s.CanonicalProteinSequence(ctx, braf, genome.GRCh37)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ENST00000496384", seq.TranscriptID)
	assert.Equal(t, "MAALSGGGG", seq.Sequence)
	assert.Zero(t, s.locks.size())
}

func TestResolveCanonicalTranscript(t *testing.T) {
	s, _, src := setup(t)

	tr, err := s.ResolveCanonicalTranscript(ctx, braf, genome.GRCh37)
	require.NoError(t, err)
	assert.Equal(t, "ENST00000288602", tr.ID)
	assert.True(t, tr.Canonical)

	before, _, _ := src.calls()
	again, err := s.ResolveCanonicalTranscript(ctx, braf, genome.GRCh37)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, again.ID)
	after, _, _ := src.calls()
	assert.Equal(t, before, after, "stored canonical needs no remote call")

	// Changing the canonical flag invalidates the cached entry.
	_, err = s.ResolveTranscript(ctx, braf, genome.GRCh37, "ENST00000496384", true)
	require.NoError(t, err)
	_, ok := s.Cache().Get(cache.Key{Kind: cache.KindCanonicalTranscript, ID: "673", Assembly: genome.GRCh37})
	assert.False(t, ok)

	tr, err = s.ResolveCanonicalTranscript(ctx, braf, genome.GRCh37)
	require.NoError(t, err)
	assert.Equal(t, "ENST00000496384", tr.ID)
}

type staticCanonical map[genome.Assembly]string

func (s staticCanonical) CanonicalTranscriptID(_ context.Context, a genome.Assembly, _ *cache.Gene) (string, error) {
	return s[a], nil
}

func TestResolveCanonicalTranscript_Chain(t *testing.T) {
	s, _, _ := setup(t, WithCanonicalSources(
		staticCanonical{},
		staticCanonical{genome.GRCh37: "ENST00000496384.1"},
		IsoformSource{},
	))

	tr, err := s.ResolveCanonicalTranscript(ctx, braf, genome.GRCh37)
	require.NoError(t, err)
	assert.Equal(t, "ENST00000496384", tr.ID)
}

func TestResolveCanonicalTranscript_NoneNamed(t *testing.T) {
	s, _, _ := setup(t, WithCanonicalSources(staticCanonical{}))

	_, err := s.ResolveCanonicalTranscript(ctx, braf, genome.GRCh37)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.ErrorIs(t, err, datasource.ErrTranscriptNotFound)
}

func TestMatchTranscript(t *testing.T) {
	tests := []struct {
		name       string
		candidates map[string]string
		wantTarget string
		wantTier   match.Tier
	}{
		{
			name:       "same sequence beats longer",
			candidates: map[string]string{"ENST00000000001": "MDVLA", "ENST00000000002": "MDVLAK"},
			wantTarget: "ENST00000000001",
			wantTier:   match.TierSameSequence,
		},
		{
			name:       "same length with mismatch",
			candidates: map[string]string{"ENST00000000001": "MDVLK"},
			wantTarget: "ENST00000000001",
			wantTier:   match.TierSameLengthMismatch,
		},
		{
			name:       "longer superset",
			candidates: map[string]string{"ENST00000000001": "XXMDVLAYY", "ENST00000000002": "MD"},
			wantTarget: "ENST00000000001",
			wantTier:   match.TierLongerSuperset,
		},
		{
			name:       "no match",
			candidates: map[string]string{"ENST00000000001": "QQQQQQQQ"},
			wantTier:   match.TierNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := duckdb.Open("")
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			require.NoError(t, store.SaveGene(ctx, braf))

			src := newFakeSource()
			src.add(genome.GRCh37, "ENST00000288602", "ENSP00000288602", "MDVLA")
			for id, seq := range tt.candidates {
				src.add(genome.GRCh38, id, "ENSP"+id[4:], seq)
			}
			s := New(store, src)

			res, err := s.MatchTranscript(ctx, braf, genome.GRCh37, "ENST00000288602", genome.GRCh38)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, res.Tier)
			if tt.wantTarget == "" {
				assert.Nil(t, res.Target)
				assert.Equal(t, match.NoteNoMatch, res.Note)
				return
			}
			require.NotNil(t, res.Target)
			assert.Equal(t, tt.wantTarget, res.Target.ID)
			assert.Equal(t, "BRAF", res.Target.HugoSymbol)

			_, seqCalls, geneCalls := src.calls()
			assert.Equal(t, 2, seqCalls, "one fetch for the reference, one batch for candidates")
			assert.Equal(t, 1, geneCalls)
		})
	}
}

func TestMatchTranscript_MismatchNote(t *testing.T) {
	store, err := duckdb.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	src := newFakeSource()
	src.add(genome.GRCh37, "ENST00000288602", "ENSP00000288602", "MDVLA")
	src.add(genome.GRCh38, "ENST00000000001", "ENSP00000000001", "MDVLK")
	s := New(store, src)

	res, err := s.MatchTranscript(ctx, braf, genome.GRCh37, "ENST00000288602", genome.GRCh38)
	require.NoError(t, err)
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, 4, res.Mismatches[0].Position)
	assert.Equal(t, byte('A'), res.Mismatches[0].Ref)
	assert.Equal(t, byte('K'), res.Mismatches[0].Target)
	assert.Contains(t, res.Note, "mismatch: 1")
}

func TestMatchTranscript_UnknownReference(t *testing.T) {
	s, _, _ := setup(t)

	_, err := s.MatchTranscript(ctx, braf, genome.GRCh37, "ENST00000000000", genome.GRCh38)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.ErrorIs(t, err, datasource.ErrTranscriptNotFound)

	var rerr *ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "match", rerr.Op)
}

func TestMatchAndSave(t *testing.T) {
	s, store, _ := setup(t)

	res, tr, err := s.MatchAndSave(ctx, braf, genome.GRCh37, "ENST00000288602", genome.GRCh38, false)
	require.NoError(t, err)
	assert.Equal(t, match.TierSameSequence, res.Tier)
	require.NotNil(t, tr)
	assert.Equal(t, "ENST00000646891", tr.ID)
	assert.False(t, tr.Canonical)

	stored, err := store.FindTranscript(ctx, genome.GRCh38, "ENST00000646891")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 673, stored.EntrezGeneID)
}

func TestCompareTranscripts(t *testing.T) {
	s, _, _ := setup(t)

	res, err := s.CompareTranscripts(ctx,
		TranscriptRef{Assembly: genome.GRCh37, TranscriptID: "ENST00000288602"},
		TranscriptRef{Assembly: genome.GRCh38, TranscriptID: "ENST00000646891"},
		false)
	require.NoError(t, err)
	assert.Zero(t, res.Penalty)
	assert.Empty(t, res.Mismatches)

	res, err = s.CompareTranscripts(ctx,
		TranscriptRef{Assembly: genome.GRCh37, TranscriptID: "ENST00000288602"},
		TranscriptRef{Assembly: genome.GRCh38, TranscriptID: "ENST00000288602"},
		true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Penalty, "one trailing gap")

	_, err = s.CompareTranscripts(ctx,
		TranscriptRef{Assembly: genome.GRCh37, TranscriptID: "ENST00000288602"},
		TranscriptRef{Assembly: genome.GRCh38, TranscriptID: "ENST00000000000"},
		false)
	assert.ErrorIs(t, err, ErrResolutionFailed)
}

func TestCanonicalProteinSequence_ReadOnly(t *testing.T) {
	s, store, _ := setup(t)

	seq, ok, err := s.CanonicalProteinSequence(ctx, braf, genome.GRCh38)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byte('V'), seq.ResidueAt(600))

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Transcripts)
	assert.Zero(t, st.Sequences)
}

func TestCanonicalProteinSequence_LocalFirst(t *testing.T) {
	local := localFASTA{assembly: genome.GRCh37, seqs: map[string]string{"ENSP00000288602": brafSequence("E")}}
	s, _, src := setup(t, WithLocalSequences(local))

	seq, ok, err := s.CanonicalProteinSequence(ctx, braf, genome.GRCh37)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byte('E'), seq.ResidueAt(600))

	_, seqCalls, _ := src.calls()
	assert.Zero(t, seqCalls)
}

func TestAnnotateAlteration(t *testing.T) {
	s, store, _ := setup(t)

	alt, id, err := s.AnnotateAlteration(ctx, "V600E", "BRAF", annotate.Patch{}, true)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, annotate.KindMissense, alt.Consequence.Kind)
	assert.Equal(t, "V", alt.RefResidues)
	assert.Equal(t, []genome.Assembly{genome.GRCh37, genome.GRCh38}, alt.SortedReferenceGenomes())

	recs, err := store.FindAlterationsByGene(ctx, "BRAF")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].ID)
	assert.Equal(t, "V600E", recs[0].Alteration.Alteration)
}

func TestAnnotateAlteration_Disagreement(t *testing.T) {
	s, _, src := setup(t)
	src.add(genome.GRCh38, "ENST00000646891", "ENSP00000493543", brafSequence("M"))

	empty := ""
	alt, id, err := s.AnnotateAlteration(ctx, "V600E", "BRAF", annotate.Patch{RefResidues: &empty}, false)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, alt.RefResidues)
	assert.Empty(t, alt.SortedReferenceGenomes())
}

func TestAnnotateAlteration_Errors(t *testing.T) {
	s, _, _ := setup(t)

	_, _, err := s.AnnotateAlteration(ctx, "V600E", "NOPE", annotate.Patch{}, false)
	assert.ErrorIs(t, err, ErrGeneNotFound)

	_, _, err = s.AnnotateAlteration(ctx, "not an alteration", "BRAF", annotate.Patch{}, false)
	assert.ErrorIs(t, err, annotate.ErrUnparsableAlteration)
}

func TestAnnotateAlteration_FusionPartners(t *testing.T) {
	s, store, _ := setup(t)
	require.NoError(t, store.SaveGene(ctx, &cache.Gene{EntrezGeneID: 9114, HugoSymbol: "ATP6V1H"}))

	alt, _, err := s.AnnotateAlteration(ctx, "ATP6V1H-BRAF Fusion", "BRAF", annotate.Patch{}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"BRAF", "ATP6V1H"}, alt.HugoSymbols())
	assert.Equal(t, []genome.Assembly{genome.GRCh37, genome.GRCh38}, alt.SortedReferenceGenomes())
}

func TestAnnotateBatch(t *testing.T) {
	s, _, _ := setup(t)

	results, err := s.AnnotateBatch(ctx, "BRAF", []string{"V600E", "bogus!", "Amplification", "V600K"}, 3)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, i, r.Seq)
	}
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, annotate.ErrUnparsableAlteration)
	assert.Equal(t, annotate.KindCopyNumberAlteration, results[2].Alteration.Consequence.Kind)
	assert.Equal(t, "V", results[3].Alteration.RefResidues)
}
