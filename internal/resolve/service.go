// Package resolve attaches canonical transcripts to genes, matches
// transcripts across reference genomes and annotates alterations.
package resolve

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/annotate"
	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// DefaultSourceTimeout bounds each remote call.
const DefaultSourceTimeout = 30 * time.Second

// SequenceSource fetches transcript metadata and protein sequences.
type SequenceSource interface {
	FetchProteinSequences(ctx context.Context, a genome.Assembly, proteinIDs []string) (map[string]cache.ProteinSequence, error)
	FetchTranscript(ctx context.Context, a genome.Assembly, transcriptID string) (*cache.Transcript, error)
	FetchGeneTranscripts(ctx context.Context, a genome.Assembly, hugo string) ([]*cache.Transcript, error)
}

// EnsemblGeneSource is implemented by sources that can fetch gene-level
// records. Without it the gene record is derived from the transcript span.
type EnsemblGeneSource interface {
	FetchEnsemblGene(ctx context.Context, a genome.Assembly, geneID string) (*cache.EnsemblGene, error)
}

// CanonicalSource names the canonical transcript of a gene. An empty ID
// means the source has no opinion.
type CanonicalSource interface {
	CanonicalTranscriptID(ctx context.Context, a genome.Assembly, g *cache.Gene) (string, error)
}

// LocalSequences serves protein sequences from local files.
type LocalSequences interface {
	Assembly() genome.Assembly
	Lookup(proteinID string) (cache.ProteinSequence, bool)
}

// Repository stores genes, transcripts, sequences and alterations.
type Repository interface {
	FindGeneByEntrezID(ctx context.Context, id int) (*cache.Gene, error)
	FindGeneByHugoSymbol(ctx context.Context, hugo string) (*cache.Gene, error)

	FindEnsemblGenes(ctx context.Context, entrezGeneID int, a genome.Assembly) ([]*cache.EnsemblGene, error)
	SaveEnsemblGene(ctx context.Context, g *cache.EnsemblGene) error

	FindTranscript(ctx context.Context, a genome.Assembly, transcriptID string) (*cache.Transcript, error)
	FindCanonicalTranscript(ctx context.Context, entrezGeneID int, a genome.Assembly) (*cache.Transcript, error)
	SaveTranscript(ctx context.Context, t *cache.Transcript) error
	SetCanonicalTranscript(ctx context.Context, entrezGeneID int, a genome.Assembly, transcriptID string) (int64, error)
	DemoteTranscript(ctx context.Context, a genome.Assembly, transcriptID string) error

	FindSequence(ctx context.Context, a genome.Assembly, proteinID string) (cache.ProteinSequence, bool, error)
	SaveSequence(ctx context.Context, seq cache.ProteinSequence) error

	FindConsequence(ctx context.Context, term string) (annotate.Consequence, bool, error)
	SaveAlteration(ctx context.Context, alt *annotate.Alteration) (string, error)
}

// IsoformSource uses the curated isoform stored on the gene.
type IsoformSource struct{}

// CanonicalTranscriptID returns the gene's curated isoform for the assembly.
func (IsoformSource) CanonicalTranscriptID(_ context.Context, a genome.Assembly, g *cache.Gene) (string, error) {
	return cache.StripVersion(g.Isoform(a)), nil
}

// Service orchestrates transcript resolution.
type Service struct {
	repo      Repository
	source    SequenceSource
	canonical []CanonicalSource
	local     map[genome.Assembly][]LocalSequences
	cache     *cache.Cache
	annotator *annotate.Annotator
	locks     *keyedMutex
	timeout   time.Duration
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCanonicalSources sets the chain consulted, in order, for a gene's
// canonical transcript. The default chain is the gene's curated isoform
// followed by the sequence source when it is a CanonicalSource.
func WithCanonicalSources(srcs ...CanonicalSource) Option {
	return func(s *Service) { s.canonical = srcs }
}

// WithLocalSequences adds local sequence files consulted before the source.
func WithLocalSequences(ls ...LocalSequences) Option {
	return func(s *Service) {
		for _, l := range ls {
			s.local[l.Assembly()] = append(s.local[l.Assembly()], l)
		}
	}
}

// WithCache replaces the lookup cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithSourceTimeout bounds each remote call.
func WithSourceTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithRefResiduePolicy sets the annotator's reference residue policy.
func WithRefResiduePolicy(p annotate.RefResiduePolicy) Option {
	return func(s *Service) { s.annotator.SetRefResiduePolicy(p) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(repo Repository, source SequenceSource, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		source:  source,
		local:   make(map[genome.Assembly][]LocalSequences),
		cache:   cache.New(),
		locks:   newKeyedMutex(),
		timeout: DefaultSourceTimeout,
		logger:  zap.NewNop(),
	}
	s.annotator = annotate.NewAnnotator(s, repo)

	s.canonical = []CanonicalSource{IsoformSource{}}
	if cs, ok := source.(CanonicalSource); ok {
		s.canonical = append(s.canonical, cs)
	}

	for _, o := range opts {
		o(s)
	}
	s.annotator.SetLogger(s.logger.Named("annotate"))
	return s
}

// Cache returns the lookup cache.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// remote bounds a remote call by the source timeout.
func (s *Service) remote(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// FindGene looks a gene up by Entrez ID (all digits) or Hugo symbol.
func (s *Service) FindGene(ctx context.Context, query string) (*cache.Gene, error) {
	var (
		g   *cache.Gene
		err error
	)
	if id, convErr := strconv.Atoi(query); convErr == nil {
		g, err = s.repo.FindGeneByEntrezID(ctx, id)
	} else {
		g, err = s.repo.FindGeneByHugoSymbol(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrGeneNotFound, query)
	}
	return g, nil
}

func geneKey(g *cache.Gene) string {
	return strconv.Itoa(g.EntrezGeneID)
}
