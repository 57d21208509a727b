package gencode

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/datasource"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// Annotation holds the protein-coding transcripts of one assembly.
type Annotation struct {
	assembly    genome.Assembly
	transcripts map[string]*cache.Transcript
	byGene      map[string][]string // upper-case Hugo symbol -> transcript IDs
	canonical   map[string]string   // upper-case Hugo symbol -> Ensembl_canonical transcript
	sequences   *cache.FASTALoader
}

func newAnnotation(a genome.Assembly) *Annotation {
	return &Annotation{
		assembly:    a,
		transcripts: make(map[string]*cache.Transcript),
		byGene:      make(map[string][]string),
		canonical:   make(map[string]string),
	}
}

func (an *Annotation) add(t *cache.Transcript, canonical bool) {
	an.transcripts[t.ID] = t
	gene := strings.ToUpper(t.HugoSymbol)
	if gene == "" {
		return
	}
	ids := append(an.byGene[gene], t.ID)
	slices.Sort(ids)
	an.byGene[gene] = ids
	if canonical {
		an.canonical[gene] = t.ID
	}
}

// Assembly returns the assembly the annotation belongs to.
func (an *Annotation) Assembly() genome.Assembly {
	return an.assembly
}

// Len returns the number of transcripts.
func (an *Annotation) Len() int {
	return len(an.transcripts)
}

// SetSequences attaches a translation FASTA of the same assembly.
func (an *Annotation) SetSequences(f *cache.FASTALoader) error {
	if f.Assembly() != an.assembly {
		return fmt.Errorf("sequences for %s cannot serve %s annotation", f.Assembly(), an.assembly)
	}
	an.sequences = f
	return nil
}

// Source serves GENCODE annotations for one or more assemblies. It
// implements the resolver's sequence and canonical sources.
type Source struct {
	byAssembly map[genome.Assembly]*Annotation
}

// NewSource creates a Source. A later annotation for the same assembly
// replaces an earlier one.
func NewSource(anns ...*Annotation) *Source {
	s := &Source{byAssembly: make(map[genome.Assembly]*Annotation)}
	for _, an := range anns {
		s.byAssembly[an.assembly] = an
	}
	return s
}

func (s *Source) annotation(a genome.Assembly) (*Annotation, error) {
	an, ok := s.byAssembly[a]
	if !ok {
		return nil, fmt.Errorf("%w: no GENCODE annotation loaded for %s", datasource.ErrSourceUnavailable, a)
	}
	return an, nil
}

// FetchTranscript returns a copy of the transcript.
func (s *Source) FetchTranscript(ctx context.Context, a genome.Assembly, transcriptID string) (*cache.Transcript, error) {
	an, err := s.annotation(a)
	if err != nil {
		return nil, err
	}
	t, ok := an.transcripts[cache.StripVersion(transcriptID)]
	if !ok {
		return nil, fmt.Errorf("transcript %s on %s: %w", transcriptID, a, datasource.ErrTranscriptNotFound)
	}
	return t.Clone(), nil
}

// FetchGeneTranscripts returns copies of the gene's transcripts ordered by ID.
func (s *Source) FetchGeneTranscripts(ctx context.Context, a genome.Assembly, hugo string) ([]*cache.Transcript, error) {
	an, err := s.annotation(a)
	if err != nil {
		return nil, err
	}
	ids, ok := an.byGene[strings.ToUpper(hugo)]
	if !ok {
		return nil, fmt.Errorf("gene %s on %s: %w", hugo, a, datasource.ErrTranscriptNotFound)
	}
	out := make([]*cache.Transcript, 0, len(ids))
	for _, id := range ids {
		out = append(out, an.transcripts[id].Clone())
	}
	return out, nil
}

// FetchProteinSequences returns the sequences found in the attached FASTA.
// Unknown IDs are left out of the result.
func (s *Source) FetchProteinSequences(ctx context.Context, a genome.Assembly, proteinIDs []string) (map[string]cache.ProteinSequence, error) {
	an, err := s.annotation(a)
	if err != nil {
		return nil, err
	}
	if an.sequences == nil {
		return nil, fmt.Errorf("%w: no GENCODE translations loaded for %s", datasource.ErrSourceUnavailable, a)
	}
	out := make(map[string]cache.ProteinSequence, len(proteinIDs))
	for _, id := range proteinIDs {
		if seq, ok := an.sequences.Lookup(id); ok {
			out[seq.ProteinID] = seq
		}
	}
	return out, nil
}

// CanonicalTranscriptID returns the transcript tagged Ensembl_canonical,
// or "" if the gene has none or the assembly is not loaded.
func (s *Source) CanonicalTranscriptID(ctx context.Context, a genome.Assembly, g *cache.Gene) (string, error) {
	an, ok := s.byAssembly[a]
	if !ok {
		return "", nil
	}
	return an.canonical[strings.ToUpper(g.HugoSymbol)], nil
}
