// Package annotate parses protein-change notation into structured
// alterations and decides which reference genomes support them.
package annotate

import (
	"context"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// SequenceLookup returns the canonical protein sequence of a gene on an
// assembly. ok is false when the gene has no canonical sequence there.
type SequenceLookup interface {
	CanonicalProteinSequence(ctx context.Context, g *cache.Gene, a genome.Assembly) (seq cache.ProteinSequence, ok bool, err error)
}

// ConsequenceLookup finds a consequence by term.
type ConsequenceLookup interface {
	FindConsequence(ctx context.Context, term string) (Consequence, bool, error)
}

// RefResiduePolicy decides the reference residue of a missense alteration
// that does not state one.
type RefResiduePolicy int

const (
	// PolicyConsensus adopts the observed residue only when every assembly
	// with a sequence agrees on it.
	PolicyConsensus RefResiduePolicy = iota
	// PolicyFirstAssembly adopts the residue of the first assembly, in
	// genome.All order, that has a sequence.
	PolicyFirstAssembly
	// PolicyRequireExplicit never adopts a residue, leaving the alteration
	// without compatible assemblies.
	PolicyRequireExplicit
)

var policyNames = map[RefResiduePolicy]string{
	PolicyConsensus:       "consensus",
	PolicyFirstAssembly:   "first-assembly",
	PolicyRequireExplicit: "require-explicit",
}

func (p RefResiduePolicy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("RefResiduePolicy(%d)", int(p))
}

// ParseRefResiduePolicy parses a policy name.
func ParseRefResiduePolicy(s string) (RefResiduePolicy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown reference residue policy %q (want consensus, first-assembly or require-explicit)", s)
}

// Annotator annotates protein changes.
type Annotator struct {
	sequences    SequenceLookup
	consequences ConsequenceLookup
	policy       RefResiduePolicy
	logger       *zap.Logger
}

// NewAnnotator creates an annotator with the consensus reference residue policy.
func NewAnnotator(sequences SequenceLookup, consequences ConsequenceLookup) *Annotator {
	return &Annotator{
		sequences:    sequences,
		consequences: consequences,
		policy:       PolicyConsensus,
		logger:       zap.NewNop(),
	}
}

// SetRefResiduePolicy sets the policy for missense alterations without a
// stated reference residue.
func (a *Annotator) SetRefResiduePolicy(p RefResiduePolicy) {
	a.policy = p
}

// SetLogger sets the logger for debug messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Annotate parses raw and returns the annotated alteration for genes. Fields
// set in existing take precedence over parsed values; a preset consequence
// replaces the parsed one and preset reference genomes skip the
// compatibility check.
func (a *Annotator) Annotate(ctx context.Context, raw string, genes []*cache.Gene, existing Patch) (*Alteration, error) {
	pc, err := ParseProteinChange(raw)
	if err != nil {
		return nil, err
	}

	alt := &Alteration{
		Genes:           genes,
		Alteration:      pc.Alteration,
		ProteinStart:    pc.ProteinStart,
		ProteinEnd:      pc.ProteinEnd,
		RefResidues:     pc.RefResidues,
		VariantResidues: pc.VariantResidues,
	}

	if existing.Consequence == nil {
		cons, err := a.consequence(ctx, pc.Term)
		if err != nil {
			return nil, err
		}
		alt.Consequence = cons
	}
	alt = alt.Apply(existing)

	if existing.ReferenceGenomes != nil {
		return alt, nil
	}

	switch alt.Consequence.Kind {
	case KindMissense:
		a.resolveMissense(ctx, alt)
	case KindStructuralVariant, KindCopyNumberAlteration:
		alt.ReferenceGenomes = mapset.NewSet(genome.All()...)
	}
	return alt, nil
}

// consequence looks term up, falling back to the UNKNOWN entry.
func (a *Annotator) consequence(ctx context.Context, term string) (Consequence, error) {
	if term != "" {
		cons, ok, err := a.consequences.FindConsequence(ctx, term)
		if err != nil {
			return Consequence{}, fmt.Errorf("lookup consequence %s: %w", term, err)
		}
		if ok {
			return cons, nil
		}
	}

	cons, ok, err := a.consequences.FindConsequence(ctx, ConsequenceUnknown)
	if err != nil {
		return Consequence{}, fmt.Errorf("lookup consequence %s: %w", ConsequenceUnknown, err)
	}
	if !ok {
		return UnknownConsequence, nil
	}
	return cons, nil
}

// ReferenceGenomes returns the assemblies whose canonical sequence carries
// the alteration's reference residues. Structural and copy number
// alterations are compatible with every assembly. Alterations without a
// position or stated reference residues are compatible with none.
func (a *Annotator) ReferenceGenomes(ctx context.Context, alt *Alteration) mapset.Set[genome.Assembly] {
	switch alt.Consequence.Kind {
	case KindStructuralVariant, KindCopyNumberAlteration:
		return mapset.NewSet(genome.All()...)
	}

	out := mapset.NewSet[genome.Assembly]()
	if alt.RefResidues == "" {
		return out
	}
	for _, obs := range a.observe(ctx, alt, len(alt.RefResidues)) {
		if obs.residues == alt.RefResidues {
			out.Add(obs.assembly)
		}
	}
	return out
}

type observation struct {
	assembly genome.Assembly
	residues string
}

// resolveMissense fills ReferenceGenomes, and RefResidues when the policy
// adopts an observed residue.
func (a *Annotator) resolveMissense(ctx context.Context, alt *Alteration) {
	if alt.RefResidues != "" {
		alt.ReferenceGenomes = a.ReferenceGenomes(ctx, alt)
		return
	}
	if a.policy == PolicyRequireExplicit {
		return
	}

	width := alt.ProteinEnd - alt.ProteinStart + 1
	if width < 1 {
		width = 1
	}
	observed := a.observe(ctx, alt, width)
	if len(observed) == 0 {
		return
	}

	ref := observed[0].residues
	if a.policy == PolicyConsensus {
		for _, obs := range observed[1:] {
			if obs.residues != ref {
				a.logger.Debug("reference residues disagree across assemblies",
					zap.String("alteration", alt.String()),
					zap.String(string(observed[0].assembly), ref),
					zap.String(string(obs.assembly), obs.residues))
				return
			}
		}
	}

	alt.RefResidues = ref
	for _, obs := range observed {
		if obs.residues == ref {
			alt.ReferenceGenomes.Add(obs.assembly)
		}
	}
}

// observe reads width residues at ProteinStart from each assembly's
// canonical sequence of the first gene, in genome.All order. Assemblies
// without a usable sequence are skipped.
func (a *Annotator) observe(ctx context.Context, alt *Alteration, width int) []observation {
	if len(alt.Genes) == 0 || alt.ProteinStart < 1 || a.sequences == nil {
		return nil
	}
	gene := alt.Genes[0]

	var out []observation
	for _, asm := range genome.All() {
		seq, ok, err := a.sequences.CanonicalProteinSequence(ctx, gene, asm)
		if err != nil {
			a.logger.Debug("skipping reference genome: sequence lookup failed",
				zap.String("gene", gene.HugoSymbol),
				zap.String("assembly", string(asm)),
				zap.Error(err))
			continue
		}
		if !ok {
			a.logger.Debug("skipping reference genome: no canonical sequence",
				zap.String("gene", gene.HugoSymbol),
				zap.String("assembly", string(asm)))
			continue
		}
		end := alt.ProteinStart - 1 + width
		if end > seq.Len() {
			a.logger.Debug("skipping reference genome: position beyond protein end",
				zap.String("gene", gene.HugoSymbol),
				zap.String("assembly", string(asm)),
				zap.Int("position", alt.ProteinStart),
				zap.Int("length", seq.Len()))
			continue
		}
		out = append(out, observation{assembly: asm, residues: seq.Sequence[alt.ProteinStart-1 : end]})
	}
	return out
}
