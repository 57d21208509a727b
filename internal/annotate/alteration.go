package annotate

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// Alteration is an annotated protein change of one or more genes.
type Alteration struct {
	Genes            []*cache.Gene
	Alteration       string // Normalized alteration text (e.g., "V600E")
	DisplayName      string // Curator-provided name, empty to derive from Alteration
	Consequence      Consequence
	ProteinStart     int // 1-based, 0 if not position based
	ProteinEnd       int
	RefResidues      string
	VariantResidues  string
	ReferenceGenomes mapset.Set[genome.Assembly]
}

// Name returns the display name of the alteration.
func (a *Alteration) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Alteration
}

// HugoSymbols returns the gene symbols in order.
func (a *Alteration) HugoSymbols() []string {
	out := make([]string, 0, len(a.Genes))
	for _, g := range a.Genes {
		out = append(out, g.HugoSymbol)
	}
	return out
}

// SortedReferenceGenomes returns the compatible assemblies in genome.All order.
func (a *Alteration) SortedReferenceGenomes() []genome.Assembly {
	var out []genome.Assembly
	if a.ReferenceGenomes == nil {
		return out
	}
	for _, asm := range genome.All() {
		if a.ReferenceGenomes.Contains(asm) {
			out = append(out, asm)
		}
	}
	return out
}

// String returns "GENE ALTERATION".
func (a *Alteration) String() string {
	genes := strings.Join(a.HugoSymbols(), "-")
	if genes == "" {
		return a.Name()
	}
	return genes + " " + a.Name()
}

// Patch lists the alteration fields a caller may preset. Nil fields leave
// the alteration unchanged.
type Patch struct {
	DisplayName      *string
	Consequence      *Consequence
	ProteinStart     *int
	ProteinEnd       *int
	RefResidues      *string
	VariantResidues  *string
	ReferenceGenomes []genome.Assembly
}

// IsZero returns true if the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.DisplayName == nil && p.Consequence == nil && p.ProteinStart == nil &&
		p.ProteinEnd == nil && p.RefResidues == nil && p.VariantResidues == nil &&
		p.ReferenceGenomes == nil
}

// Apply returns a copy of the alteration with the patch merged in. The
// receiver is not modified.
func (a *Alteration) Apply(p Patch) *Alteration {
	out := *a
	out.Genes = append([]*cache.Gene(nil), a.Genes...)
	if a.ReferenceGenomes != nil {
		out.ReferenceGenomes = a.ReferenceGenomes.Clone()
	} else {
		out.ReferenceGenomes = mapset.NewSet[genome.Assembly]()
	}

	if p.DisplayName != nil {
		out.DisplayName = *p.DisplayName
	}
	if p.Consequence != nil {
		out.Consequence = *p.Consequence
	}
	if p.ProteinStart != nil {
		out.ProteinStart = *p.ProteinStart
	}
	if p.ProteinEnd != nil {
		out.ProteinEnd = *p.ProteinEnd
	}
	if p.RefResidues != nil {
		out.RefResidues = *p.RefResidues
	}
	if p.VariantResidues != nil {
		out.VariantResidues = *p.VariantResidues
	}
	if p.ReferenceGenomes != nil {
		out.ReferenceGenomes = mapset.NewSet(p.ReferenceGenomes...)
	}
	return &out
}
