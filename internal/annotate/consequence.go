package annotate

import (
	"context"
	"sort"
)

// ConsequenceKind groups consequence terms by how an alteration is
// interpreted downstream.
type ConsequenceKind string

// Consequence kinds.
const (
	KindMissense             ConsequenceKind = "MISSENSE"
	KindSynonymous           ConsequenceKind = "SYNONYMOUS"
	KindTruncating           ConsequenceKind = "TRUNCATING"
	KindInframe              ConsequenceKind = "INFRAME"
	KindStopLost             ConsequenceKind = "STOP_LOST"
	KindSplice               ConsequenceKind = "SPLICE"
	KindStructuralVariant    ConsequenceKind = "STRUCTURAL_VARIANT"
	KindCopyNumberAlteration ConsequenceKind = "COPY_NUMBER_ALTERATION"
	KindAny                  ConsequenceKind = "ANY"
	KindUnknown              ConsequenceKind = "UNKNOWN"
)

// Consequence terms. Protein-level terms follow Sequence Ontology names; the
// upper-case terms are curation sentinels.
const (
	ConsequenceMissenseVariant   = "missense_variant"
	ConsequenceSynonymousVariant = "synonymous_variant"
	ConsequenceStopGained        = "stop_gained"
	ConsequenceFrameshiftVariant = "frameshift_variant"
	ConsequenceStartLost         = "start_lost"
	ConsequenceStopLost          = "stop_lost"
	ConsequenceInframeDeletion   = "inframe_deletion"
	ConsequenceInframeInsertion  = "inframe_insertion"
	ConsequenceSpliceRegion      = "splice_region_variant"
	ConsequenceFeatureTruncation = "feature_truncation"

	ConsequenceStructuralVariant = "SV"
	ConsequenceCopyNumber        = "CNA"
	ConsequenceAny               = "NA"
	ConsequenceUnknown           = "UNKNOWN"
)

// Consequence is a catalog entry describing the functional category of an
// alteration.
type Consequence struct {
	Term                  string
	Kind                  ConsequenceKind
	IsGenerallyTruncating bool
	Description           string
}

// UnknownConsequence is used when the catalog has no UNKNOWN entry.
var UnknownConsequence = Consequence{
	Term:        ConsequenceUnknown,
	Kind:        KindUnknown,
	Description: "Unknown",
}

// DefaultConsequences returns the built-in consequence catalog entries
// sorted by term.
func DefaultConsequences() []Consequence {
	cs := []Consequence{
		{ConsequenceMissenseVariant, KindMissense, false, "A sequence variant, that changes one or more bases, resulting in a different amino acid sequence but where the length is preserved"},
		{ConsequenceSynonymousVariant, KindSynonymous, false, "A sequence variant where there is no resulting change to the encoded amino acid"},
		{ConsequenceStopGained, KindTruncating, true, "A sequence variant whereby at least one base of a codon is changed, resulting in a premature stop codon"},
		{ConsequenceFrameshiftVariant, KindTruncating, true, "A sequence variant which causes a disruption of the translational reading frame"},
		{ConsequenceStartLost, KindTruncating, true, "A codon variant that changes at least one base of the canonical start codon"},
		{ConsequenceFeatureTruncation, KindTruncating, true, "A sequence variant that causes the reduction of a genomic feature"},
		{ConsequenceSpliceRegion, KindSplice, true, "A sequence variant in which a change has occurred within the region of the splice site"},
		{ConsequenceStopLost, KindStopLost, false, "A sequence variant where at least one base of the terminator codon is changed, resulting in an elongated transcript"},
		{ConsequenceInframeDeletion, KindInframe, false, "An inframe non synonymous variant that deletes bases from the coding sequence"},
		{ConsequenceInframeInsertion, KindInframe, false, "An inframe non synonymous variant that inserts bases into the coding sequence"},
		{ConsequenceStructuralVariant, KindStructuralVariant, false, "Structural variant"},
		{ConsequenceCopyNumber, KindCopyNumberAlteration, false, "Copy number alteration"},
		{ConsequenceAny, KindAny, false, "Any change at the position"},
		UnknownConsequence,
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Term < cs[j].Term })
	return cs
}

// Catalog is an in-memory ConsequenceLookup.
type Catalog struct {
	byTerm map[string]Consequence
}

// NewCatalog creates a catalog from the given entries.
func NewCatalog(cs ...Consequence) *Catalog {
	c := &Catalog{byTerm: make(map[string]Consequence, len(cs))}
	for _, cons := range cs {
		c.byTerm[cons.Term] = cons
	}
	return c
}

// NewDefaultCatalog creates a catalog with DefaultConsequences.
func NewDefaultCatalog() *Catalog {
	return NewCatalog(DefaultConsequences()...)
}

// FindConsequence returns the entry for term.
func (c *Catalog) FindConsequence(_ context.Context, term string) (Consequence, bool, error) {
	cons, ok := c.byTerm[term]
	return cons, ok, nil
}
