// Package cache provides the transcript data model and lookup caching.
package cache

import (
	"strings"

	"github.com/inodb/oncokb-transcript/internal/genome"
)

// FragmentType labels a sub-region of a transcript's genomic span.
type FragmentType string

// Fragment types.
const (
	FragmentExon          FragmentType = "EXON"
	FragmentFivePrimeUTR  FragmentType = "FIVE_PRIME_UTR"
	FragmentThreePrimeUTR FragmentType = "THREE_PRIME_UTR"
)

// Transcript represents a protein-coding isoform of a gene on one assembly.
type Transcript struct {
	EntrezGeneID    int             // Owning gene (Entrez id)
	HugoSymbol      string          // Owning gene symbol
	Assembly        genome.Assembly // Reference genome build
	ID              string          // Ensembl transcript ID without version (e.g., ENST00000288602)
	ProteinID       string          // Ensembl protein ID without version, empty if non-coding
	GeneID          string          // Ensembl gene ID
	RefSeqID        string          // Optional RefSeq mRNA ID
	Biotype         string          // Transcript biotype
	Canonical       bool            // Canonical for (gene, assembly)
	Chrom           string          // Chromosome, no "chr" prefix
	Start           int64           // Transcript start (1-based)
	End             int64           // Transcript end (1-based, inclusive)
	Strand          int8            // +1 or -1
	ProteinLength   int             // Translation length in residues, 0 if unknown
	Fragments       []Fragment      // Exons and UTRs
}

// Fragment is an exon or UTR of a transcript in genomic coordinates.
type Fragment struct {
	Type   FragmentType
	Rank   int   // Exon rank (1-based), 0 for UTRs
	Chrom  string
	Start  int64 // 1-based
	End    int64 // 1-based, inclusive
	Strand int8
}

// IsProteinCoding returns true if the transcript has a translation.
func (t *Transcript) IsProteinCoding() bool {
	return t.ProteinID != ""
}

// IsForwardStrand returns true if the transcript is on the forward strand.
func (t *Transcript) IsForwardStrand() bool {
	return t.Strand == 1
}

// Exons returns the exon fragments in rank order as stored.
func (t *Transcript) Exons() []Fragment {
	var exons []Fragment
	for _, f := range t.Fragments {
		if f.Type == FragmentExon {
			exons = append(exons, f)
		}
	}
	return exons
}

// UTRs returns the 5' and 3' UTR fragments.
func (t *Transcript) UTRs() []Fragment {
	var utrs []Fragment
	for _, f := range t.Fragments {
		if f.Type != FragmentExon {
			utrs = append(utrs, f)
		}
	}
	return utrs
}

// Contains returns true if the given position is within the transcript boundaries.
func (t *Transcript) Contains(pos int64) bool {
	return pos >= t.Start && pos <= t.End
}

// Clone returns a deep copy.
func (t *Transcript) Clone() *Transcript {
	c := *t
	c.Fragments = append([]Fragment(nil), t.Fragments...)
	return &c
}

// ProteinSequence is the amino acid sequence of a transcript's translation.
type ProteinSequence struct {
	TranscriptID string
	ProteinID    string
	Assembly     genome.Assembly
	Sequence     string
}

// Len returns the number of residues.
func (p ProteinSequence) Len() int {
	return len(p.Sequence)
}

// ResidueAt returns the residue at the 1-based position, or 0 if out of range.
func (p ProteinSequence) ResidueAt(pos int) byte {
	if pos < 1 || pos > len(p.Sequence) {
		return 0
	}
	return p.Sequence[pos-1]
}

// StripVersion removes a trailing ".N" version suffix from an Ensembl or RefSeq ID.
func StripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

// NormalizeChrom removes the "chr" prefix so sources agree on chromosome names.
func NormalizeChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}
