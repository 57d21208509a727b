package cache

import "github.com/inodb/oncokb-transcript/internal/genome"

// Gene is a curated gene with its per-assembly canonical isoforms.
type Gene struct {
	EntrezGeneID  int
	HugoSymbol    string
	GeneType      string // "ONCOGENE", "TSG", or "ONCOGENE,TSG"
	GRCh37Isoform string // Ensembl transcript ID
	GRCh37RefSeq  string
	GRCh38Isoform string
	GRCh38RefSeq  string
}

// Isoform returns the curated canonical transcript ID for the assembly.
func (g *Gene) Isoform(a genome.Assembly) string {
	switch a {
	case genome.GRCh37:
		return g.GRCh37Isoform
	case genome.GRCh38:
		return g.GRCh38Isoform
	}
	return ""
}

// RefSeq returns the curated canonical RefSeq ID for the assembly.
func (g *Gene) RefSeq(a genome.Assembly) string {
	switch a {
	case genome.GRCh37:
		return g.GRCh37RefSeq
	case genome.GRCh38:
		return g.GRCh38RefSeq
	}
	return ""
}

// EnsemblGene is the gene-level record for a gene on one assembly.
type EnsemblGene struct {
	ID           string // Ensembl gene ID (e.g., ENSG00000157764)
	EntrezGeneID int
	Assembly     genome.Assembly
	Canonical    bool
	Chrom        string
	Start        int64 // 1-based
	End          int64 // 1-based, inclusive
	Strand       int8  // +1 (forward) or -1 (reverse)
}

// Contains returns true if the given position is within the gene boundaries.
func (g *EnsemblGene) Contains(pos int64) bool {
	return pos >= g.Start && pos <= g.End
}
