package duckdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/inodb/oncokb-transcript/internal/annotate"
	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// AlterationRecord is a stored alteration.
type AlterationRecord struct {
	ID        string
	CreatedAt time.Time
	*annotate.Alteration
}

// SaveAlteration stores an annotated alteration under a new UUID and
// returns the ID.
func (s *Store) SaveAlteration(ctx context.Context, alt *annotate.Alteration) (string, error) {
	id := uuid.NewString()

	genomes := make([]string, 0, 2)
	for _, a := range alt.SortedReferenceGenomes() {
		genomes = append(genomes, string(a))
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO alterations
		(id, genes, alteration, name, consequence, protein_start, protein_end,
		 ref_residues, variant_residues, reference_genomes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, strings.Join(alt.HugoSymbols(), ","), alt.Alteration, alt.Name(), alt.Consequence.Term,
		alt.ProteinStart, alt.ProteinEnd, alt.RefResidues, alt.VariantResidues,
		strings.Join(genomes, ","), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("save alteration %s: %w", alt, err)
	}
	return id, nil
}

// FindAlterationsByGene returns stored alterations of a gene, oldest first.
// Genes carry only their Hugo symbol.
func (s *Store) FindAlterationsByGene(ctx context.Context, hugo string) ([]*AlterationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		a.id, a.created_at, a.genes, a.alteration, a.name,
		a.protein_start, a.protein_end, a.ref_residues, a.variant_residues, a.reference_genomes,
		a.consequence, coalesce(c.kind, ''), coalesce(c.is_generally_truncating, false), coalesce(c.description, '')
		FROM alterations a LEFT JOIN consequences c ON c.term = a.consequence
		WHERE list_contains(string_split(upper(a.genes), ','), ?)
		ORDER BY a.created_at, a.id`, strings.ToUpper(hugo))
	if err != nil {
		return nil, fmt.Errorf("query alterations: %w", err)
	}
	defer rows.Close()

	var out []*AlterationRecord
	for rows.Next() {
		var (
			rec     AlterationRecord
			alt     annotate.Alteration
			genes   string
			genomes string
			kind    string
		)
		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &genes, &alt.Alteration, &alt.DisplayName,
			&alt.ProteinStart, &alt.ProteinEnd, &alt.RefResidues, &alt.VariantResidues, &genomes,
			&alt.Consequence.Term, &kind, &alt.Consequence.IsGenerallyTruncating, &alt.Consequence.Description,
		); err != nil {
			return nil, fmt.Errorf("scan alteration: %w", err)
		}
		alt.Consequence.Kind = annotate.ConsequenceKind(kind)
		for _, h := range strings.Split(genes, ",") {
			if h != "" {
				alt.Genes = append(alt.Genes, &cache.Gene{HugoSymbol: h})
			}
		}
		alt.ReferenceGenomes = mapset.NewSet[genome.Assembly]()
		for _, g := range strings.Split(genomes, ",") {
			if g != "" {
				alt.ReferenceGenomes.Add(genome.Assembly(g))
			}
		}
		rec.Alteration = &alt
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alterations: %w", err)
	}
	return out, nil
}
