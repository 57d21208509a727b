package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/oncokb-transcript/internal/cache"
)

const geneColumns = `entrez_gene_id, hugo_symbol, gene_type,
	grch37_isoform, grch37_refseq, grch38_isoform, grch38_refseq`

// SaveGene inserts or replaces a gene.
func (s *Store) SaveGene(ctx context.Context, g *cache.Gene) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO genes (`+geneColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.EntrezGeneID, g.HugoSymbol, g.GeneType,
		g.GRCh37Isoform, g.GRCh37RefSeq, g.GRCh38Isoform, g.GRCh38RefSeq)
	if err != nil {
		return fmt.Errorf("save gene %s: %w", g.HugoSymbol, err)
	}
	return nil
}

// ImportGenes bulk-loads genes using the Appender API, replacing genes with
// the same Entrez ID. Genes without an Entrez ID are skipped; for duplicate
// IDs the last gene wins. Returns the number of genes written.
func (s *Store) ImportGenes(ctx context.Context, genes []*cache.Gene) (int, error) {
	byID := make(map[int]int, len(genes))
	deduped := make([]*cache.Gene, 0, len(genes))
	for _, g := range genes {
		if g.EntrezGeneID == 0 {
			continue
		}
		if i, ok := byID[g.EntrezGeneID]; ok {
			deduped[i] = g
			continue
		}
		byID[g.EntrezGeneID] = len(deduped)
		deduped = append(deduped, g)
	}
	if len(deduped) == 0 {
		return 0, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM genes_import"); err != nil {
		return 0, fmt.Errorf("clear gene import table: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "genes_import")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}

	for _, g := range deduped {
		if err := appender.AppendRow(
			int32(g.EntrezGeneID), g.HugoSymbol, g.GeneType,
			g.GRCh37Isoform, g.GRCh37RefSeq, g.GRCh38Isoform, g.GRCh38RefSeq,
		); err != nil {
			appender.Close()
			return 0, fmt.Errorf("append gene %s: %w", g.HugoSymbol, err)
		}
	}
	if err := appender.Close(); err != nil {
		return 0, fmt.Errorf("flush genes: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `INSERT OR REPLACE INTO genes (`+geneColumns+`)
		SELECT `+geneColumns+` FROM genes_import`); err != nil {
		return 0, fmt.Errorf("merge genes: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM genes_import"); err != nil {
		return 0, fmt.Errorf("clear gene import table: %w", err)
	}
	return len(deduped), nil
}

// FindGeneByEntrezID returns the gene, or nil if absent.
func (s *Store) FindGeneByEntrezID(ctx context.Context, id int) (*cache.Gene, error) {
	return s.findGene(ctx, "entrez_gene_id = ?", id)
}

// FindGeneByHugoSymbol returns the gene matching the symbol
// case-insensitively, or nil if absent.
func (s *Store) FindGeneByHugoSymbol(ctx context.Context, hugo string) (*cache.Gene, error) {
	return s.findGene(ctx, "upper(hugo_symbol) = ?", strings.ToUpper(hugo))
}

func (s *Store) findGene(ctx context.Context, where string, arg any) (*cache.Gene, error) {
	var g cache.Gene
	err := s.db.QueryRowContext(ctx, `SELECT `+geneColumns+` FROM genes WHERE `+where, arg).Scan(
		&g.EntrezGeneID, &g.HugoSymbol, &g.GeneType,
		&g.GRCh37Isoform, &g.GRCh37RefSeq, &g.GRCh38Isoform, &g.GRCh38RefSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query gene: %w", err)
	}
	return &g, nil
}

// ListGenes returns all genes ordered by Hugo symbol.
func (s *Store) ListGenes(ctx context.Context) ([]*cache.Gene, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+geneColumns+` FROM genes ORDER BY hugo_symbol`)
	if err != nil {
		return nil, fmt.Errorf("query genes: %w", err)
	}
	defer rows.Close()

	var genes []*cache.Gene
	for rows.Next() {
		var g cache.Gene
		if err := rows.Scan(
			&g.EntrezGeneID, &g.HugoSymbol, &g.GeneType,
			&g.GRCh37Isoform, &g.GRCh37RefSeq, &g.GRCh38Isoform, &g.GRCh38RefSeq,
		); err != nil {
			return nil, fmt.Errorf("scan gene: %w", err)
		}
		genes = append(genes, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genes: %w", err)
	}
	return genes, nil
}
