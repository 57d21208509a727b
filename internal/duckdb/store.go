// Package duckdb persists genes, transcripts, protein sequences, consequences
// and annotated alterations in an embedded DuckDB database.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS genes (
		entrez_gene_id INTEGER PRIMARY KEY,
		hugo_symbol VARCHAR NOT NULL,
		gene_type VARCHAR NOT NULL DEFAULT '',
		grch37_isoform VARCHAR NOT NULL DEFAULT '',
		grch37_refseq VARCHAR NOT NULL DEFAULT '',
		grch38_isoform VARCHAR NOT NULL DEFAULT '',
		grch38_refseq VARCHAR NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS genes_import (
		entrez_gene_id INTEGER,
		hugo_symbol VARCHAR,
		gene_type VARCHAR,
		grch37_isoform VARCHAR,
		grch37_refseq VARCHAR,
		grch38_isoform VARCHAR,
		grch38_refseq VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS ensembl_genes (
		ensembl_gene_id VARCHAR,
		reference_genome VARCHAR,
		entrez_gene_id INTEGER NOT NULL,
		canonical BOOLEAN NOT NULL DEFAULT false,
		chromosome VARCHAR NOT NULL DEFAULT '',
		start_pos BIGINT NOT NULL DEFAULT 0,
		end_pos BIGINT NOT NULL DEFAULT 0,
		strand INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (ensembl_gene_id, reference_genome)
	)`,
	`CREATE TABLE IF NOT EXISTS transcripts (
		ensembl_transcript_id VARCHAR,
		reference_genome VARCHAR,
		entrez_gene_id INTEGER NOT NULL,
		hugo_symbol VARCHAR NOT NULL DEFAULT '',
		ensembl_protein_id VARCHAR NOT NULL DEFAULT '',
		ensembl_gene_id VARCHAR NOT NULL DEFAULT '',
		refseq_id VARCHAR NOT NULL DEFAULT '',
		biotype VARCHAR NOT NULL DEFAULT '',
		canonical BOOLEAN NOT NULL DEFAULT false,
		chromosome VARCHAR NOT NULL DEFAULT '',
		start_pos BIGINT NOT NULL DEFAULT 0,
		end_pos BIGINT NOT NULL DEFAULT 0,
		strand INTEGER NOT NULL DEFAULT 0,
		protein_length INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (ensembl_transcript_id, reference_genome)
	)`,
	`CREATE TABLE IF NOT EXISTS fragments (
		ensembl_transcript_id VARCHAR NOT NULL,
		reference_genome VARCHAR NOT NULL,
		type VARCHAR NOT NULL,
		exon_rank INTEGER NOT NULL DEFAULT 0,
		chromosome VARCHAR NOT NULL DEFAULT '',
		start_pos BIGINT NOT NULL,
		end_pos BIGINT NOT NULL,
		strand INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sequences (
		ensembl_protein_id VARCHAR,
		reference_genome VARCHAR,
		ensembl_transcript_id VARCHAR NOT NULL DEFAULT '',
		sequence VARCHAR NOT NULL,
		PRIMARY KEY (ensembl_protein_id, reference_genome)
	)`,
	`CREATE TABLE IF NOT EXISTS consequences (
		term VARCHAR PRIMARY KEY,
		kind VARCHAR NOT NULL,
		is_generally_truncating BOOLEAN NOT NULL DEFAULT false,
		description VARCHAR NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS alterations (
		id VARCHAR PRIMARY KEY,
		genes VARCHAR NOT NULL,
		alteration VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		consequence VARCHAR NOT NULL,
		protein_start INTEGER NOT NULL DEFAULT 0,
		protein_end INTEGER NOT NULL DEFAULT 0,
		ref_residues VARCHAR NOT NULL DEFAULT '',
		variant_residues VARCHAR NOT NULL DEFAULT '',
		reference_genomes VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Stats holds row counts per table.
type Stats struct {
	Genes        int
	EnsemblGenes int
	Transcripts  int
	Sequences    int
	Consequences int
	Alterations  int
}

// Stats returns row counts for the main tables.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	for _, c := range []struct {
		table string
		dst   *int
	}{
		{"genes", &st.Genes},
		{"ensembl_genes", &st.EnsemblGenes},
		{"transcripts", &st.Transcripts},
		{"sequences", &st.Sequences},
		{"consequences", &st.Consequences},
		{"alterations", &st.Alterations},
	} {
		if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+c.table).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return st, nil
}
