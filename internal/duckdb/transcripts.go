package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// SaveEnsemblGene inserts the gene-level record or updates its span.
func (s *Store) SaveEnsemblGene(ctx context.Context, g *cache.EnsemblGene) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO ensembl_genes
		(ensembl_gene_id, reference_genome, entrez_gene_id, canonical, chromosome, start_pos, end_pos, strand)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ensembl_gene_id, reference_genome) DO UPDATE SET
			entrez_gene_id = excluded.entrez_gene_id,
			canonical = excluded.canonical,
			chromosome = excluded.chromosome,
			start_pos = excluded.start_pos,
			end_pos = excluded.end_pos,
			strand = excluded.strand`,
		g.ID, string(g.Assembly), g.EntrezGeneID, g.Canonical, g.Chrom, g.Start, g.End, int(g.Strand))
	if err != nil {
		return fmt.Errorf("save ensembl gene %s: %w", g.ID, err)
	}
	return nil
}

// FindEnsemblGenes returns the Ensembl genes of a gene on an assembly.
func (s *Store) FindEnsemblGenes(ctx context.Context, entrezGeneID int, a genome.Assembly) ([]*cache.EnsemblGene, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		ensembl_gene_id, reference_genome, entrez_gene_id, canonical, chromosome, start_pos, end_pos, strand
		FROM ensembl_genes
		WHERE entrez_gene_id = ? AND reference_genome = ?
		ORDER BY ensembl_gene_id`, entrezGeneID, string(a))
	if err != nil {
		return nil, fmt.Errorf("query ensembl genes: %w", err)
	}
	defer rows.Close()

	var genes []*cache.EnsemblGene
	for rows.Next() {
		var (
			g        cache.EnsemblGene
			assembly string
			strand   int
		)
		if err := rows.Scan(&g.ID, &assembly, &g.EntrezGeneID, &g.Canonical, &g.Chrom, &g.Start, &g.End, &strand); err != nil {
			return nil, fmt.Errorf("scan ensembl gene: %w", err)
		}
		g.Assembly = genome.Assembly(assembly)
		g.Strand = int8(strand)
		genes = append(genes, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ensembl genes: %w", err)
	}
	return genes, nil
}

const transcriptColumns = `ensembl_transcript_id, reference_genome, entrez_gene_id, hugo_symbol,
	ensembl_protein_id, ensembl_gene_id, refseq_id, biotype, canonical,
	chromosome, start_pos, end_pos, strand, protein_length`

// SaveTranscript inserts a transcript or updates its metadata, and replaces
// its fragments. The canonical flag is not written: new transcripts start
// non-canonical and only SetCanonicalTranscript and DemoteTranscript change
// it.
func (s *Store) SaveTranscript(ctx context.Context, t *cache.Transcript) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO transcripts (`+transcriptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, false, ?, ?, ?, ?, ?)
		ON CONFLICT (ensembl_transcript_id, reference_genome) DO UPDATE SET
			entrez_gene_id = excluded.entrez_gene_id,
			hugo_symbol = excluded.hugo_symbol,
			ensembl_protein_id = excluded.ensembl_protein_id,
			ensembl_gene_id = excluded.ensembl_gene_id,
			refseq_id = excluded.refseq_id,
			biotype = excluded.biotype,
			chromosome = excluded.chromosome,
			start_pos = excluded.start_pos,
			end_pos = excluded.end_pos,
			strand = excluded.strand,
			protein_length = excluded.protein_length`,
		t.ID, string(t.Assembly), t.EntrezGeneID, t.HugoSymbol,
		t.ProteinID, t.GeneID, t.RefSeqID, t.Biotype,
		t.Chrom, t.Start, t.End, int(t.Strand), t.ProteinLength,
	); err != nil {
		return fmt.Errorf("save transcript %s: %w", t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM fragments WHERE ensembl_transcript_id = ? AND reference_genome = ?`,
		t.ID, string(t.Assembly)); err != nil {
		return fmt.Errorf("clear fragments of %s: %w", t.ID, err)
	}

	if len(t.Fragments) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO fragments
			(ensembl_transcript_id, reference_genome, type, exon_rank, chromosome, start_pos, end_pos, strand)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare fragment insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range t.Fragments {
			if _, err := stmt.ExecContext(ctx, t.ID, string(t.Assembly), string(f.Type), f.Rank,
				f.Chrom, f.Start, f.End, int(f.Strand)); err != nil {
				return fmt.Errorf("save fragment of %s: %w", t.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transcript %s: %w", t.ID, err)
	}
	return nil
}

// SetCanonicalTranscript makes transcriptID the only canonical transcript of
// the gene on the assembly. Demotion and promotion happen in one statement,
// so readers never see two canonical transcripts. Returns the number of
// transcripts whose flag changed.
func (s *Store) SetCanonicalTranscript(ctx context.Context, entrezGeneID int, a genome.Assembly, transcriptID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE transcripts
		SET canonical = (ensembl_transcript_id = ?)
		WHERE entrez_gene_id = ? AND reference_genome = ?
			AND canonical <> (ensembl_transcript_id = ?)`,
		transcriptID, entrezGeneID, string(a), transcriptID)
	if err != nil {
		return 0, fmt.Errorf("set canonical transcript %s: %w", transcriptID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set canonical transcript %s: %w", transcriptID, err)
	}
	return n, nil
}

// DemoteTranscript clears the canonical flag of a transcript.
func (s *Store) DemoteTranscript(ctx context.Context, a genome.Assembly, transcriptID string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE transcripts SET canonical = false
		WHERE ensembl_transcript_id = ? AND reference_genome = ? AND canonical`,
		transcriptID, string(a)); err != nil {
		return fmt.Errorf("demote transcript %s: %w", transcriptID, err)
	}
	return nil
}

// FindTranscript returns a transcript with its fragments, or nil if absent.
func (s *Store) FindTranscript(ctx context.Context, a genome.Assembly, transcriptID string) (*cache.Transcript, error) {
	return s.findOneTranscript(ctx, `ensembl_transcript_id = ? AND reference_genome = ?`, cache.StripVersion(transcriptID), string(a))
}

// FindCanonicalTranscript returns the canonical transcript of the gene on
// the assembly, or nil if none is canonical.
func (s *Store) FindCanonicalTranscript(ctx context.Context, entrezGeneID int, a genome.Assembly) (*cache.Transcript, error) {
	return s.findOneTranscript(ctx, `entrez_gene_id = ? AND reference_genome = ? AND canonical`, entrezGeneID, string(a))
}

// FindTranscriptsByGene returns the transcripts of a gene on an assembly,
// ordered by transcript ID.
func (s *Store) FindTranscriptsByGene(ctx context.Context, entrezGeneID int, a genome.Assembly) ([]*cache.Transcript, error) {
	return s.findTranscripts(ctx, `entrez_gene_id = ? AND reference_genome = ?`, entrezGeneID, string(a))
}

func (s *Store) findOneTranscript(ctx context.Context, where string, args ...any) (*cache.Transcript, error) {
	ts, err := s.findTranscripts(ctx, where, args...)
	if err != nil || len(ts) == 0 {
		return nil, err
	}
	return ts[0], nil
}

func (s *Store) findTranscripts(ctx context.Context, where string, args ...any) ([]*cache.Transcript, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+transcriptColumns+`
		FROM transcripts WHERE `+where+` ORDER BY ensembl_transcript_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var ts []*cache.Transcript
	for rows.Next() {
		var (
			t        cache.Transcript
			assembly string
			strand   int
		)
		if err := rows.Scan(
			&t.ID, &assembly, &t.EntrezGeneID, &t.HugoSymbol,
			&t.ProteinID, &t.GeneID, &t.RefSeqID, &t.Biotype, &t.Canonical,
			&t.Chrom, &t.Start, &t.End, &strand, &t.ProteinLength,
		); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		t.Assembly = genome.Assembly(assembly)
		t.Strand = int8(strand)
		ts = append(ts, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}
	rows.Close()

	for _, t := range ts {
		frags, err := s.fragments(ctx, t.Assembly, t.ID)
		if err != nil {
			return nil, err
		}
		t.Fragments = frags
	}
	return ts, nil
}

// fragments returns exons in rank order followed by UTRs in genomic order.
func (s *Store) fragments(ctx context.Context, a genome.Assembly, transcriptID string) ([]cache.Fragment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, exon_rank, chromosome, start_pos, end_pos, strand
		FROM fragments
		WHERE ensembl_transcript_id = ? AND reference_genome = ?
		ORDER BY type = 'EXON' DESC, exon_rank, start_pos`, transcriptID, string(a))
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	defer rows.Close()

	var frags []cache.Fragment
	for rows.Next() {
		var (
			f      cache.Fragment
			typ    string
			strand int
		)
		if err := rows.Scan(&typ, &f.Rank, &f.Chrom, &f.Start, &f.End, &strand); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		f.Type = cache.FragmentType(typ)
		f.Strand = int8(strand)
		frags = append(frags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fragments: %w", err)
	}
	return frags, nil
}

// CountCanonical returns how many transcripts of the gene on the assembly
// are flagged canonical.
func (s *Store) CountCanonical(ctx context.Context, entrezGeneID int, a genome.Assembly) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM transcripts
		WHERE entrez_gene_id = ? AND reference_genome = ? AND canonical`, entrezGeneID, string(a)).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count canonical transcripts: %w", err)
	}
	return n, nil
}
