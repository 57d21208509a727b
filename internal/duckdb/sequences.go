package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// SaveSequence inserts or replaces a protein sequence.
func (s *Store) SaveSequence(ctx context.Context, seq cache.ProteinSequence) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sequences
		(ensembl_protein_id, reference_genome, ensembl_transcript_id, sequence)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ensembl_protein_id, reference_genome) DO UPDATE SET
			ensembl_transcript_id = excluded.ensembl_transcript_id,
			sequence = excluded.sequence`,
		seq.ProteinID, string(seq.Assembly), seq.TranscriptID, seq.Sequence)
	if err != nil {
		return fmt.Errorf("save sequence %s: %w", seq.ProteinID, err)
	}
	return nil
}

// FindSequence returns the stored protein sequence. ok is false if absent.
func (s *Store) FindSequence(ctx context.Context, a genome.Assembly, proteinID string) (cache.ProteinSequence, bool, error) {
	seq := cache.ProteinSequence{ProteinID: cache.StripVersion(proteinID), Assembly: a}
	err := s.db.QueryRowContext(ctx, `SELECT ensembl_transcript_id, sequence FROM sequences
		WHERE ensembl_protein_id = ? AND reference_genome = ?`, seq.ProteinID, string(a)).Scan(&seq.TranscriptID, &seq.Sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.ProteinSequence{}, false, nil
	}
	if err != nil {
		return cache.ProteinSequence{}, false, fmt.Errorf("query sequence %s: %w", proteinID, err)
	}
	return seq, true, nil
}
