package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inodb/oncokb-transcript/internal/annotate"
)

// SeedConsequences inserts consequences whose term is not stored yet.
// Existing rows are left untouched.
func (s *Store) SeedConsequences(ctx context.Context, cs []annotate.Consequence) error {
	for _, c := range cs {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO consequences
			(term, kind, is_generally_truncating, description)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (term) DO NOTHING`,
			c.Term, string(c.Kind), c.IsGenerallyTruncating, c.Description); err != nil {
			return fmt.Errorf("seed consequence %s: %w", c.Term, err)
		}
	}
	return nil
}

// FindConsequence returns the consequence with the given term.
func (s *Store) FindConsequence(ctx context.Context, term string) (annotate.Consequence, bool, error) {
	var (
		c    annotate.Consequence
		kind string
	)
	err := s.db.QueryRowContext(ctx, `SELECT term, kind, is_generally_truncating, description
		FROM consequences WHERE term = ?`, term).Scan(&c.Term, &kind, &c.IsGenerallyTruncating, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return annotate.Consequence{}, false, nil
	}
	if err != nil {
		return annotate.Consequence{}, false, fmt.Errorf("query consequence %s: %w", term, err)
	}
	c.Kind = annotate.ConsequenceKind(kind)
	return c, true, nil
}
