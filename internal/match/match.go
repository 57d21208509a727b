// Package match picks the transcript on another assembly whose protein
// sequence best corresponds to a reference transcript.
package match

import (
	"fmt"
	"strings"

	"github.com/inodb/oncokb-transcript/internal/align"
	"github.com/inodb/oncokb-transcript/internal/cache"
)

// Tier identifies which rule selected the target.
type Tier int

const (
	TierNone Tier = iota
	TierSameSequence
	TierSameLengthMismatch
	TierLongerSuperset
)

func (t Tier) String() string {
	switch t {
	case TierSameSequence:
		return "same_sequence"
	case TierSameLengthMismatch:
		return "same_length_mismatch"
	case TierLongerSuperset:
		return "longer_superset"
	}
	return "none"
}

// Curator-facing notes.
const (
	NoteSameSequence = "Same sequence"
	NoteNoMatch      = "No matched sequence found"
)

// Result is the outcome of a match. Note is always set so a curator can
// judge the automatic pick.
type Result struct {
	Target     *cache.Transcript
	Tier       Tier
	Note       string
	Mismatches []align.Mismatch // tier 2 only
}

// Match selects the candidate whose protein sequence best corresponds to
// referenceSequence. sequences maps Ensembl protein ID to sequence.
//
// Rules, first satisfied wins:
//  1. a candidate of equal length with an identical sequence
//  2. the equal-length candidate with the fewest positional mismatches
//  3. when no candidate has equal length, the longest strictly longer
//     candidate containing the reference as a contiguous substring
//
// Ties always go to the candidate that comes first in input order.
// Candidates without a protein ID or without a fetched sequence are ignored,
// as is a candidate that is the reference itself.
func Match(reference *cache.Transcript, referenceSequence string, candidates []*cache.Transcript, sequences map[string]string) (*Result, error) {
	if referenceSequence == "" {
		return nil, fmt.Errorf("reference sequence: %w", align.ErrInvalidSequence)
	}

	type scored struct {
		t   *cache.Transcript
		seq string
	}
	var sameLength, longer []scored
	for _, c := range candidates {
		if c == nil || c.ProteinID == "" {
			continue
		}
		if reference != nil && c.ID == reference.ID && c.Assembly == reference.Assembly {
			continue
		}
		seq, ok := sequences[c.ProteinID]
		if !ok || seq == "" {
			continue
		}
		switch {
		case len(seq) == len(referenceSequence):
			sameLength = append(sameLength, scored{c, seq})
		case len(seq) > len(referenceSequence):
			longer = append(longer, scored{c, seq})
		}
	}

	if len(sameLength) > 0 {
		for _, s := range sameLength {
			if s.seq == referenceSequence {
				return &Result{Target: s.t, Tier: TierSameSequence, Note: NoteSameSequence}, nil
			}
		}

		var best scored
		var bestMismatches []align.Mismatch
		for i, s := range sameLength {
			mm := Mismatches(referenceSequence, s.seq)
			if i == 0 || len(mm) < len(bestMismatches) {
				best, bestMismatches = s, mm
			}
		}
		return &Result{
			Target:     best.t,
			Tier:       TierSameLengthMismatch,
			Note:       fmt.Sprintf("Same length, but mismatch: %d. %s", len(bestMismatches), FormatMismatches(bestMismatches)),
			Mismatches: bestMismatches,
		}, nil
	}

	var pick *scored
	for i := range longer {
		s := &longer[i]
		if !strings.Contains(s.seq, referenceSequence) {
			continue
		}
		if pick == nil || len(s.seq) > len(pick.seq) {
			pick = s
		}
	}
	if pick != nil {
		return &Result{
			Target: pick.t,
			Tier:   TierLongerSuperset,
			Note:   fmt.Sprintf("Longer one found, length: %d", len(pick.seq)),
		}, nil
	}

	return &Result{Tier: TierNone, Note: NoteNoMatch}, nil
}

// Mismatches compares two equal-length sequences position by position.
// Positions are 0-based indexes into ref. Extra residues in the longer
// sequence are ignored.
func Mismatches(ref, other string) []align.Mismatch {
	n := min(len(ref), len(other))
	var mm []align.Mismatch
	for i := 0; i < n; i++ {
		if ref[i] != other[i] {
			mm = append(mm, align.Mismatch{Position: i, Ref: ref[i], Target: other[i]})
		}
	}
	return mm
}

// FormatMismatches renders mismatches as "(position, ref, target)" triples.
func FormatMismatches(mm []align.Mismatch) string {
	parts := make([]string, len(mm))
	for i, m := range mm {
		parts[i] = fmt.Sprintf("(%d, %c, %c)", m.Position, m.Ref, m.Target)
	}
	return strings.Join(parts, ", ")
}
