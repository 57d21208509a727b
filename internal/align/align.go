// Package align computes pairwise global alignments between protein sequences.
//
// The scoring scheme is unit cost: a match costs 0, a substitution 1 and every
// gap column 1. The penalty of an alignment is its total cost, so lower is
// better and two identical sequences align with penalty 0.
package align

import (
	"errors"
	"strings"
)

// ErrInvalidSequence is returned when an input sequence is empty.
var ErrInvalidSequence = errors.New("invalid sequence")

// GapChar is written into aligned sequences where a residue is missing.
const GapChar = '-'

const (
	matchCost    = 0
	mismatchCost = 1
	gapCost      = 1
)

// pointer records which neighbour a DP cell was reached from.
type pointer uint8

const (
	fromNone pointer = iota
	fromDiag
	fromUp   // reference residue against a gap
	fromLeft // target residue against a gap
)

// Mismatch is an aligned column where both residues are present but differ.
// Position is the 0-based index of the residue in the reference sequence.
type Mismatch struct {
	Position int
	Ref      byte
	Target   byte
}

// Result holds an alignment and its penalty.
type Result struct {
	AlignedReference string
	AlignedTarget    string
	Mismatches       []Mismatch
	Penalty          int
}

// Align computes a minimum-penalty alignment of target against reference.
//
// With forceGlobal set, both sequences are aligned end to end and leading or
// trailing gaps are charged like any other gap. Without it, end gaps on either
// sequence are free, so a reference contained in a longer target aligns with
// the cost of its internal differences only.
//
// Ties between equally cheap paths are broken the same way on every call
// (substitution, then gap in target, then gap in reference), so the result is
// deterministic. For equal-length inputs the penalty never exceeds the
// positional mismatch count.
func Align(reference, target string, forceGlobal bool) (*Result, error) {
	if reference == "" || target == "" {
		return nil, ErrInvalidSequence
	}

	n, m := len(reference), len(target)
	width := m + 1
	ptrs := make([]pointer, (n+1)*width)

	// Two rolling cost rows plus the last column, which end-gap-free
	// alignment needs when choosing where the path ends.
	prev := make([]int, width)
	cur := make([]int, width)
	lastCol := make([]int, n+1)

	for j := 1; j <= m; j++ {
		if forceGlobal {
			prev[j] = j * gapCost
		}
		ptrs[j] = fromLeft
	}
	lastCol[0] = prev[m]

	for i := 1; i <= n; i++ {
		cur[0] = 0
		if forceGlobal {
			cur[0] = i * gapCost
		}
		row := i * width
		ptrs[row] = fromUp
		r := reference[i-1]
		for j := 1; j <= m; j++ {
			best := prev[j-1] + substitutionCost(r, target[j-1])
			p := fromDiag
			if up := prev[j] + gapCost; up < best {
				best, p = up, fromUp
			}
			if left := cur[j-1] + gapCost; left < best {
				best, p = left, fromLeft
			}
			cur[j] = best
			ptrs[row+j] = p
		}
		lastCol[i] = cur[m]
		prev, cur = cur, prev
	}

	// prev now holds the last row.
	endI, endJ, penalty := n, m, prev[m]
	if !forceGlobal {
		// Ending in row or column 0 would leave one sequence entirely unaligned.
		for j := 1; j < m; j++ {
			if prev[j] < penalty {
				endI, endJ, penalty = n, j, prev[j]
			}
		}
		for i := 1; i < n; i++ {
			if lastCol[i] < penalty {
				endI, endJ, penalty = i, m, lastCol[i]
			}
		}
	}

	return traceback(reference, target, ptrs, width, endI, endJ, penalty), nil
}

func substitutionCost(a, b byte) int {
	if a == b {
		return matchCost
	}
	return mismatchCost
}

// traceback walks the pointer matrix from (endI, endJ) back to the origin.
// Columns are collected in reverse and flipped at the end.
func traceback(reference, target string, ptrs []pointer, width, endI, endJ, penalty int) *Result {
	n, m := len(reference), len(target)
	alnRef := make([]byte, 0, n+m)
	alnTgt := make([]byte, 0, n+m)
	var mismatches []Mismatch

	// Free trailing overhang (end-gap-free mode only).
	for i := n; i > endI; i-- {
		alnRef = append(alnRef, reference[i-1])
		alnTgt = append(alnTgt, GapChar)
	}
	for j := m; j > endJ; j-- {
		alnRef = append(alnRef, GapChar)
		alnTgt = append(alnTgt, target[j-1])
	}

	i, j := endI, endJ
	for i > 0 || j > 0 {
		var p pointer
		switch {
		case i == 0:
			p = fromLeft
		case j == 0:
			p = fromUp
		default:
			p = ptrs[i*width+j]
		}

		switch p {
		case fromDiag:
			r, t := reference[i-1], target[j-1]
			alnRef = append(alnRef, r)
			alnTgt = append(alnTgt, t)
			if r != t {
				mismatches = append(mismatches, Mismatch{Position: i - 1, Ref: r, Target: t})
			}
			i--
			j--
		case fromUp:
			alnRef = append(alnRef, reference[i-1])
			alnTgt = append(alnTgt, GapChar)
			i--
		default:
			alnRef = append(alnRef, GapChar)
			alnTgt = append(alnTgt, target[j-1])
			j--
		}
	}

	reverseBytes(alnRef)
	reverseBytes(alnTgt)
	for a, b := 0, len(mismatches)-1; a < b; a, b = a+1, b-1 {
		mismatches[a], mismatches[b] = mismatches[b], mismatches[a]
	}

	return &Result{
		AlignedReference: string(alnRef),
		AlignedTarget:    string(alnTgt),
		Mismatches:       mismatches,
		Penalty:          penalty,
	}
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// Identity returns the fraction of aligned columns whose residues match.
func (r *Result) Identity() float64 {
	if len(r.AlignedReference) == 0 {
		return 0
	}
	same := 0
	for i := 0; i < len(r.AlignedReference); i++ {
		if r.AlignedReference[i] != GapChar && r.AlignedReference[i] == r.AlignedTarget[i] {
			same++
		}
	}
	return float64(same) / float64(len(r.AlignedReference))
}

// Gaps returns the number of gap columns.
func (r *Result) Gaps() int {
	return strings.Count(r.AlignedReference, string(GapChar)) +
		strings.Count(r.AlignedTarget, string(GapChar))
}

// String renders the alignment as three lines: reference, match bar, target.
// The bar shows '|' for a match, '.' for a substitution and ' ' for a gap.
func (r *Result) String() string {
	bar := make([]byte, len(r.AlignedReference))
	for i := range bar {
		a, b := r.AlignedReference[i], r.AlignedTarget[i]
		switch {
		case a == GapChar || b == GapChar:
			bar[i] = ' '
		case a == b:
			bar[i] = '|'
		default:
			bar[i] = '.'
		}
	}
	return r.AlignedReference + "\n" + string(bar) + "\n" + r.AlignedTarget
}
