package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hamming(a, b string) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

func TestAlign_Identical(t *testing.T) {
	for _, seq := range []string{"M", "MDVLA", "MAALSGGGGGGAEPGQALFNGDMEPEAGAGAGAAASSAADPAIPEEVWNIKQMIKLTQEH"} {
		t.Run(seq, func(t *testing.T) {
			res, err := Align(seq, seq, true)
			require.NoError(t, err)
			assert.Equal(t, 0, res.Penalty)
			assert.Empty(t, res.Mismatches)
			assert.Equal(t, seq, res.AlignedReference)
			assert.Equal(t, seq, res.AlignedTarget)
			assert.InDelta(t, 1.0, res.Identity(), 1e-9)
		})
	}
}

func TestAlign_EqualLengthSubstitutions(t *testing.T) {
	tests := []struct {
		ref, tgt string
	}{
		{"MDVLA", "MDVLK"},
		{"MDVLAKRSTE", "MDVQAKRSWE"},
		{"MTEYKLVVVGAGGVGKSALT", "MTEYKLVVVGACGVGKSALT"},
		{"MTEYKLVVVGAGGVGKSALT", "MTEYKLVVVGADGVGKSALI"},
	}
	for _, tt := range tests {
		t.Run(tt.ref+"/"+tt.tgt, func(t *testing.T) {
			res, err := Align(tt.ref, tt.tgt, true)
			require.NoError(t, err)
			assert.Equal(t, hamming(tt.ref, tt.tgt), res.Penalty)
			assert.Len(t, res.Mismatches, res.Penalty)
			assert.Equal(t, 0, res.Gaps())
		})
	}
}

func TestAlign_MismatchPositions(t *testing.T) {
	res, err := Align("MDVLA", "MDVLK", true)
	require.NoError(t, err)
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, Mismatch{Position: 4, Ref: 'A', Target: 'K'}, res.Mismatches[0])
}

func TestAlign_PenaltyNeverExceedsPositionalMismatches(t *testing.T) {
	// A rotation is cheaper with two gaps than with four substitutions.
	res, err := Align("ABCD", "BCDA", true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Penalty)
	assert.LessOrEqual(t, res.Penalty, hamming("ABCD", "BCDA"))
}

func TestAlign_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"MDVLA", "MDLA"},
		{"MDV", "XXMDVYY"},
		{"MTEYKLVVVGAGGVGKSALT", "MTEYKLVVGAGDVGKSAL"},
		{"ABCD", "BCDA"},
		{"W", "MDVLAKRSTE"},
	}
	for _, p := range pairs {
		for _, global := range []bool{true, false} {
			ab, err := Align(p[0], p[1], global)
			require.NoError(t, err)
			ba, err := Align(p[1], p[0], global)
			require.NoError(t, err)
			assert.Equal(t, ab.Penalty, ba.Penalty, "%s vs %s global=%v", p[0], p[1], global)
		}
	}
}

func TestAlign_Deletion(t *testing.T) {
	res, err := Align("MDVLA", "MDLA", true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Penalty)
	assert.Equal(t, "MDVLA", res.AlignedReference)
	assert.Equal(t, "MD-LA", res.AlignedTarget)
	assert.Empty(t, res.Mismatches, "gaps are not mismatches")
	assert.Equal(t, 1, res.Gaps())
}

func TestAlign_GlobalVersusEndGapFree(t *testing.T) {
	global, err := Align("MDV", "XXMDVYY", true)
	require.NoError(t, err)
	assert.Equal(t, 4, global.Penalty)
	assert.Len(t, global.AlignedReference, len(global.AlignedTarget))

	local, err := Align("MDV", "XXMDVYY", false)
	require.NoError(t, err)
	assert.Equal(t, 0, local.Penalty)
	assert.Equal(t, "--MDV--", local.AlignedReference)
	assert.Equal(t, "XXMDVYY", local.AlignedTarget)
}

func TestAlign_Deterministic(t *testing.T) {
	first, err := Align("MTEYKLVVVGAGGVGKSALT", "MTEYKLVVGAGDVGKSAL", true)
	require.NoError(t, err)
	for n := 0; n < 10; n++ {
		again, err := Align("MTEYKLVVVGAGGVGKSALT", "MTEYKLVVGAGDVGKSAL", true)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAlign_InvalidSequence(t *testing.T) {
	_, err := Align("", "MDV", true)
	assert.ErrorIs(t, err, ErrInvalidSequence)
	_, err = Align("MDV", "", false)
	assert.ErrorIs(t, err, ErrInvalidSequence)
}

func TestResult_String(t *testing.T) {
	res, err := Align("MDVLA", "MDLK", true)
	require.NoError(t, err)
	assert.Equal(t, "MDVLA\n|| |.\nMD-LK", res.String())
}

func TestAlign_EndGapFreeStillAlignsSomething(t *testing.T) {
	res, err := Align("W", "MDVLAKRSTE", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Penalty)
}
