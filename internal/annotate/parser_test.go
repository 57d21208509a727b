package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProteinChange(t *testing.T) {
	tests := []struct {
		input      string
		alteration string
		term       string
		start, end int
		ref, alt   string
	}{
		// Substitutions
		{"V600E", "V600E", ConsequenceMissenseVariant, 600, 600, "V", "E"},
		{"p.V600E", "V600E", ConsequenceMissenseVariant, 600, 600, "V", "E"},
		{"p.Val600Glu", "V600E", ConsequenceMissenseVariant, 600, 600, "V", "E"},
		{"  V600E ", "V600E", ConsequenceMissenseVariant, 600, 600, "V", "E"},
		{"V600V", "V600V", ConsequenceSynonymousVariant, 600, 600, "V", "V"},
		{"V600=", "V600V", ConsequenceSynonymousVariant, 600, 600, "V", "V"},
		{"R213*", "R213*", ConsequenceStopGained, 213, 213, "R", "*"},
		{"R213X", "R213*", ConsequenceStopGained, 213, 213, "R", "*"},
		{"p.Arg213Ter", "R213*", ConsequenceStopGained, 213, 213, "R", "*"},
		{"M1?", "M1?", ConsequenceStartLost, 1, 1, "M", ""},
		{"M1I", "M1I", ConsequenceStartLost, 1, 1, "M", "I"},
		{"*757L", "*757L", ConsequenceStopLost, 757, 757, "*", "L"},

		// Deletions, insertions, delins, duplications
		{"V600del", "V600del", ConsequenceInframeDeletion, 600, 600, "V", ""},
		{"E746_A750del", "E746_A750del", ConsequenceInframeDeletion, 746, 750, "", ""},
		{"E746_A750delELREA", "E746_A750delELREA", ConsequenceInframeDeletion, 746, 750, "ELREA", ""},
		{"A767_V769insASV", "A767_V769insASV", ConsequenceInframeInsertion, 767, 769, "", "ASV"},
		{"E746_T751delinsA", "E746_T751delinsA", ConsequenceInframeDeletion, 746, 751, "", "A"},
		{"V600delinsEK", "V600delinsEK", ConsequenceInframeInsertion, 600, 600, "V", "EK"},
		{"V600_K601delinsEE", "V600_K601delinsEE", ConsequenceMissenseVariant, 600, 601, "", "EE"},
		{"Q61delins*", "Q61delins*", ConsequenceStopGained, 61, 61, "Q", "*"},
		{"A767_V769dup", "A767_V769dup", ConsequenceInframeInsertion, 767, 769, "", ""},

		// Frameshift and stop lost
		{"Q61fs", "Q61fs", ConsequenceFrameshiftVariant, 61, 61, "Q", ""},
		{"Q61Rfs*5", "Q61Rfs*5", ConsequenceFrameshiftVariant, 61, 61, "Q", "R"},
		{"p.Gln61ArgfsTer5", "Q61Rfs*5", ConsequenceFrameshiftVariant, 61, 61, "Q", "R"},
		{"*757Lext*?", "*757Lext*?", ConsequenceStopLost, 757, 757, "*", "L"},

		// Positions and ranges
		{"V600", "V600", ConsequenceAny, 600, 600, "V", ""},
		{"600", "600", ConsequenceAny, 600, 600, "", ""},
		{"600_610mut", "600_610mut", ConsequenceAny, 600, 610, "", ""},
		{"X123_splice", "X123_splice", ConsequenceSpliceRegion, 123, 123, "", ""},
		{"Truncating Mutations", "Truncating Mutations", ConsequenceFeatureTruncation, 0, 0, "", ""},

		// Structural and copy number
		{"Fusions", "Fusions", ConsequenceStructuralVariant, 0, 0, "", ""},
		{"fusion", "Fusions", ConsequenceStructuralVariant, 0, 0, "", ""},
		{"BCR-ABL1 Fusion", "BCR-ABL1 Fusion", ConsequenceStructuralVariant, 0, 0, "", ""},
		{"Amplification", "Amplification", ConsequenceCopyNumber, 0, 0, "", ""},
		{"deletion", "Deletion", ConsequenceCopyNumber, 0, 0, "", ""},
		{"Gain", "Gain", ConsequenceCopyNumber, 0, 0, "", ""},
		{"Loss", "Loss", ConsequenceCopyNumber, 0, 0, "", ""},
		{"Intragenic deletion", "Intragenic deletion", ConsequenceStructuralVariant, 0, 0, "", ""},
		{"Rearrangement", "Rearrangement", ConsequenceStructuralVariant, 0, 0, "", ""},
		{"Exon 19 deletion", "Exon 19 deletion", ConsequenceStructuralVariant, 0, 0, "", ""},
		{"Exon 2-7 Deletion", "Exon 2-7 deletion", ConsequenceStructuralVariant, 0, 0, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pc, err := ParseProteinChange(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.alteration, pc.Alteration, "alteration")
			assert.Equal(t, tt.term, pc.Term, "term")
			assert.Equal(t, tt.start, pc.ProteinStart, "start")
			assert.Equal(t, tt.end, pc.ProteinEnd, "end")
			assert.Equal(t, tt.ref, pc.RefResidues, "ref")
			assert.Equal(t, tt.alt, pc.VariantResidues, "variant")
		})
	}
}

func TestParseProteinChange_FusionGenes(t *testing.T) {
	pc, err := ParseProteinChange("bcr-abl1 fusion")
	require.NoError(t, err)
	assert.Equal(t, []string{"BCR", "ABL1"}, pc.Genes)
	assert.Equal(t, "BCR-ABL1 Fusion", pc.Alteration)

	pc, err = ParseProteinChange("Fusions")
	require.NoError(t, err)
	assert.Empty(t, pc.Genes)
}

func TestParseProteinChange_Unparsable(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"not an alteration",
		"V0E",
		"V600?",
		"E750_A746del",
		"A767insASV",
		"chr7:140453136:A:T",
		"p.Xyz600Glu",
		"B600E",
		"V600J",
		"A767_V769insAZV",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseProteinChange(input)
			assert.ErrorIs(t, err, ErrUnparsableAlteration)
		})
	}
}

func TestIsAminoAcid(t *testing.T) {
	for _, aa := range []byte("ACDEFGHIKLMNPQRSTVWY") {
		assert.True(t, IsAminoAcid(aa), "%c", aa)
	}
	for _, aa := range []byte("*XBJOUZ1a") {
		assert.False(t, IsAminoAcid(aa), "%c", aa)
	}
}
