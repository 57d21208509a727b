package annotate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparsableAlteration is returned when alteration text does not match
// any supported protein-change form.
var ErrUnparsableAlteration = errors.New("unparsable alteration")

// ProteinChange is the structured form of a protein-change string.
type ProteinChange struct {
	Alteration      string   // Normalized one-letter form
	Term            string   // Consequence term, empty if the parser cannot tell
	ProteinStart    int      // 1-based, 0 if not position based
	ProteinEnd      int      // 1-based, inclusive
	RefResidues     string   // Reference residues when stated
	VariantResidues string   // Variant residues when stated
	Genes           []string // Gene symbols named in the text (fusions)
}

// Regexes for non-positional forms. Matched case-insensitively on the
// trimmed input.
var (
	reTruncating   = regexp.MustCompile(`(?i)^truncating\s+mutations?$`)
	reFusion       = regexp.MustCompile(`(?i)^(?:([A-Z0-9]+(?:[-:][A-Z0-9]+)*)\s+)?fusions?$`)
	reCopyNumber   = regexp.MustCompile(`(?i)^(amplification|deletion|gain|loss)$`)
	reIntragenic   = regexp.MustCompile(`(?i)^intragenic\s+deletion$`)
	reRearrange    = regexp.MustCompile(`(?i)^rearrangements?$`)
	reExonDeletion = regexp.MustCompile(`(?i)^exon\s+(\d+)(?:\s*-\s*(\d+))?\s+(deletion|insertion|duplication)s?$`)
)

// Regexes for positional forms on the one-letter, "p."-stripped input.
var (
	// Three-letter amino acid code: Val, Glu, Ter
	reThreeLetter = regexp.MustCompile(`[A-Z][a-z]{2}`)
	// Substitution: V600E, V600=, R213*, R213X, M1?
	reSubstitution = regexp.MustCompile(`^([A-Z*])(\d+)([A-Z*=?])$`)
	// Position or range only: V600, 600, 600_610mut
	rePosition = regexp.MustCompile(`^([A-Z*])?(\d+)$`)
	reRangeMut = regexp.MustCompile(`^([A-Z*])?(\d+)_([A-Z*])?(\d+)mut$`)
	// Deletion: V600del, E746_A750del, E746_A750delELREA
	reDeletion = regexp.MustCompile(`^([A-Z])(\d+)(?:_([A-Z])(\d+))?del([A-Z]*)$`)
	// Insertion: A767_V769insASV
	reInsertion = regexp.MustCompile(`^([A-Z])(\d+)_([A-Z])(\d+)ins([A-Z*]+)$`)
	// Deletion-insertion: E746_T751delinsA, V600delinsEK
	reDelins = regexp.MustCompile(`^([A-Z])(\d+)(?:_([A-Z])(\d+))?delins([A-Z*]+)$`)
	// Duplication: A767_V769dup, V600dup
	reDup = regexp.MustCompile(`^([A-Z])(\d+)(?:_([A-Z])(\d+))?dup$`)
	// Frameshift: Q61fs, Q61Rfs*5, Q61Rfs*?
	reFrameshift = regexp.MustCompile(`^([A-Z])(\d+)([A-Z])?fs(?:\*(?:\d+|\?))?$`)
	// Stop lost: *757Lext*?, *757ext*12
	reExtension = regexp.MustCompile(`^\*(\d+)([A-Z])?ext(?:\*(?:\d+|\?))?$`)
	// Splice: X123_splice, 123_splice
	reSplice = regexp.MustCompile(`^(?:[A-Z])?(\d+)(?:_(?:[A-Z])?(\d+))?_?splice$`)
)

// ParseProteinChange parses a protein-change string such as "V600E",
// "p.Val600Glu", "E746_A750del", "BCR-ABL1 Fusion" or "Amplification".
func ParseProteinChange(raw string) (*ProteinChange, error) {
	input := strings.Join(strings.Fields(raw), " ")
	if input == "" {
		return nil, fmt.Errorf("%w: empty alteration", ErrUnparsableAlteration)
	}

	if pc, ok := parseNamed(input); ok {
		return pc, nil
	}

	s := strings.TrimPrefix(input, "p.")
	s = toOneLetter(s)

	for _, parse := range []func(string) (*ProteinChange, bool){
		parseSubstitution,
		parsePosition,
		parseRangeMut,
		parseDelins,
		parseDeletion,
		parseInsertion,
		parseDup,
		parseFrameshift,
		parseExtension,
		parseSplice,
	} {
		if pc, ok := parse(s); ok {
			if !validResidues(pc.RefResidues) || !validResidues(pc.VariantResidues) {
				return nil, fmt.Errorf("%w: unknown residue in %q", ErrUnparsableAlteration, raw)
			}
			return pc, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnparsableAlteration, raw)
}

// validResidues reports whether every residue is a standard amino acid or a stop.
func validResidues(residues string) bool {
	for i := 0; i < len(residues); i++ {
		if residues[i] != '*' && !IsAminoAcid(residues[i]) {
			return false
		}
	}
	return true
}

func parseNamed(input string) (*ProteinChange, bool) {
	switch {
	case reTruncating.MatchString(input):
		return &ProteinChange{Alteration: "Truncating Mutations", Term: ConsequenceFeatureTruncation}, true

	case reFusion.MatchString(input):
		m := reFusion.FindStringSubmatch(input)
		if m[1] == "" {
			return &ProteinChange{Alteration: "Fusions", Term: ConsequenceStructuralVariant}, true
		}
		genes := strings.FieldsFunc(strings.ToUpper(m[1]), func(r rune) bool { return r == '-' || r == ':' })
		return &ProteinChange{
			Alteration: strings.Join(genes, "-") + " Fusion",
			Term:       ConsequenceStructuralVariant,
			Genes:      genes,
		}, true

	case reCopyNumber.MatchString(input):
		return &ProteinChange{Alteration: titleCase(input), Term: ConsequenceCopyNumber}, true

	case reIntragenic.MatchString(input):
		return &ProteinChange{Alteration: "Intragenic deletion", Term: ConsequenceStructuralVariant}, true

	case reRearrange.MatchString(input):
		return &ProteinChange{Alteration: "Rearrangement", Term: ConsequenceStructuralVariant}, true

	case reExonDeletion.MatchString(input):
		m := reExonDeletion.FindStringSubmatch(input)
		exons := m[1]
		if m[2] != "" {
			exons += "-" + m[2]
		}
		return &ProteinChange{
			Alteration: "Exon " + exons + " " + strings.ToLower(m[3]),
			Term:       ConsequenceStructuralVariant,
		}, true
	}
	return nil, false
}

// toOneLetter rewrites three-letter residue codes as one-letter codes. Text
// without a recognized code is returned unchanged.
func toOneLetter(s string) string {
	return reThreeLetter.ReplaceAllStringFunc(s, func(code string) string {
		if aa := threeLetterToSingle(code); aa != 0 {
			return string(aa)
		}
		return code
	})
}

func parseSubstitution(s string) (*ProteinChange, bool) {
	m := reSubstitution.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	pos, err := strconv.Atoi(m[2])
	if err != nil || pos < 1 {
		return nil, false
	}
	ref, variant := m[1][0], m[3][0]
	if variant == 'X' {
		variant = '*'
	}

	pc := &ProteinChange{
		ProteinStart: pos,
		ProteinEnd:   pos,
		RefResidues:  string(ref),
	}
	switch {
	case variant == '?':
		if ref != 'M' || pos != 1 {
			return nil, false
		}
		pc.Term = ConsequenceStartLost
	case variant == '=' || variant == ref:
		variant = ref
		pc.Term = ConsequenceSynonymousVariant
	case ref == 'M' && pos == 1:
		pc.Term = ConsequenceStartLost
	case ref == '*':
		pc.Term = ConsequenceStopLost
	case variant == '*':
		pc.Term = ConsequenceStopGained
	default:
		pc.Term = ConsequenceMissenseVariant
	}
	if variant != '?' {
		pc.VariantResidues = string(variant)
	}
	pc.Alteration = fmt.Sprintf("%c%d%s", ref, pos, pc.VariantResidues)
	if variant == '?' {
		pc.Alteration += "?"
	}
	return pc, true
}

func parsePosition(s string) (*ProteinChange, bool) {
	m := rePosition.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	pos, err := strconv.Atoi(m[2])
	if err != nil || pos < 1 {
		return nil, false
	}
	return &ProteinChange{
		Alteration:   m[1] + m[2],
		Term:         ConsequenceAny,
		ProteinStart: pos,
		ProteinEnd:   pos,
		RefResidues:  m[1],
	}, true
}

func parseRangeMut(s string) (*ProteinChange, bool) {
	m := reRangeMut.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	start, end, ok := parseSpan(m[2], m[4])
	if !ok {
		return nil, false
	}
	return &ProteinChange{
		Alteration:   fmt.Sprintf("%d_%dmut", start, end),
		Term:         ConsequenceAny,
		ProteinStart: start,
		ProteinEnd:   end,
	}, true
}

func parseDeletion(s string) (*ProteinChange, bool) {
	m := reDeletion.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	start, end, ok := parseSpan(m[2], m[4])
	if !ok {
		return nil, false
	}
	pc := &ProteinChange{
		Alteration:   s,
		Term:         ConsequenceInframeDeletion,
		ProteinStart: start,
		ProteinEnd:   end,
	}
	switch {
	case m[5] != "" && len(m[5]) == end-start+1:
		pc.RefResidues = m[5]
	case start == end:
		pc.RefResidues = m[1]
	}
	return pc, true
}

func parseInsertion(s string) (*ProteinChange, bool) {
	m := reInsertion.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	start, end, ok := parseSpan(m[2], m[4])
	if !ok || end == start {
		return nil, false
	}
	pc := &ProteinChange{
		Alteration:      s,
		Term:            ConsequenceInframeInsertion,
		ProteinStart:    start,
		ProteinEnd:      end,
		VariantResidues: m[5],
	}
	if strings.Contains(m[5], "*") {
		pc.Term = ConsequenceStopGained
	}
	return pc, true
}

func parseDelins(s string) (*ProteinChange, bool) {
	m := reDelins.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	start, end, ok := parseSpan(m[2], m[4])
	if !ok {
		return nil, false
	}
	pc := &ProteinChange{
		Alteration:      s,
		ProteinStart:    start,
		ProteinEnd:      end,
		VariantResidues: m[5],
	}
	if start == end {
		pc.RefResidues = m[1]
	}

	span := end - start + 1
	switch {
	case strings.Contains(m[5], "*"):
		pc.Term = ConsequenceStopGained
	case len(m[5]) < span:
		pc.Term = ConsequenceInframeDeletion
	case len(m[5]) > span:
		pc.Term = ConsequenceInframeInsertion
	default:
		pc.Term = ConsequenceMissenseVariant
	}
	return pc, true
}

func parseDup(s string) (*ProteinChange, bool) {
	m := reDup.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	start, end, ok := parseSpan(m[2], m[4])
	if !ok {
		return nil, false
	}
	pc := &ProteinChange{
		Alteration:   s,
		Term:         ConsequenceInframeInsertion,
		ProteinStart: start,
		ProteinEnd:   end,
	}
	if start == end {
		pc.RefResidues = m[1]
	}
	return pc, true
}

func parseFrameshift(s string) (*ProteinChange, bool) {
	m := reFrameshift.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	pos, err := strconv.Atoi(m[2])
	if err != nil || pos < 1 {
		return nil, false
	}
	return &ProteinChange{
		Alteration:      s,
		Term:            ConsequenceFrameshiftVariant,
		ProteinStart:    pos,
		ProteinEnd:      pos,
		RefResidues:     m[1],
		VariantResidues: m[3],
	}, true
}

func parseExtension(s string) (*ProteinChange, bool) {
	m := reExtension.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	pos, err := strconv.Atoi(m[1])
	if err != nil || pos < 1 {
		return nil, false
	}
	return &ProteinChange{
		Alteration:      s,
		Term:            ConsequenceStopLost,
		ProteinStart:    pos,
		ProteinEnd:      pos,
		RefResidues:     "*",
		VariantResidues: m[2],
	}, true
}

func parseSplice(s string) (*ProteinChange, bool) {
	m := reSplice.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	end := m[2]
	if end == "" {
		end = m[1]
	}
	start, stop, ok := parseSpan(m[1], end)
	if !ok {
		return nil, false
	}
	return &ProteinChange{
		Alteration:   s,
		Term:         ConsequenceSpliceRegion,
		ProteinStart: start,
		ProteinEnd:   stop,
	}, true
}

// parseSpan parses a 1-based start and an optional end, defaulting end to
// start. Reversed spans are rejected.
func parseSpan(startStr, endStr string) (int, int, bool) {
	start, err := strconv.Atoi(startStr)
	if err != nil || start < 1 {
		return 0, 0, false
	}
	if endStr == "" {
		return start, start, true
	}
	end, err := strconv.Atoi(endStr)
	if err != nil || end < start {
		return 0, 0, false
	}
	return start, end, true
}

func titleCase(s string) string {
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}
