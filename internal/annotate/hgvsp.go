package annotate

import "fmt"

// FormatHGVSp formats the HGVS protein notation (three-letter codes) for a
// position-based alteration. Returns an empty string for structural,
// copy-number and position-only alterations.
func FormatHGVSp(a *Alteration) string {
	if a.ProteinStart < 1 {
		return ""
	}

	pos := a.ProteinStart
	ref := firstResidue(a.RefResidues)
	alt := firstResidue(a.VariantResidues)

	span := func() string {
		if a.ProteinEnd > a.ProteinStart {
			if ref != 0 {
				return fmt.Sprintf("%s%d_%d", aaThree(ref), pos, a.ProteinEnd)
			}
			return fmt.Sprintf("%d_%d", pos, a.ProteinEnd)
		}
		if ref != 0 {
			return fmt.Sprintf("%s%d", aaThree(ref), pos)
		}
		return fmt.Sprintf("%d", pos)
	}

	switch a.Consequence.Term {
	case ConsequenceMissenseVariant:
		if ref == 0 || alt == 0 {
			return ""
		}
		return fmt.Sprintf("p.%s%d%s", aaThree(ref), pos, aaThree(alt))

	case ConsequenceSynonymousVariant:
		return fmt.Sprintf("p.%s=", span())

	case ConsequenceStopGained:
		return fmt.Sprintf("p.%sTer", span())

	case ConsequenceStartLost:
		return "p.Met1?"

	case ConsequenceStopLost:
		if alt != 0 {
			return fmt.Sprintf("p.Ter%d%sext*?", pos, aaThree(alt))
		}
		return fmt.Sprintf("p.Ter%dext*?", pos)

	case ConsequenceFrameshiftVariant:
		altStr := ""
		if alt != 0 {
			altStr = aaThree(alt)
		}
		return fmt.Sprintf("p.%s%sfs", span(), altStr)

	case ConsequenceInframeDeletion:
		if a.VariantResidues != "" {
			return fmt.Sprintf("p.%sdelins%s", span(), threeLetters(a.VariantResidues))
		}
		return fmt.Sprintf("p.%sdel", span())

	case ConsequenceInframeInsertion:
		if a.VariantResidues == "" {
			return fmt.Sprintf("p.%sdup", span())
		}
		if a.ProteinEnd == a.ProteinStart+1 {
			return fmt.Sprintf("p.%sins%s", span(), threeLetters(a.VariantResidues))
		}
		return fmt.Sprintf("p.%sdelins%s", span(), threeLetters(a.VariantResidues))

	default:
		return ""
	}
}

func firstResidue(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}

func threeLetters(residues string) string {
	b := make([]byte, 0, 3*len(residues))
	for i := 0; i < len(residues); i++ {
		b = append(b, aaThree(residues[i])...)
	}
	return string(b)
}
