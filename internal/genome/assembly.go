// Package genome defines reference genome assemblies.
package genome

import (
	"fmt"
	"strings"
)

// Assembly identifies a reference genome build.
type Assembly string

// Supported assemblies.
const (
	GRCh37 Assembly = "GRCh37"
	GRCh38 Assembly = "GRCh38"
)

// All returns every supported assembly in processing order.
func All() []Assembly {
	return []Assembly{GRCh37, GRCh38}
}

// Parse converts a user-supplied assembly name into an Assembly.
// Accepts GRCh37/GRCh38 in any case plus the aliases 37, 38, hg19 and hg38.
func Parse(s string) (Assembly, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "grch37", "37", "hg19", "b37":
		return GRCh37, nil
	case "grch38", "38", "hg38":
		return GRCh38, nil
	}
	return "", fmt.Errorf("unknown reference genome %q (expected GRCh37 or GRCh38)", s)
}

// MustParse is like Parse but panics on error. Intended for constants in tests.
func MustParse(s string) Assembly {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Valid returns true if a is a supported assembly.
func (a Assembly) Valid() bool {
	return a == GRCh37 || a == GRCh38
}

func (a Assembly) String() string {
	return string(a)
}
