package snapshot

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// EngineVersion is the snapshot format version written by this engine.
// Snapshots with a higher version are rejected.
const EngineVersion = "1.3.0"

var versionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `\d+`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Version is a dotted numeric version such as "1.2.10".
type Version struct {
	Parts []int `parser:"@Int ( Dot @Int )*"`
}

var versionParser = participle.MustBuild[Version](
	participle.Lexer(versionLexer),
	participle.Elide("Whitespace"),
)

// ParseVersion parses a dotted numeric version string.
func ParseVersion(s string) (Version, error) {
	v, err := versionParser.ParseString("", s)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return *v, nil
}

// Compare returns -1, 0 or 1 as v is lower than, equal to or higher than
// o. Missing trailing components count as zero, so "1.2" equals "1.2.0".
func (v Version) Compare(o Version) int {
	n := max(len(v.Parts), len(o.Parts))
	for i := 0; i < n; i++ {
		a, b := part(v.Parts, i), part(o.Parts, i)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

func part(p []int, i int) int {
	if i < len(p) {
		return p[i]
	}
	return 0
}

func (v Version) String() string {
	s := make([]string, len(v.Parts))
	for i, p := range v.Parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ".")
}

// CompareVersions parses and compares two version strings.
func CompareVersions(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}
