package fingerprint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const channel = `(kicad_sch (version 20230121) (generator eeschema)
  (uuid 1b2c3d4e-0000-4000-8000-000000000000)
  (symbol (lib_id "Device:R") (at 50 40 0) (unit 1)
    (uuid 7e0f9a1b-0000-4000-8000-000000000001)
    (property "Reference" "R1" (at 52 39 0))
    (property "Value" "10k" (at 52 41 0))
    (instances
      (project "board"
        (path "/8a1f0c2e-0000-4000-8000-000000000001" (reference "R1") (unit 1)))))
  (wire (pts (xy 40 40) (xy 50 40)))
)
`

func writeSchematic(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func fingerprintOf(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	writeSchematic(t, dir, "channel.kicad_sch", content)
	fp, err := Chain(dir, []string{"channel.kicad_sch"})
	require.NoError(t, err)
	return fp
}

func TestLinesStripsInstanceData(t *testing.T) {
	lines := Lines(channel)

	for _, l := range lines {
		assert.NotContains(t, l, `"Reference"`)
		assert.NotContains(t, l, "instances")
		assert.NotContains(t, l, "(path ")
	}
	assert.Contains(t, lines, `    (property "Value" "10k" (at 52 41 0))`)
	assert.Contains(t, lines, `  (wire (pts (xy 40 40) (xy 50 40)))`)
}

func TestLinesIgnoresParensInStrings(t *testing.T) {
	text := "(a\n  (instances (project \"x)\" (path \"/p\")))\n  (b)\n)"
	assert.Equal(t, []string{"(a", "  (b)", ")"}, Lines(text))
}

func TestLinesKeepsMarkerInsideStrings(t *testing.T) {
	text := "(kicad_sch\n  (text \"(instances are listed below\" (at 1 2 0))\n  (symbol (at 120 100 0))\n)"
	assert.Equal(t, []string{
		"(kicad_sch",
		"  (text \"(instances are listed below\" (at 1 2 0))",
		"  (symbol (at 120 100 0))",
		")",
	}, Lines(text))

	escaped := "(a\n  (text \"say \\\"(instances\\\" here\")\n  (instances (x))\n  (b)\n)"
	assert.Equal(t, []string{"(a", "  (text \"say \\\"(instances\\\" here\")", "  (b)", ")"}, Lines(escaped))

	moved := strings.Replace(text, "(at 120 100 0)", "(at 125 100 0)", 1)
	assert.NotEqual(t, fingerprintOf(t, text), fingerprintOf(t, moved))
}

func TestFingerprintIsDeterministic(t *testing.T) {
	assert.Equal(t, fingerprintOf(t, channel), fingerprintOf(t, channel))
}

func TestFingerprintIgnoresLineEndingsAndOrder(t *testing.T) {
	base := fingerprintOf(t, channel)

	assert.Equal(t, base, fingerprintOf(t, strings.ReplaceAll(channel, "\n", "\r\n")))

	reordered := `(kicad_sch (version 20230121) (generator eeschema)
  (wire (pts (xy 40 40) (xy 50 40)))

  (uuid 1b2c3d4e-0000-4000-8000-000000000000)
  (symbol (lib_id "Device:R") (at 50 40 0) (unit 1)
    (uuid 7e0f9a1b-0000-4000-8000-000000000001)
    (property "Value" "10k" (at 52 41 0))
    (property "Reference" "R1" (at 52 39 0))
    )
)
`
	assert.Equal(t, base, fingerprintOf(t, reordered))
}

func TestFingerprintIgnoresReferenceAndInstances(t *testing.T) {
	base := fingerprintOf(t, channel)

	other := `(kicad_sch (version 20230121) (generator eeschema)
  (uuid 1b2c3d4e-0000-4000-8000-000000000000)
  (symbol (lib_id "Device:R") (at 50 40 0) (unit 1)
    (uuid 7e0f9a1b-0000-4000-8000-000000000001)
    (property "Reference" "R101" (at 52 39 0))
    (property "Value" "10k" (at 52 41 0))
    (instances
      (project "board"
        (path "/8a1f0c2e-0000-4000-8000-000000000002" (reference "R101") (unit 1)))))
  (wire (pts (xy 40 40) (xy 50 40)))
)
`
	assert.Equal(t, base, fingerprintOf(t, other))
}

func TestFingerprintDetectsStructuralChange(t *testing.T) {
	base := fingerprintOf(t, channel)

	changed := `(kicad_sch (version 20230121) (generator eeschema)
  (uuid 1b2c3d4e-0000-4000-8000-000000000000)
  (symbol (lib_id "Device:R") (at 50 40 0) (unit 1)
    (uuid 7e0f9a1b-0000-4000-8000-000000000001)
    (property "Reference" "R1" (at 52 39 0))
    (property "Value" "22k" (at 52 41 0))
  )
  (wire (pts (xy 40 40) (xy 50 40)))
)
`
	assert.NotEqual(t, base, fingerprintOf(t, changed))
}

func TestChain(t *testing.T) {
	dir := t.TempDir()
	writeSchematic(t, dir, "amp.kicad_sch", "(kicad_sch (version 20230121)\n  (text \"amp\")\n)\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	writeSchematic(t, filepath.Join(dir, "sub"), "channel.kicad_sch", channel)

	ab, err := Chain(dir, []string{"amp.kicad_sch", "sub/channel.kicad_sch"})
	require.NoError(t, err)
	ba, err := Chain(dir, []string{"sub/channel.kicad_sch", "amp.kicad_sch"})
	require.NoError(t, err)
	assert.NotEqual(t, ab, ba)
	assert.Len(t, ab, 32)

	single, err := File(filepath.Join(dir, "sub", "channel.kicad_sch"))
	require.NoError(t, err)
	assert.Equal(t, fingerprintOf(t, channel), single)

	_, err = Chain(dir, []string{"missing.kicad_sch"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
