// Package fingerprint hashes schematic files so that two instances of the
// same sheet compare equal while any structural change does not.
//
// Each file is normalized by dropping Reference property lines and every
// (instances ...) block, which hold per-instance annotation. The remaining
// non-blank lines are hashed one by one and the sorted line digests are fed
// into a single running MD5, so line order does not matter.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const referenceMarker = `(property "Reference" `

// Lines returns the normalized lines of a schematic file that take part
// in the fingerprint.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	text = stripInstances(text)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, referenceMarker) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Write feeds the line digests of one schematic file into h.
func Write(h hash.Hash, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	lines := Lines(string(data))
	digests := make([]string, len(lines))
	for i, line := range lines {
		sum := md5.Sum([]byte(line))
		digests[i] = hex.EncodeToString(sum[:])
	}
	sort.Strings(digests)

	for _, d := range digests {
		if _, err := io.WriteString(h, d); err != nil {
			return err
		}
	}
	return nil
}

// File returns the fingerprint of a single schematic file.
func File(path string) (string, error) {
	return Chain(filepath.Dir(path), []string{filepath.Base(path)})
}

// Chain returns the hex fingerprint of files, named relative to dir and
// hashed in the given order.
func Chain(dir string, files []string) (string, error) {
	h := md5.New()
	for _, name := range files {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, filepath.FromSlash(name))
		}
		if err := writeFile(h, path); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeFile(h hash.Hash, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open schematic: %w", err)
	}
	defer f.Close()

	if err := Write(h, f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// stripInstances removes every balanced (instances ...) block. Parentheses
// inside quoted strings do not count.
func stripInstances(text string) string {
	const marker = "(instances"

	var b strings.Builder
	for {
		i := indexBlock(text, marker)
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i])
		text = text[i+skipBalanced(text[i:]):]
	}
}

// indexBlock finds marker as a whole node head outside quoted strings, not
// as a prefix of a longer symbol such as (instances_foo. text must start
// outside a string.
func indexBlock(text, marker string) int {
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '(' && strings.HasPrefix(text[i:], marker):
			end := i + len(marker)
			if end == len(text) || strings.ContainsRune(" \t\n()", rune(text[end])) {
				return i
			}
		}
	}
	return -1
}

// skipBalanced returns the length of the parenthesized expression that
// starts at text[0], or len(text) if it is never closed.
func skipBalanced(text string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(text)
}
