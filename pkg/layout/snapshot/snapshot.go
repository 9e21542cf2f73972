// Package snapshot persists a saved sub-assembly layout together with the
// metadata needed to check a destination before restoring it.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/hierarchy"
)

// Snapshot is a saved sub-assembly.
type Snapshot struct {
	Version string `yaml:"version"`
	// Layout is the stripped board document holding only the sub-assembly.
	Layout string `yaml:"layout"`
	// Hash is the schematic fingerprint of the level's file chain.
	Hash      string               `yaml:"hash"`
	Sheets    hierarchy.Dictionary `yaml:"sheets"`
	LocalNets []string             `yaml:"local_nets"`
	// Level is the schematic file of the saved level.
	Level string `yaml:"level"`
	// LevelFiles is the file chain from the outermost sheet down to Level.
	LevelFiles []string `yaml:"level_files"`
	// LayerCount is the copper layer count of the source board. Zero means
	// unknown.
	LayerCount int `yaml:"layer_count"`
	// Anchor is the reference of the footprint the layout was saved with.
	Anchor string `yaml:"anchor,omitempty"`
}

// Format is a snapshot file encoding.
type Format int

const (
	// Binary is the compact object encoding, used for .pckl and .bin files.
	Binary Format = iota
	// Text is the YAML encoding, used for .yaml and .yml files.
	Text
)

func (f Format) String() string {
	if f == Text {
		return "text"
	}
	return "binary"
}

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pckl", ".bin":
		return Binary, nil
	case ".yaml", ".yml":
		return Text, nil
	default:
		return Binary, fmt.Errorf("unknown snapshot extension %q (want .pckl, .bin, .yaml or .yml)", filepath.Ext(path))
	}
}

// Encode writes s to w.
func Encode(w io.Writer, s *Snapshot, format Format) error {
	switch format {
	case Text:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return enc.Close()
	default:
		if err := gob.NewEncoder(w).Encode(s); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return nil
	}
}

// Decode reads a snapshot from r.
func Decode(r io.Reader, format Format) (*Snapshot, error) {
	s := &Snapshot{}
	var err error
	switch format {
	case Text:
		err = yaml.NewDecoder(r).Decode(s)
	default:
		err = gob.NewDecoder(r).Decode(s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Version == "" {
		return nil, fmt.Errorf("snapshot has no version")
	}
	if s.Sheets == nil {
		s.Sheets = hierarchy.Dictionary{}
	}
	return s, nil
}

// WriteFile stores s at path in the format its extension selects.
func WriteFile(path string, s *Snapshot) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := Encode(w, s, format); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return f.Close()
}

// ReadFile loads a snapshot stored by WriteFile.
func ReadFile(path string) (*Snapshot, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	s, err := Decode(bufio.NewReader(f), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// CheckVersion rejects snapshots written by a newer engine than engine.
func (s *Snapshot) CheckVersion(engine string) error {
	cmp, err := CompareVersions(s.Version, engine)
	if err != nil {
		return errkind.New(errkind.FormatVersion, "%w", err)
	}
	if cmp > 0 {
		return errkind.New(errkind.FormatVersion,
			"layout was saved with version %s, newer than %s", s.Version, engine)
	}
	return nil
}
