// Package hierarchy maps board footprints onto the schematic sheet
// hierarchy they were instantiated from.
package hierarchy

import (
	"sort"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
)

// Sheet describes one hierarchical sheet instance.
type Sheet struct {
	Name string `yaml:"name"`
	// File is the sheet's schematic file relative to the project directory.
	File string `yaml:"file"`
}

// Dictionary maps a normalized sheet id to its sheet.
type Dictionary map[string]Sheet

// Footprint is a board footprint annotated with its place in the hierarchy.
type Footprint struct {
	Ref string
	FP  *pcb.Footprint
	// ID is the leaf symbol id.
	ID string
	// SheetIDs is the ancestor sheet chain, root first. Names and Files
	// run parallel to it.
	SheetIDs []string
	Names    []string
	Files    []string
}

// InHierarchy reports whether the footprint belongs to a hierarchical sheet.
// Footprints placed on the root sheet or only present in the layout do not.
func (f Footprint) InHierarchy() bool {
	return len(f.SheetIDs) > 0
}

// Index is the hierarchy view of one board.
type Index struct {
	Footprints []Footprint
	Sheets     Dictionary

	byRef map[string]int
}

// Level is one depth of a footprint's sheet chain.
type Level struct {
	Depth int
	ID    string
	Name  string
	File  string
	// Path is the sheet id chain from the root down to this level.
	Path []string
}

type options struct {
	log       *zap.Logger
	schematic string
	dict      Dictionary
}

// Option configures Build.
type Option func(*options)

// WithLogger sets the logger used while building the index.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithSchematic enables recursive sheet discovery starting at the root
// schematic file when footprint metadata does not cover every sheet.
func WithSchematic(root string) Option {
	return func(o *options) { o.schematic = root }
}

// WithDictionary seeds the sheet dictionary, typically with the one stored
// in a snapshot.
func WithDictionary(d Dictionary) Option {
	return func(o *options) { o.dict = d }
}

// Build derives the hierarchy of every footprint. Every sheet id found in a
// footprint path must resolve to a sheet, otherwise an
// errkind.InputDesync error is returned.
func Build(fps []*pcb.Footprint, opts ...Option) (*Index, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	idx := &Index{Sheets: Dictionary{}, byRef: make(map[string]int)}
	for id, s := range o.dict {
		idx.Sheets[id] = s
	}

	type parsed struct {
		sheets []string
		leaf   string
	}
	paths := make([]parsed, len(fps))
	seen := make(map[string]string)  // sheet id -> first reference using it
	named := make(map[string]string) // sheet id -> reference its metadata came from

	for i, fp := range fps {
		sheets, leaf := ParsePath(fp.Path)
		paths[i] = parsed{sheets, leaf}
		for _, id := range sheets {
			if _, ok := seen[id]; !ok {
				seen[id] = fp.Reference
			}
		}

		if len(sheets) == 0 {
			o.log.Debug("footprint is not on a hierarchical sheet", zap.String("ref", fp.Reference))
			continue
		}
		if fp.SheetFile == "" {
			return nil, errkind.New(errkind.InputDesync,
				"footprint %s has no Sheetfile/Sheetname properties, update the layout from the schematic", fp.Reference)
		}
		id, sheet := sheets[len(sheets)-1], Sheet{Name: fp.SheetName, File: fp.SheetFile}
		if ref, ok := named[id]; ok && idx.Sheets[id] != sheet {
			prev := idx.Sheets[id]
			return nil, errkind.New(errkind.InputDesync,
				"footprints %s and %s disagree on sheet %s: %s (%s) vs %s (%s), update the layout from the schematic",
				ref, fp.Reference, id, prev.Name, prev.File, sheet.Name, sheet.File)
		}
		named[id] = fp.Reference
		idx.Sheets[id] = sheet
	}

	if missing := unresolved(seen, idx.Sheets); len(missing) > 0 && o.schematic != "" {
		o.log.Info("footprint metadata does not cover all sheets, parsing schematics",
			zap.Int("count", len(missing)), zap.String("file", o.schematic))
		found, err := discover(o.schematic, o.log)
		if err != nil {
			return nil, err
		}
		for id, s := range found {
			idx.Sheets[id] = s
		}
	}
	if missing := unresolved(seen, idx.Sheets); len(missing) > 0 {
		return nil, errkind.New(errkind.InputDesync,
			"sheet %s used by footprint %s is not in the schematic", missing[0], seen[missing[0]])
	}

	for i, fp := range fps {
		f := Footprint{Ref: fp.Reference, FP: fp, ID: paths[i].leaf, SheetIDs: paths[i].sheets}
		for _, id := range f.SheetIDs {
			s := idx.Sheets[id]
			f.Names = append(f.Names, s.Name)
			f.Files = append(f.Files, s.File)
		}
		if _, dup := idx.byRef[f.Ref]; !dup {
			idx.byRef[f.Ref] = len(idx.Footprints)
		}
		idx.Footprints = append(idx.Footprints, f)
	}

	return idx, nil
}

func unresolved(seen map[string]string, d Dictionary) []string {
	var missing []string
	for id := range seen {
		if _, ok := d[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}

// Footprint returns the footprint with the given reference.
func (idx *Index) Footprint(ref string) (Footprint, bool) {
	i, ok := idx.byRef[ref]
	if !ok {
		return Footprint{}, false
	}
	return idx.Footprints[i], true
}

// OnLevel returns the hierarchical footprints whose sheet chain starts
// with level.
func (idx *Index) OnLevel(level []string) []Footprint {
	var out []Footprint
	for _, f := range idx.Footprints {
		if f.InHierarchy() && HasPrefix(f.SheetIDs, level) {
			out = append(out, f)
		}
	}
	return out
}

// NotOnLevel returns every footprint OnLevel does not.
func (idx *Index) NotOnLevel(level []string) []Footprint {
	var out []Footprint
	for _, f := range idx.Footprints {
		if !f.InHierarchy() || !HasPrefix(f.SheetIDs, level) {
			out = append(out, f)
		}
	}
	return out
}

// Levels lists the sheet levels the footprint ref can be saved at, from the
// outermost sheet inwards.
func (idx *Index) Levels(ref string) ([]Level, error) {
	f, ok := idx.Footprint(ref)
	if !ok {
		return nil, errkind.New(errkind.HierarchyMismatch, "footprint %s not found", ref)
	}
	if !f.InHierarchy() {
		return nil, errkind.New(errkind.HierarchyMismatch, "footprint %s is not on a hierarchical sheet", ref)
	}
	levels := make([]Level, len(f.SheetIDs))
	for i, id := range f.SheetIDs {
		levels[i] = Level{
			Depth: i + 1,
			ID:    id,
			Name:  f.Names[i],
			File:  f.Files[i],
			Path:  f.SheetIDs[:i+1:i+1],
		}
	}
	return levels, nil
}
