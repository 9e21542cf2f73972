// Package layout saves the layout of one hierarchical schematic sheet
// instance and replicates it onto other instances of the same sheet.
//
// A Saver strips a copy of the board down to the footprints of a sheet
// level and the tracks, zones, texts and drawings around them, and stores
// the result with a fingerprint of the level's schematic files. A Restorer
// checks that the destination instance still matches that fingerprint,
// pairs the saved footprints with the destination ones and places every
// element relative to an anchor footprint.
package layout

import (
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
)

// Document is the board a Saver reads from or a Restorer writes to.
// *pcb.Board implements it.
type Document interface {
	Items(kind pcb.Kind) []pcb.Item
	Add(item pcb.Item)
	Remove(item pcb.Item) bool
	AddGroup(name string) *pcb.Group
	CopperLayerCount() int
	// Clone returns an independent copy of the document.
	Clone() (*pcb.Board, error)
	// SourcePath is the board file name, used to locate the schematic.
	SourcePath() string
}

var _ Document = (*pcb.Board)(nil)

// Error kinds returned by Save and Restore. Match them with errors.Is.
var (
	ErrInputDesync       error = errkind.InputDesync
	ErrFormatVersion     error = errkind.FormatVersion
	ErrLayerCount        error = errkind.LayerCount
	ErrHierarchyMismatch error = errkind.HierarchyMismatch
	ErrContentDrift      error = errkind.ContentDrift
	ErrCardinality       error = errkind.Cardinality
)

// Operation names passed to an Observer.
const (
	OpSave    = "save"
	OpRestore = "restore"
)

// Observer is notified about the work done by Save and Restore.
type Observer interface {
	Replicated(kind pcb.Kind, n int)
	Skipped(kind pcb.Kind, reason string)
	Failed(op string, err error)
	Completed(op string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) Replicated(pcb.Kind, int)        {}
func (nopObserver) Skipped(pcb.Kind, string)        {}
func (nopObserver) Failed(string, error)            {}
func (nopObserver) Completed(string, time.Duration) {}

type options struct {
	log       *zap.Logger
	observer  Observer
	group     string
	schematic string
}

// Option configures a Saver or a Restorer.
type Option func(*options)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithObserver sets the observer notified about replicated elements and
// operation outcomes.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithGroup makes Restore collect every placed and cloned element in a
// new board group with the given name.
func WithGroup(name string) Option {
	return func(o *options) { o.group = name }
}

// WithSchematic overrides the root schematic file. It defaults to the
// board file name with a .kicad_sch extension.
func WithSchematic(path string) Option {
	return func(o *options) { o.schematic = path }
}

func newOptions(doc Document, opts []Option) options {
	o := options{log: zap.NewNop(), observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.schematic == "" {
		if src := doc.SourcePath(); src != "" {
			o.schematic = strings.TrimSuffix(src, filepath.Ext(src)) + ".kicad_sch"
		}
	}
	return o
}

// projectDir is the directory schematic file names are relative to.
func (o options) projectDir() string {
	if o.schematic == "" {
		return "."
	}
	return filepath.Dir(o.schematic)
}

func footprints(doc Document) []*pcb.Footprint {
	items := doc.Items(pcb.KindFootprint)
	out := make([]*pcb.Footprint, 0, len(items))
	for _, it := range items {
		out = append(out, it.(*pcb.Footprint))
	}
	return out
}
