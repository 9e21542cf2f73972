package layout

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/fingerprint"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/hierarchy"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/selection"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/snapshot"
)

// SaveRequest selects what Save keeps.
type SaveRequest struct {
	// Level is the sheet id chain of the saved level, as returned by
	// Saver.Levels.
	Level []string
	// Output, when set, is the snapshot file to write. Its extension picks
	// the encoding.
	Output string

	Tracks   bool
	Zones    bool
	Text     bool
	Drawings bool
	// Intersecting keeps items overlapping the footprint bounding box
	// instead of only the ones inside it.
	Intersecting bool
	// Filter is an optional boolean expression further restricting the
	// geometrically selected items.
	Filter string
}

func (r SaveRequest) enabled(kind pcb.Kind) bool {
	switch kind {
	case pcb.KindTrack:
		return r.Tracks
	case pcb.KindZone:
		return r.Zones
	case pcb.KindText:
		return r.Text
	case pcb.KindDrawing:
		return r.Drawings
	}
	return false
}

// Saver captures sheet levels of one board.
type Saver struct {
	doc    Document
	anchor string
	idx    *hierarchy.Index
	opts   options
}

// NewSaver indexes the hierarchy of doc for the anchor footprint anchorRef.
func NewSaver(doc Document, anchorRef string, opts ...Option) (*Saver, error) {
	o := newOptions(doc, opts)
	idx, err := hierarchy.Build(footprints(doc),
		hierarchy.WithLogger(o.log), hierarchy.WithSchematic(o.schematic))
	if err != nil {
		return nil, err
	}
	if _, err := idx.Levels(anchorRef); err != nil {
		return nil, err
	}
	return &Saver{doc: doc, anchor: anchorRef, idx: idx, opts: o}, nil
}

// Levels lists the levels the anchor footprint can be saved at, outermost
// first.
func (s *Saver) Levels() []hierarchy.Level {
	levels, _ := s.idx.Levels(s.anchor)
	return levels
}

// Save builds a snapshot of the requested level. The document is not
// modified.
func (s *Saver) Save(ctx context.Context, req SaveRequest) (snap *snapshot.Snapshot, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			s.opts.observer.Failed(OpSave, err)
			return
		}
		s.opts.observer.Completed(OpSave, time.Since(start))
	}()

	anchor, _ := s.idx.Footprint(s.anchor)
	depth := len(req.Level)
	if depth == 0 || !hierarchy.HasPrefix(anchor.SheetIDs, req.Level) {
		return nil, errkind.New(errkind.HierarchyMismatch, "footprint %s is not on the requested level", s.anchor)
	}
	log := s.opts.log.With(zap.String("ref", s.anchor), zap.String("level", anchor.Files[depth-1]))

	filter, err := selection.CompileFilter(req.Filter)
	if err != nil {
		return nil, err
	}

	hash, err := fingerprint.Chain(s.opts.projectDir(), anchor.Files[depth-1:])
	if err != nil {
		return nil, errkind.New(errkind.InputDesync, "failed to fingerprint schematic: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	board, err := s.doc.Clone()
	if err != nil {
		return nil, err
	}
	idx, err := hierarchy.Build(board.Footprints,
		hierarchy.WithLogger(s.opts.log), hierarchy.WithDictionary(s.idx.Sheets))
	if err != nil {
		return nil, err
	}

	level := pointers(idx.OnLevel(req.Level))
	others := pointers(idx.NotOnLevel(req.Level))
	rect, err := selection.BoundingRect(level)
	if err != nil {
		return nil, errkind.New(errkind.Internal, "level has no footprints: %w", err)
	}

	sel := &selection.Selector{
		Rect:      rect,
		Mode:      selection.Containing,
		LocalNets: selection.LocalNets(level, others),
		Filter:    filter,
	}
	if req.Intersecting {
		sel.Mode = selection.Intersecting
	}

	for _, kind := range pcb.Kinds {
		if kind == pcb.KindFootprint {
			continue
		}
		items := board.Items(kind)
		if !req.enabled(kind) {
			removeAll(board, items)
			continue
		}
		inside, outside, err := sel.Partition(items)
		if err != nil {
			return nil, err
		}
		removeAll(board, outside)
		log.Debug("selected items", zap.Stringer("kind", kind), zap.Int("count", len(inside)))
	}
	for _, fp := range others {
		board.Remove(fp)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := board.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode layout: %w", err)
	}

	snap = &snapshot.Snapshot{
		Version:    snapshot.EngineVersion,
		Layout:     buf.String(),
		Hash:       hash,
		Sheets:     s.idx.Sheets,
		LocalNets:  sel.LocalNets,
		Level:      anchor.Files[depth-1],
		LevelFiles: append([]string(nil), anchor.Files[:depth]...),
		LayerCount: s.doc.CopperLayerCount(),
		Anchor:     s.anchor,
	}
	if req.Output != "" {
		if err := snapshot.WriteFile(req.Output, snap); err != nil {
			return nil, err
		}
	}

	log.Info("saved layout",
		zap.Int("footprints", len(level)),
		zap.Int("local_nets", len(snap.LocalNets)),
		zap.String("hash", hash))
	return snap, nil
}

func pointers(fps []hierarchy.Footprint) []*pcb.Footprint {
	out := make([]*pcb.Footprint, len(fps))
	for i, f := range fps {
		out[i] = f.FP
	}
	return out
}

func removeAll(board *pcb.Board, items []pcb.Item) {
	for _, it := range items {
		board.Remove(it)
	}
}
