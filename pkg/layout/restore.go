package layout

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/correspond"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/fingerprint"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/hierarchy"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/snapshot"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/transform"
)

// Diagnostic describes a saved element that was not replicated.
type Diagnostic struct {
	Kind   pcb.Kind
	ID     pcb.UUID
	Reason string
}

// Report summarizes a restore.
type Report struct {
	// Placed counts destination footprints moved into place, the anchor
	// included.
	Placed int
	// Cloned counts replicated elements per kind.
	Cloned map[pcb.Kind]int
	// Dropped counts tracks on nets outside the replicated circuit.
	Dropped     int
	Diagnostics []Diagnostic
	// Ties lists footprints whose counterpart was picked among equally
	// good candidates.
	Ties []correspond.Tie
	// Conflicts lists saved nets mapped onto several destination nets.
	Conflicts []string
	// Group is the group holding the replicated elements, if one was
	// requested.
	Group *pcb.Group
}

// Restorer replicates snapshots onto the sheet instance of an anchor
// footprint.
type Restorer struct {
	doc    Document
	anchor string
	idx    *hierarchy.Index
	opts   options
}

// NewRestorer indexes the hierarchy of doc for the destination anchor
// footprint anchorRef.
func NewRestorer(doc Document, anchorRef string, opts ...Option) (*Restorer, error) {
	o := newOptions(doc, opts)
	idx, err := hierarchy.Build(footprints(doc),
		hierarchy.WithLogger(o.log), hierarchy.WithSchematic(o.schematic))
	if err != nil {
		return nil, err
	}
	if _, err := idx.Levels(anchorRef); err != nil {
		return nil, err
	}
	return &Restorer{doc: doc, anchor: anchorRef, idx: idx, opts: o}, nil
}

// Restore reads the snapshot file at path and replicates it.
func (r *Restorer) Restore(ctx context.Context, path string) (*Report, error) {
	snap, err := snapshot.ReadFile(path)
	if err != nil {
		r.opts.observer.Failed(OpRestore, err)
		return nil, err
	}
	return r.RestoreSnapshot(ctx, snap)
}

// plan is everything a restore writes, computed before the document is
// touched.
type plan struct {
	engine *transform.Engine
	res    *correspond.Result
	clones []pcb.Item
	report *Report
}

// RestoreSnapshot replicates snap onto the anchor's sheet instance. All
// checks run before the document is modified, so on error the document is
// unchanged.
func (r *Restorer) RestoreSnapshot(ctx context.Context, snap *snapshot.Snapshot) (rep *Report, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			r.opts.observer.Failed(OpRestore, err)
			return
		}
		r.opts.observer.Completed(OpRestore, time.Since(start))
	}()

	p, err := r.prepare(ctx, snap)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.apply(p)
}

func (r *Restorer) prepare(ctx context.Context, snap *snapshot.Snapshot) (*plan, error) {
	if err := snap.CheckVersion(snapshot.EngineVersion); err != nil {
		return nil, err
	}

	log := r.opts.log.With(zap.String("ref", r.anchor), zap.String("level", snap.Level))

	switch have := r.doc.CopperLayerCount(); {
	case snap.LayerCount == 0:
		log.Warn("snapshot does not record a layer count, skipping the check")
	case have < snap.LayerCount:
		return nil, errkind.New(errkind.LayerCount,
			"saved layout uses %d copper layers, board has %d", snap.LayerCount, have)
	}

	anchor, _ := r.idx.Footprint(r.anchor)
	depth := -1
	for i, f := range anchor.Files {
		if f == snap.Level {
			depth = i
			break
		}
	}
	if depth < 0 {
		return nil, errkind.New(errkind.HierarchyMismatch,
			"sheet %s is not in the hierarchy of %s (%s)", snap.Level, r.anchor, strings.Join(anchor.Files, " > "))
	}
	level := anchor.SheetIDs[:depth+1]

	hash, err := fingerprint.Chain(r.opts.projectDir(), anchor.Files[depth:])
	if err != nil {
		return nil, errkind.New(errkind.InputDesync, "failed to fingerprint schematic: %w", err)
	}
	if hash != snap.Hash {
		return nil, errkind.New(errkind.ContentDrift,
			"sheet %s changed since the layout was saved, make sure both schematics are identical", snap.Level)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saved, err := pcb.Parse(strings.NewReader(snap.Layout))
	if err != nil {
		return nil, errkind.New(errkind.Internal, "failed to read saved layout: %w", err)
	}
	savedIdx, err := hierarchy.Build(saved.Footprints,
		hierarchy.WithLogger(r.opts.log), hierarchy.WithDictionary(snap.Sheets))
	if err != nil {
		return nil, err
	}
	var savedFPs []hierarchy.Footprint
	for _, f := range savedIdx.Footprints {
		if f.InHierarchy() {
			savedFPs = append(savedFPs, f)
		}
	}

	res, err := correspond.Resolve(savedFPs, r.idx.OnLevel(level), r.anchor)
	if err != nil {
		return nil, err
	}
	for _, tie := range res.Ties {
		log.Warn("ambiguous footprint match, using the first candidate",
			zap.String("footprint", tie.Dest), zap.Strings("candidates", tie.Candidates), zap.Int("score", tie.Score))
	}
	conflicts := res.Conflicts()
	for _, n := range conflicts {
		log.Warn("saved net maps onto several nets, using the first", zap.String("net", n))
	}

	p := &plan{
		engine: transform.New(res.Anchor.Saved.FP, res.Anchor.Dest.FP),
		res:    res,
		report: &Report{Cloned: make(map[pcb.Kind]int), Ties: res.Ties, Conflicts: conflicts},
	}
	for _, kind := range pcb.Kinds {
		if kind == pcb.KindFootprint {
			continue
		}
		for _, item := range saved.Items(kind) {
			clone, outcome, reason := p.engine.Replicate(item, res.Nets)
			switch outcome {
			case transform.Cloned:
				p.clones = append(p.clones, clone)
			case transform.Dropped:
				p.report.Dropped++
			case transform.Skipped:
				log.Warn("element not replicated", zap.Stringer("kind", kind), zap.String("reason", reason))
				p.report.Diagnostics = append(p.report.Diagnostics, Diagnostic{Kind: kind, ID: item.ID(), Reason: reason})
				r.opts.observer.Skipped(kind, reason)
			}
		}
	}
	return p, nil
}

func (r *Restorer) apply(p *plan) (*Report, error) {
	rep := p.report
	if r.opts.group != "" {
		rep.Group = r.doc.AddGroup(r.opts.group)
	}

	for _, pair := range p.res.Pairs {
		isAnchor := pair.Dest.FP == p.res.Anchor.Dest.FP
		if err := p.engine.PlaceFootprint(pair.Saved.FP, pair.Dest.FP, isAnchor); err != nil {
			// Resolve already compared the text counts.
			return nil, err
		}
		rep.Placed++
		if rep.Group != nil {
			rep.Group.Add(pair.Dest.FP)
		}
	}
	r.opts.observer.Replicated(pcb.KindFootprint, rep.Placed)

	for _, c := range p.clones {
		r.doc.Add(c)
		rep.Cloned[c.Kind()]++
		if rep.Group != nil {
			rep.Group.Add(c)
		}
	}
	for kind, n := range rep.Cloned {
		r.opts.observer.Replicated(kind, n)
	}

	r.opts.log.Info("restored layout",
		zap.String("ref", r.anchor),
		zap.Int("footprints", rep.Placed),
		zap.Int("elements", len(p.clones)),
		zap.Int("dropped", rep.Dropped),
		zap.Int("skipped", len(rep.Diagnostics)))
	return rep, nil
}
