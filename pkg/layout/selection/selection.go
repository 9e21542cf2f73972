// Package selection decides which board items belong to a sub-assembly
// by their geometry and connectivity.
package selection

import (
	"errors"
	"sort"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
)

// Mode selects the geometric test applied against the bounding rectangle.
type Mode int

const (
	// Containing keeps items lying entirely within the rectangle.
	Containing Mode = iota
	// Intersecting keeps items touching the rectangle.
	Intersecting
)

func (m Mode) String() string {
	if m == Intersecting {
		return "intersecting"
	}
	return "containing"
}

// Verdict is the outcome of classifying one item.
type Verdict int

const (
	Outside Verdict = iota
	Inside
)

// ErrNoFootprints is returned when a bounding rectangle is requested for an
// empty set of footprints.
var ErrNoFootprints = errors.New("no footprints to bound")

// BoundingRect returns the union of the footprints' bounding boxes. Only
// pads and the footprint outline count, not courtyard, silkscreen or
// fabrication graphics.
func BoundingRect(fps []*pcb.Footprint) (pcb.BoundingBox, error) {
	if len(fps) == 0 {
		return pcb.BoundingBox{}, ErrNoFootprints
	}
	rect := pcb.NewBoundingBox()
	for _, fp := range fps {
		rect.ExpandBox(fp.BoundingBox())
	}
	return rect, nil
}

// Classify tests one item against rect.
func Classify(item pcb.Item, rect pcb.BoundingBox, mode Mode) Verdict {
	box := item.BoundingBox()
	var in bool
	switch mode {
	case Intersecting:
		in = rect.Intersects(box)
	default:
		in = rect.ContainsBox(box)
	}
	if in {
		return Inside
	}
	return Outside
}

// LocalNets returns the names of nets connected to pads of the level
// footprints and to no pad of any other footprint, sorted. The unconnected
// net is never local.
func LocalNets(level, others []*pcb.Footprint) []string {
	foreign := make(map[string]bool)
	for _, fp := range others {
		for _, p := range fp.Pads {
			foreign[p.NetName()] = true
		}
	}

	seen := make(map[string]bool)
	var local []string
	for _, fp := range level {
		for _, p := range fp.Pads {
			name := p.NetName()
			if name == "" || foreign[name] || seen[name] {
				continue
			}
			seen[name] = true
			local = append(local, name)
		}
	}
	sort.Strings(local)
	return local
}

// Selector partitions items into the ones kept with a sub-assembly and the
// rest.
type Selector struct {
	Rect      pcb.BoundingBox
	Mode      Mode
	LocalNets []string
	// Filter, when set, may reject geometrically selected items. It does
	// not override the local-net rule.
	Filter *Filter

	local map[string]bool
}

// Partition splits items. Every item ends up in exactly one of the two
// slices, in input order.
func (s *Selector) Partition(items []pcb.Item) (inside, outside []pcb.Item, err error) {
	if s.local == nil {
		s.local = make(map[string]bool, len(s.LocalNets))
		for _, n := range s.LocalNets {
			s.local[n] = true
		}
	}

	for _, item := range items {
		keep, err := s.keep(item)
		if err != nil {
			return nil, nil, err
		}
		if keep {
			inside = append(inside, item)
		} else {
			outside = append(outside, item)
		}
	}
	return inside, outside, nil
}

func (s *Selector) keep(item pcb.Item) (bool, error) {
	if net := item.NetName(); net != "" && s.local[net] {
		return true, nil
	}
	if Classify(item, s.Rect, s.Mode) == Outside {
		return false, nil
	}
	if s.Filter == nil {
		return true, nil
	}
	return s.Filter.Match(item)
}
