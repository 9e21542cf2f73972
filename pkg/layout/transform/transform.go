// Package transform moves saved layout elements into the frame of a
// destination anchor footprint.
//
// Both frames are defined by an anchor footprint: its position, its
// orientation and the board side it sits on. When the two anchors sit on
// the same side every element is translated and turned by the anchor
// rotation delta. When they sit on opposite sides elements are first
// mirrored about the destination anchor and then turned so that the saved
// anchor lands exactly on the destination anchor.
package transform

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
)

// Engine maps saved board coordinates into the destination.
type Engine struct {
	from     pcb.PositionAngle
	to       pcb.PositionAngle
	mirrored bool
}

// New captures the placement of both anchors. Later changes to the
// footprints do not affect the engine.
func New(saved, dest *pcb.Footprint) *Engine {
	return &Engine{
		from:     saved.Position,
		to:       dest.Position,
		mirrored: saved.IsFlipped() != dest.IsFlipped(),
	}
}

// Mirrored reports whether the anchors sit on opposite board sides.
func (e *Engine) Mirrored() bool { return e.mirrored }

// Rotation returns the turn applied after the optional mirror step.
func (e *Engine) Rotation() pcb.Angle {
	if e.mirrored {
		return (e.from.Angle + e.to.Angle).Normalize()
	}
	return (e.to.Angle - e.from.Angle).Normalize()
}

// Point maps a saved board position into the destination.
func (e *Engine) Point(p pcb.Position) pcb.Position {
	d := p.Sub(e.from.Position)
	if e.mirrored {
		d.Y = -d.Y
	}
	return e.to.Position.Add(d).Rotate(e.to.Position, e.Rotation())
}

// Orientation maps a saved footprint orientation into the destination.
func (e *Engine) Orientation(a pcb.Angle) pcb.Angle {
	if e.mirrored {
		return (a.Flipped() - (e.from.Angle.Flipped() - e.to.Angle)).Normalize()
	}
	return (a + e.to.Angle - e.from.Angle).Normalize()
}

// Apply transforms item in place.
func (e *Engine) Apply(item pcb.Item) {
	item.Move(e.to.Position.Sub(e.from.Position))
	if e.mirrored {
		item.Flip(e.to.Position)
	}
	item.Rotate(e.to.Position, e.Rotation())
}

// PlaceFootprint moves dest to where saved sits relative to the saved
// anchor, on the matching side, and copies its local rule overrides and
// text layout. The destination anchor keeps its placement.
func (e *Engine) PlaceFootprint(saved, dest *pcb.Footprint, anchor bool) error {
	if len(saved.Texts) != len(dest.Texts) {
		return errkind.New(errkind.Cardinality,
			"footprint %s has %d text items, saved %s has %d", dest.Reference, len(dest.Texts), saved.Reference, len(saved.Texts))
	}

	if !anchor {
		if flipped := saved.IsFlipped() != e.mirrored; dest.IsFlipped() != flipped {
			dest.Flip(dest.Position.Position)
		}
		dest.Position.Position = e.Point(saved.Position.Position)
		dest.Position.Angle = e.Orientation(saved.Position.Angle)
	}
	dest.Overrides = saved.Overrides.Clone()
	PlaceTexts(saved, dest)
	return nil
}

// PlaceTexts copies the owner-relative layout of each saved footprint text
// onto the text at the same index in dest. The content is kept. Texts are
// mirrored when the owners sit on opposite sides.
func PlaceTexts(saved, dest *pcb.Footprint) {
	flip := saved.IsFlipped() != dest.IsFlipped()
	for i, st := range saved.Texts {
		if i >= len(dest.Texts) {
			return
		}
		dt := dest.Texts[i]
		dt.Position = st.Position
		dt.Layer = st.Layer
		dt.Effects = st.Effects
		dt.Hidden = st.Hidden
		dt.Unlocked = st.Unlocked
		if flip {
			dt.FlipLocal()
		}
	}
}

// Outcome tells what became of a replicated item.
type Outcome int

const (
	// Cloned means a transformed copy was produced.
	Cloned Outcome = iota
	// Dropped means the item does not belong to the replicated circuit.
	Dropped
	// Skipped means the item could not be replicated safely.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Cloned:
		return "cloned"
	case Dropped:
		return "dropped"
	default:
		return "skipped"
	}
}

// Replicate returns a transformed copy of a saved track, zone, text or
// drawing, connected to the destination nets given by nets (saved net name
// to destination net). Tracks on a net without counterpart are dropped.
// Copper zones and drawings on such a net are skipped with a reason.
func (e *Engine) Replicate(item pcb.Item, nets map[string]*pcb.Net) (pcb.Item, Outcome, string) {
	name := item.NetName()
	mapped, ok := nets[name]

	var net *pcb.Net
	switch v := item.(type) {
	case *pcb.Track:
		if name != "" {
			if !ok {
				return nil, Dropped, ""
			}
			net = mapped
		}
	case *pcb.Zone:
		if v.IsOnCopperLayer() && name != "" {
			if !ok {
				return nil, Skipped, fmt.Sprintf("copper zone on net %s has no counterpart", name)
			}
			net = mapped
		}
	case *pcb.Drawing:
		if name != "" {
			if !ok {
				return nil, Skipped, fmt.Sprintf("drawing on net %s has no counterpart", name)
			}
			net = mapped
		}
	case *pcb.Text:
	default:
		return nil, Skipped, fmt.Sprintf("%s items are placed, not cloned", item.Kind())
	}

	clone := pcb.Clone(item)
	if c, ok := clone.(pcb.Connectable); ok {
		c.SetNet(net)
	}
	e.Apply(clone)
	return clone, Cloned, ""
}
