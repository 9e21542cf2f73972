package pcb

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp/kicadsexp"
)

// parseTrack extracts a segment, arc or via
// Expected format: (segment (start x y) (end x y) (width w) (layer "F.Cu") (net n) (uuid ...))
// or (via (at x y) (size s) (drill d) (layers "F.Cu" "B.Cu") (net n) (uuid ...))
func (b *Board) parseTrack(node kicadsexp.Sexp, kind string) (*Track, error) {
	t := &Track{}
	switch kind {
	case "arc":
		t.Type = TrackArc
	case "via":
		t.Type = TrackVia
	}

	for _, child := range sexp.GetListItems(node) {
		if child.IsLeaf() {
			if v, _ := kicadsexp.Atom(child); v == "locked" {
				t.Locked = true
			} else {
				t.Extra = append(t.Extra, child)
			}
			continue
		}

		name, _ := sexp.GetNodeName(child)
		var err error
		switch name {
		case "start", "at":
			t.Start, err = sexp.GetPositionXY(child)
		case "mid":
			t.Mid, err = sexp.GetPositionXY(child)
		case "end":
			t.End, err = sexp.GetPositionXY(child)
		case "width", "size":
			t.Width, err = sexp.GetFloat(child, 1)
		case "drill":
			t.Drill, err = sexp.GetFloat(child, 1)
		case "layer":
			t.Layer, _ = sexp.GetString(child, 1)
		case "layers":
			t.Layers = sexp.GetStrings(child)
		case "net":
			t.Net = b.resolveNet(child)
		case "locked":
			t.Locked = sexp.HasFlag(node, "locked")
		case "uuid", "tstamp":
			v, _ := sexp.GetString(child, 1)
			t.UUID = UUID(v)
		default:
			t.Extra = append(t.Extra, child)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	if t.Type == TrackVia {
		t.End = t.Start
		if len(t.Layers) > 0 {
			t.Layer = t.Layers[0]
		}
	}

	return t, nil
}
