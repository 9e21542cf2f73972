package pcb

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp/kicadsexp"
)

// parseDrawing extracts a gr_* or fp_* shape. shape is the node name
// without its prefix: line, rect, circle, arc, poly or curve.
// Expected format: (gr_line (start x y) (end x y) (stroke (width w) (type solid)) (layer "Edge.Cuts"))
func (b *Board) parseDrawing(node kicadsexp.Sexp, shape string) (*Drawing, error) {
	d := &Drawing{Shape: shape, Fill: Fill{Type: "none"}}

	for _, child := range sexp.GetListItems(node) {
		if child.IsLeaf() {
			if v, _ := kicadsexp.Atom(child); v == "locked" {
				d.Locked = true
			} else {
				d.Extra = append(d.Extra, child)
			}
			continue
		}

		name, _ := sexp.GetNodeName(child)
		var err error
		switch name {
		case "start":
			d.Start, err = sexp.GetPositionXY(child)
		case "mid":
			d.Mid, err = sexp.GetPositionXY(child)
		case "end":
			d.End, err = sexp.GetPositionXY(child)
		case "center":
			d.Center, err = sexp.GetPositionXY(child)
		case "angle":
			var a float64
			a, err = sexp.GetFloat(child, 1)
			d.Angle = Angle(a)
		case "pts":
			d.Points, err = sexp.GetPoints(child)
		case "stroke":
			d.Stroke = sexp.GetStroke(child)
		case "width":
			d.Stroke.Width, err = sexp.GetFloat(child, 1)
			if d.Stroke.Type == "" {
				d.Stroke.Type = "solid"
			}
		case "fill":
			d.Fill = sexp.GetFill(child)
		case "layer":
			d.Layer, _ = sexp.GetString(child, 1)
		case "net":
			d.Net = b.resolveNet(child)
		case "locked":
			d.Locked = sexp.HasFlag(node, "locked")
		case "uuid", "tstamp":
			v, _ := sexp.GetString(child, 1)
			d.UUID = UUID(v)
		default:
			d.Extra = append(d.Extra, child)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	// Legacy arcs give the centre as start and a sweep angle.
	if shape == "arc" && d.Angle != 0 {
		d.Center = d.Start
	}
	// Circles are written as (center) (end).
	if shape == "circle" && d.Center == (Position{}) {
		d.Center = d.Start
	}

	return d, nil
}

// parseText extracts a free board text
// Expected format: (gr_text "text" (at x y [angle]) (layer "F.SilkS") (effects ...))
func parseText(node kicadsexp.Sexp) (*Text, error) {
	text, err := sexp.GetString(node, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text content: %w", err)
	}
	t := &Text{Text: text}
	t.Effects.Justify = sexp.Justify{Horizontal: "center", Vertical: "center"}

	for i, child := range sexp.GetListItems(node) {
		if i == 0 {
			continue
		}
		if child.IsLeaf() {
			if v, _ := kicadsexp.Atom(child); v == "locked" {
				t.Locked = true
			} else {
				t.Extra = append(t.Extra, child)
			}
			continue
		}

		name, _ := sexp.GetNodeName(child)
		switch name {
		case "at":
			pos, err := sexp.GetPosition(child)
			if err != nil {
				return nil, fmt.Errorf("gr_text %q: %w", text, err)
			}
			t.Position = pos
		case "layer":
			t.Layer, _ = sexp.GetString(child, 1)
		case "effects":
			t.Effects = sexp.GetEffects(child)
		case "locked":
			t.Locked = sexp.HasFlag(node, "locked")
		case "uuid", "tstamp":
			v, _ := sexp.GetString(child, 1)
			t.UUID = UUID(v)
		default:
			t.Extra = append(t.Extra, child)
		}
	}

	return t, nil
}
