package pcb

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp/kicadsexp"
)

// parseZone extracts a zone with its outline and computed fills
// Expected format: (zone (net 1) (net_name "GND") (layer "F.Cu") (uuid ...) (polygon (pts ...)) (filled_polygon (layer "F.Cu") (pts ...)))
func (b *Board) parseZone(node kicadsexp.Sexp) (*Zone, error) {
	z := &Zone{}
	var netName string
	var netNode kicadsexp.Sexp

	for _, child := range sexp.GetListItems(node) {
		if child.IsLeaf() {
			z.Extra = append(z.Extra, child)
			continue
		}

		name, _ := sexp.GetNodeName(child)
		switch name {
		case "net":
			netNode = child
		case "net_name":
			netName, _ = sexp.GetString(child, 1)
		case "layer":
			l, _ := sexp.GetString(child, 1)
			z.Layers = LayerSet{l}
		case "layers":
			z.Layers = sexp.GetStrings(child)
		case "name":
			z.Name, _ = sexp.GetString(child, 1)
		case "locked":
			z.Locked = sexp.HasFlag(node, "locked")
		case "uuid", "tstamp":
			v, _ := sexp.GetString(child, 1)
			z.UUID = UUID(v)
		case "polygon":
			if z.Outline != nil {
				z.Extra = append(z.Extra, child)
				continue
			}
			ptsNode, ok := sexp.FindNode(child, "pts")
			if !ok {
				return nil, fmt.Errorf("polygon without points")
			}
			pts, err := sexp.GetPoints(ptsNode)
			if err != nil {
				return nil, fmt.Errorf("polygon: %w", err)
			}
			z.Outline = pts
		case "filled_polygon":
			fill, err := parseZoneFill(child)
			if err != nil {
				return nil, err
			}
			z.Fills = append(z.Fills, fill)
		default:
			z.Extra = append(z.Extra, child)
		}
	}

	switch {
	case netNode != nil:
		z.Net = b.resolveNet(netNode)
	case netName != "":
		z.Net = b.EnsureNet(netName)
	}
	if z.Net != nil && z.Net.Name == "" && netName != "" {
		z.Net = b.EnsureNet(netName)
	}

	return z, nil
}

func parseZoneFill(node kicadsexp.Sexp) (ZoneFill, error) {
	var fill ZoneFill
	for _, child := range sexp.GetListItems(node) {
		name, _ := sexp.GetNodeName(child)
		switch {
		case child.IsLeaf():
			fill.Extra = append(fill.Extra, child)
		case name == "layer":
			fill.Layer, _ = sexp.GetString(child, 1)
		case name == "pts":
			pts, err := sexp.GetPoints(child)
			if err != nil {
				return fill, fmt.Errorf("filled_polygon: %w", err)
			}
			fill.Points = pts
		default:
			fill.Extra = append(fill.Extra, child)
		}
	}
	return fill, nil
}
