package pcb

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp/kicadsexp"
)

// Minimum supported KiCad version (6.0 = 20211014)
const MinSupportedVersion = 20211014

// Version from which board items carry (uuid ...) instead of (tstamp ...)
// and groups are identified by uuid rather than id (KiCad 8).
const uuidVersion = 20240108

// ParseFile reads and parses a KiCad board file
func ParseFile(filename string) (*Board, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	board, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	board.FileName = filename
	return board, nil
}

// Parse reads and parses a KiCad board from an io.Reader
func Parse(r io.Reader) (*Board, error) {
	sexps, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	if len(sexps) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	root := sexps[0]

	rootName, err := sexp.GetNodeName(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get root node name: %w", err)
	}
	if rootName != "kicad_pcb" {
		return nil, fmt.Errorf("not a KiCad PCB file: expected 'kicad_pcb', got '%s'", rootName)
	}

	version, generator, err := parseHeader(root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	board := &Board{
		Version:   version,
		Generator: generator,
	}

	if layersNode, found := sexp.FindNode(root, "layers"); found {
		layers, err := parseLayers(layersNode)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layers section: %w", err)
		}
		board.Layers = layers
	}

	nets, err := parseNets(root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse nets: %w", err)
	}
	board.Nets = nets

	seenItems := false
	for _, node := range sexp.GetListItems(root) {
		name, err := sexp.GetNodeName(node)
		if err != nil || node.IsLeaf() {
			continue
		}

		switch name {
		case "version", "generator", "host", "net":
			continue
		case "footprint", "module":
			fp, err := board.parseFootprint(node)
			if err != nil {
				return nil, fmt.Errorf("footprint %d: %w", len(board.Footprints), err)
			}
			board.Footprints = append(board.Footprints, fp)
		case "segment", "arc", "via":
			t, err := board.parseTrack(node, name)
			if err != nil {
				return nil, fmt.Errorf("%s %d: %w", name, len(board.Tracks), err)
			}
			board.Tracks = append(board.Tracks, t)
		case "zone":
			z, err := board.parseZone(node)
			if err != nil {
				return nil, fmt.Errorf("zone %d: %w", len(board.Zones), err)
			}
			board.Zones = append(board.Zones, z)
		case "gr_text":
			t, err := parseText(node)
			if err != nil {
				return nil, fmt.Errorf("gr_text %d: %w", len(board.Texts), err)
			}
			board.Texts = append(board.Texts, t)
		case "gr_line", "gr_rect", "gr_circle", "gr_arc", "gr_poly", "gr_curve":
			d, err := board.parseDrawing(node, name[3:])
			if err != nil {
				return nil, fmt.Errorf("%s %d: %w", name, len(board.Drawings), err)
			}
			board.Drawings = append(board.Drawings, d)
		case "group":
			g, err := parseGroup(node)
			if err != nil {
				return nil, fmt.Errorf("group %d: %w", len(board.Groups), err)
			}
			board.Groups = append(board.Groups, g)
		default:
			if seenItems {
				board.Trailer = append(board.Trailer, node)
			} else {
				board.Header = append(board.Header, node)
			}
			continue
		}
		seenItems = true
	}

	return board, nil
}

// parseHeader extracts version and generator information from the root node
// Expected format: (kicad_pcb (version 20221018) (generator pcbnew) ...)
func parseHeader(root kicadsexp.Sexp) (version int, generator string, err error) {
	versionNode, found := sexp.FindNode(root, "version")
	if !found {
		return 0, "", fmt.Errorf("missing required 'version' field")
	}

	ver, err := sexp.GetInt(versionNode, 1)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse version: %w", err)
	}

	if ver < MinSupportedVersion {
		return 0, "", fmt.Errorf("unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", ver, MinSupportedVersion)
	}

	gen := "unknown"
	if g := sexp.GetChildString(root, "generator"); g != "" {
		gen = g
	} else if h := sexp.GetChildString(root, "host"); h != "" {
		gen = h
	}

	return ver, gen, nil
}

// parseLayers extracts layer definitions
// Expected format: (layers (0 "F.Cu" signal) (31 "B.Cu" signal) ...)
func parseLayers(node kicadsexp.Sexp) ([]Layer, error) {
	var layers []Layer

	for _, layerNode := range sexp.GetListItems(node) {
		if layerNode.IsLeaf() {
			continue
		}

		number, err := sexp.GetInt(layerNode, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layer number: %w", err)
		}

		name, err := sexp.GetString(layerNode, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layer name: %w", err)
		}

		layerType, err := sexp.GetString(layerNode, 2)
		if err != nil {
			layerType = "user"
		}

		layers = append(layers, Layer{Number: number, Name: name, Type: layerType})
	}

	return layers, nil
}

// parseNets extracts net definitions from the root node
// Expected format: (net 0 "") (net 1 "GND") (net 2 "+5V") ...
func parseNets(root kicadsexp.Sexp) ([]*Net, error) {
	var nets []*Net

	for _, netNode := range sexp.FindAllNodes(root, "net") {
		number, err := sexp.GetInt(netNode, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to parse net number: %w", err)
		}
		name, _ := sexp.GetString(netNode, 2)
		nets = append(nets, &Net{Number: number, Name: name})
	}

	return nets, nil
}

// resolveNet maps a (net N ["name"]) or (net "name") reference onto the
// board's net table, adding nets the table lacks.
func (b *Board) resolveNet(node kicadsexp.Sexp) *Net {
	if num, err := sexp.GetInt(node, 1); err == nil {
		if net, ok := b.netMap().GetByNumber(num); ok {
			return net
		}
		name, _ := sexp.GetString(node, 2)
		net := &Net{Number: num, Name: name}
		b.Nets = append(b.Nets, net)
		b.netMap().add(net)
		return net
	}
	name, err := sexp.GetString(node, 1)
	if err != nil {
		return nil
	}
	return b.EnsureNet(name)
}

func parseGroup(node kicadsexp.Sexp) (*Group, error) {
	name, err := sexp.GetString(node, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse group name: %w", err)
	}
	g := &Group{
		Name:   name,
		ID:     UUID(sexp.GetChildString(node, "id")),
		Locked: sexp.HasFlag(node, "locked"),
	}
	if g.ID == "" {
		g.ID = sexp.GetUUID(node)
	}
	if members, ok := sexp.FindNode(node, "members"); ok {
		for _, m := range sexp.GetStrings(members) {
			g.Members = append(g.Members, UUID(m))
		}
	}
	return g, nil
}
