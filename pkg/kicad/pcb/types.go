package pcb

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp"
)

// Shared types (aliases to sexp package)
type Position = sexp.Position
type Angle = sexp.Angle
type PositionAngle = sexp.PositionAngle
type Size = sexp.Size
type Stroke = sexp.Stroke
type Fill = sexp.Fill
type BoundingBox = sexp.BoundingBox
type UUID = sexp.UUID
type Effects = sexp.Effects
type Property = sexp.Property

// Re-export BoundingBox constructors
var (
	NewBoundingBox = sexp.NewBoundingBox
	BoxOf          = sexp.BoxOf
)

// Layer represents a PCB layer
type Layer struct {
	Number int    // Layer number (ordinal)
	Name   string // Layer name (e.g., "F.Cu", "B.Cu", "F.SilkS")
	Type   string // Layer type (e.g., "signal", "user")
}

// IsCopper reports whether the layer carries copper.
func (l Layer) IsCopper() bool {
	return IsCopperLayer(l.Name)
}

// Net represents an electrical net
type Net struct {
	Number int    // Net number (ordinal)
	Name   string // Net name
}

// LayerSet represents a set of layers
type LayerSet []string

// HasCopper reports whether any layer in the set is copper.
func (ls LayerSet) HasCopper() bool {
	for _, l := range ls {
		if IsCopperLayer(l) {
			return true
		}
	}
	return false
}

// Flipped returns the set with every layer moved to the opposite side.
func (ls LayerSet) Flipped() LayerSet {
	out := make(LayerSet, len(ls))
	for i, l := range ls {
		out[i] = FlipLayer(l)
	}
	return out
}

// IsCopperLayer reports whether name denotes a copper layer, including the
// "*.Cu" wildcard.
func IsCopperLayer(name string) bool {
	return strings.HasSuffix(name, ".Cu")
}

// FlipLayer maps a front layer to its back counterpart and vice versa.
// Inner and unsided layers are returned unchanged.
func FlipLayer(name string) string {
	switch {
	case strings.HasPrefix(name, "F."):
		return "B." + name[2:]
	case strings.HasPrefix(name, "B."):
		return "F." + name[2:]
	default:
		return name
	}
}

// NetMap provides efficient lookup of nets by number or name
type NetMap struct {
	byNumber map[int]*Net
	byName   map[string]*Net
}

// NewNetMap creates a NetMap from a slice of nets
func NewNetMap(nets []*Net) *NetMap {
	nm := &NetMap{
		byNumber: make(map[int]*Net),
		byName:   make(map[string]*Net),
	}
	for _, net := range nets {
		nm.add(net)
	}
	return nm
}

func (nm *NetMap) add(net *Net) {
	nm.byNumber[net.Number] = net
	if net.Name != "" {
		nm.byName[net.Name] = net
	}
}

// GetByName retrieves a net by its name (e.g., "GND", "+5V")
func (nm *NetMap) GetByName(name string) (*Net, bool) {
	net, ok := nm.byName[name]
	return net, ok
}

// GetByNumber retrieves a net by its number
func (nm *NetMap) GetByNumber(num int) (*Net, bool) {
	net, ok := nm.byNumber[num]
	return net, ok
}
