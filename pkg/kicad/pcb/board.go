package pcb

import (
	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp/kicadsexp"
)

// Board represents a complete KiCad PCB
type Board struct {
	Version    int    // File format version
	Generator  string // Generator info (e.g., "pcbnew")
	Layers     []Layer
	Nets       []*Net
	Footprints []*Footprint
	Tracks     []*Track
	Zones      []*Zone
	Texts      []*Text
	Drawings   []*Drawing
	Groups     []*Group

	// FileName is the path the board was read from, if any.
	FileName string

	// Header holds top-level nodes the model does not interpret (general,
	// paper, layers, setup, ...), written back verbatim and in order.
	Header []kicadsexp.Sexp
	// Trailer holds other uninterpreted top-level nodes such as dimensions.
	Trailer []kicadsexp.Sexp

	nets *NetMap
}

// Kind identifies the type of a board item
type Kind int

const (
	KindFootprint Kind = iota
	KindTrack
	KindZone
	KindText
	KindDrawing
)

// Kinds lists the item kinds in document order.
var Kinds = []Kind{KindFootprint, KindTrack, KindZone, KindText, KindDrawing}

func (k Kind) String() string {
	switch k {
	case KindFootprint:
		return "footprint"
	case KindTrack:
		return "track"
	case KindZone:
		return "zone"
	case KindText:
		return "text"
	case KindDrawing:
		return "drawing"
	default:
		return "unknown"
	}
}

// Item is a placeable board element.
type Item interface {
	Kind() Kind
	ID() UUID
	// LayerName returns the primary layer of the item.
	LayerName() string
	// NetName returns the name of the connected net or "".
	NetName() string
	BoundingBox() BoundingBox
	// Move translates the item by delta.
	Move(delta Position)
	// Rotate turns the item about center, counter-clockwise on screen.
	Rotate(center Position, angle Angle)
	// Flip mirrors the item to the other board side across the horizontal
	// line through center.
	Flip(center Position)

	clone() Item
	setID(UUID)
}

// Connectable is implemented by items that may carry a net.
type Connectable interface {
	Item
	SetNet(net *Net)
}

// Footprint represents a component footprint
type Footprint struct {
	Library  string        // Library name
	Name     string        // Footprint name
	Layer    string        // F.Cu or B.Cu
	Position PositionAngle // Position and rotation
	Locked   bool
	UUID     UUID

	// Path is the schematic instance path, "/sheet/.../symbol".
	Path      string
	Reference string
	Value     string
	SheetName string
	SheetFile string

	Properties []Property
	Texts      []*FootprintText
	Pads       []*Pad
	Graphics   []*Drawing // footprint-local coordinates
	Overrides  LocalOverrides

	Extra []kicadsexp.Sexp
}

// LocalOverrides holds per-footprint design rule overrides. A nil field is
// unset.
type LocalOverrides struct {
	Clearance         *float64
	SolderMaskMargin  *float64
	SolderPasteMargin *float64
	SolderPasteRatio  *float64
	ZoneConnect       *int
}

// Clone returns a deep copy of o.
func (o LocalOverrides) Clone() LocalOverrides {
	return LocalOverrides{
		Clearance:         cloneFloat(o.Clearance),
		SolderMaskMargin:  cloneFloat(o.SolderMaskMargin),
		SolderPasteMargin: cloneFloat(o.SolderPasteMargin),
		SolderPasteRatio:  cloneFloat(o.SolderPasteRatio),
		ZoneConnect:       cloneInt(o.ZoneConnect),
	}
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// FootprintText is a text field owned by a footprint. Position is relative
// to the footprint origin and orientation.
type FootprintText struct {
	// Kind is reference, value, user or property.
	Kind     string
	Key      string // property name when Property is set
	Text     string
	Position PositionAngle
	Layer    string
	Hidden   bool
	Unlocked bool
	Effects  Effects
	UUID     UUID

	// Property marks text stored as a (property ...) node.
	Property bool

	Extra []kicadsexp.Sexp
}

// Pad represents a footprint pad. Position is relative to the footprint
// origin and orientation.
type Pad struct {
	Number   string
	Type     string // thru_hole, smd, connect, np_thru_hole
	Shape    string // circle, rect, oval, roundrect, trapezoid, custom
	Position PositionAngle
	Size     Size
	Drill    float64
	Layers   LayerSet
	Net      *Net
	UUID     UUID

	Extra []kicadsexp.Sexp
}

// NetName returns the name of the pad's net or "".
func (p *Pad) NetName() string {
	if p.Net == nil {
		return ""
	}
	return p.Net.Name
}

// TrackKind distinguishes straight segments, arcs and vias
type TrackKind int

const (
	TrackSegment TrackKind = iota
	TrackArc
	TrackVia
)

// Track represents a copper track segment, arc or via
type Track struct {
	Type   TrackKind
	Start  Position // via position for vias
	Mid    Position // arcs only
	End    Position
	Width  float64 // via diameter for vias
	Drill  float64 // vias only
	Layer  string
	Layers LayerSet // vias only
	Net    *Net
	Locked bool
	UUID   UUID

	Extra []kicadsexp.Sexp
}

// Zone represents a copper zone or rule area
type Zone struct {
	Net      *Net
	Layers   LayerSet
	Name     string
	Outline  []Position
	Fills    []ZoneFill
	Locked   bool
	UUID     UUID

	Extra []kicadsexp.Sexp
}

// ZoneFill is a filled polygon computed for one layer of a zone
type ZoneFill struct {
	Layer  string
	Points []Position
	Extra  []kicadsexp.Sexp
}

// Text represents a free board text
type Text struct {
	Text     string
	Position PositionAngle
	Layer    string
	Effects  Effects
	Locked   bool
	UUID     UUID

	Extra []kicadsexp.Sexp
}

// Drawing represents a graphic shape on the board or inside a footprint
type Drawing struct {
	Shape  string // line, rect, circle, arc, poly, curve
	Start  Position
	Mid    Position // arcs
	End    Position // circles: a point on the circumference
	Center Position // legacy arcs
	Points []Position
	Angle  Angle // legacy arcs
	Stroke Stroke
	Fill   Fill
	Layer  string
	Net    *Net
	Locked bool
	UUID   UUID

	Extra []kicadsexp.Sexp
}

// Group represents a logical grouping of elements
type Group struct {
	Name    string
	ID      UUID
	Locked  bool
	Members []UUID
}

// NewUUID returns a fresh random identifier.
func NewUUID() UUID {
	return UUID(uuid.NewString())
}

// IsFlipped reports whether the footprint sits on the bottom side.
func (fp *Footprint) IsFlipped() bool {
	return fp.Layer == "B.Cu"
}

// Property returns the value of the named property.
func (fp *Footprint) Property(key string) (string, bool) {
	for _, p := range fp.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	for _, t := range fp.Texts {
		if t.Property && t.Key == key {
			return t.Text, true
		}
	}
	return "", false
}

// SourcePath returns the file the board was read from, or "".
func (b *Board) SourcePath() string {
	return b.FileName
}

// CopperLayerCount returns the number of copper layers in the stack.
func (b *Board) CopperLayerCount() int {
	n := 0
	for _, l := range b.Layers {
		if l.IsCopper() {
			n++
		}
	}
	return n
}

func (b *Board) netMap() *NetMap {
	if b.nets == nil {
		b.nets = NewNetMap(b.Nets)
	}
	return b.nets
}

// GetNet returns a net by name, or nil if not found
func (b *Board) GetNet(name string) *Net {
	net, _ := b.netMap().GetByName(name)
	return net
}

// EnsureNet returns the named net, creating it when the board lacks one.
func (b *Board) EnsureNet(name string) *Net {
	if net := b.GetNet(name); net != nil {
		return net
	}
	next := 0
	for _, n := range b.Nets {
		if n.Number >= next {
			next = n.Number + 1
		}
	}
	net := &Net{Number: next, Name: name}
	b.Nets = append(b.Nets, net)
	b.netMap().add(net)
	return net
}

// FootprintByReference returns the first footprint with the given reference.
func (b *Board) FootprintByReference(ref string) *Footprint {
	for _, fp := range b.Footprints {
		if fp.Reference == ref {
			return fp
		}
	}
	return nil
}

// Items returns the board items of the given kind.
func (b *Board) Items(kind Kind) []Item {
	var items []Item
	switch kind {
	case KindFootprint:
		for _, fp := range b.Footprints {
			items = append(items, fp)
		}
	case KindTrack:
		for _, t := range b.Tracks {
			items = append(items, t)
		}
	case KindZone:
		for _, z := range b.Zones {
			items = append(items, z)
		}
	case KindText:
		for _, t := range b.Texts {
			items = append(items, t)
		}
	case KindDrawing:
		for _, d := range b.Drawings {
			items = append(items, d)
		}
	}
	return items
}

// Add appends an item to the board.
func (b *Board) Add(item Item) {
	switch v := item.(type) {
	case *Footprint:
		b.Footprints = append(b.Footprints, v)
	case *Track:
		b.Tracks = append(b.Tracks, v)
	case *Zone:
		b.Zones = append(b.Zones, v)
	case *Text:
		b.Texts = append(b.Texts, v)
	case *Drawing:
		b.Drawings = append(b.Drawings, v)
	}
}

// Remove deletes an item from the board. It reports whether the item was
// present.
func (b *Board) Remove(item Item) bool {
	var ok bool
	switch v := item.(type) {
	case *Footprint:
		b.Footprints, ok = without(b.Footprints, v)
	case *Track:
		b.Tracks, ok = without(b.Tracks, v)
	case *Zone:
		b.Zones, ok = without(b.Zones, v)
	case *Text:
		b.Texts, ok = without(b.Texts, v)
	case *Drawing:
		b.Drawings, ok = without(b.Drawings, v)
	}
	if ok {
		b.dropGroupMember(item.ID())
	}
	return ok
}

func without[T comparable](items []T, item T) ([]T, bool) {
	for i, it := range items {
		if it == item {
			return append(items[:i:i], items[i+1:]...), true
		}
	}
	return items, false
}

func (b *Board) dropGroupMember(id UUID) {
	if id == "" {
		return
	}
	for _, g := range b.Groups {
		for i, m := range g.Members {
			if m == id {
				g.Members = append(g.Members[:i:i], g.Members[i+1:]...)
				break
			}
		}
	}
}

// AddGroup creates a named group on the board.
func (b *Board) AddGroup(name string) *Group {
	g := &Group{Name: name, ID: NewUUID()}
	b.Groups = append(b.Groups, g)
	return g
}

// Add records item as a member of the group, giving it an identifier if
// it has none.
func (g *Group) Add(item Item) {
	if item.ID() == "" {
		item.setID(NewUUID())
	}
	g.Members = append(g.Members, item.ID())
}
