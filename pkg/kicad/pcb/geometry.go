package pcb

import (
	"math"
	"strings"
)

var cosmeticLayerSuffixes = []string{".CrtYd", ".Courtyard", ".SilkS", ".Silkscreen", ".Fab"}

func isCosmeticLayer(name string) bool {
	for _, s := range cosmeticLayerSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func mirrorPoints(pts []Position, axis float64) {
	for i := range pts {
		pts[i] = pts[i].MirrorY(axis)
	}
}

func movePoints(pts []Position, delta Position) {
	for i := range pts {
		pts[i] = pts[i].Add(delta)
	}
}

func rotatePoints(pts []Position, center Position, angle Angle) {
	for i := range pts {
		pts[i] = pts[i].Rotate(center, angle)
	}
}

// rotatedRect returns the box of a w x h rectangle centred on c and turned
// by angle.
func rotatedRect(c Position, w, h float64, angle Angle) BoundingBox {
	corners := []Position{
		{X: c.X - w/2, Y: c.Y - h/2},
		{X: c.X + w/2, Y: c.Y - h/2},
		{X: c.X + w/2, Y: c.Y + h/2},
		{X: c.X - w/2, Y: c.Y + h/2},
	}
	rotatePoints(corners, c, angle)
	return BoxOf(corners...)
}

// Footprint

func (fp *Footprint) Kind() Kind        { return KindFootprint }
func (fp *Footprint) ID() UUID          { return fp.UUID }
func (fp *Footprint) setID(id UUID)     { fp.UUID = id }
func (fp *Footprint) LayerName() string { return fp.Layer }
func (fp *Footprint) NetName() string   { return "" }

// ToBoard converts a footprint-local point to board coordinates.
func (fp *Footprint) ToBoard(local Position) Position {
	return local.Add(fp.Position.Position).Rotate(fp.Position.Position, fp.Position.Angle)
}

// BoundingBox covers the pads and the non-cosmetic outline graphics. Text,
// courtyard, silkscreen and fabrication shapes are ignored. A footprint
// with none of these collapses to its origin.
func (fp *Footprint) BoundingBox() BoundingBox {
	bb := NewBoundingBox()
	for _, pad := range fp.Pads {
		c := fp.ToBoard(pad.Position.Position)
		bb.ExpandBox(rotatedRect(c, pad.Size.Width, pad.Size.Height, fp.Position.Angle+pad.Position.Angle))
	}
	for _, g := range fp.Graphics {
		if isCosmeticLayer(g.Layer) {
			continue
		}
		abs := g.clone().(*Drawing)
		abs.Move(fp.Position.Position)
		abs.Rotate(fp.Position.Position, fp.Position.Angle)
		bb.ExpandBox(abs.BoundingBox())
	}
	if bb.IsEmpty() {
		bb.Expand(fp.Position.Position)
	}
	return bb
}

func (fp *Footprint) Move(delta Position) {
	fp.Position.Position = fp.Position.Position.Add(delta)
}

func (fp *Footprint) Rotate(center Position, angle Angle) {
	fp.Position.Position = fp.Position.Position.Rotate(center, angle)
	fp.Position.Angle = (fp.Position.Angle + angle).Normalize()
}

// Flip moves the footprint to the other side. Owned pads, texts and
// graphics are mirrored in the footprint frame and change side with it.
func (fp *Footprint) Flip(center Position) {
	fp.Position.Position = fp.Position.Position.MirrorY(center.Y)
	fp.Position.Angle = (-fp.Position.Angle).Normalize()
	fp.Layer = FlipLayer(fp.Layer)

	for _, pad := range fp.Pads {
		pad.Position.Y = -pad.Position.Y
		pad.Position.Angle = (-pad.Position.Angle).Normalize()
		pad.Layers = pad.Layers.Flipped()
	}
	for _, t := range fp.Texts {
		t.FlipLocal()
	}
	for _, g := range fp.Graphics {
		g.Flip(Position{})
	}
}

// FlipLocal mirrors a footprint text within its owner's frame.
func (t *FootprintText) FlipLocal() {
	t.Position.Y = -t.Position.Y
	t.Position.Angle = (-t.Position.Angle).Normalize()
	t.Layer = FlipLayer(t.Layer)
	t.Effects.Justify.Mirror = !t.Effects.Justify.Mirror
}

// Track

func (t *Track) Kind() Kind        { return KindTrack }
func (t *Track) ID() UUID          { return t.UUID }
func (t *Track) setID(id UUID)     { t.UUID = id }
func (t *Track) SetNet(net *Net)   { t.Net = net }
func (t *Track) LayerName() string { return t.Layer }

func (t *Track) NetName() string {
	if t.Net == nil {
		return ""
	}
	return t.Net.Name
}

func (t *Track) points() []*Position {
	switch t.Type {
	case TrackVia:
		return []*Position{&t.Start}
	case TrackArc:
		return []*Position{&t.Start, &t.Mid, &t.End}
	default:
		return []*Position{&t.Start, &t.End}
	}
}

func (t *Track) BoundingBox() BoundingBox {
	bb := NewBoundingBox()
	for _, p := range t.points() {
		bb.Expand(*p)
	}
	return bb.Inflate(t.Width / 2)
}

func (t *Track) Move(delta Position) {
	for _, p := range t.points() {
		*p = p.Add(delta)
	}
}

func (t *Track) Rotate(center Position, angle Angle) {
	for _, p := range t.points() {
		*p = p.Rotate(center, angle)
	}
}

func (t *Track) Flip(center Position) {
	for _, p := range t.points() {
		*p = p.MirrorY(center.Y)
	}
	if t.Type == TrackVia {
		t.Layers = t.Layers.Flipped()
		return
	}
	t.Layer = FlipLayer(t.Layer)
}

// Zone

func (z *Zone) Kind() Kind      { return KindZone }
func (z *Zone) ID() UUID        { return z.UUID }
func (z *Zone) setID(id UUID)   { z.UUID = id }
func (z *Zone) SetNet(net *Net) { z.Net = net }

func (z *Zone) LayerName() string {
	if len(z.Layers) == 0 {
		return ""
	}
	return z.Layers[0]
}

func (z *Zone) NetName() string {
	if z.Net == nil {
		return ""
	}
	return z.Net.Name
}

// IsOnCopperLayer reports whether the zone covers any copper layer.
func (z *Zone) IsOnCopperLayer() bool {
	return z.Layers.HasCopper()
}

func (z *Zone) BoundingBox() BoundingBox {
	return BoxOf(z.Outline...)
}

func (z *Zone) Move(delta Position) {
	movePoints(z.Outline, delta)
	for i := range z.Fills {
		movePoints(z.Fills[i].Points, delta)
	}
}

func (z *Zone) Rotate(center Position, angle Angle) {
	rotatePoints(z.Outline, center, angle)
	for i := range z.Fills {
		rotatePoints(z.Fills[i].Points, center, angle)
	}
}

func (z *Zone) Flip(center Position) {
	mirrorPoints(z.Outline, center.Y)
	z.Layers = z.Layers.Flipped()
	for i := range z.Fills {
		mirrorPoints(z.Fills[i].Points, center.Y)
		z.Fills[i].Layer = FlipLayer(z.Fills[i].Layer)
	}
}

// Text

func (t *Text) Kind() Kind        { return KindText }
func (t *Text) ID() UUID          { return t.UUID }
func (t *Text) setID(id UUID)     { t.UUID = id }
func (t *Text) LayerName() string { return t.Layer }
func (t *Text) NetName() string   { return "" }

// BoundingBox estimates the text extent from glyph size and justification.
func (t *Text) BoundingBox() BoundingBox {
	lines := strings.Split(t.Text, "\n")
	longest := 0
	for _, l := range lines {
		longest = max(longest, len([]rune(l)))
	}
	size := t.Effects.Font.Size
	if size.Width == 0 && size.Height == 0 {
		size = Size{Width: 1, Height: 1}
	}
	w := float64(longest) * size.Width
	h := float64(len(lines)) * size.Height * 1.6

	c := t.Position.Position
	switch t.Effects.Justify.Horizontal {
	case "left":
		c.X += w / 2
	case "right":
		c.X -= w / 2
	}
	switch t.Effects.Justify.Vertical {
	case "top":
		c.Y += h / 2
	case "bottom":
		c.Y -= h / 2
	}
	c = c.Rotate(t.Position.Position, t.Position.Angle)
	return rotatedRect(c, w, h, t.Position.Angle)
}

func (t *Text) Move(delta Position) {
	t.Position.Position = t.Position.Position.Add(delta)
}

func (t *Text) Rotate(center Position, angle Angle) {
	t.Position.Position = t.Position.Position.Rotate(center, angle)
	t.Position.Angle = (t.Position.Angle + angle).Normalize()
}

func (t *Text) Flip(center Position) {
	t.Position.Position = t.Position.Position.MirrorY(center.Y)
	t.Position.Angle = (-t.Position.Angle).Normalize()
	t.Layer = FlipLayer(t.Layer)
	t.Effects.Justify.Mirror = !t.Effects.Justify.Mirror
}

// Drawing

func (d *Drawing) Kind() Kind        { return KindDrawing }
func (d *Drawing) ID() UUID          { return d.UUID }
func (d *Drawing) setID(id UUID)     { d.UUID = id }
func (d *Drawing) SetNet(net *Net)   { d.Net = net }
func (d *Drawing) LayerName() string { return d.Layer }

func (d *Drawing) NetName() string {
	if d.Net == nil {
		return ""
	}
	return d.Net.Name
}

func (d *Drawing) points() []*Position {
	pts := []*Position{&d.Start, &d.End}
	switch d.Shape {
	case "arc":
		if d.Angle != 0 {
			pts = append(pts, &d.Center)
		} else {
			pts = append(pts, &d.Mid)
		}
	case "circle":
		pts = []*Position{&d.Center, &d.End}
	case "poly", "curve":
		pts = nil
	}
	for i := range d.Points {
		pts = append(pts, &d.Points[i])
	}
	return pts
}

func (d *Drawing) BoundingBox() BoundingBox {
	bb := NewBoundingBox()
	if d.Shape == "circle" {
		r := math.Hypot(d.End.X-d.Center.X, d.End.Y-d.Center.Y)
		bb.Expand(Position{X: d.Center.X - r, Y: d.Center.Y - r})
		bb.Expand(Position{X: d.Center.X + r, Y: d.Center.Y + r})
	} else {
		for _, p := range d.points() {
			bb.Expand(*p)
		}
	}
	return bb.Inflate(d.Stroke.Width / 2)
}

func (d *Drawing) Move(delta Position) {
	for _, p := range d.points() {
		*p = p.Add(delta)
	}
}

// Rotate turns the shape. A rectangle turned by anything other than a
// multiple of 90 degrees becomes a four point polygon.
func (d *Drawing) Rotate(center Position, angle Angle) {
	if d.Shape == "rect" && math.Mod(float64(angle), 90) != 0 {
		d.Points = []Position{
			d.Start,
			{X: d.End.X, Y: d.Start.Y},
			d.End,
			{X: d.Start.X, Y: d.End.Y},
		}
		d.Shape = "poly"
		d.Start, d.End = Position{}, Position{}
	}
	for _, p := range d.points() {
		*p = p.Rotate(center, angle)
	}
}

func (d *Drawing) Flip(center Position) {
	for _, p := range d.points() {
		*p = p.MirrorY(center.Y)
	}
	if d.Shape == "arc" && d.Angle != 0 {
		d.Angle = -d.Angle
	}
	d.Layer = FlipLayer(d.Layer)
}
