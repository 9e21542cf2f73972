package pcb

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp/kicadsexp"
)

// WriteFile writes the board to filename, replacing it atomically.
func (b *Board) WriteFile(filename string) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".otl-*.kicad_pcb")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := b.Encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	return nil
}

// Encode writes the board as a KiCad board file.
func (b *Board) Encode(w io.Writer) error {
	e := &encoder{Writer: kicadsexp.NewWriter(w), idKey: "tstamp"}
	if b.Version >= uuidVersion {
		e.idKey = "uuid"
	}

	e.Open("kicad_pcb")
	e.Open("version").Int(b.Version).Close()
	e.Open("generator").Symbol(b.Generator).Close()
	for _, n := range b.Header {
		e.Node(n)
	}
	for _, n := range b.Nets {
		e.Open("net").Int(n.Number).Quote(n.Name).Close()
	}
	for _, fp := range b.Footprints {
		e.footprint(fp)
	}
	for _, d := range b.Drawings {
		e.drawing("gr_", d)
	}
	for _, t := range b.Texts {
		e.text(t)
	}
	for _, t := range b.Tracks {
		e.track(t)
	}
	for _, z := range b.Zones {
		e.zone(z)
	}
	for _, g := range b.Groups {
		e.group(g, b.Version >= uuidVersion)
	}
	for _, n := range b.Trailer {
		e.Node(n)
	}
	e.Close()

	if err := e.Flush(); err != nil {
		return fmt.Errorf("failed to write board: %w", err)
	}
	return nil
}

type encoder struct {
	*kicadsexp.Writer
	idKey string
}

func (e *encoder) id(id UUID) {
	if id != "" {
		e.Leaf(e.idKey, string(id))
	}
}

func (e *encoder) at(p PositionAngle) {
	e.Open("at").Float(p.X).Float(p.Y)
	if a := p.Angle.Normalize(); a != 0 {
		e.Float(float64(a))
	}
	e.Close()
}

func (e *encoder) xy(name string, p Position) {
	e.Open(name).Float(p.X).Float(p.Y).Close()
}

func (e *encoder) pts(points []Position) {
	e.Open("pts")
	for _, p := range points {
		e.xy("xy", p)
	}
	e.Close()
}

func (e *encoder) net(n *Net) {
	if n == nil {
		return
	}
	e.Open("net").Int(n.Number).Quote(n.Name).Close()
}

// leaves writes the bare atoms from extra inline, and lists returns the rest.
func (e *encoder) leaves(extra []kicadsexp.Sexp) (lists []kicadsexp.Sexp) {
	for _, x := range extra {
		if x.IsLeaf() {
			e.Node(x)
		} else {
			lists = append(lists, x)
		}
	}
	return lists
}

func (e *encoder) nodes(nodes []kicadsexp.Sexp) {
	for _, n := range nodes {
		e.Node(n)
	}
}

func (e *encoder) effects(fx Effects) {
	e.Open("effects")
	e.Open("font")
	if fx.Font.Face != "" {
		e.Leaf("face", fx.Font.Face)
	}
	e.Open("size").Float(fx.Font.Size.Height).Float(fx.Font.Size.Width).Close()
	if fx.Font.Thickness != 0 {
		e.Open("thickness").Float(fx.Font.Thickness).Close()
	}
	if fx.Font.Bold {
		e.Symbol("bold")
	}
	if fx.Font.Italic {
		e.Symbol("italic")
	}
	e.Close()
	j := fx.Justify
	if (j.Horizontal != "" && j.Horizontal != "center") || (j.Vertical != "" && j.Vertical != "center") || j.Mirror {
		e.Open("justify")
		if j.Horizontal == "left" || j.Horizontal == "right" {
			e.Symbol(j.Horizontal)
		}
		if j.Vertical == "top" || j.Vertical == "bottom" {
			e.Symbol(j.Vertical)
		}
		if j.Mirror {
			e.Symbol("mirror")
		}
		e.Close()
	}
	if fx.Hide {
		e.Symbol("hide")
	}
	e.Close()
}

func (e *encoder) footprint(fp *Footprint) {
	name := fp.Name
	if fp.Library != "" {
		name = fp.Library + ":" + fp.Name
	}
	e.Open("footprint").Quote(name)
	if fp.Locked {
		e.Symbol("locked")
	}
	rest := e.leaves(fp.Extra)
	e.Leaf("layer", fp.Layer)
	e.id(fp.UUID)
	e.at(fp.Position)

	var models []kicadsexp.Sexp
	for _, n := range rest {
		if head, _ := kicadsexp.Atom(n.Head()); head == "model" {
			models = append(models, n)
			continue
		}
		e.Node(n)
	}
	for _, p := range fp.Properties {
		e.Leaf("property", p.Key, p.Value)
	}
	if fp.Path != "" {
		e.Leaf("path", fp.Path)
	}

	o := fp.Overrides
	if o.SolderMaskMargin != nil {
		e.Open("solder_mask_margin").Float(*o.SolderMaskMargin).Close()
	}
	if o.SolderPasteMargin != nil {
		e.Open("solder_paste_margin").Float(*o.SolderPasteMargin).Close()
	}
	if o.SolderPasteRatio != nil {
		e.Open("solder_paste_ratio").Float(*o.SolderPasteRatio).Close()
	}
	if o.Clearance != nil {
		e.Open("clearance").Float(*o.Clearance).Close()
	}
	if o.ZoneConnect != nil {
		e.Open("zone_connect").Int(*o.ZoneConnect).Close()
	}

	for _, t := range fp.Texts {
		e.footprintText(fp, t)
	}
	for _, g := range fp.Graphics {
		e.drawing("fp_", g)
	}
	for _, p := range fp.Pads {
		e.pad(fp, p)
	}
	e.nodes(models)
	e.Close()
}

func (e *encoder) footprintText(fp *Footprint, t *FootprintText) {
	abs := t.Position
	abs.Angle = (abs.Angle + fp.Position.Angle).Normalize()

	if t.Property {
		e.Open("property").Quote(t.Key).Quote(t.Text)
	} else {
		e.Open("fp_text").Symbol(t.Kind).Quote(t.Text)
	}
	rest := e.leaves(t.Extra)
	e.Open("at").Float(abs.X).Float(abs.Y)
	if a := abs.Angle.Normalize(); a != 0 {
		e.Float(float64(a))
	}
	if t.Unlocked && !t.Property {
		e.Symbol("unlocked")
	}
	e.Close()
	if t.Unlocked && t.Property {
		e.Open("unlocked").Symbol("yes").Close()
	}
	e.Leaf("layer", t.Layer)
	if t.Hidden {
		if t.Property {
			e.Open("hide").Symbol("yes").Close()
		} else {
			e.Symbol("hide")
		}
	}
	e.id(t.UUID)
	e.effects(t.Effects)
	e.nodes(rest)
	e.Close()
}

func (e *encoder) pad(fp *Footprint, p *Pad) {
	abs := p.Position
	abs.Angle = (abs.Angle + fp.Position.Angle).Normalize()

	e.Open("pad").Quote(p.Number).Symbol(p.Type).Symbol(p.Shape)
	rest := e.leaves(p.Extra)
	e.at(abs)
	e.Open("size").Float(p.Size.Width).Float(p.Size.Height).Close()
	e.Open("layers")
	for _, l := range p.Layers {
		e.Quote(l)
	}
	e.Close()
	e.nodes(rest)
	e.net(p.Net)
	e.id(p.UUID)
	e.Close()
}

func (e *encoder) drawing(prefix string, d *Drawing) {
	e.Open(prefix + d.Shape)
	if d.Locked {
		e.Symbol("locked")
	}
	rest := e.leaves(d.Extra)

	switch d.Shape {
	case "circle":
		e.xy("center", d.Center)
		e.xy("end", d.End)
	case "arc":
		if d.Angle != 0 {
			e.xy("start", d.Center)
			e.xy("end", d.End)
			e.Open("angle").Float(float64(d.Angle)).Close()
		} else {
			e.xy("start", d.Start)
			e.xy("mid", d.Mid)
			e.xy("end", d.End)
		}
	case "poly", "curve":
		e.pts(d.Points)
	default:
		e.xy("start", d.Start)
		e.xy("end", d.End)
	}

	e.Open("stroke").
		Open("width").Float(d.Stroke.Width).Close().
		Open("type").Symbol(strokeType(d.Stroke)).Close().
		Close()
	switch d.Shape {
	case "rect", "circle", "poly":
		if d.Fill.Type != "" {
			e.Open("fill").Symbol(d.Fill.Type).Close()
		}
	}
	e.Leaf("layer", d.Layer)
	e.net(d.Net)
	e.id(d.UUID)
	e.nodes(rest)
	e.Close()
}

func strokeType(s Stroke) string {
	if s.Type == "" {
		return "solid"
	}
	return s.Type
}

func (e *encoder) text(t *Text) {
	e.Open("gr_text").Quote(t.Text)
	if t.Locked {
		e.Symbol("locked")
	}
	rest := e.leaves(t.Extra)
	e.at(t.Position)
	e.Leaf("layer", t.Layer)
	e.id(t.UUID)
	e.effects(t.Effects)
	e.nodes(rest)
	e.Close()
}

func (e *encoder) track(t *Track) {
	switch t.Type {
	case TrackVia:
		e.Open("via")
	case TrackArc:
		e.Open("arc")
	default:
		e.Open("segment")
	}
	if t.Locked {
		e.Symbol("locked")
	}
	rest := e.leaves(t.Extra)

	switch t.Type {
	case TrackVia:
		e.xy("at", t.Start)
		e.Open("size").Float(t.Width).Close()
		e.Open("drill").Float(t.Drill).Close()
		e.Open("layers")
		for _, l := range t.Layers {
			e.Quote(l)
		}
		e.Close()
	case TrackArc:
		e.xy("start", t.Start)
		e.xy("mid", t.Mid)
		e.xy("end", t.End)
	default:
		e.xy("start", t.Start)
		e.xy("end", t.End)
	}
	if t.Type != TrackVia {
		e.Open("width").Float(t.Width).Close()
		e.Leaf("layer", t.Layer)
	}
	if t.Net != nil {
		e.Open("net").Int(t.Net.Number).Close()
	} else {
		e.Open("net").Int(0).Close()
	}
	e.nodes(rest)
	e.id(t.UUID)
	e.Close()
}

func (e *encoder) zone(z *Zone) {
	e.Open("zone")
	rest := e.leaves(z.Extra)
	if z.Net != nil {
		e.Open("net").Int(z.Net.Number).Close()
		e.Leaf("net_name", z.Net.Name)
	} else {
		e.Open("net").Int(0).Close()
		e.Leaf("net_name", "")
	}
	if len(z.Layers) == 1 {
		e.Leaf("layer", z.Layers[0])
	} else {
		e.Open("layers")
		for _, l := range z.Layers {
			e.Quote(l)
		}
		e.Close()
	}
	e.id(z.UUID)
	if z.Name != "" {
		e.Leaf("name", z.Name)
	}
	if z.Locked {
		e.Open("locked").Symbol("yes").Close()
	}
	e.nodes(rest)
	e.Open("polygon")
	e.pts(z.Outline)
	e.Close()
	for _, f := range z.Fills {
		e.Open("filled_polygon")
		e.Leaf("layer", f.Layer)
		fillRest := e.leaves(f.Extra)
		e.nodes(fillRest)
		e.pts(f.Points)
		e.Close()
	}
	e.Close()
}

func (e *encoder) group(g *Group, uuidKey bool) {
	e.Open("group").Quote(g.Name)
	if g.Locked {
		e.Symbol("locked")
	}
	if uuidKey {
		e.Leaf("uuid", string(g.ID))
	} else {
		e.Open("id").Symbol(string(g.ID)).Close()
	}
	e.Open("members")
	for _, m := range g.Members {
		e.Symbol(string(m))
	}
	e.Close()
	e.Close()
}
