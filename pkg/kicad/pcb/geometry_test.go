package pcb

import (
	"testing"
)

func TestFootprintBoundingBox(t *testing.T) {
	b := mustParse(t, testBoard)
	fp := b.Footprints[0]

	// At 90 degrees the pads at local x=-0.8/+0.8 land at y=50.8/49.2
	// and their 0.8 x 0.9 size turns to 0.9 x 0.8. The courtyard line is
	// ignored.
	bb := fp.BoundingBox()
	if !near(bb.Min.X, 99.55) || !near(bb.Max.X, 100.45) || !near(bb.Min.Y, 48.8) || !near(bb.Max.Y, 51.2) {
		t.Errorf("BoundingBox() = %+v", bb)
	}
}

func TestFootprintWithoutPadsUsesOrigin(t *testing.T) {
	fp := &Footprint{Position: PositionAngle{Position: Position{X: 3, Y: 4}}}
	bb := fp.BoundingBox()
	if bb.Min != bb.Max || bb.Min.X != 3 || bb.Min.Y != 4 {
		t.Errorf("BoundingBox() = %+v", bb)
	}
}

func TestFootprintFlip(t *testing.T) {
	b := mustParse(t, testBoard)
	fp := b.Footprints[0]
	before := fp.ToBoard(fp.Pads[0].Position.Position)

	fp.Flip(Position{X: 0, Y: 60})

	if fp.Layer != "B.Cu" || !fp.IsFlipped() {
		t.Errorf("layer = %q", fp.Layer)
	}
	if fp.Position.Y != 70 || fp.Position.Angle != -90 {
		t.Errorf("position = %+v", fp.Position)
	}
	if fp.Pads[0].Layers[0] != "B.Cu" || fp.Texts[0].Layer != "B.SilkS" || !fp.Texts[0].Effects.Justify.Mirror {
		t.Errorf("children did not change side")
	}

	// Pads mirror with the footprint.
	after := fp.ToBoard(fp.Pads[0].Position.Position)
	if !near(after.X, before.X) || !near(after.Y, 120-before.Y) {
		t.Errorf("pad moved to %+v, want mirror of %+v", after, before)
	}

	fp.Flip(Position{X: 0, Y: 60})
	if fp.Layer != "F.Cu" || fp.Position.Y != 50 || fp.Position.Angle != 90 || fp.Texts[0].Effects.Justify.Mirror {
		t.Errorf("double flip is not the identity: %+v", fp.Position)
	}
}

func TestItemRotateMove(t *testing.T) {
	b := mustParse(t, testBoard)

	seg := b.Tracks[0]
	seg.Rotate(Position{X: 100, Y: 49.2}, 90)
	if !near(seg.End.X, 100) || !near(seg.End.Y, 39.2) {
		t.Errorf("segment end = %+v", seg.End)
	}
	seg.Move(Position{X: 1, Y: 1})
	if !near(seg.Start.X, 101) || !near(seg.Start.Y, 50.2) {
		t.Errorf("segment start = %+v", seg.Start)
	}

	via := b.Tracks[2]
	via.Flip(Position{})
	if via.Layers[0] != "B.Cu" || via.Layers[1] != "F.Cu" || via.Start.Y != -51 {
		t.Errorf("via after flip = %+v", via)
	}

	text := b.Texts[0]
	text.Rotate(Position{}, 90)
	if text.Position.Angle != 135 {
		t.Errorf("text angle = %v", text.Position.Angle)
	}
	text.Flip(Position{})
	if text.Position.Angle != -135 || text.Layer != "B.SilkS" || !text.Effects.Justify.Mirror {
		t.Errorf("text after flip = %+v", text)
	}

	z := b.Zones[0]
	z.Move(Position{X: -90, Y: -40})
	bb := z.BoundingBox()
	if bb.Min.X != 0 || bb.Min.Y != 0 || bb.Max.X != 30 || bb.Max.Y != 20 {
		t.Errorf("zone box = %+v", bb)
	}
	if z.Fills[0].Points[0].X != 1 {
		t.Errorf("zone fill not moved: %+v", z.Fills[0].Points[0])
	}
}

func TestRectRotatesToPolygon(t *testing.T) {
	d := &Drawing{Shape: "rect", Start: Position{X: 0, Y: 0}, End: Position{X: 2, Y: 1}}
	d.Rotate(Position{}, 90)
	if d.Shape != "rect" {
		t.Fatalf("quarter turn should keep a rectangle, got %s", d.Shape)
	}
	d.Rotate(Position{}, 30)
	if d.Shape != "poly" || len(d.Points) != 4 {
		t.Errorf("rotated rect = %+v", d)
	}
}

func TestBoardMutation(t *testing.T) {
	b := mustParse(t, testBoard)

	seg := b.Tracks[0]
	if !b.Remove(seg) {
		t.Fatal("Remove() reported missing track")
	}
	if b.Remove(seg) {
		t.Error("second Remove() should report false")
	}
	if len(b.Tracks) != 2 || len(b.Groups[0].Members) != 1 {
		t.Errorf("tracks=%d group members=%d", len(b.Tracks), len(b.Groups[0].Members))
	}

	c := Clone(seg).(*Track)
	if c.UUID == seg.UUID || c.Net != seg.Net {
		t.Errorf("clone uuid=%s net=%v", c.UUID, c.Net)
	}
	b.Add(c)
	g := b.AddGroup("copy")
	g.Add(c)
	if len(b.Items(KindTrack)) != 3 || g.Members[0] != c.UUID {
		t.Errorf("add/group failed")
	}

	n := b.EnsureNet("NEW")
	if n.Number != 3 || b.EnsureNet("NEW") != n {
		t.Errorf("EnsureNet() = %+v", n)
	}

	copyBoard, err := b.Clone()
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	copyBoard.Footprints[0].Reference = "X"
	if b.Footprints[0].Reference != "R1" {
		t.Error("board clone shares footprints")
	}
}

func TestFlipLayer(t *testing.T) {
	tests := map[string]string{
		"F.Cu":      "B.Cu",
		"B.SilkS":   "F.SilkS",
		"In1.Cu":    "In1.Cu",
		"Edge.Cuts": "Edge.Cuts",
	}
	for in, want := range tests {
		if got := FlipLayer(in); got != want {
			t.Errorf("FlipLayer(%q) = %q, want %q", in, got, want)
		}
	}
}
