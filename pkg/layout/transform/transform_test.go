package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
)

const eps = 1e-9

func anchor(x, y float64, angle pcb.Angle, layer string) *pcb.Footprint {
	return &pcb.Footprint{
		Reference: "U1",
		Layer:     layer,
		Position:  pcb.PositionAngle{Position: pcb.Position{X: x, Y: y}, Angle: angle},
	}
}

func assertPos(t *testing.T, want, got pcb.Position) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-6, "y")
}

// sameAngle compares angles modulo a full turn.
func sameAngle(t *testing.T, want, got pcb.Angle) {
	t.Helper()
	d := math.Mod(float64(want-got), 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	assert.InDelta(t, 0, d, 1e-6, "want %v, got %v", want, got)
}

func TestAnchorMapsOntoAnchor(t *testing.T) {
	tests := []struct {
		name     string
		saved    *pcb.Footprint
		dest     *pcb.Footprint
		mirrored bool
	}{
		{"same side", anchor(10, 20, 30, "F.Cu"), anchor(100, 50, -45, "F.Cu"), false},
		{"top to bottom", anchor(10, 20, 30, "F.Cu"), anchor(100, 50, -45, "B.Cu"), true},
		{"bottom to top", anchor(-5, 7, 180, "B.Cu"), anchor(3, 3, 90, "F.Cu"), true},
		{"both bottom", anchor(-5, 7, 180, "B.Cu"), anchor(3, 3, 0, "B.Cu"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.saved, tt.dest)
			assert.Equal(t, tt.mirrored, e.Mirrored())
			assertPos(t, tt.dest.Position.Position, e.Point(tt.saved.Position.Position))
			sameAngle(t, tt.dest.Position.Angle, e.Orientation(tt.saved.Position.Angle))
		})
	}
}

func TestNullDeltaIsIdentity(t *testing.T) {
	a := anchor(12.5, -3, 75, "F.Cu")
	e := New(a, a)

	p := pcb.Position{X: 40, Y: 17}
	assert.Equal(t, p, e.Point(p))
	assert.Equal(t, pcb.Angle(-120), e.Orientation(-120))

	tr := &pcb.Track{Start: p, End: pcb.Position{X: 41, Y: 18}, Layer: "F.Cu", Width: 0.25}
	before := *tr
	e.Apply(tr)
	assert.Equal(t, before, *tr)
}

func TestRotateThenTranslate(t *testing.T) {
	// F2 sits 10mm right of the saved anchor; the destination anchor is
	// turned a quarter turn counter-clockwise.
	e := New(anchor(0, 0, 0, "F.Cu"), anchor(1000, 500, 90, "F.Cu"))

	assertPos(t, pcb.Position{X: 1000, Y: 490}, e.Point(pcb.Position{X: 10, Y: 0}))
	sameAngle(t, 90, e.Orientation(0))
	sameAngle(t, 180, e.Orientation(90))
}

func TestMirroredPoint(t *testing.T) {
	e := New(anchor(0, 0, 0, "F.Cu"), anchor(50, 50, 0, "B.Cu"))
	require.True(t, e.Mirrored())

	// Mirroring about the horizontal axis keeps x and negates y.
	assertPos(t, pcb.Position{X: 60, Y: 45}, e.Point(pcb.Position{X: 10, Y: 5}))
	sameAngle(t, -30, e.Orientation(30))
}

func TestApplyAgreesWithFormulas(t *testing.T) {
	cases := []struct {
		name        string
		saved, dest *pcb.Footprint
	}{
		{"same side", anchor(10, 20, 30, "F.Cu"), anchor(100, 50, -45, "F.Cu")},
		{"mirrored", anchor(10, 20, 30, "F.Cu"), anchor(100, 50, -45, "B.Cu")},
		{"mirrored negative", anchor(10, 20, -150, "B.Cu"), anchor(-20, 5, 120, "F.Cu")},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.saved, tt.dest)

			fp := &pcb.Footprint{
				Layer:    tt.saved.Layer,
				Position: pcb.PositionAngle{Position: pcb.Position{X: 17, Y: -4}, Angle: 65},
			}
			moved := pcb.Clone(fp).(*pcb.Footprint)
			e.Apply(moved)

			assertPos(t, e.Point(fp.Position.Position), moved.Position.Position)
			sameAngle(t, e.Orientation(fp.Position.Angle), moved.Position.Angle)
			assert.Equal(t, fp.IsFlipped() != e.Mirrored(), moved.IsFlipped())
		})
	}
}

func TestMirrorInvolution(t *testing.T) {
	a := anchor(10, 20, 30, "F.Cu")
	b := anchor(100, 50, -45, "B.Cu")
	there, back := New(a, b), New(b, a)

	tr := &pcb.Track{
		Type:  pcb.TrackArc,
		Start: pcb.Position{X: 12, Y: 25}, Mid: pcb.Position{X: 14, Y: 27}, End: pcb.Position{X: 16, Y: 25},
		Layer: "F.Cu", Width: 0.3,
	}
	txt := &pcb.Text{Text: "CH1", Layer: "F.SilkS",
		Position: pcb.PositionAngle{Position: pcb.Position{X: 8, Y: 30}, Angle: 15}}

	for _, item := range []pcb.Item{tr, txt} {
		c := pcb.Clone(item)
		there.Apply(c)
		back.Apply(c)
		switch v := c.(type) {
		case *pcb.Track:
			assertPos(t, tr.Start, v.Start)
			assertPos(t, tr.Mid, v.Mid)
			assertPos(t, tr.End, v.End)
			assert.Equal(t, tr.Layer, v.Layer)
		case *pcb.Text:
			assertPos(t, txt.Position.Position, v.Position.Position)
			sameAngle(t, txt.Position.Angle, v.Position.Angle)
			assert.Equal(t, txt.Layer, v.Layer)
			assert.False(t, v.Effects.Justify.Mirror)
		}
	}

	p := pcb.Position{X: -3, Y: 44}
	assertPos(t, p, back.Point(there.Point(p)))
	sameAngle(t, 70, back.Orientation(there.Orientation(70)))
}

func footprintWithText(ref, layer string, x, y float64, angle pcb.Angle) *pcb.Footprint {
	side := func(name string) string {
		if layer == "B.Cu" {
			return pcb.FlipLayer(name)
		}
		return name
	}
	return &pcb.Footprint{
		Reference: ref,
		Layer:     layer,
		Position:  pcb.PositionAngle{Position: pcb.Position{X: x, Y: y}, Angle: angle},
		Pads: []*pcb.Pad{
			{Number: "1", Position: pcb.PositionAngle{Position: pcb.Position{X: -1, Y: 0.5}}, Layers: pcb.LayerSet{side("F.Cu")}},
		},
		Texts: []*pcb.FootprintText{
			{Kind: "reference", Text: ref, Layer: side("F.SilkS"),
				Position: pcb.PositionAngle{Position: pcb.Position{X: 0, Y: -2}}},
		},
	}
}

func TestPlaceFootprint(t *testing.T) {
	savedAnchor := footprintWithText("U1", "F.Cu", 0, 0, 0)
	savedR := footprintWithText("R1", "F.Cu", 10, 0, 0)
	savedR.Texts[0].Position = pcb.PositionAngle{Position: pcb.Position{X: 1, Y: -3}, Angle: 90}
	savedR.Texts[0].Effects.Font.Size = pcb.Size{Width: 0.8, Height: 0.8}
	clearance := 0.3
	savedR.Overrides.Clearance = &clearance

	t.Run("same side", func(t *testing.T) {
		destAnchor := footprintWithText("U101", "F.Cu", 1000, 500, 90)
		destR := footprintWithText("R101", "F.Cu", 0, 0, 0)
		e := New(savedAnchor, destAnchor)

		require.NoError(t, e.PlaceFootprint(savedR, destR, false))
		assertPos(t, pcb.Position{X: 1000, Y: 490}, destR.Position.Position)
		sameAngle(t, 90, destR.Position.Angle)
		require.NotNil(t, destR.Overrides.Clearance)
		assert.Equal(t, 0.3, *destR.Overrides.Clearance)
		assert.NotSame(t, savedR.Overrides.Clearance, destR.Overrides.Clearance)

		txt := destR.Texts[0]
		assert.Equal(t, "R101", txt.Text)
		assert.Equal(t, savedR.Texts[0].Position, txt.Position)
		assert.Equal(t, 0.8, txt.Effects.Font.Size.Width)

		require.NoError(t, e.PlaceFootprint(savedAnchor, destAnchor, true))
		assertPos(t, pcb.Position{X: 1000, Y: 500}, destAnchor.Position.Position)
	})

	t.Run("mirrored", func(t *testing.T) {
		destAnchor := footprintWithText("U101", "B.Cu", 50, 50, 0)
		destR := footprintWithText("R101", "F.Cu", 0, 0, 0)
		e := New(savedAnchor, destAnchor)

		require.NoError(t, e.PlaceFootprint(savedR, destR, false))
		assert.True(t, destR.IsFlipped())
		assertPos(t, pcb.Position{X: 60, Y: 50}, destR.Position.Position)
		assert.Equal(t, pcb.LayerSet{"B.Cu"}, destR.Pads[0].Layers)
		assert.InDelta(t, -0.5, destR.Pads[0].Position.Y, eps)

		txt := destR.Texts[0]
		assert.Equal(t, "B.SilkS", txt.Layer)
		assert.InDelta(t, 3, txt.Position.Y, eps)
		sameAngle(t, -90, txt.Position.Angle)
		assert.True(t, txt.Effects.Justify.Mirror)

		// The anchor keeps its place but its texts follow the saved layout.
		require.NoError(t, e.PlaceFootprint(savedAnchor, destAnchor, true))
		assertPos(t, pcb.Position{X: 50, Y: 50}, destAnchor.Position.Position)
		assert.Equal(t, "B.SilkS", destAnchor.Texts[0].Layer)
		assert.InDelta(t, 2, destAnchor.Texts[0].Position.Y, eps)
	})

	t.Run("text count", func(t *testing.T) {
		destR := footprintWithText("R101", "F.Cu", 0, 0, 0)
		destR.Texts = nil
		err := New(savedAnchor, savedAnchor).PlaceFootprint(savedR, destR, false)
		assert.ErrorIs(t, err, errkind.Cardinality)
	})
}

func TestReplicate(t *testing.T) {
	e := New(anchor(0, 0, 0, "F.Cu"), anchor(100, 0, 0, "F.Cu"))
	savedNet := &pcb.Net{Number: 3, Name: "/amp/OUT"}
	destNet := &pcb.Net{Number: 7, Name: "/amp1/OUT"}
	nets := map[string]*pcb.Net{"/amp/OUT": destNet}
	other := &pcb.Net{Number: 4, Name: "GND"}

	seg := func(n *pcb.Net) *pcb.Track {
		return &pcb.Track{Start: pcb.Position{X: 1}, End: pcb.Position{X: 2}, Layer: "F.Cu", Net: n, UUID: "t"}
	}

	got, outcome, _ := e.Replicate(seg(savedNet), nets)
	require.Equal(t, Cloned, outcome)
	tr := got.(*pcb.Track)
	assert.Same(t, destNet, tr.Net)
	assert.Equal(t, 101.0, tr.Start.X)
	assert.NotEqual(t, pcb.UUID("t"), tr.UUID)

	_, outcome, reason := e.Replicate(seg(other), nets)
	assert.Equal(t, Dropped, outcome)
	assert.Empty(t, reason)

	got, outcome, _ = e.Replicate(seg(nil), nets)
	require.Equal(t, Cloned, outcome)
	assert.Nil(t, got.(*pcb.Track).Net)

	keepout := &pcb.Zone{Layers: pcb.LayerSet{"F.SilkS"}, Net: other, Outline: []pcb.Position{{X: 0, Y: 0}, {X: 1, Y: 1}}}
	got, outcome, _ = e.Replicate(keepout, nets)
	require.Equal(t, Cloned, outcome)
	assert.Nil(t, got.(*pcb.Zone).Net)
	assert.Equal(t, 100.0, got.(*pcb.Zone).Outline[0].X)

	pour := &pcb.Zone{Layers: pcb.LayerSet{"F.Cu"}, Net: other}
	_, outcome, reason = e.Replicate(pour, nets)
	assert.Equal(t, Skipped, outcome)
	assert.Contains(t, reason, "GND")

	_, outcome, reason = e.Replicate(&pcb.Drawing{Shape: "line", Layer: "F.Cu", Net: other}, nets)
	assert.Equal(t, Skipped, outcome)
	assert.Contains(t, reason, "GND")

	got, outcome, _ = e.Replicate(&pcb.Text{Text: "hello"}, nets)
	require.Equal(t, Cloned, outcome)
	assert.Equal(t, 100.0, got.(*pcb.Text).Position.X)

	_, outcome, _ = e.Replicate(&pcb.Footprint{}, nets)
	assert.Equal(t, Skipped, outcome)
}
