package sexp

import (
	"math"
	"testing"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp/kicadsexp"
)

func parseOne(t *testing.T, s string) kicadsexp.Sexp {
	t.Helper()
	nodes, err := kicadsexp.ParseString(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return nodes[0]
}

func TestFindNodeIgnoresLeaves(t *testing.T) {
	node := parseOne(t, `(fp_text reference "at" (at 1 2 90) (layer "F.SilkS"))`)

	at, ok := FindNode(node, "at")
	if !ok {
		t.Fatal("expected (at ...) node")
	}
	pos, err := GetPosition(at)
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if pos.X != 1 || pos.Y != 2 || pos.Angle != 90 {
		t.Errorf("GetPosition() = %+v", pos)
	}
	if got := GetChildString(node, "layer"); got != "F.SilkS" {
		t.Errorf("layer = %q", got)
	}
}

func TestHasSymbolIgnoresQuoted(t *testing.T) {
	node := parseOne(t, `(fp_text user "hide" (at 0 0))`)
	if HasSymbol(node, "hide") {
		t.Error("quoted text matched a bare flag")
	}
}

func TestHasFlag(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`(effects (font (size 1 1)) hide)`, true},
		{`(effects (font (size 1 1)) (hide yes))`, true},
		{`(effects (font (size 1 1)) (hide no))`, false},
		{`(effects (font (size 1 1)))`, false},
	}
	for _, tt := range tests {
		if got := HasFlag(parseOne(t, tt.input), "hide"); got != tt.want {
			t.Errorf("HasFlag(%s) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestGetEffects(t *testing.T) {
	node := parseOne(t, `(effects (font (size 1.2 1) (thickness 0.15) bold) (justify left mirror))`)
	e := GetEffects(node)
	if e.Font.Size.Height != 1.2 || e.Font.Size.Width != 1 {
		t.Errorf("font size = %+v", e.Font.Size)
	}
	if !e.Font.Bold || e.Font.Italic {
		t.Errorf("bold/italic = %v/%v", e.Font.Bold, e.Font.Italic)
	}
	if e.Justify.Horizontal != "left" || e.Justify.Vertical != "center" || !e.Justify.Mirror {
		t.Errorf("justify = %+v", e.Justify)
	}
}

func TestRotate(t *testing.T) {
	// 90 degrees counter-clockwise on screen takes +X to -Y.
	got := Position{X: 1, Y: 0}.Rotate(Position{}, 90)
	if math.Abs(got.X) > 1e-9 || math.Abs(got.Y+1) > 1e-9 {
		t.Errorf("Rotate() = %+v, want (0,-1)", got)
	}

	c := Position{X: 10, Y: 10}
	p := Position{X: 13, Y: 7}
	back := p.Rotate(c, 37).Rotate(c, -37)
	if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
		t.Errorf("rotation not invertible: %+v", back)
	}
}

func TestAngleHelpers(t *testing.T) {
	tests := []struct {
		in, norm, flipped Angle
	}{
		{0, 0, -180},
		{90, 90, 90},
		{270, -90, -90},
		{-90, -90, -90},
		{180, 180, 0},
		{-180, 180, 0},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.norm {
			t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.norm)
		}
		if got := tt.in.Flipped().Normalize(); got != tt.flipped.Normalize() {
			t.Errorf("Flipped(%v) = %v, want %v", tt.in, got, tt.flipped)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	bb := BoxOf(Position{X: 0, Y: 0}, Position{X: 10, Y: 5})
	inner := BoxOf(Position{X: 1, Y: 1}, Position{X: 10, Y: 5})
	cross := BoxOf(Position{X: 8, Y: 4}, Position{X: 12, Y: 6})
	apart := BoxOf(Position{X: 20, Y: 20}, Position{X: 21, Y: 21})

	if !bb.ContainsBox(inner) {
		t.Error("expected edge-touching box to be contained")
	}
	if bb.ContainsBox(cross) || !bb.Intersects(cross) {
		t.Error("crossing box should intersect but not be contained")
	}
	if bb.Intersects(apart) {
		t.Error("disjoint boxes intersect")
	}
	if !NewBoundingBox().IsEmpty() {
		t.Error("new box should be empty")
	}
}
