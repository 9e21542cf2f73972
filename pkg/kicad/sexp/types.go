// Package sexp provides shared S-expression parsing infrastructure for KiCad files.
// This package contains types and utilities common to both PCB and schematic parsers.
package sexp

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Position is a 2D coordinate in millimetres. KiCad's Y axis points down.
type Position struct {
	X float64
	Y float64
}

// Vec converts p to a gonum vector.
func (p Position) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// FromVec converts a gonum vector to a Position.
func FromVec(v r2.Vec) Position { return Position{X: v.X, Y: v.Y} }

// Add returns p+q.
func (p Position) Add(q Position) Position { return FromVec(r2.Add(p.Vec(), q.Vec())) }

// Sub returns p-q.
func (p Position) Sub(q Position) Position { return FromVec(r2.Sub(p.Vec(), q.Vec())) }

// Rotate turns p about center by angle degrees, counter-clockwise as seen
// on screen. With Y pointing down this is a clockwise turn in the
// mathematical frame.
func (p Position) Rotate(center Position, angle Angle) Position {
	if angle.Normalize() == 0 {
		return p
	}
	return FromVec(r2.Rotate(p.Vec(), -angle.Radians(), center.Vec()))
}

// MirrorY reflects p across the horizontal line y = axis.
func (p Position) MirrorY(axis float64) Position {
	return Position{X: p.X, Y: 2*axis - p.Y}
}

// Angle is a rotation in degrees.
type Angle float64

// Radians returns a in radians.
func (a Angle) Radians() float64 { return float64(a) * math.Pi / 180 }

// Normalize maps a into (-180, 180].
func (a Angle) Normalize() Angle {
	v := math.Mod(float64(a), 360)
	if v > 180 {
		v -= 360
	} else if v <= -180 {
		v += 360
	}
	return Angle(v)
}

// Flipped returns the orientation a takes after a top/bottom flip, using
// KiCad's convention for angles on the far side of the board.
func (a Angle) Flipped() Angle {
	if a > 0 {
		return 180 - a
	}
	return -180 - a
}

// PositionAngle combines position with rotation
type PositionAngle struct {
	Position
	Angle Angle
}

// Size represents dimensions
type Size struct {
	Width  float64
	Height float64
}

// Stroke defines line/outline appearance
type Stroke struct {
	Width float64
	Type  string
}

// Fill defines area fill
type Fill struct {
	Type string // none, solid, yes, no
}

// BoundingBox represents an axis-aligned rectangle
type BoundingBox struct {
	Min Position
	Max Position
}

// Intersects checks if two bounding boxes intersect
func (bb BoundingBox) Intersects(other BoundingBox) bool {
	if bb.IsEmpty() || other.IsEmpty() {
		return false
	}
	return bb.Min.X <= other.Max.X && bb.Max.X >= other.Min.X &&
		bb.Min.Y <= other.Max.Y && bb.Max.Y >= other.Min.Y
}

// Contains checks if a position is within the bounding box
func (bb BoundingBox) Contains(pos Position) bool {
	return pos.X >= bb.Min.X && pos.X <= bb.Max.X &&
		pos.Y >= bb.Min.Y && pos.Y <= bb.Max.Y
}

// ContainsBox reports whether other lies entirely within bb, edges included.
func (bb BoundingBox) ContainsBox(other BoundingBox) bool {
	if bb.IsEmpty() || other.IsEmpty() {
		return false
	}
	return bb.Contains(other.Min) && bb.Contains(other.Max)
}

// NewBoundingBox creates an empty bounding box
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: Position{X: math.Inf(1), Y: math.Inf(1)},
		Max: Position{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

// BoxOf returns the smallest box containing all points.
func BoxOf(points ...Position) BoundingBox {
	bb := NewBoundingBox()
	for _, p := range points {
		bb.Expand(p)
	}
	return bb
}

// IsEmpty checks if the bounding box is empty
func (bb BoundingBox) IsEmpty() bool {
	return bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y
}

// Expand expands the bounding box to include a position
func (bb *BoundingBox) Expand(pos Position) {
	bb.Min.X = math.Min(bb.Min.X, pos.X)
	bb.Min.Y = math.Min(bb.Min.Y, pos.Y)
	bb.Max.X = math.Max(bb.Max.X, pos.X)
	bb.Max.Y = math.Max(bb.Max.Y, pos.Y)
}

// ExpandBox expands to include another bounding box
func (bb *BoundingBox) ExpandBox(other BoundingBox) {
	if !other.IsEmpty() {
		bb.Expand(other.Min)
		bb.Expand(other.Max)
	}
}

// Inflate grows the box by d on every side.
func (bb BoundingBox) Inflate(d float64) BoundingBox {
	if bb.IsEmpty() {
		return bb
	}
	return BoundingBox{
		Min: Position{X: bb.Min.X - d, Y: bb.Min.Y - d},
		Max: Position{X: bb.Max.X + d, Y: bb.Max.Y + d},
	}
}

// UUID represents a unique identifier (used in KiCad v6+ files)
type UUID string

// Effects represents text effects (font, justification, etc.)
type Effects struct {
	Font    Font
	Justify Justify
	Hide    bool
}

// Font represents font properties
type Font struct {
	Face      string
	Size      Size // Width and Height of a glyph
	Thickness float64
	Bold      bool
	Italic    bool
}

// Justify represents text justification
type Justify struct {
	Horizontal string // left, center, right
	Vertical   string // top, center, bottom
	Mirror     bool
}

// Property represents a key-value property (used in symbols, footprints, etc.)
type Property struct {
	Key      string
	Value    string
	Position *PositionAngle
	Layer    string
	Effects  *Effects
	Hidden   bool
}
