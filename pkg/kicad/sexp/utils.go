package sexp

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp/kicadsexp"
)

// S-expression navigation helpers

// FindNode returns the first child list whose head symbol is key.
// Example: FindNode(sexp, "at") finds (at 100 50) in a list
func FindNode(s kicadsexp.Sexp, key string) (kicadsexp.Sexp, bool) {
	for _, item := range SexpToSlice(s) {
		if item != nil && !item.IsLeaf() && headIs(item, key) {
			return item, true
		}
	}
	return nil, false
}

// FindAllNodes finds all child lists whose head symbol is key.
func FindAllNodes(s kicadsexp.Sexp, key string) []kicadsexp.Sexp {
	var results []kicadsexp.Sexp
	for _, item := range SexpToSlice(s) {
		if item != nil && !item.IsLeaf() && headIs(item, key) {
			results = append(results, item)
		}
	}
	return results
}

func headIs(s kicadsexp.Sexp, key string) bool {
	sym, ok := s.Head().(kicadsexp.Symbol)
	return ok && string(sym) == key
}

// GetListItems returns all items in a list (excluding the first symbol/key)
// Example: GetListItems((layers "F.Cu" "B.Cu")) returns ["F.Cu", "B.Cu"]
func GetListItems(s kicadsexp.Sexp) []kicadsexp.Sexp {
	items := SexpToSlice(s)
	if len(items) <= 1 {
		return nil
	}
	return items[1:]
}

// GetStrings returns the atoms of a list after its key.
func GetStrings(s kicadsexp.Sexp) []string {
	var out []string
	for _, item := range GetListItems(s) {
		if v, ok := kicadsexp.Atom(item); ok {
			out = append(out, v)
		}
	}
	return out
}

// SexpToSlice converts an s-expression list to a Go slice
func SexpToSlice(s kicadsexp.Sexp) []kicadsexp.Sexp {
	if s == nil || s.IsLeaf() {
		return nil
	}
	if l, ok := s.(*kicadsexp.List); ok {
		return l.Elements()
	}

	var items []kicadsexp.Sexp
	for s != nil && !s.IsLeaf() && s.LeafCount() > 0 {
		items = append(items, s.Head())
		s = s.Tail()
	}
	return items
}

// Typed value extraction helpers

// GetString extracts a string value at the given index in a list
// Index 0 is the key, 1 is first value, etc.
func GetString(s kicadsexp.Sexp, index int) (string, error) {
	if s == nil || s.IsLeaf() {
		return "", fmt.Errorf("expected list, got leaf")
	}

	items := SexpToSlice(s)
	if index < 0 || index >= len(items) {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, len(items))
	}

	if v, ok := kicadsexp.Atom(items[index]); ok {
		return v, nil
	}

	return "", fmt.Errorf("expected atom at index %d, got %T", index, items[index])
}

// GetFloat extracts a float64 value at the given index
func GetFloat(s kicadsexp.Sexp, index int) (float64, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}

	return val, nil
}

// GetInt extracts an int value at the given index
func GetInt(s kicadsexp.Sexp, index int) (int, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}

	return val, nil
}

// GetChildString returns the first value of the child list named key,
// or "" when the child is absent.
func GetChildString(s kicadsexp.Sexp, key string) string {
	node, ok := FindNode(s, key)
	if !ok {
		return ""
	}
	v, _ := GetString(node, 1)
	return v
}

// GetChildFloat returns the first value of the child list named key.
func GetChildFloat(s kicadsexp.Sexp, key string) (float64, bool) {
	node, ok := FindNode(s, key)
	if !ok {
		return 0, false
	}
	v, err := GetFloat(node, 1)
	return v, err == nil
}

// Domain-specific extraction helpers

// GetPosition extracts a position from an (at X Y [angle]) node.
func GetPosition(s kicadsexp.Sexp) (PositionAngle, error) {
	key, err := GetString(s, 0)
	if err != nil {
		return PositionAngle{}, err
	}
	if key != "at" {
		return PositionAngle{}, fmt.Errorf("expected 'at', got %q", key)
	}

	xy, err := GetPositionXY(s)
	if err != nil {
		return PositionAngle{}, err
	}

	result := PositionAngle{Position: xy}
	if angle, err := GetFloat(s, 3); err == nil {
		result.Angle = Angle(angle)
	}

	return result, nil
}

// GetPositionXY extracts just X,Y coordinates (no angle)
// Used for (start X Y), (end X Y), (center X Y), (xy X Y), etc.
func GetPositionXY(s kicadsexp.Sexp) (Position, error) {
	x, err := GetFloat(s, 1)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse X: %w", err)
	}

	y, err := GetFloat(s, 2)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse Y: %w", err)
	}

	return Position{X: x, Y: y}, nil
}

// GetPoints extracts the (xy X Y) entries of a (pts ...) node.
func GetPoints(s kicadsexp.Sexp) ([]Position, error) {
	var pts []Position
	for _, xy := range FindAllNodes(s, "xy") {
		p, err := GetPositionXY(xy)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// GetStroke extracts stroke properties from (stroke ...) node
// Format: (stroke (width W) (type solid|dash|dot))
func GetStroke(s kicadsexp.Sexp) Stroke {
	stroke := Stroke{Type: "solid"}

	if width, ok := GetChildFloat(s, "width"); ok {
		stroke.Width = width
	}
	if t := GetChildString(s, "type"); t != "" {
		stroke.Type = t
	}

	return stroke
}

// GetFill extracts fill properties from (fill ...) node.
// Both (fill solid) and (fill (type solid)) are accepted.
func GetFill(s kicadsexp.Sexp) Fill {
	if t := GetChildString(s, "type"); t != "" {
		return Fill{Type: t}
	}
	if v, err := GetString(s, 1); err == nil {
		return Fill{Type: v}
	}
	return Fill{Type: "none"}
}

// HasSymbol checks if a list contains a specific bare symbol. Quoted
// strings never match.
func HasSymbol(s kicadsexp.Sexp, symbol string) bool {
	for _, item := range SexpToSlice(s) {
		if sym, ok := item.(kicadsexp.Symbol); ok && string(sym) == symbol {
			return true
		}
	}
	return false
}

// HasFlag reports a boolean attribute written either as a bare symbol
// (hide) or as a child list (hide yes).
func HasFlag(s kicadsexp.Sexp, name string) bool {
	if HasSymbol(s, name) {
		return true
	}
	if node, ok := FindNode(s, name); ok {
		v, err := GetString(node, 1)
		return err != nil || v == "yes"
	}
	return false
}

// GetNodeName returns the first symbol of a list (the node type/name)
func GetNodeName(s kicadsexp.Sexp) (string, error) {
	if s == nil {
		return "", fmt.Errorf("nil node")
	}
	if sym, ok := s.Head().(kicadsexp.Symbol); ok {
		return string(sym), nil
	}
	return "", fmt.Errorf("expected symbol at head of list")
}

// GetUUID returns the identifier from a (uuid ...) or legacy (tstamp ...)
// child, or "" when neither is present.
func GetUUID(s kicadsexp.Sexp) UUID {
	if v := GetChildString(s, "uuid"); v != "" {
		return UUID(v)
	}
	return UUID(GetChildString(s, "tstamp"))
}

// GetEffects extracts text effects from an (effects ...) node
func GetEffects(s kicadsexp.Sexp) Effects {
	effects := Effects{
		Justify: Justify{Horizontal: "center", Vertical: "center"},
	}

	if fontNode, ok := FindNode(s, "font"); ok {
		effects.Font = GetFont(fontNode)
	}
	if justifyNode, ok := FindNode(s, "justify"); ok {
		effects.Justify = GetJustify(justifyNode)
	}
	effects.Hide = HasFlag(s, "hide")

	return effects
}

// GetFont extracts font properties from a (font ...) node
func GetFont(s kicadsexp.Sexp) Font {
	font := Font{}

	if sizeNode, ok := FindNode(s, "size"); ok {
		// KiCad writes (size height width)
		h, _ := GetFloat(sizeNode, 1)
		w, _ := GetFloat(sizeNode, 2)
		font.Size = Size{Width: w, Height: h}
	}
	if t, ok := GetChildFloat(s, "thickness"); ok {
		font.Thickness = t
	}
	font.Bold = HasFlag(s, "bold")
	font.Italic = HasFlag(s, "italic")
	font.Face = GetChildString(s, "face")

	return font
}

// GetJustify extracts justification from a (justify ...) node
func GetJustify(s kicadsexp.Sexp) Justify {
	justify := Justify{
		Horizontal: "center",
		Vertical:   "center",
	}

	for _, v := range GetStrings(s) {
		switch v {
		case "left", "right":
			justify.Horizontal = v
		case "top", "bottom":
			justify.Vertical = v
		case "mirror":
			justify.Mirror = true
		}
	}

	return justify
}

// GetProperty extracts a property from a (property ...) node
func GetProperty(s kicadsexp.Sexp) (Property, error) {
	prop := Property{}

	// Format: (property "key" "value" (at X Y angle) (layer L) (effects ...))
	key, err := GetString(s, 1)
	if err != nil {
		return prop, fmt.Errorf("failed to parse property key: %w", err)
	}
	prop.Key = key
	prop.Value, _ = GetString(s, 2)

	if atNode, ok := FindNode(s, "at"); ok {
		pos, err := GetPosition(atNode)
		if err != nil {
			return prop, fmt.Errorf("property %q: %w", key, err)
		}
		prop.Position = &pos
	}
	prop.Layer = GetChildString(s, "layer")
	if effectsNode, ok := FindNode(s, "effects"); ok {
		effects := GetEffects(effectsNode)
		prop.Effects = &effects
	}
	prop.Hidden = HasFlag(s, "hide") || (prop.Effects != nil && prop.Effects.Hide)

	return prop, nil
}
