package pcb

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp/kicadsexp"
)

// parseFootprint extracts a footprint and everything it owns
// Expected format: (footprint "lib:name" (layer "F.Cu") (at x y [angle]) (property ...) (pad ...) ...)
func (b *Board) parseFootprint(node kicadsexp.Sexp) (*Footprint, error) {
	fullName, err := sexp.GetString(node, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse footprint name: %w", err)
	}

	fp := &Footprint{Layer: "F.Cu"}
	if lib, name, ok := strings.Cut(fullName, ":"); ok {
		fp.Library, fp.Name = lib, name
	} else {
		fp.Name = fullName
	}

	// Children referencing the footprint orientation need it first.
	if atNode, found := sexp.FindNode(node, "at"); found {
		pos, err := sexp.GetPosition(atNode)
		if err != nil {
			return nil, fmt.Errorf("footprint %s: %w", fullName, err)
		}
		fp.Position = pos
	} else {
		return nil, fmt.Errorf("footprint %s: missing required 'at' position", fullName)
	}

	for i, child := range sexp.GetListItems(node) {
		if i == 0 {
			continue // name
		}
		if child.IsLeaf() {
			if v, _ := kicadsexp.Atom(child); v == "locked" {
				fp.Locked = true
			} else {
				fp.Extra = append(fp.Extra, child)
			}
			continue
		}

		name, _ := sexp.GetNodeName(child)
		switch name {
		case "at":
		case "layer":
			fp.Layer, _ = sexp.GetString(child, 1)
		case "uuid", "tstamp":
			v, _ := sexp.GetString(child, 1)
			fp.UUID = UUID(v)
		case "locked":
			fp.Locked = sexp.HasFlag(node, "locked")
		case "path":
			fp.Path, _ = sexp.GetString(child, 1)
		case "property":
			if err := fp.parseProperty(child); err != nil {
				return nil, fmt.Errorf("footprint %s: %w", fullName, err)
			}
		case "fp_text":
			t, err := fp.parseText(child)
			if err != nil {
				return nil, fmt.Errorf("footprint %s: %w", fullName, err)
			}
			fp.Texts = append(fp.Texts, t)
			switch t.Kind {
			case "reference":
				fp.Reference = t.Text
			case "value":
				fp.Value = t.Text
			}
		case "pad":
			pad, err := b.parsePad(child, fp.Position.Angle)
			if err != nil {
				return nil, fmt.Errorf("footprint %s pad %d: %w", fullName, len(fp.Pads), err)
			}
			fp.Pads = append(fp.Pads, pad)
		case "fp_line", "fp_rect", "fp_circle", "fp_arc", "fp_poly", "fp_curve":
			d, err := b.parseDrawing(child, name[3:])
			if err != nil {
				return nil, fmt.Errorf("footprint %s %s: %w", fullName, name, err)
			}
			fp.Graphics = append(fp.Graphics, d)
		case "clearance":
			fp.Overrides.Clearance = floatPtr(child)
		case "solder_mask_margin":
			fp.Overrides.SolderMaskMargin = floatPtr(child)
		case "solder_paste_margin":
			fp.Overrides.SolderPasteMargin = floatPtr(child)
		case "solder_paste_ratio", "solder_paste_margin_ratio":
			fp.Overrides.SolderPasteRatio = floatPtr(child)
		case "zone_connect":
			if v, err := sexp.GetInt(child, 1); err == nil {
				fp.Overrides.ZoneConnect = &v
			}
		case "sheetname":
			fp.SheetName, _ = sexp.GetString(child, 1)
			fp.Extra = append(fp.Extra, child)
		case "sheetfile":
			fp.SheetFile, _ = sexp.GetString(child, 1)
			fp.Extra = append(fp.Extra, child)
		default:
			fp.Extra = append(fp.Extra, child)
		}
	}

	return fp, nil
}

func floatPtr(node kicadsexp.Sexp) *float64 {
	v, err := sexp.GetFloat(node, 1)
	if err != nil {
		return nil
	}
	return &v
}

// parseProperty records a footprint property. KiCad 8 stores the reference
// and value fields as positioned properties; those become texts.
func (fp *Footprint) parseProperty(node kicadsexp.Sexp) error {
	prop, err := sexp.GetProperty(node)
	if err != nil {
		return err
	}

	switch prop.Key {
	case "Reference":
		fp.Reference = prop.Value
	case "Value":
		fp.Value = prop.Value
	case "Sheetname", "Sheet name":
		fp.SheetName = prop.Value
	case "Sheetfile", "Sheet file":
		fp.SheetFile = prop.Value
	}

	if prop.Position == nil || prop.Layer == "" {
		fp.Properties = append(fp.Properties, prop)
		return nil
	}

	t, err := fp.parseText(node)
	if err != nil {
		return err
	}
	fp.Texts = append(fp.Texts, t)
	return nil
}

// parseText extracts an fp_text or a positioned property. The stored
// position and angle are relative to the footprint.
// Expected format: (fp_text reference "R1" (at x y [angle]) (layer "F.SilkS") [hide] (effects ...))
func (fp *Footprint) parseText(node kicadsexp.Sexp) (*FootprintText, error) {
	head, _ := sexp.GetNodeName(node)
	t := &FootprintText{Property: head == "property"}

	first, err := sexp.GetString(node, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s kind: %w", head, err)
	}
	t.Text, _ = sexp.GetString(node, 2)
	if t.Property {
		t.Key = first
		switch first {
		case "Reference", "Value":
			t.Kind = strings.ToLower(first)
		default:
			t.Kind = "property"
		}
	} else {
		t.Kind = first
	}

	for i, child := range sexp.GetListItems(node) {
		if i < 2 {
			continue
		}
		if child.IsLeaf() {
			switch v, _ := kicadsexp.Atom(child); v {
			case "hide":
				t.Hidden = true
			case "unlocked":
				t.Unlocked = true
			default:
				t.Extra = append(t.Extra, child)
			}
			continue
		}

		name, _ := sexp.GetNodeName(child)
		switch name {
		case "at":
			pos, err := sexp.GetPosition(child)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", head, t.Text, err)
			}
			pos.Angle = (pos.Angle - fp.Position.Angle).Normalize()
			t.Position = pos
			if sexp.HasSymbol(child, "unlocked") {
				t.Unlocked = true
			}
		case "layer":
			t.Layer, _ = sexp.GetString(child, 1)
		case "hide":
			t.Hidden = sexp.HasFlag(node, "hide")
		case "unlocked":
			t.Unlocked = sexp.HasFlag(node, "unlocked")
		case "effects":
			t.Effects = sexp.GetEffects(child)
		case "uuid", "tstamp":
			v, _ := sexp.GetString(child, 1)
			t.UUID = UUID(v)
		default:
			t.Extra = append(t.Extra, child)
		}
	}

	return t, nil
}

// parsePad extracts a pad definition from a footprint
// Expected format: (pad "number" type shape (at x y [angle]) (size w h) (layers ...) (net n) ...)
func (b *Board) parsePad(node kicadsexp.Sexp, ownerAngle Angle) (*Pad, error) {
	pad := &Pad{}

	number, err := sexp.GetString(node, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pad number: %w", err)
	}
	pad.Number = number

	if pad.Type, err = sexp.GetString(node, 2); err != nil {
		return nil, fmt.Errorf("failed to parse pad type: %w", err)
	}
	if pad.Shape, err = sexp.GetString(node, 3); err != nil {
		return nil, fmt.Errorf("failed to parse pad shape: %w", err)
	}

	hasAt := false
	for i, child := range sexp.GetListItems(node) {
		if i < 3 {
			continue
		}
		if child.IsLeaf() {
			pad.Extra = append(pad.Extra, child)
			continue
		}

		name, _ := sexp.GetNodeName(child)
		switch name {
		case "at":
			pos, err := sexp.GetPosition(child)
			if err != nil {
				return nil, fmt.Errorf("pad %s: %w", number, err)
			}
			pos.Angle = (pos.Angle - ownerAngle).Normalize()
			pad.Position = pos
			hasAt = true
		case "size":
			w, err := sexp.GetFloat(child, 1)
			if err != nil {
				return nil, fmt.Errorf("failed to parse pad width: %w", err)
			}
			h, err := sexp.GetFloat(child, 2)
			if err != nil {
				return nil, fmt.Errorf("failed to parse pad height: %w", err)
			}
			pad.Size = Size{Width: w, Height: h}
		case "drill":
			// Drill can be (drill d), (drill oval w h) or (drill (offset x y))
			if d, err := sexp.GetFloat(child, 1); err == nil {
				pad.Drill = d
			} else if d, err := sexp.GetFloat(child, 2); err == nil {
				pad.Drill = d
			}
			pad.Extra = append(pad.Extra, child)
		case "layers":
			pad.Layers = sexp.GetStrings(child)
		case "net":
			pad.Net = b.resolveNet(child)
		case "uuid", "tstamp":
			v, _ := sexp.GetString(child, 1)
			pad.UUID = UUID(v)
		default:
			pad.Extra = append(pad.Extra, child)
		}
	}

	if !hasAt {
		return nil, fmt.Errorf("pad %s: missing required 'at' position", number)
	}

	return pad, nil
}
