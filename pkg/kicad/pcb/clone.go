package pcb

import (
	"bytes"
	"fmt"
	"slices"
)

// Clone returns a deep copy of item with a fresh identifier. Net pointers
// are shared with the original.
func Clone(item Item) Item {
	c := item.clone()
	c.setID(NewUUID())
	return c
}

func (fp *Footprint) clone() Item {
	c := *fp
	c.Properties = slices.Clone(fp.Properties)
	c.Overrides = fp.Overrides.Clone()
	c.Extra = slices.Clone(fp.Extra)
	c.Texts = make([]*FootprintText, len(fp.Texts))
	for i, t := range fp.Texts {
		ct := *t
		ct.UUID = NewUUID()
		c.Texts[i] = &ct
	}
	c.Pads = make([]*Pad, len(fp.Pads))
	for i, p := range fp.Pads {
		cp := *p
		cp.Layers = slices.Clone(p.Layers)
		cp.UUID = NewUUID()
		c.Pads[i] = &cp
	}
	c.Graphics = make([]*Drawing, len(fp.Graphics))
	for i, g := range fp.Graphics {
		c.Graphics[i] = g.clone().(*Drawing)
		c.Graphics[i].UUID = NewUUID()
	}
	return &c
}

func (t *Track) clone() Item {
	c := *t
	c.Layers = slices.Clone(t.Layers)
	return &c
}

func (z *Zone) clone() Item {
	c := *z
	c.Layers = slices.Clone(z.Layers)
	c.Outline = slices.Clone(z.Outline)
	c.Fills = make([]ZoneFill, len(z.Fills))
	for i, f := range z.Fills {
		c.Fills[i] = ZoneFill{Layer: f.Layer, Points: slices.Clone(f.Points), Extra: f.Extra}
	}
	return &c
}

func (t *Text) clone() Item {
	c := *t
	return &c
}

func (d *Drawing) clone() Item {
	c := *d
	c.Points = slices.Clone(d.Points)
	return &c
}

// Clone returns an independent copy of the board by writing it out and
// reading it back.
func (b *Board) Clone() (*Board, error) {
	var buf bytes.Buffer
	if err := b.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode board: %w", err)
	}
	c, err := Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode board copy: %w", err)
	}
	c.FileName = b.FileName
	return c, nil
}
