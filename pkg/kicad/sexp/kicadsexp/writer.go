package kicadsexp

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
)

// Writer emits indented S-expressions. Every list opens on its own line;
// atoms follow on the same line as their list head. The first write error
// is sticky and reported by Flush.
type Writer struct {
	w     *bufio.Writer
	depth int
	wrote bool
	err   error
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Open starts a list whose head is the bare symbol name.
func (w *Writer) Open(name string) *Writer {
	if w.wrote {
		w.raw("\n")
		w.raw(strings.Repeat("  ", w.depth))
	}
	w.raw("(")
	w.raw(name)
	w.depth++
	w.wrote = true
	return w
}

// Close ends the innermost open list.
func (w *Writer) Close() *Writer {
	w.depth--
	w.raw(")")
	return w
}

// Symbol appends a bare atom.
func (w *Writer) Symbol(s string) *Writer {
	w.raw(" ")
	w.raw(s)
	return w
}

// Quote appends a quoted string atom.
func (w *Writer) Quote(s string) *Writer {
	w.raw(" ")
	w.raw(Quote(s))
	return w
}

// Float appends a number using the shortest decimal form, rounded to
// nanometre precision.
func (w *Writer) Float(f float64) *Writer {
	return w.Symbol(FormatFloat(f))
}

// Int appends an integer atom.
func (w *Writer) Int(i int) *Writer {
	return w.Symbol(strconv.Itoa(i))
}

// Leaf writes a complete one-level list such as (layer "F.Cu").
func (w *Writer) Leaf(name string, quoted ...string) *Writer {
	w.Open(name)
	for _, q := range quoted {
		w.Quote(q)
	}
	return w.Close()
}

// Node writes an already parsed expression. Lists open on a new line and
// keep their children inline.
func (w *Writer) Node(s Sexp) *Writer {
	if s == nil {
		return w
	}
	if s.IsLeaf() {
		w.raw(" ")
		w.raw(s.String())
		return w
	}
	l, ok := s.(*List)
	if !ok || l.Len() == 0 {
		w.raw(" ")
		w.raw(s.String())
		return w
	}
	head, _ := Atom(l.Head())
	w.Open(head)
	for _, child := range l.Elements()[1:] {
		w.raw(" ")
		w.raw(child.String())
	}
	return w.Close()
}

// Flush writes buffered output and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.wrote {
		w.raw("\n")
	}
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

func (w *Writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.WriteString(s)
}

// Quote returns s as a KiCad quoted string.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// FormatFloat renders f with at most six decimals and no trailing zeros.
func FormatFloat(f float64) string {
	f = math.Round(f*1e6) / 1e6
	if f == 0 {
		f = 0 // normalise -0
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
