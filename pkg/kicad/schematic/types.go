package schematic

import (
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp"
)

// Shared types (aliases to sexp package)
type Position = sexp.Position
type Size = sexp.Size
type UUID = sexp.UUID

// Schematic is the part of a KiCad schematic file needed to walk the sheet
// hierarchy.
type Schematic struct {
	Version   int    // File format version
	Generator string // Generator info (e.g., "eeschema")
	UUID      UUID   // Schematic UUID
	Sheets    []Sheet
}

// Sheet is a reference to a child schematic placed on this one
type Sheet struct {
	UUID     UUID
	Name     string // value of the "Sheetname" property
	FileName string // value of the "Sheetfile" property, relative to the parent
	Position Position
	Size     Size
}
