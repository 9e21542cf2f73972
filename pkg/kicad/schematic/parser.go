package schematic

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/sexp/kicadsexp"
)

// Minimum supported KiCad version for schematics (6.0 = 20211014)
const MinSupportedVersion = 20211014

// ParseFile reads and parses a KiCad schematic file
func ParseFile(filename string) (*Schematic, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	sch, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return sch, nil
}

// Parse reads and parses a KiCad schematic from an io.Reader
func Parse(r io.Reader) (*Schematic, error) {
	sexps, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	if len(sexps) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	root := sexps[0]

	rootName, err := sexp.GetNodeName(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get root node name: %w", err)
	}
	if rootName != "kicad_sch" {
		return nil, fmt.Errorf("not a KiCad schematic file: expected 'kicad_sch', got '%s'", rootName)
	}

	sch := &Schematic{}
	if err := parseHeader(root, sch); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	sch.UUID = sexp.GetUUID(root)

	sheets, err := parseSheets(root)
	if err != nil {
		return nil, err
	}
	sch.Sheets = sheets

	return sch, nil
}

// parseHeader extracts version and generator information
func parseHeader(root kicadsexp.Sexp, sch *Schematic) error {
	versionNode, found := sexp.FindNode(root, "version")
	if !found {
		return fmt.Errorf("missing required 'version' field")
	}

	version, err := sexp.GetInt(versionNode, 1)
	if err != nil {
		return fmt.Errorf("failed to parse version: %w", err)
	}
	if version < MinSupportedVersion {
		return fmt.Errorf("unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", version, MinSupportedVersion)
	}
	sch.Version = version
	sch.Generator = sexp.GetChildString(root, "generator")

	return nil
}

// parseSheets parses hierarchical sheet references. Both the KiCad 6
// ("Sheet name", "Sheet file") and later ("Sheetname", "Sheetfile")
// property keys are accepted.
func parseSheets(root kicadsexp.Sexp) ([]Sheet, error) {
	sheetNodes := sexp.FindAllNodes(root, "sheet")
	sheets := make([]Sheet, 0, len(sheetNodes))

	for _, sn := range sheetNodes {
		sheet := Sheet{UUID: sexp.GetUUID(sn)}

		if atNode, found := sexp.FindNode(sn, "at"); found {
			pos, err := sexp.GetPosition(atNode)
			if err != nil {
				return nil, fmt.Errorf("sheet %s: %w", sheet.UUID, err)
			}
			sheet.Position = pos.Position
		}
		if sizeNode, found := sexp.FindNode(sn, "size"); found {
			w, _ := sexp.GetFloat(sizeNode, 1)
			h, _ := sexp.GetFloat(sizeNode, 2)
			sheet.Size = Size{Width: w, Height: h}
		}

		var haveName, haveFile bool
		for _, pn := range sexp.FindAllNodes(sn, "property") {
			prop, err := sexp.GetProperty(pn)
			if err != nil {
				continue
			}
			switch prop.Key {
			case "Sheetname", "Sheet name":
				sheet.Name, haveName = prop.Value, true
			case "Sheetfile", "Sheet file":
				sheet.FileName, haveFile = prop.Value, true
			}
		}
		if !haveName || !haveFile {
			return nil, fmt.Errorf("sheet %s is missing its name or file property", sheet.UUID)
		}

		sheets = append(sheets, sheet)
	}

	return sheets, nil
}
