package hierarchy

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/schematic"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
)

// discovery walks a schematic tree collecting sheet definitions.
type discovery struct {
	projectDir string
	sheets     Dictionary
	visited    map[string]bool
	dirs       []string // directories holding known sheet files, in discovery order
	log        *zap.Logger
}

// discover parses root and every sheet file it references, recursively.
// Returned file names are relative to root's directory.
func discover(root string, log *zap.Logger) (Dictionary, error) {
	d := &discovery{
		projectDir: filepath.Dir(root),
		sheets:     Dictionary{},
		visited:    make(map[string]bool),
		log:        log,
	}
	d.addDir(d.projectDir)
	if err := d.walk(root); err != nil {
		return nil, err
	}
	return d.sheets, nil
}

// Discover returns the sheet dictionary of the schematic tree rooted at
// root, with file names relative to root's directory.
func Discover(root string) (Dictionary, error) {
	return discover(root, zap.NewNop())
}

func (d *discovery) walk(file string) error {
	if d.visited[file] {
		return nil
	}
	d.visited[file] = true

	sch, err := schematic.ParseFile(file)
	if err != nil {
		return errkind.New(errkind.InputDesync, "parsing schematic: %w", err)
	}

	dir := filepath.Dir(file)
	for _, s := range sch.Sheets {
		path, err := d.locate(dir, s.FileName)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(d.projectDir, path)
		if err != nil {
			rel = path
		}
		id := NormalizeID(string(s.UUID))
		d.sheets[id] = Sheet{Name: s.Name, File: filepath.ToSlash(rel)}
		d.log.Debug("found sheet", zap.String("sheet", id), zap.String("file", rel))

		d.addDir(filepath.Dir(path))
		if err := d.walk(path); err != nil {
			return err
		}
	}
	return nil
}

// locate resolves a sheet file named relative to dir. A file missing there
// is looked up in the directories of the sheet files found so far, and one
// level below dir in any of them.
func (d *discovery) locate(dir, name string) (string, error) {
	name = filepath.FromSlash(name)
	want := filepath.Join(dir, name)
	if isFile(want) {
		return want, nil
	}

	for _, known := range d.dirs {
		for _, cand := range []string{
			filepath.Join(known, name),
			filepath.Join(known, filepath.Base(name)),
			filepath.Join(dir, filepath.Base(known), name),
		} {
			if isFile(cand) {
				d.log.Debug("sheet file found outside its expected directory",
					zap.String("file", name), zap.String("path", cand))
				return cand, nil
			}
		}
	}

	return "", errkind.New(errkind.InputDesync, "sheet file %s does not exist", want)
}

func (d *discovery) addDir(dir string) {
	for _, known := range d.dirs {
		if known == dir {
			return
		}
	}
	d.dirs = append(d.dirs, dir)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
