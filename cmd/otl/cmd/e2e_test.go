package cmd

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/snapshot"
)

const e2eBoard = `(kicad_pcb (version 20221018) (generator pcbnew)
  (layers
    (0 "F.Cu" signal)
    (31 "B.Cu" signal)
    (37 "F.SilkS" user)
    (36 "B.SilkS" user)
  )
  (net 0 "")
  (net 1 "GND")
  (net 2 "/ch1/SIG")
  (net 3 "/ch2/SIG")
  (footprint "Lib:R" (layer "F.Cu") (at 50 50)
    (property "Sheetfile" "ch.kicad_sch")
    (property "Sheetname" "ch1")
    (path "/0a000000-0000-4000-8000-000000000001/0b000000-0000-4000-8000-000000000001")
    (fp_text reference "R1" (at 0 -2) (layer "F.SilkS") (effects (font (size 1 1) (thickness 0.15))))
    (pad "1" smd rect (at -1 0) (size 1 1) (layers "F.Cu") (net 2 "/ch1/SIG"))
    (pad "2" smd rect (at 1 0) (size 1 1) (layers "F.Cu") (net 1 "GND"))
  )
  (footprint "Lib:C" (layer "F.Cu") (at 55 50)
    (property "Sheetfile" "ch.kicad_sch")
    (property "Sheetname" "ch1")
    (path "/0a000000-0000-4000-8000-000000000001/0b000000-0000-4000-8000-000000000002")
    (fp_text reference "C1" (at 0 -2) (layer "F.SilkS") (effects (font (size 1 1) (thickness 0.15))))
    (pad "1" smd rect (at -1 0) (size 1 1) (layers "F.Cu") (net 2 "/ch1/SIG"))
    (pad "2" smd rect (at 1 0) (size 1 1) (layers "F.Cu") (net 1 "GND"))
  )
  (footprint "Lib:R" (layer "F.Cu") (at 150 80)
    (property "Sheetfile" "ch.kicad_sch")
    (property "Sheetname" "ch2")
    (path "/0a000000-0000-4000-8000-000000000002/0b000000-0000-4000-8000-000000000001")
    (fp_text reference "R2" (at 0 -2) (layer "F.SilkS") (effects (font (size 1 1) (thickness 0.15))))
    (pad "1" smd rect (at -1 0) (size 1 1) (layers "F.Cu") (net 3 "/ch2/SIG"))
    (pad "2" smd rect (at 1 0) (size 1 1) (layers "F.Cu") (net 1 "GND"))
  )
  (footprint "Lib:C" (layer "F.Cu") (at 0 0)
    (property "Sheetfile" "ch.kicad_sch")
    (property "Sheetname" "ch2")
    (path "/0a000000-0000-4000-8000-000000000002/0b000000-0000-4000-8000-000000000002")
    (fp_text reference "C2" (at 0 -2) (layer "F.SilkS") (effects (font (size 1 1) (thickness 0.15))))
    (pad "1" smd rect (at -1 0) (size 1 1) (layers "F.Cu") (net 3 "/ch2/SIG"))
    (pad "2" smd rect (at 1 0) (size 1 1) (layers "F.Cu") (net 1 "GND"))
  )
  (segment (start 49 50) (end 54 50) (width 0.25) (layer "F.Cu") (net 2))
)
`

const e2eSheet = `(kicad_sch (version 20230121) (generator eeschema)
  (symbol (lib_id "Device:R") (at 10 10 0) (uuid 0b000000-0000-4000-8000-000000000001)
    (property "Reference" "R1" (at 10 5 0)))
  (symbol (lib_id "Device:C") (at 20 10 0) (uuid 0b000000-0000-4000-8000-000000000002)
    (property "Reference" "C1" (at 20 5 0)))
)
`

func e2eProject(t *testing.T) (dir, board string) {
	t.Helper()
	dir = t.TempDir()
	board = filepath.Join(dir, "demo.kicad_pcb")
	if err := os.WriteFile(board, []byte(e2eBoard), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ch.kicad_sch"), []byte(e2eSheet), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, board
}

func execute(args ...string) (string, error) {
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// TestSaveRestoreE2E runs the whole flow through the command line.
func TestSaveRestoreE2E(t *testing.T) {
	dir, board := e2eProject(t)
	logFile := filepath.Join(dir, "otl.log")
	cfg := filepath.Join(dir, "otl.toml")
	if err := os.WriteFile(cfg, []byte("[log]\nformat = \"json\"\noutput = \""+filepath.ToSlash(logFile)+"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	metricsFile := filepath.Join(dir, "otl.prom")

	out, err := execute("levels", board, "R1", "--config", cfg)
	if err != nil {
		t.Fatalf("levels: %v\n%s", err, out)
	}
	for _, want := range []string{"ch1", "ch.kicad_sch", "Depth"} {
		if !strings.Contains(out, want) {
			t.Errorf("levels output missing %q:\n%s", want, out)
		}
	}

	snap := filepath.Join(dir, "ch")
	out, err = execute("save", board, "R1", "ch1", snap, "--config", cfg, "--zones=false")
	if err != nil {
		t.Fatalf("save: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Saved sheet ch1") {
		t.Errorf("save output:\n%s", out)
	}
	snap += ".yaml"
	if _, err := os.Stat(snap); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}

	out, err = execute("inspect", snap, "--config", cfg)
	if err != nil {
		t.Fatalf("inspect: %v\n%s", err, out)
	}
	for _, want := range []string{"Footprints: C1, R1", "Local nets: /ch1/SIG", "ch.kicad_sch", "Anchor"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}

	result := filepath.Join(dir, "result.kicad_pcb")
	out, err = execute("restore", board, "R2", snap, "--out", result, "--group", "ch2",
		"--config", cfg, "--metrics-file", metricsFile)
	if err != nil {
		t.Fatalf("restore: %v\n%s", err, out)
	}
	if !strings.Contains(out, "footprints placed") || !strings.Contains(out, "Group") {
		t.Errorf("restore output:\n%s", out)
	}

	b, err := pcb.ParseFile(result)
	if err != nil {
		t.Fatalf("result board: %v", err)
	}
	c2 := b.FootprintByReference("C2")
	if math.Abs(c2.Position.X-155) > 1e-6 || math.Abs(c2.Position.Y-80) > 1e-6 {
		t.Errorf("C2 at %v, want (155, 80)", c2.Position.Position)
	}
	var found bool
	for _, tr := range b.Tracks {
		if tr.NetName() == "/ch2/SIG" && math.Abs(tr.Start.X-149) < 1e-6 {
			found = true
		}
	}
	if !found {
		t.Error("replicated track on /ch2/SIG not found")
	}
	if len(b.Groups) != 1 || b.Groups[0].Name != "ch2" {
		t.Errorf("groups = %+v", b.Groups)
	}

	prom, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("metrics not written: %v", err)
	}
	if !strings.Contains(string(prom), `otl_operations_total{operation="restore",status="ok"} 1`) {
		t.Errorf("metrics:\n%s", prom)
	}
	if logs, err := os.ReadFile(logFile); err != nil || !strings.Contains(string(logs), "restored layout") {
		t.Errorf("log file: %v\n%s", err, logs)
	}
}

func TestCommandErrors(t *testing.T) {
	dir, board := e2eProject(t)
	snap := filepath.Join(dir, "ch.pckl")
	if _, err := execute("save", board, "R1", "1", snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	drifted := filepath.Join(dir, "drifted.pckl")
	s, err := snapshot.ReadFile(snap)
	if err != nil {
		t.Fatal(err)
	}
	s.Hash = "00000000000000000000000000000000"
	if err := snapshot.WriteFile(drifted, s); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"depth out of range", []string{"save", board, "R1", "3", snap}, "out of range"},
		{"unknown level", []string{"save", board, "R1", "ch9", snap}, "no level named"},
		{"unknown anchor", []string{"levels", board, "R9"}, "not found"},
		{"bad filter", []string{"save", board, "R1", "1", snap, "--filter", "kind +"}, "invalid filter"},
		{"missing board", []string{"levels", filepath.Join(dir, "none.kicad_pcb"), "R1"}, "error parsing board"},
		{"content drift", []string{"restore", board, "R2", drifted}, "changed since the layout was saved"},
		{"missing config", []string{"levels", board, "R1", "--config", filepath.Join(dir, "none.toml")}, "failed to read config"},
		{"arguments", []string{"restore", board}, "accepts 3 arg(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}

	// A failed restore leaves the board untouched.
	orig, _ := os.ReadFile(board)
	if string(orig) != e2eBoard {
		t.Error("board was modified by a failed command")
	}
}

func TestFingerprintCommand(t *testing.T) {
	dir, _ := e2eProject(t)
	out, err := execute("fingerprint", dir, "ch.kicad_sch")
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	hash := strings.TrimSpace(out)
	if len(hash) != 32 {
		t.Errorf("hash = %q", hash)
	}

	if _, err := execute("fingerprint", dir, "none.kicad_sch"); err == nil {
		t.Error("expected error for missing schematic")
	}
}

func TestVerboseLogsEffectiveConfig(t *testing.T) {
	dir, board := e2eProject(t)
	logFile := filepath.Join(dir, "otl.log")
	cfg := filepath.Join(dir, "otl.toml")
	content := "[log]\nformat = \"json\"\noutput = \"" + filepath.ToSlash(logFile) + "\"\n[save]\nformat = \"pckl\"\n"
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if out, err := execute("levels", board, "R1", "--config", cfg, "-v"); err != nil {
		t.Fatalf("levels: %v\n%s", err, out)
	}
	logs, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"effective configuration", "pckl", "[metrics]"} {
		if !strings.Contains(string(logs), want) {
			t.Errorf("log missing %q:\n%s", want, logs)
		}
	}

	if err := os.Remove(logFile); err != nil {
		t.Fatal(err)
	}
	if _, err := execute("levels", board, "R1", "--config", cfg); err != nil {
		t.Fatal(err)
	}
	if logs, _ := os.ReadFile(logFile); strings.Contains(string(logs), "effective configuration") {
		t.Error("configuration logged without --verbose")
	}
}
