package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/snapshot"
)

type saveFlags struct {
	tracks, zones, text, drawings bool
	intersecting                  bool
	filter                        string
	schematic                     string
}

func (a *app) saveCmd() *cobra.Command {
	f := &saveFlags{}
	cmd := &cobra.Command{
		Use:   "save <board_file> <anchor> <level> <output>",
		Short: "Save the layout of a sheet level",
		Long: `Saves the footprints of one sheet level of the anchor footprint together
with the tracks, zones, texts and drawings around them.

The level is a depth as listed by "otl levels", a sheet name or a sheet file.
The output extension selects the encoding: .yaml/.yml for text, .pckl/.bin
for binary. Without a known extension the configured format is appended.`,
		Args: cobra.ExactArgs(4),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		return a.runSave(cmd, args, f)
	})

	cmd.Flags().BoolVar(&f.tracks, "tracks", true, "save tracks and vias")
	cmd.Flags().BoolVar(&f.zones, "zones", true, "save zones")
	cmd.Flags().BoolVar(&f.text, "text", true, "save board texts")
	cmd.Flags().BoolVar(&f.drawings, "drawings", true, "save board drawings")
	cmd.Flags().BoolVar(&f.intersecting, "intersecting", false, "also save items crossing the level's bounding box")
	cmd.Flags().StringVar(&f.filter, "filter", "", `expression items must satisfy, e.g. 'kind != "zone"'`)
	cmd.Flags().StringVar(&f.schematic, "schematic", "", "root schematic (default: board name with .kicad_sch)")
	return cmd
}

// request merges the configured defaults with explicitly set flags.
func (a *app) request(cmd *cobra.Command, f *saveFlags) layout.SaveRequest {
	req := layout.SaveRequest{
		Tracks:       a.cfg.Save.Tracks,
		Zones:        a.cfg.Save.Zones,
		Text:         a.cfg.Save.Text,
		Drawings:     a.cfg.Save.Drawings,
		Intersecting: a.cfg.Save.Intersecting,
		Filter:       a.cfg.Save.Filter,
	}
	flags := cmd.Flags()
	if flags.Changed("tracks") {
		req.Tracks = f.tracks
	}
	if flags.Changed("zones") {
		req.Zones = f.zones
	}
	if flags.Changed("text") {
		req.Text = f.text
	}
	if flags.Changed("drawings") {
		req.Drawings = f.drawings
	}
	if flags.Changed("intersecting") {
		req.Intersecting = f.intersecting
	}
	if flags.Changed("filter") {
		req.Filter = f.filter
	}
	return req
}

func (a *app) runSave(cmd *cobra.Command, args []string, f *saveFlags) error {
	boardFile, anchor, levelArg, output := args[0], args[1], args[2], args[3]
	if _, err := snapshot.FormatFor(output); err != nil {
		output += "." + a.cfg.Save.Format
	}

	board, err := pcb.ParseFile(boardFile)
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}
	s, err := layout.NewSaver(board, anchor,
		layout.WithLogger(a.log), layout.WithObserver(a.metrics), layout.WithSchematic(f.schematic))
	if err != nil {
		return err
	}
	level, err := pickLevel(s.Levels(), levelArg)
	if err != nil {
		return err
	}

	req := a.request(cmd, f)
	req.Level = level.Path
	req.Output = output
	snap, err := s.Save(cmd.Context(), req)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	success(w, "Saved sheet %s (%s) to %s", level.Name, level.File, output)
	field(w, "Hash", snap.Hash)
	field(w, "Local nets", len(snap.LocalNets))
	field(w, "Layers", snap.LayerCount)
	return nil
}
