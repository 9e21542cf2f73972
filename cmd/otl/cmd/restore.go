package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout"
)

type restoreFlags struct {
	out       string
	group     string
	schematic string
}

func (a *app) restoreCmd() *cobra.Command {
	f := &restoreFlags{}
	cmd := &cobra.Command{
		Use:   "restore <board_file> <anchor> <snapshot>",
		Short: "Replicate a saved layout onto another sheet instance",
		Long: `Places the footprints of the anchor's sheet instance like the saved ones and
copies the saved tracks, zones, texts and drawings, connected to the
corresponding nets.

The board is only written when every check passes: snapshot version, copper
layer count, sheet hierarchy, schematic fingerprint and footprint counts.`,
		Args: cobra.ExactArgs(3),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		return a.runRestore(cmd, args, f)
	})

	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write the result here instead of overwriting the board")
	cmd.Flags().StringVar(&f.group, "group", "", "collect replicated elements in a group with this name")
	cmd.Flags().StringVar(&f.schematic, "schematic", "", "root schematic (default: board name with .kicad_sch)")
	return cmd
}

func (a *app) runRestore(cmd *cobra.Command, args []string, f *restoreFlags) error {
	boardFile, anchor, input := args[0], args[1], args[2]
	group := a.cfg.Restore.Group
	if cmd.Flags().Changed("group") {
		group = f.group
	}
	out := f.out
	if out == "" {
		out = boardFile
	}

	board, err := pcb.ParseFile(boardFile)
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}
	r, err := layout.NewRestorer(board, anchor,
		layout.WithLogger(a.log), layout.WithObserver(a.metrics),
		layout.WithGroup(group), layout.WithSchematic(f.schematic))
	if err != nil {
		return err
	}
	rep, err := r.Restore(cmd.Context(), input)
	if err != nil {
		return err
	}
	if err := board.WriteFile(out); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	success(w, "Restored %s around %s into %s", input, anchor, out)

	table := newTable(w, "Element", "Count")
	table.Append([]string{"footprints placed", strconv.Itoa(rep.Placed)})
	for _, kind := range pcb.Kinds {
		if n, ok := rep.Cloned[kind]; ok {
			table.Append([]string{kind.String() + "s cloned", strconv.Itoa(n)})
		}
	}
	table.Append([]string{"tracks dropped", strconv.Itoa(rep.Dropped)})
	table.Render()

	for _, d := range rep.Diagnostics {
		warn(w, "%s %s not replicated: %s", d.Kind, d.ID, d.Reason)
	}
	for _, t := range rep.Ties {
		warn(w, "%s matched %s, equally good: %s", t.Dest, t.Candidates[0], strings.Join(t.Candidates[1:], ", "))
	}
	for _, n := range rep.Conflicts {
		warn(w, "net %s maps onto several nets", n)
	}
	if rep.Group != nil {
		field(w, "Group", rep.Group.Name)
	}
	return nil
}
