package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/hierarchy"
)

func (a *app) levelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels <board_file> <anchor>",
		Short: "List the sheet levels of an anchor footprint",
		Long: `Lists every hierarchical sheet the anchor footprint belongs to, from the
outermost sheet inwards. The depth or the sheet name selects the level to save.`,
		Args: cobra.ExactArgs(2),
		RunE: a.run(a.runLevels),
	}
}

func (a *app) runLevels(cmd *cobra.Command, args []string) error {
	board, err := pcb.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}
	s, err := layout.NewSaver(board, args[1], layout.WithLogger(a.log))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	table := newTable(w, "Depth", "Sheet", "File")
	for _, l := range s.Levels() {
		table.Append([]string{strconv.Itoa(l.Depth), l.Name, l.File})
	}
	table.Render()
	return nil
}

// pickLevel selects a level by 1-based depth, sheet name or sheet file.
func pickLevel(levels []hierarchy.Level, arg string) (hierarchy.Level, error) {
	if depth, err := strconv.Atoi(arg); err == nil {
		if depth < 1 || depth > len(levels) {
			return hierarchy.Level{}, fmt.Errorf("depth %d out of range 1..%d", depth, len(levels))
		}
		return levels[depth-1], nil
	}
	for _, l := range levels {
		if l.Name == arg || l.File == arg {
			return l, nil
		}
	}
	return hierarchy.Level{}, fmt.Errorf("no level named %q", arg)
}
