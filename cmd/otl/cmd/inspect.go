package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/fingerprint"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/snapshot"
)

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Show the contents of a saved layout",
		Args:  cobra.ExactArgs(1),
		RunE:  a.run(a.runInspect),
	}
}

func (a *app) runInspect(cmd *cobra.Command, args []string) error {
	snap, err := snapshot.ReadFile(args[0])
	if err != nil {
		return err
	}
	saved, err := pcb.Parse(strings.NewReader(snap.Layout))
	if err != nil {
		return fmt.Errorf("error parsing saved layout: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Snapshot: %s\n", args[0])
	field(w, "Version", snap.Version)
	field(w, "Level", snap.Level)
	field(w, "Level files", strings.Join(snap.LevelFiles, " > "))
	field(w, "Hash", snap.Hash)
	field(w, "Copper layers", layerCount(snap.LayerCount))
	if snap.Anchor != "" {
		field(w, "Anchor", snap.Anchor)
	}
	fmt.Fprintln(w)

	var refs []string
	for _, fp := range saved.Footprints {
		refs = append(refs, fp.Reference)
	}
	sort.Strings(refs)

	table := newTable(w, "Element", "Count")
	table.Append([]string{"footprints", fmt.Sprint(len(saved.Footprints))})
	table.Append([]string{"tracks", fmt.Sprint(len(saved.Tracks))})
	table.Append([]string{"zones", fmt.Sprint(len(saved.Zones))})
	table.Append([]string{"texts", fmt.Sprint(len(saved.Texts))})
	table.Append([]string{"drawings", fmt.Sprint(len(saved.Drawings))})
	table.Append([]string{"local nets", fmt.Sprint(len(snap.LocalNets))})
	table.Render()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Footprints: %s\n", strings.Join(refs, ", "))
	if len(snap.LocalNets) > 0 {
		fmt.Fprintf(w, "Local nets: %s\n", strings.Join(snap.LocalNets, ", "))
	}
	return nil
}

func layerCount(layers int) string {
	if layers == 0 {
		return "unknown"
	}
	return fmt.Sprint(layers)
}

func (a *app) fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <project_dir> <schematic>...",
		Short: "Print the content fingerprint of a schematic file chain",
		Long: `Hashes the given schematic files, relative to the project directory, the
same way save and restore do. Two sheet levels can be replicated onto each
other only when their fingerprints are equal.`,
		Args: cobra.MinimumNArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			hash, err := fingerprint.Chain(args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		}),
	}
}
