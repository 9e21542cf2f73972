package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceLayout/internal/config"
	"github.com/OpenTraceLab/OpenTraceLayout/internal/logging"
	"github.com/OpenTraceLab/OpenTraceLayout/internal/metrics"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	// Global flags
	verbose     bool
	configPath  string
	metricsFile string

	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Recorder
}

// NewRootCmd builds the otl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "otl",
		Short: "OpenTraceLayout - replicate KiCad hierarchical sheet layouts",
		Long: `OpenTraceLayout (otl) saves the placement and routing of one instance of a
hierarchical schematic sheet and replicates it onto other instances of the
same sheet, on the same board or on another one.

Examples:
  otl levels board.kicad_pcb U1                    # List the sheet levels of U1
  otl save board.kicad_pcb U1 1 amp.yaml           # Save the outermost level of U1
  otl restore board.kicad_pcb U101 amp.yaml        # Replicate it around U101
  otl inspect amp.yaml                             # Show what a snapshot holds
  otl fingerprint . amp.kicad_sch                  # Hash a schematic file chain`,
		Version:           "1.3.0",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	rootCmd.AddCommand(
		a.levelsCmd(),
		a.saveCmd(),
		a.restoreCmd(),
		a.inspectCmd(),
		a.fingerprintCmd(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.cfg = config.DefaultConfig()
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	log, err := logging.New(a.cfg.Log, a.verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.log = log
	a.metrics = metrics.New()

	if a.verbose {
		text, err := a.cfg.Encode()
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		a.log.Debug("effective configuration", zap.String("config", text))
	}

	if a.metricsFile == "" {
		a.metricsFile = a.cfg.Metrics.Textfile
	}
	return nil
}

// run wraps a command so that metrics are written and the logger flushed
// whether or not the command fails.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		defer a.log.Sync() //nolint:errcheck

		if a.metricsFile != "" {
			if werr := a.metrics.WriteTextfile(a.metricsFile); werr != nil && err == nil {
				err = fmt.Errorf("failed to write metrics: %w", werr)
			}
		}
		return err
	}
}
