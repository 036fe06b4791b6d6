// cmd/ornament-sim runs ornament scenarios on the host.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ornament-go/services/ornament/sim"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ornament-sim",
		Short:         "Simulate the ornament firmware on the host",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd(), newDefaultsCmd())
	return root
}

var errChecksFailed = errors.New("invariant checks failed")

func newRunCmd() *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print the report",
		Long: `Runs the firmware core against simulated rails, comparator and latches. ` +
			`Cell depletions and glitches are taken from the scenario file. The report lists ` +
			`every LED update, every rail transition and the invariant checks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := sim.Load(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			var tw io.Writer
			if trace {
				tw = cmd.ErrOrStderr()
			}
			report, err := sim.Run(ctx, sc, tw)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(report)
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return err
			}
			if !report.Passed() {
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "Print diagnostic notices to stderr as they happen")
	return cmd
}

func newDefaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the default board configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := sim.DefaultsYAML()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}
