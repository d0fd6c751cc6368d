package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lesys-monitor/lesys/internal/config"
	"github.com/lesys-monitor/lesys/internal/errors"
	"github.com/lesys-monitor/lesys/internal/metrics"
	"github.com/lesys-monitor/lesys/internal/proctree"
	"github.com/lesys-monitor/lesys/internal/stream"
)

var (
	snapshotTop  int
	snapshotSort string
	snapshotDir  string
)

// snapshotOutput is the document printed by 'lesys snapshot'.
type snapshotOutput struct {
	System    metrics.SystemSnapshot `json:"system"`
	Processes []stream.GroupView     `json:"processes"`
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print one system snapshot and the top process groups as JSON",
	Long: `Sample the host twice, one system interval apart, and print the result.

Rates need two readings, so the command takes about one system interval.

Examples:
  lesys snapshot
  lesys snapshot --top 5 --sort cpu
  lesys snapshot --sort name --dir desc --top 0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotCommand(cmd)
	},
}

func init() {
	snapshotCmd.Flags().IntVar(&snapshotTop, "top", 10, "number of process groups to include (0 for all)")
	snapshotCmd.Flags().StringVar(&snapshotSort, "sort", "", "sort column: name, pid, cpu, ram or disk")
	snapshotCmd.Flags().StringVar(&snapshotDir, "dir", "", "sort direction: asc or desc")
	rootCmd.AddCommand(snapshotCmd)
}

func snapshotCommand(cmd *cobra.Command) error {
	spec, err := stream.ParseSort(snapshotSort, snapshotDir)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid sort options",
			"Use --sort name|pid|cpu|ram|disk and --dir asc|desc")
	}
	if snapshotTop < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("--top cannot be negative, got %d", snapshotTop),
			"Use 0 to include every process group")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out, err := takeSnapshot(cmd.Context(), cfg, newSources(cfg, mockMode), spec, snapshotTop)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// takeSnapshot primes both samplers, waits one system interval and samples
// again so that rates and process CPU have a baseline.
func takeSnapshot(ctx context.Context, cfg *config.Config, src sources, spec proctree.SortSpec, top int) (snapshotOutput, error) {
	e := newEngine(ctx, cfg, src)
	defer e.system.Close()

	start := time.Now()
	e.system.Sample(ctx, start)
	if _, err := e.processes.Sample(start); err != nil {
		return snapshotOutput{}, errors.WrapWithCode(err, errors.ErrProcess,
			"Failed to list processes",
			"Check that the process table is readable by this user")
	}

	select {
	case <-ctx.Done():
		return snapshotOutput{}, ctx.Err()
	case <-time.After(cfg.SystemInterval):
	}

	now := time.Now()
	snap := e.system.Sample(ctx, now)
	table, err := e.processes.Sample(now)
	if err != nil {
		return snapshotOutput{}, errors.WrapWithCode(err, errors.ErrProcess,
			"Failed to list processes",
			"Check that the process table is readable by this user")
	}

	groups := proctree.BuildWithLimit(table.Samples, spec, nil, top)
	return snapshotOutput{System: snap, Processes: stream.Views(groups)}, nil
}
