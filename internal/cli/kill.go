package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lesys-monitor/lesys/internal/errors"
	"github.com/lesys-monitor/lesys/internal/logger"
	"github.com/lesys-monitor/lesys/internal/metrics"
)

var killCmd = &cobra.Command{
	Use:   "kill <pid|name>...",
	Short: "Terminate processes by PID or by group name",
	Long: `Ask processes to exit. A name targets every process in that group,
matched exactly as the dashboard groups them.

Failures, including processes that already exited, are ignored.

Examples:
  lesys kill 4242
  lesys kill chrome.exe
  lesys kill 4242 node`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return killCommand(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(killCmd)
}

func killCommand(cmd *cobra.Command, args []string) error {
	var procs metrics.ProcessSource = metrics.NewHostProcesses()
	if mockMode {
		procs = metrics.NewMockProcesses(1)
	}

	pids, err := resolveTargets(args, procs)
	if err != nil {
		return err
	}

	if mockMode {
		fmt.Fprintf(cmd.OutOrStdout(), "Would terminate %d process(es): %v\n", len(pids), pids)
		return nil
	}
	metrics.Terminate(pids, logger.NewEnvLogger("[cli]"))
	fmt.Fprintf(cmd.OutOrStdout(), "Sent terminate to %d process(es)\n", len(pids))
	return nil
}

// resolveTargets turns PIDs and group names into a sorted, de-duplicated PID
// list. The process table is only read when a name is given.
func resolveTargets(args []string, procs metrics.ProcessSource) ([]int32, error) {
	seen := make(map[int32]struct{})
	var names []string
	for _, arg := range args {
		if pid, err := strconv.ParseInt(arg, 10, 32); err == nil {
			if pid <= 0 {
				return nil, errors.New(errors.ErrProcess,
					fmt.Sprintf("'%s' is not a valid PID", arg),
					"PIDs are positive integers")
			}
			seen[int32(pid)] = struct{}{}
			continue
		}
		names = append(names, arg)
	}

	if len(names) > 0 {
		list, err := procs.Processes()
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrProcess,
				"Failed to list processes",
				"Pass PIDs instead of names")
		}
		for _, name := range names {
			found := false
			for _, p := range list {
				if p.Name == name {
					seen[p.PID] = struct{}{}
					found = true
				}
			}
			if !found {
				return nil, errors.New(errors.ErrProcess,
					fmt.Sprintf("No process named '%s'", name),
					"Names are case-sensitive; check the dashboard or 'lesys snapshot --top 0'")
			}
		}
	}

	pids := make([]int32, 0, len(seen))
	for pid := range seen {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids, nil
}
