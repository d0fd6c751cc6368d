package cli

import (
	"context"
	stderrors "errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lesys-monitor/lesys/internal/config"
	"github.com/lesys-monitor/lesys/internal/errors"
	"github.com/lesys-monitor/lesys/internal/handoff"
	"github.com/lesys-monitor/lesys/internal/logger"
	"github.com/lesys-monitor/lesys/internal/metrics"
	"github.com/lesys-monitor/lesys/internal/ui"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// debugLogFile receives log output while the dashboard owns the screen.
const debugLogFile = "lesys-debug.log"

// stopTimeout bounds how long shutdown waits for an in-flight tick.
const stopTimeout = 5 * time.Second

// monitorCommand starts the dashboard, or streams NDJSON when stdout is not
// a terminal.
func monitorCommand(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := newSources(cfg, mockMode)
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		e := newEngine(ctx, cfg, src)
		h := metrics.Start(ctx, e.run)
		err := streamNDJSON(ctx, cmd.OutOrStdout(), e.systemSlot)
		return stopEngine(h, err)
	}
	return runDashboard(ctx, cfg, src)
}

func runDashboard(ctx context.Context, cfg *config.Config, src sources) error {
	restore, err := redirectLog()
	if err != nil {
		return err
	}
	defer restore()

	e := newEngine(ctx, cfg, src)
	h := metrics.Start(ctx, e.run)

	killLog := logger.NewEnvLogger("[cli]")
	model := ui.NewRootModel(e.systemSlot, e.processSlot, ui.Options{
		Theme:        ui.ThemeByName(cfg.Theme),
		UseBits:      cfg.UseBits,
		DisplayLimit: cfg.DisplayLimit,
		Kill: func(pids []int32) {
			metrics.Terminate(pids, killLog)
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		// Interrupted by a signal
		err = nil
	}
	return stopEngine(h, err)
}

// stopEngine stops the sampling loops and returns the first error.
func stopEngine(h *metrics.Handle, err error) error {
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	stopErr := h.Stop(stopCtx)
	if err != nil {
		return err
	}
	if stderrors.Is(stopErr, context.DeadlineExceeded) {
		return errors.WrapWithCode(stopErr, errors.ErrSensor,
			"Samplers did not stop in time",
			"A sensor read may be hanging; try again with LESYS_DEBUG=1 to see which one")
	}
	return stopErr
}

// redirectLog keeps log output off the dashboard: to a file when debugging,
// otherwise nowhere.
func redirectLog() (func(), error) {
	if logger.DebugEnabled() {
		f, err := tea.LogToFile(debugLogFile, "lesys")
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to open "+debugLogFile,
				"Check that the current directory is writable")
		}
		return func() {
			log.SetOutput(os.Stderr)
			f.Close()
		}, nil
	}
	log.SetOutput(io.Discard)
	return func() { log.SetOutput(os.Stderr) }, nil
}

// streamNDJSON writes every published system snapshot to w as one JSON line
// until ctx is cancelled. A snapshot already in the slot is written first.
func streamNDJSON(ctx context.Context, w io.Writer, slot *handoff.Slot[metrics.SystemSnapshot]) error {
	wake, cancel := slot.Subscribe()
	defer cancel()

	enc := json.NewEncoder(w)
	var lastSeq uint64
	for {
		if snap, seq, ok := slot.Latest(); ok && seq != lastSeq {
			lastSeq = seq
			if err := enc.Encode(snap); err != nil {
				return errors.WrapWithCode(err, errors.ErrServe,
					"Failed to write snapshot",
					"The output pipe may have been closed")
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-wake:
		}
	}
}
