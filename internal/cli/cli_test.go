package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesys-monitor/lesys/internal/config"
	"github.com/lesys-monitor/lesys/internal/errors"
	"github.com/lesys-monitor/lesys/internal/handoff"
	"github.com/lesys-monitor/lesys/internal/metrics"
	"github.com/lesys-monitor/lesys/internal/proctree"
)

type staticProcesses struct {
	procs []metrics.RawProcess
	err   error
	calls int
}

func (s *staticProcesses) Processes() ([]metrics.RawProcess, error) {
	s.calls++
	return s.procs, s.err
}

func (s *staticProcesses) LogicalCPUs() int { return 1 }

// lockedBuffer is a bytes.Buffer safe for one writer and one reader.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(b.buf.String()))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func mockConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SystemInterval = 100 * time.Millisecond
	cfg.ProcessInterval = 100 * time.Millisecond
	return cfg
}

func TestRootCommandTree(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"snapshot", "serve", "kill", "config", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "mock", "no-color"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.NotNil(t, rootCmd.Flags().Lookup("bits"))
}

func TestResolveTargets(t *testing.T) {
	procs := &staticProcesses{procs: []metrics.RawProcess{
		{PID: 30, Name: "chrome"},
		{PID: 10, Name: "chrome"},
		{PID: 20, Name: "Chrome"},
		{PID: 40, Name: "bash"},
	}}

	t.Run("pids only skip the process table", func(t *testing.T) {
		failing := &staticProcesses{err: fmt.Errorf("boom")}
		pids, err := resolveTargets([]string{"7", "3", "7"}, failing)
		require.NoError(t, err)
		assert.Equal(t, []int32{3, 7}, pids)
		assert.Zero(t, failing.calls)
	})

	t.Run("name targets every member", func(t *testing.T) {
		pids, err := resolveTargets([]string{"chrome", "40"}, procs)
		require.NoError(t, err)
		assert.Equal(t, []int32{10, 30, 40}, pids)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := resolveTargets([]string{"firefox"}, procs)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrProcess))
	})

	t.Run("non-positive pid", func(t *testing.T) {
		_, err := resolveTargets([]string{"-5"}, procs)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrProcess))
	})

	t.Run("enumeration failure", func(t *testing.T) {
		_, err := resolveTargets([]string{"bash"}, &staticProcesses{err: fmt.Errorf("denied")})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrProcess))
	})
}

func TestStreamNDJSON(t *testing.T) {
	slot := handoff.New[metrics.SystemSnapshot]()
	slot.Publish(metrics.SystemSnapshot{CPUPercent: 1})

	ctx, cancel := context.WithCancel(context.Background())
	var out lockedBuffer
	done := make(chan error, 1)
	go func() { done <- streamNDJSON(ctx, &out, slot) }()

	require.Eventually(t, func() bool { return len(out.Lines()) == 1 }, 2*time.Second, 10*time.Millisecond)

	slot.Publish(metrics.SystemSnapshot{CPUPercent: 2, ActiveInterface: "eth0"})
	require.Eventually(t, func() bool { return len(out.Lines()) == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}

	var snap metrics.SystemSnapshot
	require.NoError(t, json.Unmarshal([]byte(out.Lines()[1]), &snap))
	assert.Equal(t, 2.0, snap.CPUPercent)
	assert.Equal(t, "eth0", snap.ActiveInterface)
}

func TestTakeSnapshotMock(t *testing.T) {
	cfg := mockConfig()
	out, err := takeSnapshot(context.Background(), cfg, newSources(cfg, true), proctree.DefaultSortSpec(), 3)
	require.NoError(t, err)

	assert.Equal(t, metrics.GPUSourceVendorAPI, out.System.GPUSource)
	assert.False(t, out.System.CPULowConfidence)
	assert.NotZero(t, out.System.RAMTotalBytes)
	require.Len(t, out.Processes, 3)
	for i := 1; i < len(out.Processes); i++ {
		assert.GreaterOrEqual(t, out.Processes[i-1].RAM, out.Processes[i].RAM)
	}
	for _, g := range out.Processes {
		assert.NotEqual(t, "System Idle Process", g.Name)
	}
}

func TestTakeSnapshotCancelled(t *testing.T) {
	cfg := mockConfig()
	cfg.SystemInterval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := takeSnapshot(ctx, cfg, newSources(cfg, true), proctree.DefaultSortSpec(), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSourcesMockWithoutGPU(t *testing.T) {
	cfg := mockConfig()
	cfg.GPU.Enabled = false
	src := newSources(cfg, true)
	assert.Nil(t, src.probes)

	s := metrics.NewSystemSampler(context.Background(), src.sensors, cfg.SystemConfig(src.probes), nil)
	assert.Equal(t, metrics.GPUSourceNone, s.GPUSource())
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := mockConfig()
	cfg.Serve.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, newSources(cfg, true)) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeReportsListenFailure(t *testing.T) {
	cfg := mockConfig()
	cfg.Serve.Addr = "256.0.0.1:bad"

	err := serve(context.Background(), cfg, newSources(cfg, true))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrServe))
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	configInitForce = false
	configInitGlobal = false

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, configInitCommand(cmd, ""))
	assert.Contains(t, out.String(), "Wrote lesys.yaml")

	cfg, err := config.LoadConfig(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	err = configInitCommand(cmd, "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	configInitForce = true
	defer func() { configInitForce = false }()
	assert.NoError(t, configInitCommand(cmd, ""))
}

func TestConfigInitGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	configInitGlobal = true
	defer func() { configInitGlobal = false }()

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	require.NoError(t, configInitCommand(cmd, ""))

	_, err := os.Stat(filepath.Join(home, config.GlobalConfigDir, config.GlobalConfigFile))
	assert.NoError(t, err)
}

// newFlagCmd binds the root-only override flags to a fresh command.
func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().BoolVar(&useBits, "bits", false, "")
	cmd.Flags().StringVar(&themeFlag, "theme", "", "")
	return cmd
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lesys.yaml")
	require.NoError(t, os.WriteFile(path, []byte("theme: light\nuse_bits: false\n"), 0o644))
	cfgFile = path
	defer func() { cfgFile = "" }()

	cmd := newFlagCmd()
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.ThemeLight, cfg.Theme)
	assert.False(t, cfg.UseBits)

	require.NoError(t, cmd.Flags().Set("bits", "true"))
	require.NoError(t, cmd.Flags().Set("theme", "DARK"))
	cfg, err = loadConfig(cmd)
	require.NoError(t, err)
	assert.True(t, cfg.UseBits)
	assert.Equal(t, config.ThemeDark, cfg.Theme)

	require.NoError(t, cmd.Flags().Set("theme", "neon"))
	_, err = loadConfig(cmd)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "nope.yaml")
	defer func() { cfgFile = "" }()

	_, err := loadConfig(newFlagCmd())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}
