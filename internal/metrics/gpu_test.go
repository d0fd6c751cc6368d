package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesys-monitor/lesys/internal/logger"
)

func TestSelectGPUFirstSuccessWins(t *testing.T) {
	smi := &fakeGPU{source: GPUSourceManagementQuery}
	opened := []string{}
	track := func(p GPUProbe) GPUProbe {
		open := p.Open
		p.Open = func(ctx context.Context) (GPUDevice, error) {
			opened = append(opened, p.Name)
			return open(ctx)
		}
		return p
	}

	dev := SelectGPU(context.Background(), []GPUProbe{
		track(probeOf("nvml", nil, errors.New("library not found"))),
		track(probeOf("nvidia-smi", smi, nil)),
		track(probeOf("never", &fakeGPU{}, nil)),
	}, logger.Noop())

	assert.Same(t, smi, dev)
	assert.Equal(t, []string{"nvml", "nvidia-smi"}, opened)
}

func TestSelectGPUNone(t *testing.T) {
	buf := logger.NewBufferLogger()
	dev := SelectGPU(context.Background(), []GPUProbe{probeOf("nvml", nil, errors.New("nope"))}, buf)
	assert.Equal(t, GPUSourceNone, dev.Source())

	r, err := dev.Read(context.Background())
	require.NoError(t, err)
	assert.Zero(t, r.Percent)
	assert.Nil(t, r.TotalBytes)
	assert.True(t, buf.HasLevel("debug"))
	assert.NoError(t, dev.Close())
}

func TestParseSMI(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantPct   float64
		wantTotal *uint64
		wantErr   bool
	}{
		{"typical", "45, 8192\n", 45, u64(8192 << 20), false},
		{"multi gpu takes first", "10, 4096\n90, 24576\n", 10, u64(4096 << 20), false},
		{"util not exposed", "[N/A], 16384", 0, u64(16384 << 20), false},
		{"nothing exposed", "[N/A], [N/A]", 0, nil, false},
		{"empty", "  \n", 0, nil, true},
		{"too few fields", "45", 0, nil, true},
		{"garbage", "abc, 12", 0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parseSMI(tt.output)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPct, r.Percent)
			assert.Equal(t, tt.wantTotal, r.TotalBytes)
			assert.Nil(t, r.UsedBytes, "used VRAM is not reported at this tier")
		})
	}
}

func TestSMIDeviceRead(t *testing.T) {
	var gotName string
	var gotTimeout time.Duration
	d := &smiDevice{
		path:    "/usr/bin/nvidia-smi",
		timeout: 250 * time.Millisecond,
		run: func(_ context.Context, timeout time.Duration, name string, args ...string) (string, error) {
			gotName, gotTimeout = name, timeout
			return "33, 1024", nil
		},
	}

	r, err := d.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 33.0, r.Percent)
	assert.Equal(t, "/usr/bin/nvidia-smi", gotName)
	assert.Equal(t, 250*time.Millisecond, gotTimeout)
	assert.Equal(t, GPUSourceManagementQuery, d.Source())

	d.run = func(context.Context, time.Duration, string, ...string) (string, error) {
		return "", context.DeadlineExceeded
	}
	_, err = d.Read(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenSMIMissingBinary(t *testing.T) {
	_, err := openSMI(context.Background(), "/nonexistent/nvidia-smi", time.Second, runCmd)
	assert.Error(t, err)
}
