package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSourcesThroughSamplers(t *testing.T) {
	sys := NewSystemSampler(context.Background(), NewMockSensors(1),
		SystemConfig{GPUProbes: []GPUProbe{MockGPUProbe(1)}}, nil)

	t0 := time.Now()
	sys.Sample(context.Background(), t0)
	snap := sys.Sample(context.Background(), t0.Add(time.Second))

	assert.True(t, snap.CPUPercent >= 0 && snap.CPUPercent <= 100, "cpu %f", snap.CPUPercent)
	assert.Equal(t, GPUSourceVendorAPI, snap.GPUSource)
	require.NotNil(t, snap.GPUTotalBytes)
	assert.NotEqual(t, "vEthernet (WSL)", snap.ActiveInterface)
	assert.Contains(t, snap.DiskUsage, "/dev/sda1")
	assert.NotContains(t, snap.DiskUsage, "/dev/sr0")
	assert.Len(t, snap.DiskIO, 2)

	procs := NewProcessSampler(NewMockProcesses(1), ProcessConfig{}, nil)
	table, err := procs.Sample(t0)
	require.NoError(t, err)
	assert.NotEmpty(t, table.Samples)
	for _, s := range table.Samples {
		assert.NotEqual(t, "System Idle Process", s.Name)
		assert.True(t, s.CPUPercent >= 0 && s.CPUPercent <= 100)
	}
}
