package proctree

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesys-monitor/lesys/internal/metrics"
)

func sample(name string, pid int32, ram uint64) metrics.ProcessSample {
	return metrics.ProcessSample{Name: name, PID: pid, RAMBytes: ram}
}

func memberPIDs(g Group) []int32 {
	pids := make([]int32, 0, len(g.Members))
	for _, m := range g.Members {
		pids = append(pids, m.PID)
	}
	return pids
}

func TestBuildGroupsAndOrdersByRAM(t *testing.T) {
	samples := []metrics.ProcessSample{
		sample("a.exe", 10, 100),
		sample("a.exe", 5, 50),
		sample("b.exe", 20, 300),
	}

	groups := Build(samples, DefaultSortSpec(), nil)
	require.Len(t, groups, 2)

	assert.Equal(t, "b.exe", groups[0].Name)
	assert.Equal(t, uint64(300), groups[0].RAM)
	assert.Equal(t, int32(20), groups[0].PID)

	assert.Equal(t, "a.exe", groups[1].Name)
	assert.Equal(t, uint64(150), groups[1].RAM)
	assert.Equal(t, int32(5), groups[1].PID)
	assert.Equal(t, []int32{10, 5}, memberPIDs(groups[1]))
	assert.ElementsMatch(t, []int32{10, 5}, groups[1].PIDs)
}

func TestBuildIsSumPreserving(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"chrome", "code", "go", "bash", "Chrome"}
	var samples []metrics.ProcessSample
	var total uint64
	var cpu float64
	for i := 0; i < 300; i++ {
		s := metrics.ProcessSample{
			Name:       names[rng.Intn(len(names))],
			PID:        int32(rng.Intn(100000)),
			RAMBytes:   uint64(rng.Intn(1 << 30)),
			CPUPercent: float64(rng.Intn(100)),
		}
		total += s.RAMBytes
		cpu += s.CPUPercent
		samples = append(samples, s)
	}

	for _, spec := range []SortSpec{
		DefaultSortSpec(),
		DefaultSortSpec().Activate(ColumnName),
		DefaultSortSpec().Activate(ColumnCPU),
	} {
		groups := Build(samples, spec, nil)
		var gotRAM uint64
		var gotCPU float64
		for _, g := range groups {
			gotRAM += g.RAM

			var memberRAM uint64
			lowest := g.Members[0].PID
			for _, m := range g.Members {
				memberRAM += m.RAMBytes
				assert.Equal(t, g.Name, m.Name)
				if m.PID < lowest {
					lowest = m.PID
				}
			}
			assert.Equal(t, memberRAM, g.RAM)
			assert.Equal(t, lowest, g.PID, "representative pid is the smallest member pid")
			gotCPU += g.CPU
		}
		assert.Equal(t, total, gotRAM, spec.String())
		assert.InDelta(t, cpu, gotCPU, 1e-6)
	}
}

func TestBuildGroupingIsCaseSensitive(t *testing.T) {
	groups := Build([]metrics.ProcessSample{
		sample("Chrome", 1, 1),
		sample("chrome", 2, 1),
	}, DefaultSortSpec(), nil)
	assert.Len(t, groups, 2)
}

func TestBuildTruncation(t *testing.T) {
	var samples []metrics.ProcessSample
	for i := 0; i < 150; i++ {
		samples = append(samples, sample(fmt.Sprintf("proc-%03d", i), int32(i+1), uint64(i)))
	}

	tests := []struct {
		name string
		spec SortSpec
		want int
	}{
		{"none", SortSpec{Active: ColumnNone}, DisplayLimit},
		{"cpu", SortSpec{Active: ColumnCPU}, DisplayLimit},
		{"ram", SortSpec{Active: ColumnRAM}, DisplayLimit},
		{"disk", SortSpec{Active: ColumnDisk, Ascending: true}, DisplayLimit},
		{"pid", SortSpec{Active: ColumnPID}, DisplayLimit},
		{"name unsorted", SortSpec{Active: ColumnName, Name: NameUnsorted}, DisplayLimit},
		{"name asc", SortSpec{Active: ColumnName, Name: NameAsc}, 150},
		{"name desc", SortSpec{Active: ColumnName, Name: NameDesc}, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Build(samples, tt.spec, nil), tt.want)
		})
	}

	t.Run("unlimited", func(t *testing.T) {
		assert.Len(t, BuildWithLimit(samples, DefaultSortSpec(), nil, 0), 150)
	})
}

func TestBuildTruncationKeepsLargest(t *testing.T) {
	var samples []metrics.ProcessSample
	for i := 0; i < 150; i++ {
		samples = append(samples, sample(fmt.Sprintf("proc-%03d", i), int32(i+1), uint64(i)))
	}
	groups := Build(samples, DefaultSortSpec(), nil)
	require.Len(t, groups, DisplayLimit)
	assert.Equal(t, "proc-149", groups[0].Name)
	assert.Equal(t, "proc-050", groups[DisplayLimit-1].Name)
}

func TestBuildExpansionPersistsByName(t *testing.T) {
	expanded := map[string]bool{"chrome.exe": true}

	groups := Build([]metrics.ProcessSample{
		sample("chrome.exe", 100, 10),
		sample("chrome.exe", 101, 20),
		sample("code.exe", 200, 5),
	}, DefaultSortSpec(), expanded)

	chrome, ok := Find(groups, "chrome.exe")
	require.True(t, ok)
	assert.True(t, chrome.Expanded)
	code, ok := Find(groups, "code.exe")
	require.True(t, ok)
	assert.False(t, code.Expanded)

	// Restarted under new PIDs, still expanded.
	groups = Build([]metrics.ProcessSample{sample("chrome.exe", 900, 10)}, DefaultSortSpec(), expanded)
	chrome, ok = Find(groups, "chrome.exe")
	require.True(t, ok)
	assert.True(t, chrome.Expanded)

	// Gone entirely: no group is produced.
	groups = Build([]metrics.ProcessSample{sample("code.exe", 200, 5)}, DefaultSortSpec(), expanded)
	_, ok = Find(groups, "chrome.exe")
	assert.False(t, ok)
}

func TestBuildNameOrderIsCaseInsensitive(t *testing.T) {
	samples := []metrics.ProcessSample{
		sample("zsh", 1, 1),
		sample("Bash", 2, 1),
		sample("alpha", 3, 1),
	}

	asc := Build(samples, SortSpec{Active: ColumnName, Name: NameAsc}, nil)
	assert.Equal(t, []string{"alpha", "Bash", "zsh"}, names(asc))

	desc := Build(samples, SortSpec{Active: ColumnName, Name: NameDesc}, nil)
	assert.Equal(t, []string{"zsh", "Bash", "alpha"}, names(desc))
}

func TestBuildColumnOrdering(t *testing.T) {
	samples := []metrics.ProcessSample{
		{Name: "a", PID: 30, CPUPercent: 5, DiskMBps: 1},
		{Name: "b", PID: 10, CPUPercent: 50, DiskMBps: 0},
		{Name: "c", PID: 20, CPUPercent: 1, DiskMBps: 9},
	}

	assert.Equal(t, []string{"b", "a", "c"}, names(Build(samples, SortSpec{Active: ColumnCPU}, nil)))
	assert.Equal(t, []string{"c", "a", "b"}, names(Build(samples, SortSpec{Active: ColumnCPU, Ascending: true}, nil)))
	assert.Equal(t, []string{"c", "a", "b"}, names(Build(samples, SortSpec{Active: ColumnDisk}, nil)))
	assert.Equal(t, []string{"b", "c", "a"}, names(Build(samples, SortSpec{Active: ColumnPID, Ascending: true}, nil)))
}

func TestBuildMemberOrdering(t *testing.T) {
	samples := []metrics.ProcessSample{
		{Name: "svc", PID: 3, RAMBytes: 10, CPUPercent: 30},
		{Name: "svc", PID: 1, RAMBytes: 30, CPUPercent: 10},
		{Name: "svc", PID: 2, RAMBytes: 20, CPUPercent: 20},
	}

	tests := []struct {
		name string
		spec SortSpec
		want []int32
	}{
		{"unsorted falls back to ram", DefaultSortSpec(), []int32{1, 2, 3}},
		{"pid falls back to ram", SortSpec{Active: ColumnPID, Ascending: true}, []int32{1, 2, 3}},
		{"cpu desc", SortSpec{Active: ColumnCPU}, []int32{3, 2, 1}},
		{"ram asc", SortSpec{Active: ColumnRAM, Ascending: true}, []int32{3, 2, 1}},
		{"name asc", SortSpec{Active: ColumnName, Name: NameAsc}, []int32{1, 2, 3}},
		{"name desc", SortSpec{Active: ColumnName, Name: NameDesc}, []int32{3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := Build(samples, tt.spec, map[string]bool{"svc": true})
			require.Len(t, groups, 1)
			assert.Equal(t, tt.want, memberPIDs(groups[0]))
		})
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	samples := []metrics.ProcessSample{
		sample("x", 1, 1),
		sample("x", 2, 9),
	}
	Build(samples, DefaultSortSpec(), nil)
	assert.Equal(t, int32(1), samples[0].PID)
}

func TestGroupLabel(t *testing.T) {
	single := Build([]metrics.ProcessSample{sample("init", 1, 1)}, DefaultSortSpec(), nil)
	assert.Equal(t, "init", single[0].Label())

	multi := Build([]metrics.ProcessSample{sample("w", 1, 1), sample("w", 2, 1)}, DefaultSortSpec(), nil)
	assert.Equal(t, "w (2)", multi[0].Label())
}

func TestBuildEmpty(t *testing.T) {
	assert.Empty(t, Build(nil, DefaultSortSpec(), nil))
}

func names(groups []Group) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Name)
	}
	return out
}
