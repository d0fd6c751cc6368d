// Package proctree groups a flat process list by name and orders it for
// display.
//
// Build is a pure function: the only state carried between refreshes is the
// set of expanded group names, which the caller owns.
package proctree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lesys-monitor/lesys/internal/metrics"
)

// DisplayLimit caps the number of groups returned unless the list is sorted
// by name.
const DisplayLimit = 100

// Group is all processes sharing one name.
type Group struct {
	Name string `json:"name"`
	// PID is the smallest PID among the members.
	PID     int32                   `json:"pid"`
	PIDs    []int32                 `json:"pids"`
	CPU     float64                 `json:"cpu_percent"`
	RAM     uint64                  `json:"ram_bytes"`
	Disk    float64                 `json:"disk_mbps"`
	ExePath string                  `json:"exe_path,omitempty"`
	Members []metrics.ProcessSample `json:"members,omitempty"`
	// Expanded is true when the group name was in the caller's expanded set.
	Expanded bool `json:"expanded"`
}

// Count returns the number of member processes.
func (g Group) Count() int {
	return len(g.Members)
}

// Label is the text shown for the group row. Single-process groups carry no
// count suffix.
func (g Group) Label() string {
	if g.Count() > 1 {
		return fmt.Sprintf("%s (%d)", g.Name, g.Count())
	}
	return g.Name
}

// Build groups samples and orders them using the default display limit.
func Build(samples []metrics.ProcessSample, spec SortSpec, expanded map[string]bool) []Group {
	return BuildWithLimit(samples, spec, expanded, DisplayLimit)
}

// BuildWithLimit is Build with an explicit cap. A limit <= 0 disables
// truncation.
func BuildWithLimit(samples []metrics.ProcessSample, spec SortSpec, expanded map[string]bool, limit int) []Group {
	groups := group(samples)

	sortGroups(groups, spec)
	if limit > 0 && !spec.NameSorted() && len(groups) > limit {
		groups = groups[:limit]
	}

	for i := range groups {
		g := &groups[i]
		g.Expanded = expanded[g.Name]
		if g.Count() > 1 {
			sortMembers(g.Members, spec)
		}
	}
	return groups
}

func group(samples []metrics.ProcessSample) []Group {
	index := make(map[string]int, len(samples))
	var groups []Group
	for _, s := range samples {
		i, ok := index[s.Name]
		if !ok {
			i = len(groups)
			index[s.Name] = i
			groups = append(groups, Group{Name: s.Name, PID: s.PID})
		}
		g := &groups[i]
		g.PIDs = append(g.PIDs, s.PID)
		g.Members = append(g.Members, s)
		g.CPU += s.CPUPercent
		g.RAM += s.RAMBytes
		g.Disk += s.DiskMBps
		if s.PID < g.PID {
			g.PID = s.PID
		}
		if g.ExePath == "" {
			g.ExePath = s.ExePath
		}
	}
	return groups
}

func sortGroups(groups []Group, spec SortSpec) {
	var less func(a, b *Group) bool
	switch {
	case spec.NameSorted():
		desc := spec.Name == NameDesc
		less = func(a, b *Group) bool { return nameLess(a.Name, b.Name, desc) }
	case spec.Active == ColumnPID:
		less = func(a, b *Group) bool { return ordered(a.PID, b.PID, spec.Ascending) }
	case spec.Active == ColumnCPU:
		less = func(a, b *Group) bool { return ordered(a.CPU, b.CPU, spec.Ascending) }
	case spec.Active == ColumnDisk:
		less = func(a, b *Group) bool { return ordered(a.Disk, b.Disk, spec.Ascending) }
	case spec.Active == ColumnRAM:
		less = func(a, b *Group) bool { return ordered(a.RAM, b.RAM, spec.Ascending) }
	default:
		less = func(a, b *Group) bool { return a.RAM > b.RAM }
	}
	sort.SliceStable(groups, func(i, j int) bool { return less(&groups[i], &groups[j]) })
}

// sortMembers orders the children of an expanded group by the parent's key.
// PID ordering and the unsorted state fall back to RAM descending.
func sortMembers(members []metrics.ProcessSample, spec SortSpec) {
	var less func(a, b *metrics.ProcessSample) bool
	switch {
	case spec.NameSorted():
		// Members share a name, so order by PID in the same direction.
		desc := spec.Name == NameDesc
		less = func(a, b *metrics.ProcessSample) bool { return ordered(a.PID, b.PID, !desc) }
	case spec.Active == ColumnCPU:
		less = func(a, b *metrics.ProcessSample) bool { return ordered(a.CPUPercent, b.CPUPercent, spec.Ascending) }
	case spec.Active == ColumnDisk:
		less = func(a, b *metrics.ProcessSample) bool { return ordered(a.DiskMBps, b.DiskMBps, spec.Ascending) }
	case spec.Active == ColumnRAM:
		less = func(a, b *metrics.ProcessSample) bool { return ordered(a.RAMBytes, b.RAMBytes, spec.Ascending) }
	default:
		less = func(a, b *metrics.ProcessSample) bool { return a.RAMBytes > b.RAMBytes }
	}
	sort.SliceStable(members, func(i, j int) bool { return less(&members[i], &members[j]) })
}

func ordered[T int32 | float64 | uint64](a, b T, ascending bool) bool {
	if ascending {
		return a < b
	}
	return a > b
}

func nameLess(a, b string, desc bool) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return false
	}
	if desc {
		return la > lb
	}
	return la < lb
}

// Find returns the group with the given name, if present.
func Find(groups []Group, name string) (Group, bool) {
	for _, g := range groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}
