package metrics

import (
	"strings"
	"time"

	"github.com/lesys-monitor/lesys/internal/rate"
)

// DefaultFallbackInterface labels the active interface when none passes the
// blacklist.
const DefaultFallbackInterface = "Ethernet"

// DefaultInterfaceBlacklist holds lower-case name fragments of loopback,
// virtual, tunnel and hypervisor interfaces.
var DefaultInterfaceBlacklist = []string{
	"loopback", "vethernet", "wsl", "vmware", "virtualbox", "adapter", "pseudo", "teredo",
	"lo", "veth", "docker", "br-", "virbr", "tun", "tap", "utun", "wg", "zt",
}

// InterfaceFilter decides which interfaces count toward network throughput.
type InterfaceFilter struct {
	blacklist []string
}

// NewInterfaceFilter lowercases the blacklist and drops empty entries.
func NewInterfaceFilter(blacklist []string) InterfaceFilter {
	f := InterfaceFilter{}
	for _, b := range blacklist {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			f.blacklist = append(f.blacklist, b)
		}
	}
	return f
}

// Allowed reports whether name contains none of the blacklisted fragments.
// Matching is case-insensitive.
func (f InterfaceFilter) Allowed(name string) bool {
	lower := strings.ToLower(name)
	for _, b := range f.blacklist {
		if b == "lo" {
			// "lo" alone would match "wlo1" and similar physical names.
			if strings.HasPrefix(lower, "lo") && isDigits(lower[2:]) {
				return false
			}
			continue
		}
		if strings.Contains(lower, b) {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// netState tracks per-interface byte counters. Interface keys are never
// pruned.
type netState struct {
	filter   InterfaceFilter
	fallback string
	sent     *rate.Tracker[string]
	recv     *rate.Tracker[string]
}

type netResult struct {
	downMBps float64
	upMBps   float64
	active   string
}

func (n *netState) observe(counters []NetCounter, now time.Time) netResult {
	res := netResult{active: n.fallback}
	best := -1.0
	for _, c := range counters {
		if !n.filter.Allowed(c.Name) {
			continue
		}
		up := n.sent.Observe(c.Name, c.BytesSent, now)
		down := n.recv.Observe(c.Name, c.BytesRecv, now)
		res.upMBps += up / bytesPerMiB
		res.downMBps += down / bytesPerMiB
		// Strictly greater keeps the earliest interface on ties.
		if combined := up + down; combined > best {
			best = combined
			res.active = c.Name
		}
	}
	return res
}
