// Package format renders sizes and throughput for humans.
package format

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	byteUnits = [3]string{"KB/s", "MB/s", "GB/s"}
	bitUnits  = [3]string{"Kbps", "Mbps", "Gbps"}
)

// Decimal formats v with thousands separators and one decimal place.
func Decimal(v float64) string {
	return humanize.FormatFloat("#,###.#", v)
}

// Speed formats a rate given in MiB/s. With bits set the value is shown in
// bits per second. Rates under 1000 KB/s are shown in KB/s, under 1000 MB/s
// in MB/s, and in GB/s beyond that.
func Speed(mbps float64, bits bool) string {
	units := byteUnits
	val := mbps
	if bits {
		units = bitUnits
		val *= 8
	}

	valK := val * 1024
	switch {
	case valK < 1000:
		return Decimal(valK) + " " + units[0]
	case valK < 1000*1024:
		return Decimal(val) + " " + units[1]
	default:
		return Decimal(val/1024) + " " + units[2]
	}
}

// Bytes formats a byte count with binary units (KiB, MiB, ...).
func Bytes(b uint64) string {
	return humanize.IBytes(b)
}

// OptionalBytes formats b or returns "N/A" when it is nil.
func OptionalBytes(b *uint64) string {
	if b == nil {
		return "N/A"
	}
	return Bytes(*b)
}

// Percent formats p with one decimal and a percent sign.
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// Count formats n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}
