// Package memplan computes the memory allocation handed to the server
// process from its configured request and the host's capacity.
package memplan

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

const (
	defaultFallback = 1 << 30   // 1 GiB
	defaultMinFloor = 512 << 20 // 512 MiB
	minQuantity     = 1 << 20
)

// Settings are the planner's inputs taken from configuration.
type Settings struct {
	Requested    string
	HostFraction float64
	MinFraction  float64
	MinFloor     string
	Fallback     string
}

// Allocation is the planned memory range for one launch.
type Allocation struct {
	RequestedBytes uint64
	MaxBytes       uint64
	MinBytes       uint64
	HostBytes      uint64
	// Clamped is set when the request exceeded the host share.
	Clamped bool
	// FellBack is set when the request could not be parsed.
	FellBack bool
	// ParseErr carries the reason for FellBack.
	ParseErr error
}

// ParseQuantity parses a human-readable memory quantity such as "2G",
// "512M", "1.5g" or "2 GiB". Single-letter suffixes follow JVM heap flag
// conventions and are binary (2G = 2 GiB); spelled-out units are passed to
// go-humanize unchanged, so "2GB" is 2,000,000,000 bytes. A bare number is
// taken as MiB. Anything below 1 MiB is rejected since the heap flags are
// rendered in whole MiB.
func ParseQuantity(s string) (uint64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, &lib.ConfigError{Value: s, Err: errors.New("empty quantity")}
	}

	last := rune(trimmed[len(trimmed)-1])
	switch {
	case unicode.IsDigit(last):
		trimmed += "MiB"
	case unicode.IsLetter(last) && len(trimmed) > 1 && !unicode.IsLetter(rune(trimmed[len(trimmed)-2])):
		switch unicode.ToUpper(last) {
		case 'K', 'M', 'G', 'T':
			trimmed = trimmed[:len(trimmed)-1] + string(unicode.ToUpper(last)) + "iB"
		}
	}

	n, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, &lib.ConfigError{Value: s, Err: err}
	}
	if n < minQuantity {
		return 0, &lib.ConfigError{Value: s, Err: errors.New("quantity must be at least 1 MiB")}
	}
	return n, nil
}

// Plan is a pure function of the settings and the host capacity. A hostBytes
// of zero means the capacity is unknown and no clamping is applied.
func Plan(settings Settings, hostBytes uint64) Allocation {
	alloc := Allocation{HostBytes: hostBytes}

	fallback, err := ParseQuantity(settings.Fallback)
	if err != nil {
		fallback = defaultFallback
	}
	floor, err := ParseQuantity(settings.MinFloor)
	if err != nil {
		floor = defaultMinFloor
	}

	requested, err := ParseQuantity(settings.Requested)
	if err != nil {
		requested = fallback
		alloc.FellBack = true
		alloc.ParseErr = err
	}
	alloc.RequestedBytes = requested
	alloc.MaxBytes = requested

	if hostBytes > 0 && settings.HostFraction > 0 {
		limit := uint64(float64(hostBytes) * settings.HostFraction)
		if alloc.MaxBytes > limit {
			alloc.MaxBytes = limit
			alloc.Clamped = true
		}
	}

	alloc.MinBytes = uint64(float64(alloc.MaxBytes) * settings.MinFraction)
	if alloc.MinBytes < floor {
		alloc.MinBytes = floor
	}
	if alloc.MinBytes > alloc.MaxBytes {
		alloc.MinBytes = alloc.MaxBytes
	}

	return alloc
}

// Describe renders the allocation for the operator console.
func (alloc Allocation) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Memory: requested %s, allocated %s (initial %s)",
		humanize.IBytes(alloc.RequestedBytes), humanize.IBytes(alloc.MaxBytes), humanize.IBytes(alloc.MinBytes))
	if alloc.HostBytes > 0 {
		fmt.Fprintf(&b, " of %s host memory", humanize.IBytes(alloc.HostBytes))
	}
	if alloc.FellBack {
		fmt.Fprintf(&b, "; configured value invalid (%v), using default", alloc.ParseErr)
	}
	if alloc.Clamped {
		b.WriteString("; request clamped to protect the host")
	}
	return b.String()
}

// MaxMegabytes and MinMegabytes give whole MiB for JVM heap flags.
func (alloc Allocation) MaxMegabytes() uint64 { return alloc.MaxBytes >> 20 }

func (alloc Allocation) MinMegabytes() uint64 { return alloc.MinBytes >> 20 }
