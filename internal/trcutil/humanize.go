package trcutil

import (
	"fmt"
	"strings"
	"time"
)

// TruncateDuration truncates the provided duration to a more human-friendly
// form, depending on its magnitude. For example, a duration over 1s is
// truncated at 100ms, and a duration over 1m is truncated at 1s.
func TruncateDuration(d time.Duration) time.Duration {
	switch {
	case d >= 24*time.Hour:
		return d.Truncate(time.Hour)
	case d >= time.Hour:
		return d.Truncate(time.Minute)
	case d >= time.Minute:
		return d.Truncate(time.Second)
	case d >= time.Second:
		return d.Truncate(100 * time.Millisecond)
	case d >= 10*time.Millisecond:
		return d.Truncate(time.Millisecond)
	case d >= time.Millisecond:
		return d.Truncate(100 * time.Microsecond)
	default:
		return d.Truncate(time.Microsecond)
	}
}

// HumanizeDuration truncates the duration and returns a human-friendly string
// representation.
func HumanizeDuration(d time.Duration) string {
	dd := TruncateDuration(d)
	ds := dd.String()

	if dd >= time.Hour && strings.HasSuffix(ds, "0s") {
		ds = strings.TrimSuffix(ds, "0s")
	}

	return ds
}

// HumanizeMicroseconds is HumanizeDuration for exported timestamps and spans,
// which are in microseconds.
func HumanizeMicroseconds(us int64) string {
	return HumanizeDuration(time.Duration(us) * time.Microsecond)
}

// HumanizeRate returns a per-second rate of n over d, using K for thousands
// and M for millions, e.g. "32K/s".
func HumanizeRate(n uint64, d time.Duration) string {
	if d <= 0 {
		return "0/s"
	}
	f := float64(n) / d.Seconds()
	switch {
	case f >= 1_000_000:
		return fmt.Sprintf("%.1fM/s", f/1_000_000)
	case f >= 10_000:
		return fmt.Sprintf("%.0fK/s", f/1000)
	case f >= 1_000:
		return fmt.Sprintf("%.1fK/s", f/1000)
	case f >= 1:
		return fmt.Sprintf("%.0f/s", f)
	case f == 0:
		return "0/s"
	default:
		return fmt.Sprintf("%.1f/s", f)
	}
}

// HumanizeBytes returns a human-friendly string representation of n, which is
// assumed to be bytes. KB is used to represent 1024 bytes, and MB is used to
// represent 1048576 bytes. Larger units like GB are not used.
func HumanizeBytes[T interface {
	~int | ~uint | ~int64 | ~uint64
}](n T) string {
	var (
		kib = float64(1024)
		mib = float64(1024 * kib)
		fn  = float64(n)
	)
	switch {
	case fn < 1*kib:
		return fmt.Sprintf("%.0fB", fn)
	case fn < 100*kib:
		return fmt.Sprintf("%.1fKB", fn/kib)
	case fn < 1*mib:
		return fmt.Sprintf("%.0fKB", fn/kib)
	case fn < 100*mib:
		return fmt.Sprintf("%.1fMB", fn/mib)
	default:
		return fmt.Sprintf("%.0fMB", fn/mib)
	}
}
