// Package trcevent provides a minimal in-process execution tracer, which
// records function-level call and return events into an in-memory log, and
// exports that log in the Trace Event Format understood by Chrome's
// about:tracing, Perfetto, and similar viewers.
//
// The basic idea is to construct a single [Recorder] at program start, and pass
// it to anything that produces events: instrumentation hooks, HTTP middlewares,
// or code that calls [Recorder.Region] directly. Recording is off by default,
// and is toggled with [Recorder.Enable] and [Recorder.Disable], typically by an
// operator via the control service in package trchttp. Events recorded while
// disabled are silently dropped.
//
// The log is append-only and, by default, unbounded. Long-running programs that
// leave recording enabled should use [WithMaxEvents], which turns the log into a
// ring buffer that overwrites the oldest events.
//
// An [Exporter] converts a [Snapshot] of the log into a [Document], which is
// the JSON object served to trace viewers. Export is deterministic: the same
// snapshot always produces the same bytes.
//
// There are a few caveats. Go has no runtime call/return notification, so
// events are only recorded where code is explicitly instrumented, via a [Hook]
// or a region. Goroutines have no public identity, so every event is attributed
// to a single placeholder thread ID unless the caller provides one.
package trcevent
