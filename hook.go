package trcevent

import (
	"context"
	"runtime/trace"
	"time"
)

// Hook is the instrumentation callback pair invoked once per traced call, and
// once per traced return. Go has no runtime call/return notification, so hooks
// are invoked explicitly, by generated code, by wrappers, or by middlewares.
//
// Implementations must tolerate malformed invocations, e.g. an empty name, by
// ignoring them. Hooks must never panic into the instrumented program.
type Hook interface {
	Call(name, category string, args Args, ts time.Duration)
	Return(name, category string, args Args, ts time.Duration)
}

// NewHook returns a hook which records a begin event for every call, and an end
// event for every return, to the given recorder.
func NewHook(r *Recorder) Hook {
	return &recorderHook{r: r}
}

type recorderHook struct {
	r *Recorder
}

func (h *recorderHook) Call(name, category string, args Args, ts time.Duration) {
	h.record(Event{Name: name, Category: category, Args: args, Phase: PhaseBegin, Timestamp: ts})
}

func (h *recorderHook) Return(name, category string, args Args, ts time.Duration) {
	h.record(Event{Name: name, Category: category, Args: args, Phase: PhaseEnd, Timestamp: ts})
}

func (h *recorderHook) record(ev Event) {
	defer func() {
		recover() // instrumentation must never crash the host program
	}()
	h.r.Record(ev)
}

// HookFuncs adapts a pair of ordinary functions to the Hook interface. Either
// function may be nil.
type HookFuncs struct {
	OnCall   func(name, category string, args Args, ts time.Duration)
	OnReturn func(name, category string, args Args, ts time.Duration)
}

// Call implements Hook.
func (f HookFuncs) Call(name, category string, args Args, ts time.Duration) {
	if f.OnCall != nil {
		f.OnCall(name, category, args, ts)
	}
}

// Return implements Hook.
func (f HookFuncs) Return(name, category string, args Args, ts time.Duration) {
	if f.OnReturn != nil {
		f.OnReturn(name, category, args, ts)
	}
}

// MultiHook invokes each hook in order.
type MultiHook []Hook

// Call implements Hook.
func (m MultiHook) Call(name, category string, args Args, ts time.Duration) {
	for _, h := range m {
		h.Call(name, category, args, ts)
	}
}

// Return implements Hook.
func (m MultiHook) Return(name, category string, args Args, ts time.Duration) {
	for _, h := range m {
		h.Return(name, category, args, ts)
	}
}

// Region records a begin event now, and returns a function which records the
// matching end event. It also creates a standard library [runtime/trace.Region]
// with the same name. Typical usage is as follows.
//
//	func fact(ctx context.Context, n int) int {
//	    defer rec.Region(ctx, trcevent.CategoryMethod, "fact", trcevent.Args{"n": trcevent.Int(int64(n))})()
//	    ...
//	}
//
// Args are attached to the begin event only. If the begin event is recorded, so
// is the end event, see [Recorder.Begin].
func (r *Recorder) Region(ctx context.Context, category, name string, args Args) func() {
	if !r.Enabled() {
		return func() {}
	}

	region := trace.StartRegion(ctx, name)
	end := r.Begin(Event{Name: name, Category: category, Args: args, Timestamp: r.Now()})

	return func() {
		end(Event{})
		region.End()
	}
}

// Instant records an instant event, which has no duration.
func (r *Recorder) Instant(category, name string, args Args) {
	if !r.Enabled() {
		return
	}
	r.Record(Event{Name: name, Category: category, Args: args, Phase: PhaseInstant, Timestamp: r.Now()})
}

//
//
//

type recorderContextKey struct{}

var recorderContextVal recorderContextKey

// NewContext returns a new context containing the given recorder.
func NewContext(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, recorderContextVal, r)
}

// FromContext returns the recorder in the context, or nil if none exists. A nil
// recorder is valid, and drops every event.
func FromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(recorderContextVal).(*Recorder)
	return r
}

// Region is a convenience function which calls [Recorder.Region] on the
// recorder in the context.
func Region(ctx context.Context, category, name string, args Args) func() {
	return FromContext(ctx).Region(ctx, category, name, args)
}
