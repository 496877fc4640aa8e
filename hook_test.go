package trcevent_test

import (
	"context"
	"testing"
	"time"

	"github.com/peterbourgon/trcevent"
)

func TestHook(t *testing.T) {
	t.Parallel()

	rec := trcevent.NewRecorder()
	hook := trcevent.NewHook(rec)

	hook.Call("f", "", nil, 1*time.Microsecond) // disabled, dropped

	rec.Enable()
	hook.Call("f", trcevent.CategoryMethod, trcevent.Args{"n": trcevent.Int(3)}, 2*time.Microsecond)
	hook.Call("", trcevent.CategoryMethod, nil, 3*time.Microsecond) // malformed, dropped
	hook.Return("f", trcevent.CategoryMethod, nil, 4*time.Microsecond)

	s := rec.Snapshot()
	assertEqual(t, s.Events, []trcevent.Event{
		{Name: "f", Category: trcevent.CategoryMethod, Args: trcevent.Args{"n": trcevent.Int(3)}, Phase: trcevent.PhaseBegin, Timestamp: 2 * time.Microsecond},
		{Name: "f", Category: trcevent.CategoryMethod, Phase: trcevent.PhaseEnd, Timestamp: 4 * time.Microsecond},
	}, valueComparer)
	assertEqual(t, s.Stats.Malformed, uint64(1))
	assertEqual(t, s.Stats.Skipped, uint64(1))
}

func TestHookNeverPanics(t *testing.T) {
	t.Parallel()

	hook := trcevent.NewHook(nil)
	hook.Call("f", "", nil, 0)
	hook.Return("f", "", nil, 0)
}

func TestHookFuncsAndMultiHook(t *testing.T) {
	t.Parallel()

	var calls, returns []string
	funcs := trcevent.HookFuncs{
		OnCall:   func(name, _ string, _ trcevent.Args, _ time.Duration) { calls = append(calls, name) },
		OnReturn: func(name, _ string, _ trcevent.Args, _ time.Duration) { returns = append(returns, name) },
	}

	rec := trcevent.NewRecorder()
	rec.Enable()

	hook := trcevent.MultiHook{funcs, trcevent.NewHook(rec), trcevent.HookFuncs{}}
	hook.Call("a", "", nil, 0)
	hook.Call("b", "", nil, 1)
	hook.Return("b", "", nil, 2)
	hook.Return("a", "", nil, 3)

	assertEqual(t, calls, []string{"a", "b"})
	assertEqual(t, returns, []string{"b", "a"})
	assertEqual(t, len(rec.Snapshot().Events), 4)
}

func TestRegion(t *testing.T) {
	t.Parallel()

	var (
		now time.Duration
		rec = trcevent.NewRecorder(trcevent.WithClock(func() time.Duration { now += time.Microsecond; return now }))
		ctx = trcevent.NewContext(context.Background(), rec)
	)

	var fact func(n int) int
	fact = func(n int) int {
		defer trcevent.Region(ctx, trcevent.CategoryMethod, "fact", trcevent.Args{"n": trcevent.Int(int64(n))})()
		if n < 2 {
			return 1
		}
		return n * fact(n-1)
	}

	fact(3) // disabled, nothing recorded
	assertEqual(t, len(rec.Snapshot().Events), 0)

	rec.Enable()
	assertEqual(t, fact(3), 6)

	var phases, names string
	for _, ev := range rec.Snapshot().Events {
		phases += ev.Phase.String()
		names += ev.Args["n"].String() + " "
	}

	assertEqual(t, phases, "BBBEEE")
	assertEqual(t, names, "3 2 1 null null null ")

	var last time.Duration
	for _, ev := range rec.Snapshot().Events {
		if ev.Timestamp < last {
			t.Fatalf("timestamps out of order: %s after %s", ev.Timestamp, last)
		}
		last = ev.Timestamp
	}
}

func TestRegionWithoutRecorder(t *testing.T) {
	t.Parallel()

	finish := trcevent.Region(context.Background(), "c", "f", nil)
	finish()

	if rec := trcevent.FromContext(context.Background()); rec != nil {
		t.Fatalf("want nil recorder, have %v", rec)
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()

	rec := trcevent.NewRecorder()
	rec.Enable()

	verbose := rec.Category(trcevent.DisabledByDefaultPrefix + "verbose")
	assertEqual(t, verbose.Enabled(), false)
	assertEqual(t, rec.Category("normal").Enabled(), true)
	if rec.Category("normal") != rec.Category("normal") {
		t.Fatalf("Category should return the same instance for the same name")
	}

	rec.Record(trcevent.Event{Name: "a", Category: verbose.Name(), Phase: trcevent.PhaseInstant})
	rec.Record(trcevent.Event{Name: "b", Category: "normal", Phase: trcevent.PhaseInstant})

	verbose.Enable()
	rec.Category("normal").Disable()

	rec.Record(trcevent.Event{Name: "c", Category: verbose.Name(), Phase: trcevent.PhaseInstant})
	rec.Record(trcevent.Event{Name: "d", Category: "normal", Phase: trcevent.PhaseInstant})

	var names []string
	for _, ev := range rec.Snapshot().Events {
		names = append(names, ev.Name)
	}
	assertEqual(t, names, []string{"b", "c"})

	assertEqual(t, rec.Categories(), []trcevent.CategoryInfo{
		{Name: trcevent.DisabledByDefaultPrefix + "verbose", Enabled: true},
		{Name: "normal", Enabled: false},
	})
}
