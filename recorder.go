package trcevent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/peterbourgon/trcevent/internal/trcpubsub"
	"github.com/peterbourgon/trcevent/internal/trcringbuf"
)

// Recorder owns an in-memory, append-only log of events, and the flag that
// determines whether new events are recorded. Recording is disabled when the
// recorder is constructed.
//
// A single mutex serializes every mutation of the log and the enabled flag, as
// well as every snapshot. The enabled flag is also readable atomically, so that
// Record is cheap when recording is disabled.
//
// Recorder is safe for concurrent use. A nil recorder is valid: it is always
// disabled, drops every event, and returns empty snapshots and stats.
type Recorder struct {
	clock   func() time.Duration
	enabled atomic.Bool
	broker  *trcpubsub.Broker[Event]

	recorded    atomic.Uint64
	skipped     atomic.Uint64
	malformed   atomic.Uint64
	overwritten atomic.Uint64

	mtx        sync.Mutex
	log        *trcringbuf.RingBuffer[Event]
	session    string
	categories map[string]*Category
}

var errNilRecorder = errors.New("nil recorder")

// RecorderOption configures a recorder.
type RecorderOption func(*Recorder)

// WithMaxEvents bounds the log to at most n events. When the log is full, each
// new event overwrites the oldest event. By default, or if n is zero, the log is
// unbounded, and grows for as long as recording is enabled. The category
// registry isn't bounded by this option, see [Category].
func WithMaxEvents(n int) RecorderOption {
	return func(r *Recorder) { r.log = trcringbuf.NewRingBuffer[Event](n) }
}

// WithClock sets the clock used by [Recorder.Now], which should return the
// time elapsed since an arbitrary, fixed epoch. By default, the epoch is the
// construction time of the recorder, and the clock is monotonic.
func WithClock(clock func() time.Duration) RecorderOption {
	return func(r *Recorder) { r.clock = clock }
}

// NewRecorder returns a new, disabled recorder with an empty log.
func NewRecorder(options ...RecorderOption) *Recorder {
	epoch := time.Now()
	r := &Recorder{
		clock:      func() time.Duration { return time.Since(epoch) },
		broker:     trcpubsub.NewBroker[Event](),
		log:        trcringbuf.NewRingBuffer[Event](0),
		categories: map[string]*Category{},
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Enable recording. Idempotent. If recording was disabled, a new recording
// session begins, with a new session ID.
func (r *Recorder) Enable() {
	if r == nil {
		return
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.enabled.Load() {
		return
	}

	r.session = ulid.Make().String()
	r.enabled.Store(true)
}

// Disable recording. Idempotent. Events already in the log remain.
func (r *Recorder) Disable() {
	if r == nil {
		return
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.enabled.Store(false)
}

// Enabled returns true if recording is enabled.
func (r *Recorder) Enabled() bool {
	if r == nil {
		return false
	}
	return r.enabled.Load()
}

// Now returns the current time relative to the recorder epoch, suitable for
// use as an event timestamp.
func (r *Recorder) Now() time.Duration {
	if r == nil {
		return 0
	}
	return r.clock()
}

// Record appends the event to the log, if recording is enabled, and the event's
// category is enabled. Otherwise, the event is silently dropped. Events without
// a name or a phase are malformed, and are always dropped.
//
// Record never blocks on anything but the recorder mutex, and never panics.
func (r *Recorder) Record(ev Event) {
	r.record(ev, false)
}

// Begin records a begin event with the given fields, and returns a function
// which records the matching end event. If the begin event was recorded, the
// end event is always recorded, even if recording or the category has been
// disabled in the meantime, so the log never holds an unmatched begin event.
// If the begin event wasn't recorded, the returned function does nothing.
//
// The end event takes its name and category from the begin event. If its
// timestamp is zero, the current time is used.
func (r *Recorder) Begin(ev Event) func(end Event) {
	ev.Phase = PhaseBegin
	if !r.record(ev, false) {
		return func(Event) {}
	}

	return func(end Event) {
		end.Name, end.Category, end.Phase = ev.Name, ev.Category, PhaseEnd
		if end.Timestamp == 0 {
			end.Timestamp = r.Now()
		}
		r.record(end, true)
	}
}

// record appends the event to the log, and reports whether it did so. If force
// is true, the enabled flag and the event's category are ignored.
func (r *Recorder) record(ev Event, force bool) bool {
	if r == nil {
		return false
	}

	if !ev.valid() {
		r.malformed.Add(1)
		return false
	}

	if !force && !r.enabled.Load() {
		r.skipped.Add(1)
		return false
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if !force && !r.enabled.Load() { // re-check, might have changed
		r.skipped.Add(1)
		return false
	}

	if c := r.categoryLocked(ev.Category); !force && !c.Enabled() {
		r.skipped.Add(1)
		return false
	}

	if _, overwritten := r.log.Add(ev); overwritten {
		r.overwritten.Add(1)
	}
	r.recorded.Add(1)

	r.broker.Publish(ev)

	return true
}

// Snapshot returns a copy of the current log, in recording order, along with
// the current session ID and stats. The snapshot is independent of the log.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{Events: []Event{}}
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	return Snapshot{
		Events:  r.log.Slice(),
		Session: r.session,
		Stats:   r.statsLocked(),
	}
}

// Reset drops every event in the log, and zeroes the stats. The enabled flag,
// the session ID, and categories are unchanged.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.log.Reset()
	r.recorded.Store(0)
	r.skipped.Store(0)
	r.malformed.Store(0)
	r.overwritten.Store(0)
}

// Stats returns the current stats of the recorder.
func (r *Recorder) Stats() Stats {
	if r == nil {
		return Stats{}
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.statsLocked()
}

func (r *Recorder) statsLocked() Stats {
	return Stats{
		Enabled:     r.enabled.Load(),
		Session:     r.session,
		Len:         r.log.Len(),
		Max:         r.log.Max(),
		Recorded:    r.recorded.Load(),
		Skipped:     r.skipped.Load(),
		Malformed:   r.malformed.Load(),
		Overwritten: r.overwritten.Load(),
		Streaming:   r.broker.Active(),
	}
}

// Subscribe forwards every subsequently recorded event which passes the allow
// func to ch, until the context is canceled. A nil allow func allows every
// event. Events are dropped, rather than blocking the recorder, if ch is full.
// Subscribe blocks until the context is canceled, and returns final stats for
// the subscription. A nil recorder never sends any events.
func (r *Recorder) Subscribe(ctx context.Context, allow func(Event) bool, ch chan<- Event) (StreamStats, error) {
	if r == nil {
		<-ctx.Done()
		return StreamStats{}, ctx.Err()
	}

	stats, err := r.broker.Subscribe(ctx, allow, ch)
	return StreamStats(stats), err
}

// StreamStats returns current stats for the subscription identified by ch.
func (r *Recorder) StreamStats(ch chan<- Event) (StreamStats, error) {
	if r == nil {
		return StreamStats{}, errNilRecorder
	}

	stats, err := r.broker.Stats(ch)
	return StreamStats(stats), err
}

// StreamStats are counters for a single subscription.
type StreamStats trcpubsub.Stats

func (s StreamStats) String() string { return trcpubsub.Stats(s).String() }

// Snapshot is a point-in-time copy of a recorder's log.
type Snapshot struct {
	Events  []Event
	Session string
	Stats   Stats
}

// Stats describe the state of a recorder.
type Stats struct {
	Enabled     bool   `json:"enabled"`
	Session     string `json:"session,omitempty"`
	Len         int    `json:"len"`
	Max         int    `json:"max,omitempty"`
	Recorded    uint64 `json:"recorded"`
	Skipped     uint64 `json:"skipped"`
	Malformed   uint64 `json:"malformed"`
	Overwritten uint64 `json:"overwritten"`
	Streaming   bool   `json:"streaming"` // at least one live subscriber
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"enabled=%v len=%d recorded=%d skipped=%d malformed=%d overwritten=%d streaming=%v",
		s.Enabled, s.Len, s.Recorded, s.Skipped, s.Malformed, s.Overwritten, s.Streaming,
	)
}
