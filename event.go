package trcevent

import (
	"fmt"
	"time"
)

// Event represents a single recorded occurrence, typically the call of or
// return from a function.
//
// Events are retained for an indeterminate length of time, and read
// concurrently by exporters and stream subscribers. Once recorded, an event is
// expected to be immutable. In particular, callers must not modify the Args map
// after passing it to the recorder.
type Event struct {
	Name      string        // required
	Category  string        // optional
	Args      Args          // optional, nil means no args
	Phase     Phase         // required
	Timestamp time.Duration // since the recorder epoch
	TID       int           // optional, zero means unknown
}

func (ev Event) String() string {
	return fmt.Sprintf("%s %s/%s @%s", ev.Phase, ev.Category, ev.Name, ev.Timestamp)
}

func (ev Event) valid() bool {
	return ev.Name != "" && ev.Phase != 0
}

// Args are the arguments attached to an event.
type Args map[string]Value

// Phase is the single-character code distinguishing the kinds of events in the
// Trace Event Format, e.g. begin and end.
type Phase byte

// Phases recognized by trace viewers.
const (
	PhaseBegin           Phase = 'B'
	PhaseEnd             Phase = 'E'
	PhaseComplete        Phase = 'X'
	PhaseInstant         Phase = 'I'
	PhaseInstantScoped   Phase = 'i'
	PhaseCounter         Phase = 'C'
	PhaseAsyncBegin      Phase = 'b'
	PhaseAsyncEnd        Phase = 'e'
	PhaseAsyncInstant    Phase = 'n'
	PhaseFlowStart       Phase = 's'
	PhaseFlowStep        Phase = 't'
	PhaseFlowEnd         Phase = 'f'
	PhaseObjectCreated   Phase = 'N'
	PhaseObjectSnapshot  Phase = 'O'
	PhaseObjectDestroyed Phase = 'D'
	PhaseMetadata        Phase = 'M'
	PhaseMark            Phase = 'R'
)

// String returns the phase code as a one-character string.
func (p Phase) String() string {
	if p == 0 {
		return ""
	}
	return string(rune(p))
}

// ParsePhase parses a one-character phase code.
func ParsePhase(s string) (Phase, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("phase must be a single character, got %q", s)
	}
	return Phase(s[0]), nil
}
