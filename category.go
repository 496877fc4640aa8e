package trcevent

import (
	"sort"
	"strings"
	"sync/atomic"
)

// DisabledByDefaultPrefix marks categories which are disabled when they're
// first created. Those categories must be explicitly enabled before any events
// in them are recorded. This is useful for verbose instrumentation, like
// per-line or per-request events.
const DisabledByDefaultPrefix = "disabled-by-default."

// Categories used by instrumentation hooks.
const (
	CategoryMethod = "tp.method"
	CategoryLine   = "tp.line"
	CategoryThread = "tp.thread"
	CategoryGC     = "tp.gc"
)

// Category is a named group of events which can be enabled or disabled
// independently of the recorder as a whole. Categories are created on demand
// by the recorder, and live as long as the recorder.
//
// Every distinct category name which is recorded or toggled, including names
// sent to the control service, adds an entry to the recorder's registry, and
// entries are never removed. Like an unbounded log (see [WithMaxEvents]), the
// registry grows without limit if callers use unbounded sets of names.
type Category struct {
	name    string
	enabled atomic.Bool
}

func newCategory(name string) *Category {
	c := &Category{name: name}
	c.enabled.Store(!strings.HasPrefix(name, DisabledByDefaultPrefix))
	return c
}

// Name of the category.
func (c *Category) Name() string { return c.name }

// Enabled returns true if events in the category are recorded.
func (c *Category) Enabled() bool { return c.enabled.Load() }

// Enable the category. Idempotent.
func (c *Category) Enable() { c.enabled.Store(true) }

// Disable the category. Idempotent.
func (c *Category) Disable() { c.enabled.Store(false) }

// CategoryInfo is a point-in-time description of a category.
type CategoryInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Category returns the category with the given name, creating it if it doesn't
// yet exist. A nil recorder returns a disabled category which isn't registered
// anywhere.
func (r *Recorder) Category(name string) *Category {
	if r == nil {
		return &Category{name: name}
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.categoryLocked(name)
}

// Categories returns every known category, sorted by name.
func (r *Recorder) Categories() []CategoryInfo {
	if r == nil {
		return []CategoryInfo{}
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	infos := make([]CategoryInfo, 0, len(r.categories))
	for name, c := range r.categories {
		infos = append(infos, CategoryInfo{Name: name, Enabled: c.Enabled()})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos
}

func (r *Recorder) categoryLocked(name string) *Category {
	c, ok := r.categories[name]
	if !ok {
		c = newCategory(name)
		r.categories[name] = c
	}
	return c
}
