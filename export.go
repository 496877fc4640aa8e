package trcevent

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/segmentio/encoding/json"
	"github.com/shirou/gopsutil/process"
)

// DefaultThreadID is exported for events which don't carry a thread ID.
// Goroutines have no public identity, so by default every event is attributed
// to this single thread.
const DefaultThreadID = 1234

// Exporter converts snapshots of a recorder's log to documents in the Trace
// Event Format. Export is pure: the process ID, version, and process name are
// resolved once, and the same snapshot always produces the same document.
type Exporter struct {
	pid             int
	tid             int
	version         string
	processMetadata bool

	processNameOnce sync.Once
	processName     string
}

// ExporterOption configures an exporter.
type ExporterOption func(*Exporter)

// WithVersion sets the version string in the metadata of exported documents.
// By default, it's the Go runtime version.
func WithVersion(version string) ExporterOption {
	return func(e *Exporter) { e.version = version }
}

// WithThreadID sets the thread ID used for events which don't carry one. By
// default, it's [DefaultThreadID].
func WithThreadID(tid int) ExporterOption {
	return func(e *Exporter) { e.tid = tid }
}

// WithProcessMetadata controls whether exported documents begin with metadata
// events naming the process and thread, which viewers use as labels. By
// default, they're not included.
func WithProcessMetadata(include bool) ExporterOption {
	return func(e *Exporter) { e.processMetadata = include }
}

// NewExporter returns an exporter for the current process.
func NewExporter(options ...ExporterOption) *Exporter {
	e := &Exporter{
		pid:     os.Getpid(),
		tid:     DefaultThreadID,
		version: runtime.Version(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Export converts the snapshot to a document.
func (e *Exporter) Export(s Snapshot) *Document {
	return e.export(s, e.processMetadata)
}

// ExportWithMetadata is like Export, but always includes the process metadata
// events.
func (e *Exporter) ExportWithMetadata(s Snapshot) *Document {
	return e.export(s, true)
}

func (e *Exporter) export(s Snapshot, withMetadata bool) *Document {
	n := len(s.Events)
	if withMetadata {
		n += 2
	}

	doc := &Document{
		TraceEvents: make([]DocumentEvent, 0, n),
		OtherData: OtherData{
			Version: e.version,
			Session: s.Session,
		},
	}

	if withMetadata {
		doc.TraceEvents = append(doc.TraceEvents, e.metadataEvents()...)
	}

	for _, ev := range s.Events {
		doc.TraceEvents = append(doc.TraceEvents, e.ExportEvent(ev))
	}

	return doc
}

// ExportEvent converts a single event. Absent args become an empty object,
// timestamps become microseconds, and a zero thread ID becomes the exporter's
// default thread ID.
func (e *Exporter) ExportEvent(ev Event) DocumentEvent {
	args := ev.Args
	if args == nil {
		args = Args{}
	}

	tid := ev.TID
	if tid == 0 {
		tid = e.tid
	}

	return DocumentEvent{
		Name:      ev.Name,
		Category:  ev.Category,
		Args:      args,
		Phase:     ev.Phase.String(),
		PID:       e.pid,
		TID:       tid,
		Timestamp: ev.Timestamp.Microseconds(),
	}
}

func (e *Exporter) metadataEvents() []DocumentEvent {
	e.processNameOnce.Do(func() {
		e.processName = lookupProcessName(e.pid)
	})

	return []DocumentEvent{
		{
			Name:     "process_name",
			Category: "__metadata",
			Args:     Args{"name": String(e.processName)},
			Phase:    PhaseMetadata.String(),
			PID:      e.pid,
			TID:      e.tid,
		},
		{
			Name:     "thread_name",
			Category: "__metadata",
			Args:     Args{"name": String("main")},
			Phase:    PhaseMetadata.String(),
			PID:      e.pid,
			TID:      e.tid,
		},
	}
}

func lookupProcessName(pid int) string {
	if p, err := process.NewProcess(int32(pid)); err == nil {
		if name, err := p.Name(); err == nil && name != "" {
			return name
		}
	}
	return filepath.Base(os.Args[0])
}

//
//
//

// Document is a trace in the Trace Event Format, specifically the JSON object
// form with "traceEvents" and "otherData" keys.
type Document struct {
	TraceEvents []DocumentEvent `json:"traceEvents"`
	OtherData   OtherData       `json:"otherData"`
}

// DocumentEvent is a single event in a document.
type DocumentEvent struct {
	Name      string `json:"name"`
	Category  string `json:"cat"`
	Args      Args   `json:"args"`
	Phase     string `json:"ph"`
	PID       int    `json:"pid"`
	TID       int    `json:"tid"`
	Timestamp int64  `json:"ts"` // microseconds
}

// OtherData is the metadata of a document.
type OtherData struct {
	Version string `json:"version"`
	Session string `json:"session,omitempty"`
}

// Encode the document as JSON. Object keys, including args, are sorted, so
// encoding is deterministic.
func (d *Document) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// EncodeIndent is like Encode, but indents the output.
func (d *Document) EncodeIndent(prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(d, prefix, indent)
}
