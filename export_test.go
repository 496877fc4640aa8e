package trcevent_test

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/peterbourgon/trcevent"
	"github.com/segmentio/encoding/json"
)

func TestExportBeginEnd(t *testing.T) {
	t.Parallel()

	rec := trcevent.NewRecorder()
	exp := trcevent.NewExporter()

	rec.Enable()
	rec.Record(trcevent.Event{Name: "f", Phase: trcevent.PhaseBegin, Timestamp: 1000})
	rec.Record(trcevent.Event{Name: "f", Phase: trcevent.PhaseEnd, Timestamp: 2000})
	rec.Disable()

	doc := exp.Export(rec.Snapshot())

	assertEqual(t, len(doc.TraceEvents), 2)
	for i, want := range []struct {
		ph string
		ts int64
	}{
		{"B", 1},
		{"E", 2},
	} {
		have := doc.TraceEvents[i]
		assertEqual(t, have.Name, "f")
		assertEqual(t, have.Category, "")
		assertEqual(t, have.Phase, want.ph)
		assertEqual(t, have.Timestamp, want.ts)
		assertEqual(t, have.PID, os.Getpid())
		assertEqual(t, have.TID, trcevent.DefaultThreadID)
		assertEqual(t, len(have.Args), 0)
	}
}

func TestExportEmpty(t *testing.T) {
	t.Parallel()

	exp := trcevent.NewExporter(trcevent.WithVersion("test-1.0"))
	doc := exp.Export(trcevent.NewRecorder().Snapshot())

	data, err := doc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	assertEqual(t, string(data), `{"traceEvents":[],"otherData":{"version":"test-1.0"}}`)
}

func TestExportDefaultVersion(t *testing.T) {
	t.Parallel()

	doc := trcevent.NewExporter().Export(trcevent.Snapshot{})
	if doc.OtherData.Version == "" {
		t.Fatalf("version is empty")
	}
	if doc.TraceEvents == nil {
		t.Fatalf("traceEvents is nil")
	}
}

func TestExportArgsNeverNull(t *testing.T) {
	t.Parallel()

	exp := trcevent.NewExporter()
	doc := exp.Export(trcevent.Snapshot{Events: []trcevent.Event{
		{Name: "a", Phase: trcevent.PhaseBegin},
		{Name: "b", Phase: trcevent.PhaseBegin, Args: trcevent.Args{}},
	}})

	data, err := doc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Contains(data, []byte(`"args":null`)) {
		t.Fatalf("args encoded as null: %s", data)
	}
	if want, have := 2, bytes.Count(data, []byte(`"args":{}`)); want != have {
		t.Fatalf(`"args":{} count: want %d, have %d (%s)`, want, have, data)
	}
}

func TestExportDeterministic(t *testing.T) {
	t.Parallel()

	s := trcevent.Snapshot{
		Session: "01H0000000000000000000000",
		Events: []trcevent.Event{
			{
				Name:     "handle",
				Category: "tp.method",
				Phase:    trcevent.PhaseBegin,
				Args: trcevent.Args{
					"zeta":  trcevent.Int(1),
					"alpha": trcevent.String("x"),
					"mid":   trcevent.Float(0.5),
					"flag":  trcevent.Bool(true),
					"none":  trcevent.Null(),
				},
				Timestamp: 1234567 * time.Nanosecond,
			},
			{Name: "handle", Category: "tp.method", Phase: trcevent.PhaseEnd, Timestamp: 2 * time.Millisecond},
		},
	}

	exp := trcevent.NewExporter(trcevent.WithVersion("v"))

	first, err := exp.Export(s).Encode()
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		again, err := exp.Export(s).Encode()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("export %d differs:\n%s\n%s", i, first, again)
		}
	}

	want := `"args":{"alpha":"x","flag":true,"mid":0.5,"none":null,"zeta":1}`
	if !strings.Contains(string(first), want) {
		t.Fatalf("want %s in %s", want, first)
	}
	if !strings.Contains(string(first), `"ts":1234`) {
		t.Fatalf("want microsecond timestamp in %s", first)
	}
}

func TestExportWireFormat(t *testing.T) {
	t.Parallel()

	exp := trcevent.NewExporter(trcevent.WithVersion("v"), trcevent.WithThreadID(7))
	doc := exp.Export(trcevent.Snapshot{Events: []trcevent.Event{
		{Name: "f", Category: "c", Phase: trcevent.PhaseBegin, Timestamp: 5 * time.Microsecond},
		{Name: "g", Category: "c", Phase: trcevent.PhaseBegin, TID: 99},
	}})

	data, err := doc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	var generic struct {
		TraceEvents []map[string]any `json:"traceEvents"`
		OtherData   map[string]any   `json:"otherData"`
	}
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatal(err)
	}

	assertEqual(t, len(generic.TraceEvents), 2)
	assertEqual(t, generic.TraceEvents[0], map[string]any{
		"name": "f",
		"cat":  "c",
		"args": map[string]any{},
		"ph":   "B",
		"pid":  float64(os.Getpid()),
		"tid":  float64(7),
		"ts":   float64(5),
	})
	assertEqual(t, generic.TraceEvents[1]["tid"], any(float64(99)))
	assertEqual(t, generic.OtherData, map[string]any{"version": "v"})
}

func TestExportProcessMetadata(t *testing.T) {
	t.Parallel()

	s := trcevent.Snapshot{Events: []trcevent.Event{{Name: "f", Phase: trcevent.PhaseBegin}}}

	{
		doc := trcevent.NewExporter().Export(s)
		assertEqual(t, len(doc.TraceEvents), 1)
	}

	{
		doc := trcevent.NewExporter(trcevent.WithProcessMetadata(true)).Export(s)
		assertEqual(t, len(doc.TraceEvents), 3)
		assertEqual(t, doc.TraceEvents[0].Name, "process_name")
		assertEqual(t, doc.TraceEvents[0].Phase, "M")
		if doc.TraceEvents[0].Args["name"].String() == "" {
			t.Errorf("empty process name")
		}
		assertEqual(t, doc.TraceEvents[1].Name, "thread_name")
		assertEqual(t, doc.TraceEvents[2].Name, "f")
	}

	{
		doc := trcevent.NewExporter().ExportWithMetadata(s)
		assertEqual(t, len(doc.TraceEvents), 3)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	exp := trcevent.NewExporter(trcevent.WithVersion("v"))
	doc := exp.Export(trcevent.Snapshot{Events: []trcevent.Event{
		{Name: "f", Phase: trcevent.PhaseBegin, Args: trcevent.Args{"n": trcevent.Int(5), "s": trcevent.String("x")}},
	}})

	data, err := doc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	var decoded trcevent.Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	assertEqual(t, &decoded, doc, valueComparer)
}
