package trchttp_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peterbourgon/trcevent"
	"github.com/peterbourgon/trcevent/trchttp"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	rec := trcevent.NewRecorder()

	var inner *trcevent.Recorder
	handler := trchttp.Middleware(rec, "http")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = trcevent.FromContext(r.Context())
		defer trcevent.Region(r.Context(), "http", "work", nil)()
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("hello"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/foo", nil))
	assertEqual(t, len(rec.Snapshot().Events), 0)
	if inner != rec {
		t.Fatalf("recorder not in request context")
	}

	rec.Enable()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("PUT", "/bar", nil))

	events := rec.Snapshot().Events
	assertEqual(t, len(events), 4)

	var (
		begin = events[0]
		end   = events[3]
	)

	assertEqual(t, begin.Name, "PUT /bar")
	assertEqual(t, begin.Category, "http")
	assertEqual(t, begin.Phase, trcevent.PhaseBegin)
	assertEqual(t, events[1].Name, "work")
	assertEqual(t, events[2].Name, "work")
	assertEqual(t, end.Name, "PUT /bar")
	assertEqual(t, end.Phase, trcevent.PhaseEnd)
	assertEqual(t, end.Args["code"].String(), "418")
	assertEqual(t, end.Args["bytes"].String(), "5")
}

func TestMiddlewareDisabledCategory(t *testing.T) {
	t.Parallel()

	rec := trcevent.NewRecorder()
	rec.Enable()

	handler := trchttp.Middleware(rec, trcevent.DisabledByDefaultPrefix+"http")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assertEqual(t, len(rec.Snapshot().Events), 0)

	rec.Category(trcevent.DisabledByDefaultPrefix + "http").Enable()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	events := rec.Snapshot().Events
	assertEqual(t, len(events), 2)
	assertEqual(t, events[1].Args["code"].String(), "200")
}

func TestServerSelfTracing(t *testing.T) {
	t.Parallel()

	var (
		rec    = trcevent.NewRecorder()
		server = trchttp.NewServer(rec, nil)
	)

	rec.Enable()
	rec.Category(trchttp.SelfCategory).Enable()

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/trace/stats", nil))
	assertEqual(t, w.Code, http.StatusOK)

	var names, phases []string
	for _, ev := range rec.Snapshot().Events {
		names = append(names, ev.Name)
		phases = append(phases, ev.Phase.String())
	}
	assertEqual(t, names, []string{"GET /trace/stats", "GET /trace/stats"})
	assertEqual(t, phases, []string{"B", "E"})
}

func TestServerSelfTracingDisable(t *testing.T) {
	t.Parallel()

	var (
		rec    = trcevent.NewRecorder()
		server = trchttp.NewServer(rec, nil)
	)

	rec.Enable()
	rec.Category(trchttp.SelfCategory).Enable()

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("POST", "/tracepoint/disable", nil))
	assertEqual(t, w.Code, http.StatusOK)
	assertEqual(t, rec.Enabled(), false)

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("POST", "/tracepoint/enable", nil))
	assertEqual(t, w.Code, http.StatusOK)

	var names, phases []string
	for _, ev := range rec.Snapshot().Events {
		names = append(names, ev.Name)
		phases = append(phases, ev.Phase.String())
	}
	assertEqual(t, names, []string{"POST /tracepoint/disable", "POST /tracepoint/disable"})
	assertEqual(t, phases, []string{"B", "E"})
}
