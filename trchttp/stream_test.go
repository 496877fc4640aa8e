package trchttp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/peterbourgon/trcevent"
	"github.com/peterbourgon/trcevent/trchttp"
)

func TestStream(t *testing.T) {
	t.Parallel()

	var (
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		rec, server = newTestServer(t)
		initc       = make(chan trchttp.StreamInit, 1)
		eventc      = make(chan trcevent.DocumentEvent, 10)
		errc        = make(chan error, 1)
	)
	defer cancel()

	client := &trchttp.StreamClient{
		URI:        server.URL + "/trace/stream",
		Categories: []string{"a"},
		SendBuffer: 10,
		OnInit:     func(msg trchttp.StreamInit) { initc <- msg },
	}

	go func() { errc <- client.Stream(ctx, eventc) }()

	rec.Enable()

	select {
	case msg := <-initc:
		assertEqual(t, msg.Categories, []string{"a"})
		assertEqual(t, msg.SendBuffer, 10)
	case err := <-errc:
		t.Fatalf("stream error before init: %v", err)
	case <-ctx.Done():
		t.Fatal("timeout waiting for init")
	}

	rec.Record(trcevent.Event{Name: "one", Category: "a", Phase: trcevent.PhaseBegin, Timestamp: 3 * time.Microsecond})
	rec.Record(trcevent.Event{Name: "skip", Category: "b", Phase: trcevent.PhaseBegin})
	rec.Record(trcevent.Event{Name: "one", Category: "a", Phase: trcevent.PhaseEnd, Args: trcevent.Args{"k": trcevent.String("v")}})

	var received []trcevent.DocumentEvent
	for len(received) < 2 {
		select {
		case ev := <-eventc:
			received = append(received, ev)
		case err := <-errc:
			t.Fatalf("stream error: %v", err)
		case <-ctx.Done():
			t.Fatalf("timeout, received %d", len(received))
		}
	}

	assertEqual(t, received[0].Name, "one")
	assertEqual(t, received[0].Phase, "B")
	assertEqual(t, received[0].Timestamp, int64(3))
	assertEqual(t, received[1].Phase, "E")
	assertEqual(t, received[1].Args["k"].String(), "v")

	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("stream error after cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for stream to stop")
	}
}

func TestStreamRequiresEventStream(t *testing.T) {
	t.Parallel()

	_, server := newTestServer(t)

	resp, _ := do(t, "GET", server.URL+"/trace/stream")
	assertEqual(t, resp.StatusCode, http.StatusNotAcceptable)
}

func TestStreamClientStatusCodes(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		code    int
		wantErr bool
	}{
		{http.StatusNoContent, false},
		{http.StatusNotFound, true},
		{http.StatusNotAcceptable, true},
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client := &trchttp.StreamClient{URI: server.URL}
		err := client.Stream(ctx, make(chan trcevent.DocumentEvent))
		if want, have := tc.wantErr, err != nil; want != have {
			t.Errorf("%d: want error %v, have %v", tc.code, want, err)
		}
		if ctx.Err() != nil {
			t.Errorf("%d: Stream returned only after timeout", tc.code)
		}
	}
}
