package trchttp

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/bernerdschaefer/eventsource"
	"github.com/peterbourgon/trcevent"
	"github.com/segmentio/encoding/json"
)

// StreamServer streams events from a recorder to clients as server-sent
// events, as they're recorded.
//
// Each stream begins with an "init" message describing the stream, sent once
// the subscription is established. Every recorded event that passes the
// request's category filter is sent as an "event" message, containing the
// exported form of the event. Periodic "stats" messages report the
// subscription's counters. Events are dropped when the client can't keep up.
type StreamServer struct {
	recorder *trcevent.Recorder
	exporter *trcevent.Exporter
	logger   *log.Logger
}

// NewStreamServer returns a stream server for the given recorder. A nil
// exporter or logger is replaced with a default.
func NewStreamServer(rec *trcevent.Recorder, exp *trcevent.Exporter, logger *log.Logger) *StreamServer {
	if exp == nil {
		exp = trcevent.NewExporter()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &StreamServer{
		recorder: rec,
		exporter: exp,
		logger:   logger,
	}
}

// StreamInit is the data of the first message of every stream.
type StreamInit struct {
	Session    string   `json:"session"`
	Categories []string `json:"categories,omitempty"`
	SendBuffer int      `json:"sendbuf"`
}

// ServeHTTP implements http.Handler. Requests must Accept: text/event-stream.
//
// Query parameters: category (repeatable) restricts the stream to the given
// categories, sendbuf sets the subscription buffer size, and stats sets the
// interval between stats messages as a Go duration string.
func (s *StreamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequestExplicitlyAccepts(r, "text/event-stream") {
		err := fmt.Errorf("invalid request Accept header (%s)", r.Header.Get("accept"))
		respondError(w, err, http.StatusNotAcceptable)
		return
	}

	var (
		ctx        = r.Context()
		query      = r.URL.Query()
		categories = query["category"]
		interval   = parseDefault(query.Get("stats"), time.ParseDuration, 10*time.Second)
		sendbuf    = parseRange(query.Get("sendbuf"), strconv.Atoi, 1, 100, 100000)
		eventc     = make(chan trcevent.Event, sendbuf)
		donec      = make(chan struct{})
	)

	if interval < time.Second {
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer close(donec)
		stats, err := s.recorder.Subscribe(ctx, allowCategories(categories), eventc)
		s.logger.Printf("stream %s done: %s (%v)", r.RemoteAddr, stats, err)
	}()
	defer func() {
		cancel()
		<-donec
	}()

	eventsource.Handler(func(lastID string, encoder *eventsource.Encoder, stop <-chan bool) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// The init message promises the subscription is live.
		for {
			if _, err := s.recorder.StreamStats(eventc); err == nil {
				break
			}
			select {
			case <-donec:
				return
			case <-time.After(time.Millisecond):
			}
		}

		if err := s.encode(encoder, "init", "", StreamInit{
			Session:    s.recorder.Stats().Session,
			Categories: categories,
			SendBuffer: cap(eventc),
		}); err != nil {
			s.logger.Printf("stream %s: %v", r.RemoteAddr, err)
			return
		}

		var seq uint64
		for {
			select {
			case ev := <-eventc:
				seq++
				if err := s.encode(encoder, "event", strconv.FormatUint(seq, 10), s.exporter.ExportEvent(ev)); err != nil {
					s.logger.Printf("stream %s: %v", r.RemoteAddr, err)
					return
				}

			case <-ticker.C:
				stats, err := s.recorder.StreamStats(eventc)
				if err != nil {
					s.logger.Printf("stream %s: get stats: %v", r.RemoteAddr, err)
					continue
				}
				if err := s.encode(encoder, "stats", "", stats); err != nil {
					s.logger.Printf("stream %s: %v", r.RemoteAddr, err)
					return
				}

			case <-donec:
				return

			case <-stop:
				return

			case <-ctx.Done():
				return
			}
		}
	}).ServeHTTP(w, r)
}

func (s *StreamServer) encode(encoder *eventsource.Encoder, eventType, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}

	if err := encoder.Encode(eventsource.Event{
		Type: eventType,
		ID:   id,
		Data: data,
	}); err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	return nil
}

func allowCategories(categories []string) func(trcevent.Event) bool {
	if len(categories) <= 0 {
		return nil
	}

	set := make(map[string]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}

	return func(ev trcevent.Event) bool {
		return set[ev.Category]
	}
}
