package trchttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bernerdschaefer/eventsource"
	"github.com/peterbourgon/trcevent"
	"github.com/segmentio/encoding/json"
)

// StreamClient streams events from a remote stream server.
type StreamClient struct {
	// URI of the remote stream server, e.g. http://localhost:7502/trace/stream.
	// Required.
	URI string

	// Categories to stream. Empty means all categories.
	Categories []string

	// SendBuffer used by the remote stream server. Min 1, max 100k.
	SendBuffer int

	// RetryInterval between reconnect attempts. Default 3s, min 1s, max 60s.
	RetryInterval time.Duration

	// StatsInterval for stream stats updates. Default 10s, min 1s, max 60s.
	StatsInterval time.Duration

	// OnInit is called for every init message. Optional.
	OnInit func(StreamInit)

	// OnStats is called for every stats message. Optional.
	OnStats func(trcevent.StreamStats)

	// Logger for connection lifecycle messages. Optional.
	Logger *log.Logger

	// HTTPClient used to connect to the server. Optional, by default a client
	// from NewHTTPClient is used.
	HTTPClient HTTPClient
}

func (c *StreamClient) initialize() {
	if c.URI != "" && !strings.HasPrefix(c.URI, "http") {
		c.URI = "http://" + c.URI
	}

	if c.SendBuffer != 0 {
		if min, max := 1, 100000; c.SendBuffer < min {
			c.SendBuffer = min
		} else if c.SendBuffer > max {
			c.SendBuffer = max
		}
	}

	if def, min, max := 3*time.Second, 1*time.Second, 60*time.Second; c.RetryInterval == 0 {
		c.RetryInterval = def
	} else if c.RetryInterval < min {
		c.RetryInterval = min
	} else if c.RetryInterval > max {
		c.RetryInterval = max
	}

	if def, min, max := 10*time.Second, 1*time.Second, 60*time.Second; c.StatsInterval == 0 {
		c.StatsInterval = def
	} else if c.StatsInterval < min {
		c.StatsInterval = min
	} else if c.StatsInterval > max {
		c.StatsInterval = max
	}

	if c.OnInit == nil {
		c.OnInit = func(StreamInit) {}
	}

	if c.OnStats == nil {
		c.OnStats = func(trcevent.StreamStats) {}
	}

	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = NewHTTPClient()
	}
}

// Stream events from the remote server to the provided channel. The stream
// stops when the context is canceled, or when the server closes the stream with
// 204 No Content, in which case Stream returns nil. Lost connections and 5xx
// responses are retried. Any other error is returned.
func (c *StreamClient) Stream(ctx context.Context, ch chan<- trcevent.DocumentEvent) error {
	c.initialize()

	uri, err := url.Parse(c.URI)
	if err != nil {
		return fmt.Errorf("parse URI: %w", err)
	}

	query := uri.Query()
	for _, category := range c.Categories {
		query.Add("category", category)
	}
	if c.SendBuffer > 0 {
		query.Set("sendbuf", strconv.Itoa(c.SendBuffer))
	}
	query.Set("stats", c.StatsInterval.String())
	uri.RawQuery = query.Encode()

	var lastEventID string
	for {
		retry, err := c.streamOnce(ctx, uri.String(), &lastEventID, ch)
		switch {
		case ctx.Err() != nil:
			c.Logger.Printf("stream closed")
			return nil
		case err == nil:
			c.Logger.Printf("stream closed by server")
			return nil
		case !retry:
			return err
		}

		c.Logger.Printf("stream error, retrying in %s (%v)", c.RetryInterval, err)

		select {
		case <-ctx.Done():
			c.Logger.Printf("stream closed")
			return nil
		case <-time.After(c.RetryInterval):
		}
	}
}

// streamOnce connects to the server and forwards events until the connection
// fails or the context is canceled. The returned bool reports whether the
// error is recoverable.
func (c *StreamClient) streamOnce(ctx context.Context, uri string, lastEventID *string, ch chan<- trcevent.DocumentEvent) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return false, fmt.Errorf("create HTTP request: %w", err)
	}

	req.Header.Set("accept", "text/event-stream")
	req.Header.Set("cache-control", "no-cache")
	if *lastEventID != "" {
		req.Header.Set("last-event-id", *lastEventID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("remote status code %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNoContent:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("remote status code %d", resp.StatusCode)
	}

	if mediatype, _, _ := mime.ParseMediaType(resp.Header.Get("content-type")); mediatype != "text/event-stream" {
		return false, fmt.Errorf("invalid content type %q", resp.Header.Get("content-type"))
	}

	dec := eventsource.NewDecoder(resp.Body)
	for {
		var ev eventsource.Event
		err := dec.Decode(&ev)
		if errors.Is(err, eventsource.ErrInvalidEncoding) {
			continue
		}
		if err != nil {
			return true, fmt.Errorf("read server-sent event: %w", err)
		}

		if len(ev.Data) == 0 {
			continue
		}

		if ev.ID != "" || ev.ResetID {
			*lastEventID = ev.ID
		}

		switch ev.Type {
		case "init":
			var msg StreamInit
			if err := json.Unmarshal(ev.Data, &msg); err != nil {
				return false, fmt.Errorf("decode init: %w", err)
			}
			c.Logger.Printf("stream init: session %s, sendbuf %d", msg.Session, msg.SendBuffer)
			c.OnInit(msg)

		case "event":
			var de trcevent.DocumentEvent
			if err := json.Unmarshal(ev.Data, &de); err != nil {
				return false, fmt.Errorf("decode event: %w", err)
			}
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case ch <- de:
			}

		case "stats":
			var stats trcevent.StreamStats
			if err := json.Unmarshal(ev.Data, &stats); err != nil {
				return false, fmt.Errorf("decode stats: %w", err)
			}
			c.OnStats(stats)

		default:
			c.Logger.Printf("unknown stream message type %q", ev.Type)
		}
	}
}
