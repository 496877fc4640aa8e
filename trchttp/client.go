package trchttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/peterbourgon/trcevent"
	"github.com/peterbourgon/unixtransport"
	"github.com/segmentio/encoding/json"
)

// HTTPClient models a concrete http.Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// NewHTTPClient returns an HTTP client whose transport also understands unix
// socket URLs, e.g. http+unix:///tmp/app.sock:/debug.
func NewHTTPClient() *http.Client {
	var transport http.Transport
	unixtransport.Register(&transport)
	return &http.Client{Transport: &transport}
}

// Client calls a remote control service, assumed to be an instance of the
// server also defined in this package.
type Client struct {
	client  HTTPClient
	baseurl string
}

// NewClient returns a client calling the server at the provided base URL. If
// client is nil, a client from NewHTTPClient is used. The base URL should
// include any path prefix the server was mounted with. Unix socket URLs must
// separate the socket path from the request path with a colon.
func NewClient(client HTTPClient, baseurl string) *Client {
	if client == nil {
		client = NewHTTPClient()
	}
	if !strings.HasPrefix(baseurl, "http") {
		baseurl = "http://" + baseurl
	}
	return &Client{
		client:  client,
		baseurl: strings.TrimSuffix(baseurl, "/"),
	}
}

// Trace fetches the remote trace document. If metadata is true, the document
// includes the process metadata events.
func (c *Client) Trace(ctx context.Context, metadata bool) (*trcevent.Document, error) {
	path := "/trace"
	if metadata {
		path += "?metadata=true"
	}

	var doc trcevent.Document
	if err := c.do(ctx, "GET", path, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// Enable recording on the remote server.
func (c *Client) Enable(ctx context.Context) error {
	return c.do(ctx, "POST", "/tracepoint/enable", nil)
}

// Disable recording on the remote server.
func (c *Client) Disable(ctx context.Context) error {
	return c.do(ctx, "POST", "/tracepoint/disable", nil)
}

// Reset clears the remote recorder's log.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, "POST", "/trace/reset", nil)
}

// Stats returns the remote recorder's stats.
func (c *Client) Stats(ctx context.Context) (trcevent.Stats, error) {
	var stats trcevent.Stats
	err := c.do(ctx, "GET", "/trace/stats", &stats)
	return stats, err
}

// Categories returns the remote recorder's categories.
func (c *Client) Categories(ctx context.Context) ([]trcevent.CategoryInfo, error) {
	var categories []trcevent.CategoryInfo
	err := c.do(ctx, "GET", "/categories", &categories)
	return categories, err
}

// EnableCategory enables the named category on the remote recorder.
func (c *Client) EnableCategory(ctx context.Context, name string) error {
	return c.do(ctx, "POST", "/categories/"+url.PathEscape(name)+"/enable", nil)
}

// DisableCategory disables the named category on the remote recorder.
func (c *Client) DisableCategory(ctx context.Context, name string) error {
	return c.do(ctx, "POST", "/categories/"+url.PathEscape(name)+"/disable", nil)
}

func (c *Client) do(ctx context.Context, method, path string, response any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseurl+path, nil)
	if err != nil {
		return fmt.Errorf("create HTTP request: %w", err)
	}

	req.Header.Set("accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute HTTP request: %w", redactURL(err))
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("remote status code %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("remote status code %d", resp.StatusCode)
	}

	if response == nil {
		var a Ack
		if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if a.OK != ack.OK {
			return fmt.Errorf("unexpected response %q", a.OK)
		}
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
