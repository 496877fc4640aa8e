package trchttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/peterbourgon/unixtransport/unixproxy"
)

// DefaultListenAddr is where the control service listens unless told
// otherwise.
const DefaultListenAddr = "localhost:7502"

// Listen returns a listener for the given address, which is either host:port,
// tcp://host:port, or unix:///path/to/socket. Failure to bind is returned
// immediately, so callers can treat it as a fatal startup error.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	if addr == "" {
		addr = DefaultListenAddr
	}

	if strings.HasPrefix(addr, "unix://") {
		ln, err := unixproxy.ListenURI(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		return ln, nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", strings.TrimPrefix(addr, "tcp://"))
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	return ln, nil
}

// Serve the handler on the listener until the context is canceled, and then
// shut down gracefully. Long-lived requests, like streams, get a brief grace
// period before they're closed. Serve returns nil after a context-driven
// shutdown.
func Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ln) }()

	select {
	case err := <-errc:
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ListenAndServe is Listen followed by Serve.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	ln, err := Listen(ctx, addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, h)
}
