package main

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"github.com/peterbourgon/trcevent"
	"github.com/peterbourgon/trcevent/trchttp"
)

type serveConfig struct {
	*rootConfig

	listenAddr string
	pathPrefix string
	maxEvents  int
	enable     bool
	interval   time.Duration
	depth      int
}

func (cfg *serveConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "listen-addr" /* */, Value: ffval.NewValueDefault(&cfg.listenAddr, trchttp.DefaultListenAddr) /* */, Usage: "listen address, host:port or unix:///path", Placeholder: "ADDR"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "path-prefix" /* */, Value: ffval.NewValue(&cfg.pathPrefix) /*                                   */, Usage: "mount the control service under this path", Placeholder: "PATH"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "max-events" /*  */, Value: ffval.NewValueDefault(&cfg.maxEvents, 100000) /*                     */, Usage: "keep at most this many events, 0 for unlimited"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'e', LongName: "enable" /*      */, Value: ffval.NewValue(&cfg.enable) /*                                       */, Usage: "start with recording enabled", NoDefault: true})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "interval" /*    */, Value: ffval.NewValueDefault(&cfg.interval, time.Second) /*                 */, Usage: "demo workload interval"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "depth" /*       */, Value: ffval.NewValueDefault(&cfg.depth, 8) /*                              */, Usage: "demo workload recursion depth"})
}

func (cfg *serveConfig) Exec(ctx context.Context, args []string) error {
	if cfg.interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	var (
		recorder = trcevent.NewRecorder(trcevent.WithMaxEvents(cfg.maxEvents))
		exporter = trcevent.NewExporter(trcevent.WithProcessMetadata(true))
		server   = trchttp.NewServer(recorder, exporter, trchttp.WithLogger(cfg.debug), trchttp.WithPathPrefix(cfg.pathPrefix))
	)

	if cfg.enable {
		recorder.Enable()
	}

	ln, err := trchttp.Listen(ctx, cfg.listenAddr)
	if err != nil {
		return err
	}

	cfg.info.Printf("listening on %s", ln.Addr())
	cfg.debug.Printf("recording enabled: %v", recorder.Enabled())
	cfg.debug.Printf("max events: %d", cfg.maxEvents)

	var g run.Group

	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return trchttp.Serve(ctx, ln, server)
		}, func(error) {
			cancel()
		})
	}

	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return cfg.runWorkload(trcevent.NewContext(ctx, recorder))
		}, func(error) {
			cancel()
		})
	}

	{
		g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))
	}

	return g.Run()
}

func (cfg *serveConfig) runWorkload(ctx context.Context) error {
	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	var iteration int64
	for {
		select {
		case <-ticker.C:
			iteration++
			rec := trcevent.FromContext(ctx)
			rec.Instant(trcevent.CategoryLine, "tick", trcevent.Args{"iteration": trcevent.Int(iteration)})
			result := fib(ctx, cfg.depth)
			cfg.trace.Printf("iteration %d: fib(%d) = %d, %s", iteration, cfg.depth, result, rec.Stats())

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func fib(ctx context.Context, n int) int {
	defer trcevent.Region(ctx, trcevent.CategoryMethod, "fib", trcevent.Args{"n": trcevent.Int(int64(n))})()
	if n < 2 {
		return n
	}
	return fib(ctx, n-1) + fib(ctx, n-2)
}
