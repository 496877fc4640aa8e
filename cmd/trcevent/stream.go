package main

import (
	"context"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"github.com/peterbourgon/trcevent"
	"github.com/peterbourgon/trcevent/internal/trcutil"
	"github.com/peterbourgon/trcevent/trchttp"
)

type streamConfig struct {
	*rootConfig

	categories    []string
	sendBuf       int
	recvBuf       int
	statsInterval time.Duration
	retryInterval time.Duration

	events chan trcevent.DocumentEvent
}

func (cfg *streamConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'c', LongName: "category" /*       */, Value: ffval.NewUniqueList(&cfg.categories) /*                      */, Usage: "only stream events in this category (repeatable)", NoDefault: true})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "send-buffer" /*    */, Value: ffval.NewValueDefault(&cfg.sendBuf, 100) /*                  */, Usage: "remote send buffer size"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "recv-buffer" /*    */, Value: ffval.NewValueDefault(&cfg.recvBuf, 100) /*                  */, Usage: "local receive buffer size"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "stats-interval" /* */, Value: ffval.NewValueDefault(&cfg.statsInterval, 10*time.Second) /* */, Usage: "stats reporting interval"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "retry-interval" /* */, Value: ffval.NewValueDefault(&cfg.retryInterval, 1*time.Second) /*  */, Usage: "connection retry interval"})
}

func (cfg *streamConfig) Exec(ctx context.Context, args []string) error {
	cfg.events = make(chan trcevent.DocumentEvent, cfg.recvBuf)

	{
		cfg.info.Printf("streaming from %s", cfg.uri)
		cfg.debug.Printf("categories: %v", cfg.categories)
		cfg.debug.Printf("send buffer: %d", cfg.sendBuf)
		cfg.debug.Printf("recv buffer: %d", cfg.recvBuf)
		cfg.debug.Printf("stats interval: %s", cfg.statsInterval)
		cfg.debug.Printf("retry interval: %s", cfg.retryInterval)
	}

	var g run.Group

	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			cfg.runStream(ctx)
			return ctx.Err()
		}, func(error) {
			cancel()
		})
	}

	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return cfg.writeEvents(ctx)
		}, func(error) {
			cancel()
		})
	}

	{
		g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))
	}

	return g.Run()
}

func (cfg *streamConfig) runStream(ctx context.Context) {
	var (
		uri       = cfg.uri + "/trace/stream"
		lastData  trcutil.Atomic[time.Time]
		initCount int
	)

	// This goroutine reports if it's been too long without any data.
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)

		ticker := time.NewTicker(cfg.statsInterval)
		defer ticker.Stop()

		for {
			select {
			case ts := <-ticker.C:
				last, ok := lastData.Get()
				switch delta := ts.Sub(last); {
				case !ok:
					cfg.debug.Printf("no data")
				case delta > 2*cfg.statsInterval:
					cfg.debug.Printf("last data %s ago", trcutil.HumanizeDuration(delta))
				}

			case <-ctx.Done():
				return
			}
		}
	}()
	defer func() {
		<-reporterDone
	}()

	var (
		begin     = time.Now()
		prevSends uint64
	)

	sc := &trchttp.StreamClient{
		URI:           uri,
		Categories:    cfg.categories,
		SendBuffer:    cfg.sendBuf,
		RetryInterval: cfg.retryInterval,
		StatsInterval: cfg.statsInterval,
		Logger:        cfg.trace,
		HTTPClient:    cfg.httpClient,
		OnInit: func(msg trchttp.StreamInit) {
			lastData.Set(time.Now())
			if initCount == 0 {
				cfg.debug.Printf("stream connected, session %s", msg.Session)
			} else {
				cfg.debug.Printf("stream reconnected, session %s", msg.Session)
			}
			initCount++
			begin, prevSends = time.Now(), 0
		},
		OnStats: func(stats trcevent.StreamStats) {
			lastData.Set(time.Now())
			took := time.Since(begin)
			cfg.debug.Printf("%s, %s", stats, trcutil.HumanizeRate(stats.Sends-prevSends, took))
			begin, prevSends = time.Now(), stats.Sends
		},
	}

	cfg.debug.Printf("starting")
	defer cfg.debug.Printf("stopped")

	for ctx.Err() == nil {
		subctx, cancel := context.WithCancel(ctx)             // per-iteration sub-context
		errc := make(chan error, 1)                           // per-iteration stream result
		go func() { errc <- sc.Stream(subctx, cfg.events) }() // returns only on terminal errors

		select {
		case <-subctx.Done():
			cancel()
			<-errc
			return

		case err := <-errc:
			cfg.debug.Printf("stream error, will retry (%v)", err)
			cancel()
			contextSleep(ctx, cfg.retryInterval)
			continue
		}
	}
}

func (cfg *streamConfig) writeEvents(ctx context.Context) error {
	enc := newEncoder(cfg.stdout, cfg.output)

	var count uint64
	for {
		select {
		case ev := <-cfg.events:
			count++
			if err := enc.Encode(ev); err != nil {
				return err
			}
		case <-ctx.Done():
			cfg.debug.Printf("emitted event count %d", count)
			return ctx.Err()
		}
	}
}
