package main

import (
	"context"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"github.com/peterbourgon/trcevent/internal/trcutil"
)

type getConfig struct {
	*rootConfig

	metadata bool
	file     string
}

func (cfg *getConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'm', LongName: "metadata" /* */, Value: ffval.NewValue(&cfg.metadata) /* */, Usage: "include process and thread name metadata events", NoDefault: true})
	fs.AddFlag(ff.FlagConfig{ShortName: 'f', LongName: "file" /*     */, Value: ffval.NewValue(&cfg.file) /*     */, Usage: "write the trace to this file instead of stdout", Placeholder: "PATH"})
}

func (cfg *getConfig) Exec(ctx context.Context, args []string) error {
	doc, err := cfg.client.Trace(ctx, cfg.metadata)
	if err != nil {
		return fmt.Errorf("fetch trace: %w", err)
	}

	cfg.debug.Printf("event count: %d", len(doc.TraceEvents))
	cfg.debug.Printf("version: %s", doc.OtherData.Version)
	if doc.OtherData.Session != "" {
		cfg.debug.Printf("session: %s", doc.OtherData.Session)
	}
	if n := len(doc.TraceEvents); n > 0 {
		first, last := doc.TraceEvents[0].Timestamp, doc.TraceEvents[n-1].Timestamp
		cfg.debug.Printf("span: %s", trcutil.HumanizeMicroseconds(last-first))
	}

	var data []byte
	switch cfg.output {
	case "prettyjson":
		buf, err := doc.EncodeIndent("", "    ")
		if err != nil {
			return fmt.Errorf("encode trace: %w", err)
		}
		data = append(buf, '\n')
	default:
		buf, err := doc.Encode()
		if err != nil {
			return fmt.Errorf("encode trace: %w", err)
		}
		data = append(buf, '\n')
	}

	if cfg.file == "" {
		_, err := cfg.stdout.Write(data)
		return err
	}

	if err := os.WriteFile(cfg.file, data, 0o644); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}

	cfg.info.Printf("wrote %s to %s", trcutil.HumanizeBytes(len(data)), cfg.file)

	return nil
}
