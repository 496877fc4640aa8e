package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/encoding/json"
)

func contextSleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func newEncoder(w io.Writer, output string) *json.Encoder {
	enc := json.NewEncoder(w)
	if output == "prettyjson" {
		enc.SetIndent("", "    ")
	}
	return enc
}

func writeJSON(w io.Writer, output string, v any) error {
	if err := newEncoder(w, output).Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
