package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"github.com/peterbourgon/trcevent/trchttp"
)

type rootConfig struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	uri      string
	logLevel string
	output   string

	info, debug, trace *log.Logger

	httpClient *http.Client
	client     *trchttp.Client
}

func (cfg *rootConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'u', LongName: "uri" /*    */, Value: ffval.NewValueDefault(&cfg.uri, trchttp.DefaultListenAddr) /*                         */, Usage: "control service URI, including any path prefix" /* */, Placeholder: "URI"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'l', LongName: "log" /*    */, Value: ffval.NewEnum(&cfg.logLevel, "info", "i", "debug", "d", "trace", "t", "none", "n") /* */, Usage: "log level: i/info, d/debug, t/trace, n/none" /*    */, Placeholder: "LEVEL"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'o', LongName: "output" /* */, Value: ffval.NewEnum(&cfg.output, "json", "prettyjson") /*                                   */, Usage: "output format: json, prettyjson" /*                */, Placeholder: "FORMAT"})
}

func (cfg *rootConfig) validate() error {
	uri := strings.TrimSpace(cfg.uri)
	if uri == "" {
		return fmt.Errorf("URI is required")
	}

	if !strings.HasPrefix(uri, "http") {
		uri = "http://" + uri
	}

	u, err := url.ParseRequestURI(uri)
	if err != nil {
		return fmt.Errorf("%s: invalid: %w", uri, err)
	}

	cfg.uri = strings.TrimSuffix(u.String(), "/")
	cfg.debug.Printf("URI: %s", cfg.uri)

	return nil
}
