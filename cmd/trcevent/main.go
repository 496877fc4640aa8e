// trcevent is a CLI tool for controlling trcevent control services, and for
// fetching and streaming the traces they record.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/peterbourgon/trcevent/trchttp"
)

func main() {
	var (
		ctx    = context.Background()
		stdin  = os.Stdin
		stdout = os.Stdout
		stderr = os.Stderr
		args   = os.Args[1:]
	)
	err := exec(ctx, stdin, stdout, stderr, args)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.As(err, &(run.SignalError{})):
		os.Exit(0)
	case err != nil:
		fmt.Fprintf(stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func exec(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) (err error) {
	rootConfig := &rootConfig{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	rootFlags := ff.NewFlagSet("trcevent")
	rootConfig.register(rootFlags)

	rootCommand := &ff.Command{
		Name:      "trcevent",
		ShortHelp: "control a trcevent server, and fetch or stream its trace",
		Flags:     rootFlags,
	}

	// Config for `trcevent get`.
	getConfig := &getConfig{rootConfig: rootConfig}
	getFlags := ff.NewFlagSet("get").SetParent(rootFlags)
	getConfig.register(getFlags)
	rootCommand.Subcommands = append(rootCommand.Subcommands, &ff.Command{
		Name:      "get",
		ShortHelp: "fetch the recorded trace",
		LongHelp:  "Fetch the recorded trace as a Trace Event Format document, loadable in chrome://tracing or Perfetto.",
		Flags:     getFlags,
		Exec:      getConfig.Exec,
	})

	// Config for `trcevent enable`, `disable`, `reset`, `stats`.
	controlConfig := &controlConfig{rootConfig: rootConfig}
	for _, c := range []struct {
		name  string
		short string
		exec  func(context.Context, []string) error
	}{
		{"enable", "start recording events", controlConfig.Enable},
		{"disable", "stop recording events", controlConfig.Disable},
		{"reset", "clear recorded events", controlConfig.Reset},
		{"stats", "print recorder stats", controlConfig.Stats},
	} {
		rootCommand.Subcommands = append(rootCommand.Subcommands, &ff.Command{
			Name:      c.name,
			ShortHelp: c.short,
			Flags:     ff.NewFlagSet(c.name).SetParent(rootFlags),
			Exec:      c.exec,
		})
	}

	// Config for `trcevent categories`.
	categoriesConfig := &categoriesConfig{rootConfig: rootConfig}
	categoriesFlags := ff.NewFlagSet("categories").SetParent(rootFlags)
	categoriesConfig.register(categoriesFlags)
	rootCommand.Subcommands = append(rootCommand.Subcommands, &ff.Command{
		Name:      "categories",
		ShortHelp: "list, enable, or disable categories",
		LongHelp:  "Enable and disable the given categories, if any, and then list all categories.",
		Flags:     categoriesFlags,
		Exec:      categoriesConfig.Exec,
	})

	// Config for `trcevent stream`.
	streamConfig := &streamConfig{rootConfig: rootConfig}
	streamFlags := ff.NewFlagSet("stream").SetParent(rootFlags)
	streamConfig.register(streamFlags)
	rootCommand.Subcommands = append(rootCommand.Subcommands, &ff.Command{
		Name:      "stream",
		ShortHelp: "continuously stream recorded events to the terminal",
		LongHelp:  "Stream events as they're recorded, as newline-delimited JSON.",
		Flags:     streamFlags,
		Exec:      streamConfig.Exec,
	})

	// Config for `trcevent serve`.
	serveConfig := &serveConfig{rootConfig: rootConfig}
	serveFlags := ff.NewFlagSet("serve").SetParent(rootFlags)
	serveConfig.register(serveFlags)
	rootCommand.Subcommands = append(rootCommand.Subcommands, &ff.Command{
		Name:      "serve",
		ShortHelp: "run a control service over a demo workload",
		LongHelp:  "Run a control service over an in-process recorder, and a synthetic workload which records into it.",
		Flags:     serveFlags,
		Exec:      serveConfig.Exec,
	})

	// Print help when appropriate.
	showHelp := true
	defer func() {
		errHelp := errors.Is(err, ff.ErrHelp) || errors.Is(err, ff.ErrNoExec)
		if showHelp || errHelp {
			fmt.Fprintf(stderr, "\n%s\n", ffhelp.Command(rootCommand))
		}
		if errHelp {
			err = nil
		}
	}()

	// Initial parsing.
	if err := rootCommand.Parse(args, ff.WithEnvVarPrefix("TRCEVENT")); err != nil {
		return err
	}

	// Validation and set-up.
	{
		var infodst, debugdst, tracedst io.Writer
		switch rootConfig.logLevel {
		case "n", "none":
			infodst, debugdst, tracedst = io.Discard, io.Discard, io.Discard
		case "i", "info":
			infodst, debugdst, tracedst = stderr, io.Discard, io.Discard
		case "d", "debug":
			infodst, debugdst, tracedst = stderr, stderr, io.Discard
		case "t", "trace":
			infodst, debugdst, tracedst = stderr, stderr, stderr
		default:
			return fmt.Errorf("invalid log level %q", rootConfig.logLevel)
		}
		rootConfig.info = log.New(infodst, "", 0)
		rootConfig.debug = log.New(debugdst, "[DEBUG] ", log.Lmsgprefix)
		rootConfig.trace = log.New(tracedst, "[TRACE] ", log.Lmsgprefix)
	}

	if err := rootConfig.validate(); err != nil {
		return err
	}

	rootConfig.httpClient = trchttp.NewHTTPClient()
	rootConfig.client = trchttp.NewClient(rootConfig.httpClient, rootConfig.uri)

	// Run errors shouldn't show help by default.
	showHelp = false

	// Run the selected command.
	return rootCommand.Run(ctx)
}
