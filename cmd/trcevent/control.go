package main

import (
	"context"
	"fmt"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"github.com/peterbourgon/trcevent/internal/trcutil"
)

type controlConfig struct {
	*rootConfig
}

func (cfg *controlConfig) Enable(ctx context.Context, args []string) error {
	if err := cfg.client.Enable(ctx); err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	cfg.info.Printf("recording enabled")
	return nil
}

func (cfg *controlConfig) Disable(ctx context.Context, args []string) error {
	if err := cfg.client.Disable(ctx); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	cfg.info.Printf("recording disabled")
	return nil
}

func (cfg *controlConfig) Reset(ctx context.Context, args []string) error {
	if err := cfg.client.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	cfg.info.Printf("recorded events cleared")
	return nil
}

func (cfg *controlConfig) Stats(ctx context.Context, args []string) error {
	stats, err := cfg.client.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	cfg.debug.Printf("%s", stats)
	return writeJSON(cfg.stdout, cfg.output, stats)
}

//
//
//

type categoriesConfig struct {
	*rootConfig

	enable  []string
	disable []string
}

func (cfg *categoriesConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'e', LongName: "enable" /*  */, Value: ffval.NewUniqueList(&cfg.enable) /*  */, Usage: "enable this category (repeatable)", Placeholder: "NAME", NoDefault: true})
	fs.AddFlag(ff.FlagConfig{ShortName: 'd', LongName: "disable" /* */, Value: ffval.NewUniqueList(&cfg.disable) /* */, Usage: "disable this category (repeatable)", Placeholder: "NAME", NoDefault: true})
}

func (cfg *categoriesConfig) Exec(ctx context.Context, args []string) error {
	var errs []error

	for _, name := range cfg.enable {
		cfg.debug.Printf("enabling %s", name)
		if err := cfg.client.EnableCategory(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("enable %s: %w", name, err))
		}
	}

	for _, name := range cfg.disable {
		cfg.debug.Printf("disabling %s", name)
		if err := cfg.client.DisableCategory(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("disable %s: %w", name, err))
		}
	}

	if msg := trcutil.JoinErrors(errs...); msg != "" {
		return fmt.Errorf("update categories: %s", msg)
	}

	categories, err := cfg.client.Categories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	for _, c := range categories {
		cfg.debug.Printf("%s: enabled=%v", c.Name, c.Enabled)
	}

	return writeJSON(cfg.stdout, cfg.output, categories)
}
