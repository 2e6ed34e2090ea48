package main

import (
	"context"
	"fmt"

	"github.com/alnah/paperdigest/internal/config"
	"github.com/alnah/paperdigest/internal/metrics"
	"github.com/alnah/paperdigest/internal/processor"
)

// runSummarize processes one paper synchronously and prints the request id
// followed by the stored artifact keys.
func runSummarize(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseSummarizeFlags(args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: summarize needs exactly one arXiv URL", ErrUsage)
	}

	cfg, err := loadSettings(flags.common.config, env.Stderr, func(c *config.Config) {
		applySummarizeFlags(flags, c)
	})
	if err != nil {
		return err
	}
	log, err := newLogger(env.Stderr, cfg.Log)
	if err != nil {
		return err
	}

	var res closers
	defer res.Close()

	store, err := openStore(ctx, cfg, &res)
	if err != nil {
		return err
	}
	proc, err := newProcessor(cfg, store, metrics.New(), log, &res)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Dispatch.JobTimeout)
	defer cancel()

	result, err := proc.Process(ctx, processor.NewJob(positional[0]))
	if err != nil {
		return err
	}

	if flags.markdown {
		fmt.Fprintln(env.Stdout, result.Markdown)
		return nil
	}
	fmt.Fprintln(env.Stdout, result.RequestID)
	for _, key := range result.Keys() {
		fmt.Fprintln(env.Stdout, key)
	}
	return nil
}
