package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/alnah/paperdigest/internal/config"
	"github.com/alnah/paperdigest/internal/dispatch"
	"github.com/alnah/paperdigest/internal/metrics"
	"github.com/alnah/paperdigest/internal/server"
)

// Long-running commands.
const (
	cmdServe     = "serve"     // front door, job endpoint and local queue
	cmdFrontDoor = "frontdoor" // front door, dispatching per dispatch.mode
	cmdProcessor = "processor" // job endpoint and local queue
)

// runServe starts one of the HTTP services and blocks until ctx is canceled.
func runServe(ctx context.Context, name string, args []string, env *Environment) error {
	flags, err := parseServeFlags(name, args)
	if err != nil {
		return err
	}
	cfg, err := loadSettings(flags.common.config, env.Stderr, func(c *config.Config) {
		applyServeFlags(flags, c)
	})
	if err != nil {
		return err
	}
	log, err := newLogger(env.Stderr, cfg.Log)
	if err != nil {
		return err
	}

	var res closers
	defer func() {
		if err := res.Close(); err != nil {
			log.Warn("shutdown.close", "error", err)
		}
	}()

	m := metrics.New()
	store, err := openStore(ctx, cfg, &res)
	if err != nil {
		return err
	}

	var (
		routes []server.Routes
		queue  *dispatch.Queue
	)

	localQueue := name == cmdServe || name == cmdProcessor ||
		(name == cmdFrontDoor && cfg.Dispatch.Mode == config.DispatchQueue)
	if localQueue {
		proc, err := newProcessor(cfg, store, m, log, &res)
		if err != nil {
			return err
		}
		queue = newQueue(cfg, proc, m, log)
	}

	if name == cmdServe || name == cmdProcessor {
		routes = append(routes, server.NewJobs(queue, log))
	}
	if name == cmdServe || name == cmdFrontDoor {
		var d dispatch.Dispatcher = queue
		if queue == nil {
			d = dispatch.NewHTTPDispatcher(cfg.Dispatch.ProcessorURL,
				dispatch.WithAPIKey(cfg.Server.APIKey),
				dispatch.WithHTTPLogger(log),
			)
		}
		routes = append(routes, server.NewFrontDoor(d, store, m, log))
	}

	log.Info("service.start",
		"command", name,
		"version", Version,
		"dispatch", cfg.Dispatch.Mode,
		"storage", cfg.Storage.Backend,
		"pdf", cfg.Artifacts.PDF,
	)

	handler := server.NewHandler(server.Options{APIKey: cfg.Server.APIKey, Logger: log, Metrics: m}, routes...)
	runErr := server.Run(ctx, cfg.Server.Addr, handler, cfg.Server.ShutdownTimeout, log)

	if queue != nil {
		drainQueue(queue, cfg.Server.ShutdownTimeout, log)
	}
	return runErr
}

// drainQueue waits for queued jobs, canceling them after timeout.
func drainQueue(q *dispatch.Queue, timeout time.Duration, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info("queue.drain", "timeout", timeout)
	if err := q.Shutdown(ctx); err != nil {
		log.Warn("queue.drain.incomplete", "error", err)
	}
}
