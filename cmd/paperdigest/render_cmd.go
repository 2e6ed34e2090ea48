package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alnah/paperdigest/internal/config"
	"github.com/alnah/paperdigest/internal/render"
)

// File permission for rendered output.
const filePermissions = 0o644 // rw-r--r--: owner read+write, others read

// Sentinel errors for the render command.
var (
	ErrReadInput   = errors.New("failed to read markdown input")
	ErrWriteOutput = errors.New("failed to write HTML output")
)

// runRender renders a Markdown file (or stdin) to a full HTML page.
func runRender(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseRenderFlags(args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: render takes at most one input file", ErrUsage)
	}

	cfg, err := loadSettings(flags.common.config, env.Stderr, func(c *config.Config) {
		applyRenderFlags(flags, c)
	})
	if err != nil {
		return err
	}
	log, err := newLogger(env.Stderr, cfg.Log)
	if err != nil {
		return err
	}

	markdown, err := readInput(positional, env.Stdin)
	if err != nil {
		return err
	}

	r := newRenderer(cfg, log)
	out, err := r.Render(ctx, markdown)
	if err != nil {
		return err
	}

	if !flags.fragment {
		template, err := loadTemplate(cfg)
		if err != nil {
			return fmt.Errorf("loading assets: %w", err)
		}
		var css bytes.Buffer
		if err := r.WriteCSS(&css); err != nil {
			return err
		}
		if out, err = render.Page(template, out, css.String()); err != nil {
			return err
		}
	}

	if flags.output == "" {
		_, err := io.WriteString(env.Stdout, out)
		return err
	}
	if err := os.WriteFile(flags.output, []byte(out), filePermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	log.Info("render.written", "path", flags.output, "bytes", len(out))
	return nil
}

// readInput reads the named file, or stdin when no file or "-" is given.
func readInput(positional []string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(positional) == 0 || positional[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(positional[0])
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	return string(data), nil
}
