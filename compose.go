// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	config "codeberg.org/pixivfe/tilemetrics/configs"
	"codeberg.org/pixivfe/tilemetrics/core/document"
	"codeberg.org/pixivfe/tilemetrics/core/loader"
	"codeberg.org/pixivfe/tilemetrics/core/scripts"
)

// stdoutPath selects standard output for Compose.Output.
const stdoutPath = "-"

// stdout is swapped in tests.
var stdout io.Writer = os.Stdout

// compose runs the loader once against Compose.HostPage.
//
// A loader failure is not an error here: the written page carries the banner.
// Only reading the host page and writing the outputs can fail.
func compose(ctx context.Context, cfg *config.AppConfig) error {
	markup, err := os.ReadFile(cfg.Compose.HostPage)
	if err != nil {
		return fmt.Errorf("failed to read host page: %w", err)
	}

	live, err := document.Parse(bytes.NewReader(markup), &cfg.Compose.Origin)
	if err != nil {
		return fmt.Errorf("failed to parse host page %s: %w", cfg.Compose.HostPage, err)
	}

	manifest := &scripts.Manifest{}

	result := loader.New(loader.Options{
		Executor: scripts.Chain{scripts.Log{}, manifest},
		Resource: cfg.Fragment.Resource,
	}).Load(ctx, live)

	event := log.Info()
	if result.State == loader.Failed {
		event = log.Warn().AnErr("loader_error", result.Err)
	}

	event.
		Str("state", result.State.String()).
		Int("head_appended", result.HeadAppended).
		Int("head_skipped", result.HeadSkipped).
		Int("scripts", len(result.Scripts)).
		Msg("Composed host page")

	if err := writeOutput(cfg.Compose.Output, live.Render); err != nil {
		return fmt.Errorf("failed to write composed page: %w", err)
	}

	if cfg.Compose.ScriptManifest != "" {
		if err := writeOutput(cfg.Compose.ScriptManifest, manifest.WriteYAML); err != nil {
			return fmt.Errorf("failed to write script manifest: %w", err)
		}
	}

	return nil
}

// writeOutput opens path (or stdout for "-") and hands it to write.
func writeOutput(path string, write func(io.Writer) error) (err error) {
	if path == stdoutPath {
		buffered := bufio.NewWriter(stdout)

		if err := write(buffered); err != nil {
			return err
		}

		return buffered.Flush()
	}

	file, err := os.Create(path) // #nosec G304 -- path comes from the operator's configuration
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, file.Close())
	}()

	buffered := bufio.NewWriter(file)

	if err := write(buffered); err != nil {
		return err
	}

	return buffered.Flush()
}
