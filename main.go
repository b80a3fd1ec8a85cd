// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
tilemetrics merges the tilemetrics.html fragment into a host page.

In compose mode it composes one host page and writes the result. In serve
mode it serves a directory of host pages and composes them on request.
*/
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	config "codeberg.org/pixivfe/tilemetrics/configs"
	"codeberg.org/pixivfe/tilemetrics/core/audit"
)

// main is the entry point of the application.
func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

// run loads the configuration and dispatches on Basic.Mode.
func run() error {
	audit.SetDefaultLogger()

	if err := config.Global.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch config.Global.Basic.Mode {
	case config.ModeServe:
		listener, err := chooseListener(ctx)
		if err != nil {
			return err
		}

		return serve(ctx, listener)
	default:
		return compose(ctx, &config.Global)
	}
}
