// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scripts

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// previewLength bounds how much inline source is logged.
const previewLength = 80

// Log is an Executor that only records each script in the log.
type Log struct {
	Logger *zerolog.Logger
}

// Execute logs the script descriptor at info level.
func (l Log) Execute(_ context.Context, script Script) error {
	logger := l.Logger
	if logger == nil {
		logger = &log.Logger
	}

	event := logger.Info().Int("index", script.Index)

	if script.External() {
		event.Str("src", script.Src).Str("resolved_src", script.ResolvedSrc)
	} else {
		event.Str("inline", preview(script.Text))
	}

	event.Msg("Reactivated script")

	return nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}

	return string(runes[:previewLength]) + "…"
}
