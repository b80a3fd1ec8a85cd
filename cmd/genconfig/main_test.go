// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "codeberg.org/pixivfe/tilemetrics/configs"
)

func defaults() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.SetDefaults()

	return cfg
}

func TestRenderEnvFile(t *testing.T) {
	t.Parallel()

	env := renderEnvFile(defaults())

	assert.Contains(t, env, "## Basic\n")
	assert.Contains(t, env, `TILEMETRICS_MODE="compose"`)
	assert.Contains(t, env, `TILEMETRICS_PORT="8383"`)
	assert.Contains(t, env, "# TILEMETRICS_FRAGMENT=tilemetrics.html\n")
	assert.Contains(t, env, "# TILEMETRICS_HOST_PAGE=\n")
	assert.Contains(t, env, "# TILEMETRICS_LOG_OUTPUTS=/dev/stderr\n")
	assert.NotContains(t, env, "## Build")
}

func TestRenderYAMLFile(t *testing.T) {
	t.Parallel()

	out, err := renderYAMLFile(defaults())
	require.NoError(t, err)

	assert.Contains(t, out, "\nbasic:\n")
	assert.Contains(t, out, "  mode: compose\n")
	assert.Contains(t, out, "  # resource: tilemetrics.html\n")
	assert.Contains(t, out, "\nlimiter:\n")
	assert.NotContains(t, out, "VcsRevision")
}
