// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scripts

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainRunsEveryExecutor(t *testing.T) {
	t.Parallel()

	var calls []string

	errFirst := errors.New("first failed")

	chain := Chain{
		ExecutorFunc(func(context.Context, Script) error {
			calls = append(calls, "first")

			return errFirst
		}),
		ExecutorFunc(func(context.Context, Script) error {
			calls = append(calls, "second")

			return nil
		}),
	}

	err := chain.Execute(context.Background(), Script{Text: "x()"})

	assert.ErrorIs(t, err, errFirst)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.NoError(t, Chain{}.Execute(context.Background(), Script{}))
}

func TestManifestRecordsInOrder(t *testing.T) {
	t.Parallel()

	var m Manifest

	for i, s := range []Script{
		{Index: 0, Src: "a.js", ResolvedSrc: "https://tiles.test/a.js"},
		{Index: 1, Text: "init()\nrender()"},
	} {
		require.NoError(t, m.Execute(context.Background(), s), i)
	}

	got := m.Scripts()
	require.Len(t, got, 2)
	assert.True(t, got[0].External())
	assert.False(t, got[1].External())

	var buf bytes.Buffer

	require.NoError(t, m.WriteYAML(&buf))

	var decoded manifestFile

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, got, decoded.Scripts)
	assert.Contains(t, buf.String(), "text: |")
}

func TestEmptyManifest(t *testing.T) {
	t.Parallel()

	var (
		m   Manifest
		buf bytes.Buffer
	)

	require.NoError(t, m.WriteYAML(&buf))
	assert.Equal(t, "scripts: []", strings.TrimSpace(buf.String()))
}

func TestLogExecutor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := zerolog.New(&buf)

	exec := Log{Logger: &logger}

	require.NoError(t, exec.Execute(context.Background(), Script{Index: 3, Src: "b.js", ResolvedSrc: "https://tiles.test/b.js"}))
	require.NoError(t, exec.Execute(context.Background(), Script{Index: 4, Text: strings.Repeat("x", 200)}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"resolved_src":"https://tiles.test/b.js"`)
	assert.Contains(t, lines[1], "…")
}
