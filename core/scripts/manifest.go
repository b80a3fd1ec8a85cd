// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scripts

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/goccy/go-yaml"
)

// Manifest is an Executor that records every script it is given, in order.
type Manifest struct {
	mu      sync.Mutex
	scripts []Script
}

type manifestFile struct {
	Scripts []Script `yaml:"scripts"`
}

// Execute records the script.
func (m *Manifest) Execute(_ context.Context, script Script) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scripts = append(m.scripts, script)

	return nil
}

// Scripts returns a copy of the recorded scripts.
func (m *Manifest) Scripts() []Script {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.scripts)
}

// WriteYAML writes the recorded scripts as a YAML document.
func (m *Manifest) WriteYAML(w io.Writer) error {
	file := manifestFile{Scripts: m.Scripts()}

	if file.Scripts == nil {
		file.Scripts = []Script{}
	}

	if err := yaml.NewEncoder(w, yaml.UseLiteralStyleIfMultiline(true)).Encode(file); err != nil {
		return fmt.Errorf("failed to encode script manifest: %w", err)
	}

	return nil
}
