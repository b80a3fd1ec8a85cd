// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package scripts describes the scripts a loaded fragment asks to run and the
executors that run them.

Markup inserted into a document does not execute its <script> elements, so
the loader hands each one to an Executor as a Script descriptor instead.
*/
package scripts

import (
	"context"
	"errors"
)

// Script describes one reactivated <script> element.
type Script struct {
	// Index is the position of the script among the body's scripts, in document order.
	Index int `yaml:"index"`

	// Src is the raw src attribute. Empty for inline scripts.
	Src string `yaml:"src,omitempty"`

	// ResolvedSrc is Src resolved against the live document's base URL.
	ResolvedSrc string `yaml:"resolvedSrc,omitempty"`

	// Text is the inline source. Empty for external scripts.
	Text string `yaml:"text,omitempty"`
}

// External reports whether the script loads its source from a URL.
func (s Script) External() bool {
	return s.Src != ""
}

// Executor runs a script.
//
// The loader does not wait on external loads: an Executor that starts one
// should return once it is started.
type Executor interface {
	Execute(ctx context.Context, script Script) error
}

// ExecutorFunc adapts a function to an Executor.
type ExecutorFunc func(ctx context.Context, script Script) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, script Script) error {
	return f(ctx, script)
}

// Chain runs each executor in order, even when an earlier one fails.
type Chain []Executor

// Execute runs every executor and joins their errors.
func (c Chain) Execute(ctx context.Context, script Script) error {
	var errs []error

	for _, executor := range c {
		if err := executor.Execute(ctx, script); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
