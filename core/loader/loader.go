// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package loader grafts a remote HTML fragment onto a live document.

A Loader runs once: it fetches the fragment relative to the live document's
URL, appends the fragment's head elements to the live head (skipping ids the
live head already has), replaces the live body with the fragment's body, and
hands every script in the new body to an executor. Any failure before the
merge completes is logged once and shown in the body as an error banner.
*/
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"codeberg.org/pixivfe/tilemetrics/core/document"
	"codeberg.org/pixivfe/tilemetrics/core/requests"
	"codeberg.org/pixivfe/tilemetrics/core/scripts"
)

// DefaultResource is the fragment fetched when Options.Resource is empty.
const DefaultResource = "tilemetrics.html"

// BannerStyle is the inline style of the error banner.
const BannerStyle = "padding: 12px; background: #fee2e2; color: #7f1d1d;"

var (
	// ErrAlreadyRan is returned by every Load after the first.
	ErrAlreadyRan = errors.New("loader has already run")

	// ErrUncaught wraps a panic recovered during a load.
	ErrUncaught = errors.New("uncaught error")

	// ErrMergeElement wraps a failure to copy one head element. It is never surfaced.
	ErrMergeElement = errors.New("failed to merge head element")

	errNilDocument = errors.New("no live document")
)

// State is the lifecycle state of a load.
type State int

// Possible values for State.
const (
	Running State = iota
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Fetcher retrieves the full body of a URL. A non-2xx status must be an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options configures a Loader. Zero fields take defaults.
type Options struct {
	// Fetcher defaults to a requests.Client.
	Fetcher Fetcher

	// Executor defaults to scripts.Log.
	Executor scripts.Executor

	// Resource is resolved against the live document's base URL. Defaults to DefaultResource.
	Resource string

	// Logger defaults to the global logger.
	Logger *zerolog.Logger
}

// Result summarizes a load.
type Result struct {
	State State
	Err   error

	// HeadAppended counts fragment head elements cloned into the live head.
	HeadAppended int
	// HeadSkipped counts fragment head elements whose id the live head already had.
	HeadSkipped int
	// HeadFailed counts fragment head elements that could not be copied.
	HeadFailed int

	// Scripts lists the reactivated scripts in document order.
	Scripts []scripts.Script
}

// Loader merges one fragment into one document.
type Loader struct {
	fetcher  Fetcher
	executor scripts.Executor
	resource string
	logger   *zerolog.Logger

	// importNode copies a fragment head element for the live document.
	importNode func(*html.Node) *html.Node

	ran atomic.Bool
}

// New returns a Loader with defaults applied to opts.
func New(opts Options) *Loader {
	l := &Loader{
		fetcher:    opts.Fetcher,
		executor:   opts.Executor,
		resource:   opts.Resource,
		logger:     opts.Logger,
		importNode: document.CloneNode,
	}

	if l.logger == nil {
		l.logger = &log.Logger
	}

	if l.fetcher == nil {
		l.fetcher = &requests.Client{Logger: l.logger}
	}

	if l.executor == nil {
		l.executor = scripts.Log{Logger: l.logger}
	}

	if l.resource == "" {
		l.resource = DefaultResource
	}

	return l
}

// Load runs the fetch-and-merge sequence against live.
//
// It never returns a Go error: failures are reported through Result and, for
// everything except ErrAlreadyRan, through the banner appended to live's body.
func (l *Loader) Load(ctx context.Context, live *document.Document) (result Result) {
	if live == nil {
		return Result{State: Failed, Err: errNilDocument}
	}

	if !l.ran.CompareAndSwap(false, true) {
		return Result{State: Failed, Err: ErrAlreadyRan}
	}

	result.State = Running

	defer func() {
		if r := recover(); r != nil {
			l.fail(live, &result, fmt.Errorf("%w: %v", ErrUncaught, r))
		}
	}()

	if err := l.run(ctx, live, &result); err != nil {
		l.fail(live, &result, err)

		return result
	}

	result.State = Done

	l.logger.Debug().
		Int("head_appended", result.HeadAppended).
		Int("head_skipped", result.HeadSkipped).
		Int("head_failed", result.HeadFailed).
		Int("scripts", len(result.Scripts)).
		Msg("Loaded fragment")

	return result
}

func (l *Loader) run(ctx context.Context, live *document.Document, result *Result) error {
	target, err := live.ResolveURL(l.resource)
	if err != nil {
		return fmt.Errorf("cannot locate %s: %w", l.resource, err)
	}

	body, err := l.fetcher.Fetch(ctx, target.String())
	if err != nil {
		return err
	}

	fetched, err := document.Parse(bytes.NewReader(body), target)
	if err != nil {
		return err
	}

	l.mergeHead(live, fetched, result)

	markup, err := fetched.BodyInnerHTML()
	if err != nil {
		return err
	}

	if err := live.SetBodyInnerHTML(markup); err != nil {
		return err
	}

	result.Scripts = l.reactivateScripts(ctx, live)

	return nil
}

// fail logs err once and appends the error banner to the live body.
func (l *Loader) fail(live *document.Document, result *Result, err error) {
	result.State = Failed
	result.Err = err

	l.logger.Error().
		Err(err).
		Str("resource", l.resource).
		Msg("TileMetrics loader error")

	banner := document.NewElement(atom.Div, html.Attribute{Key: "style", Val: BannerStyle})
	banner.AppendChild(document.NewText("Error loading " + l.resource + ": " + err.Error()))

	live.AppendBody(banner)
}
