// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"codeberg.org/pixivfe/tilemetrics/core/document"
	"codeberg.org/pixivfe/tilemetrics/core/loader"
	"codeberg.org/pixivfe/tilemetrics/core/scripts"
	"codeberg.org/pixivfe/tilemetrics/server/request_context"
	"codeberg.org/pixivfe/tilemetrics/server/utils"
)

// Response headers describing how a compose request went.
const (
	HeaderLoaderState  = "Tilemetrics-State"
	HeaderScriptsCount = "Tilemetrics-Scripts"
)

var (
	errHostPageNotFound = errors.New("host page not found")
	errHostPageIsDir    = errors.New("host page is a directory")
	errNoFragmentOrigin = errors.New("no fragment origin configured")
)

// ComposePage is the handler for /compose/{page...}.
//
// It loads the host page from StaticDir, runs the fragment loader against it
// and writes the resulting document. A loader failure is not an HTTP error:
// the page carries the error banner, as it would in a browser.
func (p *Pages) ComposePage(w http.ResponseWriter, r *http.Request) error {
	page := utils.CleanPagePath(utils.GetPathVar(r, "page"))

	markup, err := p.readHostPage(page)
	if err != nil {
		if errors.Is(err, errHostPageNotFound) || errors.Is(err, errHostPageIsDir) {
			w.WriteHeader(http.StatusNotFound)
		}

		return err
	}

	base, err := p.pageURL(page)
	if err != nil {
		return err
	}

	live, err := document.Parse(bytes.NewReader(markup), base)
	if err != nil {
		return fmt.Errorf("failed to parse host page %s: %w", page, err)
	}

	logger := log.With().
		Str("request_id", request_context.FromRequest(r).RequestID).
		Str("page", page).
		Logger()

	result := loader.New(loader.Options{
		Fetcher:  p.Fetcher,
		Executor: scripts.Log{Logger: &logger},
		Resource: p.Resource,
		Logger:   &logger,
	}).Load(r.Context(), live)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(HeaderLoaderState, result.State.String())
	w.Header().Set(HeaderScriptsCount, strconv.Itoa(len(result.Scripts)))

	return live.Render(w)
}

// readHostPage reads page from StaticDir. Returned errors name the page, not
// the filesystem path.
func (p *Pages) readHostPage(page string) ([]byte, error) {
	path := filepath.Join(p.StaticDir, filepath.FromSlash(page))

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errHostPageNotFound, page)
		}

		return nil, fmt.Errorf("host page %s: %w", page, withoutPath(err))
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", errHostPageIsDir, page)
	}

	markup, err := os.ReadFile(path) // #nosec G304 -- page is cleaned and rooted in StaticDir
	if err != nil {
		return nil, fmt.Errorf("failed to read host page %s: %w", page, withoutPath(err))
	}

	return markup, nil
}

// withoutPath drops the path from a *fs.PathError.
func withoutPath(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}

	return err
}

// pageURL returns the URL the host page is served from under StaticPrefix.
func (p *Pages) pageURL(page string) (*url.URL, error) {
	if p.FragmentOrigin.Host == "" {
		return nil, errNoFragmentOrigin
	}

	return p.FragmentOrigin.JoinPath(StaticPrefix, page), nil
}
