// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/pixivfe/tilemetrics/server/utils"
)

const hostPage = `<!DOCTYPE html><html><head><title>Dashboard</title></head>` +
	`<body><p id="placeholder">Loading</p></body></html>`

const fragmentPage = `<!DOCTYPE html><html><head>` +
	`<style id="tilemetrics-style">.tile{display:grid}</style></head>` +
	`<body><div id="tilemetrics-root">tiles</div><script src="tiles.js"></script></body></html>`

// writeFiles creates files (slash-separated names) under a temporary directory.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return dir
}

// fallible adapts a route for tests that do not go through middleware.CatchError.
func fallible(t *testing.T, h func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			t.Logf("handler returned: %v", err)
		}
	}
}

// newServer serves dir the same way the router does.
func newServer(t *testing.T, dir string) *httptest.Server {
	t.Helper()

	return servePages(t, &Pages{StaticDir: dir})
}

// servePages serves pages, fetching fragments from the server itself unless
// pages.FragmentOrigin is already set.
func servePages(t *testing.T, pages *Pages) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.Handle("GET "+StaticPrefix, http.StripPrefix(StaticPrefix, fallible(t, pages.StaticFile)))
	mux.HandleFunc("GET /compose/{page...}", fallible(t, pages.ComposePage))

	srv := httptest.NewUnstartedServer(mux)

	if pages.FragmentOrigin.Host == "" {
		origin, err := utils.LoopbackOrigin(srv.Listener.Addr())
		require.NoError(t, err)

		pages.FragmentOrigin = origin
	}

	srv.Start()
	t.Cleanup(srv.Close)

	return srv
}

func get(t *testing.T, rawURL string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(rawURL) //nolint:noctx
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestComposePage(t *testing.T) {
	t.Parallel()

	srv := newServer(t, writeFiles(t, map[string]string{
		"index.html":       hostPage,
		"tilemetrics.html": fragmentPage,
	}))

	resp, body := get(t, srv.URL+"/compose/index.html")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Done", resp.Header.Get(HeaderLoaderState))
	assert.Equal(t, "1", resp.Header.Get(HeaderScriptsCount))
	assert.Contains(t, body, `<style id="tilemetrics-style">`)
	assert.Contains(t, body, `<div id="tilemetrics-root">tiles</div>`)
	assert.Contains(t, body, `<script src="tiles.js"></script>`)
	assert.NotContains(t, body, "placeholder")
	assert.Contains(t, body, "<title>Dashboard</title>")
}

func TestComposePageNested(t *testing.T) {
	t.Parallel()

	srv := newServer(t, writeFiles(t, map[string]string{
		"reports/q1.html":          hostPage,
		"reports/tilemetrics.html": fragmentPage,
	}))

	resp, body := get(t, srv.URL+"/compose/reports/q1.html")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Done", resp.Header.Get(HeaderLoaderState))
	assert.Contains(t, body, "tilemetrics-root")
}

func TestComposePageMissingFragment(t *testing.T) {
	t.Parallel()

	srv := newServer(t, writeFiles(t, map[string]string{
		"index.html": hostPage,
	}))

	resp, body := get(t, srv.URL+"/compose/index.html")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Failed", resp.Header.Get(HeaderLoaderState))
	assert.Contains(t, body, "Error loading tilemetrics.html: Failed to load tilemetrics.html: 404")
	assert.Contains(t, body, `style="padding: 12px; background: #fee2e2; color: #7f1d1d;"`)
	// The body is left as it was, plus the banner.
	assert.Contains(t, body, "placeholder")
}

func TestComposePageMissingHostPage(t *testing.T) {
	t.Parallel()

	srv := newServer(t, writeFiles(t, map[string]string{
		"tilemetrics.html": fragmentPage,
		"reports/q1.html":  hostPage,
	}))

	for _, page := range []string{"nope.html", "reports", "../../etc/passwd"} {
		resp, _ := get(t, srv.URL+"/compose/"+page)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, page)
	}
}

func TestComposePageMissingHostPageHidesPath(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"tilemetrics.html": fragmentPage})
	pages := &Pages{StaticDir: dir}

	req := httptest.NewRequest(http.MethodGet, "/compose/nope.html", nil)
	req.SetPathValue("page", "nope.html")

	rr := httptest.NewRecorder()
	err := pages.ComposePage(rr, req)

	require.ErrorIs(t, err, errHostPageNotFound)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "host page not found: nope.html", err.Error())
	assert.NotContains(t, err.Error(), dir)
}

func TestComposePageWithoutOrigin(t *testing.T) {
	t.Parallel()

	pages := &Pages{StaticDir: writeFiles(t, map[string]string{"index.html": hostPage})}

	req := httptest.NewRequest(http.MethodGet, "/compose/index.html", nil)
	req.SetPathValue("page", "index.html")

	require.ErrorIs(t, pages.ComposePage(httptest.NewRecorder(), req), errNoFragmentOrigin)
}

func TestComposePageIgnoresHostHeader(t *testing.T) {
	t.Parallel()

	var foreignHits atomic.Int32

	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		foreignHits.Add(1)
		_, _ = io.WriteString(w, `<html><body><div id="foreign">secret</div></body></html>`)
	}))
	t.Cleanup(foreign.Close)

	srv := newServer(t, writeFiles(t, map[string]string{
		"index.html":       hostPage,
		"tilemetrics.html": fragmentPage,
	}))

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/compose/index.html", nil)
	require.NoError(t, err)

	req.Host = foreign.Listener.Addr().String()
	req.Header.Set("X-Forwarded-Proto", "http")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, "Done", resp.Header.Get(HeaderLoaderState))
	assert.Contains(t, string(body), "tilemetrics-root")
	assert.NotContains(t, string(body), "secret")
	assert.Zero(t, foreignHits.Load())
}

func TestComposePageFragmentOrigin(t *testing.T) {
	t.Parallel()

	fragmentSrv := newServer(t, writeFiles(t, map[string]string{
		"tilemetrics.html": fragmentPage,
	}))

	origin, err := url.Parse(fragmentSrv.URL)
	require.NoError(t, err)

	pages := &Pages{
		StaticDir:      writeFiles(t, map[string]string{"index.html": hostPage}),
		FragmentOrigin: *origin,
	}

	req := httptest.NewRequest(http.MethodGet, "/compose/index.html", nil)
	req.SetPathValue("page", "index.html")

	rr := httptest.NewRecorder()
	require.NoError(t, pages.ComposePage(rr, req))

	assert.Equal(t, "Done", rr.Header().Get(HeaderLoaderState))
	assert.Contains(t, rr.Body.String(), "tilemetrics-root")
}

func TestComposePageCustomResource(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"index.html":       hostPage,
		"widgets/log.html": fragmentPage,
	})

	srv := servePages(t, &Pages{StaticDir: dir, Resource: "widgets/log.html"})

	resp, body := get(t, srv.URL+"/compose/index.html")

	assert.Equal(t, "Done", resp.Header.Get(HeaderLoaderState))
	assert.Contains(t, body, "tilemetrics-root")
}
