// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(srv *httptest.Server) *Client {
	logger := zerolog.Nop()

	return &Client{HTTPClient: srv.Client(), Logger: &logger}
}

func TestFetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantBody   string
		wantStatus int // 0 when no LoadError is expected
	}{
		{name: "OK", status: http.StatusOK, body: "<p>tiles</p>", wantBody: "<p>tiles</p>"},
		{name: "No content is still success", status: http.StatusNoContent, wantBody: ""},
		{name: "Not found", status: http.StatusNotFound, body: "missing", wantStatus: http.StatusNotFound},
		{name: "Server error", status: http.StatusInternalServerError, wantStatus: http.StatusInternalServerError},
		{name: "Redirect status without location", status: http.StatusMultipleChoices, wantStatus: http.StatusMultipleChoices},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Empty(t, r.URL.RawQuery)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			body, err := newClient(srv).Fetch(context.Background(), srv.URL+"/tilemetrics.html")

			if tt.wantStatus != 0 {
				var loadErr *LoadError

				require.ErrorAs(t, err, &loadErr)
				assert.Equal(t, tt.wantStatus, loadErr.StatusCode)
				assert.Equal(t, "tilemetrics.html", loadErr.Resource)
				assert.ErrorIs(t, err, ErrLoad)
				assert.Contains(t, err.Error(), "Failed to load tilemetrics.html: ")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestFetchNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	client := newClient(srv)
	addr := srv.URL
	srv.Close()

	_, err := client.Fetch(context.Background(), addr+"/tilemetrics.html")
	require.Error(t, err)

	var loadErr *LoadError

	assert.False(t, errors.As(err, &loadErr))
}

func TestFetchEmptyURL(t *testing.T) {
	t.Parallel()

	_, err := (&Client{}).Fetch(context.Background(), "")
	assert.ErrorIs(t, err, errEmptyURL)
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(srv).Fetch(ctx, srv.URL+"/tilemetrics.html")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResourceName(t *testing.T) {
	t.Parallel()

	u, _ := url.Parse("https://example.test/a/b/tilemetrics.html")
	assert.Equal(t, "tilemetrics.html", resourceName(u))

	u, _ = url.Parse("https://example.test/")
	assert.Equal(t, "https://example.test/", resourceName(u))
}
