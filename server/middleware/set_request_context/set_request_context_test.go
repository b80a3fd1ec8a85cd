// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package set_request_context

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"codeberg.org/pixivfe/tilemetrics/server/request_context"
)

func TestWithRequestContext(t *testing.T) {
	t.Parallel()

	var seen string

	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = request_context.FromRequest(r).RequestID
	})

	rr := httptest.NewRecorder()
	WithRequestContext(rr, httptest.NewRequest(http.MethodGet, "/", nil), next)

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get("X-Request-Id"))
}
