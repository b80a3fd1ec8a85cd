// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"maps"
	"net/http"
	"strings"
	"sync/atomic"

	config "codeberg.org/pixivfe/tilemetrics/configs"
)

// baseHeaders defines the default headers to be set in responses.
//
// Tilemetrics-Version and Tilemetrics-Revision are added dynamically in SetResponseHeaders.
//
// NOTE: no Content-Security-Policy is set, composed pages run the
// fragment's inline scripts.
var baseHeaders = http.Header{
	"Referrer-Policy":        {"same-origin"},
	"X-Frame-Options":        {"SAMEORIGIN"},
	"X-Content-Type-Options": {"nosniff"},
	"Permissions-Policy":     {strings.Join(defaultPermissionsPolicy, ", ")},
}

var defaultPermissionsPolicy = []string{
	"camera=()",
	"geolocation=()",
	"microphone=()",
	"payment=()",
	"usb=()",
}

// SetResponseHeaders adds default headers to HTTP responses.
func SetResponseHeaders(w http.ResponseWriter, r *http.Request, next http.Handler) {
	headers := w.Header()

	maps.Insert(headers, maps.All(baseHeaders))

	if config.Global.Development.InDevelopment {
		invalidateCacheInDevelopment(headers)
	}

	headers.Set("Tilemetrics-Version", config.BuildVersion)
	headers.Set("Tilemetrics-Revision", config.Global.Build.Revision())

	next.ServeHTTP(w, r)
}

var devCacheCleared atomic.Bool

// invalidateCacheInDevelopment clears the browser cache on the first response.
func invalidateCacheInDevelopment(headers http.Header) {
	if devCacheCleared.CompareAndSwap(false, true) {
		headers.Set("Clear-Site-Data", `"cache"`)
	}
}
