// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"strings"
)

// slashPreservingPrefixes keep their trailing slash, since the file server
// relies on it for directory paths.
var slashPreservingPrefixes = []string{
	"/static/",
}

// NormalizeURL redirects paths with a trailing slash to the same path without it.
func NormalizeURL(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if hasTrailingSlash(r) {
		removeTrailingSlash(w, r)

		return
	}

	next.ServeHTTP(w, r)
}

// hasTrailingSlash checks if a request path has a removable trailing slash.
func hasTrailingSlash(r *http.Request) bool {
	path := r.URL.Path
	if path == "/" || !strings.HasSuffix(path, "/") {
		return false
	}

	for _, prefix := range slashPreservingPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}

	return true
}

func removeTrailingSlash(w http.ResponseWriter, r *http.Request) {
	target := *r.URL
	target.Path = strings.TrimRight(target.Path, "/")
	target.RawPath = ""

	if target.Path == "" {
		target.Path = "/"
	}

	http.Redirect(w, r, target.String(), http.StatusPermanentRedirect)
}
