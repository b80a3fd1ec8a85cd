// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package routes holds the HTTP handlers of serve mode.

Handlers return an error and are expected to be wrapped by middleware.CatchError.
*/
package routes

import (
	"net/url"

	"codeberg.org/pixivfe/tilemetrics/core/loader"
)

// StaticPrefix is the path under which Pages.StaticDir is served.
const StaticPrefix = "/static/"

// Pages serves host pages and composes them with the fragment.
type Pages struct {
	// StaticDir holds host pages and the fragment.
	StaticDir string

	// FragmentOrigin is the origin the live document is treated as served
	// from, and so the origin the fragment is fetched from. It must be set;
	// request headers are never used to pick it.
	FragmentOrigin url.URL

	// Resource is the fragment name passed to the loader.
	Resource string

	// Fetcher overrides the loader's default HTTP client.
	Fetcher loader.Fetcher
}
