// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"

	"codeberg.org/pixivfe/tilemetrics/server/middleware"
	"codeberg.org/pixivfe/tilemetrics/server/routes"
)

// DefineRoutes registers the serve mode routes for pages.
func (router *Router) DefineRoutes(pages *routes.Pages) {
	router.HandleFunc("GET "+routes.StaticPrefix, middleware.CatchError(StripPrefix(routes.StaticPrefix, pages.StaticFile)))

	router.HandleFunc("GET /compose/{page...}", middleware.CatchError(pages.ComposePage))
	router.HandleFunc("GET /{$}", redirectTo("/compose/index.html"))

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
