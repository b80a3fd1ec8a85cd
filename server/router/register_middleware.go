// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	config "codeberg.org/pixivfe/tilemetrics/configs"
	"codeberg.org/pixivfe/tilemetrics/server/middleware"
	"codeberg.org/pixivfe/tilemetrics/server/middleware/limiter"
	"codeberg.org/pixivfe/tilemetrics/server/middleware/set_request_context"
)

// RegisterMiddleware installs the middleware chain configured in config.Global.
func (router *Router) RegisterMiddleware() {
	// the first middleware is the most outer / first executed one
	router.Use(middleware.WithServerTiming)
	router.Use(middleware.NormalizeURL)
	router.Use(set_request_context.WithRequestContext) // needed for everything else
	router.Use(middleware.SetResponseHeaders)

	if config.Global.Limiter.Enabled {
		router.Use(limiter.New(config.Global.Limiter.Rate, config.Global.Limiter.Burst).Evaluate)
	}
}
