// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"codeberg.org/pixivfe/tilemetrics/core/document"
	"codeberg.org/pixivfe/tilemetrics/server/request_context"
)

const errorPageSkeleton = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>Error</title></head><body></body></html>`

// ErrorPage renders an error page.
//
// The status code must already have been written; the page only reports
// request_context's StatusCode and RequestError.
func ErrorPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	ctx := request_context.FromRequest(r)

	page, err := document.ParseString(errorPageSkeleton, nil)
	if err != nil {
		log.Err(err).Msg("Failed to parse error page skeleton")

		return
	}

	heading := document.NewElement(atom.H1)
	heading.AppendChild(document.NewText(fmt.Sprintf("%d %s", ctx.StatusCode, http.StatusText(ctx.StatusCode))))
	page.AppendBody(heading)

	if ctx.RequestError != nil {
		message := document.NewElement(atom.P)
		message.AppendChild(document.NewText(ctx.RequestError.Error()))
		page.AppendBody(message)
	}

	if ctx.RequestID != "" {
		id := document.NewElement(atom.P, html.Attribute{Key: "class", Val: "request-id"})
		id.AppendChild(document.NewText("Request ID: " + ctx.RequestID))
		page.AppendBody(id)
	}

	if err := page.Render(w); err != nil {
		log.Err(err).Msg("Failed to render error page")
	}
}
