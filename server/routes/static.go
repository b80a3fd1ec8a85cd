// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"os"
)

// StaticFile serves files from StaticDir. The caller strips StaticPrefix.
func (p *Pages) StaticFile(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Cache-Control", "no-cache")

	http.FileServerFS(os.DirFS(p.StaticDir)).ServeHTTP(w, r)

	return nil
}
