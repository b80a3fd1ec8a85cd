// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package loader

import (
	"context"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"codeberg.org/pixivfe/tilemetrics/core/document"
	"codeberg.org/pixivfe/tilemetrics/core/scripts"
)

// reactivateScripts replaces every inert <script> in the live body with a
// fresh element appended to the end of the body, then hands it to the executor.
//
// The set of scripts is taken before any replacement, so the fresh elements
// are not visited again. Executor errors are logged and otherwise ignored.
func (l *Loader) reactivateScripts(ctx context.Context, live *document.Document) []scripts.Script {
	inert := live.BodyScripts()
	reactivated := make([]scripts.Script, 0, len(inert))

	for i, old := range inert {
		script := scripts.Script{Index: i}
		fresh := document.NewElement(atom.Script)

		if src, _ := document.Attr(old, "src"); src != "" {
			script.Src = src
			script.ResolvedSrc = src

			if resolved, err := live.ResolveURL(src); err == nil {
				script.ResolvedSrc = resolved.String()
			}

			fresh.Attr = append(fresh.Attr, html.Attribute{Key: "src", Val: src})
		} else {
			script.Text = document.TextContent(old)

			if script.Text != "" {
				fresh.AppendChild(document.NewText(script.Text))
			}
		}

		live.AppendBody(fresh)
		document.Detach(old)

		if err := l.execute(ctx, script); err != nil {
			l.logger.Warn().
				Err(err).
				Int("index", script.Index).
				Str("src", script.ResolvedSrc).
				Msg("Script executor failed")
		}

		reactivated = append(reactivated, script)
	}

	return reactivated
}

// execute runs the executor, turning a panic into an error.
func (l *Loader) execute(ctx context.Context, script scripts.Script) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUncaught, r)
		}
	}()

	return l.executor.Execute(ctx, script)
}
