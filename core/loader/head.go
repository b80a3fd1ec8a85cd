// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package loader

import (
	"fmt"

	"golang.org/x/net/html"

	"codeberg.org/pixivfe/tilemetrics/core/document"
)

type mergeOutcome int

const (
	mergeAppended mergeOutcome = iota
	mergeSkipped
	mergeFailed
)

// mergeHead copies each element child of the fetched head into the live head.
//
// An element whose id is already present in the live head is skipped. A
// failure on one element is logged at debug level and does not stop the rest.
func (l *Loader) mergeHead(live, fetched *document.Document, result *Result) {
	for _, node := range fetched.HeadChildren() {
		outcome, err := l.mergeHeadElement(live, node)

		switch outcome {
		case mergeAppended:
			result.HeadAppended++
		case mergeSkipped:
			result.HeadSkipped++
		case mergeFailed:
			result.HeadFailed++

			l.logger.Debug().
				Err(err).
				Str("element", node.Data).
				Msg("Skipped head element")
		}
	}
}

func (l *Loader) mergeHeadElement(live *document.Document, node *html.Node) (outcome mergeOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = mergeFailed
			err = fmt.Errorf("%w: %v", ErrMergeElement, r)
		}
	}()

	if id, _ := document.Attr(node, "id"); id != "" && live.HeadHasID(id) {
		return mergeSkipped, nil
	}

	live.AppendHead(l.importNode(node))

	return mergeAppended, nil
}
