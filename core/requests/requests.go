// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package requests retrieves HTML fragments over HTTP.

A fetch is a single GET with no extra headers, no query parameters and no
authentication. The whole body is read into memory before it is returned.
*/
package requests

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"codeberg.org/pixivfe/tilemetrics/core/audit"
	"codeberg.org/pixivfe/tilemetrics/server/request_context"
	"codeberg.org/pixivfe/tilemetrics/server/utils"
)

var (
	// ErrLoad is wrapped by every LoadError.
	ErrLoad = errors.New("fragment responded with a non-success status")

	errEmptyURL = errors.New("empty fragment URL")
)

// LoadError reports a fragment response outside the 2xx range.
type LoadError struct {
	// Resource is the last path element of the requested URL, e.g. "tilemetrics.html".
	Resource string

	// StatusCode is the HTTP status code of the response.
	StatusCode int
}

// Error returns a message that always includes the status code.
func (e *LoadError) Error() string {
	return fmt.Sprintf("Failed to load %s: %d", e.Resource, e.StatusCode)
}

// Unwrap returns ErrLoad for use with errors.Is.
func (e *LoadError) Unwrap() error {
	return ErrLoad
}

// Client fetches fragments. The zero value uses utils.HTTPClient and the global logger.
type Client struct {
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Fetch issues a GET for rawURL and returns the full response body.
//
// Returns an error if:
//   - The request could not be built or sent (network errors are returned wrapped).
//   - The response status is not 2xx (*LoadError).
//   - Reading the body fails.
func (c *Client) Fetch(ctx context.Context, rawURL string) (_ []byte, err error) {
	if rawURL == "" {
		return nil, errEmptyURL
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = utils.HTTPClient
	}

	logger := c.Logger
	if logger == nil {
		logger = &log.Logger
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	span := audit.Span{
		Destination: audit.ToOrigin,
		RequestID:   requestID(ctx),
		Method:      req.Method,
		URL:         req.URL.String(),
	}

	_ = span.Begin(ctx)

	defer func() {
		span.End()
		span.Error = err
		span.LogTo(logger)
	}()

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	span.StatusCode = resp.StatusCode

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &LoadError{Resource: resourceName(req.URL), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	span.Body = body

	return body, nil
}

// requestID ties a fetch to the inbound request that caused it, if any.
func requestID(ctx context.Context) string {
	id := uuid.NewString()[:8]

	if parent := request_context.FromContext(ctx).RequestID; parent != "" {
		return parent + "-" + id
	}

	return id
}

func resourceName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return u.String()
	}

	return name
}
