// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// ErrURLNotAbsolute is returned by ParseURL for relative URLs.
var ErrURLNotAbsolute = errors.New("url must have both scheme and host")

// ParseURL parses an absolute URL string. The path is kept as given, since a
// trailing slash changes how relative references resolve against it.
func ParseURL(urlStr, urlType string) (*url.URL, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s URL: %w", urlType, err)
	}

	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf(
			"%s URL is invalid: %s (%w). Please specify a complete URL, e.g. https://example.com/dashboard/",
			urlType,
			urlStr,
			ErrURLNotAbsolute)
	}

	return parsedURL, nil
}

// GetPathVar retrieves the value of a path variable by name.
//
// If the variable is not present, it returns the provided default value or an empty string.
func GetPathVar(r *http.Request, name string, defaultValue ...string) string {
	v := r.PathValue(name)
	if v != "" {
		return v
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}

// LoopbackOrigin returns the http origin at which the local listener on addr
// can be reached. Unspecified addresses (0.0.0.0, ::) map to the loopback
// address of the same family.
func LoopbackOrigin(addr net.Addr) (url.URL, error) {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return url.URL{}, fmt.Errorf("failed to parse listener address %q: %w", addr, err)
	}

	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		if ip.To4() != nil {
			host = net.IPv4(127, 0, 0, 1).String()
		} else {
			host = net.IPv6loopback.String()
		}
	}

	return url.URL{Scheme: "http", Host: net.JoinHostPort(host, port)}, nil
}

// CleanPagePath turns a requested page name into a slash-separated path
// relative to a served directory. Rooting the path before cleaning it keeps
// ".." elements from climbing out of that directory.
func CleanPagePath(page string) string {
	cleaned := path.Clean("/" + strings.TrimSpace(page))
	if cleaned == "/" {
		return "index.html"
	}

	return strings.TrimPrefix(cleaned, "/")
}
