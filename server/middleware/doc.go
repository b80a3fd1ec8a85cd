// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package middleware provides the HTTP middleware of serve mode.

Middleware are chained by router.Router in the order they are registered.
*/
package middleware
