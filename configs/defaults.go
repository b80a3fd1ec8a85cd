// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

const (
	// Default limiter refill rate in requests per second.
	defaultLimiterRate = 5.0
	// Default limiter bucket size.
	defaultLimiterBurst = 20
)

// SetDefaults populates the configuration with default values.
func (cfg *AppConfig) SetDefaults() {
	cfg.Basic.Mode = ModeCompose
	cfg.Basic.Host = "localhost"
	cfg.Basic.Port = "8383"

	cfg.Fragment.Resource = "tilemetrics.html"

	cfg.Compose.HostPage = ""
	cfg.Compose.RawOrigin = ""
	cfg.Compose.Output = "-"
	cfg.Compose.ScriptManifest = ""

	cfg.Serve.StaticDir = "./static"
	cfg.Serve.RawFragmentOrigin = ""

	cfg.Limiter.Enabled = false
	cfg.Limiter.Rate = defaultLimiterRate
	cfg.Limiter.Burst = defaultLimiterBurst

	cfg.Development.SaveResponses = false
	cfg.Development.ResponseSaveLocation = "/tmp/tilemetrics/responses"

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"
}
