// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"codeberg.org/pixivfe/tilemetrics/server/utils"
)

// validation errors.
var (
	errInvalidMode           = errors.New("invalid Basic.Mode value, expected \"compose\" or \"serve\"")
	errEmptyFragment         = errors.New("Fragment.Resource cannot be empty")
	errFragmentNotRelative   = errors.New("Fragment.Resource must be a relative reference")
	errHostPageRequired      = errors.New("Compose.HostPage is required in compose mode")
	errOriginRequired        = errors.New("Compose.Origin is required in compose mode")
	errEmptyOutput           = errors.New("Compose.Output cannot be empty, use \"-\" for stdout")
	errStaticDirRequired     = errors.New("Serve.StaticDir is required in serve mode")
	errStaticDirNotDirectory = errors.New("Serve.StaticDir is not a directory")
	errInvalidLimiterRate    = errors.New("Limiter.Rate must be greater than zero")
	errInvalidLimiterBurst   = errors.New("Limiter.Burst must be at least 1")
	errInvalidLogFormat      = errors.New("invalid Log.Format value, expected \"console\" or \"json\"")
	errInvalidLogLevel       = errors.New("invalid Log.Level value")
)

// validateAndSet validates the configuration and populates derived fields.
func (cfg *AppConfig) validateAndSet() error {
	switch cfg.Basic.Mode {
	case "":
		cfg.Basic.Mode = ModeCompose
	case ModeCompose, ModeServe:
		// valid
	default:
		return fmt.Errorf("%w: %q", errInvalidMode, cfg.Basic.Mode)
	}

	if err := validateFragment(cfg.Fragment.Resource); err != nil {
		return err
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	switch cfg.Log.Format {
	case "", "console", "json":
		// valid
	default:
		return errInvalidLogFormat
	}

	if cfg.Basic.Mode == ModeCompose {
		if err := cfg.validateCompose(); err != nil {
			return err
		}
	} else if err := cfg.validateServe(); err != nil {
		return err
	}

	// Skip validating Limiter configuration if it's not enabled
	if !cfg.Limiter.Enabled {
		return nil
	}

	if cfg.Limiter.Rate <= 0 {
		return errInvalidLimiterRate
	}

	if cfg.Limiter.Burst < 1 {
		return errInvalidLimiterBurst
	}

	return nil
}

func (cfg *AppConfig) validateCompose() error {
	if cfg.Compose.HostPage == "" {
		return errHostPageRequired
	}

	if cfg.Compose.RawOrigin == "" {
		return errOriginRequired
	}

	origin, err := utils.ParseURL(cfg.Compose.RawOrigin, "Compose origin")
	if err != nil {
		return fmt.Errorf("invalid compose origin: %w", err)
	}

	cfg.Compose.Origin = *origin

	if cfg.Compose.Output == "" {
		return errEmptyOutput
	}

	return nil
}

func (cfg *AppConfig) validateServe() error {
	if cfg.Basic.Host == "" {
		cfg.Basic.Host = "localhost"
		log.Info().
			Str("host", cfg.Basic.Host).
			Msg("Binding to default host")
	}

	if cfg.Basic.Port == "" {
		cfg.Basic.Port = "8383"
		log.Info().
			Str("port", cfg.Basic.Port).
			Msg("Using default port")
	}

	if cfg.Serve.StaticDir == "" {
		return errStaticDirRequired
	}

	info, err := os.Stat(cfg.Serve.StaticDir)
	if err != nil {
		return fmt.Errorf("invalid static directory: %w", err)
	}

	if !info.IsDir() {
		return errStaticDirNotDirectory
	}

	cfg.Serve.FragmentOrigin = url.URL{}

	if cfg.Serve.RawFragmentOrigin != "" {
		origin, err := utils.ParseURL(cfg.Serve.RawFragmentOrigin, "Fragment origin")
		if err != nil {
			return fmt.Errorf("invalid fragment origin: %w", err)
		}

		cfg.Serve.FragmentOrigin = *origin
	}

	return nil
}

// validateFragment rejects resource names that would escape the live
// document's origin.
func validateFragment(resource string) error {
	if resource == "" {
		return errEmptyFragment
	}

	ref, err := url.Parse(resource)
	if err != nil {
		return fmt.Errorf("invalid fragment resource: %w", err)
	}

	if ref.IsAbs() || ref.Host != "" {
		return errFragmentNotRelative
	}

	return nil
}
