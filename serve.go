// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	config "codeberg.org/pixivfe/tilemetrics/configs"
	"codeberg.org/pixivfe/tilemetrics/server/router"
	"codeberg.org/pixivfe/tilemetrics/server/routes"
	"codeberg.org/pixivfe/tilemetrics/server/utils"
)

const (
	// Values for http.Server timeouts.
	// ref: gosec: G112
	readHeaderTimeout time.Duration = 15 * time.Second
	readTimeout       time.Duration = 15 * time.Second
	writeTimeout      time.Duration = 30 * time.Second
	idleTimeout       time.Duration = 30 * time.Second

	serverShutdownDeadline time.Duration = 5 * time.Second
)

// serve runs the HTTP server on listener until ctx is done, then shuts it
// down gracefully.
func serve(ctx context.Context, listener net.Listener) error {
	origin := config.Global.Serve.FragmentOrigin
	if origin.Host == "" {
		var err error

		origin, err = utils.LoopbackOrigin(listener.Addr())
		if err != nil {
			return err
		}
	}

	log.Info().Str("origin", origin.String()).Msg("Fetching fragments from origin")

	router := router.NewRouter()
	router.DefineRoutes(&routes.Pages{
		StaticDir:      config.Global.Serve.StaticDir,
		FragmentOrigin: origin,
		Resource:       config.Global.Fragment.Resource,
	})
	router.RegisterMiddleware()

	server := &http.Server{
		Handler:           router.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownDeadline)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Server exited gracefully")

	return nil
}

// chooseListener opens the TCP listener for Basic.Host and Basic.Port.
func chooseListener(ctx context.Context) (net.Listener, error) {
	addr := net.JoinHostPort(config.Global.Basic.Host, config.Global.Basic.Port)

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start TCP listener on %v: %w", addr, err)
	}

	addr = listener.Addr().String()

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		_ = listener.Close()

		return nil, fmt.Errorf("failed to parse listener address %q: %w", addr, err)
	}

	log.Info().
		Str("address", addr).
		Str("port", port).
		Str("url", fmt.Sprintf("http://localhost:%v/compose/index.html", port)).
		Msg("Listening on address")

	return listener, nil
}
