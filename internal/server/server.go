// Package server runs a fully resolved configuration: load, event-loop
// setup, socket binding, lifespan startup, then serving until the context
// is canceled.
package server

import (
	"context"

	"github.com/shashiranjanraj/vayu/config"
	"github.com/shashiranjanraj/vayu/pkg/logger"
)

// Run drives the bootstrap sequence end to end and serves until ctx is
// canceled or the protocol server fails.
func Run(ctx context.Context, cfg *config.Config) error {
	logger.Info("Started server process")

	if !cfg.Loaded() {
		if err := cfg.Load(); err != nil {
			return err
		}
	}
	if err := cfg.SetupEventLoop(); err != nil {
		return err
	}

	sock, err := cfg.BindSocket()
	if err != nil {
		return err
	}
	defer sock.Close()

	ls := cfg.LifespanFactory()(cfg.LoadedApp())
	if err := ls.Startup(ctx); err != nil {
		return err
	}
	defer func() {
		if err := ls.Shutdown(context.Background()); err != nil {
			logger.Error("lifespan shutdown failed", "error", err)
		}
		logger.Info("Finished server process")
	}()

	protocol := cfg.HTTPFactory()(cfg.Settings())
	return protocol.Serve(ctx, sock.Listener)
}
