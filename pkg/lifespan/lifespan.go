// Package lifespan implements the startup/shutdown signaling protocol
// invoked once before the first request and once after the last.
//
// Two behaviors are registered with the importer:
//
//	"vayu/lifespan:On"   — lifespan required; a failed startup is an error
//	"vayu/lifespan:Auto" — lifespan attempted; unsupported apps are tolerated
//	"vayu/lifespan:Off"  — lifespan skipped entirely
package lifespan

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
	"github.com/shashiranjanraj/vayu/pkg/importer"
	"github.com/shashiranjanraj/vayu/pkg/logger"
)

func init() {
	importer.Register("vayu/lifespan:On", Factory(NewOn))
	importer.Register("vayu/lifespan:Auto", Factory(NewAuto))
	importer.Register("vayu/lifespan:Off", Factory(NewOff))
}

// Protocol drives the lifespan event exchange with the application.
type Protocol interface {
	Startup(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Factory builds a Protocol around the loaded application handle.
type Factory func(app asgi.Handler) Protocol

// NewOn returns a strict lifespan: an application that fails or does not
// support the protocol aborts startup.
func NewOn(app asgi.Handler) Protocol {
	return &exchange{app: app, strict: true}
}

// NewAuto returns a tolerant lifespan: unsupported applications are logged
// and serving continues.
func NewAuto(app asgi.Handler) Protocol {
	return &exchange{app: app}
}

// NewOff returns a no-op lifespan.
func NewOff(asgi.Handler) Protocol { return off{} }

type off struct{}

func (off) Startup(context.Context) error  { return nil }
func (off) Shutdown(context.Context) error { return nil }

// exchange runs the application's lifespan scope in a goroutine and
// shuttles events in and out.
type exchange struct {
	app    asgi.Handler
	strict bool

	disabled bool
	events   chan asgi.Event
	appDone  chan error

	startupOK   chan struct{}
	startupFail chan string

	shutdownOK   chan struct{}
	shutdownFail chan string
}

func (e *exchange) Startup(ctx context.Context) error {
	e.events = make(chan asgi.Event, 2)
	e.appDone = make(chan error, 1)
	e.startupOK = make(chan struct{}, 1)
	e.startupFail = make(chan string, 1)
	e.shutdownOK = make(chan struct{}, 1)
	e.shutdownFail = make(chan string, 1)

	scope := asgi.Scope{
		"type": "lifespan",
		"asgi": map[string]any{"version": "3.0", "spec_version": "2.0"},
	}
	go func() {
		e.appDone <- e.app.ServeASGI(context.Background(), scope, e.receive, e.send)
	}()

	logger.Info("Waiting for application startup.")
	e.events <- asgi.Event{"type": "lifespan.startup"}

	select {
	case <-e.startupOK:
		logger.Info("Application startup complete.")
		return nil
	case msg := <-e.startupFail:
		logger.Error("Application startup failed.", "message", msg)
		return fmt.Errorf("application startup failed: %s", msg)
	case err := <-e.appDone:
		if e.strict {
			if err == nil {
				err = fmt.Errorf("application exited before startup completed")
			}
			return fmt.Errorf("lifespan protocol error: %w", err)
		}
		logger.Info("Application does not support the lifespan protocol, continuing without it.")
		e.disabled = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *exchange) Shutdown(ctx context.Context) error {
	if e.disabled {
		return nil
	}

	logger.Info("Waiting for application shutdown.")
	select {
	case e.events <- asgi.Event{"type": "lifespan.shutdown"}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-e.shutdownOK:
		logger.Info("Application shutdown complete.")
		return nil
	case msg := <-e.shutdownFail:
		return fmt.Errorf("application shutdown failed: %s", msg)
	case err := <-e.appDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *exchange) receive(ctx context.Context) (asgi.Event, error) {
	select {
	case event := <-e.events:
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *exchange) send(ctx context.Context, event asgi.Event) error {
	message, _ := event["message"].(string)
	switch event["type"] {
	case "lifespan.startup.complete":
		e.startupOK <- struct{}{}
	case "lifespan.startup.failed":
		e.startupFail <- message
	case "lifespan.shutdown.complete":
		e.shutdownOK <- struct{}{}
	case "lifespan.shutdown.failed":
		e.shutdownFail <- message
	default:
		return fmt.Errorf("unexpected lifespan event %q", event["type"])
	}
	return nil
}
