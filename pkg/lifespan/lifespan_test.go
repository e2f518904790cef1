package lifespan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
	"github.com/shashiranjanraj/vayu/pkg/lifespan"
)

// lifespanApp answers the startup/shutdown events with the configured
// completion events, or fails with a message.
func lifespanApp(startupEvent, shutdownEvent asgi.Event) asgi.Handler {
	return asgi.HandlerFunc(func(ctx context.Context, scope asgi.Scope, receive asgi.ReceiveFunc, send asgi.SendFunc) error {
		for {
			event, err := receive(ctx)
			if err != nil {
				return err
			}
			switch event["type"] {
			case "lifespan.startup":
				if err := send(ctx, startupEvent); err != nil {
					return err
				}
			case "lifespan.shutdown":
				return send(ctx, shutdownEvent)
			}
		}
	})
}

// noLifespanApp errors out as soon as it sees the lifespan scope, the way
// an application without lifespan support behaves.
var noLifespanApp = asgi.HandlerFunc(func(ctx context.Context, scope asgi.Scope, receive asgi.ReceiveFunc, send asgi.SendFunc) error {
	return errors.New("unsupported scope type lifespan")
})

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestOnCompletesFullCycle(t *testing.T) {
	app := lifespanApp(
		asgi.Event{"type": "lifespan.startup.complete"},
		asgi.Event{"type": "lifespan.shutdown.complete"},
	)
	proto := lifespan.NewOn(app)
	ctx := testContext(t)

	if err := proto.Startup(ctx); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if err := proto.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestOnReportsStartupFailure(t *testing.T) {
	app := lifespanApp(
		asgi.Event{"type": "lifespan.startup.failed", "message": "database unreachable"},
		asgi.Event{"type": "lifespan.shutdown.complete"},
	)
	proto := lifespan.NewOn(app)

	err := proto.Startup(testContext(t))
	if err == nil {
		t.Fatal("expected a startup error")
	}
	if got := err.Error(); got != "application startup failed: database unreachable" {
		t.Fatalf("unexpected error: %q", got)
	}
}

func TestOnRejectsUnsupportedApp(t *testing.T) {
	proto := lifespan.NewOn(noLifespanApp)
	if err := proto.Startup(testContext(t)); err == nil {
		t.Fatal("strict lifespan should fail when the app does not speak the protocol")
	}
}

func TestAutoToleratesUnsupportedApp(t *testing.T) {
	proto := lifespan.NewAuto(noLifespanApp)
	ctx := testContext(t)

	if err := proto.Startup(ctx); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	// Once disabled, shutdown is a no-op.
	if err := proto.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestOffIsInert(t *testing.T) {
	proto := lifespan.NewOff(nil)
	ctx := testContext(t)
	if err := proto.Startup(ctx); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if err := proto.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestShutdownReportsFailure(t *testing.T) {
	app := lifespanApp(
		asgi.Event{"type": "lifespan.startup.complete"},
		asgi.Event{"type": "lifespan.shutdown.failed", "message": "flush failed"},
	)
	proto := lifespan.NewAuto(app)
	ctx := testContext(t)

	if err := proto.Startup(ctx); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	err := proto.Shutdown(ctx)
	if err == nil {
		t.Fatal("expected a shutdown error")
	}
	if got := err.Error(); got != "application shutdown failed: flush failed" {
		t.Fatalf("unexpected error: %q", got)
	}
}
