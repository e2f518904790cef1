package config

// config/load.go — the one-shot resolution step: TLS context, header
// encoding, protocol selection, application loading, interface detection,
// and middleware composition, in that order.

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
	"github.com/shashiranjanraj/vayu/pkg/importer"
	"github.com/shashiranjanraj/vayu/pkg/lifespan"
	"github.com/shashiranjanraj/vayu/pkg/logger"
	"github.com/shashiranjanraj/vayu/pkg/middleware"
	"github.com/shashiranjanraj/vayu/pkg/protocols"
)

// Load resolves protocol implementations, loads the application handle,
// classifies its calling convention, and composes the middleware chain.
// A second call is a programming error and panics.
func (c *Config) Load() error {
	if c.loaded {
		panic("config: Load called twice on the same Config")
	}

	if c.IsSSL() {
		tlsConfig, err := newTLSConfig(c.Options)
		if err != nil {
			return fatalf("building TLS context: %w", err)
		}
		c.tlsConfig = tlsConfig
	}

	c.encodedHeaders = encodeHeaders(c.Headers, c.ServerHeader)

	if err := c.resolveProtocols(); err != nil {
		return err
	}
	app, err := c.loadApp()
	if err != nil {
		return err
	}
	if err := c.composeApp(app); err != nil {
		return err
	}

	c.loaded = true
	return nil
}

// encodeHeaders lower-cases header names and prepends the server header
// unless it is suppressed or already present.
func encodeHeaders(headers [][2]string, serverHeader bool) [][2]string {
	encoded := make([][2]string, 0, len(headers)+1)
	hasServer := false
	for _, kv := range headers {
		key := strings.ToLower(kv[0])
		if key == "server" {
			hasServer = true
		}
		encoded = append(encoded, [2]string{key, kv[1]})
	}
	if serverHeader && !hasServer {
		encoded = append([][2]string{{"server", "vayu"}}, encoded...)
	}
	return encoded
}

func (c *Config) resolveProtocols() error {
	if c.HTTP.Symbolic() {
		ref, ok := HTTPProtocols[c.HTTP.Name()]
		if !ok {
			return fatalf("unknown HTTP protocol %q", c.HTTP.Name())
		}
		value, err := importer.FromString(ref)
		if err != nil {
			return fatalf("resolving HTTP protocol %q: %w", c.HTTP.Name(), err)
		}
		factory, ok := value.(protocols.HTTPFactory)
		if !ok {
			return fatalf("reference %q is not an HTTP protocol factory (got %T)", ref, value)
		}
		c.httpFactory = factory
	} else {
		factory, ok := c.HTTP.impl.(protocols.HTTPFactory)
		if !ok {
			return fatalf("supplied HTTP protocol %T is not a protocols.HTTPFactory", c.HTTP.impl)
		}
		c.httpFactory = factory
	}

	if c.WS.Symbolic() {
		ref, ok := WSProtocols[c.WS.Name()]
		if !ok {
			return fatalf("unknown WebSocket protocol %q", c.WS.Name())
		}
		if ref != "" {
			value, err := importer.FromString(ref)
			if err != nil {
				return fatalf("resolving WebSocket protocol %q: %w", c.WS.Name(), err)
			}
			factory, ok := value.(protocols.WSFactory)
			if !ok {
				return fatalf("reference %q is not a WebSocket factory (got %T)", ref, value)
			}
			c.wsFactory = factory
		}
	} else if c.WS.impl != nil {
		factory, ok := c.WS.impl.(protocols.WSFactory)
		if !ok {
			return fatalf("supplied WebSocket protocol %T is not a protocols.WSFactory", c.WS.impl)
		}
		c.wsFactory = factory
	}

	ref, ok := Lifespans[c.Lifespan]
	if !ok {
		return fatalf("unknown lifespan %q", c.Lifespan)
	}
	value, err := importer.FromString(ref)
	if err != nil {
		return fatalf("resolving lifespan %q: %w", c.Lifespan, err)
	}
	factory, ok := value.(lifespan.Factory)
	if !ok {
		return fatalf("reference %q is not a lifespan factory (got %T)", ref, value)
	}
	c.lifespanFactory = factory
	return nil
}

// loadApp resolves the application reference and attempts to instantiate it
// as a zero-argument factory.
func (c *Config) loadApp() (any, error) {
	if c.App.Empty() {
		return nil, fatalf("no application supplied")
	}

	var app any
	if c.App.Symbolic() {
		value, err := importer.FromString(c.App.Name())
		if err != nil {
			return nil, fatalf("error loading ASGI app: %w", err)
		}
		app = value
	} else {
		app = c.App.value
	}

	instantiated, called := callFactory(app)
	switch {
	case called:
		if instantiated == nil {
			return nil, fatalf("application factory %q returned nil", c.App.Name())
		}
		if !c.Factory {
			logger.Warn("ASGI app factory detected, using it, but please consider setting the --factory flag explicitly")
		}
		app = instantiated
	case c.Factory:
		return nil, fatalf("error loading ASGI app factory: %T is not a zero-argument factory", app)
	}
	return app, nil
}

// callFactory invokes app as a zero-argument factory when it has one of the
// recognized factory shapes. Returns the product and whether a call was
// made.
func callFactory(app any) (any, bool) {
	switch f := app.(type) {
	case func() any:
		return f(), true
	case func() asgi.Handler:
		return f(), true
	case func() http.Handler:
		return f(), true
	}
	return nil, false
}

// composeApp classifies the calling convention and wraps the handle in the
// fixed adapter chain: gateway or legacy adapter first, then trace logging,
// then trusted-proxy rewriting, so outer wrappers always observe
// asgi3-shaped traffic.
func (c *Config) composeApp(app any) error {
	if c.resolvedIface == asgi.InterfaceAuto || c.resolvedIface == "" {
		c.resolvedIface = asgi.Detect(app)
	}

	var handler asgi.Handler
	switch c.resolvedIface {
	case asgi.InterfaceWSGI:
		h, ok := app.(http.Handler)
		if !ok {
			return fatalf("interface wsgi requires a net/http.Handler, got %T", app)
		}
		handler = middleware.NewWSGI(h)
		// The gateway convention has no WebSocket concept.
		c.wsFactory = nil
	case asgi.InterfaceASGI2:
		handler = middleware.NewASGI2(app)
	case asgi.InterfaceASGI3:
		h, ok := asgi.AsHandler(app)
		if !ok {
			return fatalf("interface asgi3 requires an asgi.Handler, got %T", app)
		}
		handler = h
	default:
		return fatalf("unknown interface %q", c.resolvedIface)
	}

	if logger.TraceEnabled() {
		handler = middleware.NewMessageLogger(handler)
	}
	if c.ProxyHeaders {
		handler = middleware.NewProxyHeaders(handler, c.ForwardedAllowIPs)
	}
	c.app = handler
	return nil
}

// SetupEventLoop resolves and invokes the configured event-loop setup hook
// exactly once, telling it whether a subprocess supervisor will be used.
func (c *Config) SetupEventLoop() error {
	ref, ok := LoopSetups[c.Loop]
	if !ok {
		return fatalf("unknown loop setup %q", c.Loop)
	}
	if ref == "" {
		return nil
	}
	value, err := importer.FromString(ref)
	if err != nil {
		return fatalf("resolving loop setup %q: %w", c.Loop, err)
	}
	setup, ok := value.(func(useSubprocess bool))
	if !ok {
		return fatalf("reference %q is not a loop setup function (got %T)", ref, value)
	}
	setup(c.UseSubprocess())
	return nil
}
