// Package asgi defines the calling conventions an application handle may
// speak, and the detector that classifies a loaded handle into one of them.
//
// Three conventions exist:
//
//   - asgi3 — single invocation, context-aware: the handle is called once
//     per connection scope with receive/send channels (Handler).
//   - asgi2 — double invocation: the handle is first called with the scope
//     and returns an instance that is then called with receive/send
//     (LegacyHandler).
//   - wsgi — the synchronous gateway convention, i.e. a plain
//     net/http.Handler. Never auto-detected; must be requested explicitly.
package asgi

import "context"

// Scope describes one connection: type ("http", "websocket", "lifespan"),
// method, path, headers and so on.
type Scope map[string]any

// Event is a single protocol message exchanged over receive/send.
type Event map[string]any

// ReceiveFunc pulls the next event from the protocol server.
type ReceiveFunc func(ctx context.Context) (Event, error)

// SendFunc pushes an event back to the protocol server.
type SendFunc func(ctx context.Context, event Event) error

// ─── asgi3 ────────────────────────────────────────────────────────────────────

// Handler is the asgi3 convention: one call per scope.
type Handler interface {
	ServeASGI(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error

func (f HandlerFunc) ServeASGI(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error {
	return f(ctx, scope, receive, send)
}

// ─── asgi2 ────────────────────────────────────────────────────────────────────

// Instance is the second call of the double-invocation convention.
type Instance func(ctx context.Context, receive ReceiveFunc, send SendFunc) error

// LegacyHandler is the asgi2 convention: the first call takes the scope and
// returns the per-connection instance.
type LegacyHandler interface {
	Open(scope Scope) Instance
}

// LegacyHandlerFunc adapts a function to LegacyHandler.
type LegacyHandlerFunc func(scope Scope) Instance

func (f LegacyHandlerFunc) Open(scope Scope) Instance { return f(scope) }

// ─── Interface variants ───────────────────────────────────────────────────────

// Interface names the calling convention of an application handle.
type Interface string

const (
	InterfaceAuto  Interface = "auto"
	InterfaceASGI2 Interface = "asgi2"
	InterfaceASGI3 Interface = "asgi3"
	InterfaceWSGI  Interface = "wsgi"
)

// Version reports the protocol version string advertised in connection
// scopes for this interface.
func (i Interface) Version() string {
	if i == InterfaceASGI2 {
		return "2.0"
	}
	return "3.0"
}

// Detect classifies an application handle. The rules are ordered and
// first-match-wins:
//
//  1. the handle implements Handler, or has the bare asgi3 function shape
//     → asgi3;
//  2. anything else → asgi2.
//
// wsgi is deliberately absent: a net/http.Handler is only treated as the
// gateway convention when the caller pins interface=wsgi explicitly.
func Detect(app any) Interface {
	switch app.(type) {
	case Handler:
		return InterfaceASGI3
	case func(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error:
		return InterfaceASGI3
	default:
		return InterfaceASGI2
	}
}

// AsHandler converts a handle already known to be asgi3-shaped into a
// Handler. It returns false when the handle has neither the interface nor
// the bare function shape.
func AsHandler(app any) (Handler, bool) {
	switch h := app.(type) {
	case Handler:
		return h, true
	case func(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error:
		return HandlerFunc(h), true
	}
	return nil, false
}

// AsLegacyHandler converts an asgi2-shaped handle into a LegacyHandler.
func AsLegacyHandler(app any) (LegacyHandler, bool) {
	switch h := app.(type) {
	case LegacyHandler:
		return h, true
	case func(scope Scope) Instance:
		return LegacyHandlerFunc(h), true
	}
	return nil, false
}
