// Package middleware contains the adapter layers wrapped around the
// application handle at load time. Each adapter takes ownership of the
// previous handle, forming one linear chain whose outermost link always
// speaks the asgi3 convention.
package middleware

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
)

// ASGI2 adapts a double-invocation (asgi2) handle to the single-invocation
// asgi3 convention.
type ASGI2 struct {
	app any
}

// NewASGI2 wraps an asgi2-shaped application handle.
func NewASGI2(app any) *ASGI2 {
	return &ASGI2{app: app}
}

func (m *ASGI2) ServeASGI(ctx context.Context, scope asgi.Scope, receive asgi.ReceiveFunc, send asgi.SendFunc) error {
	legacy, ok := asgi.AsLegacyHandler(m.app)
	if !ok {
		return fmt.Errorf("application %T does not implement the asgi2 convention", m.app)
	}
	instance := legacy.Open(scope)
	if instance == nil {
		return fmt.Errorf("application %T returned a nil asgi2 instance", m.app)
	}
	return instance(ctx, receive, send)
}
