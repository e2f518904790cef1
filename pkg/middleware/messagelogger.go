package middleware

// pkg/middleware/messagelogger.go — diagnostic tracing wrapper, applied only
// when the log level is at or below TRACE. Every event crossing the
// receive/send boundary is logged with its type and body size.

import (
	"context"
	"sync/atomic"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
	"github.com/shashiranjanraj/vayu/pkg/logger"
)

var connSeq atomic.Int64

// MessageLogger wraps an asgi3 handle and traces every protocol message.
type MessageLogger struct {
	app asgi.Handler
}

// NewMessageLogger wraps an already asgi3-shaped application handle.
func NewMessageLogger(app asgi.Handler) *MessageLogger {
	return &MessageLogger{app: app}
}

func (m *MessageLogger) ServeASGI(ctx context.Context, scope asgi.Scope, receive asgi.ReceiveFunc, send asgi.SendFunc) error {
	id := connSeq.Add(1)
	log := logger.ASGI.With("conn", id)
	log.Log(ctx, logger.LevelTrace, "started", "scope_type", scope["type"])

	tracedReceive := func(ctx context.Context) (asgi.Event, error) {
		event, err := receive(ctx)
		if err != nil {
			log.Log(ctx, logger.LevelTrace, "receive failed", "error", err)
			return nil, err
		}
		log.Log(ctx, logger.LevelTrace, "received", "type", event["type"], "length", bodyLength(event))
		return event, nil
	}
	tracedSend := func(ctx context.Context, event asgi.Event) error {
		log.Log(ctx, logger.LevelTrace, "sent", "type", event["type"], "length", bodyLength(event))
		return send(ctx, event)
	}

	err := m.app.ServeASGI(ctx, scope, tracedReceive, tracedSend)
	if err != nil {
		log.Log(ctx, logger.LevelTrace, "raised exception", "error", err)
	} else {
		log.Log(ctx, logger.LevelTrace, "completed")
	}
	return err
}

func bodyLength(event asgi.Event) int {
	switch body := event["body"].(type) {
	case []byte:
		return len(body)
	case string:
		return len(body)
	}
	return 0
}
