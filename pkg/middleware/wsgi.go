package middleware

// pkg/middleware/wsgi.go — adapts the synchronous-gateway convention
// (a net/http.Handler) to asgi3. The request is rebuilt from the scope and
// the http.request event stream; the response is captured through a
// responseWriter and emitted as http.response.start / http.response.body
// events.

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
)

// WSGI wraps a net/http.Handler so it can be invoked through the asgi3
// convention. The gateway convention has no WebSocket concept; selecting it
// forces the WebSocket protocol to none.
type WSGI struct {
	handler http.Handler
}

// NewWSGI wraps a synchronous-gateway application handle.
func NewWSGI(handler http.Handler) *WSGI {
	return &WSGI{handler: handler}
}

func (m *WSGI) ServeASGI(ctx context.Context, scope asgi.Scope, receive asgi.ReceiveFunc, send asgi.SendFunc) error {
	if t, _ := scope["type"].(string); t != "http" {
		return fmt.Errorf("wsgi adapter received unsupported scope type %q", scope["type"])
	}

	req, err := buildRequest(ctx, scope, receive)
	if err != nil {
		return err
	}

	rw := &gatewayResponse{header: http.Header{}, status: http.StatusOK}
	m.handler.ServeHTTP(rw, req)

	headers := make([][2]string, 0, len(rw.header))
	for key, values := range rw.header {
		for _, v := range values {
			headers = append(headers, [2]string{key, v})
		}
	}
	if err := send(ctx, asgi.Event{
		"type":    "http.response.start",
		"status":  rw.status,
		"headers": headers,
	}); err != nil {
		return err
	}
	return send(ctx, asgi.Event{
		"type":      "http.response.body",
		"body":      rw.body.Bytes(),
		"more_body": false,
	})
}

// buildRequest drains http.request events into a complete body and rebuilds
// the net/http request from the scope.
func buildRequest(ctx context.Context, scope asgi.Scope, receive asgi.ReceiveFunc) (*http.Request, error) {
	var body bytes.Buffer
	for {
		event, err := receive(ctx)
		if err != nil {
			return nil, err
		}
		if t, _ := event["type"].(string); t != "http.request" {
			return nil, fmt.Errorf("unexpected event %q while reading request body", event["type"])
		}
		if chunk, ok := event["body"].([]byte); ok {
			body.Write(chunk)
		}
		if more, _ := event["more_body"].(bool); !more {
			break
		}
	}

	method, _ := scope["method"].(string)
	path, _ := scope["path"].(string)
	query, _ := scope["query_string"].(string)

	u := &url.URL{Path: path, RawQuery: query}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), &body)
	if err != nil {
		return nil, err
	}
	if headers, ok := scope["headers"].([][2]string); ok {
		for _, kv := range headers {
			req.Header.Add(kv[0], kv[1])
		}
	}
	if client, ok := scope["client"].(string); ok {
		req.RemoteAddr = client
	}
	return req, nil
}

// gatewayResponse captures the handler's response in memory.
type gatewayResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
	wrote  bool
}

func (r *gatewayResponse) Header() http.Header { return r.header }

func (r *gatewayResponse) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
}

func (r *gatewayResponse) Write(p []byte) (int, error) {
	r.wrote = true
	return r.body.Write(p)
}
