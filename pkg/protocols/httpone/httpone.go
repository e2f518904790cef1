// Package httpone is the HTTP/1.1 protocol implementation, registered with
// the importer as "vayu/protocols/httpone:Server". Parsing is delegated to
// net/http; this package only adapts requests and responses to the asgi3
// event exchange.
package httpone

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
	"github.com/shashiranjanraj/vayu/pkg/importer"
	"github.com/shashiranjanraj/vayu/pkg/logger"
	"github.com/shashiranjanraj/vayu/pkg/protocols"
)

func init() {
	importer.Register("vayu/protocols/httpone:Server", protocols.HTTPFactory(New))
}

// Server serves HTTP/1.1 over a bound listener.
type Server struct {
	set      protocols.Settings
	sem      chan struct{}
	served   atomic.Int64
	exhaust  func()
	exhaust1 sync.Once
}

// New builds the protocol server from resolved settings.
func New(s protocols.Settings) protocols.Server {
	srv := &Server{set: s}
	if s.LimitConcurrency > 0 {
		srv.sem = make(chan struct{}, s.LimitConcurrency)
	}
	return srv
}

// Serve accepts connections until the context is canceled or the listener
// fails. The listener is wrapped in TLS when a context was resolved.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	if s.set.TLS != nil {
		l = tls.NewListener(l, s.set.TLS)
	}

	httpServer := &http.Server{
		Handler:     http.HandlerFunc(s.handle),
		IdleTimeout: s.set.TimeoutKeepAlive,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.exhaust = func() {
		logger.Info("Maximum request limit reached, shutting down.", "limit", s.set.LimitMaxRequests)
		go httpServer.Shutdown(context.Background())
	}
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	err := httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if s.set.WSHandler != nil && isUpgrade(r) {
		s.set.WSHandler.ServeHTTP(w, r)
		return
	}

	if s.sem != nil {
		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		default:
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	start := time.Now()
	bridge := &responseBridge{w: w, set: s.set}

	err := s.set.App.ServeASGI(r.Context(), s.scopeFor(r), requestReceiver(r), bridge.send)
	if err != nil {
		logger.Error("application error", "error", err, "path", r.URL.Path)
		if !bridge.started {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	if s.set.AccessLog {
		logger.Access.Info(fmt.Sprintf("%s - \"%s %s %s\" %d",
			r.RemoteAddr, r.Method, r.URL.RequestURI(), r.Proto, bridge.statusOr(http.StatusInternalServerError)),
			"duration", time.Since(start).String(),
		)
	}

	if limit := s.set.LimitMaxRequests; limit > 0 && s.served.Add(1) >= int64(limit) {
		s.exhaust1.Do(s.exhaust)
	}
}

func (s *Server) scopeFor(r *http.Request) asgi.Scope {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	headers := make([][2]string, 0, len(r.Header))
	for key, values := range r.Header {
		for _, v := range values {
			headers = append(headers, [2]string{strings.ToLower(key), v})
		}
	}
	return asgi.Scope{
		"type":         "http",
		"asgi":         map[string]any{"version": s.set.ASGIVersion, "spec_version": "2.3"},
		"http_version": strings.TrimPrefix(r.Proto, "HTTP/"),
		"method":       r.Method,
		"scheme":       scheme,
		"path":         r.URL.Path,
		"query_string": r.URL.RawQuery,
		"root_path":    s.set.RootPath,
		"headers":      headers,
		"client":       r.RemoteAddr,
		"server":       r.Host,
	}
}

// requestReceiver streams the request body as http.request events.
func requestReceiver(r *http.Request) asgi.ReceiveFunc {
	done := false
	buf := make([]byte, 64*1024)
	return func(ctx context.Context) (asgi.Event, error) {
		if done {
			// The request is finished; the only event left is disconnect.
			<-ctx.Done()
			return asgi.Event{"type": "http.disconnect"}, nil
		}
		n, err := r.Body.Read(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		body := make([]byte, n)
		copy(body, buf[:n])
		more := err == nil
		if !more {
			done = true
		}
		return asgi.Event{"type": "http.request", "body": body, "more_body": more}, nil
	}
}

// responseBridge translates http.response.* events into writes on the
// underlying ResponseWriter.
type responseBridge struct {
	w       http.ResponseWriter
	set     protocols.Settings
	started bool
	status  int
}

func (b *responseBridge) statusOr(fallback int) int {
	if b.started {
		return b.status
	}
	return fallback
}

func (b *responseBridge) send(ctx context.Context, event asgi.Event) error {
	switch event["type"] {
	case "http.response.start":
		if b.started {
			return errors.New("http.response.start sent twice")
		}
		b.started = true
		b.status, _ = event["status"].(int)
		if b.status == 0 {
			b.status = http.StatusOK
		}
		header := b.w.Header()
		for _, kv := range b.set.Headers {
			header.Add(kv[0], kv[1])
		}
		if headers, ok := event["headers"].([][2]string); ok {
			for _, kv := range headers {
				header.Add(kv[0], kv[1])
			}
		}
		if !b.set.DateHeader {
			header["Date"] = nil
		}
		b.w.WriteHeader(b.status)
		return nil
	case "http.response.body":
		if !b.started {
			return errors.New("http.response.body sent before http.response.start")
		}
		if body, ok := event["body"].([]byte); ok && len(body) > 0 {
			if _, err := b.w.Write(body); err != nil {
				return err
			}
		}
		if more, _ := event["more_body"].(bool); more {
			if f, ok := b.w.(http.Flusher); ok {
				f.Flush()
			}
		}
		return nil
	}
	return fmt.Errorf("unexpected event %q in http scope", event["type"])
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
