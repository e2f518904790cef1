// Package websockets is the WebSocket protocol implementation, registered
// with the importer as "vayu/protocols/websockets:Server". Framing is
// delegated to gorilla/websocket; this package adapts the connection to the
// websocket.* event exchange.
package websockets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
	"github.com/shashiranjanraj/vayu/pkg/importer"
	"github.com/shashiranjanraj/vayu/pkg/logger"
	"github.com/shashiranjanraj/vayu/pkg/protocols"
)

func init() {
	importer.Register("vayu/protocols/websockets:Server", protocols.WSFactory(New))
}

// New builds the upgrade handler from resolved settings.
func New(s protocols.Settings) http.Handler {
	return &handler{
		set: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    1024,
			WriteBufferSize:   1024,
			EnableCompression: s.WSPerMessageDeflate,
			// Origin policy is the application's concern; the scope carries
			// the origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

type handler struct {
	set      protocols.Settings
	upgrader websocket.Upgrader
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	headers := make([][2]string, 0, len(r.Header))
	for key, values := range r.Header {
		for _, v := range values {
			headers = append(headers, [2]string{strings.ToLower(key), v})
		}
	}
	scope := asgi.Scope{
		"type":         "websocket",
		"asgi":         map[string]any{"version": h.set.ASGIVersion, "spec_version": "2.3"},
		"scheme":       scheme,
		"path":         r.URL.Path,
		"query_string": r.URL.RawQuery,
		"root_path":    h.set.RootPath,
		"headers":      headers,
		"client":       r.RemoteAddr,
		"subprotocols": websocket.Subprotocols(r),
	}

	sess := &session{set: h.set, upgrader: &h.upgrader, w: w, r: r, incoming: make(chan asgi.Event, 8)}
	if err := h.set.App.ServeASGI(r.Context(), scope, sess.receive, sess.send); err != nil {
		logger.Error("websocket application error", "error", err, "path", r.URL.Path)
		if sess.conn == nil {
			// The app failed before the upgrade; reject the handshake.
			if !sess.rejected {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
			return
		}
		sess.closeConn(websocket.CloseInternalServerErr)
		return
	}
	sess.closeConn(websocket.CloseNormalClosure)
}

// session owns one upgraded connection and its read/ping pumps. The
// connection permits only one concurrent writer, so every frame (data,
// ping, close) goes out under writeMu.
type session struct {
	set      protocols.Settings
	upgrader *websocket.Upgrader
	w        http.ResponseWriter
	r        *http.Request

	conn        *websocket.Conn
	connectSent bool
	rejected    bool
	closed      bool
	writeMu     sync.Mutex
	incoming    chan asgi.Event
	pingStop    chan struct{}
}

// write sends one frame, serialized against the ping pump and close.
func (s *session) write(kind int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.set.WSPingTimeout))
	return s.conn.WriteMessage(kind, data)
}

func (s *session) receive(ctx context.Context) (asgi.Event, error) {
	if !s.connectSent {
		s.connectSent = true
		return asgi.Event{"type": "websocket.connect"}, nil
	}
	if s.conn == nil {
		return nil, errors.New("websocket.receive before websocket.accept")
	}
	select {
	case event := <-s.incoming:
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *session) send(ctx context.Context, event asgi.Event) error {
	switch event["type"] {
	case "websocket.accept":
		return s.accept(event)
	case "websocket.send":
		if s.conn == nil {
			return errors.New("websocket.send before websocket.accept")
		}
		if text, ok := event["text"].(string); ok {
			return s.write(websocket.TextMessage, []byte(text))
		}
		if data, ok := event["bytes"].([]byte); ok {
			return s.write(websocket.BinaryMessage, data)
		}
		return errors.New("websocket.send carries neither text nor bytes")
	case "websocket.close":
		code := websocket.CloseNormalClosure
		if c, ok := event["code"].(int); ok {
			code = c
		}
		if s.conn == nil {
			// Close before accept rejects the handshake.
			s.rejected = true
			http.Error(s.w, "Forbidden", http.StatusForbidden)
			return nil
		}
		s.closeConn(code)
		return nil
	}
	return fmt.Errorf("unexpected event %q in websocket scope", event["type"])
}

func (s *session) accept(event asgi.Event) error {
	if s.conn != nil {
		return errors.New("websocket.accept sent twice")
	}
	var responseHeader http.Header
	if subprotocol, ok := event["subprotocol"].(string); ok && subprotocol != "" {
		responseHeader = http.Header{"Sec-Websocket-Protocol": {subprotocol}}
	}
	conn, err := s.upgrader.Upgrade(s.w, s.r, responseHeader)
	if err != nil {
		return err
	}
	s.conn = conn
	s.pingStop = make(chan struct{})

	conn.SetReadLimit(s.set.WSMaxSize)
	conn.SetReadDeadline(time.Now().Add(s.set.WSPingInterval + s.set.WSPingTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.set.WSPingInterval + s.set.WSPingTimeout))
		return nil
	})

	go s.readPump()
	go s.pingPump()
	return nil
}

// readPump pumps frames from the connection into the incoming event queue.
func (s *session) readPump() {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code = closeErr.Code
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket: unexpected close", "error", err)
			}
			s.deliver(asgi.Event{"type": "websocket.disconnect", "code": code})
			return
		}
		event := asgi.Event{"type": "websocket.receive"}
		if kind == websocket.TextMessage {
			event["text"] = string(data)
		} else {
			event["bytes"] = data
		}
		if !s.deliver(event) {
			return
		}
	}
}

// deliver queues an event for the application, bailing out once the
// session is being torn down.
func (s *session) deliver(event asgi.Event) bool {
	select {
	case s.incoming <- event:
		return true
	case <-s.pingStop:
		return false
	}
}

// pingPump keeps the connection alive while the application works.
func (s *session) pingPump() {
	ticker := time.NewTicker(s.set.WSPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.pingStop:
			return
		}
	}
}

func (s *session) closeConn(code int) {
	if s.conn == nil || s.closed {
		return
	}
	s.closed = true
	select {
	case <-s.pingStop:
	default:
		close(s.pingStop)
	}
	s.writeMu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
	s.writeMu.Unlock()
	s.conn.Close()
}
