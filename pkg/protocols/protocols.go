// Package protocols defines the narrow contract between the bootstrap
// resolver and the concrete protocol implementations it selects.
//
// Implementations live in subpackages and register their factories with the
// importer under symbolic references at init time; the resolver never
// imports them directly. Blank-import the subpackages you want available:
//
//	import (
//	    _ "github.com/shashiranjanraj/vayu/pkg/protocols/httpone"
//	    _ "github.com/shashiranjanraj/vayu/pkg/protocols/websockets"
//	)
package protocols

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
)

// Settings is the slice of the resolved configuration a protocol
// implementation consumes. The resolver builds it once after load.
type Settings struct {
	// App is the fully wrapped application handle (always asgi3-shaped).
	App asgi.Handler
	// ASGIVersion is advertised in connection scopes ("2.0" or "3.0").
	ASGIVersion string
	// RootPath is the mount prefix placed in scopes.
	RootPath string
	// Headers are default response headers with already lower-cased keys.
	Headers [][2]string
	// AccessLog enables the per-request log line.
	AccessLog bool
	// DateHeader controls the automatic Date response header.
	DateHeader bool
	// TLS is nil for plaintext serving.
	TLS *tls.Config

	LimitConcurrency int
	// LimitMaxRequests stops the server after this many requests so an
	// external supervisor can recycle the process. Zero means unlimited.
	LimitMaxRequests int
	TimeoutKeepAlive time.Duration

	// WSHandler handles WebSocket upgrade requests; nil disables upgrades.
	WSHandler http.Handler

	WSMaxSize           int64
	WSPingInterval      time.Duration
	WSPingTimeout       time.Duration
	WSPerMessageDeflate bool
}

// Server is a running protocol implementation bound to a listener.
type Server interface {
	Serve(ctx context.Context, l net.Listener) error
}

// HTTPFactory builds an HTTP protocol server from resolved settings.
type HTTPFactory func(s Settings) Server

// WSFactory builds the handler invoked for WebSocket upgrade requests.
type WSFactory func(s Settings) http.Handler
