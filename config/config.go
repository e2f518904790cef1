// Package config is the server bootstrap resolver: it turns a declarative
// Options snapshot into a fully wired, ready-to-run server context before
// any request is served.
//
// Construction happens in two steps. New() resolves everything that needs
// no application handle: logging, the reload watch scope, the environment
// file, worker and proxy fallbacks. Load() then resolves protocol
// implementations, loads and classifies the application, and composes the
// middleware chain. Both run synchronously, once, at process start.
//
//	cfg, err := config.New(config.Options{App: config.AppSymbol("myapp:App")})
//	if err != nil { ... }
//	if err := cfg.Load(); err != nil { ... }
//	sock, err := cfg.BindSocket()
package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
	"github.com/shashiranjanraj/vayu/pkg/lifespan"
	"github.com/shashiranjanraj/vayu/pkg/logger"
	"github.com/shashiranjanraj/vayu/pkg/protocols"
	"github.com/shashiranjanraj/vayu/pkg/reload"
)

// ─── Tagged references ────────────────────────────────────────────────────────

// AppRef identifies the application: either a re-importable symbolic
// reference ("pkg:Name", resolved through the importer) or an
// already-constructed handle. Hot reload only works with symbolic
// references, since a handle cannot be re-imported after a restart.
type AppRef struct {
	name  string
	value any
}

// AppSymbol references an application by symbolic name.
func AppSymbol(name string) AppRef { return AppRef{name: name} }

// AppValue wraps an already-constructed application handle.
func AppValue(v any) AppRef { return AppRef{value: v} }

// Symbolic reports whether the reference is re-importable.
func (r AppRef) Symbolic() bool { return r.name != "" }

// Empty reports whether no application was supplied at all.
func (r AppRef) Empty() bool { return r.name == "" && r.value == nil }

// Name returns the symbolic name, or "" for a constructed handle.
func (r AppRef) Name() string { return r.name }

// ProtocolSpec selects a protocol implementation: either a symbolic name
// looked up in the registry ("auto", "h1", "websockets", "none") or a
// concrete factory supplied by the embedder.
type ProtocolSpec struct {
	name string
	impl any
}

// ProtocolName selects an implementation by symbolic name.
func ProtocolName(name string) ProtocolSpec { return ProtocolSpec{name: name} }

// ProtocolImpl supplies a concrete factory verbatim.
func ProtocolImpl(impl any) ProtocolSpec { return ProtocolSpec{impl: impl} }

// Symbolic reports whether the spec still needs registry resolution.
func (p ProtocolSpec) Symbolic() bool { return p.impl == nil }

// Name returns the symbolic name, or "" for a concrete factory.
func (p ProtocolSpec) Name() string { return p.name }

// ─── Options ──────────────────────────────────────────────────────────────────

// Options is the declarative bootstrap input. Start from DefaultOptions()
// and override what you need; the zero value of a field is meaningful for
// several of them (port 0 requests an ephemeral port), so defaults are not
// re-applied afterward.
type Options struct {
	App AppRef

	// Transport selection, by precedence: UDS > FD > Host/Port.
	Host string
	Port int
	UDS  string
	FD   int

	Loop     string
	HTTP     ProtocolSpec
	WS       ProtocolSpec
	Lifespan string

	WSMaxSize           int64
	WSPingInterval      time.Duration
	WSPingTimeout       time.Duration
	WSPerMessageDeflate bool

	EnvFile       string
	LogConfig     *logger.Config
	LogConfigFile string
	LogLevel      string
	AccessLog     bool
	UseColors     *bool

	Interface asgi.Interface

	Reload         bool
	ReloadDirs     []string
	ReloadIncludes []string
	ReloadExcludes []string
	ReloadDelay    time.Duration

	Workers      int
	ProxyHeaders bool
	ServerHeader bool
	DateHeader   bool
	// ForwardedAllowIPs is "*" or a comma-separated mix of IPs and CIDR
	// networks trusted to set proxy headers.
	ForwardedAllowIPs string

	RootPath         string
	LimitConcurrency int
	LimitMaxRequests int
	Backlog          int
	TimeoutKeepAlive time.Duration
	TimeoutNotify    time.Duration

	TLSKeyFile     string
	TLSCertFile    string
	TLSKeyPassword string
	TLSMinVersion  uint16
	TLSCertReqs    string
	TLSCACerts     string
	TLSCiphers     []string

	// Headers are extra response headers added to every response.
	Headers [][2]string

	// Factory marks the application reference as a zero-argument factory.
	Factory bool
}

// DefaultOptions returns the stock bootstrap options.
func DefaultOptions() Options {
	return Options{
		Host:                "127.0.0.1",
		Port:                8000,
		Loop:                "auto",
		HTTP:                ProtocolName("auto"),
		WS:                  ProtocolName("auto"),
		Lifespan:            "auto",
		WSMaxSize:           16 * 1024 * 1024,
		WSPingInterval:      20 * time.Second,
		WSPingTimeout:       20 * time.Second,
		WSPerMessageDeflate: true,
		AccessLog:           true,
		Interface:           asgi.InterfaceAuto,
		ReloadDelay:         250 * time.Millisecond,
		ProxyHeaders:        true,
		ServerHeader:        true,
		DateHeader:          true,
		Backlog:             2048,
		TimeoutKeepAlive:    5 * time.Second,
		TimeoutNotify:       30 * time.Second,
		TLSCertReqs:         "none",
	}
}

// ─── Config ───────────────────────────────────────────────────────────────────

// Config is the resolved, immutable-after-load bootstrap snapshot. Once
// Load() has run, the resolved fields are fixed for the process lifetime.
type Config struct {
	Options

	loaded      bool
	reloadScope *reload.Scope

	tlsConfig       *tls.Config
	encodedHeaders  [][2]string
	httpFactory     protocols.HTTPFactory
	wsFactory       protocols.WSFactory
	lifespanFactory lifespan.Factory
	app             asgi.Handler
	resolvedIface   asgi.Interface
}

// New resolves everything that does not need the application handle:
// logging configuration, the reload watch scope, the optional environment
// file, and the environment-variable fallbacks.
func New(opts Options) (*Config, error) {
	c := &Config{Options: opts, resolvedIface: opts.Interface}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}

	reloadInputs := len(opts.ReloadDirs) > 0 || len(opts.ReloadIncludes) > 0 || len(opts.ReloadExcludes) > 0
	if reloadInputs && !c.ShouldReload() {
		logger.Warn("current configuration will not reload as not all conditions are met, please refer to documentation")
	}

	if c.ShouldReload() {
		c.reloadScope = reload.BuildScope(reload.Input{
			Dirs:     reload.NormalizeList(opts.ReloadDirs),
			Includes: reload.NormalizeList(opts.ReloadIncludes),
			Excludes: reload.NormalizeList(opts.ReloadExcludes),
		})
		logger.Info("will watch for changes in these directories", "dirs", c.reloadScope.WatchDirs)
	}

	if opts.EnvFile != "" {
		logger.Info("loading environment", "file", opts.EnvFile)
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	if c.Workers == 0 {
		if v := os.Getenv("WEB_CONCURRENCY"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid WEB_CONCURRENCY %q: %w", v, err)
			}
			c.Workers = n
		} else {
			c.Workers = 1
		}
	}

	if c.ForwardedAllowIPs == "" {
		if v := os.Getenv("FORWARDED_ALLOW_IPS"); v != "" {
			c.ForwardedAllowIPs = v
		} else {
			c.ForwardedAllowIPs = "127.0.0.1"
		}
	}

	if c.Reload && c.Workers > 1 {
		logger.Warn(`"workers" flag is ignored when reloading is enabled`)
	}

	return c, nil
}

func (c *Config) configureLogging() error {
	if c.LogConfigFile != "" {
		if err := logger.ConfigureFile(c.LogConfigFile); err != nil {
			return err
		}
	} else {
		payload := c.LogConfig
		if payload != nil && c.UseColors != nil {
			payload.InjectUseColors(*c.UseColors)
		}
		if err := logger.Configure(payload); err != nil {
			return err
		}
	}

	if c.LogLevel != "" {
		level, err := logger.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
	}
	if !c.AccessLog {
		logger.DisableAccess()
	}
	return nil
}

// ─── Derived properties ───────────────────────────────────────────────────────

// IsSSL reports whether TLS serving was requested.
func (c *Config) IsSSL() bool { return c.TLSKeyFile != "" || c.TLSCertFile != "" }

// ShouldReload reports whether hot reload is active: it requires both the
// reload flag and a re-importable symbolic application reference.
func (c *Config) ShouldReload() bool { return c.Reload && c.App.Symbolic() }

// UseSubprocess reports whether a subprocess supervisor will run workers.
func (c *Config) UseSubprocess() bool { return c.Reload || c.Workers > 1 }

// ASGIVersion is the protocol version advertised for the resolved
// interface variant.
func (c *Config) ASGIVersion() string { return c.resolvedIface.Version() }

// Loaded reports whether Load() has completed.
func (c *Config) Loaded() bool { return c.loaded }

// ReloadScope returns the resolved watch scope, or nil when reload is off.
func (c *Config) ReloadScope() *reload.Scope { return c.reloadScope }

// Interface returns the resolved calling convention. Before Load() it may
// still be "auto".
func (c *Config) Interface() asgi.Interface { return c.resolvedIface }

// TLSConfig returns the resolved TLS context, nil for plaintext.
func (c *Config) TLSConfig() *tls.Config { return c.tlsConfig }

// EncodedHeaders returns the default response headers with lower-cased
// keys, including the server header unless suppressed.
func (c *Config) EncodedHeaders() [][2]string { return c.encodedHeaders }

// LoadedApp returns the fully wrapped application handle.
func (c *Config) LoadedApp() asgi.Handler { return c.app }

// HTTPFactory returns the resolved HTTP protocol factory.
func (c *Config) HTTPFactory() protocols.HTTPFactory { return c.httpFactory }

// WSFactory returns the resolved WebSocket factory; nil when the selection
// ended as none.
func (c *Config) WSFactory() protocols.WSFactory { return c.wsFactory }

// LifespanFactory returns the resolved lifespan factory.
func (c *Config) LifespanFactory() lifespan.Factory { return c.lifespanFactory }

// Settings assembles the narrow view of this configuration consumed by
// protocol implementations. Call after Load().
func (c *Config) Settings() protocols.Settings {
	s := protocols.Settings{
		App:                 c.app,
		ASGIVersion:         c.ASGIVersion(),
		RootPath:            c.RootPath,
		Headers:             c.encodedHeaders,
		AccessLog:           c.AccessLog,
		DateHeader:          c.DateHeader,
		TLS:                 c.tlsConfig,
		LimitConcurrency:    c.LimitConcurrency,
		LimitMaxRequests:    c.LimitMaxRequests,
		TimeoutKeepAlive:    c.TimeoutKeepAlive,
		WSMaxSize:           c.WSMaxSize,
		WSPingInterval:      c.WSPingInterval,
		WSPingTimeout:       c.WSPingTimeout,
		WSPerMessageDeflate: c.WSPerMessageDeflate,
	}
	if c.wsFactory != nil {
		s.WSHandler = c.wsFactory(s)
	}
	return s
}
