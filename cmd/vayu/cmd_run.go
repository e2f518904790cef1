package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/vayu/config"
	"github.com/shashiranjanraj/vayu/internal/server"
	"github.com/shashiranjanraj/vayu/pkg/asgi"
	"github.com/shashiranjanraj/vayu/pkg/logger"
)

var flags = struct {
	host                string
	port                int
	uds                 string
	fd                  int
	loop                string
	http                string
	ws                  string
	wsMaxSize           int64
	wsPingInterval      time.Duration
	wsPingTimeout       time.Duration
	wsPerMessageDeflate bool
	lifespan            string
	envFile             string
	logConfig           string
	logLevel            string
	accessLog           bool
	useColors           bool
	noColors            bool
	iface               string

	reload         bool
	reloadDirs     []string
	reloadIncludes []string
	reloadExcludes []string
	reloadDelay    time.Duration

	workers           int
	proxyHeaders      bool
	serverHeader      bool
	dateHeader        bool
	forwardedAllowIPs string

	rootPath         string
	limitConcurrency int
	limitMaxRequests int
	backlog          int
	timeoutKeepAlive time.Duration

	sslKeyFile  string
	sslCertFile string
	sslCACerts  string

	headers []string
	factory bool
}{}

// vayu run <app> — resolve the configuration and serve.
var runCmd = &cobra.Command{
	Use:   "run <app>",
	Short: "Start the server (app is a registered \"pkg:Name\" reference)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New(buildOptions(args[0], cmd))
		if err != nil {
			return exitFatal(err)
		}
		if err := cfg.Load(); err != nil {
			return exitFatal(err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := server.Run(ctx, cfg); err != nil {
			return exitFatal(err)
		}
		return nil
	},
}

// exitFatal terminates with status 1 on fatal bootstrap failures; anything
// else propagates to cobra's normal error handling.
func exitFatal(err error) error {
	if config.IsFatal(err) {
		logger.Error(err.Error())
		os.Exit(1)
	}
	return err
}

func buildOptions(app string, cmd *cobra.Command) config.Options {
	opts := config.DefaultOptions()
	opts.App = config.AppSymbol(app)
	opts.Host = flags.host
	opts.Port = flags.port
	opts.UDS = flags.uds
	opts.FD = flags.fd
	opts.Loop = flags.loop
	opts.HTTP = config.ProtocolName(flags.http)
	opts.WS = config.ProtocolName(flags.ws)
	opts.WSMaxSize = flags.wsMaxSize
	opts.WSPingInterval = flags.wsPingInterval
	opts.WSPingTimeout = flags.wsPingTimeout
	opts.WSPerMessageDeflate = flags.wsPerMessageDeflate
	opts.Lifespan = flags.lifespan
	opts.EnvFile = flags.envFile
	opts.LogConfigFile = flags.logConfig
	opts.LogLevel = flags.logLevel
	opts.AccessLog = flags.accessLog
	opts.Interface = asgi.Interface(flags.iface)
	opts.Reload = flags.reload
	opts.ReloadDirs = flags.reloadDirs
	opts.ReloadIncludes = flags.reloadIncludes
	opts.ReloadExcludes = flags.reloadExcludes
	opts.ReloadDelay = flags.reloadDelay
	opts.Workers = flags.workers
	opts.ProxyHeaders = flags.proxyHeaders
	opts.ServerHeader = flags.serverHeader
	opts.DateHeader = flags.dateHeader
	opts.ForwardedAllowIPs = flags.forwardedAllowIPs
	opts.RootPath = flags.rootPath
	opts.LimitConcurrency = flags.limitConcurrency
	opts.LimitMaxRequests = flags.limitMaxRequests
	opts.Backlog = flags.backlog
	opts.TimeoutKeepAlive = flags.timeoutKeepAlive
	opts.TLSKeyFile = flags.sslKeyFile
	opts.TLSCertFile = flags.sslCertFile
	opts.TLSCACerts = flags.sslCACerts
	opts.Factory = flags.factory

	if cmd.Flags().Changed("use-colors") {
		v := flags.useColors
		opts.UseColors = &v
	} else if flags.noColors {
		v := false
		opts.UseColors = &v
	}

	for _, h := range flags.headers {
		if kv := splitHeader(h); kv != nil {
			opts.Headers = append(opts.Headers, *kv)
		}
	}
	return opts
}

func splitHeader(h string) *[2]string {
	for i := 0; i < len(h); i++ {
		if h[i] == ':' {
			return &[2]string{h[:i], h[i+1:]}
		}
	}
	return nil
}

func init() {
	f := runCmd.Flags()
	defaults := config.DefaultOptions()

	f.StringVar(&flags.host, "host", defaults.Host, "bind socket to this host")
	f.IntVar(&flags.port, "port", defaults.Port, "bind socket to this port (0 for an ephemeral port)")
	f.StringVar(&flags.uds, "uds", "", "bind to a UNIX domain socket")
	f.IntVar(&flags.fd, "fd", 0, "bind to a socket from this file descriptor")
	f.StringVar(&flags.loop, "loop", defaults.Loop, "event loop setup")
	f.StringVar(&flags.http, "http", "auto", "HTTP protocol implementation")
	f.StringVar(&flags.ws, "ws", "auto", "WebSocket protocol implementation")
	f.Int64Var(&flags.wsMaxSize, "ws-max-size", defaults.WSMaxSize, "WebSocket max message size (bytes)")
	f.DurationVar(&flags.wsPingInterval, "ws-ping-interval", defaults.WSPingInterval, "WebSocket ping interval")
	f.DurationVar(&flags.wsPingTimeout, "ws-ping-timeout", defaults.WSPingTimeout, "WebSocket ping timeout")
	f.BoolVar(&flags.wsPerMessageDeflate, "ws-per-message-deflate", defaults.WSPerMessageDeflate, "WebSocket per-message-deflate")
	f.StringVar(&flags.lifespan, "lifespan", defaults.Lifespan, "lifespan implementation")
	f.StringVar(&flags.envFile, "env-file", "", "environment configuration file")
	f.StringVar(&flags.logConfig, "log-config", "", "logging configuration file (json, yaml, or ini)")
	f.StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warning, error, critical)")
	f.BoolVar(&flags.accessLog, "access-log", true, "enable the access log")
	f.BoolVar(&flags.useColors, "use-colors", false, "force colorized log output")
	f.BoolVar(&flags.noColors, "no-use-colors", false, "force plain log output")
	f.StringVar(&flags.iface, "interface", string(defaults.Interface), "application interface (auto, asgi3, asgi2, wsgi)")
	f.BoolVar(&flags.reload, "reload", false, "watch for file changes; restarting on a change requires an external supervisor")
	f.StringArrayVar(&flags.reloadDirs, "reload-dir", nil, "watch this directory for changes")
	f.StringArrayVar(&flags.reloadIncludes, "reload-include", nil, "include this glob pattern in the watch scope")
	f.StringArrayVar(&flags.reloadExcludes, "reload-exclude", nil, "exclude this glob pattern from the watch scope")
	f.DurationVar(&flags.reloadDelay, "reload-delay", defaults.ReloadDelay, "delay between change detection and reload")
	f.IntVar(&flags.workers, "workers", 0, "number of worker processes (defaults to WEB_CONCURRENCY)")
	f.BoolVar(&flags.proxyHeaders, "proxy-headers", defaults.ProxyHeaders, "trust proxy headers from allowed peers")
	f.BoolVar(&flags.serverHeader, "server-header", defaults.ServerHeader, "add a default Server header")
	f.BoolVar(&flags.dateHeader, "date-header", defaults.DateHeader, "add a Date header")
	f.StringVar(&flags.forwardedAllowIPs, "forwarded-allow-ips", "", "comma-separated IPs/networks trusted to set proxy headers (defaults to FORWARDED_ALLOW_IPS)")
	f.StringVar(&flags.rootPath, "root-path", "", "ASGI root_path for applications behind a path prefix")
	f.IntVar(&flags.limitConcurrency, "limit-concurrency", 0, "max concurrent requests before returning 503")
	f.IntVar(&flags.limitMaxRequests, "limit-max-requests", 0, "max requests before worker restart")
	f.IntVar(&flags.backlog, "backlog", defaults.Backlog, "listen backlog")
	f.DurationVar(&flags.timeoutKeepAlive, "timeout-keep-alive", defaults.TimeoutKeepAlive, "keep-alive timeout")
	f.StringVar(&flags.sslKeyFile, "ssl-keyfile", "", "TLS key file")
	f.StringVar(&flags.sslCertFile, "ssl-certfile", "", "TLS certificate file")
	f.StringVar(&flags.sslCACerts, "ssl-ca-certs", "", "CA certificates file for client verification")
	f.StringArrayVar(&flags.headers, "header", nil, "custom default response header, \"Name:Value\"")
	f.BoolVar(&flags.factory, "factory", false, "treat the app reference as a zero-argument factory")
}
