package middleware

// pkg/middleware/proxyheaders.go — trusted-proxy header rewriting. When the
// immediate peer is in the trusted list, the scope's scheme and client are
// replaced from X-Forwarded-Proto and X-Forwarded-For. Untrusted peers pass
// through untouched.

import (
	"context"
	"net"
	"strings"

	"github.com/shashiranjanraj/vayu/pkg/asgi"
)

// ProxyHeaders rewrites the observed client address and scheme from
// proxy-supplied headers, only for peers in the trusted list.
type ProxyHeaders struct {
	app        asgi.Handler
	alwaysTrue bool
	hosts      map[string]bool
	networks   []*net.IPNet
}

// NewProxyHeaders wraps app with a trusted list. trusted is either "*"
// (trust every peer) or a comma-separated mix of IPs and CIDR networks.
func NewProxyHeaders(app asgi.Handler, trusted string) *ProxyHeaders {
	m := &ProxyHeaders{app: app, hosts: map[string]bool{}}
	for _, entry := range strings.Split(trusted, ",") {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
		case entry == "*":
			m.alwaysTrue = true
		case strings.Contains(entry, "/"):
			if _, network, err := net.ParseCIDR(entry); err == nil {
				m.networks = append(m.networks, network)
			}
		default:
			m.hosts[entry] = true
		}
	}
	return m
}

func (m *ProxyHeaders) trusts(host string) bool {
	if m.alwaysTrue {
		return true
	}
	if m.hosts[host] {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, network := range m.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (m *ProxyHeaders) ServeASGI(ctx context.Context, scope asgi.Scope, receive asgi.ReceiveFunc, send asgi.SendFunc) error {
	if t, _ := scope["type"].(string); t == "http" || t == "websocket" {
		client, _ := scope["client"].(string)
		host, _, err := net.SplitHostPort(client)
		if err != nil {
			host = client
		}
		if m.trusts(host) {
			headers, _ := scope["headers"].([][2]string)
			if proto := headerValue(headers, "x-forwarded-proto"); proto != "" {
				scheme := strings.TrimSpace(proto)
				if t == "websocket" {
					switch scheme {
					case "https":
						scheme = "wss"
					case "http":
						scheme = "ws"
					}
				}
				scope["scheme"] = scheme
			}
			if forwarded := headerValue(headers, "x-forwarded-for"); forwarded != "" {
				parts := strings.Split(forwarded, ",")
				// The entry appended by the trusted proxy is the last one.
				scope["client"] = net.JoinHostPort(strings.TrimSpace(parts[len(parts)-1]), "0")
			}
		}
	}
	return m.app.ServeASGI(ctx, scope, receive, send)
}

func headerValue(headers [][2]string, name string) string {
	for _, kv := range headers {
		if strings.EqualFold(kv[0], name) {
			return kv[1]
		}
	}
	return ""
}
