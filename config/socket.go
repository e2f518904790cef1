package config

// config/socket.go — the socket binder. Three mutually exclusive bind
// strategies chosen by precedence: Unix path > inherited descriptor >
// host/port. Sockets are created through x/sys so the listen backlog and
// address-reuse options apply, and are left inheritable so a subprocess
// supervisor can pass them to workers.

import (
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/shashiranjanraj/vayu/pkg/logger"
)

// Transport kinds reported on a BoundSocket.
const (
	TransportTCP4 = "tcp4"
	TransportTCP6 = "tcp6"
	TransportUnix = "unix"
	TransportFD   = "fd"
)

// BoundSocket wraps the live listener plus binding metadata.
type BoundSocket struct {
	Listener net.Listener
	// Kind is one of the Transport constants.
	Kind string
	// Description is the human-readable binding used in the startup log.
	Description string
}

// Close releases the listener. Ownership normally transfers to the caller;
// Close is for error paths.
func (s *BoundSocket) Close() error { return s.Listener.Close() }

// BindSocket binds the listening socket for the configured transport and
// emits the startup log line. Bind failures are fatal.
func (c *Config) BindSocket() (*BoundSocket, error) {
	switch {
	case c.UDS != "":
		return c.bindUnix()
	case c.FD != 0:
		return c.fromFD()
	default:
		return c.bindTCP()
	}
}

func (c *Config) bindUnix() (*BoundSocket, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fatalf("creating unix socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: c.UDS}); err != nil {
		unix.Close(fd)
		return nil, fatalf("binding unix socket %s: %w", c.UDS, err)
	}
	if err := os.Chmod(c.UDS, 0o666); err != nil {
		unix.Close(fd)
		return nil, fatalf("setting permissions on %s: %w", c.UDS, err)
	}

	listener, err := listenerFromFD(fd, c.Backlog, c.UDS)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("unix socket %s", c.UDS)
	logger.Info(fmt.Sprintf("Vayu running on %s (Press CTRL+C to quit)", description))
	return &BoundSocket{Listener: listener, Kind: TransportUnix, Description: description}, nil
}

// fromFD wraps an already-open descriptor. No bind happens; the parent
// process is assumed to have bound it.
func (c *Config) fromFD() (*BoundSocket, error) {
	file := os.NewFile(uintptr(c.FD), "inherited socket")
	listener, err := net.FileListener(file)
	file.Close()
	if err != nil {
		return nil, fatalf("wrapping inherited descriptor %d: %w", c.FD, err)
	}
	markInheritable(listener)

	description := fmt.Sprintf("socket %s", listener.Addr())
	logger.Info(fmt.Sprintf("Vayu running on %s (Press CTRL+C to quit)", description))
	return &BoundSocket{Listener: listener, Kind: TransportFD, Description: description}, nil
}

func (c *Config) bindTCP() (*BoundSocket, error) {
	kind := TransportTCP4
	family := unix.AF_INET
	if strings.Contains(c.Host, ":") {
		// A colon in the host means an IPv6 address.
		kind = TransportTCP6
		family = unix.AF_INET6
	}

	sa, err := sockaddrFor(family, c.Host, c.Port)
	if err != nil {
		return nil, fatalf("resolving %s: %w", c.Host, err)
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fatalf("creating socket: %w", err)
	}
	// Tolerate rapid rebinding across process restarts.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fatalf("setting SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fatalf("binding %s:%d: %w", c.Host, c.Port, err)
	}

	listener, err := listenerFromFD(fd, c.Backlog, fmt.Sprintf("%s:%d", c.Host, c.Port))
	if err != nil {
		return nil, err
	}

	port := c.Port
	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	scheme := "http"
	if c.IsSSL() {
		scheme = "https"
	}
	host := c.Host
	if host == "" {
		host = "0.0.0.0"
	}
	hostFormat := "%s://%s:%d"
	if kind == TransportTCP6 {
		hostFormat = "%s://[%s]:%d"
	}
	description := fmt.Sprintf(hostFormat, scheme, host, port)
	logger.Info(fmt.Sprintf("Vayu running on %s (Press CTRL+C to quit)", description))
	return &BoundSocket{Listener: listener, Kind: kind, Description: description}, nil
}

// listenerFromFD starts listening on a bound descriptor and converts it to
// a net.Listener, keeping it inheritable.
func listenerFromFD(fd int, backlog int, name string) (net.Listener, error) {
	if backlog <= 0 {
		backlog = 2048
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fatalf("listening on %s: %w", name, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fatalf("preparing %s: %w", name, err)
	}

	file := os.NewFile(uintptr(fd), name)
	listener, err := net.FileListener(file)
	file.Close()
	if err != nil {
		return nil, fatalf("wrapping %s: %w", name, err)
	}
	markInheritable(listener)
	return listener, nil
}

// markInheritable clears FD_CLOEXEC so a subprocess supervisor can hand the
// socket to worker processes.
func markInheritable(l net.Listener) {
	sc, ok := l.(syscall.Conn)
	if !ok {
		return
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		flags, err := unix.FcntlInt(fd, unix.F_GETFD, 0)
		if err != nil {
			return
		}
		unix.FcntlInt(fd, unix.F_SETFD, flags&^unix.FD_CLOEXEC)
	})
}

func sockaddrFor(family int, host string, port int) (unix.Sockaddr, error) {
	if host == "" {
		// An empty host binds all interfaces.
		if family == unix.AF_INET {
			return &unix.SockaddrInet4{Port: port}, nil
		}
		return &unix.SockaddrInet6{Port: port}, nil
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil {
			return nil, err
		}
		for _, candidate := range ips {
			if (family == unix.AF_INET) == (candidate.To4() != nil) {
				ip = candidate
				break
			}
		}
		if ip == nil {
			return nil, fmt.Errorf("no address of the requested family for %q", host)
		}
	}

	if family == unix.AF_INET {
		v4 := ip.To4()
		if v4 == nil {
			return nil, fmt.Errorf("%q is not an IPv4 address", host)
		}
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], v4)
		return sa, nil
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return sa, nil
}
