package server_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/vayu/config"
	"github.com/shashiranjanraj/vayu/internal/server"
	"github.com/shashiranjanraj/vayu/pkg/asgi"

	_ "github.com/shashiranjanraj/vayu/pkg/lifespan"
	_ "github.com/shashiranjanraj/vayu/pkg/protocols/httpone"
	_ "github.com/shashiranjanraj/vayu/pkg/protocols/websockets"
)

// bootApp speaks both the lifespan and http scopes.
func bootApp() asgi.Handler {
	return asgi.HandlerFunc(func(ctx context.Context, scope asgi.Scope, receive asgi.ReceiveFunc, send asgi.SendFunc) error {
		if scope["type"] == "lifespan" {
			for {
				event, err := receive(ctx)
				if err != nil {
					return err
				}
				switch event["type"] {
				case "lifespan.startup":
					if err := send(ctx, asgi.Event{"type": "lifespan.startup.complete"}); err != nil {
						return err
					}
				case "lifespan.shutdown":
					return send(ctx, asgi.Event{"type": "lifespan.shutdown.complete"})
				}
			}
		}
		if err := send(ctx, asgi.Event{"type": "http.response.start", "status": 200}); err != nil {
			return err
		}
		return send(ctx, asgi.Event{"type": "http.response.body", "body": []byte("up"), "more_body": false})
	})
}

func TestRunServesUntilCanceled(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "run.sock")

	opts := config.DefaultOptions()
	opts.App = config.AppValue(bootApp())
	opts.UDS = sockPath
	cfg, err := config.New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx, cfg) }()

	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, "unix", sockPath)
		},
	}}

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = client.Get("http://vayu/health")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", string(body))
	assert.Equal(t, "vayu", resp.Header.Get("Server"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestRunFailsOnStrictLifespanWithoutSupport(t *testing.T) {
	silent := asgi.HandlerFunc(func(ctx context.Context, scope asgi.Scope, receive asgi.ReceiveFunc, send asgi.SendFunc) error {
		return nil
	})

	opts := config.DefaultOptions()
	opts.App = config.AppValue(silent)
	opts.UDS = filepath.Join(t.TempDir(), "strict.sock")
	opts.Lifespan = "on"
	cfg, err := config.New(opts)
	require.NoError(t, err)

	err = server.Run(context.Background(), cfg)
	assert.Error(t, err)
}
