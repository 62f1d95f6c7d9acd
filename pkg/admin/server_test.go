package admin

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getimposd/imposd/pkg/engine"
)

func TestServerStartStop(t *testing.T) {
	srv := newTestServerFor(t, engine.NewRegistry(), WithHost("127.0.0.1"))
	require.NoError(t, srv.Start())

	port := srv.Port()
	require.NotZero(t, port)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	_, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	assert.Error(t, err)
}

func TestServerStartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	reg := engine.NewRegistry()
	t.Cleanup(func() { closeRegistry(t, reg) })

	srv := NewServer(reg, port, WithHost("127.0.0.1"))
	require.Error(t, srv.Start())
}
