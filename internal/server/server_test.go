package server

import (
	"context"
	"net"
	"net/http"
	"testing"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHttpServer(t *testing.T) {
	router := http.NewServeMux()
	httpServer := NewHttpServer(hclog.NewNullLogger(), router, 8081)

	assert.Equal(t, ":8081", httpServer.Addr)
	assert.Equal(t, common.READ_HEADER_TIMEOUT, httpServer.ReadHeaderTimeout)
	assert.NotNil(t, httpServer.ErrorLog)
	assert.Same(t, router, httpServer.Handler)
}

func TestServe(t *testing.T) {
	t.Run("stops cleanly when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Serve(ctx, hclog.NewNullLogger(), NewHttpServer(hclog.NewNullLogger(), http.NewServeMux(), 0))
		assert.NoError(t, err)
	})

	t.Run("port in use is returned", func(t *testing.T) {
		listener, err := net.Listen("tcp", ":0")
		require.NoError(t, err)
		defer listener.Close()
		port := listener.Addr().(*net.TCPAddr).Port

		err = Serve(context.Background(), hclog.NewNullLogger(), NewHttpServer(hclog.NewNullLogger(), http.NewServeMux(), port))
		assert.Error(t, err)
	})
}
