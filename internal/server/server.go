package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/hashicorp/go-hclog"
)

// NewHttpServer binds the client's round API to port on every interface.
func NewHttpServer(logger hclog.Logger, router http.Handler, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: common.READ_HEADER_TIMEOUT,
		ErrorLog:          logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}
}

// Serve runs the round API until ctx is done, then waits up to SHUTDOWN_TIMEOUT for
// rounds in flight. A listener failure is returned instead.
func Serve(ctx context.Context, logger hclog.Logger, httpServer *http.Server) error {
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("Serving round API", "addr", httpServer.Addr)
		listenErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("round api on %s: %w", httpServer.Addr, err)
	case <-ctx.Done():
	}

	logger.Info("Draining round API", "timeout", common.SHUTDOWN_TIMEOUT)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), common.SHUTDOWN_TIMEOUT)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// StartHttpServer serves the round API on port until SIGINT or SIGTERM.
func StartHttpServer(logger hclog.Logger, router http.Handler, port int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, logger, NewHttpServer(logger, router, port))
}
