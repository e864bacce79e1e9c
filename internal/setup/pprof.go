package setup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	// #nosec G108 -- registered on the default mux, served on localhost only
	_ "net/http/pprof"
	"time"

	"go.uber.org/zap"
)

// pprofServer serves the runtime profiling endpoints on localhost.
type pprofServer struct {
	srv      *http.Server
	listener net.Listener
	logger   *zap.Logger
}

func startPprofServer(port int, logger *zap.Logger) (*pprofServer, error) {
	addr := fmt.Sprintf("localhost:%d", port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &pprofServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           http.DefaultServeMux,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
		logger:   logger.Named("pprof"),
	}

	go func() {
		server.logger.Info("Serving pprof", zap.String("address", addr))

		if err := server.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.logger.Error("pprof server failed", zap.Error(err))
		}
	}()

	return server, nil
}

func (p *pprofServer) shutdown(ctx context.Context) {
	if err := p.srv.Shutdown(ctx); err != nil {
		p.logger.Error("Failed to shut down pprof server", zap.Error(err))
	}

	p.listener.Close()
}
