package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/logging"
)

// Server runs the HTTP API until its context is cancelled.
//
// No read or write timeout is set on the server: uploads and archives may
// stream for as long as TransferTimeout allows.
type Server struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
	shutdownOnce    sync.Once
}

func NewServer(addr string, h http.Handler, l logging.Logger, shutdownTimeout time.Duration) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger:          l.With("module", "http_server"),
		shutdownTimeout: shutdownTimeout,
	}
}

// Run listens, calls ready once the socket is bound, and serves until ctx is
// cancelled. In-flight requests get shutdownTimeout to finish.
func (s *Server) Run(ctx context.Context, ready func()) error {
	listen, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
		if err := s.server.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	if ready != nil {
		ready()
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("http server shutdown: %w", err)
		}
	})
	return shutdownErr
}
