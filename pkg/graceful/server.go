// Package graceful runs the metrics and health HTTP listener and
// drains it cleanly when the process shuts down.
package graceful

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server ties an http.Server to a context so cancellation drains
// in-flight scrapes and probes instead of cutting them off.
type Server struct {
	srv          *http.Server
	log          *slog.Logger
	drainTimeout time.Duration
}

// NewServer wraps srv. shutdownTimeout bounds how long Shutdown may
// wait for open connections once the context is canceled.
func NewServer(log *slog.Logger, srv *http.Server, shutdownTimeout time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{srv: srv, log: log, drainTimeout: shutdownTimeout}
}

// ListenAndServe serves until ctx is canceled, then drains. A listen
// failure (port in use, bad addr) returns immediately rather than
// waiting for cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", slog.String("addr", s.srv.Addr))
		serveErr <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.log.Error("http server failed", slog.Any("error", err))
		return err
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()

	s.log.Info("draining http server", slog.Duration("timeout", s.drainTimeout))
	if err := s.srv.Shutdown(drainCtx); err != nil {
		s.log.Error("http server drain failed", slog.Any("error", err))
		return err
	}

	<-serveErr
	return nil
}
