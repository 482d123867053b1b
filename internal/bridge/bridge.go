// Package bridge assembles the shuttle reporting service.
package bridge

import (
	"context"
	"time"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/server"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/stops"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

const shutdownTimeout = 5 * time.Second

// startupRefresher is the part of the stop cache used before serving.
type startupRefresher interface {
	Refresh(ctx context.Context) ([]stops.Stop, error)
	Restore(ctx context.Context) error
}

// Server is the main application struct.
type Server struct {
	serverManager *server.Manager
	stops         startupRefresher
	closeMirror   func(context.Context)
}

// Run loads the allowed stops and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log.Info("Starting shuttlebridge...")

	s.loadStops(ctx)

	err := s.serverManager.Start(ctx)

	if s.closeMirror != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.closeMirror(closeCtx)
	}
	return err
}

// loadStops fetches the stop list once. When the regulator is unreachable the
// archived copy is used until the next scheduled refresh succeeds.
func (s *Server) loadStops(ctx context.Context) {
	_, err := s.stops.Refresh(ctx)
	if err == nil {
		return
	}
	log.Warn("Initial allowed-stop refresh failed", "error", err)
	if err := s.stops.Restore(ctx); err != nil {
		log.Warn("No archived allowed stops available", "error", err)
	}
}
