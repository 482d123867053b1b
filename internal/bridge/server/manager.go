package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

// Server defines the common interface for long-running components
// (the HTTP server, the reporting loop).
type Server interface {
	Start(ctx context.Context) error
}

// ServerFunc adapts a function to Server.
type ServerFunc func(ctx context.Context) error

func (f ServerFunc) Start(ctx context.Context) error { return f(ctx) }

// Manager manages the lifecycle of all components.
type Manager struct {
	servers []Server
}

// NewManager creates a manager over servers.
func NewManager(servers ...Server) *Manager {
	return &Manager{servers: servers}
}

// Start launches all servers in parallel and waits until every one has
// returned. The first error cancels the others.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
