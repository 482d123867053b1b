package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/scheduler"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/stops"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
	"github.com/autopeer-io/shuttlebridge/pkg/options"
)

// Loop is the reporting loop as controlled over HTTP.
type Loop interface {
	Start(ctx context.Context) error
	Running() bool
	Ready() bool
	State() string
}

// StopRefresher refreshes the allowed-stop list on demand.
type StopRefresher interface {
	Refresh(ctx context.Context) ([]stops.Stop, error)
}

type Server struct {
	server  *http.Server
	options *options.HttpOptions
	loop    Loop
	stops   StopRefresher

	// baseCtx outlives requests; the loop started by a trigger runs under it.
	baseCtx context.Context
}

func NewServer(opts *options.HttpOptions, loop Loop, refresher StopRefresher) *Server {
	s := &Server{
		options: opts,
		loop:    loop,
		stops:   refresher,
		baseCtx: context.Background(),
	}

	s.server = &http.Server{
		Addr:              opts.BindAddress(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       opts.Timeout,
		WriteTimeout:      opts.Timeout,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/push_sfmta", s.handlePush).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/get_sfmta_stops", s.handleGetStops).Methods(http.MethodGet, http.MethodPost)

	// Static liveness for the load balancer.
	r.HandleFunc("/admin/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hello World!"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Ready once a cycle has completed its dispatch. The body names the
	// loop state.
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.loop.Ready() {
			http.Error(w, "not ready: "+s.loop.State(), http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "ok: %s", s.loop.State())
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	err := s.loop.Start(s.baseCtx)
	if errors.Is(err, scheduler.ErrAlreadyRunning) {
		http.Error(w, "Push to SFMTA is already running", http.StatusConflict)
		return
	}
	if err != nil {
		log.Error(err, "Failed to start reporting loop")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Info("Started push to SFMTA", "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("Started push to SFMTA"))
}

func (s *Server) handleGetStops(w http.ResponseWriter, r *http.Request) {
	list, err := s.stops.Refresh(r.Context())
	if err != nil {
		log.Error(err, "On-demand stop refresh failed")
		http.Error(w, "Failed to update SFMTA Allowed Stops", http.StatusBadGateway)
		return
	}
	fmt.Fprintf(w, "SFMTA Allowed Stops updated (%d stops)", len(list))
}

func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	log.Info("Starting HTTP Server", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
