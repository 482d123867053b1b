// Package telematics keeps the latest known position of every vehicle.
package telematics

import (
	"context"
	"fmt"
	"sync"
)

// Snapshot is the last reported state of one vehicle. Latitude and Longitude
// are nil when the provider did not report a fix.
type Snapshot struct {
	DeviceID  string
	Latitude  *float64
	Longitude *float64
	OnTrip    bool
}

// Fetcher retrieves positions for the whole fleet group in one call.
type Fetcher interface {
	FetchLocations(ctx context.Context) ([]Snapshot, error)
}

// Store holds one Snapshot per device id.
type Store struct {
	fetcher    Fetcher
	evictStale bool

	mu    sync.RWMutex
	snaps map[string]Snapshot
}

// NewStore returns an empty store. When evictStale is set, vehicles missing
// from a successful fetch are forgotten instead of keeping their last
// known position.
func NewStore(fetcher Fetcher, evictStale bool) *Store {
	return &Store{
		fetcher:    fetcher,
		evictStale: evictStale,
		snaps:      make(map[string]Snapshot),
	}
}

// FetchAll performs a single fleet-wide fetch and overwrites the snapshot of
// every vehicle present in the response. ids is the current roster; vehicles
// outside it are still recorded so a roster added later can use them. On
// error nothing is modified.
func (s *Store) FetchAll(ctx context.Context, ids []string) error {
	list, err := s.fetcher.FetchLocations(ctx)
	if err != nil {
		return fmt.Errorf("fetching vehicle locations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evictStale {
		s.snaps = make(map[string]Snapshot, len(list))
	}
	for _, snap := range list {
		if snap.DeviceID == "" {
			continue
		}
		s.snaps[snap.DeviceID] = snap
	}
	return nil
}

// Get returns the snapshot of id.
func (s *Store) Get(id string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[id]
	return snap, ok
}

// Covered returns the subset of ids that have a snapshot, preserving order.
func (s *Store) Covered(ids []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.snaps[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of known vehicles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}
