// Package stops caches the regulator's list of allowed stops.
package stops

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/geo"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

// ErrEmpty is returned when an empty stop list is rejected.
var ErrEmpty = errors.New("allowed stop list is empty")

// Stop is a regulator-defined point a vehicle may be considered "at".
type Stop struct {
	StopID    int     `json:"StopId"`
	Latitude  float64 `json:"StopLocationLatitude"`
	Longitude float64 `json:"StopLocationLongitude"`
}

// Fetcher retrieves the current allowed-stop list from the regulator.
type Fetcher interface {
	FetchStops(ctx context.Context) ([]Stop, error)
}

// Archive keeps a copy of the last good stop list outside the process.
type Archive interface {
	Store(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
}

// Options tunes a Cache.
type Options struct {
	// Period between successful refreshes.
	Period time.Duration
	// RetryAfter is the minimum wait after a failed refresh.
	RetryAfter time.Duration
	// RequireNonEmpty rejects an empty list instead of replacing the cache with it.
	RequireNonEmpty bool
}

// Cache holds an ordered, immutable snapshot of the allowed stops and
// refreshes it once per Period measured from the last success.
type Cache struct {
	fetcher Fetcher
	archive Archive
	clock   clock.PassiveClock
	opts    Options

	mu          sync.RWMutex
	stops       []Stop
	points      []geo.Point
	lastRefresh time.Time
	lastFailure time.Time
}

// NewCache returns an empty cache. archive may be nil.
func NewCache(fetcher Fetcher, archive Archive, clk clock.PassiveClock, opts Options) *Cache {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if opts.Period <= 0 {
		opts.Period = 24 * time.Hour
	}
	return &Cache{
		fetcher: fetcher,
		archive: archive,
		clock:   clk,
		opts:    opts,
	}
}

// Refresh fetches the stop list and replaces the cache wholesale. On failure
// the previous list is kept and the error returned.
func (c *Cache) Refresh(ctx context.Context) ([]Stop, error) {
	now := c.clock.Now()

	list, err := c.fetcher.FetchStops(ctx)
	if err == nil && len(list) == 0 && c.opts.RequireNonEmpty {
		err = ErrEmpty
	}
	if err != nil {
		c.mu.Lock()
		c.lastFailure = now
		c.mu.Unlock()
		return nil, fmt.Errorf("refreshing allowed stops: %w", err)
	}

	c.replace(list, now)
	log.Info("Allowed stops refreshed", "stops", len(list))

	if c.archive != nil {
		if err := c.store(ctx, list); err != nil {
			log.Error(err, "Failed to archive allowed stops")
		}
	}
	return list, nil
}

// Due reports whether the next RefreshIfDue would fetch.
func (c *Cache) Due() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.clock.Now()
	if !c.lastFailure.IsZero() && c.lastFailure.After(c.lastRefresh) && now.Sub(c.lastFailure) < c.opts.RetryAfter {
		return false
	}
	return c.lastRefresh.IsZero() || now.Sub(c.lastRefresh) >= c.opts.Period
}

// RefreshIfDue refreshes when Period has elapsed since the last success.
// Failures are logged and reported but never clear the cache.
func (c *Cache) RefreshIfDue(ctx context.Context) (bool, error) {
	if !c.Due() {
		return false, nil
	}
	if _, err := c.Refresh(ctx); err != nil {
		log.Warn("Keeping stale allowed stops", "error", err, "stops", c.Len())
		return true, err
	}
	return true, nil
}

// Restore seeds an empty cache from the archive. It does not count as a
// refresh, so the next RefreshIfDue still contacts the regulator.
func (c *Cache) Restore(ctx context.Context) error {
	if c.archive == nil {
		return nil
	}
	data, err := c.archive.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading archived stops: %w", err)
	}
	list, err := Decode(data)
	if err != nil {
		return fmt.Errorf("decoding archived stops: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stops) == 0 {
		c.stops, c.points = list, toPoints(list)
		log.Info("Allowed stops restored from archive", "stops", len(list))
	}
	return nil
}

// Points returns the cached list in the form NearestStop consumes.
func (c *Cache) Points() []geo.Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.points
}

// Len returns the number of cached stops.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stops)
}

func (c *Cache) replace(list []Stop, at time.Time) {
	points := toPoints(list)

	c.mu.Lock()
	c.stops, c.points, c.lastRefresh = list, points, at
	c.mu.Unlock()
}

func (c *Cache) store(ctx context.Context, list []Stop) error {
	data, err := Encode(list)
	if err != nil {
		return err
	}
	return c.archive.Store(ctx, data)
}

func toPoints(list []Stop) []geo.Point {
	points := make([]geo.Point, len(list))
	for i, s := range list {
		points[i] = geo.Point{ID: s.StopID, Latitude: s.Latitude, Longitude: s.Longitude}
	}
	return points
}
