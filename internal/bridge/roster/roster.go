// Package roster holds the identity metadata of every reporting vehicle.
package roster

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

// ErrEmpty is returned by Refresh when the feed yields no vehicles and the
// cache was configured to reject empty results.
var ErrEmpty = errors.New("roster feed returned no vehicles")

// Vehicle is the identity of one vehicle, keyed by its telematics device id.
type Vehicle struct {
	DeviceID      string `json:"deviceId"`
	PlacardNumber string `json:"placardNumber"`
	LicensePlate  string `json:"licensePlate"`
	DisplayName   string `json:"displayName"`
}

// Fetcher retrieves the complete roster from its source of record.
type Fetcher interface {
	FetchRoster(ctx context.Context) ([]Vehicle, error)
}

// Cache is the in-memory roster. Each successful Refresh replaces the whole
// set; a failed one leaves the previous set untouched.
type Cache struct {
	fetcher         Fetcher
	requireNonEmpty bool

	mu       sync.RWMutex
	vehicles map[string]Vehicle
}

// NewCache returns an empty Cache backed by fetcher. With requireNonEmpty, a
// successful but empty fetch is treated as a failure.
func NewCache(fetcher Fetcher, requireNonEmpty bool) *Cache {
	return &Cache{
		fetcher:         fetcher,
		requireNonEmpty: requireNonEmpty,
		vehicles:        make(map[string]Vehicle),
	}
}

// Refresh fetches the roster and replaces the cached set.
func (c *Cache) Refresh(ctx context.Context) error {
	vehicles, err := c.fetcher.FetchRoster(ctx)
	if err != nil {
		return fmt.Errorf("fetching roster: %w", err)
	}
	if len(vehicles) == 0 && c.requireNonEmpty {
		return ErrEmpty
	}

	c.Replace(vehicles)
	log.Debug("Roster refreshed", "vehicles", len(vehicles))
	return nil
}

// Replace swaps the cached set for vehicles. Entries without a device id are
// dropped; for duplicated ids the last entry wins.
func (c *Cache) Replace(vehicles []Vehicle) {
	next := make(map[string]Vehicle, len(vehicles))
	for _, v := range vehicles {
		if v.DeviceID == "" {
			log.Warn("Skipping roster entry without device id", "placard", v.PlacardNumber, "name", v.DisplayName)
			continue
		}
		next[v.DeviceID] = v
	}

	c.mu.Lock()
	c.vehicles = next
	c.mu.Unlock()
}

// Get returns the identity of deviceID.
func (c *Cache) Get(deviceID string) (Vehicle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vehicles[deviceID]
	return v, ok
}

// IDs returns the cached device ids in ascending order.
func (c *Cache) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.vehicles))
	for id := range c.vehicles {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// List returns a copy of the cached vehicles ordered by device id.
func (c *Cache) List() []Vehicle {
	ids := c.IDs()

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Vehicle, 0, len(ids))
	for _, id := range ids {
		if v, ok := c.vehicles[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Len returns the number of cached vehicles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vehicles)
}
