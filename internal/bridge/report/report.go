// Package report turns cached vehicle state into the record pushed to the
// regulator.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/geo"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/roster"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/telematics"
)

// TimestampLayout is the regulator's local wall-clock format.
const TimestampLayout = "2006-01-02T15:04:05"

// Vehicle statuses.
const (
	StatusOnTrip          = 1
	StatusAtStopOrUnknown = 2
)

var (
	ErrNotInRoster = errors.New("vehicle is not in the roster")
	ErrNoSnapshot  = errors.New("vehicle has no location snapshot")
)

// Record is the telemetry payload for one vehicle. Field order is the wire order.
type Record struct {
	TechProviderId    int      `json:"TechProviderId"`
	ShuttleCompanyId  string   `json:"ShuttleCompanyId"`
	VehiclePlacardNum string   `json:"VehiclePlacardNum"`
	LicensePlateNum   string   `json:"LicensePlateNum"`
	StopId            int      `json:"StopId"`
	VehicleStatus     int      `json:"VehicleStatus"`
	LocationLatitude  *float64 `json:"LocationLatitude"`
	LocationLongitude *float64 `json:"LocationLongitude"`
	TimeStampLocal    string   `json:"TimeStampLocal"`
}

type (
	// RosterReader resolves vehicle identity.
	RosterReader interface {
		Get(deviceID string) (roster.Vehicle, bool)
	}
	// SnapshotReader resolves the last known vehicle state.
	SnapshotReader interface {
		Get(deviceID string) (telematics.Snapshot, bool)
	}
	// StopReader exposes the allowed stops.
	StopReader interface {
		Points() []geo.Point
	}
)

// Config holds the static identity fields and matching parameters.
type Config struct {
	TechProviderID   int
	ShuttleCompanyID string
	// Location is the regulator's timezone. Defaults to time.Local.
	Location *time.Location
	// Threshold is the stop matching radius in meters.
	Threshold float64
}

// Builder assembles records from the caches. It holds no state of its own.
type Builder struct {
	cfg       Config
	roster    RosterReader
	snapshots SnapshotReader
	stops     StopReader
}

// NewBuilder returns a Builder reading from the given caches.
func NewBuilder(cfg Config, r RosterReader, s SnapshotReader, st StopReader) *Builder {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = geo.DefaultThreshold
	}
	return &Builder{cfg: cfg, roster: r, snapshots: s, stops: st}
}

// Build assembles the record of deviceID at now. A vehicle on trip is never
// matched to a stop.
func (b *Builder) Build(deviceID string, now time.Time) (Record, error) {
	v, ok := b.roster.Get(deviceID)
	if !ok {
		return Record{}, fmt.Errorf("%s: %w", deviceID, ErrNotInRoster)
	}
	snap, ok := b.snapshots.Get(deviceID)
	if !ok {
		return Record{}, fmt.Errorf("%s: %w", deviceID, ErrNoSnapshot)
	}

	status, stop := StatusOnTrip, geo.NoStop
	if !snap.OnTrip {
		status = StatusAtStopOrUnknown
		stop = geo.NearestStop(snap.Latitude, snap.Longitude, b.stops.Points(), b.cfg.Threshold)
	}

	return Record{
		TechProviderId:    b.cfg.TechProviderID,
		ShuttleCompanyId:  b.cfg.ShuttleCompanyID,
		VehiclePlacardNum: v.PlacardNumber,
		LicensePlateNum:   v.LicensePlate,
		StopId:            stop,
		VehicleStatus:     status,
		LocationLatitude:  snap.Latitude,
		LocationLongitude: snap.Longitude,
		TimeStampLocal:    FormatTimestamp(now, b.cfg.Location),
	}, nil
}

// FormatTimestamp renders t as local wall-clock time in loc, at second resolution.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(TimestampLayout)
}
