package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*BridgeOptions)(nil)

// BridgeOptions tunes the reporting loop.
type BridgeOptions struct {
	Interval        time.Duration `json:"interval" mapstructure:"interval" validate:"gt=0"`
	MaxBackoff      time.Duration `json:"max-backoff" mapstructure:"max-backoff" validate:"gtefield=Interval"`
	MaxConcurrency  int           `json:"max-concurrency" mapstructure:"max-concurrency" validate:"gte=0"`
	MaxRetries      uint64        `json:"max-retries" mapstructure:"max-retries"`
	RetryInterval   time.Duration `json:"retry-interval" mapstructure:"retry-interval" validate:"gt=0"`
	StopRefresh     time.Duration `json:"stop-refresh" mapstructure:"stop-refresh" validate:"gt=0"`
	StopRetry       time.Duration `json:"stop-retry" mapstructure:"stop-retry" validate:"gte=0"`
	StopThreshold   float64       `json:"stop-threshold" mapstructure:"stop-threshold" validate:"gt=0"`
	Timezone        string        `json:"timezone" mapstructure:"timezone" validate:"required"`
	EvictStale      bool          `json:"evict-stale" mapstructure:"evict-stale"`
	RequireNonEmpty bool          `json:"require-non-empty" mapstructure:"require-non-empty"`
	Autostart       bool          `json:"autostart" mapstructure:"autostart"`
}

func NewBridgeOptions() *BridgeOptions {
	return &BridgeOptions{
		Interval:       5 * time.Second,
		MaxBackoff:     time.Minute,
		MaxConcurrency: 64,
		MaxRetries:     5,
		RetryInterval:  time.Second,
		StopRefresh:    24 * time.Hour,
		StopRetry:      time.Minute,
		StopThreshold:  50,
		Timezone:       "America/Los_Angeles",
	}
}

// Location loads the configured timezone.
func (o *BridgeOptions) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return nil, fmt.Errorf("--bridge.timezone: %w", err)
	}
	return loc, nil
}

func (o *BridgeOptions) Validate() []error {
	errs := validateStruct("bridge", o)
	if o.Timezone != "" {
		if _, err := o.Location(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (o *BridgeOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Interval, "bridge.interval", o.Interval, "Target length of a reporting cycle.")
	fs.DurationVar(&o.MaxBackoff, "bridge.max-backoff", o.MaxBackoff, "Longest wait after repeated location fetch failures.")
	fs.IntVar(&o.MaxConcurrency, "bridge.max-concurrency", o.MaxConcurrency, "Maximum concurrent telemetry pushes (0 = unbounded).")
	fs.Uint64Var(&o.MaxRetries, "bridge.max-retries", o.MaxRetries, "Retries of a telemetry push after a transport failure.")
	fs.DurationVar(&o.RetryInterval, "bridge.retry-interval", o.RetryInterval, "First retry delay of a telemetry push; later delays double.")
	fs.DurationVar(&o.StopRefresh, "bridge.stop-refresh", o.StopRefresh, "Period between allowed-stop refreshes.")
	fs.DurationVar(&o.StopRetry, "bridge.stop-retry", o.StopRetry, "Wait before retrying a failed allowed-stop refresh.")
	fs.Float64Var(&o.StopThreshold, "bridge.stop-threshold", o.StopThreshold, "Distance in meters within which a vehicle is at a stop.")
	fs.StringVar(&o.Timezone, "bridge.timezone", o.Timezone, "IANA timezone of reported timestamps.")
	fs.BoolVar(&o.EvictStale, "bridge.evict-stale", o.EvictStale, "Forget vehicles missing from the latest location fetch instead of reusing their last position.")
	fs.BoolVar(&o.RequireNonEmpty, "bridge.require-non-empty", o.RequireNonEmpty, "Reject empty roster or stop lists instead of replacing the cache with them.")
	fs.BoolVar(&o.Autostart, "bridge.autostart", o.Autostart, "Start the reporting loop at startup instead of waiting for /push_sfmta.")
}
