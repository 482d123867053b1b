// Package dispatch pushes one record per vehicle to the regulator.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/report"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/sfmta"
	"github.com/autopeer-io/shuttlebridge/internal/pkg/httputil"
	"github.com/autopeer-io/shuttlebridge/internal/pkg/metrics"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

// Pusher delivers one JSON-encoded record.
type Pusher interface {
	PushTelemetry(ctx context.Context, payload []byte) error
}

// Builder assembles the record of a vehicle.
type Builder interface {
	Build(deviceID string, now time.Time) (report.Record, error)
}

// Mirror receives a copy of every record that was pushed successfully.
type Mirror interface {
	Notify(ctx context.Context, deviceID string, rec report.Record) error
}

// Options tunes retries and fan-out.
type Options struct {
	// MaxRetries bounds retries of transport failures per vehicle.
	MaxRetries uint64
	// InitialInterval is the first retry delay; later delays double.
	InitialInterval time.Duration
	// MaxConcurrency bounds in-flight pushes. Zero or negative means unbounded.
	MaxConcurrency int
}

// DefaultOptions returns 5 retries starting at 1s with 64 concurrent pushes.
func DefaultOptions() Options {
	return Options{MaxRetries: 5, InitialInterval: time.Second, MaxConcurrency: 64}
}

// Error is a failed dispatch for one vehicle.
type Error struct {
	DeviceID  string
	Timestamp string
	Payload   []byte
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dispatching %s at %s: %v", e.DeviceID, e.Timestamp, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PanicError is a panic recovered from the work of one vehicle.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Summary is the outcome of one DispatchAll.
type Summary struct {
	Sent    int
	Skipped int
	Errors  []*Error
	// Panic is the first panic recovered from a worker, if any. The vehicle
	// is also listed in Errors.
	Panic *PanicError
}

// Failed returns the number of vehicles whose push failed.
func (s Summary) Failed() int { return len(s.Errors) }

// Dispatcher fans records out to the regulator.
type Dispatcher struct {
	builder Builder
	pusher  Pusher
	mirror  Mirror
	opts    Options
}

// New returns a Dispatcher. mirror may be nil.
func New(builder Builder, pusher Pusher, mirror Mirror, opts Options) *Dispatcher {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	return &Dispatcher{builder: builder, pusher: pusher, mirror: mirror, opts: opts}
}

// DispatchAll builds and pushes a record for every id concurrently and waits
// for all of them. A failing vehicle never affects the others; failures are
// logged and returned in the Summary.
func (d *Dispatcher) DispatchAll(ctx context.Context, ids []string, now time.Time) Summary {
	logger := log.FromContext(ctx)

	var (
		mu      sync.Mutex
		summary Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	if d.opts.MaxConcurrency > 0 {
		g.SetLimit(d.opts.MaxConcurrency)
	}

	for _, id := range ids {
		g.Go(func() error {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				perr := &PanicError{Value: r, Stack: debug.Stack()}
				logger.Error(perr, "Recovered panic while dispatching vehicle", "deviceID", id)
				metrics.ReportsTotal.WithLabelValues("failed").Inc()
				mu.Lock()
				summary.Errors = append(summary.Errors, &Error{DeviceID: id, Err: perr})
				if summary.Panic == nil {
					summary.Panic = perr
				}
				mu.Unlock()
			}()

			rec, err := d.builder.Build(id, now)
			if err != nil {
				logger.Debug("Skipping vehicle", "deviceID", id, "reason", err.Error())
				metrics.ReportsTotal.WithLabelValues("skipped").Inc()
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return nil
			}

			if derr := d.dispatch(gctx, id, rec); derr != nil {
				logger.Error(derr.Err, "Error pushing data to regulator",
					"deviceID", derr.DeviceID, "timestamp", derr.Timestamp, "payload", string(derr.Payload))
				mu.Lock()
				summary.Errors = append(summary.Errors, derr)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			summary.Sent++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return summary
}

func (d *Dispatcher) dispatch(ctx context.Context, id string, rec report.Record) *Error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return &Error{DeviceID: id, Timestamp: rec.TimeStampLocal, Err: err}
	}

	start := time.Now()
	err = d.push(ctx, id, payload)
	metrics.PushLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		var rejected *sfmta.RejectedError
		if errors.As(err, &rejected) {
			metrics.ReportsTotal.WithLabelValues("rejected").Inc()
		} else {
			metrics.ReportsTotal.WithLabelValues("failed").Inc()
		}
		return &Error{DeviceID: id, Timestamp: rec.TimeStampLocal, Payload: payload, Err: err}
	}
	metrics.ReportsTotal.WithLabelValues("sent").Inc()

	if d.mirror != nil {
		if err := d.mirror.Notify(ctx, id, rec); err != nil {
			log.FromContext(ctx).Debug("Failed to mirror report", "deviceID", id, "error", err)
		}
	}
	return nil
}

// push retries transport failures and temporary statuses with exponential
// backoff. Any other answer from the regulator is final.
func (d *Dispatcher) push(ctx context.Context, id string, payload []byte) error {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(d.opts.InitialInterval),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)

	op := func() error {
		err := d.pusher.PushTelemetry(ctx, payload)
		if err == nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.FromContext(ctx).Warn("Retrying telemetry push", "deviceID", id, "error", err, "wait", wait)
	}

	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, d.opts.MaxRetries), ctx), notify)
}

// retryable is true for transport failures and for statuses that signal a
// briefly unavailable regulator.
func retryable(err error) bool {
	var (
		status   *httputil.StatusError
		rejected *sfmta.RejectedError
	)
	if errors.As(err, &status) {
		return status.Temporary()
	}
	return !errors.As(err, &rejected)
}
