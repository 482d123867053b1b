// Package alert sends out-of-band fault notifications.
package alert

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/shuttlebridge/internal/pkg/metrics"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

// DefaultSubject is used for loop fault alerts.
const DefaultSubject = "Error sending data to SFMTA"

// Notifier delivers one alert.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Nop discards alerts. It is used when no alert channel is configured.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }

// RateLimited lets at most one alert through per cooldown and drops the rest.
type RateLimited struct {
	next    Notifier
	limiter *rate.Limiter
	clock   clock.PassiveClock
}

// NewRateLimited wraps next. The first alert is always delivered.
func NewRateLimited(next Notifier, cooldown time.Duration, clk clock.PassiveClock) *RateLimited {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(cooldown), 1),
		clock:   clk,
	}
}

// Notify forwards the alert unless one was sent within the cooldown.
// Suppressed alerts are not an error.
func (r *RateLimited) Notify(ctx context.Context, subject, body string) error {
	if !r.limiter.AllowN(r.clock.Now(), 1) {
		metrics.AlertsTotal.WithLabelValues("suppressed").Inc()
		log.FromContext(ctx).Debug("Alert suppressed by cooldown", "subject", subject)
		return nil
	}
	return r.next.Notify(ctx, subject, body)
}
