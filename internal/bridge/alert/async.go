package alert

import (
	"context"
	"errors"

	"github.com/autopeer-io/shuttlebridge/internal/pkg/metrics"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

// ErrQueueFull is returned when an alert arrives while the delivery queue
// is full. The alert is dropped.
var ErrQueueFull = errors.New("alert queue is full")

type message struct {
	subject, body string
	logger        log.Logger
}

// Async hands alerts to a background worker so a slow relay never holds up
// the caller.
type Async struct {
	next  Notifier
	queue chan message
}

var _ Notifier = (*Async)(nil)

// NewAsync starts a worker that delivers queued alerts through next until
// ctx is done. size bounds the number of pending alerts.
func NewAsync(ctx context.Context, next Notifier, size int) *Async {
	if size <= 0 {
		size = 1
	}
	a := &Async{
		next:  next,
		queue: make(chan message, size),
	}
	go a.work(ctx)
	return a
}

// Notify queues the alert and returns at once.
func (a *Async) Notify(ctx context.Context, subject, body string) error {
	select {
	case a.queue <- message{subject: subject, body: body, logger: log.FromContext(ctx)}:
		return nil
	default:
		metrics.AlertsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

func (a *Async) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-a.queue:
			if err := a.next.Notify(ctx, m.subject, m.body); err != nil {
				metrics.AlertsTotal.WithLabelValues("failed").Inc()
				m.logger.Error(err, "Failed to send fault alert", "subject", m.subject)
				continue
			}
			metrics.AlertsTotal.WithLabelValues("sent").Inc()
		}
	}
}
