package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/report"
	pkgmqtt "github.com/autopeer-io/shuttlebridge/pkg/mqtt"
	"github.com/autopeer-io/shuttlebridge/pkg/mqtt/topic"
	"github.com/autopeer-io/shuttlebridge/pkg/options"
)

// publishTimeout bounds a single mirror publish so a broker outage never
// stalls dispatch.
const publishTimeout = 5 * time.Second

// MQTTNotifier mirrors every record sent to the regulator onto an MQTT topic
// per vehicle, for downstream consumers that want the same feed.
type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.Builder
	qos    int
}

// NewMQTTNotifier wraps an already configured client.
func NewMQTTNotifier(client pkgmqtt.Client, builder *topic.Builder, qos int) *MQTTNotifier {
	return &MQTTNotifier{
		client: client,
		topics: builder,
		qos:    qos,
	}
}

// NewMQTTNotifierFromOptions creates a dedicated egress client and starts it.
// The connection is established in the background.
func NewMQTTNotifierFromOptions(ctx context.Context, opts *options.MqttOptions) (*MQTTNotifier, error) {
	cfg := opts.ToClientConfig()
	cfg.ClientID = opts.ClientID + "-mirror"

	client, err := pkgmqtt.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting mqtt client: %w", err)
	}

	return NewMQTTNotifier(client, topic.NewBuilder(opts.TopicRoot), opts.QoS), nil
}

// ErrOffline is returned by Notify while the broker is unreachable.
var ErrOffline = errors.New("report mirror is offline")

// Notify publishes rec to {root}/report/{deviceID}. Reports are retained so
// late subscribers see the last known state. While the broker is down records
// are dropped rather than queued.
func (n *MQTTNotifier) Notify(ctx context.Context, deviceID string, rec report.Record) error {
	if !n.client.Connected() {
		return ErrOffline
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return n.client.Publish(ctx, n.topics.Report(deviceID), n.qos, true, payload)
}

// Close disconnects the underlying client.
func (n *MQTTNotifier) Close(ctx context.Context) {
	n.client.Disconnect(ctx)
}
