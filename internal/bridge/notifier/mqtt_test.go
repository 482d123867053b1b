package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/report"
	"github.com/autopeer-io/shuttlebridge/pkg/mqtt/topic"
)

type published struct {
	topic   string
	qos     int
	retain  bool
	payload []byte
}

type recordingClient struct {
	offline bool
	msgs    []published
}

func (c *recordingClient) Start(context.Context) error { return nil }
func (c *recordingClient) Disconnect(context.Context)  {}
func (c *recordingClient) Connected() bool             { return !c.offline }
func (c *recordingClient) Publish(_ context.Context, topic string, qos int, retain bool, payload []byte) error {
	c.msgs = append(c.msgs, published{topic, qos, retain, payload})
	return nil
}

func TestNotify(t *testing.T) {
	client := &recordingClient{}
	n := NewMQTTNotifier(client, topic.NewBuilder("/shuttlebridge/v1/"), 1)

	rec := report.Record{VehiclePlacardNum: "100", StopId: 7, VehicleStatus: 2}
	if err := n.Notify(context.Background(), "V1", rec); err != nil {
		t.Fatal(err)
	}
	if len(client.msgs) != 1 {
		t.Fatalf("published %d messages", len(client.msgs))
	}
	msg := client.msgs[0]
	if msg.topic != "shuttlebridge/v1/report/V1" || msg.qos != 1 || !msg.retain {
		t.Errorf("unexpected publish: %+v", msg)
	}
	var got report.Record
	if err := json.Unmarshal(msg.payload, &got); err != nil || got.StopId != 7 {
		t.Errorf("payload = %s (%v)", msg.payload, err)
	}
}

func TestNotifyOffline(t *testing.T) {
	client := &recordingClient{offline: true}
	n := NewMQTTNotifier(client, topic.NewBuilder("shuttlebridge/v1"), 0)

	err := n.Notify(context.Background(), "V1", report.Record{})
	if !errors.Is(err, ErrOffline) {
		t.Fatalf("Notify = %v, want ErrOffline", err)
	}
	if len(client.msgs) != 0 {
		t.Error("nothing should be published while offline")
	}
}
