package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

// ErrNotStarted is returned by operations invoked before Start.
var ErrNotStarted = errors.New("client not started")

// publisher is a Client backed by an autopaho connection manager, which
// reconnects on its own after the broker goes away.
type publisher struct {
	cfg    *ClientConfig
	broker *url.URL
	logger log.Logger

	cm        *autopaho.ConnectionManager
	connected atomic.Bool
}

// NewClient validates cfg and returns a client that is not yet connected.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, errors.New("mqtt config is required")
	}
	setDefaultConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}
	broker, _ := url.Parse(cfg.BrokerURL)

	return &publisher{
		cfg:    cfg,
		broker: broker,
		logger: log.WithName("mqtt").WithValues("broker", broker.Redacted(), "clientID", cfg.ClientID),
	}, nil
}

// tlsConfig returns nil for plain-text schemes.
func (p *publisher) tlsConfig() *tls.Config {
	switch p.broker.Scheme {
	case "ssl", "tls", "mqtts", "wss":
		return &tls.Config{InsecureSkipVerify: p.cfg.InsecureSkipVerify}
	}
	return nil
}

func (p *publisher) Start(ctx context.Context) error {
	cm, err := autopaho.NewConnection(ctx, autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{p.broker},
		TlsCfg:                        p.tlsConfig(),
		KeepAlive:                     p.cfg.KeepAlive,
		CleanStartOnInitialConnection: p.cfg.CleanStart,
		SessionExpiryInterval:         p.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(p.cfg.ReconnectDelay),
		ConnectTimeout:                p.cfg.ConnectTimeout,
		ConnectUsername:               p.cfg.Username,
		ConnectPassword:               []byte(p.cfg.Password),
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			p.connected.Store(true)
			p.logger.Info("MQTT connection established")
		},
		OnConnectError: func(err error) {
			p.connected.Store(false)
			p.logger.Error(err, "MQTT connection failed, retrying", "delay", p.cfg.ReconnectDelay)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: p.cfg.ClientID,
			OnClientError: func(err error) {
				p.connected.Store(false)
				p.logger.Error(err, "MQTT client error")
			},
			OnServerDisconnect: p.onServerDisconnect,
		},
	})
	if err != nil {
		return err
	}
	p.cm = cm
	p.logger.Info("MQTT client started")
	return nil
}

func (p *publisher) Disconnect(ctx context.Context) {
	if p.cm == nil {
		return
	}
	if err := p.cm.Disconnect(ctx); err != nil {
		p.logger.Warn("MQTT disconnect was not clean", "error", err)
	}
	p.connected.Store(false)
	p.logger.Info("MQTT client disconnected")
}

func (p *publisher) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if p.cm == nil {
		return ErrNotStarted
	}
	_, err := p.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (p *publisher) Connected() bool { return p.connected.Load() }

func (p *publisher) onServerDisconnect(d *paho.Disconnect) {
	p.connected.Store(false)
	if d.Properties != nil && d.Properties.ReasonString != "" {
		p.logger.Warn("MQTT server requested disconnect", "reason", d.Properties.ReasonString)
		return
	}
	p.logger.Warn("MQTT server requested disconnect", "reasonCode", d.ReasonCode)
}
