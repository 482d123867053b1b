package mqtt

import (
	"testing"
	"time"
)

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{"valid tcp", ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "sb"}, false},
		{"valid wss", ClientConfig{BrokerURL: "wss://broker.example.com/mqtt", ClientID: "sb"}, false},
		{"missing broker", ClientConfig{ClientID: "sb"}, true},
		{"bad scheme", ClientConfig{BrokerURL: "http://localhost", ClientID: "sb"}, true},
		{"missing client id", ClientConfig{BrokerURL: "tcp://localhost:1883"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	cfg := &ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "sb"}
	if _, err := NewClient(cfg); err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if cfg.KeepAlive != 60 || cfg.ConnectTimeout != 5*time.Second || cfg.ReconnectDelay != 3*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestPublishBeforeStart(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "sb"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Publish(t.Context(), "t", 0, false, nil); err != ErrNotStarted {
		t.Errorf("Publish before Start = %v, want ErrNotStarted", err)
	}
}

func TestTLSOnlyForSecureSchemes(t *testing.T) {
	tests := []struct {
		broker  string
		wantTLS bool
	}{
		{"tcp://localhost:1883", false},
		{"ws://localhost:8080/mqtt", false},
		{"mqtts://broker.example.com:8883", true},
		{"wss://broker.example.com/mqtt", true},
	}
	for _, tt := range tests {
		c, err := NewClient(&ClientConfig{BrokerURL: tt.broker, ClientID: "sb", InsecureSkipVerify: true})
		if err != nil {
			t.Fatal(err)
		}
		cfg := c.(*publisher).tlsConfig()
		if (cfg != nil) != tt.wantTLS {
			t.Errorf("%s: tls = %v, want %v", tt.broker, cfg != nil, tt.wantTLS)
		}
		if cfg != nil && !cfg.InsecureSkipVerify {
			t.Errorf("%s: InsecureSkipVerify not carried", tt.broker)
		}
		if c.Connected() {
			t.Errorf("%s: connected before Start", tt.broker)
		}
	}
}
