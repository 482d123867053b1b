package options

import (
	"strings"
	"testing"
	"time"
)

func TestValidateAddress(t *testing.T) {
	for addr, ok := range map[string]bool{
		"0.0.0.0:5000":   true,
		":8080":          true,
		"localhost:80":   true,
		"example.com:80": false,
		"0.0.0.0":        false,
		"0.0.0.0:99999":  false,
	} {
		if err := ValidateAddress(addr); (err == nil) != ok {
			t.Errorf("ValidateAddress(%q) = %v, want ok=%v", addr, err, ok)
		}
	}
}

func TestHttpBindAddress(t *testing.T) {
	o := NewHttpOptions()
	if got := o.BindAddress(); got != "0.0.0.0:5000" {
		t.Errorf("BindAddress = %s", got)
	}
	o.Localhost = true
	if got := o.BindAddress(); got != "127.0.0.1:5000" {
		t.Errorf("BindAddress with localhost = %s", got)
	}
}

func TestSfmtaURL(t *testing.T) {
	o := NewSfmtaOptions()
	if o.URL() != sfmtaProductionURL {
		t.Errorf("default URL = %s", o.URL())
	}
	o.Debug = true
	if o.URL() != sfmtaStagingURL {
		t.Errorf("debug URL = %s", o.URL())
	}
	o.BaseURL = "http://localhost:9000/api"
	if o.URL() != o.BaseURL {
		t.Errorf("override URL = %s", o.URL())
	}
}

func TestDomainValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    IOptions
		wantErr []string
	}{
		{"samsara defaults", NewSamsaraOptions(), []string{"--samsara.api-token is required", "--samsara.group-id"}},
		{"samsara complete", &SamsaraOptions{Endpoint: "https://api.samsara.com/v1/fleet/locations", APIToken: "t", GroupID: 1}, nil},
		{"sfmta defaults", NewSfmtaOptions(), []string{"--sfmta.username is required", "--sfmta.password is required", "--sfmta.tech-provider-id", "--sfmta.shuttle-company-id is required"}},
		{"roster defaults", NewRosterOptions(), []string{"--roster.sheet-key is required"}},
		{"roster bad template", &RosterOptions{SheetKey: "k", URLTemplate: "https://example.com"}, []string{"--roster.url-template"}},
		{"alert disabled", NewAlertOptions(), nil},
		{"alert bad recipient", &AlertOptions{SMTPHost: "smtp.gmail.com", SMTPPort: 587, From: "a@example.com", To: []string{"nope"}}, []string{"--alert.to"}},
		{"bridge defaults", NewBridgeOptions(), nil},
		{"bridge backoff below interval", &BridgeOptions{Interval: 5 * time.Second, MaxBackoff: time.Second, RetryInterval: time.Second, StopRefresh: time.Hour, StopThreshold: 50, Timezone: "UTC"}, []string{"--bridge.max-backoff"}},
		{"bridge unknown timezone", func() IOptions { o := NewBridgeOptions(); o.Timezone = "Mars/Olympus"; return o }(), []string{"--bridge.timezone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.opts.Validate()
			if len(tt.wantErr) == 0 && len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			var all []string
			for _, err := range errs {
				all = append(all, err.Error())
			}
			joined := strings.Join(all, "\n")
			for _, want := range tt.wantErr {
				if !strings.Contains(joined, want) {
					t.Errorf("missing %q in:\n%s", want, joined)
				}
			}
		})
	}
}

func TestS3AndMqttDisabledByDefault(t *testing.T) {
	if NewS3Options().Enabled() || NewMqttOptions().Enabled() {
		t.Error("archive and mirror must be opt-in")
	}
	if errs := NewMqttOptions().Validate(); len(errs) != 0 {
		t.Errorf("disabled mqtt should validate: %v", errs)
	}
	s3 := NewS3Options()
	s3.BucketName, s3.ObjectKey = "stops", ""
	if errs := s3.Validate(); len(errs) != 1 {
		t.Errorf("expected an object key error, got %v", errs)
	}
}
