package options

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLegacyEnvNamesRealFlags(t *testing.T) {
	o := NewServerOptions()
	fss := o.Flags()
	for key := range LegacyEnv {
		found := false
		for _, fs := range fss.FlagSets {
			if fs.Lookup(key) != nil {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("legacy variable bound to unknown flag %q", key)
		}
	}
}

func TestValidateReportsMissingCredentials(t *testing.T) {
	err := NewServerOptions().Validate()
	if err == nil {
		t.Fatal("expected validation errors for empty credentials")
	}
	for _, flag := range []string{"--sfmta.username", "--sfmta.password", "--samsara.api-token", "--roster.sheet-key"} {
		if !strings.Contains(err.Error(), flag) {
			t.Errorf("error does not mention %s: %v", flag, err)
		}
	}
}

func TestValidateStopsNeedsNoCredentials(t *testing.T) {
	if err := NewServerOptions().ValidateStops(); err != nil {
		t.Errorf("ValidateStops: %v", err)
	}
	if err := NewServerOptions().ValidateRoster(); err == nil {
		t.Error("ValidateRoster should require the sheet key")
	}
}

func TestCompleteReadsSecretFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "password")
	if err := os.WriteFile(path, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SFMTA_PASSWORD", "")
	t.Setenv("SFMTA_PASSWORD_FILE", path)

	o := NewServerOptions()
	o.AlertOptions.Password = "given"
	if err := o.Complete(); err != nil {
		t.Fatal(err)
	}
	if o.SfmtaOptions.Password != "s3cret" {
		t.Errorf("password = %q", o.SfmtaOptions.Password)
	}
	if o.AlertOptions.Password != "given" {
		t.Error("a value given directly must not be replaced")
	}
}

func TestConfigCarriesOptions(t *testing.T) {
	o := NewServerOptions()
	cfg, err := o.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BridgeOptions != o.LoopOptions || cfg.SfmtaOptions != o.SfmtaOptions {
		t.Error("config does not share the completed options")
	}
}
