package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
)

type demoServer struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
	Debug   bool          `mapstructure:"debug"`
}

type demoOptions struct {
	Server    *demoServer `mapstructure:"server"`
	completed bool
	invalid   bool
}

func (o *demoOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("server")
	fs.StringVar(&o.Server.Addr, "server.addr", o.Server.Addr, "")
	fs.DurationVar(&o.Server.Timeout, "server.timeout", o.Server.Timeout, "")
	fs.BoolVar(&o.Server.Debug, "server.debug", o.Server.Debug, "")
	return fss
}

func (o *demoOptions) Complete() error { o.completed = true; return nil }

func (o *demoOptions) Validate() error {
	if o.invalid {
		return errors.New("invalid")
	}
	return nil
}

func newDemo(t *testing.T) *demoOptions {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	t.Cleanup(viper.Reset)
	return &demoOptions{Server: &demoServer{Addr: ":80", Timeout: time.Second}}
}

func execute(t *testing.T, o *demoOptions, opts []Option, args ...string) error {
	t.Helper()
	a := NewApp("demo-app", "demo", append([]Option{WithOptions(o), WithRunFunc(func() error { return nil })}, opts...)...)
	a.Command().SetArgs(args)
	return a.Command().Execute()
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	o := newDemo(t)
	t.Setenv("DEMO_APP_SERVER_TIMEOUT", "7s")
	t.Setenv("DEMO_APP_SERVER_ADDR", ":9000")

	if err := execute(t, o, nil, "--server.addr=:8080"); err != nil {
		t.Fatal(err)
	}
	if o.Server.Addr != ":8080" {
		t.Errorf("addr = %s, flag should win", o.Server.Addr)
	}
	if o.Server.Timeout != 7*time.Second {
		t.Errorf("timeout = %v, env should apply", o.Server.Timeout)
	}
	if !o.completed {
		t.Error("Complete was not called")
	}
}

func TestEnvAliases(t *testing.T) {
	o := newDemo(t)
	t.Setenv("LEGACY_DEBUG", "1")

	err := execute(t, o, []Option{WithEnvAliases(map[string][]string{"server.debug": {"LEGACY_DEBUG"}})})
	if err != nil {
		t.Fatal(err)
	}
	if !o.Server.Debug {
		t.Error("legacy variable was not honoured")
	}
}

func TestConfigFile(t *testing.T) {
	o := newDemo(t)
	path := filepath.Join(t.TempDir(), "demo.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":7000\"\n  timeout: 3s\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, o, nil, "--config", path); err != nil {
		t.Fatal(err)
	}
	if o.Server.Addr != ":7000" || o.Server.Timeout != 3*time.Second {
		t.Errorf("config not applied: %+v", o.Server)
	}
}

func TestValidateBlocksRun(t *testing.T) {
	o := newDemo(t)
	o.invalid = true
	if err := execute(t, o, nil); err == nil {
		t.Error("expected the validation error")
	}
}

func TestRejectsArguments(t *testing.T) {
	o := newDemo(t)
	a := NewApp("demo-app", "demo", WithOptions(o), WithDefaultValidArgs(), WithRunFunc(func() error { return nil }))
	a.Command().SetArgs([]string{"extra"})
	if err := a.Command().Execute(); err == nil {
		t.Error("expected an error for positional arguments")
	}
}
