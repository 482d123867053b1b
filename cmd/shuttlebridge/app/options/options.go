package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/shuttlebridge/internal/bridge"
	"github.com/autopeer-io/shuttlebridge/pkg/app"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
	"github.com/autopeer-io/shuttlebridge/pkg/options"
	"github.com/autopeer-io/shuttlebridge/pkg/secret"
)

// LegacyEnv maps flag keys to the environment variable names deployments of
// the bridge have always used. They are honoured next to SHUTTLEBRIDGE_*.
var LegacyEnv = map[string][]string{
	"sfmta.debug":              {"SFMTA_DEBUG"},
	"http.localhost":           {"SFMTA_LOCALHOST"},
	"roster.sheet-key":         {"SFMTA_VEHICLE_GOOGLE_SHEETS_KEY"},
	"samsara.api-token":        {"SAMSARA_SFMTA_API_TOKEN"},
	"samsara.group-id":         {"SAMSARA_SFMTA_GROUP_ID"},
	"sfmta.tech-provider-id":   {"SFMTA_TECH_PROVIDER_ID"},
	"sfmta.shuttle-company-id": {"SFMTA_SHUTTLE_COMPANY_ID"},
	"sfmta.username":           {"SFMTA_USERNAME"},
	"sfmta.password":           {"SFMTA_PASSWORD"},
	"alert.from":               {"SFMTA_ERROR_FROM_EMAIL"},
	"alert.to":                 {"SFMTA_ERROR_TO_EMAIL"},
	"alert.password":           {"SFMTA_ERROR_FROM_PASSWORD"},
	"s3.bucket-name":           {"SAMSARA_SFMTA_S3_BUCKET"},
}

type ServerOptions struct {
	HttpOptions    *options.HttpOptions    `json:"http" mapstructure:"http"`
	SamsaraOptions *options.SamsaraOptions `json:"samsara" mapstructure:"samsara"`
	SfmtaOptions   *options.SfmtaOptions   `json:"sfmta" mapstructure:"sfmta"`
	RosterOptions  *options.RosterOptions  `json:"roster" mapstructure:"roster"`
	AlertOptions   *options.AlertOptions   `json:"alert" mapstructure:"alert"`
	LoopOptions    *options.BridgeOptions  `json:"bridge" mapstructure:"bridge"`
	S3Options      *options.S3Options      `json:"s3" mapstructure:"s3"`
	MqttOptions    *options.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	Log            *log.Options            `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*ServerOptions)(nil)

func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HttpOptions:    options.NewHttpOptions(),
		SamsaraOptions: options.NewSamsaraOptions(),
		SfmtaOptions:   options.NewSfmtaOptions(),
		RosterOptions:  options.NewRosterOptions(),
		AlertOptions:   options.NewAlertOptions(),
		LoopOptions:    options.NewBridgeOptions(),
		S3Options:      options.NewS3Options(),
		MqttOptions:    options.NewMqttOptions(),
		Log:            log.NewOptions(),
	}
}

func (o *ServerOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.SamsaraOptions.AddFlags(fss.FlagSet("samsara"))
	o.SfmtaOptions.AddFlags(fss.FlagSet("sfmta"))
	o.RosterOptions.AddFlags(fss.FlagSet("roster"))
	o.LoopOptions.AddFlags(fss.FlagSet("bridge"))
	o.AlertOptions.AddFlags(fss.FlagSet("alert"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// Complete reads secrets that were not given directly from mounted files,
// e.g. SFMTA_PASSWORD_FILE.
func (o *ServerOptions) Complete() error {
	secrets := []struct {
		dst *string
		env string
	}{
		{&o.SfmtaOptions.Password, "SFMTA_PASSWORD"},
		{&o.SamsaraOptions.APIToken, "SAMSARA_SFMTA_API_TOKEN"},
		{&o.AlertOptions.Password, "SFMTA_ERROR_FROM_PASSWORD"},
		{&o.S3Options.SecretAccessKey, "SHUTTLEBRIDGE_S3_SECRET_ACCESS_KEY"},
		{&o.MqttOptions.Password, "SHUTTLEBRIDGE_MQTT_PASSWORD"},
	}
	var errs []error
	for _, s := range secrets {
		if err := secret.Fill(s.dst, s.env); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

func (o *ServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.SamsaraOptions.Validate()...)
	errs = append(errs, o.SfmtaOptions.Validate()...)
	errs = append(errs, o.RosterOptions.Validate()...)
	errs = append(errs, o.LoopOptions.Validate()...)
	errs = append(errs, o.AlertOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// ValidateStops checks the options needed to read the allowed stops.
func (o *ServerOptions) ValidateStops() error {
	return utilerrors.NewAggregate(append(o.SfmtaOptions.ValidateEndpoint(), o.Log.Validate()...))
}

// ValidateRoster checks the options needed to read the roster.
func (o *ServerOptions) ValidateRoster() error {
	return utilerrors.NewAggregate(append(o.RosterOptions.Validate(), o.Log.Validate()...))
}

func (o *ServerOptions) Config() (*bridge.Config, error) {
	return &bridge.Config{
		HttpOptions:    o.HttpOptions,
		SamsaraOptions: o.SamsaraOptions,
		SfmtaOptions:   o.SfmtaOptions,
		RosterOptions:  o.RosterOptions,
		AlertOptions:   o.AlertOptions,
		BridgeOptions:  o.LoopOptions,
		S3Options:      o.S3Options,
		MqttOptions:    o.MqttOptions,
	}, nil
}
