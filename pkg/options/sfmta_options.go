package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const (
	sfmtaProductionURL = "https://services.sfmta.com/shuttle/api"
	sfmtaStagingURL    = "https://stageservices.sfmta.com/shuttle/api"
)

var _ IOptions = (*SfmtaOptions)(nil)

// SfmtaOptions configures the regulator API and the identity reported to it.
type SfmtaOptions struct {
	// Debug selects the staging deployment.
	Debug   bool   `json:"debug" mapstructure:"debug"`
	// BaseURL overrides the deployment chosen by Debug.
	BaseURL string `json:"base-url" mapstructure:"base-url" validate:"omitempty,url"`

	Username string        `json:"username" mapstructure:"username" validate:"required"`
	Password string        `json:"password" mapstructure:"password" validate:"required"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout" validate:"gte=0"`

	TechProviderID   int    `json:"tech-provider-id" mapstructure:"tech-provider-id" validate:"gt=0"`
	ShuttleCompanyID string `json:"shuttle-company-id" mapstructure:"shuttle-company-id" validate:"required"`
}

func NewSfmtaOptions() *SfmtaOptions {
	return &SfmtaOptions{
		Timeout: 10 * time.Second,
	}
}

// URL returns the API root to use.
func (o *SfmtaOptions) URL() string {
	switch {
	case o.BaseURL != "":
		return o.BaseURL
	case o.Debug:
		return sfmtaStagingURL
	default:
		return sfmtaProductionURL
	}
}

func (o *SfmtaOptions) Validate() []error {
	return validateStruct("sfmta", o)
}

// ValidateEndpoint checks only what reading from the regulator needs.
func (o *SfmtaOptions) ValidateEndpoint() []error {
	if err := validate.Var(o.URL(), "required,url"); err != nil {
		return []error{fmt.Errorf("--sfmta.base-url must be a valid url, got %q", o.URL())}
	}
	return nil
}

func (o *SfmtaOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Debug, "sfmta.debug", o.Debug, "Report to the staging deployment (env SFMTA_DEBUG=1).")
	fs.StringVar(&o.BaseURL, "sfmta.base-url", o.BaseURL, "Override the regulator API root.")
	fs.StringVar(&o.Username, "sfmta.username", o.Username, "Basic auth user for telemetry pushes (env SFMTA_USERNAME).")
	fs.StringVar(&o.Password, "sfmta.password", o.Password, "Basic auth password for telemetry pushes (env SFMTA_PASSWORD).")
	fs.DurationVar(&o.Timeout, "sfmta.timeout", o.Timeout, "Timeout of a single regulator request.")
	fs.IntVar(&o.TechProviderID, "sfmta.tech-provider-id", o.TechProviderID, "Technology provider id (env SFMTA_TECH_PROVIDER_ID).")
	fs.StringVar(&o.ShuttleCompanyID, "sfmta.shuttle-company-id", o.ShuttleCompanyID, "Shuttle company id (env SFMTA_SHUTTLE_COMPANY_ID).")
}
