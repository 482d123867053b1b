package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SamsaraOptions)(nil)

// SamsaraOptions configures the fleet location API.
type SamsaraOptions struct {
	Endpoint string        `json:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	APIToken string        `json:"api-token" mapstructure:"api-token" validate:"required"`
	GroupID  int64         `json:"group-id" mapstructure:"group-id" validate:"gt=0"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

func NewSamsaraOptions() *SamsaraOptions {
	return &SamsaraOptions{
		Endpoint: "https://api.samsara.com/v1/fleet/locations",
		Timeout:  10 * time.Second,
	}
}

func (o *SamsaraOptions) Validate() []error {
	return validateStruct("samsara", o)
}

func (o *SamsaraOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Endpoint, "samsara.endpoint", o.Endpoint, "Fleet locations endpoint.")
	fs.StringVar(&o.APIToken, "samsara.api-token", o.APIToken, "Samsara API access token (env SAMSARA_SFMTA_API_TOKEN).")
	fs.Int64Var(&o.GroupID, "samsara.group-id", o.GroupID, "Samsara group whose vehicles are reported (env SAMSARA_SFMTA_GROUP_ID).")
	fs.DurationVar(&o.Timeout, "samsara.timeout", o.Timeout, "Timeout of a location fetch.")
}
