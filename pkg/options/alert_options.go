package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*AlertOptions)(nil)

// AlertOptions configures fault mail. Alerts are disabled unless both a
// sender and a recipient are set.
type AlertOptions struct {
	SMTPHost   string        `json:"smtp-host" mapstructure:"smtp-host" validate:"omitempty,hostname_rfc1123"`
	SMTPPort   int           `json:"smtp-port" mapstructure:"smtp-port" validate:"omitempty,gt=0,lte=65535"`
	From       string        `json:"from" mapstructure:"from" validate:"omitempty,email"`
	To         []string      `json:"to" mapstructure:"to" validate:"omitempty,dive,email"`
	Password   string        `json:"password" mapstructure:"password"`
	RequireTLS bool          `json:"require-tls" mapstructure:"require-tls"`
	Cooldown   time.Duration `json:"cooldown" mapstructure:"cooldown" validate:"gte=0"`
}

func NewAlertOptions() *AlertOptions {
	return &AlertOptions{
		SMTPHost:   "smtp.gmail.com",
		SMTPPort:   587,
		RequireTLS: true,
		Cooldown:   time.Hour,
	}
}

// Enabled reports whether alerts can be delivered.
func (o *AlertOptions) Enabled() bool {
	return o != nil && o.From != "" && len(o.To) > 0
}

func (o *AlertOptions) Validate() []error {
	errs := validateStruct("alert", o)
	if o.Enabled() && (o.SMTPHost == "" || o.SMTPPort == 0) {
		errs = append(errs, fmt.Errorf("--alert.smtp-host and --alert.smtp-port are required when alerts are enabled"))
	}
	return errs
}

func (o *AlertOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.SMTPHost, "alert.smtp-host", o.SMTPHost, "SMTP relay for fault alerts.")
	fs.IntVar(&o.SMTPPort, "alert.smtp-port", o.SMTPPort, "SMTP relay port.")
	fs.StringVar(&o.From, "alert.from", o.From, "Sender of fault alerts (env SFMTA_ERROR_FROM_EMAIL).")
	fs.StringSliceVar(&o.To, "alert.to", o.To, "Recipients of fault alerts (env SFMTA_ERROR_TO_EMAIL).")
	fs.StringVar(&o.Password, "alert.password", o.Password, "SMTP password of the sender (env SFMTA_ERROR_FROM_PASSWORD).")
	fs.BoolVar(&o.RequireTLS, "alert.require-tls", o.RequireTLS, "Refuse to send alerts over a relay without STARTTLS.")
	fs.DurationVar(&o.Cooldown, "alert.cooldown", o.Cooldown, "Minimum time between two alerts.")
}
