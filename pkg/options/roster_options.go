package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RosterOptions)(nil)

// RosterOptions locates the spreadsheet that maps devices to placards.
type RosterOptions struct {
	SheetKey    string        `json:"sheet-key" mapstructure:"sheet-key" validate:"required"`
	// URLTemplate is the feed URL with a single %s for the sheet key.
	URLTemplate string        `json:"url-template" mapstructure:"url-template" validate:"required,contains=%s"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

func NewRosterOptions() *RosterOptions {
	return &RosterOptions{
		URLTemplate: "https://spreadsheets.google.com/feeds/list/%s/od6/public/values?alt=json",
		Timeout:     10 * time.Second,
	}
}

func (o *RosterOptions) Validate() []error {
	return validateStruct("roster", o)
}

func (o *RosterOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.SheetKey, "roster.sheet-key", o.SheetKey, "Key of the vehicle roster spreadsheet (env SFMTA_VEHICLE_GOOGLE_SHEETS_KEY).")
	fs.StringVar(&o.URLTemplate, "roster.url-template", o.URLTemplate, "Roster feed URL; %s is replaced by the sheet key.")
	fs.DurationVar(&o.Timeout, "roster.timeout", o.Timeout, "Timeout of a roster fetch.")
}
