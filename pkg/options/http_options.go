package options

import (
	"net"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions contains configuration items related to HTTP server startup.
type HttpOptions struct {
	// Address with server address.
	Addr string `json:"addr" mapstructure:"addr"`

	// Localhost forces the server onto the loopback interface, keeping the port of Addr.
	Localhost bool `json:"localhost" mapstructure:"localhost"`

	// Timeout bounds reading a request and writing its response.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewHttpOptions creates a HttpOptions object with default parameters.
func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		Addr:    "0.0.0.0:5000",
		Timeout: 30 * time.Second,
	}
}

// BindAddress returns the address the server should listen on.
func (o *HttpOptions) BindAddress() string {
	if !o.Localhost {
		return o.Addr
	}
	_, port, err := net.SplitHostPort(o.Addr)
	if err != nil {
		return o.Addr
	}
	return net.JoinHostPort("127.0.0.1", port)
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *HttpOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// AddFlags adds flags related to the HTTP server to the specified FlagSet.
func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "Specify the HTTP server bind address and port.")
	fs.BoolVar(&o.Localhost, "http.localhost", o.Localhost, "Bind the HTTP server to 127.0.0.1 instead of the host in --http.addr.")
	fs.DurationVar(&o.Timeout, "http.timeout", o.Timeout, "Read and write timeout for server connections.")
}
