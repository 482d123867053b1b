package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*S3Options)(nil)

// S3Options configures the object store that archives the allowed-stop list.
// An empty BucketName disables archiving.
type S3Options struct {
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access-key-id" mapstructure:"access-key-id"`
	SecretAccessKey string `json:"secret-access-key" mapstructure:"secret-access-key"`
	UseSSL          bool   `json:"use-ssl" mapstructure:"use-ssl"`
	BucketName      string `json:"bucket-name" mapstructure:"bucket-name"`
	Region          string `json:"region" mapstructure:"region"`
	ObjectKey       string `json:"object-key" mapstructure:"object-key"`

	// InsecureSkipVerify disables certificate verification. Only for
	// self-signed development endpoints.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`
}

func NewS3Options() *S3Options {
	return &S3Options{
		Endpoint:  "s3.us-west-2.amazonaws.com",
		UseSSL:    true,
		Region:    "us-west-2",
		ObjectKey: "allowed_stops.json",
	}
}

// Enabled reports whether a bucket has been configured.
func (o *S3Options) Enabled() bool {
	return o != nil && o.BucketName != ""
}

func (o *S3Options) Validate() []error {
	errors := []error{}

	if o.Enabled() {
		if o.Endpoint == "" {
			errors = append(errors, fmt.Errorf("--s3.endpoint is required when --s3.bucket-name is set"))
		}
		if o.ObjectKey == "" {
			errors = append(errors, fmt.Errorf("--s3.object-key must not be empty"))
		}
	}

	return errors
}

func (o *S3Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Endpoint, "s3.endpoint", o.Endpoint, "S3 service endpoint (e.g. s3.amazonaws.com or minio.local)")
	fs.StringVar(&o.AccessKeyID, "s3.access-key-id", o.AccessKeyID, "S3 access key ID")
	fs.StringVar(&o.SecretAccessKey, "s3.secret-access-key", o.SecretAccessKey, "S3 secret access key")
	fs.BoolVar(&o.UseSSL, "s3.use-ssl", o.UseSSL, "Enable SSL for S3 connection")
	fs.StringVar(&o.BucketName, "s3.bucket-name", o.BucketName, "S3 bucket that archives the allowed-stop list (empty disables archiving)")
	fs.StringVar(&o.Region, "s3.region", o.Region, "S3 region")
	fs.StringVar(&o.ObjectKey, "s3.object-key", o.ObjectKey, "Object key of the archived allowed-stop list")
	fs.BoolVar(&o.InsecureSkipVerify, "s3.insecure-skip-verify", o.InsecureSkipVerify, "Skip TLS verification of the S3 endpoint (development only)")
}
