package options

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their flag name rather than the Go field name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of o and renders each failure as a
// --<prefix>.<field> message.
func validateStruct(prefix string, o any) []error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		flag := fmt.Sprintf("--%s.%s", prefix, fe.Field())
		switch fe.Tag() {
		case "required":
			errs = append(errs, fmt.Errorf("%s is required", flag))
		default:
			if fe.Param() != "" {
				errs = append(errs, fmt.Errorf("%s must satisfy %s=%s, got %v", flag, fe.Tag(), fe.Param(), fe.Value()))
			} else {
				errs = append(errs, fmt.Errorf("%s must be a valid %s, got %v", flag, fe.Tag(), fe.Value()))
			}
		}
	}
	return errs
}
