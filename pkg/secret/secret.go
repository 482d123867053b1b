// Package secret resolves credentials from the environment, with support for
// file-mounted secrets through a companion "<NAME>_FILE" variable.
package secret

import (
	"fmt"
	"os"
	"strings"
)

// MissingEnvironmentKey is returned when neither NAME nor NAME_FILE yields a value.
type MissingEnvironmentKey string

func (k MissingEnvironmentKey) Error() string {
	return fmt.Sprintf("%s environment variable not set", string(k))
}

// FromEnvironment returns the value of key, or the trimmed content of the file
// named by key+"_FILE" when key itself is empty.
func FromEnvironment(key string) (string, error) {
	value := os.Getenv(key)
	path := os.Getenv(key + "_FILE")
	if value == "" && path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s_FILE: %w", key, err)
		}
		value = string(content)
	}

	if value == "" {
		return "", MissingEnvironmentKey(key)
	}
	return strings.TrimSpace(value), nil
}

// Fill sets *dst from the environment when it is still empty. A missing
// variable is not an error; required-ness is checked by option validation.
func Fill(dst *string, key string) error {
	if *dst != "" {
		return nil
	}
	v, err := FromEnvironment(key)
	if _, missing := err.(MissingEnvironmentKey); missing {
		return nil
	} else if err != nil {
		return err
	}
	*dst = v
	return nil
}
