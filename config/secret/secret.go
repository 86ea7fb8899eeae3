// Package secret holds configuration values that must never be logged.
package secret

import (
	"strings"

	"github.com/alecthomas/kong"
)

// String is a sensitive configuration value, such as an API key. It prints and
// marshals as REDACTED, so it is safe to put on a span or in a config dump.
type String string

const redacted = "REDACTED"

func (s String) String() string   { return redacted }
func (s String) GoString() string { return redacted }

// Raw returns the sensitive value.
func (s String) Raw() string {
	return string(s)
}

// IsSet reports whether a value was configured at all.
func (s String) IsSet() bool {
	return s != ""
}

func (s String) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MarshalText keeps the value redacted in text encoders, such as the one libhoney uses for fields.
func (s String) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Decode lets kong read a secret from a flag or the environment. Surrounding
// whitespace is dropped, since keys are often mounted from files with a
// trailing newline.
func (s *String) Decode(ctx *kong.DecodeContext) error {
	var raw string
	if err := ctx.Scan.PopValueInto("secret", &raw); err != nil {
		return err
	}
	*s = String(strings.TrimSpace(raw))
	return nil
}
