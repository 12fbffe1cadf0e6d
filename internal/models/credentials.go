package models

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

const redacted = "[REDACTED]"

// Credentials holds the exchange API key pair.
// Formatting, JSON and log output never include the secret.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Validate checks that both halves of the key pair are present
func (c Credentials) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key is empty", ErrInvalidCredentials)
	}
	if c.APISecret == "" {
		return fmt.Errorf("%w: api secret is empty", ErrInvalidCredentials)
	}
	return nil
}

// String implements fmt.Stringer
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{APIKey:%s APISecret:%s}", MaskKey(c.APIKey), redacted)
}

// GoString implements fmt.GoStringer so %#v is redacted too
func (c Credentials) GoString() string {
	return c.String()
}

// MarshalJSON implements json.Marshaler
func (c Credentials) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"api_key":    MaskKey(c.APIKey),
		"api_secret": redacted,
	})
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (c Credentials) MarshalZerologObject(e *zerolog.Event) {
	e.Str("api_key", MaskKey(c.APIKey)).Bool("has_secret", c.APISecret != "")
}

// MaskKey keeps the first four characters of a key
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****"
}
