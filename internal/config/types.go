package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that decodes from strings like "10s", both in
// config.yaml and in NOTACLIN_* variables. Negative values are rejected.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	if v < 0 {
		return fmt.Errorf("invalid duration %q: negative", text)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalJSON writes the duration as a string, as it is written in
// config.yaml.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

const redacted = "[REDACTED]"

// Secret holds a credential such as the embeddings API key. Every printing
// and marshaling path yields "[REDACTED]"; only Value returns the secret.
type Secret string

func (s Secret) mask() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) String() string { return s.mask() }

func (s Secret) GoString() string { return "Secret(" + redacted + ")" }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.mask()), nil }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.mask()) }

// Value returns the secret itself, for handing to the embedding client.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether a secret was configured.
func (s Secret) IsSet() bool { return s != "" }
