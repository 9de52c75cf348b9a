package types

import (
	"log/slog"
	"strings"
)

// redactedMask replaces secret material anywhere a SecretString is rendered.
const redactedMask = "***REDACTED***"

// SecretString holds credential material. Every rendering path a secret
// could accidentally take (fmt verbs, JSON encoding, slog attributes)
// produces redactedMask instead of the value; only Unmask returns the real
// bytes. Call sites of Unmask are the complete set of places a credential
// can leave the process.
type SecretString string

// String satisfies fmt.Stringer, which covers %s, %v, %+v and Print-family
// calls.
func (s SecretString) String() string {
	return redactedMask
}

// MarshalJSON keeps secrets out of serialized config dumps and API payloads.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedMask + `"`), nil
}

// LogValue satisfies slog.LogValuer so handlers never see the raw value,
// regardless of how they format attributes.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedMask)
}

// Unmask returns the raw value for the few places that genuinely need it,
// such as building an Authorization header.
func (s SecretString) Unmask() string {
	return string(s)
}

// Trimmed strips surrounding whitespace and stray quote characters. Keys
// pasted into .env files often arrive single- or double-quoted, and those
// bytes turn into a confusing 401 from the provider.
func (s SecretString) Trimmed() SecretString {
	v := strings.TrimSpace(string(s))
	v = strings.Trim(v, `"'`)
	return SecretString(strings.TrimSpace(v))
}

// IsZero reports whether the secret is empty after trimming, treating
// quoted-empty values ("" or '') as absent.
func (s SecretString) IsZero() bool {
	return s.Trimmed() == ""
}
