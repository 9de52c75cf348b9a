package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

var (
	_ fmt.Stringer   = SecretString("")
	_ json.Marshaler = SecretString("")
	_ slog.LogValuer = SecretString("")
)

const rawSecret = "inst_live_9f3b_super_secret"

// Every rendering path in one table. A verb that leaks is a credential
// disclosure, not a formatting bug.
func TestSecretString_NeverRendersRawValue(t *testing.T) {
	s := SecretString(rawSecret)

	renders := []struct {
		name string
		out  func() string
	}{
		{"String method", s.String},
		{"verb s", func() string { return fmt.Sprintf("%s", s) }},
		{"verb v", func() string { return fmt.Sprintf("%v", s) }},
		{"verb plus v", func() string { return fmt.Sprintf("%+v", s) }},
		{"verb q", func() string { return fmt.Sprintf("%q", s) }},
		{"Sprint", func() string { return fmt.Sprint(s) }},
		{"json value", func() string {
			data, _ := json.Marshal(s)
			return string(data)
		}},
	}

	for _, r := range renders {
		t.Run(r.name, func(t *testing.T) {
			got := r.out()
			if strings.Contains(got, rawSecret) {
				t.Fatalf("rendering leaked the secret: %s", got)
			}
			if !strings.Contains(got, redactedMask) {
				t.Errorf("rendering = %q, want it to carry the mask", got)
			}
		})
	}
}

func TestSecretString_SlogAttrIsMasked(t *testing.T) {
	var buf bytes.Buffer

	handlers := []struct {
		name    string
		handler slog.Handler
	}{
		{"text handler", slog.NewTextHandler(&buf, nil)},
		{"json handler", slog.NewJSONHandler(&buf, nil)},
	}

	for _, tc := range handlers {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			slog.New(tc.handler).Info("provider configured", "api_key", SecretString(rawSecret))

			line := buf.String()
			if strings.Contains(line, rawSecret) {
				t.Fatalf("log line leaked the secret: %s", line)
			}
			if !strings.Contains(line, redactedMask) {
				t.Errorf("log line missing the mask: %s", line)
			}
		})
	}
}

func TestSecretString_InsideStructJSON(t *testing.T) {
	payload := struct {
		APIKey SecretString `json:"api_key"`
		Region string       `json:"region"`
	}{
		APIKey: SecretString(rawSecret),
		Region: "in-south",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}

	body := string(data)
	if strings.Contains(body, rawSecret) {
		t.Fatalf("struct encoding leaked the secret: %s", body)
	}
	if !strings.Contains(body, redactedMask) {
		t.Errorf("struct encoding missing the mask: %s", body)
	}
	if !strings.Contains(body, `"region":"in-south"`) {
		t.Errorf("sibling fields must encode normally, got: %s", body)
	}
}

func TestSecretString_Unmask(t *testing.T) {
	if got := SecretString(rawSecret).Unmask(); got != rawSecret {
		t.Errorf("Unmask() = %q, want the raw value", got)
	}
	if got := SecretString("").Unmask(); got != "" {
		t.Errorf("Unmask() on empty secret = %q, want empty", got)
	}
}

func TestSecretString_Trimmed(t *testing.T) {
	cases := []struct {
		name string
		in   SecretString
		want string
	}{
		{"plain value untouched", "inst-key-123", "inst-key-123"},
		{"surrounding whitespace", "  inst-key-123\n", "inst-key-123"},
		{"double quotes", `"inst-key-123"`, "inst-key-123"},
		{"single quotes", "'inst-key-123'", "inst-key-123"},
		{"quotes inside whitespace", ` "inst-key-123" `, "inst-key-123"},
		{"whitespace inside quotes", `" inst-key-123 "`, "inst-key-123"},
		{"empty", "", ""},
		{"quoted empty", `""`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Trimmed().Unmask(); got != tc.want {
				t.Errorf("Trimmed().Unmask() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSecretString_IsZero(t *testing.T) {
	cases := []struct {
		in   SecretString
		zero bool
	}{
		{"", true},
		{`""`, true},
		{"''", true},
		{"   ", true},
		{"k", false},
		{`"k"`, false},
	}

	for _, tc := range cases {
		if got := tc.in.IsZero(); got != tc.zero {
			t.Errorf("SecretString(%q).IsZero() = %v, want %v", string(tc.in), got, tc.zero)
		}
	}
}
