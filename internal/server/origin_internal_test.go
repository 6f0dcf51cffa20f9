package server

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestNormalizeOrigins(t *testing.T) {
	logger, hook := test.NewNullLogger()

	normalized, allowAll := normalizeOrigins([]string{
		" HTTP://Chat.Example ",
		"https://chat.example:8443",
		"",
		"chat.example",
	}, logger)

	want := []string{"http://chat.example", "https://chat.example:8443"}
	if !reflect.DeepEqual(normalized, want) {
		t.Errorf("normalizeOrigins() = %q, want %q", normalized, want)
	}
	if allowAll {
		t.Error("allowAll set without a wildcard")
	}
	if len(hook.Entries) != 1 {
		t.Errorf("Expected one warning for the invalid origin, got %d", len(hook.Entries))
	}

	if _, allowAll := normalizeOrigins([]string{"*"}, logger); !allowAll {
		t.Error("Wildcard did not allow all origins")
	}
}

func TestOriginPolicy(t *testing.T) {
	logger, hook := test.NewNullLogger()
	policy := newOriginPolicy([]string{"http://chat.example"}, logger)

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{name: "no origin header", origin: "", want: true},
		{name: "exact match", origin: "http://chat.example", want: true},
		{name: "case insensitive", origin: "HTTP://CHAT.EXAMPLE", want: true},
		{name: "other host", origin: "http://evil.example", want: false},
		{name: "other scheme", origin: "https://chat.example", want: false},
		{name: "other port", origin: "http://chat.example:8080", want: false},
		{name: "malformed", origin: "://", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := policy.checkOrigin(req); got != tt.want {
				t.Errorf("checkOrigin(%q) = %t, want %t", tt.origin, got, tt.want)
			}
		})
	}

	if len(hook.Entries) != 4 {
		t.Errorf("Expected a warning per blocked origin, got %d", len(hook.Entries))
	}
}

func TestOriginPolicyAllowAll(t *testing.T) {
	logger, _ := test.NewNullLogger()
	policy := newOriginPolicy([]string{"*"}, logger)

	req := httptest.NewRequest(http.MethodGet, "/ws", http.NoBody)
	req.Header.Set("Origin", "http://anything.example")
	if !policy.checkOrigin(req) {
		t.Error("Wildcard policy rejected an origin")
	}
}

func TestOriginPolicyEmpty(t *testing.T) {
	logger, _ := test.NewNullLogger()
	policy := newOriginPolicy(nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/ws", http.NoBody)
	req.Header.Set("Origin", "http://chat.example")
	if policy.checkOrigin(req) {
		t.Error("Empty allow-list accepted a browser origin")
	}
}
