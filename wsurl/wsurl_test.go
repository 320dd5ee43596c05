package wsurl

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		path     string
		expected string
	}{
		{"bare host", "example.com", "/socket", "ws://example.com/socket"},
		{"bare host with port", "example.com:9000", "/socket", "ws://example.com:9000/socket"},
		{"protocol relative", "//example.com", "/socket", "ws://example.com/socket"},
		{"secure with port", "wss://example.com:9000", "/socket", "wss://example.com:9000/socket"},
		{"explicit path kept", "ws://example.com:9000/custom", "/socket", "ws://example.com:9000/custom"},
		{"already canonical", "ws://example.com/socket", "/socket", "ws://example.com/socket"},
		{"query passes through", "example.com?token=abc", "/socket", "ws://example.com/socket?token=abc"},
		{"secure bare path", "wss://example.com", "/realtime", "wss://example.com/realtime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Normalize(tt.input, tt.path)
			if err != nil {
				t.Fatalf("Normalize(%q, %q) returned error: %v", tt.input, tt.path, err)
			}
			if result != tt.expected {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.input, tt.path, result, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first, err := Normalize("example.com:9000", "/socket")
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := Normalize(first, "/socket")
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if first != second {
		t.Errorf("normalization is not idempotent: %q != %q", first, second)
	}
}

func TestNormalizeRejectsHTTP(t *testing.T) {
	for _, input := range []string{
		"http://example.com",
		"https://example.com",
		"https://example.com:9000/socket",
	} {
		_, err := Normalize(input, "/socket")
		if !errors.Is(err, ErrUnsupportedProtocol) {
			t.Errorf("Normalize(%q) error = %v, want ErrUnsupportedProtocol", input, err)
		}
	}
}

func TestNormalizeRejectsMissingHost(t *testing.T) {
	for _, input := range []string{
		"",
		"ws://",
		"//",
		"/only-a-path",
	} {
		_, err := Normalize(input, "/socket")
		if !errors.Is(err, ErrMissingHost) {
			t.Errorf("Normalize(%q) error = %v, want ErrMissingHost", input, err)
		}
	}
}
