package player

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeInputSizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"under the limit", DefaultMaxInputSize - 1, false},
		{"at the limit", DefaultMaxInputSize, false},
		{"over the limit", DefaultMaxInputSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeInput(strings.Repeat("x", tt.size))
			if tt.wantErr && !errors.Is(err, ErrInputTooLarge) {
				t.Errorf("Expected ErrInputTooLarge for %d bytes, got %v", tt.size, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error for %d bytes: %v", tt.size, err)
			}
		})
	}
}

func TestSanitizeInputControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "follow the lantern", "follow the lantern"},
		{"kept whitespace", "one\ntwo\tthree\r", "one\ntwo\tthree\r"},
		{"escape stripped", "\x1b[1mbold\x1b[0m", "[1mbold[0m"},
		{"null stripped", "cut\x00here", "cuthere"},
		{"bell stripped", "ding\x07dong", "dingdong"},
		{"unicode kept", "café ↦ crypt", "café ↦ crypt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSanitizeInputEnvOverride(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "8")

	if _, err := SanitizeInput("123456789"); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("Expected ErrInputTooLarge over the env limit, got %v", err)
	}
	if _, err := SanitizeInput("1234"); err != nil {
		t.Errorf("Unexpected error under the env limit: %v", err)
	}
}

func TestSanitizeInputInvalidUTF8(t *testing.T) {
	_, err := SanitizeInput("broken \xbd\xb2 bytes")
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("Expected ErrInvalidUTF8, got %v", err)
	}
}
