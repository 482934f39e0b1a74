// ABOUTME: Tests for shared output helpers used by CLI commands
// ABOUTME: Verifies truncate, format resolution and structured rendering

package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"very short maxLen", "hello", 2, "he"},
		{"empty string", "", 10, ""},
		{"unicode counts runes", "你好世界！", 4, "你..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"auto", "table", false},
		{"", "table", false},
		{"table", "table", false},
		{"json", "json", false},
		{"yaml", "yaml", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := resolveFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteStructured(t *testing.T) {
	v := map[string]int{"chunks": 3}

	var js bytes.Buffer
	if err := writeStructured(&js, "json", v); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js.String(), `"chunks": 3`) {
		t.Errorf("json output = %q", js.String())
	}

	var ym bytes.Buffer
	if err := writeStructured(&ym, "yaml", v); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(ym.String()) != "chunks: 3" {
		t.Errorf("yaml output = %q", ym.String())
	}

	if err := writeStructured(&ym, "table", v); err == nil {
		t.Error("expected error for non-structured format")
	}
}

func TestShortHash(t *testing.T) {
	if got := shortHash("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("shortHash = %q", got)
	}
	if got := shortHash("abc"); got != "abc" {
		t.Errorf("shortHash = %q", got)
	}
}
