package textutil

import (
	"testing"
	"time"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  holiday clip  ", "holiday clip"},
		{"a/b\\c:d*e", "a-b-c-d-e"},
		{"what?<>|\"", "what"},
		{"tab\tname\x00", "tabname"},
		{"..", ""},
		{"", ""},
		{"Cafe\u0301", "Caf\u00e9"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutputStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Video.MOV", "My Video"},
		{"../../etc/passwd", "passwd"},
		{"C:\\Users\\me\\clip.mkv", "clip"},
		{".mp4", "video"},
		{"", "video"},
	}
	for _, tt := range tests {
		if got := OutputStem(tt.in); got != tt.want {
			t.Errorf("OutputStem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'x'
	}
	if got := OutputStem(string(long) + ".mp4"); len([]rune(got)) != maxStemRunes {
		t.Fatalf("expected stem truncated to %d runes, got %d", maxStemRunes, len([]rune(got)))
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("User 42!"); got != "user_42" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := SanitizeToken("  "); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := FormatBytes(1536); got != "1.5 KiB" {
		t.Fatalf("FormatBytes(1536) = %q", got)
	}
	if got := FormatBytes(0); got != "0 B" {
		t.Fatalf("FormatBytes(0) = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{65 * time.Second, "1:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{-time.Second, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatSeconds(90.4); got != "1:30" {
		t.Fatalf("FormatSeconds(90.4) = %q", got)
	}
}
