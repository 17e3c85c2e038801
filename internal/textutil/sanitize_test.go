package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mission: Impossible", "Mission Impossible"},
		{`What/If\Why?`, "WhatIfWhy"},
		{"  spaced   out\ttitle  ", "spaced out title"},
		{"Trailing dots...", "Trailing dots"},
		{"..hidden", "hidden"},
		{"tab\x00null\x1fctl", "tabnullctl"},
		{"Episode\nName\r\nTwo", "Episode Name Two"},
		{`<>:"|?*`, ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileNameCapsLength(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := SanitizeFileName(long)
	if len(got) > MaxSegmentBytes {
		t.Fatalf("length %d exceeds cap", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
}

func TestSanitizeFileNameIdempotent(t *testing.T) {
	inputs := []string{"A: B / C", " x.. ", strings.Repeat("ab ", 120)}
	for _, in := range inputs {
		once := SanitizeFileName(in)
		if twice := SanitizeFileName(once); twice != once {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestTruncateSegment(t *testing.T) {
	if got := TruncateSegment("abc def", 4); got != "abc" {
		t.Fatalf("TruncateSegment = %q, want %q", got, "abc")
	}
	if got := TruncateSegment("short", 10); got != "short" {
		t.Fatalf("TruncateSegment = %q, want unchanged", got)
	}
	if got := TruncateSegment("anything", 0); got != "" {
		t.Fatalf("TruncateSegment with no room = %q, want empty", got)
	}
}
