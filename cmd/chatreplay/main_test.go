package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWSURLForSession(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://127.0.0.1:8080", "ws://127.0.0.1:8080/v1/chat/session/ws?session_id=abc"},
		{"https://chat.example.com/prefix/", "wss://chat.example.com/prefix/v1/chat/session/ws?session_id=abc"},
	}
	for _, tc := range cases {
		got, err := wsURLForSession(tc.base, "abc")
		if err != nil {
			t.Fatalf("wsURLForSession(%q) error = %v", tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("wsURLForSession(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}
	if _, err := wsURLForSession("ftp://host", "abc"); err == nil {
		t.Fatalf("expected error for ftp scheme")
	}
}

func TestPercentile(t *testing.T) {
	samples := []time.Duration{5, 1, 4, 2, 3}
	if got := percentile(samples, 0.50); got != 3 {
		t.Fatalf("p50 = %v, want 3", got)
	}
	if got := percentile(samples, 0.95); got != 5 {
		t.Fatalf("p95 = %v, want 5", got)
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Fatalf("empty p50 = %v, want 0", got)
	}
	if samples[0] != 5 {
		t.Fatalf("percentile sorted the caller's slice")
	}
}

func TestResolveTexts(t *testing.T) {
	got, err := resolveTexts(" a | | b ", "", 3)
	if err != nil {
		t.Fatalf("resolveTexts() error = %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("texts = %q, want [a b]", got)
	}

	if _, err := resolveTexts(" | ", "", 3); err == nil {
		t.Fatalf("expected error for blank texts")
	}

	path := filepath.Join(t.TempDir(), "prompts.txt")
	if err := os.WriteFile(path, []byte("only one\n"), 0o644); err != nil {
		t.Fatalf("write prompts: %v", err)
	}
	got, err = resolveTexts("", path, 3)
	if err != nil {
		t.Fatalf("resolveTexts(file) error = %v", err)
	}
	if len(got) != 3 || got[2] != "only one" {
		t.Fatalf("file texts = %q", got)
	}

	got, err = resolveTexts("", "", 3)
	if err != nil || len(got) != len(defaultQuestions) {
		t.Fatalf("default texts = %q, err = %v", got, err)
	}
}
