package samples

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSourceSingleLineTrimmed(t *testing.T) {
	path := writePrompts(t, "   Tell me a joke about compilers.  \n")
	src := NewFileSource(path)
	for i := 0; i < 10; i++ {
		got, err := src.Pick()
		if err != nil {
			t.Fatalf("Pick() error = %v", err)
		}
		if got != "Tell me a joke about compilers." {
			t.Fatalf("Pick() = %q", got)
		}
	}
}

func TestFileSourceEmptyResource(t *testing.T) {
	for _, content := range []string{"", "\n\n   \n"} {
		src := NewFileSource(writePrompts(t, content))
		_, err := src.Pick()
		if !errors.Is(err, ErrNoPromptsAvailable) {
			t.Fatalf("Pick() error = %v, want ErrNoPromptsAvailable", err)
		}
	}
}

func TestFileSourceMissingResource(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.txt"))
	_, err := src.Pick()
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Fatalf("Pick() error = %v, want ErrResourceUnavailable", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Pick() error = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestFileSourcePicksEveryLine(t *testing.T) {
	path := writePrompts(t, "one\ntwo\n\nthree\n")
	src := NewFileSourceWithRand(path, rand.New(rand.NewPCG(1, 2)))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		got, err := src.Pick()
		if err != nil {
			t.Fatalf("Pick() error = %v", err)
		}
		seen[got] = true
	}
	for _, want := range []string{"one", "two", "three"} {
		if !seen[want] {
			t.Fatalf("prompt %q never picked: %v", want, seen)
		}
	}
	if len(seen) != 3 {
		t.Fatalf("picked %d distinct prompts, want 3: %v", len(seen), seen)
	}
}

func writePrompts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "starter_prompts.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write prompts: %v", err)
	}
	return path
}
