// Package samples supplies a random starter prompt for the chat input.
package samples

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
)

var (
	ErrResourceUnavailable = errors.New("sample prompts unavailable")
	ErrNoPromptsAvailable  = errors.New("no sample prompts available")
)

// Source returns one candidate prompt.
type Source interface {
	Pick() (string, error)
}

// FileSource reads one candidate per line from a UTF-8 text file. The file is
// re-read on every Pick so edits show up without a restart.
type FileSource struct {
	path string

	mu  sync.Mutex
	rng *rand.Rand
}

func NewFileSource(path string) *FileSource {
	return &FileSource{
		path: strings.TrimSpace(path),
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewFileSourceWithRand is NewFileSource with a caller-owned generator.
func NewFileSourceWithRand(path string, rng *rand.Rand) *FileSource {
	s := NewFileSource(path)
	if rng != nil {
		s.rng = rng
	}
	return s
}

func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Pick() (string, error) {
	if s.path == "" {
		return "", fmt.Errorf("%w: no path configured", ErrResourceUnavailable)
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}
	prompts, err := parseLines(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}
	if len(prompts) == 0 {
		return "", ErrNoPromptsAvailable
	}

	s.mu.Lock()
	i := s.rng.IntN(len(prompts))
	s.mu.Unlock()
	return prompts[i], nil
}

func parseLines(raw []byte) ([]string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	var out []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
