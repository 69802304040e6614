package applescript

import (
	"context"
	"strings"
	"sync"
)

// Pattern maps a script substring to a canned response.
type Pattern struct {
	Contains string
	Response string
}

// Mock answers script executions from an ordered pattern table. Unmatched
// scripts return an empty string, never an error, so handler logic can be
// exercised deterministically without macOS.
type Mock struct {
	patterns []Pattern

	mu       sync.Mutex
	Scripts  []string // every script passed to Run, in order
	OpenedAt []string // every URL passed to OpenURL, in order
}

// NewMock creates a mock runner with the given pattern table. First match
// wins, so order more specific patterns before general ones.
func NewMock(patterns []Pattern) *Mock {
	return &Mock{patterns: patterns}
}

// DefaultPatterns cover the built-in operation families with plausible
// canned output, enough for end-to-end dispatcher tests.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Contains: "Reminders", Response: "Buy milk (Today)|Call dentist (Tomorrow)"},
		{Contains: "Notes", Response: "Meeting notes|Shopping list"},
		{Contains: "Messages", Response: "sent"},
		{Contains: "Contacts", Response: "John Doe: +1 555 123 4567"},
	}
}

func (m *Mock) Run(_ context.Context, script string, _ Options) (string, error) {
	m.mu.Lock()
	m.Scripts = append(m.Scripts, script)
	m.mu.Unlock()

	for _, p := range m.patterns {
		if strings.Contains(script, p.Contains) {
			return p.Response, nil
		}
	}
	return "", nil
}

func (m *Mock) OpenURL(_ context.Context, url string) error {
	m.mu.Lock()
	m.OpenedAt = append(m.OpenedAt, url)
	m.mu.Unlock()
	return nil
}
