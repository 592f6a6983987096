package testutil

import (
	"strings"
	"sync"

	"github.com/arthur-debert/reposetup/pkg/types"
)

// RecordingSink is a LogSink that captures messages for assertions.
type RecordingSink struct {
	mu       sync.Mutex
	Messages []string
	Levels   []types.LogLevel
}

// Log records the message and level.
func (s *RecordingSink) Log(level types.LogLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Levels = append(s.Levels, level)
	s.Messages = append(s.Messages, message)
}

// Contains reports whether any recorded message contains substr.
func (s *RecordingSink) Contains(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.Messages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// Joined returns all recorded messages as one newline-joined string.
func (s *RecordingSink) Joined() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.Messages, "\n")
}
