// Package feedback persists user feedback events as append-only JSONL.
// One file, one JSON object per line; writes are serialized so concurrent
// requests never interleave partial lines.
package feedback

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one rating submitted for an answered turn.
type Event struct {
	SessionID  string    `json:"session_id"`
	RequestID  string    `json:"request_id"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment,omitempty"`
	AnswerText *string   `json:"answer_text,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store appends events to a JSONL file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates the parent directory if needed. The file itself is
// created lazily on first append.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create feedback directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Append writes one event as a JSON line. A zero CreatedAt is stamped with
// the current UTC time.
func (s *Store) Append(event Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode feedback event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open feedback file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append feedback event: %w", err)
	}
	return nil
}

// All reads every stored event, oldest first. A missing file is an empty
// store, not an error.
func (s *Store) All() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open feedback file: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			// A torn tail line from a crashed writer is skipped, not fatal.
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("scan feedback file: %w", err)
	}
	return events, nil
}
