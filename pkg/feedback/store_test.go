package feedback

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AppendAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s, err := NewStore(path)
	require.NoError(t, err)

	comment := "great tips"
	require.NoError(t, s.Append(Event{SessionID: "s1", RequestID: "r1", Rating: 5, Comment: &comment}))
	require.NoError(t, s.Append(Event{SessionID: "s1", RequestID: "r2", Rating: 2}))

	events, err := s.All()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "r1", events[0].RequestID)
	assert.Equal(t, 5, events[0].Rating)
	require.NotNil(t, events[0].Comment)
	assert.Equal(t, "great tips", *events[0].Comment)
	assert.False(t, events[0].CreatedAt.IsZero(), "zero created_at is stamped on append")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(raw), "\n"), "one line per event")
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "events.jsonl"))
	require.NoError(t, err)

	events, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStore_SkipsTornLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Append(Event{SessionID: "s1", RequestID: "r1", Rating: 4, CreatedAt: time.Now()}))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"session_id":"s1","request`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	events, err := s.All()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "r1", events[0].RequestID)
}
