package collab_state

import (
	"testing"
	"time"

	"github.com/shinchan79/peerpoint/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEdit(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name     string
		content  string
		edit     model.Edit
		expected string
	}{
		{
			name:     "Should insert at offset",
			content:  "abc",
			edit:     model.Edit{Kind: model.EditInsert, Offset: 1, Text: "X"},
			expected: "aXbc",
		},
		{
			name:     "Should insert at end",
			content:  "abc",
			edit:     model.Edit{Kind: model.EditInsert, Offset: 3, Text: "Y"},
			expected: "abcY",
		},
		{
			name:     "Should delete range",
			content:  "abcdef",
			edit:     model.Edit{Kind: model.EditDelete, Offset: 1, Length: 3},
			expected: "aef",
		},
		{
			name:     "Should replace range",
			content:  "abcdef",
			edit:     model.Edit{Kind: model.EditReplace, Offset: 2, Length: 2, Text: "XY"},
			expected: "abXYef",
		},
		{
			name:     "Should clamp offset past end",
			content:  "abc",
			edit:     model.Edit{Kind: model.EditInsert, Offset: 42, Text: "Z"},
			expected: "abcZ",
		},
		{
			name:     "Should clamp delete past end",
			content:  "abc",
			edit:     model.Edit{Kind: model.EditDelete, Offset: 2, Length: 100},
			expected: "ab",
		},
		{
			name:     "Should clamp negative offset to zero",
			content:  "abc",
			edit:     model.Edit{Kind: model.EditInsert, Offset: -5, Text: "Z"},
			expected: "Zabc",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewDocument(tc.content, 5*time.Second)
			s.ApplyEdit(tc.edit, now)
			assert.Equal(t, tc.expected, s.Content())
		})
	}
}

func TestVersionIncrementsByExactlyOne(t *testing.T) {
	now := time.Now()
	s := NewDocument("", 5*time.Second)

	for i := 1; i <= 10; i++ {
		s.ApplyEdit(model.Edit{Kind: model.EditInsert, Offset: 0, Text: "a"}, now)
		assert.Equal(t, uint64(i), s.Version())
	}
}

func TestHistoryTrimsOutsideWindow(t *testing.T) {
	now := time.Now()
	s := NewDocument("", 5*time.Second)

	s.ApplyEdit(model.Edit{Kind: model.EditInsert, Offset: 0, Text: "old"}, now.Add(-10*time.Second))
	s.ApplyEdit(model.Edit{Kind: model.EditInsert, Offset: 0, Text: "new"}, now)

	history := s.History(now)
	require.Len(t, history, 1)
	assert.Equal(t, "new", history[0].Text)
}

func TestCastVote(t *testing.T) {
	s := NewPoll("favorite letter?", []string{"A", "B"}, 5*time.Second)

	require.NoError(t, s.CastVote("A"))
	require.NoError(t, s.CastVote("A"))
	require.NoError(t, s.CastVote("B"))

	votes, total := s.Votes()
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, votes)
	assert.Equal(t, 3, total)
	assert.Equal(t, uint64(3), s.Version())
}

func TestCastVoteRejectsUndeclaredOption(t *testing.T) {
	s := NewPoll("q", []string{"A", "B"}, 5*time.Second)
	require.NoError(t, s.CastVote("A"))

	err := s.CastVote("C")
	assert.ErrorIs(t, err, ErrInvalidOption)

	// Rejected vote changes nothing: no new option, no count, no version.
	votes, total := s.Votes()
	assert.Equal(t, map[string]int{"A": 1, "B": 0}, votes)
	assert.Equal(t, 1, total)
	assert.Equal(t, uint64(1), s.Version())
}

func TestSnapshotRoundTrip(t *testing.T) {
	now := time.Now()
	s := NewPoll("q", []string{"yes", "no"}, 5*time.Second)
	require.NoError(t, s.CastVote("yes"))

	snap := s.Snapshot("room-1", now)
	restored := FromSnapshot(snap, 5*time.Second)

	votes, total := restored.Votes()
	assert.Equal(t, model.RoomKindPoll, restored.Kind())
	assert.Equal(t, map[string]int{"yes": 1, "no": 0}, votes)
	assert.Equal(t, 1, total)
	assert.Equal(t, snap.Version, restored.Version())
}

func TestSnapshotDocument(t *testing.T) {
	now := time.Now()
	s := NewDocument("hello", 5*time.Second)
	s.ApplyEdit(model.Edit{Kind: model.EditInsert, Offset: 5, Text: " world"}, now)

	snap := s.Snapshot("doc-1", now)
	assert.Equal(t, "hello world", snap.Content)
	assert.Equal(t, uint64(1), snap.Version)

	restored := FromSnapshot(snap, 5*time.Second)
	assert.Equal(t, "hello world", restored.Content())
	assert.Equal(t, uint64(1), restored.Version())
}
