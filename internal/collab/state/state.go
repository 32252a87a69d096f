package collab_state

import (
	"errors"
	"time"

	"github.com/shinchan79/peerpoint/internal/model"
)

var ErrInvalidOption = errors.New("option not declared for this poll")

// Store owns the authoritative room content, the version counter and the
// bounded edit history. Only the room's coordinator mutates it.
type Store struct {
	kind     model.RoomKind
	content  string
	question string
	options  []string
	votes    map[string]int
	version  uint64

	history []model.Edit
	window  time.Duration
}

func NewDocument(content string, window time.Duration) *Store {
	return &Store{
		kind:    model.RoomKindDocument,
		content: content,
		window:  window,
	}
}

func NewPoll(question string, options []string, window time.Duration) *Store {
	votes := make(map[string]int, len(options))
	for _, option := range options {
		votes[option] = 0
	}
	return &Store{
		kind:     model.RoomKindPoll,
		question: question,
		options:  options,
		votes:    votes,
		window:   window,
	}
}

func FromSnapshot(snap model.Snapshot, window time.Duration) *Store {
	s := &Store{
		kind:     snap.Kind,
		content:  snap.Content,
		question: snap.Question,
		options:  snap.Options,
		version:  snap.Version,
		window:   window,
	}
	if snap.Kind == model.RoomKindPoll {
		s.votes = make(map[string]int, len(snap.Options))
		for _, option := range snap.Options {
			s.votes[option] = snap.Votes[option]
		}
	}
	return s
}

func (s *Store) Kind() model.RoomKind { return s.kind }

func (s *Store) Version() uint64 { return s.version }

func (s *Store) Content() string { return s.content }

// ApplyEdit folds an already-transformed edit into content, bumps the
// version and appends the edit to the reconciliation history.
func (s *Store) ApplyEdit(edit model.Edit, now time.Time) model.Edit {
	edit.AppliedAt = now
	s.content = applyChange(s.content, edit)
	s.version++
	s.history = append(s.history, edit)
	s.trimHistory(now)
	return edit
}

// History returns edits still inside the reconciliation window, oldest
// first. The returned slice is shared; callers must not mutate it.
func (s *Store) History(now time.Time) []model.Edit {
	s.trimHistory(now)
	return s.history
}

func (s *Store) trimHistory(now time.Time) {
	cutoff := now.Add(-s.window)
	drop := 0
	for drop < len(s.history) && s.history[drop].AppliedAt.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		s.history = append(s.history[:0:0], s.history[drop:]...)
	}
}

// CastVote rejects options outside the declared set; the tally and the
// version are untouched on rejection.
func (s *Store) CastVote(option string) error {
	if _, ok := s.votes[option]; !ok {
		return ErrInvalidOption
	}
	s.votes[option]++
	s.version++
	return nil
}

func (s *Store) Votes() (map[string]int, int) {
	votes := make(map[string]int, len(s.votes))
	total := 0
	for option, n := range s.votes {
		votes[option] = n
		total += n
	}
	return votes, total
}

func (s *Store) Snapshot(id model.RoomID, now time.Time) model.Snapshot {
	snap := model.Snapshot{
		RoomID:   id,
		Kind:     s.kind,
		Content:  s.content,
		Question: s.question,
		Options:  s.options,
		Version:  s.version,
		SavedAt:  now,
	}
	if s.kind == model.RoomKindPoll {
		snap.Votes, _ = s.Votes()
	}
	return snap
}

func applyChange(content string, edit model.Edit) string {
	offset := clamp(edit.Offset, 0, len(content))
	switch edit.Kind {
	case model.EditInsert:
		return content[:offset] + edit.Text + content[offset:]
	case model.EditDelete:
		end := clamp(offset+edit.Length, offset, len(content))
		return content[:offset] + content[end:]
	case model.EditReplace:
		end := clamp(offset+edit.Length, offset, len(content))
		return content[:offset] + edit.Text + content[end:]
	default:
		return content
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
