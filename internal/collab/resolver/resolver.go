package collab_resolver

import (
	"time"

	"github.com/shinchan79/peerpoint/internal/model"
)

// Resolver adjusts a position-based edit computed against an earlier
// version to the position implied by edits already applied. It is a
// best-effort heuristic, not a full OT algebra: edits are transformed
// against everything already committed, never reordered or rolled back.
type Resolver struct {
	window time.Duration
}

func New(window time.Duration) *Resolver {
	return &Resolver{window: window}
}

// Transform shifts the incoming edit's offset by concurrent history edits
// from other participants that landed before it. A transformed offset
// never goes negative; overlapping concurrent deletes clamp to zero.
func (r *Resolver) Transform(edit model.Edit, history []model.Edit, now time.Time) model.Edit {
	cutoff := now.Add(-r.window)

	// Shifts accumulate against the offset the sender computed, not the
	// progressively adjusted one, so a history edit above the original
	// position never contributes.
	origin := edit.Offset

	for _, prev := range history {
		if prev.ParticipantID == edit.ParticipantID {
			// Self-edits are already locally consistent on the sender.
			continue
		}
		if prev.AppliedAt.Before(cutoff) {
			continue
		}
		if prev.Offset >= origin {
			continue
		}
		switch prev.Kind {
		case model.EditInsert:
			edit.Offset += len(prev.Text)
		case model.EditDelete:
			edit.Offset -= prev.Length
		}
	}

	if edit.Offset < 0 {
		edit.Offset = 0
	}
	return edit
}
