package model

import "time"

type EditKind string

const (
	EditInsert  EditKind = "insert"
	EditDelete  EditKind = "delete"
	EditReplace EditKind = "replace"
)

// Edit is a single document mutation. Immutable once accepted; accepted
// edits are folded into content exactly once and appended to the bounded
// history used for reconciliation.
type Edit struct {
	Kind          EditKind `json:"type"`
	Offset        int      `json:"position"`
	Text          string   `json:"text,omitempty"`
	Length        int      `json:"length,omitempty"`
	ParticipantID string   `json:"participant_id"`
	Timestamp     int64    `json:"timestamp"`

	// Server-side acceptance time, drives the reconciliation window.
	AppliedAt time.Time `json:"-"`
}

// ChatMessage is server-stamped so every client observes the same order
// and timestamp.
type ChatMessage struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name"`
	Color         string    `json:"color"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
}
