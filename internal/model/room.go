package model

import "time"

type RoomID string

const EmptyRoomID RoomID = ""

type RoomKind string

const (
	RoomKindDocument RoomKind = "document"
	RoomKindPoll     RoomKind = "poll"
)

// Snapshot is the full current state of a room, enough to reconstruct it
// without replaying history.
type Snapshot struct {
	RoomID   RoomID         `json:"room_id"`
	Kind     RoomKind       `json:"kind"`
	Content  string         `json:"content,omitempty"`
	Question string         `json:"question,omitempty"`
	Options  []string       `json:"options,omitempty"`
	Votes    map[string]int `json:"votes,omitempty"`
	Version  uint64         `json:"version"`
	SavedAt  time.Time      `json:"saved_at"`
}

func (s Snapshot) VotesTotal() int {
	total := 0
	for _, n := range s.Votes {
		total += n
	}
	return total
}
