package model

import "encoding/json"

type EventType string

// Client -> server message types.
const (
	EventCodeChange   EventType = "code_change"
	EventCursorUpdate EventType = "cursor_update"
	EventChatMessage  EventType = "chat_message"
	EventVote         EventType = "vote"
	EventPing         EventType = "ping"
)

// Server -> client message types.
const (
	EventInit              EventType = "init"
	EventParticipantJoined EventType = "participant_joined"
	EventParticipantLeft   EventType = "participant_left"
	EventVoteUpdate        EventType = "vote_update"
	EventPong              EventType = "pong"
	EventError             EventType = "error"
)

type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// Inbound defers payload decoding until the type is known.
type Inbound struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
