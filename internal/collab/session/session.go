package collab_session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shinchan79/peerpoint/internal/model"
)

var ErrSessionClosed = errors.New("session closed")

// Session is the opaque handle to one live connection. The coordinator
// owns its lifecycle; the transport only drains Outbound.
type Session struct {
	ID          string
	Participant model.Participant
	LastSeen    time.Time

	send   chan []byte
	closed bool
}

func NewSession(p model.Participant, buffer int, now time.Time) *Session {
	return &Session{
		ID:          uuid.New().String(),
		Participant: p,
		LastSeen:    now,
		send:        make(chan []byte, buffer),
	}
}

// Send is non-blocking. A full buffer counts as a send failure: the
// connection is either gone or too slow to keep.
func (s *Session) Send(payload []byte) error {
	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.send <- payload:
		return nil
	default:
		return ErrSessionClosed
	}
}

func (s *Session) Outbound() <-chan []byte { return s.send }

func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

func (s *Session) Touch(now time.Time) { s.LastSeen = now }
