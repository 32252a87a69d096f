package collab_session

import "github.com/shinchan79/peerpoint/internal/model"

// Presence keeps the latest cursor per participant. Exactly one cursor per
// connected participant, overwritten in place, dropped on disconnect.
type Presence struct {
	cursors map[string]model.Cursor
}

func NewPresence() *Presence {
	return &Presence{cursors: make(map[string]model.Cursor)}
}

func (p *Presence) Set(c model.Cursor) {
	p.cursors[c.ParticipantID] = c
}

func (p *Presence) Remove(participantID string) {
	delete(p.cursors, participantID)
}

func (p *Presence) List() []model.Cursor {
	cursors := make([]model.Cursor, 0, len(p.cursors))
	for _, c := range p.cursors {
		cursors = append(cursors, c)
	}
	return cursors
}
