package collab_session

import "github.com/shinchan79/peerpoint/internal/model"

// Registry tracks the live sessions of one room. It is only ever touched
// from the room's coordinator goroutine, so it carries no lock.
type Registry struct {
	sessions map[*Session]struct{}
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[*Session]struct{})}
}

func (r *Registry) Add(s *Session) {
	r.sessions[s] = struct{}{}
}

// Remove is idempotent: removing twice, or after a send failure already
// removed the session, reports false and does nothing.
func (r *Registry) Remove(s *Session) bool {
	if _, ok := r.sessions[s]; !ok {
		return false
	}
	delete(r.sessions, s)
	return true
}

func (r *Registry) Len() int { return len(r.sessions) }

func (r *Registry) All() []*Session {
	sessions := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Registry) Participants() []model.Participant {
	participants := make([]model.Participant, 0, len(r.sessions))
	for s := range r.sessions {
		participants = append(participants, s.Participant)
	}
	return participants
}

// Broadcast sends payload to every registered session except the excluded
// one. Failed sessions are collected and returned so the caller can apply
// removals after the pass completes; a failure never aborts the pass.
func (r *Registry) Broadcast(payload []byte, except *Session) []*Session {
	var failed []*Session
	for s := range r.sessions {
		if s == except {
			continue
		}
		if err := s.Send(payload); err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// Stale returns sessions whose last heartbeat is older than the deadline.
func (r *Registry) Stale(deadline func(*Session) bool) []*Session {
	var stale []*Session
	for s := range r.sessions {
		if deadline(s) {
			stale = append(stale, s)
		}
	}
	return stale
}
