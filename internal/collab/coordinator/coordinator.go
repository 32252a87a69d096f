package collab_coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	collab_persist "github.com/shinchan79/peerpoint/internal/collab/persist"
	collab_resolver "github.com/shinchan79/peerpoint/internal/collab/resolver"
	collab_session "github.com/shinchan79/peerpoint/internal/collab/session"
	collab_state "github.com/shinchan79/peerpoint/internal/collab/state"
	"github.com/shinchan79/peerpoint/internal/model"
)

var (
	ErrRoomClosed    = errors.New("room closed")
	ErrInvalidOption = collab_state.ErrInvalidOption
	ErrWrongRoomKind = errors.New("operation not supported by room kind")
)

type Config struct {
	IdleTTL           time.Duration
	HeartbeatInterval time.Duration
	SendBuffer        int
	InboxSize         int
}

func (c Config) withDefaults() Config {
	if c.IdleTTL <= 0 {
		c.IdleTTL = time.Minute
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 32
	}
	if c.InboxSize <= 0 {
		c.InboxSize = 256
	}
	return c
}

// Coordinator is the single serialized owner of one room. Every
// state-mutating operation funnels through its inbox and runs one at a
// time; rooms run fully independently of each other.
type Coordinator struct {
	id       model.RoomID
	cfg      Config
	state    *collab_state.Store
	resolver *collab_resolver.Resolver
	sessions *collab_session.Registry
	presence *collab_session.Presence
	gateway  *collab_persist.Gateway
	logger   *slog.Logger
	onEvict  func(model.RoomID, *Coordinator)
	now      func() time.Time

	inbox    chan func()
	quit     chan struct{}
	stopped  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func New(
	id model.RoomID,
	state *collab_state.Store,
	resolver *collab_resolver.Resolver,
	gateway *collab_persist.Gateway,
	onEvict func(model.RoomID, *Coordinator),
	logger *slog.Logger,
	cfg Config,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if onEvict == nil {
		onEvict = func(model.RoomID, *Coordinator) {}
	}
	c := &Coordinator{
		id:       id,
		cfg:      cfg.withDefaults(),
		state:    state,
		resolver: resolver,
		sessions: collab_session.NewRegistry(),
		presence: collab_session.NewPresence(),
		gateway:  gateway,
		logger:   logger,
		onEvict:  onEvict,
		now:      time.Now,
		inbox:    make(chan func(), cfg.withDefaults().InboxSize),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Coordinator) ID() model.RoomID { return c.id }

// Alive reports whether the coordinator still accepts operations. A
// resolve racing an eviction uses this to re-create instead of attaching
// to a dying actor.
func (c *Coordinator) Alive() bool {
	select {
	case <-c.stopped:
		return false
	default:
		return true
	}
}

// Join registers the participant, delivers the init snapshot on the new
// session's channel and announces the join to everyone else.
func (c *Coordinator) Join(ctx context.Context, p model.Participant) (*collab_session.Session, error) {
	var sess *collab_session.Session
	err := c.do(ctx, func() {
		sess = c.handleJoin(p)
	})
	return sess, err
}

// Leave is fire-and-forget and idempotent.
func (c *Coordinator) Leave(sess *collab_session.Session) {
	c.post(func() {
		c.drop(sess)
	})
}

// HandleMessage routes one inbound message. Malformed messages are dropped
// with a warning; the connection stays open.
func (c *Coordinator) HandleMessage(sess *collab_session.Session, raw []byte) {
	c.post(func() {
		c.handleMessage(sess, raw)
	})
}

// CastVote is the HTTP vote path; it is serialized through the same inbox
// as the websocket one.
func (c *Coordinator) CastVote(ctx context.Context, option string) error {
	var voteErr error
	if err := c.do(ctx, func() {
		voteErr = c.applyVote(option)
	}); err != nil {
		return err
	}
	return voteErr
}

func (c *Coordinator) Snapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	err := c.do(ctx, func() {
		snap = c.state.Snapshot(c.id, c.now())
	})
	return snap, err
}

func (c *Coordinator) Participants(ctx context.Context) ([]model.Participant, error) {
	var participants []model.Participant
	err := c.do(ctx, func() {
		participants = c.sessions.Participants()
	})
	return participants, err
}

// Wait blocks until the actor goroutine has exited. After a Stop or an
// eviction this includes the final snapshot flush.
func (c *Coordinator) Wait() {
	<-c.done
}

// Stop shuts the room down, flushing a final snapshot. Blocks until the
// actor has exited.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
	})
	<-c.done
}

func (c *Coordinator) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		fn()
		close(ran)
	}
	select {
	case c.inbox <- wrapped:
	case <-c.stopped:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-c.stopped:
		select {
		case <-ran:
			return nil
		default:
			return ErrRoomClosed
		}
	}
}

func (c *Coordinator) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.stopped:
	}
}

func (c *Coordinator) run() {
	defer close(c.done)

	heartbeat := time.NewTicker(c.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	// A freshly created room with no joins yet still idles out.
	idle := time.NewTimer(c.cfg.IdleTTL)
	defer idle.Stop()
	idleArmed := true

	rearm := func() {
		if c.sessions.Len() == 0 {
			if !idleArmed {
				idle.Reset(c.cfg.IdleTTL)
				idleArmed = true
			}
			return
		}
		if idleArmed {
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idleArmed = false
		}
	}

	for {
		select {
		case fn := <-c.inbox:
			fn()
			rearm()
		case <-heartbeat.C:
			c.reapStale()
			rearm()
		case <-idle.C:
			c.logger.Info("room idle, evicting", "room", c.id)
			c.terminate()
			return
		case <-c.quit:
			c.terminate()
			return
		}
	}
}

// terminate stops accepting commands, flushes the final snapshot and
// releases every remaining session.
func (c *Coordinator) terminate() {
	close(c.stopped)

	// Drain queued writes first so the final flush is the last word.
	c.gateway.Close()
	final := c.state.Snapshot(c.id, c.now())
	if err := c.gateway.SaveSync(final); err != nil {
		c.logger.Error("final snapshot flush failed", "room", c.id, "error", err)
	}

	for _, s := range c.sessions.All() {
		c.sessions.Remove(s)
		c.presence.Remove(s.Participant.ID)
		s.Close()
	}

	c.onEvict(c.id, c)
}

func (c *Coordinator) handleJoin(p model.Participant) *collab_session.Session {
	now := c.now()
	sess := collab_session.NewSession(p, c.cfg.SendBuffer, now)
	c.sessions.Add(sess)

	c.sendTo(sess, model.Event{Type: model.EventInit, Payload: c.initPayload()})
	c.broadcastEvent(model.Event{Type: model.EventParticipantJoined, Payload: p}, sess)

	c.logger.Info("participant joined",
		"room", c.id, "participant", p.ID, "session", sess.ID)
	return sess
}

type initPayload struct {
	Kind         model.RoomKind      `json:"kind"`
	Content      string              `json:"content,omitempty"`
	Question     string              `json:"question,omitempty"`
	Options      []string            `json:"options,omitempty"`
	Votes        map[string]int      `json:"votes,omitempty"`
	Total        int                 `json:"total,omitempty"`
	Version      uint64              `json:"version"`
	Participants []model.Participant `json:"participants"`
	Cursors      []model.Cursor      `json:"cursors"`
}

func (c *Coordinator) initPayload() initPayload {
	snap := c.state.Snapshot(c.id, c.now())
	return initPayload{
		Kind:         snap.Kind,
		Content:      snap.Content,
		Question:     snap.Question,
		Options:      snap.Options,
		Votes:        snap.Votes,
		Total:        snap.VotesTotal(),
		Version:      snap.Version,
		Participants: c.sessions.Participants(),
		Cursors:      c.presence.List(),
	}
}

func (c *Coordinator) handleMessage(sess *collab_session.Session, raw []byte) {
	var in model.Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		c.logger.Warn("malformed message dropped", "room", c.id, "error", err)
		return
	}

	// Any traffic proves the participant is alive; reaping measures
	// silence, not missed pings.
	sess.Touch(c.now())

	switch in.Type {
	case model.EventCodeChange:
		c.handleEdit(sess, in.Payload)
	case model.EventCursorUpdate:
		c.handleCursor(sess, in.Payload)
	case model.EventChatMessage:
		c.handleChat(sess, in.Payload)
	case model.EventVote:
		c.handleVote(sess, in.Payload)
	case model.EventPing:
		c.sendTo(sess, model.Event{Type: model.EventPong})
	default:
		c.logger.Warn("unknown message type dropped", "room", c.id, "type", in.Type)
	}
}

func (c *Coordinator) handleEdit(sess *collab_session.Session, payload json.RawMessage) {
	if c.state.Kind() != model.RoomKindDocument {
		c.logger.Warn("edit dropped for non-document room", "room", c.id)
		return
	}

	var edit model.Edit
	if err := json.Unmarshal(payload, &edit); err != nil {
		c.logger.Warn("malformed edit dropped", "room", c.id, "error", err)
		return
	}
	edit.ParticipantID = sess.Participant.ID

	now := c.now()
	transformed := c.resolver.Transform(edit, c.state.History(now), now)
	applied := c.state.ApplyEdit(transformed, now)

	c.broadcastEvent(model.Event{Type: model.EventCodeChange, Payload: applied}, sess)
	c.gateway.Save(c.state.Snapshot(c.id, now))
}

type cursorPayload struct {
	Position  model.Position   `json:"position"`
	Selection *model.Selection `json:"selection,omitempty"`
}

func (c *Coordinator) handleCursor(sess *collab_session.Session, payload json.RawMessage) {
	var in cursorPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		c.logger.Warn("malformed cursor update dropped", "room", c.id, "error", err)
		return
	}

	cursor := model.Cursor{
		ParticipantID: sess.Participant.ID,
		Name:          sess.Participant.Name,
		Color:         sess.Participant.Color,
		Position:      in.Position,
		Selection:     in.Selection,
	}
	c.presence.Set(cursor)

	// Not echoed back: the sender already knows where its cursor is.
	c.broadcastEvent(model.Event{Type: model.EventCursorUpdate, Payload: cursor}, sess)
}

type chatPayload struct {
	Content string `json:"content"`
}

func (c *Coordinator) handleChat(sess *collab_session.Session, payload json.RawMessage) {
	var in chatPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		c.logger.Warn("malformed chat message dropped", "room", c.id, "error", err)
		return
	}

	msg := model.ChatMessage{
		ID:            uuid.New().String(),
		ParticipantID: sess.Participant.ID,
		Name:          sess.Participant.Name,
		Color:         sess.Participant.Color,
		Content:       in.Content,
		Timestamp:     c.now(),
	}

	// Sender included: it needs the server-confirmed order and timestamp.
	c.broadcastEvent(model.Event{Type: model.EventChatMessage, Payload: msg}, nil)
}

type votePayload struct {
	Option string `json:"option"`
}

func (c *Coordinator) handleVote(sess *collab_session.Session, payload json.RawMessage) {
	var in votePayload
	if err := json.Unmarshal(payload, &in); err != nil {
		c.logger.Warn("malformed vote dropped", "room", c.id, "error", err)
		return
	}

	if err := c.applyVote(in.Option); err != nil {
		c.sendTo(sess, model.Event{Type: model.EventError, Payload: map[string]string{
			"message": "invalid option",
			"option":  in.Option,
		}})
	}
}

type voteUpdatePayload struct {
	Votes   map[string]int `json:"votes"`
	Total   int            `json:"total"`
	Version uint64         `json:"version"`
}

func (c *Coordinator) applyVote(option string) error {
	if c.state.Kind() != model.RoomKindPoll {
		return ErrWrongRoomKind
	}
	if err := c.state.CastVote(option); err != nil {
		c.logger.Warn("vote rejected", "room", c.id, "option", option)
		return err
	}

	votes, total := c.state.Votes()
	c.broadcastEvent(model.Event{Type: model.EventVoteUpdate, Payload: voteUpdatePayload{
		Votes:   votes,
		Total:   total,
		Version: c.state.Version(),
	}}, nil)

	c.gateway.Save(c.state.Snapshot(c.id, c.now()))
	return nil
}

func (c *Coordinator) reapStale() {
	deadline := c.now().Add(-2 * c.cfg.HeartbeatInterval)
	for _, sess := range c.sessions.Stale(func(s *collab_session.Session) bool {
		return s.LastSeen.Before(deadline)
	}) {
		c.logger.Info("session missed heartbeats, dropping",
			"room", c.id, "session", sess.ID)
		c.drop(sess)
	}
}

// drop removes a session, its cursor and announces the departure. Send
// failures during the announcement cascade into further drops; the
// worklist keeps that iterative.
func (c *Coordinator) drop(sess *collab_session.Session) {
	pending := []*collab_session.Session{sess}
	for len(pending) > 0 {
		s := pending[0]
		pending = pending[1:]

		if !c.sessions.Remove(s) {
			continue
		}
		s.Close()
		c.presence.Remove(s.Participant.ID)

		left, err := json.Marshal(model.Event{
			Type:    model.EventParticipantLeft,
			Payload: map[string]string{"participant_id": s.Participant.ID},
		})
		if err != nil {
			continue
		}
		failed := c.sessions.Broadcast(left, nil)
		c.logFailed(failed)
		pending = append(pending, failed...)

		c.logger.Info("participant left",
			"room", c.id, "participant", s.Participant.ID, "session", s.ID)
	}
}

func (c *Coordinator) broadcastEvent(ev model.Event, except *collab_session.Session) {
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("event marshal failed", "room", c.id, "error", err)
		return
	}
	failed := c.sessions.Broadcast(payload, except)
	c.logFailed(failed)
	for _, s := range failed {
		c.drop(s)
	}
}

func (c *Coordinator) sendTo(sess *collab_session.Session, ev model.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("event marshal failed", "room", c.id, "error", err)
		return
	}
	if sendErr := sess.Send(payload); sendErr != nil {
		c.drop(sess)
	}
}

func (c *Coordinator) logFailed(failed []*collab_session.Session) {
	for _, s := range failed {
		c.logger.Warn("send failed, treating as disconnect",
			"room", c.id, "session", s.ID)
	}
}
