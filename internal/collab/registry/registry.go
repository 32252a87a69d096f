package collab_registry

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	collab_coordinator "github.com/shinchan79/peerpoint/internal/collab/coordinator"
	collab_persist "github.com/shinchan79/peerpoint/internal/collab/persist"
	collab_resolver "github.com/shinchan79/peerpoint/internal/collab/resolver"
	collab_state "github.com/shinchan79/peerpoint/internal/collab/state"
	"github.com/shinchan79/peerpoint/internal/model"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
	ErrInvalidKind  = errors.New("invalid room kind")
)

type Config struct {
	Coordinator   collab_coordinator.Config
	Persist       collab_persist.Config
	HistoryWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 5 * time.Second
	}
	return c
}

type CreateParams struct {
	ID       model.RoomID
	Kind     model.RoomKind
	Content  string
	Question string
	Options  []string
}

// Registry maps a room id to exactly one live coordinator, creating it
// lazily from the last persisted snapshot and dropping it once the
// coordinator reports idle.
type Registry struct {
	mu    sync.Mutex
	rooms map[model.RoomID]*collab_coordinator.Coordinator

	store    collab_persist.SnapshotStore
	resolver *collab_resolver.Resolver
	cfg      Config
	logger   *slog.Logger
}

func New(store collab_persist.SnapshotStore, logger *slog.Logger, cfg Config) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Registry{
		rooms:    make(map[model.RoomID]*collab_coordinator.Coordinator),
		store:    store,
		resolver: collab_resolver.New(cfg.HistoryWindow),
		cfg:      cfg,
		logger:   logger,
	}
}

// Resolve returns the live coordinator for the room, hydrating one from
// the persisted snapshot when the room is not in memory. Rooms that were
// never created report ErrRoomNotFound.
func (r *Registry) Resolve(id model.RoomID) (*collab_coordinator.Coordinator, error) {
	if c, ok := r.lookup(id); ok {
		return c, nil
	}

	// Hydration reads the store, so it happens outside the lock; register
	// re-checks and keeps whichever coordinator won.
	gateway := collab_persist.New(r.store, r.logger, r.cfg.Persist)
	snap, ok, err := gateway.Load(id)
	if err != nil {
		gateway.Close()
		return nil, err
	}
	if !ok {
		gateway.Close()
		return nil, ErrRoomNotFound
	}

	r.logger.Info("room hydrated from snapshot", "room", id, "version", snap.Version)
	c, _ := r.register(id, collab_state.FromSnapshot(snap, r.cfg.HistoryWindow), gateway)
	return c, nil
}

// Create constructs a room with fresh state. An id whose coordinator is
// still live reports ErrRoomExists so the caller can pick another code.
func (r *Registry) Create(params CreateParams) (*collab_coordinator.Coordinator, error) {
	if _, ok := r.lookup(params.ID); ok {
		return nil, ErrRoomExists
	}

	var state *collab_state.Store
	switch params.Kind {
	case model.RoomKindDocument:
		state = collab_state.NewDocument(params.Content, r.cfg.HistoryWindow)
	case model.RoomKindPoll:
		state = collab_state.NewPoll(params.Question, params.Options, r.cfg.HistoryWindow)
	default:
		return nil, ErrInvalidKind
	}

	gateway := collab_persist.New(r.store, r.logger, r.cfg.Persist)
	c, created := r.register(params.ID, state, gateway)
	if !created {
		return nil, ErrRoomExists
	}
	return c, nil
}

// Close stops every live room, flushing final snapshots.
func (r *Registry) Close() {
	r.mu.Lock()
	live := make([]*collab_coordinator.Coordinator, 0, len(r.rooms))
	for _, c := range r.rooms {
		live = append(live, c)
	}
	r.mu.Unlock()

	for _, c := range live {
		c.Stop()
	}
}

func (r *Registry) lookup(id model.RoomID) (*collab_coordinator.Coordinator, bool) {
	r.mu.Lock()
	c, ok := r.rooms[id]
	r.mu.Unlock()

	if !ok {
		return nil, false
	}
	if !c.Alive() {
		// Half-evicted entry: wait for its final flush before the caller
		// re-creates, so hydration never reads a stale snapshot. The wait
		// runs unlocked because the dying actor's evict callback takes the
		// same mutex.
		c.Wait()
		r.mu.Lock()
		if r.rooms[id] == c {
			delete(r.rooms, id)
		}
		r.mu.Unlock()
		return nil, false
	}
	return c, true
}

func (r *Registry) register(
	id model.RoomID,
	state *collab_state.Store,
	gateway *collab_persist.Gateway,
) (*collab_coordinator.Coordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rooms[id]; ok && existing.Alive() {
		// Lost a concurrent construction race for the same id.
		go gateway.Close()
		return existing, false
	}

	c := collab_coordinator.New(id, state, r.resolver, gateway, r.evict, r.logger, r.cfg.Coordinator)
	r.rooms[id] = c
	r.logger.Info("room registered", "room", id, "kind", state.Kind())
	return c, true
}

func (r *Registry) evict(id model.RoomID, c *collab_coordinator.Coordinator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[id] == c {
		delete(r.rooms, id)
		r.logger.Info("room evicted", "room", id)
	}
}
