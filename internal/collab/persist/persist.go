package collab_persist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shinchan79/peerpoint/internal/model"
)

// SnapshotStore is the durable key-value collaborator.
type SnapshotStore interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, bool, error)
}

type Config struct {
	Attempts  int
	Backoff   time.Duration
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 8
	}
	return c
}

// Gateway writes room snapshots through to the store without ever
// blocking the mutation path. One gateway per room; writes are retried in
// the background and last-write-wins, since snapshots carry full state.
type Gateway struct {
	store  SnapshotStore
	logger *slog.Logger
	cfg    Config

	queue chan model.Snapshot
	stop  chan struct{}
	done  chan struct{}
}

func New(store SnapshotStore, logger *slog.Logger, cfg Config) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		store:  store,
		logger: logger,
		cfg:    cfg.withDefaults(),
		queue:  make(chan model.Snapshot, cfg.withDefaults().QueueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go g.run()
	return g
}

// Save enqueues a snapshot, fire-and-forget. When the queue is full the
// oldest pending snapshot is dropped; only the newest state matters.
func (g *Gateway) Save(snap model.Snapshot) {
	for {
		select {
		case g.queue <- snap:
			return
		default:
		}
		select {
		case stale := <-g.queue:
			g.logger.Warn("snapshot queue full, dropping stale write",
				"room", stale.RoomID, "version", stale.Version)
		default:
		}
	}
}

// SaveSync writes a snapshot in the caller's goroutine, with retries.
// Used for the final flush before eviction.
func (g *Gateway) SaveSync(snap model.Snapshot) error {
	return g.write(snap)
}

// Load reads the last persisted snapshot, if any. Called only at
// coordinator construction, so there is no read-modify-write race.
func (g *Gateway) Load(id model.RoomID) (model.Snapshot, bool, error) {
	value, ok, err := g.store.Get(string(id))
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return model.Snapshot{}, false, nil
	}
	var snap model.Snapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Close drains pending writes and stops the background worker.
func (g *Gateway) Close() {
	close(g.stop)
	<-g.done
}

func (g *Gateway) run() {
	defer close(g.done)
	for {
		select {
		case snap := <-g.queue:
			if err := g.write(snap); err != nil {
				g.logger.Error("snapshot write failed",
					"room", snap.RoomID, "version", snap.Version, "error", err)
			}
		case <-g.stop:
			for {
				select {
				case snap := <-g.queue:
					if err := g.write(snap); err != nil {
						g.logger.Error("snapshot write failed on drain",
							"room", snap.RoomID, "error", err)
					}
				default:
					return
				}
			}
		}
	}
}

func (g *Gateway) write(snap model.Snapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var last error
	for attempt := 0; attempt < g.cfg.Attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(g.cfg.Backoff * time.Duration(attempt))
		}
		if last = g.store.Put(string(snap.RoomID), value); last == nil {
			return nil
		}
	}
	return last
}
