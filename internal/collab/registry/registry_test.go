package collab_registry

import (
	"context"
	"sync"
	"testing"
	"time"

	collab_coordinator "github.com/shinchan79/peerpoint/internal/collab/coordinator"
	collab_persist "github.com/shinchan79/peerpoint/internal/collab/persist"
	"github.com/shinchan79/peerpoint/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string][]byte)}
}

func (f *fakeStore) Put(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeStore) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	return value, ok, nil
}

func newTestRegistry(store collab_persist.SnapshotStore, idleTTL time.Duration) *Registry {
	return New(store, nil, Config{
		Coordinator: collab_coordinator.Config{
			IdleTTL:           idleTTL,
			HeartbeatInterval: time.Minute,
		},
		Persist:       collab_persist.Config{Attempts: 1, Backoff: time.Millisecond},
		HistoryWindow: 5 * time.Second,
	})
}

func pollParams(id model.RoomID) CreateParams {
	return CreateParams{
		ID:       id,
		Kind:     model.RoomKindPoll,
		Question: "q",
		Options:  []string{"A", "B"},
	}
}

func TestCreateAndResolve(t *testing.T) {
	r := newTestRegistry(newFakeStore(), time.Minute)
	defer r.Close()

	created, err := r.Create(pollParams("room-1"))
	require.NoError(t, err)

	resolved, err := r.Resolve("room-1")
	require.NoError(t, err)
	assert.Same(t, created, resolved)
}

func TestResolveUnknownRoom(t *testing.T) {
	r := newTestRegistry(newFakeStore(), time.Minute)
	defer r.Close()

	_, err := r.Resolve("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCreateInvalidKind(t *testing.T) {
	r := newTestRegistry(newFakeStore(), time.Minute)
	defer r.Close()

	_, err := r.Create(CreateParams{ID: "room-1", Kind: "karaoke"})
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestCreateRejectsLiveDuplicate(t *testing.T) {
	r := newTestRegistry(newFakeStore(), time.Minute)
	defer r.Close()

	first, err := r.Create(pollParams("room-1"))
	require.NoError(t, err)
	require.True(t, first.Alive())

	_, err = r.Create(pollParams("room-1"))
	assert.ErrorIs(t, err, ErrRoomExists)
}

func TestConcurrentResolveProducesOneCoordinator(t *testing.T) {
	store := newFakeStore()
	seed := newTestRegistry(store, time.Minute)
	_, err := seed.Create(pollParams("room-1"))
	require.NoError(t, err)
	seed.Close() // flushes the snapshot; fresh registry must hydrate

	r := newTestRegistry(store, time.Minute)
	defer r.Close()

	const resolvers = 16
	var wg sync.WaitGroup
	results := make([]*collab_coordinator.Coordinator, resolvers)
	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, resolveErr := r.Resolve("room-1")
			assert.NoError(t, resolveErr)
			results[i] = c
		}(i)
	}
	wg.Wait()

	for i := 1; i < resolvers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestEvictionThenRehydration(t *testing.T) {
	store := newFakeStore()
	r := newTestRegistry(store, 20*time.Millisecond)
	defer r.Close()

	created, err := r.Create(pollParams("room-1"))
	require.NoError(t, err)
	require.NoError(t, created.CastVote(context.Background(), "A"))
	require.NoError(t, created.CastVote(context.Background(), "A"))
	require.NoError(t, created.CastVote(context.Background(), "B"))

	// No sessions ever joined, so the idle timer evicts the room.
	require.Eventually(t, func() bool {
		return !created.Alive()
	}, time.Second, 5*time.Millisecond)

	rehydrated, err := r.Resolve("room-1")
	require.NoError(t, err)
	assert.NotSame(t, created, rehydrated)

	snap, err := rehydrated.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, snap.Votes)
	assert.Equal(t, 3, snap.VotesTotal())
	assert.Equal(t, uint64(3), snap.Version)
	assert.Equal(t, model.RoomKindPoll, snap.Kind)
}

// gatedStore stalls the first write until the gate opens, holding a dying
// room in its final-flush phase.
type gatedStore struct {
	fakeStore
	gate  chan struct{}
	first sync.Once
}

func (g *gatedStore) Put(key string, value []byte) error {
	block := false
	g.first.Do(func() { block = true })
	if block {
		<-g.gate
	}
	return g.fakeStore.Put(key, value)
}

func TestResolveWaitsForDyingRoomFlush(t *testing.T) {
	store := &gatedStore{
		fakeStore: fakeStore{values: make(map[string][]byte)},
		gate:      make(chan struct{}),
	}
	r := newTestRegistry(store, 15*time.Millisecond)
	defer r.Close()

	created, err := r.Create(pollParams("room-1"))
	require.NoError(t, err)
	require.NoError(t, created.CastVote(context.Background(), "A"))

	// Eviction starts but the flush is parked on the gate, so the store is
	// still empty when the coordinator stops accepting operations.
	require.Eventually(t, func() bool {
		return !created.Alive()
	}, time.Second, 2*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(store.gate)
	}()

	rehydrated, err := r.Resolve("room-1")
	require.NoError(t, err)
	assert.NotSame(t, created, rehydrated)

	snap, err := rehydrated.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Votes["A"])
	assert.Equal(t, uint64(1), snap.Version)
}

func TestCloseFlushesEveryRoom(t *testing.T) {
	store := newFakeStore()
	r := newTestRegistry(store, time.Minute)

	doc, err := r.Create(CreateParams{ID: "doc-1", Kind: model.RoomKindDocument, Content: "abc"})
	require.NoError(t, err)
	_, err = r.Create(pollParams("poll-1"))
	require.NoError(t, err)

	r.Close()
	assert.False(t, doc.Alive())

	fresh := newTestRegistry(store, time.Minute)
	defer fresh.Close()

	restored, err := fresh.Resolve("doc-1")
	require.NoError(t, err)
	snap, err := restored.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", snap.Content)
}
