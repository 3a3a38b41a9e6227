package draft

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/config"
)

func testRecord(identity, name string) *Record {
	return &Record{
		Identity: identity,
		Snapshot: &config.Snapshot{Identity: identity, Name: name},
	}
}

// storeFactories lets the shared contract tests run against every Store
// implementation.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": NewMemoryStore,
		"local": func() Store {
			s, err := NewLocalStoreAt(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := factory()

			require.NoError(t, store.Put(ctx, "vmcp-1", testRecord("vmcp-1", "demo")))

			got, err := store.Get(ctx, "vmcp-1")
			require.NoError(t, err)
			assert.Equal(t, "vmcp-1", got.Identity)
			assert.Equal(t, "demo", got.Snapshot.Name)
			assert.False(t, got.SavedAt.IsZero())
		})
	}
}

func TestStore_GetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := factory().Get(context.Background(), "absent")
			assert.ErrorIs(t, err, vmcp.ErrNotFound)
		})
	}
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := factory()

			require.NoError(t, store.Put(ctx, "vmcp-1", testRecord("vmcp-1", "demo")))
			require.NoError(t, store.Clear(ctx, "vmcp-1"))
			require.NoError(t, store.Clear(ctx, "vmcp-1"))

			_, err := store.Get(ctx, "vmcp-1")
			assert.ErrorIs(t, err, vmcp.ErrNotFound)
		})
	}
}

func TestStore_IdentitiesAreIsolated(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := factory()

			require.NoError(t, store.Put(ctx, "vmcp-a", testRecord("vmcp-a", "alpha")))
			require.NoError(t, store.Put(ctx, "vmcp-b", testRecord("vmcp-b", "beta")))

			// Clearing one identity must never affect the other's record.
			require.NoError(t, store.Clear(ctx, "vmcp-a"))

			got, err := store.Get(ctx, "vmcp-b")
			require.NoError(t, err)
			assert.Equal(t, "beta", got.Snapshot.Name)

			identities, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"vmcp-b"}, identities)
		})
	}
}

func TestStore_RejectsMismatchedIdentity(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := factory().Put(context.Background(), "vmcp-a", testRecord("vmcp-b", "beta"))
			assert.ErrorIs(t, err, vmcp.ErrStorageFailed)
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	record := testRecord("vmcp-1", "demo")
	require.NoError(t, store.Put(ctx, "vmcp-1", record))

	// Mutating what we put in or got out must not change the stored state.
	record.Snapshot.Name = "mutated-input"

	got, err := store.Get(ctx, "vmcp-1")
	require.NoError(t, err)
	got.Snapshot.Name = "mutated-output"

	again, err := store.Get(ctx, "vmcp-1")
	require.NoError(t, err)
	assert.Equal(t, "demo", again.Snapshot.Name)
}

func TestLocalStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewLocalStoreAt(dir)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "vmcp-1", testRecord("vmcp-1", "demo")))

	// A new store over the same directory simulates a process restart.
	second, err := NewLocalStoreAt(dir)
	require.NoError(t, err)

	got, err := second.Get(ctx, "vmcp-1")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Snapshot.Name)
}

func TestLocalStore_UnsafeIdentitiesAreHashed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := NewLocalStoreAt(t.TempDir())
	require.NoError(t, err)

	identity := "weird/../identity with spaces"
	require.NoError(t, store.Put(ctx, identity, testRecord(identity, "demo")))

	got, err := store.Get(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, identity, got.Identity)

	identities, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{identity}, identities)
}

// failingStore fails every operation with a wrapped storage error.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (*Record, error) {
	return nil, fmt.Errorf("%w: disk on fire", vmcp.ErrStorageFailed)
}

func (failingStore) Put(context.Context, string, *Record) error {
	return fmt.Errorf("%w: disk on fire", vmcp.ErrStorageFailed)
}

func (failingStore) Clear(context.Context, string) error {
	return fmt.Errorf("%w: disk on fire", vmcp.ErrStorageFailed)
}

func (failingStore) List(context.Context) ([]string, error) {
	return nil, fmt.Errorf("%w: disk on fire", vmcp.ErrStorageFailed)
}

func TestFallbackStore_DegradesToMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFallbackStore(failingStore{})

	// The failing primary must not lose the write, and later reads must see it.
	require.NoError(t, store.Put(ctx, "vmcp-1", testRecord("vmcp-1", "demo")))

	got, err := store.Get(ctx, "vmcp-1")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Snapshot.Name)
}

func TestFallbackStore_NotFoundIsNotDegradation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	primary := NewMemoryStore()
	store := NewFallbackStore(primary)

	_, err := store.Get(ctx, "absent")
	require.ErrorIs(t, err, vmcp.ErrNotFound)

	// The primary is still in use after a miss.
	require.NoError(t, primary.Put(ctx, "vmcp-1", testRecord("vmcp-1", "demo")))
	got, err := store.Get(ctx, "vmcp-1")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Snapshot.Name)
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	d := NewDebouncer(store, 100*time.Millisecond)
	defer d.Close(ctx)

	for i := 0; i < 10; i++ {
		d.Put("vmcp-1", testRecord("vmcp-1", fmt.Sprintf("edit-%d", i)))
	}

	// Nothing durable before the quiescence window elapses.
	_, err := store.Get(ctx, "vmcp-1")
	assert.ErrorIs(t, err, vmcp.ErrNotFound)

	require.Eventually(t, func() bool {
		record, err := store.Get(ctx, "vmcp-1")
		return err == nil && record.Snapshot.Name == "edit-9"
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncer_FlushWritesImmediately(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	d := NewDebouncer(store, time.Hour) // window never elapses on its own
	defer d.Close(ctx)

	d.Put("vmcp-1", testRecord("vmcp-1", "latest"))
	require.NoError(t, d.Flush(ctx))

	got, err := store.Get(ctx, "vmcp-1")
	require.NoError(t, err)
	assert.Equal(t, "latest", got.Snapshot.Name)
}

func TestDebouncer_CloseFlushesPendingWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	d := NewDebouncer(store, time.Hour)

	d.Put("vmcp-1", testRecord("vmcp-1", "last keystrokes"))
	require.NoError(t, d.Close(ctx))

	got, err := store.Get(ctx, "vmcp-1")
	require.NoError(t, err)
	assert.Equal(t, "last keystrokes", got.Snapshot.Name)

	// A closed debouncer drops writes instead of resurrecting the timer.
	d.Put("vmcp-1", testRecord("vmcp-1", "after close"))
	require.Error(t, d.Close(ctx))
	got, err = store.Get(ctx, "vmcp-1")
	require.NoError(t, err)
	assert.Equal(t, "last keystrokes", got.Snapshot.Name)
}

// slowFirstWriteStore stalls the first Put until release is closed,
// simulating a write stuck on a slow disk. Later Puts pass through.
type slowFirstWriteStore struct {
	inner   Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newSlowFirstWriteStore(inner Store) *slowFirstWriteStore {
	return &slowFirstWriteStore{
		inner:   inner,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *slowFirstWriteStore) Put(ctx context.Context, identity string, record *Record) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.inner.Put(ctx, identity, record)
}

func (s *slowFirstWriteStore) Get(ctx context.Context, identity string) (*Record, error) {
	return s.inner.Get(ctx, identity)
}

func (s *slowFirstWriteStore) Clear(ctx context.Context, identity string) error {
	return s.inner.Clear(ctx, identity)
}

func (s *slowFirstWriteStore) List(ctx context.Context) ([]string, error) {
	return s.inner.List(ctx)
}

func TestDebouncer_StalledTimerWriteDoesNotClobberFlush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := NewMemoryStore()
	store := newSlowFirstWriteStore(inner)
	d := NewDebouncer(store, 5*time.Millisecond)
	defer d.Close(ctx)

	d.Put("vmcp-1", testRecord("vmcp-1", "v1"))

	// Wait until the timer-fired write is stalled inside the store.
	select {
	case <-store.entered:
	case <-time.After(time.Second):
		t.Fatal("timer-fired write never reached the store")
	}

	d.Put("vmcp-1", testRecord("vmcp-1", "v2"))

	flushed := make(chan error, 1)
	go func() { flushed <- d.Flush(ctx) }()

	// Flush must wait for the stalled drain instead of racing past it.
	select {
	case err := <-flushed:
		t.Fatalf("flush returned %v while an older write was still in flight", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-flushed)

	got, err := inner.Get(ctx, "vmcp-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Snapshot.Name, "the durable record is the newest one")
}

func TestDebouncer_HandlerSwapDuringFlushIsSafe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewDebouncer(failingStore{}, time.Hour)
	defer d.Close(ctx)

	d.Put("vmcp-1", testRecord("vmcp-1", "doomed"))

	// Installing a handler while a flush drains must not race.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.ErrorIs(t, d.Flush(ctx), vmcp.ErrStorageFailed)
	}()
	go func() {
		defer wg.Done()
		d.OnError(func(string, error) {})
	}()
	wg.Wait()
}

func TestDebouncer_CancelDropsPendingWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	d := NewDebouncer(store, time.Hour)
	defer d.Close(ctx)

	d.Put("vmcp-1", testRecord("vmcp-1", "doomed"))
	d.Cancel("vmcp-1")
	require.NoError(t, d.Flush(ctx))

	_, err := store.Get(ctx, "vmcp-1")
	assert.ErrorIs(t, err, vmcp.ErrNotFound)
}
