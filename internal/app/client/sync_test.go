package client

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"chronicles/internal/domain/dataset"
	"chronicles/internal/domain/session"
	"chronicles/internal/infrastructure/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type fakeRemote struct {
	mu     sync.Mutex
	saves  []dataset.Dataset
	loads  int
	saveFn func(ctx context.Context, d dataset.Dataset) Result
	loadFn func(ctx context.Context) Result
}

func (r *fakeRemote) SaveToCloud(ctx context.Context, sess *session.Session, d dataset.Dataset) Result {
	if !sess.Ready() {
		return Result{Message: "no user", Reason: ReasonNoUser}
	}
	r.mu.Lock()
	r.saves = append(r.saves, d)
	fn := r.saveFn
	r.mu.Unlock()
	if fn != nil {
		return fn(ctx, d)
	}
	return Result{Success: true, Message: "saved"}
}

func (r *fakeRemote) LoadFromCloud(ctx context.Context, sess *session.Session) Result {
	if !sess.Ready() {
		return Result{Message: "no user", Reason: ReasonNoUser}
	}
	r.mu.Lock()
	r.loads++
	fn := r.loadFn
	r.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return Result{Success: true}
}

func (r *fakeRemote) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *fakeRemote) lastSave() dataset.Dataset {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves[len(r.saves)-1]
}

type syncFixture struct {
	svc    *SyncService
	remote *fakeRemote
	clock  *fakeClock
	store  *LocalStore
	conn   *toggleConnectivity
}

type toggleConnectivity struct {
	mu     sync.Mutex
	online bool
}

func (c *toggleConnectivity) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

func (c *toggleConnectivity) set(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.online = online
}

// newSyncFixture поднимает оркестратор поверх памяти. initial записывается в хранилище
// до Boot, поэтому стартовые данные не подмешиваются.
func newSyncFixture(t *testing.T, initial dataset.Dataset, loggedIn bool) *syncFixture {
	t.Helper()
	ctx := context.Background()

	store := NewLocalStore(memory.New(), slog.Default())
	initial.Normalize()
	require.NoError(t, store.SaveAll(ctx, initial))

	f := &syncFixture{
		remote: &fakeRemote{},
		clock:  newFakeClock(),
		store:  store,
		conn:   &toggleConnectivity{online: true},
	}
	f.svc = NewSyncService(store, f.remote, f.conn, f.clock, DefaultSyncOptions(), slog.Default())
	require.NoError(t, f.svc.Boot(ctx))
	if loggedIn {
		f.svc.SetSession(&session.Session{Username: "CHLJ", Authenticated: true})
	}
	t.Cleanup(f.svc.Close)
	return f
}

func addTodo(t *testing.T, svc *SyncService, id, text string) {
	t.Helper()
	err := svc.Mutate(context.Background(), dataset.CollectionTodos, func(d *dataset.Dataset) error {
		_, _, err := d.Upsert(dataset.CollectionTodos, []byte(`{"id":"`+id+`","text":"`+text+`"}`))
		return err
	})
	require.NoError(t, err)
}

func TestSyncService_BootSeedsMissingCollections(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	store := NewLocalStore(kv, slog.Default())
	require.NoError(t, kv.Put(ctx, dataset.CollectionTodos.StorageKey(), []byte(`[{"id":"t1","text":"mine","completed":false}]`)))

	svc := NewSyncService(store, &fakeRemote{}, StaticConnectivity(true), newFakeClock(), DefaultSyncOptions(), slog.Default())
	require.NoError(t, svc.Boot(ctx))

	d := svc.Data()
	assert.Equal(t, []dataset.Todo{{ID: "t1", Text: "mine"}}, d.Todos, "stored collection wins over seed")
	assert.Equal(t, dataset.Seed().Memories, d.Memories)

	_, missing := store.Load(ctx)
	assert.Empty(t, missing, "seeded collections are written back")
}

func TestSyncService_DebounceCollapsesBurst(t *testing.T) {
	f := newSyncFixture(t, dataset.Dataset{}, true)

	addTodo(t, f.svc, "1", "a") // t=0
	f.clock.Advance(time.Second)
	addTodo(t, f.svc, "2", "b") // t=1
	f.clock.Advance(time.Second)
	addTodo(t, f.svc, "3", "c") // t=2

	f.clock.Advance(3*time.Second - time.Millisecond)
	assert.Zero(t, f.remote.saveCount(), "quiet window not elapsed")

	f.clock.Advance(time.Millisecond) // t=5
	require.Equal(t, 1, f.remote.saveCount())
	assert.Len(t, f.remote.lastSave().Todos, 3)

	f.clock.Advance(10 * time.Second)
	assert.Equal(t, 1, f.remote.saveCount(), "one push per burst")
}

func TestSyncService_AutoPushPreconditions(t *testing.T) {
	t.Run("not logged in", func(t *testing.T) {
		f := newSyncFixture(t, dataset.Dataset{}, false)
		addTodo(t, f.svc, "1", "a")

		assert.False(t, f.svc.PendingPush())
		f.clock.Advance(time.Minute)
		assert.Zero(t, f.remote.saveCount())
	})

	t.Run("offline edit persists locally", func(t *testing.T) {
		f := newSyncFixture(t, dataset.Dataset{}, true)
		f.conn.set(false)

		addTodo(t, f.svc, "1", "offline")
		f.clock.Advance(time.Minute)

		assert.Zero(t, f.remote.saveCount(), "no network call while offline")
		stored, _ := f.store.Load(context.Background())
		assert.Equal(t, []dataset.Todo{{ID: "1", Text: "offline"}}, stored.Todos)
		st, _ := f.svc.Status()
		assert.Equal(t, StatusIdle, st)
	})

	t.Run("logout cancels pending push", func(t *testing.T) {
		f := newSyncFixture(t, dataset.Dataset{}, true)
		addTodo(t, f.svc, "1", "a")
		require.True(t, f.svc.PendingPush())

		f.svc.ClearSession()
		f.clock.Advance(time.Minute)
		assert.Zero(t, f.remote.saveCount())
	})
}

func TestSyncService_StatusDisplayTimers(t *testing.T) {
	f := newSyncFixture(t, dataset.Dataset{}, true)

	var (
		mu     sync.Mutex
		events []Status
	)
	f.svc.OnStatus(func(ev StatusEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev.Status)
	})

	res := f.svc.Push(context.Background())
	require.True(t, res.Success)
	st, _ := f.svc.Status()
	assert.Equal(t, StatusSuccess, st)

	f.clock.Advance(2*time.Second - time.Millisecond)
	st, _ = f.svc.Status()
	assert.Equal(t, StatusSuccess, st)
	f.clock.Advance(time.Millisecond)
	st, _ = f.svc.Status()
	assert.Equal(t, StatusIdle, st)

	f.remote.saveFn = func(context.Context, dataset.Dataset) Result {
		return Result{Message: "boom", Reason: ReasonServer}
	}
	res = f.svc.Push(context.Background())
	assert.False(t, res.Success)
	st, msg := f.svc.Status()
	assert.Equal(t, StatusError, st)
	assert.Equal(t, "boom", msg)

	f.clock.Advance(2 * time.Second)
	st, _ = f.svc.Status()
	assert.Equal(t, StatusError, st, "error stays visible for 3s")
	f.clock.Advance(time.Second)
	st, _ = f.svc.Status()
	assert.Equal(t, StatusIdle, st)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{
		StatusSyncing, StatusSuccess, StatusIdle,
		StatusSyncing, StatusError, StatusIdle,
	}, events)
}

func TestSyncService_PullSupersededByPush(t *testing.T) {
	t.Run("cancelled pull", func(t *testing.T) {
		f := newSyncFixture(t, dataset.Dataset{Todos: []dataset.Todo{{ID: "1", Text: "local"}}}, true)

		started := make(chan struct{})
		f.remote.loadFn = func(ctx context.Context) Result {
			close(started)
			<-ctx.Done()
			return Result{Aborted: true}
		}

		pulled := make(chan Result, 1)
		go func() { pulled <- f.svc.Pull(context.Background()) }()
		<-started

		pushed := f.svc.Push(context.Background())
		require.True(t, pushed.Success)

		res := <-pulled
		assert.True(t, res.Aborted)
		assert.Equal(t, []dataset.Todo{{ID: "1", Text: "local"}}, f.svc.Data().Todos)
		st, _ := f.svc.Status()
		assert.Equal(t, StatusSuccess, st, "status belongs to the push")
	})

	t.Run("stale result ignoring cancellation", func(t *testing.T) {
		f := newSyncFixture(t, dataset.Dataset{Todos: []dataset.Todo{{ID: "1", Text: "local"}}}, true)

		started := make(chan struct{})
		release := make(chan struct{})
		f.remote.loadFn = func(context.Context) Result {
			close(started)
			<-release
			remote := dataset.NewSnapshot(dataset.Dataset{Todos: []dataset.Todo{{ID: "9", Text: "cloud"}}}, f.clock.Now())
			return Result{Success: true, Data: &remote}
		}

		pulled := make(chan Result, 1)
		go func() { pulled <- f.svc.Pull(context.Background()) }()
		<-started

		require.True(t, f.svc.Push(context.Background()).Success)
		close(release)

		res := <-pulled
		assert.True(t, res.Aborted)
		assert.Nil(t, res.Data)
		assert.Equal(t, []dataset.Todo{{ID: "1", Text: "local"}}, f.svc.Data().Todos)
	})
}

func TestSyncService_PushSizeGuard(t *testing.T) {
	withImage := func(size int) dataset.Dataset {
		return dataset.Dataset{Memories: []dataset.Memory{{
			ID: "m1", Title: "big", Date: "2024-01-01",
			ImageURL: "data:image/jpeg;base64," + strings.Repeat("A", size),
		}}}
	}

	t.Run("46MB rejected before any request", func(t *testing.T) {
		f := newSyncFixture(t, withImage(46<<20), true)

		inflight := make(chan context.Context, 1)
		release := make(chan struct{})
		f.remote.loadFn = func(ctx context.Context) Result {
			inflight <- ctx
			<-release
			return Result{Success: true}
		}
		pulled := make(chan Result, 1)
		go func() { pulled <- f.svc.Pull(context.Background()) }()
		loadCtx := <-inflight

		res := f.svc.Push(context.Background())
		assert.False(t, res.Success)
		assert.Equal(t, ReasonTooLarge, res.Reason)
		assert.Greater(t, res.Size, 46<<20)
		assert.Zero(t, f.remote.saveCount())
		assert.NoError(t, loadCtx.Err(), "rejected push does not supersede the pull")

		st, _ := f.svc.Status()
		assert.Equal(t, StatusError, st)

		close(release)
		assert.False(t, (<-pulled).Aborted)
	})

	t.Run("44MB proceeds", func(t *testing.T) {
		f := newSyncFixture(t, withImage(44<<20), true)

		res := f.svc.Push(context.Background())
		assert.True(t, res.Success)
		assert.Equal(t, 1, f.remote.saveCount())
	})
}

func TestSyncService_Pull(t *testing.T) {
	local := dataset.Dataset{
		Todos:  []dataset.Todo{{ID: "1", Text: "local"}},
		Cities: []dataset.CityVisit{{ID: "c1", City: "上海"}},
	}

	t.Run("replaces everything", func(t *testing.T) {
		f := newSyncFixture(t, local, true)
		remote := dataset.NewSnapshot(dataset.Dataset{Todos: []dataset.Todo{{ID: "9", Text: "cloud"}}}, f.clock.Now())
		f.remote.loadFn = func(context.Context) Result { return Result{Success: true, Data: &remote} }

		res := f.svc.Pull(context.Background())
		require.True(t, res.Success)

		d := f.svc.Data()
		assert.Equal(t, []dataset.Todo{{ID: "9", Text: "cloud"}}, d.Todos)
		assert.Empty(t, d.Cities, "pull is not a merge")

		stored, missing := f.store.Load(context.Background())
		assert.Empty(t, missing)
		assert.Equal(t, d, stored)
		assert.False(t, f.svc.PendingPush(), "pull does not schedule a push")
	})

	t.Run("nothing to pull", func(t *testing.T) {
		f := newSyncFixture(t, local, true)

		res := f.svc.Pull(context.Background())
		assert.True(t, res.Success)
		assert.Nil(t, res.Data)
		assert.Equal(t, local.Todos, f.svc.Data().Todos)
		st, msg := f.svc.Status()
		assert.Equal(t, StatusSuccess, st)
		assert.NotEmpty(t, msg)
	})

	t.Run("failure keeps local", func(t *testing.T) {
		f := newSyncFixture(t, local, true)
		f.remote.loadFn = func(context.Context) Result { return Result{Message: "down", Reason: ReasonTransport} }

		res := f.svc.Pull(context.Background())
		assert.False(t, res.Success)
		assert.Equal(t, local.Cities, f.svc.Data().Cities)
		st, _ := f.svc.Status()
		assert.Equal(t, StatusError, st)
	})
}

func TestSyncService_ReconcileAtLogin(t *testing.T) {
	f := newSyncFixture(t, dataset.Dataset{Todos: []dataset.Todo{{ID: "1", Text: "A"}}}, true)
	remote := dataset.Snapshot{
		Dataset:      dataset.Dataset{Todos: []dataset.Todo{{ID: "2", Text: "B"}}},
		LastSyncTime: "2024-01-01T00:00:00.000Z",
	}
	remote.Normalize()
	f.remote.loadFn = func(context.Context) Result { return Result{Success: true, Data: &remote} }

	res := f.svc.Reconcile(context.Background())
	require.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", res.Data.LastSyncTime)

	want := []dataset.Todo{{ID: "2", Text: "B"}, {ID: "1", Text: "A"}}
	assert.Equal(t, want, f.svc.Data().Todos)

	require.True(t, f.svc.PendingPush(), "merged data goes back to the cloud")
	f.clock.Advance(3 * time.Second)
	require.Equal(t, 1, f.remote.saveCount())
	assert.Equal(t, want, f.remote.lastSave().Todos)
}

func TestSyncService_ReconcileWithoutRemote(t *testing.T) {
	local := dataset.Dataset{Todos: []dataset.Todo{{ID: "1", Text: "A"}}}
	f := newSyncFixture(t, local, true)

	res := f.svc.Reconcile(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, local.Todos, f.svc.Data().Todos)
}

func TestSyncService_Flush(t *testing.T) {
	f := newSyncFixture(t, dataset.Dataset{}, true)

	_, ok := f.svc.Flush(context.Background())
	assert.False(t, ok, "nothing pending")

	addTodo(t, f.svc, "1", "a")
	res, ok := f.svc.Flush(context.Background())
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.Equal(t, 1, f.remote.saveCount())

	f.clock.Advance(time.Minute)
	assert.Equal(t, 1, f.remote.saveCount(), "flushed timer does not fire again")
}

func TestSyncService_ExportImportRoundTrip(t *testing.T) {
	src := newSyncFixture(t, dataset.Seed(), false)
	raw, err := src.svc.Export().Encode()
	require.NoError(t, err)

	dst := newSyncFixture(t, dataset.Dataset{Todos: []dataset.Todo{{ID: "x", Text: "old"}}}, false)
	applied, err := dst.svc.Import(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, dataset.Collections, applied)
	assert.Equal(t, src.svc.Data(), dst.svc.Data())
}

func TestSyncService_ImportPartial(t *testing.T) {
	local := dataset.Dataset{
		Todos:  []dataset.Todo{{ID: "1", Text: "keep?"}},
		Cities: []dataset.CityVisit{{ID: "c1", City: "杭州"}},
	}
	f := newSyncFixture(t, local, true)

	applied, err := f.svc.Import(context.Background(), []byte(`{"todos":[{"id":"n","text":"new","completed":true}]}`))
	require.NoError(t, err)
	assert.Equal(t, []dataset.Collection{dataset.CollectionTodos}, applied)

	d := f.svc.Data()
	assert.Equal(t, []dataset.Todo{{ID: "n", Text: "new", Completed: true}}, d.Todos)
	assert.Equal(t, local.Cities, d.Cities, "absent collections untouched")
	assert.True(t, f.svc.PendingPush())

	_, err = f.svc.Import(context.Background(), []byte(`{"todos":[{"id":"","text":""}]}`))
	assert.Error(t, err)
	assert.Equal(t, []dataset.Todo{{ID: "n", Text: "new", Completed: true}}, f.svc.Data().Todos)
}

func TestSyncService_Reload(t *testing.T) {
	f := newSyncFixture(t, dataset.Dataset{}, true)

	assert.False(t, f.svc.Reload(context.Background()), "nothing changed")
	assert.False(t, f.svc.PendingPush())

	other := dataset.Dataset{Todos: []dataset.Todo{{ID: "7", Text: "from another process"}}}
	other.Normalize()
	require.NoError(t, f.store.Save(context.Background(), dataset.CollectionTodos, other))

	assert.True(t, f.svc.Reload(context.Background()))
	assert.Equal(t, other.Todos, f.svc.Data().Todos)
	assert.True(t, f.svc.PendingPush())
}

func TestSyncService_Compare(t *testing.T) {
	f := newSyncFixture(t, dataset.Dataset{Todos: []dataset.Todo{{ID: "1", Text: "A"}, {ID: "2", Text: "x"}}}, true)
	remote := dataset.NewSnapshot(dataset.Dataset{Todos: []dataset.Todo{{ID: "2", Text: "y"}, {ID: "3", Text: "C"}}}, f.clock.Now())
	f.remote.loadFn = func(context.Context) Result { return Result{Success: true, Data: &remote} }

	diffs, res := f.svc.Compare(context.Background())
	require.True(t, res.Success)

	var todos dataset.Diff
	for _, d := range diffs {
		if d.Collection == dataset.CollectionTodos {
			todos = d
		} else {
			assert.True(t, d.InSync(), d.Collection)
		}
	}
	assert.Equal(t, dataset.Diff{Collection: dataset.CollectionTodos, RemoteOnly: 1, LocalOnly: 1, Changed: 1}, todos)
	assert.Len(t, f.svc.Data().Todos, 2, "compare does not modify local data")
}

func TestSyncService_MutateDuringPull(t *testing.T) {
	f := newSyncFixture(t, dataset.Dataset{Todos: []dataset.Todo{{ID: "1", Text: "local"}}}, true)
	remote := dataset.NewSnapshot(dataset.Dataset{Todos: []dataset.Todo{{ID: "9", Text: "cloud"}}}, f.clock.Now())
	f.remote.loadFn = func(context.Context) Result { return Result{Success: true, Data: &remote} }

	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	mutated := make(chan error, 1)
	go func() {
		mutated <- f.svc.Mutate(context.Background(), dataset.CollectionTodos, func(d *dataset.Dataset) error {
			calls++
			if calls == 1 {
				close(entered)
				<-release
			}
			_, _, err := d.Upsert(dataset.CollectionTodos, []byte(`{"id":"2","text":"edit"}`))
			return err
		})
	}()

	<-entered
	require.True(t, f.svc.Pull(context.Background()).Success)
	close(release)
	require.NoError(t, <-mutated)

	assert.Equal(t, 2, calls, "edit is reapplied to the pulled dataset")
	want := []dataset.Todo{{ID: "2", Text: "edit"}, {ID: "9", Text: "cloud"}}
	assert.Equal(t, want, f.svc.Data().Todos)

	stored, _ := f.store.Load(context.Background())
	assert.Equal(t, want, stored.Todos)
}

func TestSyncService_ReloadAfterOwnWrite(t *testing.T) {
	f := newSyncFixture(t, dataset.Dataset{}, true)

	err := f.svc.Mutate(context.Background(), dataset.CollectionMemories, func(d *dataset.Dataset) error {
		_, _, err := d.Upsert(dataset.CollectionMemories, []byte(`{"id":"m1","title":"黄山","date":"2024-05-01","images":[],"tags":[]}`))
		return err
	})
	require.NoError(t, err)

	var notified int
	f.svc.OnData(func(dataset.Dataset) { notified++ })

	assert.False(t, f.svc.Reload(context.Background()), "own write is not a change")
	assert.Zero(t, notified)
}

func TestSyncService_ReconcileLoadFails(t *testing.T) {
	local := dataset.Dataset{Todos: []dataset.Todo{{ID: "1", Text: "A"}}}
	f := newSyncFixture(t, local, true)
	f.remote.loadFn = func(context.Context) Result {
		return Result{Message: "Failed to load data: disk", Reason: ReasonServer}
	}

	res := f.svc.Reconcile(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, ReasonServer, res.Reason)

	st, msg := f.svc.Status()
	assert.Equal(t, StatusError, st)
	assert.Equal(t, "Failed to load data: disk", msg)
	assert.Equal(t, local.Todos, f.svc.Data().Todos, "local data untouched")
	assert.True(t, f.svc.Session().Ready(), "session survives a failed load")
	assert.False(t, f.svc.PendingPush())
}

func TestSyncService_ReconcileSupersededByPush(t *testing.T) {
	local := dataset.Dataset{Todos: []dataset.Todo{{ID: "1", Text: "A"}}}
	f := newSyncFixture(t, local, true)

	started := make(chan struct{})
	release := make(chan struct{})
	f.remote.loadFn = func(context.Context) Result {
		close(started)
		<-release
		remote := dataset.NewSnapshot(dataset.Dataset{Todos: []dataset.Todo{{ID: "2", Text: "B"}}}, f.clock.Now())
		return Result{Success: true, Data: &remote}
	}

	reconciled := make(chan Result, 1)
	go func() { reconciled <- f.svc.Reconcile(context.Background()) }()
	<-started

	require.True(t, f.svc.Push(context.Background()).Success)
	close(release)

	res := <-reconciled
	assert.True(t, res.Aborted)
	assert.Nil(t, res.Data)
	assert.Equal(t, local.Todos, f.svc.Data().Todos, "stale merge is not applied")
	assert.Equal(t, local.Todos, f.remote.lastSave().Todos)
	st, _ := f.svc.Status()
	assert.Equal(t, StatusSuccess, st, "status belongs to the push")
}
