package arcade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LeeIsaac1201/gaole/game/player"
	"github.com/LeeIsaac1201/gaole/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errUnknownAccount = errors.New("unknown account")

type mapLoader struct {
	mu    sync.Mutex
	loads int
	byAcc map[int64]*player.Trainer
}

func (l *mapLoader) LoadByAccount(_ context.Context, accountID int64) (*player.Trainer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	t, ok := l.byAcc[accountID]
	if !ok {
		return nil, errUnknownAccount
	}
	return t, nil
}

func newHall(t *testing.T) (*Hall, *mapLoader, *spySaver) {
	t.Helper()
	loader := &mapLoader{byAcc: map[int64]*player.Trainer{
		10: player.FromProfile(player.Profile{ID: 1, AccountID: 10, Name: "Ash", Yen: 100}),
		20: player.FromProfile(player.Profile{ID: 2, AccountID: 20, Name: "Misty", Yen: 100}),
	}}
	saver := &spySaver{}
	h := NewHall(loader, resource.NewCatalog(nil, zap.NewNop()), Config{Seed: 42, Saver: saver})
	return h, loader, saver
}

func TestHall_EnterReusesCentre(t *testing.T) {
	h, loader, _ := newHall(t)
	ctx := context.Background()

	c1, err := h.Enter(ctx, 10)
	require.NoError(t, err)
	c2, err := h.Enter(ctx, 10)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, 1, loader.loads)
	assert.Equal(t, 1, h.Count())
	assert.Same(t, c1, h.Get(10))
	assert.Nil(t, h.Get(20))
}

func TestHall_EnterUnknownAccount(t *testing.T) {
	h, _, _ := newHall(t)
	_, err := h.Enter(context.Background(), 99)
	assert.ErrorIs(t, err, errUnknownAccount)
	assert.Zero(t, h.Count())
}

func TestHall_ConcurrentEnter(t *testing.T) {
	h, _, _ := newHall(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	got := make([]*Center, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := h.Enter(ctx, 20)
			if err == nil {
				got[i] = c
			}
		}(i)
	}
	wg.Wait()
	for _, c := range got {
		assert.Same(t, got[0], c)
	}
	assert.Equal(t, 1, h.Count())
}

func TestHall_Leave(t *testing.T) {
	h, _, _ := newHall(t)
	ctx := context.Background()

	c, err := h.Enter(ctx, 10)
	require.NoError(t, err)
	_, err = c.GetNow(ctx, &Script{Continue: Bool(false)})
	require.NoError(t, err)
	require.True(t, c.Status().Session.Active)

	st, ok := h.Leave(ctx, 10)
	assert.True(t, ok)
	assert.False(t, st.Active)
	assert.Zero(t, h.Count())

	_, ok = h.Leave(ctx, 10)
	assert.False(t, ok)
}

func TestHall_AdmitDisplacesOldCentre(t *testing.T) {
	h, loader, _ := newHall(t)
	ctx := context.Background()

	old, err := h.Enter(ctx, 10)
	require.NoError(t, err)
	_, err = old.GetNow(ctx, &Script{Continue: Bool(false)})
	require.NoError(t, err)

	fresh := h.Admit(loader.byAcc[10])
	assert.NotSame(t, old, fresh)
	assert.False(t, old.Status().Session.Active)
	assert.Same(t, fresh, h.Get(10))
}

func TestHall_SweepClosesIdleCentres(t *testing.T) {
	h, _, saver := newHall(t)
	ctx := context.Background()

	idle, err := h.Enter(ctx, 10)
	require.NoError(t, err)
	_, err = h.Enter(ctx, 20)
	require.NoError(t, err)

	idle.lastUsed.Store(time.Now().Add(-time.Hour).UnixNano())

	before := saver.saves
	assert.Equal(t, 1, h.Sweep(ctx, 30*time.Minute))
	assert.Nil(t, h.Get(10))
	assert.NotNil(t, h.Get(20))
	assert.Equal(t, before+1, saver.saves)
}

func TestHall_CloseAllSaves(t *testing.T) {
	h, _, saver := newHall(t)
	ctx := context.Background()
	for _, id := range []int64{10, 20} {
		_, err := h.Enter(ctx, id)
		require.NoError(t, err)
	}

	h.CloseAll(ctx)
	assert.Zero(t, h.Count())
	assert.Equal(t, 2, saver.saves)
}

func TestHall_SweepSkipsBusyCentre(t *testing.T) {
	h, _, _ := newHall(t)
	ctx := context.Background()

	busy, err := h.Enter(ctx, 10)
	require.NoError(t, err)
	_, err = h.Enter(ctx, 20)
	require.NoError(t, err)

	end := busy.begin()
	busy.lastUsed.Store(time.Now().Add(-time.Hour).UnixNano())

	swept := make(chan int, 1)
	go func() { swept <- h.Sweep(ctx, 30*time.Minute) }()
	select {
	case n := <-swept:
		assert.Zero(t, n)
	case <-time.After(time.Second):
		t.Fatal("sweep waited on a busy centre")
	}
	assert.NotNil(t, h.Get(20))
	assert.Equal(t, 2, h.Count())
	assert.Equal(t, int64(100), busy.Status().Yen)

	end()
	assert.False(t, busy.Busy())
	assert.WithinDuration(t, time.Now(), busy.LastUsed(), time.Second)
	assert.Zero(t, h.Sweep(ctx, 30*time.Minute))
	assert.Same(t, busy, h.Get(10))
}

func TestHall_AdmitDoesNotWaitForOldCentre(t *testing.T) {
	h, loader, _ := newHall(t)
	ctx := context.Background()

	old, err := h.Enter(ctx, 10)
	require.NoError(t, err)
	end := old.begin()

	admitted := make(chan *Center, 1)
	go func() { admitted <- h.Admit(loader.byAcc[10]) }()

	// The registry is updated before the old centre is closed.
	require.Eventually(t, func() bool { return h.Get(10) != old }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.Count())

	end()
	select {
	case fresh := <-admitted:
		assert.Same(t, fresh, h.Get(10))
	case <-time.After(time.Second):
		t.Fatal("admit never finished")
	}
}
