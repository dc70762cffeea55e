package gacha

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libgacha-go/identity"
)

func tempBoltStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gacha", "gacha.db")
	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestBoltStore_EngineLifecycle(t *testing.T) {
	store, path := tempBoltStore(t)
	ctx := context.Background()
	clock := &fakeClock{slot: 50}
	admin := makeID(0xAD)
	user := makeID(0x01)

	e := New(store, clock, &fakePayments{})
	id, err := e.CreatePool(ctx, admin)
	require.NoError(t, err)
	for _, k := range []string{"A", "B", "C"} {
		_, err := e.AddKey(ctx, admin, id, []byte(k))
		require.NoError(t, err)
	}
	require.NoError(t, e.AddPaymentConfig(ctx, admin, id, PaymentConfig{Method: Native, Price: 1, Recipient: admin}))
	require.NoError(t, e.Finalize(ctx, admin, id))

	src := newFakeSource("oracle-1", 50)
	src.values[50] = le8(7)
	require.NoError(t, e.RegisterSource(src))
	_, err = e.Pull(ctx, PullParams{Pool: id, Requester: user, Method: Native, Source: src.ID()})
	require.NoError(t, err)
	_, err = e.Pull(ctx, PullParams{Pool: id, Requester: makeID(0x02), Method: Native, Source: src.ID()})
	require.NoError(t, err)
	clock.set(51)
	_, err = e.Settle(ctx, SettleParams{Pool: id, Requester: user, Nonce: 0})
	require.NoError(t, err)

	require.NoError(t, store.Close())
	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	n, err := reopened.PoolCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	p, err := reopened.Pool(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 2}, p.Remaining())
	assert.Equal(t, uint64(2), p.PullCount)
	assert.Equal(t, uint64(1), p.SettleCount)

	req, err := reopened.Request(ctx, id, 0)
	require.NoError(t, err)
	assert.True(t, req.Settled)
	assert.Equal(t, []byte("B"), req.Reward)
	assert.Equal(t, user, req.Requester)
	assert.True(t, req.Method.IsNative())

	mine, err := reopened.Requests(ctx, id, user)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	all, err := reopened.Requests(ctx, id, identity.Zero)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(1), all[1].Nonce)

	events, err := reopened.Events(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, events, 9)
	require.IsType(t, Pulled{}, events[7].Payload)
	assert.Equal(t, uint64(2), events[7].Payload.(Pulled).Pending)
	assert.Equal(t, EventResult, events[8].Kind)
	assert.Equal(t, Settled{
		Nonce: 0, Requester: user, RewardIndex: 1, Reward: []byte("B"),
		Remaining: 2, Pending: 1,
	}, events[8].Payload)

	tail, err := reopened.Events(ctx, id, 7)
	require.NoError(t, err)
	assert.Len(t, tail, 2)
}

func TestBoltStore_CommitRules(t *testing.T) {
	store, _ := tempBoltStore(t)
	ctx := context.Background()

	err := store.Commit(ctx, &Batch{Pool: NewPool(1, makeID(1))})
	assert.ErrorIs(t, err, ErrPoolNotFound)

	err = store.Commit(ctx, &Batch{Pool: NewPool(2, makeID(1)), Create: true})
	assert.Error(t, err, "ids are sequential")

	require.NoError(t, store.Commit(ctx, &Batch{Pool: NewPool(1, makeID(1)), Create: true}))
	err = store.Commit(ctx, &Batch{Pool: NewPool(1, makeID(1)), Create: true})
	assert.ErrorIs(t, err, ErrPoolExists)
	assert.Equal(t, KindState, KindOf(err))

	_, err = store.Pool(ctx, 2)
	assert.ErrorIs(t, err, ErrPoolNotFound)
	_, err = store.Request(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestMemStore_CommitRules(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Commit(ctx, &Batch{Pool: NewPool(1, makeID(1))}), ErrPoolNotFound)
	require.NoError(t, store.Commit(ctx, &Batch{Pool: NewPool(1, makeID(1)), Create: true}))
	err := store.Commit(ctx, &Batch{Pool: NewPool(1, makeID(1)), Create: true})
	assert.ErrorIs(t, err, ErrPoolExists)
	assert.Equal(t, KindState, KindOf(err))

	p, err := store.Pool(ctx, 1)
	require.NoError(t, err)
	p.Paused = true
	again, err := store.Pool(ctx, 1)
	require.NoError(t, err)
	assert.False(t, again.Paused, "returned pools are copies")
}
