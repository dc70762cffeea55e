package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/identity"
	"github.com/bitfsorg/libgacha-go/payment"
	"github.com/bitfsorg/libgacha-go/randomness"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "audit.db"), logr.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func testEvent(id string, pool gacha.PoolID, seq uint64, kind gacha.EventKind, actor identity.ID, payload any) gacha.Event {
	return gacha.Event{
		ID: id, Pool: pool, Seq: seq, Kind: kind, Actor: actor, Slot: 100 + seq,
		At: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Payload: payload,
	}
}

func TestOpen_WAL(t *testing.T) {
	j := openTestJournal(t)
	var mode string
	require.NoError(t, j.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestRecord_Idempotent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	admin := identity.ID{1}

	batch := []gacha.Event{
		testEvent("a", 1, 1, gacha.EventPoolInitialized, admin, gacha.PoolInitialized{Admin: admin}),
		testEvent("b", 1, 2, gacha.EventKeyAdded, admin, gacha.KeyAdded{Key: []byte("K"), TotalKeys: 1}),
	}
	require.NoError(t, j.Record(ctx, batch))
	require.NoError(t, j.Record(ctx, batch))

	got, err := j.Events(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, batch[1].Payload, got[1].Payload)
	assert.True(t, batch[0].At.Equal(got[0].At))
}

func TestEvents_Filter(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	alice, bob := identity.ID{0xA}, identity.ID{0xB}

	require.NoError(t, j.Record(ctx, []gacha.Event{
		testEvent("p1-1", 1, 1, gacha.EventPoolInitialized, alice, gacha.PoolInitialized{Admin: alice}),
		testEvent("p1-2", 1, 2, gacha.EventPulled, bob, gacha.Pulled{Nonce: 0, Method: gacha.Native, Price: 5}),
		testEvent("p1-3", 1, 3, gacha.EventResult, bob, gacha.Settled{Nonce: 0, Requester: bob, RewardIndex: 0, Reward: []byte("R")}),
		testEvent("p2-1", 2, 1, gacha.EventPoolInitialized, bob, gacha.PoolInitialized{Admin: bob}),
	}))

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"p1-1", "p1-2", "p1-3", "p2-1"}},
		{"pool", Filter{Pool: 2}, []string{"p2-1"}},
		{"kind", Filter{Kind: gacha.EventPoolInitialized}, []string{"p1-1", "p2-1"}},
		{"actor", Filter{Actor: bob}, []string{"p1-2", "p1-3", "p2-1"}},
		{"after", Filter{Pool: 1, AfterSeq: 1}, []string{"p1-2", "p1-3"}},
		{"limit", Filter{Limit: 2}, []string{"p1-1", "p1-2"}},
		{"none", Filter{Pool: 9}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events, err := j.Events(ctx, tc.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, ev := range events {
				ids = append(ids, ev.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestJournal_AsEngineObserver(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	admin, outsider := identity.ID{1}, identity.ID{2}

	eng := gacha.New(gacha.NewMemStore(), randomness.NewLogicalClock(10), payment.NewLedger(),
		gacha.WithObservers(j))
	id, err := eng.CreatePool(ctx, admin)
	require.NoError(t, err)
	_, err = eng.AddKey(ctx, admin, id, []byte("A"))
	require.NoError(t, err)
	require.NoError(t, eng.Finalize(ctx, admin, id))
	require.ErrorIs(t, eng.SetPaused(ctx, outsider, id, true), gacha.ErrUnauthorized)

	events, err := j.Events(ctx, Filter{Pool: id})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, gacha.EventPoolInitialized, events[0].Kind)
	assert.Equal(t, gacha.EventKeyAdded, events[1].Kind)
	assert.Equal(t, gacha.EventPoolFinalized, events[2].Kind)

	rejections, err := j.Rejections(ctx, id)
	require.NoError(t, err)
	require.Len(t, rejections, 1)
	assert.Equal(t, gacha.OpSetPaused, rejections[0].Op)
	assert.Equal(t, "Unauthorized", rejections[0].Code)
	assert.Equal(t, "authorization", rejections[0].Kind)

	none, err := j.Rejections(ctx, id+1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJournal_Closed(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "audit.db"), logr.Discard())
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	_, err = j.Events(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, j.Record(context.Background(), nil), ErrClosed)
}
