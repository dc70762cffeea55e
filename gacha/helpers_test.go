package gacha

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libgacha-go/identity"
)

// makeID returns a deterministic identity whose bytes are all seed.
func makeID(seed byte) identity.ID {
	var id identity.ID
	copy(id[:], bytes.Repeat([]byte{seed}, identity.Size))
	return id
}

// le8 encodes r as the 8-byte little-endian randomness value.
func le8(r uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, r)
}

type fakeClock struct {
	mu   sync.Mutex
	slot uint64
}

func (c *fakeClock) Slot(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot, nil
}

func (c *fakeClock) set(slot uint64) {
	c.mu.Lock()
	c.slot = slot
	c.mu.Unlock()
}

type fakeSource struct {
	id     string
	commit uint64
	values map[uint64][]byte
	err    error
}

func newFakeSource(id string, commit uint64) *fakeSource {
	return &fakeSource{id: id, commit: commit, values: map[uint64][]byte{}}
}

func (s *fakeSource) ID() string { return s.id }

func (s *fakeSource) CommitSlot(context.Context) (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.commit, nil
}

func (s *fakeSource) Resolve(_ context.Context, slot uint64) ([]byte, error) {
	v, ok := s.values[slot]
	if !ok {
		return nil, fmt.Errorf("%w: slot %d", ErrRandomnessNotResolved, slot)
	}
	return v, nil
}

type fakePayments struct {
	transfers []Transfer
	err       error
}

func (p *fakePayments) Transfer(_ context.Context, t Transfer) (Receipt, error) {
	if p.err != nil {
		return Receipt{}, p.err
	}
	p.transfers = append(p.transfers, t)
	return Receipt{Reference: fmt.Sprintf("ref-%d", len(p.transfers))}, nil
}

// testEngine bundles an engine with its fakes.
type testEngine struct {
	*Engine
	store    *MemStore
	clock    *fakeClock
	payments *fakePayments
	admin    identity.ID
}

func newTestEngine(t *testing.T, opts ...Option) *testEngine {
	t.Helper()
	te := &testEngine{
		store:    NewMemStore(),
		clock:    &fakeClock{slot: 100},
		payments: &fakePayments{},
		admin:    makeID(0xAD),
	}
	seq := 0
	opts = append([]Option{WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("ev-%d", seq)
	})}, opts...)
	te.Engine = New(te.store, te.clock, te.payments, opts...)
	return te
}

// use registers src on first sight and returns its ID for PullParams.
func (te *testEngine) use(t *testing.T, src *fakeSource) string {
	t.Helper()
	if registered, ok := te.sources[src.id]; ok {
		require.Same(t, registered, src, "source %q registered twice", src.id)
		return src.id
	}
	require.NoError(t, te.RegisterSource(src))
	return src.id
}

// finalizedPool creates a pool holding keys with a native price of 10.
func (te *testEngine) finalizedPool(t *testing.T, keys ...string) PoolID {
	t.Helper()
	ctx := context.Background()
	id, err := te.CreatePool(ctx, te.admin)
	require.NoError(t, err)
	for _, k := range keys {
		_, err := te.AddKey(ctx, te.admin, id, []byte(k))
		require.NoError(t, err)
	}
	require.NoError(t, te.AddPaymentConfig(ctx, te.admin, id, PaymentConfig{
		Method: Native, Price: 10, Recipient: makeID(0xEE),
	}))
	require.NoError(t, te.Finalize(ctx, te.admin, id))
	return id
}
