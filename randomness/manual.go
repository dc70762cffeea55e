package randomness

import (
	"context"
	"fmt"
	"sync"

	"github.com/bitfsorg/libgacha-go/gacha"
)

var _ gacha.RandomnessSource = (*Manual)(nil)

// Manual is a source whose commitment and values are set by hand.
type Manual struct {
	id string

	mu        sync.RWMutex
	committed bool
	commit    uint64
	values    map[uint64][]byte
}

// NewManual returns an uncommitted source named id.
func NewManual(id string) *Manual {
	return &Manual{id: id, values: make(map[uint64][]byte)}
}

func (m *Manual) ID() string { return m.id }

// Commit binds the source to slot. Committing again re-commits, which
// expires pulls made against the previous slot.
func (m *Manual) Commit(slot uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = true
	m.commit = slot
}

// Publish makes value the resolved value for slot.
func (m *Manual) Publish(slot uint64, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[slot] = append([]byte(nil), value...)
}

func (m *Manual) CommitSlot(context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.committed {
		return 0, fmt.Errorf("%w: %s", ErrNotCommitted, m.id)
	}
	return m.commit, nil
}

func (m *Manual) Resolve(_ context.Context, slot uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s slot %d", gacha.ErrRandomnessNotResolved, m.id, slot)
	}
	return append([]byte(nil), v...), nil
}
