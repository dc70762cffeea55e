package gacha

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bitfsorg/libgacha-go/identity"
)

// Batch is everything one command writes. A Store applies it atomically.
type Batch struct {
	Pool *Pool
	// Create marks Pool as a new registry entry. Its ID must be PoolCount()+1.
	Create  bool
	Request *PullRequest
	Events  []Event
}

// Store persists pools, pull requests and audit events.
type Store interface {
	// PoolCount returns the number of pools ever created.
	PoolCount(ctx context.Context) (uint64, error)

	// Pool returns a private copy of pool id, or ErrPoolNotFound.
	Pool(ctx context.Context, id PoolID) (*Pool, error)

	// Request returns a private copy of a pull request, or ErrRequestNotFound.
	Request(ctx context.Context, pool PoolID, nonce uint64) (*PullRequest, error)

	// Requests lists the pull requests of pool in nonce order. A zero
	// requester lists every request.
	Requests(ctx context.Context, pool PoolID, requester identity.ID) ([]*PullRequest, error)

	// Events lists the audit events of pool with Seq > after, in order.
	Events(ctx context.Context, pool PoolID, after uint64) ([]Event, error)

	// Commit applies b atomically.
	Commit(ctx context.Context, b *Batch) error
}

// ---------------------------------------------------------------------------
// MemStore is an in-memory Store for tests and ephemeral engines.
// ---------------------------------------------------------------------------

type requestKey struct {
	pool  PoolID
	nonce uint64
}

// MemStore implements Store with maps guarded by a RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	count    uint64
	pools    map[PoolID]*Pool
	requests map[requestKey]*PullRequest
	events   map[PoolID][]Event
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		pools:    make(map[PoolID]*Pool),
		requests: make(map[requestKey]*PullRequest),
		events:   make(map[PoolID][]Event),
	}
}

func (s *MemStore) PoolCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count, nil
}

func (s *MemStore) Pool(_ context.Context, id PoolID) (*Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}
	return p.Clone(), nil
}

func (s *MemStore) Request(_ context.Context, pool PoolID, nonce uint64) (*PullRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[requestKey{pool, nonce}]
	if !ok {
		return nil, fmt.Errorf("%w: pool %d nonce %d", ErrRequestNotFound, pool, nonce)
	}
	return r.Clone(), nil
}

func (s *MemStore) Requests(_ context.Context, pool PoolID, requester identity.ID) ([]*PullRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*PullRequest
	for k, r := range s.requests {
		if k.pool != pool {
			continue
		}
		if !requester.IsZero() && r.Requester != requester {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nonce < out[j].Nonce })
	return out, nil
}

func (s *MemStore) Events(_ context.Context, pool PoolID, after uint64) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, ev := range s.events[pool] {
		if ev.Seq > after {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemStore) Commit(_ context.Context, b *Batch) error {
	if b == nil || b.Pool == nil {
		return fmt.Errorf("gacha: commit: empty batch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := b.Pool.ID
	_, exists := s.pools[id]
	switch {
	case b.Create && exists:
		return fmt.Errorf("%w: %d", ErrPoolExists, id)
	case b.Create && uint64(id) != s.count+1:
		return fmt.Errorf("gacha: commit: pool id %d out of sequence, next is %d", id, s.count+1)
	case !b.Create && !exists:
		return fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}

	if b.Create {
		s.count++
	}
	s.pools[id] = b.Pool.Clone()
	if b.Request != nil {
		s.requests[requestKey{b.Request.Pool, b.Request.Nonce}] = b.Request.Clone()
	}
	s.events[id] = append(s.events[id], b.Events...)
	return nil
}
