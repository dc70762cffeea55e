package randomness

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/network"
)

const (
	// DefaultConfirmations is the depth a block must reach before its hash
	// is used as a value.
	DefaultConfirmations = 6

	defaultCacheSize = 1024
)

var _ gacha.RandomnessSource = (*ChainSource)(nil)

// ChainSource derives values from block hashes. Its commitment slot is a
// block height h; the value for h is the hash of the block at
// h+confirmations, available once the tip has reached that height.
type ChainSource struct {
	id            string
	chain         network.BlockchainService
	confirmations uint64
	hashes        *lru.Cache[uint64, []byte]

	mu        sync.RWMutex
	committed bool
	commit    uint64
}

// ChainOption configures a ChainSource.
type ChainOption func(*ChainSource)

// WithConfirmations sets the confirmation depth.
func WithConfirmations(n uint64) ChainOption {
	return func(s *ChainSource) { s.confirmations = n }
}

// WithSourceID overrides the default identity "chain/<confirmations>".
func WithSourceID(id string) ChainOption {
	return func(s *ChainSource) { s.id = id }
}

// NewChainSource returns an uncommitted source reading from chain.
func NewChainSource(chain network.BlockchainService, opts ...ChainOption) (*ChainSource, error) {
	s := &ChainSource{chain: chain, confirmations: DefaultConfirmations}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = fmt.Sprintf("chain/%d", s.confirmations)
	}
	cache, err := lru.New[uint64, []byte](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("randomness: create hash cache: %w", err)
	}
	s.hashes = cache
	return s, nil
}

func (s *ChainSource) ID() string { return s.id }

// Commit binds the source to the current tip height and returns it.
func (s *ChainSource) Commit(ctx context.Context) (uint64, error) {
	tip, err := s.chain.GetBestBlockHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("randomness: read tip: %w", err)
	}
	s.CommitAt(tip)
	return tip, nil
}

// CommitAt binds the source to height without consulting the node. It is
// used to rebuild the source a pending pull committed to.
func (s *ChainSource) CommitAt(height uint64) {
	s.mu.Lock()
	s.committed = true
	s.commit = height
	s.mu.Unlock()
}

func (s *ChainSource) CommitSlot(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.committed {
		return 0, fmt.Errorf("%w: %s", ErrNotCommitted, s.id)
	}
	return s.commit, nil
}

// Resolve returns the 32-byte hash of the block confirmations above slot.
func (s *ChainSource) Resolve(ctx context.Context, slot uint64) ([]byte, error) {
	target := slot + s.confirmations
	if v, ok := s.hashes.Get(target); ok {
		return append([]byte(nil), v...), nil
	}

	tip, err := s.chain.GetBestBlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("randomness: read tip: %w", err)
	}
	if tip < target {
		return nil, fmt.Errorf("%w: %s needs height %d, tip %d", gacha.ErrRandomnessNotResolved, s.id, target, tip)
	}

	hashHex, err := s.chain.GetBlockHash(ctx, target)
	if errors.Is(err, network.ErrBlockNotFound) {
		return nil, fmt.Errorf("%w: %s height %d: %w", gacha.ErrRandomnessNotResolved, s.id, target, err)
	}
	if err != nil {
		return nil, fmt.Errorf("randomness: block hash at %d: %w", target, err)
	}
	hash, err := hex.DecodeString(hashHex)
	if err != nil || len(hash) != 32 {
		return nil, fmt.Errorf("%w: block hash %q", gacha.ErrInvalidRandomnessValue, hashHex)
	}
	s.hashes.Add(target, hash)
	return append([]byte(nil), hash...), nil
}
