// Package randomness provides clocks and randomness sources for the gacha
// engine: a manually driven source for tests and simulations, a
// commit/reveal oracle, and a source backed by block hashes.
package randomness

import (
	"context"
	"sync/atomic"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/network"
)

var (
	_ gacha.Clock = (*LogicalClock)(nil)
	_ gacha.Clock = (*ChainClock)(nil)
)

// LogicalClock is a monotonic slot counter advanced explicitly.
type LogicalClock struct {
	slot atomic.Uint64
}

// NewLogicalClock returns a clock at start.
func NewLogicalClock(start uint64) *LogicalClock {
	c := &LogicalClock{}
	c.slot.Store(start)
	return c
}

// Slot returns the current slot.
func (c *LogicalClock) Slot(context.Context) (uint64, error) {
	return c.slot.Load(), nil
}

// Tick advances the clock by one slot and returns the new slot.
func (c *LogicalClock) Tick() uint64 {
	return c.slot.Add(1)
}

// Advance moves the clock forward by n slots.
func (c *LogicalClock) Advance(n uint64) uint64 {
	return c.slot.Add(n)
}

// ChainClock uses the node's best block height as the slot.
type ChainClock struct {
	chain network.BlockchainService
}

// NewChainClock returns a clock reading heights from chain.
func NewChainClock(chain network.BlockchainService) *ChainClock {
	return &ChainClock{chain: chain}
}

func (c *ChainClock) Slot(ctx context.Context) (uint64, error) {
	return c.chain.GetBestBlockHeight(ctx)
}
