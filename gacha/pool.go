// Package gacha implements a fair reward-allocation engine. A pool holds a
// finite set of opaque reward records which are handed out one per request,
// without replacement, using externally resolved randomness consumed through
// a two-phase pull (commit) and settle (reveal) protocol.
//
// The package owns the pool state machine, the draw, the admission and
// authorization rules and the command surface (Engine). Value movement,
// randomness and durable storage are reached through the PaymentBackend,
// RandomnessSource and Store interfaces.
package gacha

import (
	"fmt"

	"github.com/bitfsorg/libgacha-go/identity"
)

const (
	// MaxKeys is the maximum number of reward records in a pool.
	MaxKeys = 500

	// MaxKeyLen is the maximum length of a reward record or decryption key in bytes.
	MaxKeyLen = 120

	// MaxPaymentConfigs is the maximum number of payment methods per pool.
	MaxPaymentConfigs = 8

	// DefaultMaxSlotDifference is how many slots a randomness commitment may
	// lag the current slot and still be accepted at pull time.
	DefaultMaxSlotDifference = 20
)

// PoolID identifies a pool in the registry. IDs are assigned sequentially from 1.
type PoolID uint64

// record is a fixed-capacity byte slot in the pool arena.
type record struct {
	n uint8
	b [MaxKeyLen]byte
}

func (r *record) set(v []byte) {
	r.b = [MaxKeyLen]byte{}
	r.n = uint8(copy(r.b[:], v))
}

func (r *record) bytes() []byte {
	out := make([]byte, r.n)
	copy(out, r.b[:r.n])
	return out
}

// Pool is one reward pool. It is a plain value: every array is fixed size, so
// Clone is a flat copy and the engine mutates a clone until commit.
type Pool struct {
	ID        PoolID
	Admin     identity.ID
	Finalized bool
	Paused    bool
	Halted    bool

	// PullCount doubles as the nonce of the next pull request.
	PullCount   uint64
	SettleCount uint64

	keys     [MaxKeys]record
	keyCount uint16

	remaining      [MaxKeys]uint16
	remainingCount uint16

	configs     [MaxPaymentConfigs]PaymentConfig
	configCount uint8

	decryptionKey record

	eventSeq uint64
}

// NewPool returns an empty pool in the building state.
func NewPool(id PoolID, admin identity.ID) *Pool {
	return &Pool{ID: id, Admin: admin}
}

// Clone returns an independent copy of p.
func (p *Pool) Clone() *Pool {
	c := *p
	return &c
}

// KeyCount returns the number of reward records added so far.
func (p *Pool) KeyCount() int { return int(p.keyCount) }

// Key returns a copy of reward record i.
func (p *Pool) Key(i int) ([]byte, error) {
	if i < 0 || i >= int(p.keyCount) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfBounds, i, p.keyCount)
	}
	return p.keys[i].bytes(), nil
}

// Keys returns copies of every reward record in insertion order.
func (p *Pool) Keys() [][]byte {
	out := make([][]byte, p.keyCount)
	for i := range out {
		out[i] = p.keys[i].bytes()
	}
	return out
}

// RemainingCount returns how many rewards are still undrawn.
func (p *Pool) RemainingCount() int { return int(p.remainingCount) }

// Remaining returns the undrawn reward indices in arena order.
func (p *Pool) Remaining() []uint16 {
	out := make([]uint16, p.remainingCount)
	copy(out, p.remaining[:p.remainingCount])
	return out
}

// EventCount returns the sequence number of the last audit event emitted for p.
func (p *Pool) EventCount() uint64 { return p.eventSeq }

// PendingCount returns the number of pulls that have not been settled.
func (p *Pool) PendingCount() uint64 { return p.PullCount - p.SettleCount }

// DecryptionKey returns the released decryption key, if any.
func (p *Pool) DecryptionKey() ([]byte, bool) {
	if p.decryptionKey.n == 0 {
		return nil, false
	}
	return p.decryptionKey.bytes(), true
}

// AddKey appends a reward record and returns the new record count.
func (p *Pool) AddKey(value []byte) (int, error) {
	if p.Finalized {
		return 0, ErrAlreadyFinalized
	}
	if len(value) == 0 {
		return 0, ErrEmptyKey
	}
	if len(value) > MaxKeyLen {
		return 0, fmt.Errorf("%w: %d bytes, max %d", ErrKeyTooLong, len(value), MaxKeyLen)
	}
	if p.keyCount >= MaxKeys {
		return 0, fmt.Errorf("%w: %d records", ErrKeyPoolFull, MaxKeys)
	}
	p.keys[p.keyCount].set(value)
	p.keyCount++
	return int(p.keyCount), nil
}

// Finalize freezes the reward set and makes every index drawable.
func (p *Pool) Finalize() error {
	if p.Finalized {
		return ErrAlreadyFinalized
	}
	if p.keyCount == 0 {
		return ErrNoKeysInPool
	}
	for i := uint16(0); i < p.keyCount; i++ {
		p.remaining[i] = i
	}
	p.remainingCount = p.keyCount
	p.Finalized = true
	return nil
}

// setDecryptionKey stores the key exactly once.
func (p *Pool) setDecryptionKey(key []byte) error {
	if len(key) == 0 || len(key) > MaxKeyLen {
		return fmt.Errorf("%w: %d bytes, want 1..%d", ErrInvalidKeyLength, len(key), MaxKeyLen)
	}
	if p.decryptionKey.n != 0 {
		return ErrDecryptionKeyReleased
	}
	if p.SettleCount != uint64(p.keyCount) {
		return fmt.Errorf("%w: %d of %d settled", ErrGachaNotComplete, p.SettleCount, p.keyCount)
	}
	p.decryptionKey.set(key)
	return nil
}
