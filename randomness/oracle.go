package randomness

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/bitfsorg/libgacha-go/gacha"
)

const (
	// SecretLen is the length of an oracle secret in bytes.
	SecretLen = 32

	// ValueLen is the length of a resolved oracle value in bytes.
	ValueLen = 32

	// HKDFInfo is the info string for per-slot value derivation.
	HKDFInfo = "gacha-oracle-value"
)

var _ gacha.RandomnessSource = (*Oracle)(nil)

// Oracle is a commit/reveal randomness source. It publishes SHA256(secret)
// up front; the value for slot s is
//
//	HKDF-SHA256(secret, salt=LE64(s), info="gacha-oracle-value")
//
// and is released only once the clock has moved past s. After Reveal anyone
// can check every value with VerifyValue.
type Oracle struct {
	id     string
	secret []byte
	clock  gacha.Clock

	mu        sync.RWMutex
	committed bool
	commit    uint64
}

// NewOracle returns an oracle for secret, which must be SecretLen bytes.
func NewOracle(id string, secret []byte, clock gacha.Clock) (*Oracle, error) {
	if len(secret) != SecretLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSecret, len(secret), SecretLen)
	}
	return &Oracle{id: id, secret: append([]byte(nil), secret...), clock: clock}, nil
}

// GenerateOracle returns an oracle with a fresh random secret.
func GenerateOracle(id string, clock gacha.Clock) (*Oracle, error) {
	secret := make([]byte, SecretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("randomness: generate secret: %w", err)
	}
	return NewOracle(id, secret, clock)
}

func (o *Oracle) ID() string { return o.id }

// Commitment returns SHA256(secret).
func (o *Oracle) Commitment() [32]byte {
	return sha256.Sum256(o.secret)
}

// Commit binds the oracle to the clock's current slot and returns it.
func (o *Oracle) Commit(ctx context.Context) (uint64, error) {
	slot, err := o.clock.Slot(ctx)
	if err != nil {
		return 0, fmt.Errorf("randomness: read clock: %w", err)
	}
	o.mu.Lock()
	o.committed = true
	o.commit = slot
	o.mu.Unlock()
	return slot, nil
}

func (o *Oracle) CommitSlot(context.Context) (uint64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.committed {
		return 0, fmt.Errorf("%w: %s", ErrNotCommitted, o.id)
	}
	return o.commit, nil
}

// Resolve returns the value for slot once the clock is past it.
func (o *Oracle) Resolve(ctx context.Context, slot uint64) ([]byte, error) {
	now, err := o.clock.Slot(ctx)
	if err != nil {
		return nil, fmt.Errorf("randomness: read clock: %w", err)
	}
	if now <= slot {
		return nil, fmt.Errorf("%w: %s slot %d not yet passed (now %d)", gacha.ErrRandomnessNotResolved, o.id, slot, now)
	}
	return deriveValue(o.secret, slot)
}

// Reveal returns a copy of the secret.
func (o *Oracle) Reveal() []byte {
	return append([]byte(nil), o.secret...)
}

// VerifyValue checks that secret matches commitment and that value is the
// oracle value for slot.
func VerifyValue(commitment [32]byte, secret []byte, slot uint64, value []byte) error {
	sum := sha256.Sum256(secret)
	if subtle.ConstantTimeCompare(sum[:], commitment[:]) != 1 {
		return ErrCommitmentMismatch
	}
	want, err := deriveValue(secret, slot)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(want, value) != 1 {
		return fmt.Errorf("%w: slot %d", ErrValueMismatch, slot)
	}
	return nil
}

func deriveValue(secret []byte, slot uint64) ([]byte, error) {
	var salt [8]byte
	binary.LittleEndian.PutUint64(salt[:], slot)
	r := hkdf.New(sha256.New, secret, salt[:], []byte(HKDFInfo))
	value := make([]byte, ValueLen)
	if _, err := io.ReadFull(r, value); err != nil {
		return nil, fmt.Errorf("randomness: derive value: %w", err)
	}
	return value, nil
}
