package gacha

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Clock reports the current logical slot.
type Clock interface {
	Slot(ctx context.Context) (uint64, error)
}

// RandomnessSource is an oracle account. It is bound to a commitment slot and
// publishes a value for that slot some time after it. A source whose
// commitment slot changes has been re-committed.
type RandomnessSource interface {
	// ID is the stable identity of the source, recorded at pull time.
	ID() string

	// CommitSlot returns the slot the source is currently committed to.
	CommitSlot(ctx context.Context) (uint64, error)

	// Resolve returns the value for commitSlot. It returns an error wrapping
	// ErrRandomnessNotResolved while the value is pending.
	Resolve(ctx context.Context, commitSlot uint64) ([]byte, error)
}

// checkFresh enforces now >= commit and now-commit <= maxDiff.
func checkFresh(now, commit, maxDiff uint64) error {
	if now < commit {
		return fmt.Errorf("%w: commit slot %d is ahead of current slot %d", ErrRandomnessNotCurrent, commit, now)
	}
	if now-commit > maxDiff {
		return fmt.Errorf("%w: commit slot %d is %d slots old, max %d", ErrRandomnessNotCurrent, commit, now-commit, maxDiff)
	}
	return nil
}

// RandomFromValue interprets the first 8 bytes of a resolved value as a
// little-endian uint64.
func RandomFromValue(value []byte) (uint64, error) {
	if len(value) < 8 {
		return 0, fmt.Errorf("%w: %d bytes, need 8", ErrInvalidRandomnessValue, len(value))
	}
	return binary.LittleEndian.Uint64(value[:8]), nil
}
