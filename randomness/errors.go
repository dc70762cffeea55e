package randomness

import "errors"

var (
	// ErrNotCommitted indicates the source has not been bound to a slot yet.
	ErrNotCommitted = errors.New("randomness: source not committed")

	// ErrInvalidSecret indicates an oracle secret of the wrong length.
	ErrInvalidSecret = errors.New("randomness: invalid oracle secret")

	// ErrCommitmentMismatch indicates a revealed secret does not hash to the
	// published commitment.
	ErrCommitmentMismatch = errors.New("randomness: secret does not match commitment")

	// ErrValueMismatch indicates a value was not derived from the revealed secret.
	ErrValueMismatch = errors.New("randomness: value does not match secret")
)
