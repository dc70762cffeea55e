package identity

import "errors"

var (
	// ErrInvalidID indicates a string is neither a 40-character hex hash nor a P2PKH address.
	ErrInvalidID = errors.New("identity: invalid identity")

	// ErrNilPublicKey indicates a nil public key was provided.
	ErrNilPublicKey = errors.New("identity: public key is nil")
)
