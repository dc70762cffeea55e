// Package identity names the actors of a reward pool: admins, requesters and
// payment recipients. An identity is the HASH160 of a compressed secp256k1
// public key, the same value a P2PKH address encodes, so an ID can be checked
// directly against transaction outputs.
package identity

import (
	"encoding/hex"
	"fmt"
	"strings"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
)

// Size is the length of an ID in bytes.
const Size = 20

// ID identifies an actor by public key hash.
type ID [Size]byte

// Zero is the unset identity.
var Zero ID

// FromPublicKey returns the ID of a compressed public key.
func FromPublicKey(pub *ec.PublicKey) (ID, error) {
	if pub == nil {
		return Zero, ErrNilPublicKey
	}
	var id ID
	copy(id[:], bsvhash.Hash160(pub.Compressed()))
	return id, nil
}

// FromAddress decodes a base58 P2PKH address (mainnet or testnet).
func FromAddress(addr string) (ID, error) {
	a, err := script.NewAddressFromString(addr)
	if err != nil {
		return Zero, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	pkh := []byte(a.PublicKeyHash)
	if len(pkh) != Size {
		return Zero, fmt.Errorf("%w: public key hash is %d bytes", ErrInvalidID, len(pkh))
	}
	var id ID
	copy(id[:], pkh)
	return id, nil
}

// Parse accepts either a 40-character hex hash or a P2PKH address.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if len(s) == 2*Size {
		if b, err := hex.DecodeString(s); err == nil {
			var id ID
			copy(id[:], b)
			return id, nil
		}
	}
	return FromAddress(s)
}

// String returns the lowercase hex encoding of the hash.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether id is unset.
func (id ID) IsZero() bool { return id == Zero }

// Address encodes id as a P2PKH address for mainnet or testnet.
func (id ID) Address(mainnet bool) (string, error) {
	a, err := script.NewAddressFromPublicKeyHash(id[:], mainnet)
	if err != nil {
		return "", fmt.Errorf("identity: encode address: %w", err)
	}
	return a.AddressString, nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
