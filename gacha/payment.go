package gacha

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bitfsorg/libgacha-go/identity"
)

// MethodID names a payment method. The zero value is the native currency;
// any other value identifies a token.
type MethodID [32]byte

// Native is the native-currency payment method.
var Native MethodID

const nativeName = "native"

// IsNative reports whether m is the native currency.
func (m MethodID) IsNative() bool { return m == Native }

func (m MethodID) String() string {
	if m.IsNative() {
		return nativeName
	}
	return hex.EncodeToString(m[:])
}

// ParseMethod accepts "native" or a 64-character hex token identifier.
func ParseMethod(s string) (MethodID, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, nativeName) || s == "" {
		return Native, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(MethodID{}) {
		return Native, fmt.Errorf("%w: payment method %q", ErrMintMismatch, s)
	}
	var m MethodID
	copy(m[:], b)
	return m, nil
}

// MarshalText implements encoding.TextMarshaler.
func (m MethodID) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MethodID) UnmarshalText(b []byte) error {
	parsed, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Transfer is one payment the engine asks a backend to execute.
type Transfer struct {
	Payer     identity.ID
	Recipient identity.ID
	Method    MethodID
	Amount    uint64
	// Proof carries backend-specific evidence, e.g. a raw transaction.
	Proof []byte
	// Memo binds the payment to the pull it pays for.
	Memo string
}

// Receipt is returned by a backend for a completed transfer.
type Receipt struct {
	Reference string
}

// PaymentBackend moves value. Transfer must either complete entirely or
// return an error; the engine records nothing when it fails.
type PaymentBackend interface {
	Transfer(ctx context.Context, t Transfer) (Receipt, error)
}
