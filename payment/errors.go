package payment

import (
	"errors"
	"fmt"

	"github.com/bitfsorg/libgacha-go/gacha"
)

var (
	// ErrProofReused indicates a payment transaction was already accepted.
	ErrProofReused = fmt.Errorf("%w: transaction already used", gacha.ErrInvalidPaymentProof)

	// ErrBalanceOverflow indicates a credit would overflow an account balance.
	ErrBalanceOverflow = errors.New("payment: balance overflow")

	// ErrNoNativeBackend indicates a router has no backend for the native currency.
	ErrNoNativeBackend = errors.New("payment: no native currency backend")
)
