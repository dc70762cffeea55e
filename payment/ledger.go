// Package payment provides gacha.PaymentBackend implementations: an
// in-memory balance ledger, a verifier for native BSV payments made by raw
// transaction, and a router that sends each payment method to its backend.
package payment

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/identity"
)

type account struct {
	owner  identity.ID
	method gacha.MethodID
}

// Ledger is an in-memory multi-currency balance book. It backs simulations
// and off-chain token credits.
type Ledger struct {
	mu       sync.Mutex
	balances map[account]uint64
	seq      uint64
}

// Compile-time interface check.
var _ gacha.PaymentBackend = (*Ledger)(nil)

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[account]uint64)}
}

// Credit adds amount to owner's balance in method.
func (l *Ledger) Credit(owner identity.ID, method gacha.MethodID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := account{owner, method}
	if l.balances[k] > math.MaxUint64-amount {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, owner)
	}
	l.balances[k] += amount
	return nil
}

// Balance returns owner's balance in method.
func (l *Ledger) Balance(owner identity.ID, method gacha.MethodID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account{owner, method}]
}

// Transfer moves t.Amount from payer to recipient, or nothing at all.
func (l *Ledger) Transfer(_ context.Context, t gacha.Transfer) (gacha.Receipt, error) {
	if t.Payer.IsZero() || t.Recipient.IsZero() {
		return gacha.Receipt{}, fmt.Errorf("%w: payer and recipient must be set", gacha.ErrAccountMismatch)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	from := account{t.Payer, t.Method}
	to := account{t.Recipient, t.Method}
	if l.balances[from] < t.Amount {
		return gacha.Receipt{}, fmt.Errorf("%w: %s has %d, needs %d in %s",
			gacha.ErrInsufficientFunds, t.Payer, l.balances[from], t.Amount, t.Method)
	}
	if from != to && l.balances[to] > math.MaxUint64-t.Amount {
		return gacha.Receipt{}, fmt.Errorf("%w: %s", ErrBalanceOverflow, t.Recipient)
	}
	l.balances[from] -= t.Amount
	l.balances[to] += t.Amount
	l.seq++
	return gacha.Receipt{Reference: fmt.Sprintf("ledger:%d", l.seq)}, nil
}
