package gacha

import (
	"context"
	"fmt"

	"github.com/bitfsorg/libgacha-go/identity"
)

func requireAdmin(p *Pool, caller identity.ID) error {
	if caller.IsZero() || caller != p.Admin {
		return fmt.Errorf("%w: pool %d admin is %s", ErrUnauthorized, p.ID, p.Admin)
	}
	return nil
}

// AddKey appends a reward record to a pool that is still being built and
// returns the new record count.
func (e *Engine) AddKey(ctx context.Context, caller identity.ID, id PoolID, value []byte) (int, error) {
	var total int
	err := e.run(ctx, OpAddKey, id, caller, nil, func(_ context.Context, t *txn) error {
		if err := requireAdmin(t.pool, caller); err != nil {
			return err
		}
		n, err := t.pool.AddKey(value)
		if err != nil {
			return err
		}
		total = n
		t.emit(EventKeyAdded, KeyAdded{Key: append([]byte(nil), value...), TotalKeys: n})
		return nil
	})
	return total, err
}

// Finalize freezes the reward set of a pool and opens it for pulls.
func (e *Engine) Finalize(ctx context.Context, caller identity.ID, id PoolID) error {
	return e.run(ctx, OpFinalize, id, caller, nil, func(_ context.Context, t *txn) error {
		if err := requireAdmin(t.pool, caller); err != nil {
			return err
		}
		if err := t.pool.Finalize(); err != nil {
			return err
		}
		t.emit(EventPoolFinalized, PoolFinalized{TotalKeys: t.pool.KeyCount()})
		return nil
	})
}

// AddPaymentConfig prices pulls of a pool in a new payment method.
func (e *Engine) AddPaymentConfig(ctx context.Context, caller identity.ID, id PoolID, cfg PaymentConfig) error {
	return e.run(ctx, OpAddPaymentConfig, id, caller, nil, func(_ context.Context, t *txn) error {
		if err := requireAdmin(t.pool, caller); err != nil {
			return err
		}
		if err := t.pool.AddPaymentConfig(cfg); err != nil {
			return err
		}
		t.emit(EventPaymentConfigAdded, PaymentConfigAdded{PaymentConfig: cfg})
		return nil
	})
}

// RemovePaymentConfig stops accepting method for pulls of a pool.
func (e *Engine) RemovePaymentConfig(ctx context.Context, caller identity.ID, id PoolID, method MethodID) error {
	return e.run(ctx, OpRemovePaymentConfig, id, caller, nil, func(_ context.Context, t *txn) error {
		if err := requireAdmin(t.pool, caller); err != nil {
			return err
		}
		if err := t.pool.RemovePaymentConfig(method); err != nil {
			return err
		}
		t.emit(EventPaymentConfigRemoved, PaymentConfigRemoved{Method: method})
		return nil
	})
}

// SetPaused blocks or unblocks new pulls.
func (e *Engine) SetPaused(ctx context.Context, caller identity.ID, id PoolID, paused bool) error {
	return e.run(ctx, OpSetPaused, id, caller, nil, func(_ context.Context, t *txn) error {
		if err := requireAdmin(t.pool, caller); err != nil {
			return err
		}
		t.pool.Paused = paused
		t.emit(EventPaused, PausedChanged{Paused: paused})
		return nil
	})
}

// SetHalted blocks or unblocks settlement.
func (e *Engine) SetHalted(ctx context.Context, caller identity.ID, id PoolID, halted bool) error {
	return e.run(ctx, OpSetHalted, id, caller, nil, func(_ context.Context, t *txn) error {
		if err := requireAdmin(t.pool, caller); err != nil {
			return err
		}
		t.pool.Halted = halted
		t.emit(EventHalted, HaltedChanged{Halted: halted})
		return nil
	})
}

// TransferAdmin hands control of a pool to next.
func (e *Engine) TransferAdmin(ctx context.Context, caller identity.ID, id PoolID, next identity.ID) error {
	return e.run(ctx, OpTransferAdmin, id, caller, nil, func(_ context.Context, t *txn) error {
		if err := requireAdmin(t.pool, caller); err != nil {
			return err
		}
		if next.IsZero() {
			return fmt.Errorf("%w: new admin", ErrInvalidIdentity)
		}
		prev := t.pool.Admin
		t.pool.Admin = next
		t.emit(EventAdminTransferred, AdminTransferred{Previous: prev, New: next})
		return nil
	})
}

// ReleaseDecryptionKey publishes the key that opens sealed rewards once
// every reward has been settled. The key can be released only once.
func (e *Engine) ReleaseDecryptionKey(ctx context.Context, caller identity.ID, id PoolID, key []byte) error {
	return e.run(ctx, OpReleaseDecryptionKey, id, caller, nil, func(_ context.Context, t *txn) error {
		if err := requireAdmin(t.pool, caller); err != nil {
			return err
		}
		if err := t.pool.setDecryptionKey(key); err != nil {
			return err
		}
		t.emit(EventDecryptionKeyReleased, DecryptionKeyReleased{Key: append([]byte(nil), key...)})
		return nil
	})
}
