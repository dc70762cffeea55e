package gacha

import "context"

// Op names an engine command.
type Op string

// Engine commands.
const (
	OpCreatePool           Op = "create_pool"
	OpAddKey               Op = "add_key"
	OpFinalize             Op = "finalize"
	OpAddPaymentConfig     Op = "add_payment_config"
	OpRemovePaymentConfig  Op = "remove_payment_config"
	OpSetPaused            Op = "set_paused"
	OpSetHalted            Op = "set_halted"
	OpTransferAdmin        Op = "transfer_admin"
	OpReleaseDecryptionKey Op = "release_decryption_key"
	OpPull                 Op = "pull"
	OpSettle               Op = "settle"
)

// Observer is notified after every command. Committed receives the events of
// a successful command in order; Rejected receives the error of a failed one.
// Observers run while the engine holds its lock and must not call back into it.
type Observer interface {
	Committed(ctx context.Context, events []Event)
	Rejected(ctx context.Context, op Op, pool PoolID, err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	CommittedFn func(ctx context.Context, events []Event)
	RejectedFn  func(ctx context.Context, op Op, pool PoolID, err error)
}

func (o ObserverFuncs) Committed(ctx context.Context, events []Event) {
	if o.CommittedFn != nil {
		o.CommittedFn(ctx, events)
	}
}

func (o ObserverFuncs) Rejected(ctx context.Context, op Op, pool PoolID, err error) {
	if o.RejectedFn != nil {
		o.RejectedFn(ctx, op, pool, err)
	}
}
