package payment

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/identity"
)

// Broadcaster submits raw transactions to the network.
// network.BlockchainService satisfies it.
type Broadcaster interface {
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)
}

// Native accepts native-currency payments proven by a raw BSV transaction
// that pays at least the price to the recipient's P2PKH script. At least one
// input must be unlocked by the payer's key, so a proof cannot be replayed
// by another requester.
//
// Input signatures are not checked here. Configure a Broadcaster so the node
// validates and relays the transaction; without one, only use Native where
// proofs come from trusted wallets. Accepted txids are remembered for the
// lifetime of the value; the node rejects re-broadcasts across restarts.
type Native struct {
	broadcaster Broadcaster

	mu   sync.Mutex
	used map[string]bool
}

// Compile-time interface check.
var _ gacha.PaymentBackend = (*Native)(nil)

// NativeOption configures a Native backend.
type NativeOption func(*Native)

// WithBroadcaster broadcasts each accepted proof before it is recorded.
func WithBroadcaster(b Broadcaster) NativeOption {
	return func(n *Native) { n.broadcaster = b }
}

// NewNative returns a Native backend.
func NewNative(opts ...NativeOption) *Native {
	n := &Native{used: make(map[string]bool)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Transfer verifies t.Proof and returns the txid as the receipt reference.
func (n *Native) Transfer(ctx context.Context, t gacha.Transfer) (gacha.Receipt, error) {
	if !t.Method.IsNative() {
		return gacha.Receipt{}, fmt.Errorf("%w: %s is not the native currency", gacha.ErrMintMismatch, t.Method)
	}
	if t.Amount == 0 {
		return gacha.Receipt{Reference: "free"}, nil
	}
	if len(t.Proof) == 0 {
		return gacha.Receipt{}, fmt.Errorf("%w: empty raw transaction", gacha.ErrInvalidPaymentProof)
	}

	tx, err := transaction.NewTransactionFromBytes(t.Proof)
	if err != nil {
		return gacha.Receipt{}, fmt.Errorf("%w: %w", gacha.ErrInvalidPaymentProof, err)
	}
	if err := checkOutputs(tx, t); err != nil {
		return gacha.Receipt{}, err
	}
	if err := checkPayer(tx, t.Payer); err != nil {
		return gacha.Receipt{}, err
	}
	txid := tx.TxID().String()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.used[txid] {
		return gacha.Receipt{}, fmt.Errorf("%w: %s", ErrProofReused, txid)
	}
	if n.broadcaster != nil {
		if _, err := n.broadcaster.BroadcastTx(ctx, hex.EncodeToString(t.Proof)); err != nil {
			return gacha.Receipt{}, fmt.Errorf("payment: broadcast %s: %w", txid, err)
		}
	}
	n.used[txid] = true
	return gacha.Receipt{Reference: txid}, nil
}

// checkOutputs looks for a P2PKH output to t.Recipient carrying t.Amount.
func checkOutputs(tx *transaction.Transaction, t gacha.Transfer) error {
	var best uint64
	found := false
	for _, output := range tx.Outputs {
		if output.LockingScript == nil || !output.LockingScript.IsP2PKH() {
			continue
		}
		pkh, err := output.LockingScript.PublicKeyHash()
		if err != nil || !bytes.Equal(pkh, t.Recipient[:]) {
			continue
		}
		found = true
		if output.Satoshis >= t.Amount {
			return nil
		}
		if output.Satoshis > best {
			best = output.Satoshis
		}
	}
	if !found {
		return fmt.Errorf("%w: no output pays %s", gacha.ErrAccountMismatch, t.Recipient)
	}
	return fmt.Errorf("%w: output has %d satoshis, need %d", gacha.ErrInsufficientFunds, best, t.Amount)
}

// checkPayer looks for an input whose unlocking script ends with a public
// key hashing to payer, the P2PKH <sig> <pubkey> shape.
func checkPayer(tx *transaction.Transaction, payer identity.ID) error {
	for _, input := range tx.Inputs {
		if input.UnlockingScript == nil {
			continue
		}
		chunks, err := input.UnlockingScript.Chunks()
		if err != nil || len(chunks) < 2 {
			continue
		}
		pub := chunks[len(chunks)-1].Data
		if len(pub) != 33 && len(pub) != 65 {
			continue
		}
		if bytes.Equal(bsvhash.Hash160(pub), payer[:]) {
			return nil
		}
	}
	return fmt.Errorf("%w: no input is signed by payer %s", gacha.ErrAccountMismatch, payer)
}
