// Package network talks to a BSV node over JSON-RPC. The gacha engine uses it
// as a slot clock (chain height), as a public randomness beacon (block
// hashes) and to relay native payment transactions.
package network

import "context"

// BlockchainService is the node surface the engine depends on.
type BlockchainService interface {
	// BroadcastTx submits a raw transaction hex to the network and returns the txid.
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)

	// GetRawTx returns the raw transaction bytes for the given txid.
	GetRawTx(ctx context.Context, txid string) ([]byte, error)

	// GetTxStatus returns the confirmation status of a transaction.
	GetTxStatus(ctx context.Context, txid string) (*TxStatus, error)

	// GetBestBlockHeight returns the height of the current chain tip.
	GetBestBlockHeight(ctx context.Context) (uint64, error)

	// GetBlockHash returns the hash of the main-chain block at height, in the
	// node's display (byte-reversed) hex form.
	GetBlockHash(ctx context.Context, height uint64) (string, error)
}

// TxStatus represents the confirmation status of a transaction.
type TxStatus struct {
	Confirmed     bool   `json:"confirmed"`
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"block_hash"`
	BlockHeight   uint64 `json:"block_height"`
}
