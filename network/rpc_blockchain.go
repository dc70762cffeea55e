package network

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Compile-time interface check.
var _ BlockchainService = (*RPCClient)(nil)

// BroadcastTx submits a raw transaction hex to the network and returns the txid.
// It calls `sendrawtransaction "hex"`. RPC errors are wrapped with ErrBroadcastRejected.
func (c *RPCClient) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	var txid string
	if err := c.Call(ctx, "sendrawtransaction", []interface{}{rawTxHex}, &txid); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastRejected, err)
	}
	return txid, nil
}

// GetRawTx calls `getrawtransaction "txid" false` and decodes the hex result.
func (c *RPCClient) GetRawTx(ctx context.Context, txid string) ([]byte, error) {
	var rawHex string
	if err := c.Call(ctx, "getrawtransaction", []interface{}{txid, false}, &rawHex); err != nil {
		return nil, notFoundOr(err, txid)
	}
	data, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx hex: %v", ErrInvalidResponse, err)
	}
	return data, nil
}

// verboseTxResult maps the JSON fields from getrawtransaction with verbose=true.
type verboseTxResult struct {
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"blockhash"`
	BlockHeight   uint64 `json:"blockheight"`
}

// GetTxStatus calls `getrawtransaction "txid" true` for confirmation info.
func (c *RPCClient) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	var result verboseTxResult
	if err := c.Call(ctx, "getrawtransaction", []interface{}{txid, true}, &result); err != nil {
		return nil, notFoundOr(err, txid)
	}
	return &TxStatus{
		Confirmed:     result.Confirmations > 0,
		Confirmations: result.Confirmations,
		BlockHash:     result.BlockHash,
		BlockHeight:   result.BlockHeight,
	}, nil
}

// GetBestBlockHeight calls `getblockcount`.
func (c *RPCClient) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "getblockcount", nil, &raw); err != nil {
		return 0, err
	}
	// JSON numbers decode as float64.
	var height float64
	if err := json.Unmarshal(raw, &height); err != nil || height < 0 {
		return 0, fmt.Errorf("%w: invalid block height %s", ErrInvalidResponse, raw)
	}
	return uint64(height), nil
}

// GetBlockHash calls `getblockhash height`. Heights above the tip return
// ErrBlockNotFound.
func (c *RPCClient) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	var hash string
	if err := c.Call(ctx, "getblockhash", []interface{}{height}, &hash); err != nil {
		var rpcErr *RPCError
		if asRPCError(err, &rpcErr) && rpcErr.Code == rpcInvalidParameter {
			return "", fmt.Errorf("%w: height %d", ErrBlockNotFound, height)
		}
		return "", err
	}
	if len(hash) != 64 {
		return "", fmt.Errorf("%w: block hash %q", ErrInvalidResponse, hash)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", fmt.Errorf("%w: block hash %q", ErrInvalidResponse, hash)
	}
	return strings.ToLower(hash), nil
}

// notFoundOr maps the node's "no such transaction" error to ErrTxNotFound.
func notFoundOr(err error, txid string) error {
	var rpcErr *RPCError
	if asRPCError(err, &rpcErr) && rpcErr.Code == rpcInvalidAddressOrKey {
		return fmt.Errorf("%w: %s", ErrTxNotFound, txid)
	}
	return err
}
