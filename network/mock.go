package network

import "context"

// MockBlockchainService is a test double for BlockchainService.
// Only the function fields a test exercises need to be set.
type MockBlockchainService struct {
	BroadcastTxFn        func(ctx context.Context, rawTxHex string) (string, error)
	GetRawTxFn           func(ctx context.Context, txid string) ([]byte, error)
	GetTxStatusFn        func(ctx context.Context, txid string) (*TxStatus, error)
	GetBestBlockHeightFn func(ctx context.Context) (uint64, error)
	GetBlockHashFn       func(ctx context.Context, height uint64) (string, error)
}

// Compile-time interface check.
var _ BlockchainService = (*MockBlockchainService)(nil)

func (m *MockBlockchainService) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	return m.BroadcastTxFn(ctx, rawTxHex)
}
func (m *MockBlockchainService) GetRawTx(ctx context.Context, txid string) ([]byte, error) {
	return m.GetRawTxFn(ctx, txid)
}
func (m *MockBlockchainService) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	return m.GetTxStatusFn(ctx, txid)
}
func (m *MockBlockchainService) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	return m.GetBestBlockHeightFn(ctx)
}
func (m *MockBlockchainService) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	return m.GetBlockHashFn(ctx, height)
}
