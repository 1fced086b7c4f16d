package network

import "context"

// MockBlockSource is a test double for BlockSource.
// All function fields must be set before the corresponding method is called.
type MockBlockSource struct {
	GetBestBlockHeightFn func(ctx context.Context) (uint64, error)
	GetBlockHashFn       func(ctx context.Context, height uint64) (string, error)
	GetBlockHeaderFn     func(ctx context.Context, blockHash string) ([]byte, error)
}

func (m *MockBlockSource) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	return m.GetBestBlockHeightFn(ctx)
}
func (m *MockBlockSource) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	return m.GetBlockHashFn(ctx, height)
}
func (m *MockBlockSource) GetBlockHeader(ctx context.Context, blockHash string) ([]byte, error) {
	return m.GetBlockHeaderFn(ctx, blockHash)
}
