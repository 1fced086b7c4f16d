package network

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
)

// Node error codes that mean the requested block does not exist.
const (
	rpcCodeInvalidAddressOrKey = -5 // "Block not found"
	rpcCodeInvalidParameter    = -8 // "Block height out of range"
)

// BlockSource is the read-only chain view needed to derive entropy from
// the chain tip.
type BlockSource interface {
	// GetBestBlockHeight returns the height of the current chain tip.
	GetBestBlockHeight(ctx context.Context) (uint64, error)

	// GetBlockHash returns the hex hash of the block at height.
	GetBlockHash(ctx context.Context, height uint64) (string, error)

	// GetBlockHeader returns the raw 80-byte header of the block.
	GetBlockHeader(ctx context.Context, blockHash string) ([]byte, error)
}

// Compile-time interface check.
var _ BlockSource = (*RPCClient)(nil)

// GetBestBlockHeight calls `getblockcount`.
func (c *RPCClient) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	var height int64
	if err := c.Call(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}
	if height < 0 {
		return 0, fmt.Errorf("%w: negative block height %d", ErrInvalidResponse, height)
	}
	return uint64(height), nil
}

// GetBlockHash calls `getblockhash height`.
func (c *RPCClient) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	var blockHash string
	if err := c.Call(ctx, "getblockhash", []interface{}{height}, &blockHash); err != nil {
		return "", mapBlockError(err, fmt.Sprintf("height %d", height))
	}
	if len(blockHash) != 64 {
		return "", fmt.Errorf("%w: block hash %q", ErrInvalidResponse, blockHash)
	}
	return blockHash, nil
}

// GetBlockHeader calls `getblockheader "hash" false` and decodes the hex header.
func (c *RPCClient) GetBlockHeader(ctx context.Context, blockHash string) ([]byte, error) {
	var headerHex string
	if err := c.Call(ctx, "getblockheader", []interface{}{blockHash, false}, &headerHex); err != nil {
		return nil, mapBlockError(err, blockHash)
	}
	data, err := hex.DecodeString(headerHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid header hex: %v", ErrInvalidResponse, err)
	}
	return data, nil
}

func mapBlockError(err error, what string) error {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) &&
		(rpcErr.Code == rpcCodeInvalidAddressOrKey || rpcErr.Code == rpcCodeInvalidParameter) {
		return fmt.Errorf("%w: %s: %s", ErrBlockNotFound, what, rpcErr.Message)
	}
	return err
}
