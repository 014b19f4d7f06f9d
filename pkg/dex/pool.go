package dex

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const factoryABIJSON = `[
	{"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"createPair","outputs":[{"name":"pair","type":"address"}],"stateMutability":"nonpayable","type":"function"}
]`

// poolAddress reads the pool for a token pair from the factory; the zero
// address means no pool is registered.
func (c *Client) poolAddress(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse factory ABI: %w", err)
	}

	data, err := factoryABI.Pack("getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack getPair call: %w", err)
	}

	result, err := c.signer.Call(ctx, c.cfg, c.cfg.Factory, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to call getPair: %w", err)
	}

	var pool common.Address
	if err := factoryABI.UnpackIntoInterface(&pool, "getPair", result); err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack getPair result: %w", err)
	}
	return pool, nil
}

// PoolExists probes whether a pool for the pair is registered with the
// factory. This is a probe, not a commitment: registry errors are reported as
// "no pool" so route discovery can continue, with the underlying cause
// returned as a diagnostic so callers can tell "definitely no pool" apart
// from "couldn't check".
func (c *Client) PoolExists(ctx context.Context, tokenA, tokenB common.Address) (bool, error) {
	pool, err := c.poolAddress(ctx, tokenA, tokenB)
	if err != nil {
		return false, err
	}
	return pool != (common.Address{}), nil
}

// EnsurePool returns the pool address for the pair, creating the pool when it
// does not exist yet. Existence is re-checked first so a pool created by a
// concurrent actor between probe and commit is picked up instead of racing a
// second creation.
func (c *Client) EnsurePool(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	pool, err := c.poolAddress(ctx, tokenA, tokenB)
	if err == nil && pool != (common.Address{}) {
		return pool, nil
	}

	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	data, err := factoryABI.Pack("createPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack createPair call: %w", err)
	}

	txHash, err := c.signer.Submit(ctx, c.cfg, c.cfg.Factory, nil, data, 0)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrPoolCreation, err)
	}
	if _, err := c.signer.WaitMined(ctx, c.cfg, txHash, 1); err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrPoolCreation, err)
	}

	pool, err = c.poolAddress(ctx, tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: pool not readable after creation: %v", ErrPoolCreation, err)
	}
	if pool == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: factory reports no pool after creation", ErrPoolCreation)
	}
	return pool, nil
}
