package dex

import "errors"

var (
	// ErrNoRoute means no trading path between the two assets exists and none
	// could be bootstrapped. Terminal; callers must not retry.
	ErrNoRoute = errors.New("no viable route")

	// ErrInsufficientLiquidity means the venue rejected the swap because the
	// price moved below the slippage-bounded minimum output.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrPoolCreation means the venue rejected the pool-creation transaction.
	ErrPoolCreation = errors.New("pool creation failed")
)
