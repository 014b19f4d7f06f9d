package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/wallet"
)

const erc20ABIJSON = `[
	{"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// maxUint256 is the approval amount used when raising an allowance, so the
// approval never has to be repeated for the same spender.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Client executes AMM-venue operations on one chain through a signer.
type Client struct {
	signer *wallet.Signer
	cfg    *chains.ChainConfig

	// SlippagePercent bounds the tolerated output deviation on swaps.
	SlippagePercent int64
	// SwapDeadline is how long a submitted swap stays valid.
	SwapDeadline time.Duration
	// SwapGasLimit is the explicit gas ceiling for swap transactions, set
	// high enough that estimation shortfalls cannot fail the swap.
	SwapGasLimit uint64

	now func() time.Time
}

// NewClient returns an AMM client with the default 5% slippage bound and a
// 20 minute swap deadline.
func NewClient(signer *wallet.Signer, cfg *chains.ChainConfig) *Client {
	return &Client{
		signer:          signer,
		cfg:             cfg,
		SlippagePercent: 5,
		SwapDeadline:    20 * time.Minute,
		SwapGasLimit:    400000,
		now:             time.Now,
	}
}

// Allowance reads the current allowance the owner has granted the spender.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}

	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance call: %w", err)
	}

	result, err := c.signer.Call(ctx, c.cfg, token, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call allowance: %w", err)
	}

	var allowance *big.Int
	if err := erc20ABI.UnpackIntoInterface(&allowance, "allowance", result); err != nil {
		return nil, fmt.Errorf("failed to unpack allowance result: %w", err)
	}
	return allowance, nil
}

// EnsureAllowance makes sure the spender holds at least the required
// allowance over the token. When the standing allowance already covers the
// requirement this is a no-op; otherwise one approval transaction for the
// maximum representable amount is submitted and mined before returning.
// Approval failures propagate unmodified and abort the calling operation.
func (c *Client) EnsureAllowance(ctx context.Context, spender, token common.Address, required *big.Int) error {
	current, err := c.Allowance(ctx, token, c.signer.Address(), spender)
	if err != nil {
		return err
	}
	if current.Cmp(required) >= 0 {
		return nil
	}

	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}
	data, err := erc20ABI.Pack("approve", spender, maxUint256)
	if err != nil {
		return fmt.Errorf("failed to pack approve call: %w", err)
	}

	txHash, err := c.signer.Submit(ctx, c.cfg, token, nil, data, 0)
	if err != nil {
		return fmt.Errorf("failed to submit approval: %w", err)
	}
	if _, err := c.signer.WaitMined(ctx, c.cfg, txHash, 1); err != nil {
		return fmt.Errorf("approval not confirmed: %w", err)
	}
	return nil
}

// TokenBalance reads the wallet's balance of an ERC-20 token.
func (c *Client) TokenBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}

	data, err := erc20ABI.Pack("balanceOf", c.signer.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	result, err := c.signer.Call(ctx, c.cfg, token, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	var balance *big.Int
	if err := erc20ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	return balance, nil
}
