package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
)

const routerABIJSON = `[
	{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

// ExpectedOutput quotes the router for the output amount of a swap along the
// given path.
func (c *Client) ExpectedOutput(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	routerABI, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	data, err := routerABI.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getAmountsOut call: %w", err)
	}

	result, err := c.signer.Call(ctx, c.cfg, c.cfg.Router, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call getAmountsOut: %w", err)
	}

	var amounts []*big.Int
	if err := routerABI.UnpackIntoInterface(&amounts, "getAmountsOut", result); err != nil {
		return nil, fmt.Errorf("failed to unpack getAmountsOut result: %w", err)
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("router returned no amounts")
	}
	return amounts[len(amounts)-1], nil
}

// MinOutput applies the slippage bound to an expected output using integer
// arithmetic on base units: floor(expected * (100 - slippage) / 100).
func (c *Client) MinOutput(expected *big.Int) *big.Int {
	out := new(big.Int).Mul(expected, big.NewInt(100-c.SlippagePercent))
	return out.Div(out, big.NewInt(100))
}

// Swap converts the human amount into base units, ensures the router holds an
// allowance for it, selects a path, and submits a slippage-bounded swap with
// a 20 minute deadline. The returned hash identifies the pending transaction.
func (c *Client) Swap(ctx context.Context, from, to common.Address, amount string) (common.Hash, error) {
	decimals, err := c.cfg.TokenDecimals(from)
	if err != nil {
		return common.Hash{}, err
	}
	amountIn, err := chains.ToBaseUnits(amount, decimals)
	if err != nil {
		return common.Hash{}, err
	}

	if err := c.EnsureAllowance(ctx, c.cfg.Router, from, amountIn); err != nil {
		return common.Hash{}, err
	}

	path, err := c.SelectPath(ctx, from, to)
	if err != nil {
		return common.Hash{}, err
	}

	expected, err := c.ExpectedOutput(ctx, amountIn, path)
	if err != nil {
		return common.Hash{}, err
	}
	minOut := c.MinOutput(expected)

	routerABI, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	deadline := big.NewInt(c.now().Add(c.SwapDeadline).Unix())
	data, err := routerABI.Pack("swapExactTokensForTokens", amountIn, minOut, path, c.signer.Address(), deadline)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack swap call: %w", err)
	}

	txHash, err := c.signer.Submit(ctx, c.cfg, c.cfg.Router, nil, data, c.SwapGasLimit)
	if err != nil {
		if strings.Contains(err.Error(), "INSUFFICIENT_OUTPUT_AMOUNT") {
			return common.Hash{}, fmt.Errorf("%w: %v", ErrInsufficientLiquidity, err)
		}
		return common.Hash{}, fmt.Errorf("swap failed: %w", err)
	}
	return txHash, nil
}
