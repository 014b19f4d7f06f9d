package transfer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/settle"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/wallet"
)

const erc20TransferABIJSON = `[
	{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// Executor submits direct token transfers. Transfers move the caller's own
// balance, so no allowance step is involved.
type Executor struct {
	signer   *wallet.Signer
	cfg      *chains.ChainConfig
	resolver *Resolver

	// NativeDecimals is the precision used for native-asset amounts.
	NativeDecimals uint8
}

// NewExecutor creates a transfer executor for one chain. The resolver handles
// named recipients and may be nil when only address literals are accepted.
func NewExecutor(signer *wallet.Signer, cfg *chains.ChainConfig, resolver *Resolver) *Executor {
	return &Executor{
		signer:         signer,
		cfg:            cfg,
		resolver:       resolver,
		NativeDecimals: 18,
	}
}

// ResolveRecipient accepts an address literal directly and sends anything
// else through the name service.
func (e *Executor) ResolveRecipient(ctx context.Context, recipient string) (common.Address, error) {
	if common.IsHexAddress(recipient) {
		return common.HexToAddress(recipient), nil
	}
	if e.resolver == nil {
		return common.Address{}, fmt.Errorf("recipient %q is not an address and no name resolver is configured", recipient)
	}
	addr, err := e.resolver.Resolve(ctx, recipient)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to resolve recipient: %w", err)
	}
	return addr, nil
}

// Transfer sends a token amount to the recipient and returns the pending
// settlement handle.
func (e *Executor) Transfer(ctx context.Context, token common.Address, recipient, amount string) (*settle.Settlement, error) {
	to, err := e.ResolveRecipient(ctx, recipient)
	if err != nil {
		return nil, err
	}

	decimals, err := e.cfg.TokenDecimals(token)
	if err != nil {
		return nil, err
	}
	units, err := chains.ToBaseUnits(amount, decimals)
	if err != nil {
		return nil, err
	}

	erc20ABI, err := abi.JSON(strings.NewReader(erc20TransferABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse transfer ABI: %w", err)
	}
	data, err := erc20ABI.Pack("transfer", to, units)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer: %w", err)
	}

	txHash, err := e.signer.Submit(ctx, e.cfg, token, big.NewInt(0), data, 0)
	if err != nil {
		return nil, fmt.Errorf("token transfer failed: %w", err)
	}
	return settle.OnChain(e.cfg.Name, txHash.Hex()), nil
}

// TransferNative sends the chain's native asset to the recipient.
func (e *Executor) TransferNative(ctx context.Context, recipient, amount string) (*settle.Settlement, error) {
	to, err := e.ResolveRecipient(ctx, recipient)
	if err != nil {
		return nil, err
	}

	units, err := chains.ToBaseUnits(amount, e.NativeDecimals)
	if err != nil {
		return nil, err
	}

	txHash, err := e.signer.Submit(ctx, e.cfg, to, units, nil, 21000)
	if err != nil {
		return nil, fmt.Errorf("native transfer failed: %w", err)
	}
	return settle.OnChain(e.cfg.Name, txHash.Hex()), nil
}
