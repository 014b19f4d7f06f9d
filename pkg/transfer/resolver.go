package transfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/wallet"
)

// Name lookups always run against the reference network's registry, whatever
// chain the transfer itself targets.
var ensRegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

const ensRegistryABIJSON = `[
	{"name":"resolver","type":"function","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
]`

const ensResolverABIJSON = `[
	{"name":"addr","type":"function","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
]`

// Resolver turns human-readable names into addresses via the name service on
// a fixed reference network.
type Resolver struct {
	signer *wallet.Signer
	cfg    *chains.ChainConfig
}

// NewResolver creates a resolver bound to the reference network config
// (mainnet in the default registry).
func NewResolver(signer *wallet.Signer, cfg *chains.ChainConfig) *Resolver {
	return &Resolver{signer: signer, cfg: cfg}
}

// namehash computes the registry node for a name, folding labels right to
// left.
func namehash(name string) common.Hash {
	node := make([]byte, 32)
	if name == "" {
		return common.BytesToHash(node)
	}
	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = crypto.Keccak256(node, labelHash)
	}
	return common.BytesToHash(node)
}

// Resolve looks up a name and returns the bound address. A missing resolver
// or a zero address result is an error; name resolution failures are fatal
// for the calling transfer.
func (r *Resolver) Resolve(ctx context.Context, name string) (common.Address, error) {
	registryABI, err := abi.JSON(strings.NewReader(ensRegistryABIJSON))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse registry ABI: %w", err)
	}

	node := namehash(name)
	data, err := registryABI.Pack("resolver", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack resolver call: %w", err)
	}
	result, err := r.signer.Call(ctx, r.cfg, ensRegistryAddress, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("name registry lookup failed for %s: %w", name, err)
	}

	var resolverAddr common.Address
	if err := registryABI.UnpackIntoInterface(&resolverAddr, "resolver", result); err != nil {
		return common.Address{}, fmt.Errorf("failed to decode resolver address: %w", err)
	}
	if resolverAddr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("no resolver registered for %s", name)
	}

	resolverABI, err := abi.JSON(strings.NewReader(ensResolverABIJSON))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse resolver ABI: %w", err)
	}
	data, err = resolverABI.Pack("addr", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack addr call: %w", err)
	}
	result, err = r.signer.Call(ctx, r.cfg, resolverAddr, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("address lookup failed for %s: %w", name, err)
	}

	var resolved common.Address
	if err := resolverABI.UnpackIntoInterface(&resolved, "addr", result); err != nil {
		return common.Address{}, fmt.Errorf("failed to decode resolved address: %w", err)
	}
	if resolved == (common.Address{}) {
		return common.Address{}, fmt.Errorf("name %s does not resolve to an address", name)
	}
	return resolved, nil
}
