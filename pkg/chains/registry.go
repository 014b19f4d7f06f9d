package chains

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ChainConfig holds everything the SDK needs to know about one network:
// RPC endpoint, the AMM venue contracts, the wrapped native token and the
// decimal precision table for tokens we are willing to move.
type ChainConfig struct {
	Name          string
	ChainID       *big.Int
	RPCURL        string
	Router        common.Address
	Factory       common.Address
	WrappedNative common.Address

	// Decimals maps checksummed token addresses to their ERC-20 precision.
	// A token absent from this table cannot take part in any amount-bearing
	// operation.
	Decimals map[common.Address]uint8

	// Tokens maps uppercase symbols to contract addresses for intents that
	// name assets by ticker rather than address.
	Tokens map[string]common.Address
}

// Registry resolves human-readable chain names to their configuration.
// It is injected at construction time so tests can run against synthetic
// networks.
type Registry struct {
	chains map[string]*ChainConfig
}

// NewRegistry builds a registry from the given configs, keyed by lowercase name.
func NewRegistry(configs ...*ChainConfig) *Registry {
	r := &Registry{chains: make(map[string]*ChainConfig)}
	for _, cfg := range configs {
		r.chains[strings.ToLower(cfg.Name)] = cfg
	}
	return r
}

// Resolve returns the configuration for a chain name. Unknown chains are a
// configuration error and must be caught before any signer or network call.
func (r *Registry) Resolve(name string) (*ChainConfig, error) {
	cfg, ok := r.chains[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnsupportedChain, name, strings.Join(r.Names(), ", "))
	}
	return cfg, nil
}

// Names returns the registered chain names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.chains))
	for name := range r.chains {
		names = append(names, name)
	}
	return names
}

// TokenDecimals looks up the decimal precision for a token on this chain.
func (c *ChainConfig) TokenDecimals(token common.Address) (uint8, error) {
	decimals, ok := c.Decimals[token]
	if !ok {
		return 0, fmt.Errorf("%w: token %s on chain %s", ErrUnknownToken, token.Hex(), c.Name)
	}
	return decimals, nil
}

// TokenBySymbol resolves a ticker symbol to its contract address on this
// chain. An address literal passes through unchanged.
func (c *ChainConfig) TokenBySymbol(symbol string) (common.Address, error) {
	if common.IsHexAddress(symbol) {
		return common.HexToAddress(symbol), nil
	}
	addr, ok := c.Tokens[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: symbol %q on chain %s", ErrUnknownToken, symbol, c.Name)
	}
	return addr, nil
}

// DefaultRegistry returns the built-in chain set. RPC URLs can be overridden
// per deployment; the contract addresses are the canonical V2-style router and
// factory for each network.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&ChainConfig{
			Name:          "mainnet",
			ChainID:       big.NewInt(1),
			RPCURL:        "https://eth.llamarpc.com",
			Router:        common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
			Factory:       common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
			WrappedNative: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
			Decimals: map[common.Address]uint8{
				common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"): 18, // WETH
				common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"): 6,  // USDC
				common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"): 6,  // USDT
				common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"): 18, // DAI
			},
			Tokens: map[string]common.Address{
				"WETH": common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				"ETH":  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				"USDC": common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
				"USDT": common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
				"DAI":  common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
			},
		},
		&ChainConfig{
			Name:          "sepolia",
			ChainID:       big.NewInt(11155111),
			RPCURL:        "https://ethereum-sepolia-rpc.publicnode.com",
			Router:        common.HexToAddress("0xC532a74256D3Db42D0Bf7a0400fEFDbad7694008"),
			Factory:       common.HexToAddress("0x7E0987E5b3a30e3f2828572Bb659A548460a3003"),
			WrappedNative: common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"),
			Decimals: map[common.Address]uint8{
				common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"): 18, // WETH
				common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"): 6,  // USDC
			},
			Tokens: map[string]common.Address{
				"WETH": common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"),
				"ETH":  common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"),
				"USDC": common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"),
			},
		},
		&ChainConfig{
			Name:          "base",
			ChainID:       big.NewInt(8453),
			RPCURL:        "https://mainnet.base.org",
			Router:        common.HexToAddress("0x4752ba5DBc23f44D87826276BF6Fd6b1C372aD24"),
			Factory:       common.HexToAddress("0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6"),
			WrappedNative: common.HexToAddress("0x4200000000000000000000000000000000000006"),
			Decimals: map[common.Address]uint8{
				common.HexToAddress("0x4200000000000000000000000000000000000006"): 18, // WETH
				common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"): 6,  // USDC
			},
			Tokens: map[string]common.Address{
				"WETH": common.HexToAddress("0x4200000000000000000000000000000000000006"),
				"ETH":  common.HexToAddress("0x4200000000000000000000000000000000000006"),
				"USDC": common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
			},
		},
	)
}
