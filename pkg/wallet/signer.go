package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
)

// ErrUserRejected marks a signing request the key holder declined. It is a
// user decision, not a system failure, and callers should present it as such.
var ErrUserRejected = errors.New("signing request rejected")

// Backend is the subset of ethclient.Client the signer needs. Tests provide
// fakes; production code gets a dialed *ethclient.Client.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Signer is an address-bound signing capability. It holds one private key and
// switches networks by dialing the RPC endpoint of whichever chain an
// operation targets, caching the connection.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address

	// Approve, when set, is consulted before any transaction is broadcast.
	// A false answer aborts the submission with ErrUserRejected. Embedding
	// hosts hook a confirmation prompt in here; when unset every submission
	// proceeds.
	Approve func(cfg *chains.ChainConfig, to common.Address, value *big.Int, data []byte) bool

	mu       sync.Mutex
	backends map[string]Backend
	dial     func(rpcURL string) (Backend, error)
}

// NewSigner parses the hex-encoded private key and derives the wallet address.
func NewSigner(privateKeyHex string) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKey),
		backends:   make(map[string]Backend),
		dial: func(rpcURL string) (Backend, error) {
			return ethclient.Dial(rpcURL)
		},
	}, nil
}

// Address returns the wallet address bound to this signer.
func (s *Signer) Address() common.Address {
	return s.address
}

// SetBackend pins a backend for a chain, bypassing the RPC dial. Used by tests
// and by callers that manage their own connections.
func (s *Signer) SetBackend(chainName string, backend Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backends[strings.ToLower(chainName)] = backend
}

// Backend returns the connection for the given chain, dialing it on first use.
func (s *Signer) Backend(cfg *chains.ChainConfig) (Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(cfg.Name)
	if backend, ok := s.backends[key]; ok {
		return backend, nil
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("no RPC endpoint configured for chain %s", cfg.Name)
	}
	backend, err := s.dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", cfg.Name, err)
	}
	s.backends[key] = backend
	return backend, nil
}

// Call executes a read-only contract call on the given chain.
func (s *Signer) Call(ctx context.Context, cfg *chains.ChainConfig, to common.Address, data []byte) ([]byte, error) {
	backend, err := s.Backend(cfg)
	if err != nil {
		return nil, err
	}
	return backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// NativeBalance reads the wallet's native token balance on the given chain.
func (s *Signer) NativeBalance(ctx context.Context, cfg *chains.ChainConfig) (*big.Int, error) {
	backend, err := s.Backend(cfg)
	if err != nil {
		return nil, err
	}
	balance, err := backend.BalanceAt(ctx, s.address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	return balance, nil
}

// Submit builds, signs and broadcasts a transaction. When gasLimit is zero the
// gas is estimated first (which also validates the call won't revert) and a
// 20% safety margin added; a non-zero gasLimit is used as an explicit ceiling.
func (s *Signer) Submit(ctx context.Context, cfg *chains.ChainConfig, to common.Address, value *big.Int, data []byte, gasLimit uint64) (common.Hash, error) {
	if s.Approve != nil && !s.Approve(cfg, to, value, data) {
		return common.Hash{}, fmt.Errorf("transaction to %s on %s: %w", to.Hex(), cfg.Name, ErrUserRejected)
	}

	backend, err := s.Backend(cfg)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	if gasLimit == 0 {
		estimated, err := backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  s.address,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("transaction would revert: %w", err)
		}
		gasLimit = estimated * 120 / 100 // 20% safety margin
	}

	if value == nil {
		value = big.NewInt(0)
	}
	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(cfg.ChainID), s.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}

// WaitMined polls for the transaction receipt until it is included with the
// requested number of confirmations. A receipt with failed status is an error;
// a context timeout is not proof of failure, the transaction may still land.
func (s *Signer) WaitMined(ctx context.Context, cfg *chains.ChainConfig, txHash common.Hash, confirmations uint64) (*types.Receipt, error) {
	backend, err := s.Backend(cfg)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var receipt *types.Receipt
	for receipt == nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			r, err := backend.TransactionReceipt(ctx, txHash)
			if err == nil {
				receipt = r
			}
			// Keep polling while the receipt is not available yet.
		}
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", txHash.Hex())
	}

	for confirmations > 1 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			head, err := backend.BlockNumber(ctx)
			if err != nil {
				continue
			}
			if head >= receipt.BlockNumber.Uint64()+confirmations-1 {
				return receipt, nil
			}
		}
	}
	return receipt, nil
}

// SignMessage signs a message with the Ethereum personal-sign prefix,
// adjusting the recovery byte to the 27/28 convention.
func (s *Signer) SignMessage(message []byte) ([]byte, error) {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	hash := crypto.Keccak256([]byte(prefix), message)

	signature, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	signature[64] += 27
	return signature, nil
}

// SignTypedData signs an EIP-712 typed-data payload, as used by off-chain
// order venues.
func (s *Signer) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}

	signature, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign typed data: %w", err)
	}
	signature[64] += 27
	return signature, nil
}
