package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/intent"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/orderbook"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/settle"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/wallet"
)

const testKey = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"

var (
	routerAddr  = common.HexToAddress("0xaaa0000000000000000000000000000000000001")
	factoryAddr = common.HexToAddress("0xaaa0000000000000000000000000000000000002")
	wethAddr    = common.HexToAddress("0xaaa0000000000000000000000000000000000003")
	usdcAddr    = common.HexToAddress("0xaaa0000000000000000000000000000000000004")
	daiAddr     = common.HexToAddress("0xaaa0000000000000000000000000000000000005")
	pairAddr    = common.HexToAddress("0xaaa0000000000000000000000000000000000006")
)

const testERC20ABI = `[
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const testFactoryABI = `[
	{"name":"getPair","type":"function","stateMutability":"view","inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"outputs":[{"name":"","type":"address"}]}
]`

const testRouterABI = `[
	{"name":"getAmountsOut","type":"function","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"","type":"uint256[]"}]}
]`

// scriptedBackend answers reads by contract address and records writes.
type scriptedBackend struct {
	t       *testing.T
	balance *big.Int
	sent    []*types.Transaction

	erc20   abi.ABI
	factory abi.ABI
	router  abi.ABI
}

func newScriptedBackend(t *testing.T, balance *big.Int) *scriptedBackend {
	t.Helper()
	parse := func(src string) abi.ABI {
		parsed, err := abi.JSON(strings.NewReader(src))
		if err != nil {
			t.Fatalf("failed to parse ABI: %v", err)
		}
		return parsed
	}
	return &scriptedBackend{
		t:       t,
		balance: balance,
		erc20:   parse(testERC20ABI),
		factory: parse(testFactoryABI),
		router:  parse(testRouterABI),
	}
}

func (b *scriptedBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	selector := msg.Data[:4]
	switch {
	case *msg.To == factoryAddr:
		if bytes.Equal(selector, b.factory.Methods["getPair"].ID) {
			return b.factory.Methods["getPair"].Outputs.Pack(pairAddr)
		}
	case *msg.To == routerAddr:
		if bytes.Equal(selector, b.router.Methods["getAmountsOut"].ID) {
			args, err := b.router.Methods["getAmountsOut"].Inputs.Unpack(msg.Data[4:])
			if err != nil {
				return nil, err
			}
			amountIn := args[0].(*big.Int)
			out := new(big.Int).Mul(amountIn, big.NewInt(2))
			return b.router.Methods["getAmountsOut"].Outputs.Pack([]*big.Int{amountIn, out})
		}
	default:
		if bytes.Equal(selector, b.erc20.Methods["allowance"].ID) {
			max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
			return b.erc20.Methods["allowance"].Outputs.Pack(max)
		}
		if bytes.Equal(selector, b.erc20.Methods["balanceOf"].ID) {
			return b.erc20.Methods["balanceOf"].Outputs.Pack(b.balance)
		}
	}
	b.t.Fatalf("unexpected call to %s with selector %x", msg.To.Hex(), selector)
	return nil, nil
}

func (b *scriptedBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 0, nil
}

func (b *scriptedBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *scriptedBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100000, nil
}

func (b *scriptedBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.sent = append(b.sent, tx)
	return nil
}

func (b *scriptedBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil
}

func (b *scriptedBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (b *scriptedBackend) BlockNumber(context.Context) (uint64, error) {
	return 1, nil
}

type staticClassifier struct {
	intent *intent.Intent
	err    error
}

func (c *staticClassifier) Classify(context.Context, string) (*intent.Intent, error) {
	return c.intent, c.err
}

func testRegistry() *chains.Registry {
	return chains.NewRegistry(&chains.ChainConfig{
		Name:          "sepolia",
		ChainID:       big.NewInt(11155111),
		Router:        routerAddr,
		Factory:       factoryAddr,
		WrappedNative: wethAddr,
		Decimals: map[common.Address]uint8{
			wethAddr: 18,
			usdcAddr: 6,
			daiAddr:  18,
		},
		Tokens: map[string]common.Address{
			"WETH": wethAddr,
			"USDC": usdcAddr,
			"DAI":  daiAddr,
		},
	})
}

func newTestOrchestrator(t *testing.T, cfg Config) (*Orchestrator, *scriptedBackend) {
	t.Helper()
	backend := newScriptedBackend(t, big.NewInt(1_000_000_000))

	signer, err := wallet.NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	signer.SetBackend("sepolia", backend)

	if cfg.Registry == nil {
		cfg.Registry = testRegistry()
	}
	cfg.Signer = signer
	if cfg.Venues == nil {
		cfg.Venues = map[string]orderbook.VenueConfig{}
	}

	o, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o, backend
}

func TestTrack_OrderWithoutVenueIsAnError(t *testing.T) {
	// The venue map is empty, so an order settlement on this chain has no
	// status source. A journaled order can hit this after the venue
	// configuration changed; it must surface as an error, not a panic.
	o, _ := newTestOrchestrator(t, Config{})

	s := settle.OffChainOrder("sepolia", "0xdeadbeef")
	status, err := o.Track(context.Background(), s)
	if err == nil {
		t.Fatal("expected error tracking an order with no venue configured")
	}
	if status != settle.StatusUnknown {
		t.Errorf("status = %s, want %s", status, settle.StatusUnknown)
	}
}

func TestDispatch_UnsupportedChainFailsBeforeNetwork(t *testing.T) {
	o, backend := newTestOrchestrator(t, Config{})

	_, err := o.Dispatch(context.Background(), &intent.Intent{
		Type:    intent.TypeSwap,
		Request: intent.Request{FromToken: "USDC", ToToken: "DAI", Amount: "1", Chain: "polygon"},
	})
	if !errors.Is(err, chains.ErrUnsupportedChain) {
		t.Fatalf("expected ErrUnsupportedChain, got %v", err)
	}
	if len(backend.sent) != 0 {
		t.Error("no transaction should be sent for an unsupported chain")
	}
}

func TestDispatch_SwapViaAMM(t *testing.T) {
	o, backend := newTestOrchestrator(t, Config{ForceAMM: true})

	result, err := o.Dispatch(context.Background(), &intent.Intent{
		Type:    intent.TypeSwap,
		Request: intent.Request{FromToken: "USDC", ToToken: "DAI", Amount: "100", Chain: "sepolia"},
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Settlement == nil {
		t.Fatal("expected a settlement")
	}
	if result.Settlement.Kind != settle.KindOnChain {
		t.Errorf("Kind = %s, want %s", result.Settlement.Kind, settle.KindOnChain)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1 swap", len(backend.sent))
	}
	if *backend.sent[0].To() != routerAddr {
		t.Errorf("swap target = %s, want router", backend.sent[0].To().Hex())
	}
}

func TestDispatch_SwapPrefersVenue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/quote"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"quote": map[string]string{
					"sellToken":  usdcAddr.Hex(),
					"buyToken":   daiAddr.Hex(),
					"sellAmount": "100000000",
					"buyAmount":  "200000000",
					"feeAmount":  "350",
					"kind":       "sell",
				},
			})
		case strings.HasSuffix(r.URL.Path, "/orders"):
			json.NewEncoder(w).Encode("0xorderuid001")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	o, backend := newTestOrchestrator(t, Config{
		Venues: map[string]orderbook.VenueConfig{
			"sepolia": {
				BaseURL:      server.URL,
				Settlement:   common.HexToAddress("0x9008D19f58AAbD9eD0D60971565AA8510560ab41"),
				VaultRelayer: common.HexToAddress("0xC92E8bdf79f0507f65a392b0ab4667716BFE0110"),
			},
		},
	})

	result, err := o.Dispatch(context.Background(), &intent.Intent{
		Type:    intent.TypeSwap,
		Request: intent.Request{FromToken: "USDC", ToToken: "DAI", Amount: "100", Chain: "sepolia"},
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Settlement.Kind != settle.KindOrder {
		t.Errorf("Kind = %s, want %s", result.Settlement.Kind, settle.KindOrder)
	}
	if result.Settlement.OrderUID != "0xorderuid001" {
		t.Errorf("OrderUID = %s, want 0xorderuid001", result.Settlement.OrderUID)
	}
	// Allowance was already sufficient, so the whole flow stays off-chain.
	if len(backend.sent) != 0 {
		t.Errorf("sent %d transactions, want 0", len(backend.sent))
	}
}

func TestDispatch_TransferSubmitsToken(t *testing.T) {
	o, backend := newTestOrchestrator(t, Config{})

	recipient := common.HexToAddress("0xbbb0000000000000000000000000000000000001")
	result, err := o.Dispatch(context.Background(), &intent.Intent{
		Type:    intent.TypeTransfer,
		Request: intent.Request{Recipient: recipient.Hex(), Token: "USDC", Amount: "50", Chain: "sepolia"},
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Settlement.Kind != settle.KindOnChain {
		t.Errorf("Kind = %s, want %s", result.Settlement.Kind, settle.KindOnChain)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(backend.sent))
	}
	if *backend.sent[0].To() != usdcAddr {
		t.Errorf("transfer target = %s, want token contract", backend.sent[0].To().Hex())
	}
}

func TestDispatch_InsufficientBalance(t *testing.T) {
	o, backend := newTestOrchestrator(t, Config{})
	backend.balance = big.NewInt(1) // far below 50 USDC

	_, err := o.Dispatch(context.Background(), &intent.Intent{
		Type:    intent.TypeTransfer,
		Request: intent.Request{Recipient: "0xbbb0000000000000000000000000000000000001", Token: "USDC", Amount: "50", Chain: "sepolia"},
	})
	if err == nil || !strings.Contains(err.Error(), "insufficient balance") {
		t.Fatalf("expected insufficient balance error, got %v", err)
	}
	if len(backend.sent) != 0 {
		t.Error("no transaction should be sent when the balance precheck fails")
	}
}

func TestDispatch_BuyBuildsOnrampURL(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{OnrampBaseURL: "https://onramp.example"})

	result, err := o.Dispatch(context.Background(), &intent.Intent{
		Type:    intent.TypeBuy,
		Request: intent.Request{Token: "ETH", FiatAmount: "50", Chain: "sepolia"},
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Settlement != nil {
		t.Error("buys should not produce a settlement")
	}
	if !strings.HasPrefix(result.OnrampURL, "https://onramp.example?") {
		t.Errorf("OnrampURL = %s", result.OnrampURL)
	}
	if !strings.Contains(result.OnrampURL, "defaultCrypto=ETH") {
		t.Errorf("OnrampURL missing token: %s", result.OnrampURL)
	}
	if !strings.Contains(result.OnrampURL, "defaultAmount=50") {
		t.Errorf("OnrampURL missing amount: %s", result.OnrampURL)
	}
}

func TestExecute_ClassifierErrorPropagates(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{Classifier: &staticClassifier{err: errors.New("model unavailable")}})

	if _, err := o.Execute(context.Background(), "do something"); err == nil {
		t.Fatal("expected classifier error")
	}
}

func TestExecute_ClassifiedSwapRuns(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{
		ForceAMM: true,
		Classifier: &staticClassifier{intent: &intent.Intent{
			Type:    intent.TypeSwap,
			Request: intent.Request{FromToken: "USDC", ToToken: "DAI", Amount: "10", Chain: "sepolia"},
		}},
	})

	result, err := o.Execute(context.Background(), "swap 10 usdc to dai on sepolia")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Settlement == nil || result.Settlement.Kind != settle.KindOnChain {
		t.Fatalf("unexpected result: %+v", result)
	}
}
