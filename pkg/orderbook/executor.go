package orderbook

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/wallet"
)

// AllowanceEnsurer raises a token allowance for a spender when the standing
// one is insufficient. Satisfied by the AMM client's allowance manager.
type AllowanceEnsurer interface {
	EnsureAllowance(ctx context.Context, spender, token common.Address, required *big.Int) error
}

// Executor runs the off-chain order flow: quote, allowance, sign, submit.
type Executor struct {
	signer     *wallet.Signer
	cfg        *chains.ChainConfig
	venue      VenueConfig
	client     *Client
	allowances AllowanceEnsurer

	// SlippagePercent is the margin subtracted from the quoted buy amount to
	// set the worst-case acceptable receipt.
	SlippagePercent int64
	// OrderValidity is how long a signed order stays on the book when the
	// quote does not pin its own expiry.
	OrderValidity time.Duration

	now func() time.Time
}

// NewExecutor wires an executor against one chain's venue deployment.
func NewExecutor(signer *wallet.Signer, cfg *chains.ChainConfig, venue VenueConfig, allowances AllowanceEnsurer) *Executor {
	return &Executor{
		signer:          signer,
		cfg:             cfg,
		venue:           venue,
		client:          NewClient(venue.BaseURL),
		allowances:      allowances,
		SlippagePercent: 5,
		OrderValidity:   30 * time.Minute,
		now:             time.Now,
	}
}

// Client exposes the venue API client, e.g. for status polling.
func (e *Executor) Client() *Client {
	return e.client
}

// Sell quotes and places a sell order of the human amount of the from-asset
// for the to-asset, returning the venue's order UID.
func (e *Executor) Sell(ctx context.Context, from, to common.Address, amount string) (string, error) {
	decimals, err := e.cfg.TokenDecimals(from)
	if err != nil {
		return "", err
	}
	sellAmount, err := chains.ToBaseUnits(amount, decimals)
	if err != nil {
		return "", err
	}

	owner := e.signer.Address()
	quote, err := e.client.Quote(ctx, &QuoteRequest{
		SellToken:           from.Hex(),
		BuyToken:            to.Hex(),
		From:                owner.Hex(),
		Receiver:            owner.Hex(),
		SellAmountBeforeFee: sellAmount.String(),
		Kind:                kindSell,
	})
	if err != nil {
		return "", err
	}

	if err := e.allowances.EnsureAllowance(ctx, e.venue.VaultRelayer, from, sellAmount); err != nil {
		return "", err
	}

	order, err := e.prepareOrder(&quote.Quote, from, to, owner, sellAmount)
	if err != nil {
		return "", err
	}

	signature, err := SignOrder(e.signer, e.cfg.ChainID, e.venue.Settlement, order)
	if err != nil {
		return "", err
	}

	uid, err := e.client.Submit(ctx, &OrderSubmission{
		OrderParams:   *order,
		SigningScheme: "eip712",
		Signature:     signature,
		From:          owner.Hex(),
	})
	if err != nil {
		return "", fmt.Errorf("order submission failed: %w", err)
	}
	return uid, nil
}

// prepareOrder turns a quote into the order that gets signed. The quoted fee
// is overridden to zero and the sell amount pinned to the requested amount
// rather than the fee-adjusted figure the venue returned; this mirrors the
// reference behavior but may misprice trades against the venue's settlement
// model. Revisit before treating it as correct. The token pair and receiver
// are likewise pinned to the request: the signed order never trusts the
// venue's echo of them, and a quote that omits the receiver would otherwise
// fail typed-data hashing.
func (e *Executor) prepareOrder(quoted *OrderParams, from, to, owner common.Address, sellAmount *big.Int) (*OrderParams, error) {
	buyAmount, ok := new(big.Int).SetString(quoted.BuyAmount, 10)
	if !ok {
		return nil, fmt.Errorf("venue quoted unparseable buy amount %q", quoted.BuyAmount)
	}

	// Worst-case acceptable receipt: quoted buy amount less the slippage
	// margin, integer arithmetic on base units.
	minBuy := new(big.Int).Mul(buyAmount, big.NewInt(100-e.SlippagePercent))
	minBuy.Div(minBuy, big.NewInt(100))

	order := *quoted
	order.SellToken = from.Hex()
	order.BuyToken = to.Hex()
	order.Receiver = owner.Hex()
	order.SellAmount = sellAmount.String()
	order.BuyAmount = minBuy.String()
	order.FeeAmount = "0"
	order.Kind = kindSell
	if order.ValidTo == 0 {
		order.ValidTo = uint32(e.now().Add(e.OrderValidity).Unix())
	}
	if order.AppData == "" {
		order.AppData = emptyAppData
	}
	return &order, nil
}
