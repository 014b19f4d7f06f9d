package orchestrator

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/ethereum/go-ethereum/common"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/dex"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/intent"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/orderbook"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/settle"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/transfer"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/wallet"
)

// Result is the outcome of one executed intent. Transfers and swaps produce a
// pending settlement; buys produce an on-ramp redirect for the caller to open.
type Result struct {
	Intent     *intent.Intent     `json:"intent"`
	Settlement *settle.Settlement `json:"settlement,omitempty"`
	OnrampURL  string             `json:"onramp_url,omitempty"`
}

// Config wires the orchestrator's collaborators. Registry, Signer and
// Classifier are required; the rest default sensibly.
type Config struct {
	Registry   *chains.Registry
	Signer     *wallet.Signer
	Classifier intent.Classifier

	// Venues maps chain names to batch-auction endpoints. Chains with no
	// venue fall through to the AMM path.
	Venues map[string]orderbook.VenueConfig

	// ForceAMM skips the batch-auction venue even where one exists.
	ForceAMM bool

	// OnrampBaseURL is the fiat purchase redirect target.
	OnrampBaseURL string

	// Journal and WAL are optional persistence hooks for crash recovery.
	Journal *settle.Journal
	WAL     *settle.WAL
}

// Orchestrator routes typed intents to the matching executor and hands every
// pending identifier to the settlement tracker.
type Orchestrator struct {
	registry   *chains.Registry
	signer     *wallet.Signer
	classifier intent.Classifier
	venues     map[string]orderbook.VenueConfig
	forceAMM   bool
	onrampURL  string
	journal    *settle.Journal
	wal        *settle.WAL

	// nameChain is the reference network for recipient name lookups.
	nameChain string
}

// New creates an orchestrator from the config.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil || cfg.Signer == nil {
		return nil, fmt.Errorf("registry and signer are required")
	}
	venues := cfg.Venues
	if venues == nil {
		venues = orderbook.DefaultVenues()
	}
	onramp := cfg.OnrampBaseURL
	if onramp == "" {
		onramp = "https://buy.onramper.com"
	}
	return &Orchestrator{
		registry:   cfg.Registry,
		signer:     cfg.Signer,
		classifier: cfg.Classifier,
		venues:     venues,
		forceAMM:   cfg.ForceAMM,
		onrampURL:  onramp,
		journal:    cfg.Journal,
		wal:        cfg.WAL,
		nameChain:  "mainnet",
	}, nil
}

// Execute classifies free text and runs the resulting intent.
func (o *Orchestrator) Execute(ctx context.Context, text string) (*Result, error) {
	if o.classifier == nil {
		return nil, fmt.Errorf("no intent classifier configured")
	}
	it, err := o.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to classify intent: %w", err)
	}
	return o.Dispatch(ctx, it)
}

// Dispatch runs an already-typed intent. The chain must resolve before any
// signer or network call happens.
func (o *Orchestrator) Dispatch(ctx context.Context, it *intent.Intent) (*Result, error) {
	if err := it.Validate(); err != nil {
		return nil, err
	}

	switch it.Type {
	case intent.TypeBuy:
		// The chain still has to be known even though no transaction is
		// submitted here.
		if _, err := o.registry.Resolve(it.Request.Chain); err != nil {
			return nil, err
		}
		return o.executeBuy(it)
	case intent.TypeTransfer:
		cfg, err := o.registry.Resolve(it.Request.Chain)
		if err != nil {
			return nil, err
		}
		return o.executeTransfer(ctx, cfg, it)
	case intent.TypeSwap:
		cfg, err := o.registry.Resolve(it.Request.Chain)
		if err != nil {
			return nil, err
		}
		return o.executeSwap(ctx, cfg, it)
	}
	return nil, fmt.Errorf("unknown transaction type %q", it.Type)
}

func (o *Orchestrator) executeTransfer(ctx context.Context, cfg *chains.ChainConfig, it *intent.Intent) (*Result, error) {
	token, err := cfg.TokenBySymbol(it.Request.Token)
	if err != nil {
		return nil, err
	}
	if err := o.precheckBalance(ctx, cfg, token, it.Request.Amount); err != nil {
		return nil, err
	}

	o.journalBegin(it, "transfer")

	exec := transfer.NewExecutor(o.signer, cfg, o.nameResolver())
	s, err := exec.Transfer(ctx, token, it.Request.Recipient, it.Request.Amount)
	if err != nil {
		o.journalResolve(settle.StatusUnknown, err)
		return nil, err
	}
	o.recordSubmitted(s)
	return &Result{Intent: it, Settlement: s}, nil
}

func (o *Orchestrator) executeSwap(ctx context.Context, cfg *chains.ChainConfig, it *intent.Intent) (*Result, error) {
	from, err := cfg.TokenBySymbol(it.Request.FromToken)
	if err != nil {
		return nil, err
	}
	to, err := cfg.TokenBySymbol(it.Request.ToToken)
	if err != nil {
		return nil, err
	}
	if err := o.precheckBalance(ctx, cfg, from, it.Request.Amount); err != nil {
		return nil, err
	}

	o.journalBegin(it, "swap")
	dexClient := dex.NewClient(o.signer, cfg)

	// Prefer the batch auction where the venue supports the chain; its
	// solver competition generally beats raw pool pricing. The AMM remains
	// both the fallback and the ForceAMM override.
	if !o.forceAMM {
		if venue, err := orderbook.VenueFor(o.venues, cfg.Name); err == nil {
			exec := orderbook.NewExecutor(o.signer, cfg, venue, dexClient)
			uid, err := exec.Sell(ctx, from, to, it.Request.Amount)
			if err != nil {
				o.journalResolve(settle.StatusUnknown, err)
				return nil, err
			}
			s := settle.OffChainOrder(cfg.Name, uid)
			o.recordSubmitted(s)
			return &Result{Intent: it, Settlement: s}, nil
		}
		log.Printf("no auction venue for chain %s, using AMM", cfg.Name)
	}

	txHash, err := dexClient.Swap(ctx, from, to, it.Request.Amount)
	if err != nil {
		o.journalResolve(settle.StatusUnknown, err)
		return nil, err
	}
	s := settle.OnChain(cfg.Name, txHash.Hex())
	o.recordSubmitted(s)
	return &Result{Intent: it, Settlement: s}, nil
}

// executeBuy builds the fiat on-ramp redirect. No transaction is submitted;
// the purchase happens entirely with the external provider.
func (o *Orchestrator) executeBuy(it *intent.Intent) (*Result, error) {
	q := url.Values{}
	q.Set("defaultCrypto", it.Request.Token)
	q.Set("networkWallets", fmt.Sprintf("%s:%s", it.Request.Chain, o.signer.Address().Hex()))
	if it.Request.FiatAmount != "" {
		q.Set("defaultAmount", it.Request.FiatAmount)
	}
	return &Result{Intent: it, OnrampURL: o.onrampURL + "?" + q.Encode()}, nil
}

// Track resolves a pending settlement to a terminal status, updating the
// journal and WAL along the way.
func (o *Orchestrator) Track(ctx context.Context, s *settle.Settlement) (settle.Status, error) {
	cfg, err := o.registry.Resolve(s.Chain)
	if err != nil {
		return settle.StatusUnknown, err
	}

	var orders settle.OrderStatusFunc
	if venue, err := orderbook.VenueFor(o.venues, cfg.Name); err == nil {
		client := orderbook.NewClient(venue.BaseURL)
		orders = func(ctx context.Context, uid string) (string, error) {
			status, err := client.Status(ctx, uid)
			if err != nil {
				return "", err
			}
			return status.Status, nil
		}
	} else if s.Kind == settle.KindOrder {
		// An order settlement with no venue for its chain cannot be polled.
		// Journaled orders can outlive venue configuration changes, so this
		// is a caller-visible configuration error, not a panic.
		return settle.StatusUnknown, fmt.Errorf("cannot track order %s: %w", s.OrderUID, err)
	}

	tracker := settle.NewTracker(o.signer, orders, cfg)
	status, trackErr := tracker.Track(ctx, s)

	o.journalResolve(status, trackErr)
	if o.wal != nil {
		if err := o.wal.Save(&settle.WALRecord{Settlement: s}); err != nil {
			log.Printf("failed to persist settlement %s: %v", s.ID(), err)
		}
	}
	return status, trackErr
}

// precheckBalance rejects operations that would revert for lack of funds
// before anything is signed or broadcast.
func (o *Orchestrator) precheckBalance(ctx context.Context, cfg *chains.ChainConfig, token common.Address, amount string) error {
	decimals, err := cfg.TokenDecimals(token)
	if err != nil {
		return err
	}
	required, err := chains.ToBaseUnits(amount, decimals)
	if err != nil {
		return err
	}

	balance, err := dex.NewClient(o.signer, cfg).TokenBalance(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if balance.Cmp(required) < 0 {
		return fmt.Errorf("insufficient balance: have %s, need %s (base units of %s)",
			balance.String(), required.String(), token.Hex())
	}
	return nil
}

// nameResolver returns the name-service resolver on the reference network,
// or nil when that network is not registered.
func (o *Orchestrator) nameResolver() *transfer.Resolver {
	cfg, err := o.registry.Resolve(o.nameChain)
	if err != nil {
		return nil
	}
	return transfer.NewResolver(o.signer, cfg)
}

func (o *Orchestrator) journalBegin(it *intent.Intent, operation string) {
	if o.journal == nil {
		return
	}
	from := it.Request.FromToken
	if from == "" {
		from = it.Request.Token
	}
	if _, err := o.journal.Begin(o.signer.Address().Hex(), it.Request.Chain, operation, from, it.Request.ToToken, it.Request.Amount); err != nil {
		log.Printf("failed to journal operation: %v", err)
	}
}

func (o *Orchestrator) recordSubmitted(s *settle.Settlement) {
	if o.journal != nil {
		if err := o.journal.SetSubmitted(s); err != nil {
			log.Printf("failed to journal submission: %v", err)
		}
	}
	if o.wal != nil {
		if err := o.wal.Save(&settle.WALRecord{Settlement: s}); err != nil {
			log.Printf("failed to persist settlement %s: %v", s.ID(), err)
		}
	}
}

func (o *Orchestrator) journalResolve(status settle.Status, cause error) {
	if o.journal == nil {
		return
	}
	if err := o.journal.SetResolved(status, cause); err != nil {
		log.Printf("failed to journal resolution: %v", err)
	}
}
