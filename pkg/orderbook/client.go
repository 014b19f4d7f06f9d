package orderbook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
)

// ErrNoLiquidity means the venue found no matching route for the order. The
// venue's own description is attached so callers can show the reason.
var ErrNoLiquidity = errors.New("no liquidity")

// VenueConfig describes the batch-auction venue deployment for one chain.
type VenueConfig struct {
	BaseURL      string
	Settlement   common.Address // EIP-712 verifying contract
	VaultRelayer common.Address // spender that pulls sell tokens at settlement
}

// DefaultVenues lists the venue deployments per chain name. The settlement
// and relayer contracts are deployed at the same address on every supported
// network.
func DefaultVenues() map[string]VenueConfig {
	settlement := common.HexToAddress("0x9008D19f58AAbD9eD0D60971565AA8510560ab41")
	relayer := common.HexToAddress("0xC92E8bdf79f0507f65a392b0ab4667716BFE0110")
	return map[string]VenueConfig{
		"mainnet": {BaseURL: "https://api.cow.fi/mainnet", Settlement: settlement, VaultRelayer: relayer},
		"sepolia": {BaseURL: "https://api.cow.fi/sepolia", Settlement: settlement, VaultRelayer: relayer},
		"base":    {BaseURL: "https://api.cow.fi/base", Settlement: settlement, VaultRelayer: relayer},
	}
}

// VenueFor resolves the venue deployment for a chain. Not every chain runs
// the venue; unsupported chains fail loudly here, before any quote request.
func VenueFor(venues map[string]VenueConfig, chainName string) (VenueConfig, error) {
	venue, ok := venues[strings.ToLower(chainName)]
	if !ok {
		return VenueConfig{}, fmt.Errorf("batch-auction venue: %w: %q", chains.ErrUnsupportedChain, chainName)
	}
	return venue, nil
}

// QuoteRequest asks the venue to price a sell order.
type QuoteRequest struct {
	SellToken           string `json:"sellToken"`
	BuyToken            string `json:"buyToken"`
	From                string `json:"from"`
	Receiver            string `json:"receiver"`
	SellAmountBeforeFee string `json:"sellAmountBeforeFee"`
	Kind                string `json:"kind"`
}

// OrderParams are the order fields the venue quotes and the signer commits to.
type OrderParams struct {
	SellToken         string `json:"sellToken"`
	BuyToken          string `json:"buyToken"`
	Receiver          string `json:"receiver"`
	SellAmount        string `json:"sellAmount"`
	BuyAmount         string `json:"buyAmount"`
	ValidTo           uint32 `json:"validTo"`
	AppData           string `json:"appData"`
	FeeAmount         string `json:"feeAmount"`
	Kind              string `json:"kind"`
	PartiallyFillable bool   `json:"partiallyFillable"`
	SellTokenBalance  string `json:"sellTokenBalance,omitempty"`
	BuyTokenBalance   string `json:"buyTokenBalance,omitempty"`
}

// QuoteResponse is the venue's answer to a quote request.
type QuoteResponse struct {
	Quote      OrderParams `json:"quote"`
	From       string      `json:"from"`
	Expiration string      `json:"expiration"`
	ID         int64       `json:"id"`
}

// OrderSubmission is a signed order ready for the venue's order book.
type OrderSubmission struct {
	OrderParams
	SigningScheme string `json:"signingScheme"`
	Signature     string `json:"signature"`
	From          string `json:"from"`
}

// OrderStatus is the venue's view of a submitted order.
type OrderStatus struct {
	UID               string `json:"uid"`
	Status            string `json:"status"`
	ExecutedBuyAmount string `json:"executedBuyAmount"`
}

type venueError struct {
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
}

// Client talks to one chain's venue deployment over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a venue API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Quote requests a sell-side price quote.
func (c *Client) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	var resp QuoteResponse
	if err := c.postJSON(ctx, "/api/v1/quote", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit places a signed order on the book and returns its order UID.
func (c *Client) Submit(ctx context.Context, order *OrderSubmission) (string, error) {
	var uid string
	if err := c.postJSON(ctx, "/api/v1/orders", order, &uid); err != nil {
		return "", err
	}
	if uid == "" {
		return "", fmt.Errorf("venue returned empty order uid")
	}
	return uid, nil
}

// Status reads the current state of an order.
func (c *Client) Status(ctx context.Context, uid string) (*OrderStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/orders/"+uid, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read order status: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, venueErrorFrom(resp.StatusCode, body)
	}

	var status OrderStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse order status: %w", err)
	}
	return &status, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("venue request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read venue response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return venueErrorFrom(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse venue response: %w", err)
	}
	return nil
}

// venueErrorFrom maps the venue's structured error body onto the error
// taxonomy. A missing-route answer becomes ErrNoLiquidity with the venue's
// human-readable reason attached; everything else keeps its original text.
func venueErrorFrom(statusCode int, body []byte) error {
	var ve venueError
	if err := json.Unmarshal(body, &ve); err == nil && ve.ErrorType != "" {
		if ve.ErrorType == "NoLiquidity" {
			if ve.Description != "" {
				return fmt.Errorf("%w: %s", ErrNoLiquidity, ve.Description)
			}
			return ErrNoLiquidity
		}
		return fmt.Errorf("venue error %s: %s", ve.ErrorType, ve.Description)
	}
	return fmt.Errorf("venue returned status %d: %s", statusCode, string(body))
}
