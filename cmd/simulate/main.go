// Command simulate prints the execution plan for an intent without touching
// any network: chain and token resolution, unit conversion, and venue choice.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/intent"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/orderbook"
)

func main() {
	_ = godotenv.Load()

	intentJSON := flag.String("intent", "", "intent payload as JSON (reads stdin when empty)")
	flag.Parse()

	var it intent.Intent
	if *intentJSON != "" {
		if err := json.Unmarshal([]byte(*intentJSON), &it); err != nil {
			log.Fatalf("Failed to parse intent: %v", err)
		}
	} else {
		if err := json.NewDecoder(os.Stdin).Decode(&it); err != nil {
			log.Fatalf("Failed to read intent from stdin: %v", err)
		}
	}
	if err := it.Validate(); err != nil {
		log.Fatalf("Invalid intent: %v", err)
	}

	registry := chains.DefaultRegistry()
	cfg, err := registry.Resolve(it.Request.Chain)
	if err != nil {
		log.Fatalf("Chain resolution failed: %v", err)
	}
	fmt.Printf("chain:    %s (id %s)\n", cfg.Name, cfg.ChainID)

	switch it.Type {
	case intent.TypeBuy:
		fmt.Printf("plan:     fiat on-ramp redirect for %s\n", it.Request.Token)
		return
	case intent.TypeTransfer:
		token, err := cfg.TokenBySymbol(it.Request.Token)
		if err != nil {
			log.Fatalf("Token resolution failed: %v", err)
		}
		decimals, err := cfg.TokenDecimals(token)
		if err != nil {
			log.Fatalf("Decimals lookup failed: %v", err)
		}
		units, err := chains.ToBaseUnits(it.Request.Amount, decimals)
		if err != nil {
			log.Fatalf("Amount conversion failed: %v", err)
		}
		fmt.Printf("token:    %s (%d decimals)\n", token.Hex(), decimals)
		fmt.Printf("amount:   %s base units\n", units)
		fmt.Printf("plan:     ERC-20 transfer to %s\n", it.Request.Recipient)
		return
	case intent.TypeSwap:
		from, err := cfg.TokenBySymbol(it.Request.FromToken)
		if err != nil {
			log.Fatalf("Token resolution failed: %v", err)
		}
		to, err := cfg.TokenBySymbol(it.Request.ToToken)
		if err != nil {
			log.Fatalf("Token resolution failed: %v", err)
		}
		decimals, err := cfg.TokenDecimals(from)
		if err != nil {
			log.Fatalf("Decimals lookup failed: %v", err)
		}
		units, err := chains.ToBaseUnits(it.Request.Amount, decimals)
		if err != nil {
			log.Fatalf("Amount conversion failed: %v", err)
		}
		fmt.Printf("sell:     %s (%s base units)\n", from.Hex(), units)
		fmt.Printf("buy:      %s\n", to.Hex())

		if venue, err := orderbook.VenueFor(orderbook.DefaultVenues(), cfg.Name); err == nil {
			fmt.Printf("plan:     batch-auction order via %s\n", venue.BaseURL)
		} else {
			fmt.Printf("plan:     AMM swap via router %s (factory %s)\n", cfg.Router.Hex(), cfg.Factory.Hex())
		}
		fmt.Println("slippage: 5% below quoted output")
	}
}
