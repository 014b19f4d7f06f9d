package intent

import (
	"context"
	"fmt"
)

// Type is the classified transaction type.
type Type string

const (
	TypeTransfer Type = "transfer"
	TypeSwap     Type = "swap"
	TypeBuy      Type = "buy"
)

// Request is a typed intent extracted from free text. Field presence depends
// on the type: transfers carry a recipient, swaps a token pair, buys a fiat
// amount.
type Request struct {
	Recipient  string `json:"recipient,omitempty"`
	Token      string `json:"token,omitempty"`
	FromToken  string `json:"from_token,omitempty"`
	ToToken    string `json:"to_token,omitempty"`
	Amount     string `json:"amount,omitempty"`
	FiatAmount string `json:"fiat_amount,omitempty"`
	Chain      string `json:"chain,omitempty"`
}

// Intent is the structured result of classifying user text.
type Intent struct {
	Type    Type    `json:"transaction_type"`
	Request Request `json:"response"`
}

// Validate checks that the classifier filled the fields the type requires.
// Output from any classifier is trusted only after this boundary.
func (i *Intent) Validate() error {
	switch i.Type {
	case TypeTransfer:
		if i.Request.Recipient == "" || i.Request.Token == "" || i.Request.Amount == "" {
			return fmt.Errorf("transfer intent missing recipient, token, or amount")
		}
	case TypeSwap:
		if i.Request.FromToken == "" || i.Request.ToToken == "" || i.Request.Amount == "" {
			return fmt.Errorf("swap intent missing token pair or amount")
		}
	case TypeBuy:
		if i.Request.Token == "" {
			return fmt.Errorf("buy intent missing token")
		}
	default:
		return fmt.Errorf("unknown transaction type %q", i.Type)
	}
	if i.Request.Chain == "" {
		return fmt.Errorf("%s intent missing chain", i.Type)
	}
	return nil
}

// Classifier turns free text into a typed intent.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Intent, error)
}
