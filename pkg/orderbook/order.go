package orderbook

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/wallet"
)

const (
	domainName    = "Gnosis Protocol"
	domainVersion = "v2"

	// emptyAppData is the hash the venue expects when an order carries no
	// app-specific metadata.
	emptyAppData = "0x0000000000000000000000000000000000000000000000000000000000000000"

	balanceERC20 = "erc20"
	kindSell     = "sell"
)

var orderTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": {
		{Name: "sellToken", Type: "address"},
		{Name: "buyToken", Type: "address"},
		{Name: "receiver", Type: "address"},
		{Name: "sellAmount", Type: "uint256"},
		{Name: "buyAmount", Type: "uint256"},
		{Name: "validTo", Type: "uint32"},
		{Name: "appData", Type: "bytes32"},
		{Name: "feeAmount", Type: "uint256"},
		{Name: "kind", Type: "string"},
		{Name: "partiallyFillable", Type: "bool"},
		{Name: "sellTokenBalance", Type: "string"},
		{Name: "buyTokenBalance", Type: "string"},
	},
}

// SignOrder signs the order per the venue's EIP-712 scheme, binding it to the
// settlement contract on the given chain.
func SignOrder(signer *wallet.Signer, chainID *big.Int, settlement common.Address, order *OrderParams) (string, error) {
	appData := order.AppData
	if appData == "" {
		appData = emptyAppData
	}
	sellBalance := order.SellTokenBalance
	if sellBalance == "" {
		sellBalance = balanceERC20
	}
	buyBalance := order.BuyTokenBalance
	if buyBalance == "" {
		buyBalance = balanceERC20
	}

	typedData := apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
			VerifyingContract: settlement.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"sellToken":         order.SellToken,
			"buyToken":          order.BuyToken,
			"receiver":          order.Receiver,
			"sellAmount":        order.SellAmount,
			"buyAmount":         order.BuyAmount,
			"validTo":           fmt.Sprintf("%d", order.ValidTo),
			"appData":           appData,
			"feeAmount":         order.FeeAmount,
			"kind":              order.Kind,
			"partiallyFillable": order.PartiallyFillable,
			"sellTokenBalance":  sellBalance,
			"buyTokenBalance":   buyBalance,
		},
	}

	signature, err := signer.SignTypedData(typedData)
	if err != nil {
		return "", fmt.Errorf("failed to sign order: %w", err)
	}
	return hexutil.Encode(signature), nil
}
