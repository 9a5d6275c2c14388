package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MintRequest asks for SharesOut pool shares paid in AssetIn.
// A zero SharesOut mints nothing and refunds the unswept deposit.
type MintRequest struct {
	AssetIn   common.Address
	SharesOut uint256.Int
	Recipient common.Address
}

type MintResponse struct {
	SharesMinted uint256.Int
	AmountIn     uint256.Int
	FeeCharged   uint256.Int
	Cashback     uint256.Int
	RefundAmount uint256.Int
}

type BurnRequest struct {
	AssetOut  common.Address
	SharesIn  uint256.Int
	Recipient common.Address
}

// BurnResponse reports AmountOut including any cashback paid.
type BurnResponse struct {
	AmountOut    uint256.Int
	FeeCharged   uint256.Int
	CashbackPaid uint256.Int
}

// SwapRequest sizes the trade by a shares-equivalent amount; no shares move.
// A zero SharesEquivalent trades nothing and refunds the deposit of AssetIn.
type SwapRequest struct {
	AssetIn          common.Address
	AssetOut         common.Address
	SharesEquivalent uint256.Int
	Recipient        common.Address
}

type SwapResponse struct {
	SharesEquivalent uint256.Int
	AmountIn         uint256.Int
	AmountOut        uint256.Int
	RefundAmount     uint256.Int
	FeeIn            uint256.Int
	FeeOut           uint256.Int
	CashbackIn       uint256.Int
	CashbackOut      uint256.Int
}

// Withdrawal instructs the transfer collaborator to move Amount of Asset to To.
type Withdrawal struct {
	Asset  common.Address
	To     common.Address
	Amount uint256.Int
}
