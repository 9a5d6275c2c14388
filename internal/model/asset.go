package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"multipool/internal/fixedpoint"
)

// Asset is the pool's accounting record for one token.
type Asset struct {
	Address            common.Address
	Quantity           uint256.Int
	Price              uint256.Int
	Percent            uint256.Int
	CollectedFees      uint256.Int
	CollectedCashbacks uint256.Int
}

func NewAsset(address common.Address) Asset {
	return Asset{Address: address}
}

// Accounted is the part of the held balance the pool has booked.
func (a Asset) Accounted() (*uint256.Int, error) {
	return fixedpoint.Sum(&a.Quantity, &a.CollectedFees, &a.CollectedCashbacks)
}

// UsdValue returns quantity*price in fixed point.
func (a Asset) UsdValue() (*uint256.Int, error) {
	return fixedpoint.MulDiv(&a.Quantity, &a.Price, fixedpoint.ONE, fixedpoint.RoundDown)
}

// State converts the record into its serialized form.
func (a Asset) State(held *uint256.Int) AssetState {
	st := AssetState{
		Address:            a.Address.Hex(),
		Quantity:           a.Quantity.Dec(),
		Price:              a.Price.Dec(),
		Percent:            a.Percent.Dec(),
		CollectedFees:      a.CollectedFees.Dec(),
		CollectedCashbacks: a.CollectedCashbacks.Dec(),
		Held:               "0",
	}
	if held != nil {
		st.Held = held.Dec()
	}
	return st
}
