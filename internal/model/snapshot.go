package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"multipool/internal/fixedpoint"
)

// AssetState is the JSON/DB form of an Asset plus its held balance.
type AssetState struct {
	Address            string `json:"address"`
	Quantity           string `json:"quantity"`
	Price              string `json:"price"`
	Percent            string `json:"percent"`
	CollectedFees      string `json:"collected_fees"`
	CollectedCashbacks string `json:"collected_cashbacks"`
	Held               string `json:"held"`
}

// ParamsState holds the global fee parameters as decimal strings.
type ParamsState struct {
	HalfDeviationFeeRatio string `json:"half_deviation_fee_ratio"`
	DeviationPercentLimit string `json:"deviation_percent_limit"`
	BaseMintFee           string `json:"base_mint_fee"`
	BaseBurnFee           string `json:"base_burn_fee"`
	BaseTradeFee          string `json:"base_trade_fee"`
}

// Snapshot is the complete pool state.
type Snapshot struct {
	Params      ParamsState  `json:"params"`
	TotalSupply string       `json:"total_supply"`
	Assets      []AssetState `json:"assets"`
}

// Checkpoint pairs a snapshot with the last journal sequence applied to it.
type Checkpoint struct {
	LastSeq   uint64   `json:"last_seq"`
	Snapshot  Snapshot `json:"snapshot"`
	UpdatedAt string   `json:"updated_at"`
}

// Asset parses the state back into an Asset and its held balance.
func (s AssetState) Asset() (Asset, *uint256.Int, error) {
	if !common.IsHexAddress(s.Address) {
		return Asset{}, nil, fmt.Errorf("invalid asset address: %s", s.Address)
	}
	asset := NewAsset(common.HexToAddress(s.Address))

	fields := []struct {
		name string
		raw  string
		dst  *uint256.Int
	}{
		{"quantity", s.Quantity, &asset.Quantity},
		{"price", s.Price, &asset.Price},
		{"percent", s.Percent, &asset.Percent},
		{"collected_fees", s.CollectedFees, &asset.CollectedFees},
		{"collected_cashbacks", s.CollectedCashbacks, &asset.CollectedCashbacks},
	}
	for _, f := range fields {
		v, err := fixedpoint.ParseDecimal(f.raw)
		if err != nil {
			return Asset{}, nil, fmt.Errorf("asset %s %s: %w", s.Address, f.name, err)
		}
		f.dst.Set(v)
	}

	held, err := fixedpoint.ParseDecimal(s.Held)
	if err != nil {
		return Asset{}, nil, fmt.Errorf("asset %s held: %w", s.Address, err)
	}
	return asset, held, nil
}
