package model

import (
	"encoding/json"
	"strings"
)

// Journal operation names.
const (
	OpDeposit           = "deposit"
	OpMint              = "mint"
	OpBurn              = "burn"
	OpSwap              = "swap"
	OpUpdatePrice       = "update_price"
	OpUpdatePercent     = "update_percent"
	OpSetParam          = "set_param"
	OpWithdrawFees      = "withdraw_fees"
	OpWithdrawCashbacks = "withdraw_cashbacks"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Operation is one line of a replay journal. Amounts are decimal strings.
type Operation struct {
	Seq       uint64 `json:"seq"`
	Op        string `json:"op"`
	Asset     string `json:"asset,omitempty"`
	AssetIn   string `json:"asset_in,omitempty"`
	AssetOut  string `json:"asset_out,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Shares    string `json:"shares,omitempty"`
	Price     string `json:"price,omitempty"`
	Percent   string `json:"percent,omitempty"`
	Param     string `json:"param,omitempty"`
	Value     string `json:"value,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	To        string `json:"to,omitempty"`
}

// UnmarshalJSON decodes an Operation and normalizes its name.
func (o *Operation) UnmarshalJSON(data []byte) error {
	type Alias Operation
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Op = strings.ToLower(strings.TrimSpace(a.Op))
	a.Param = strings.ToLower(strings.TrimSpace(a.Param))
	*o = Operation(a)
	return nil
}

// OperationResult is the outcome of applying one Operation.
type OperationResult struct {
	Seq         uint64            `json:"seq"`
	Op          string            `json:"op"`
	Status      string            `json:"status"`
	Error       string            `json:"error,omitempty"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	TotalSupply string            `json:"total_supply"`
	TotalUsd    string            `json:"total_usd"`
	AppliedAt   string            `json:"applied_at"`
}
