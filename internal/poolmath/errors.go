package poolmath

import "errors"

var (
	ErrDeviationOverflow        = errors.New("deviation overflow")
	ErrMintAmountExceeded       = errors.New("mint amount in exceeded")
	ErrBurnAmountExceedsBalance = errors.New("burn amount exceeds balance")
	ErrSameAssetSwap            = errors.New("same asset swap")
	ErrNoSharesExist            = errors.New("no shares exist")
	ErrUnknownAsset             = errors.New("unknown asset")
	ErrInvalidParams            = errors.New("invalid params")
	ErrZeroPercentAsset         = errors.New("asset has zero target percent")
)
