package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"multipool/internal/retry"
)

const erc20ABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return symbol as bytes32.
const erc20SymbolBytes32ABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI          abi.ABI
	erc20ABIOnce      sync.Once
	erc20ABIErr       error
	symbolBytes32ABI  abi.ABI
	symbolBytes32Once sync.Once
	symbolBytes32Err  error
)

func erc20ABIInstance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

func symbolBytes32ABIInstance() (abi.ABI, error) {
	symbolBytes32Once.Do(func() {
		symbolBytes32ABI, symbolBytes32Err = abi.JSON(strings.NewReader(erc20SymbolBytes32ABIJSON))
	})
	return symbolBytes32ABI, symbolBytes32Err
}

// Caller is the subset of Client the ERC20 helpers use.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenMeta captures the ERC20 fields shown in audit reports.
type TokenMeta struct {
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
}

// BalanceOf returns token.balanceOf(owner) at blockNumber, or latest when nil.
func BalanceOf(ctx context.Context, caller Caller, token, owner common.Address, blockNumber *big.Int) (*uint256.Int, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	parsed, err := erc20ABIInstance()
	if err != nil {
		return nil, err
	}

	values, err := call(ctx, caller, token, parsed, blockNumber, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, retry.Permanent(fmt.Errorf("balanceOf return size %d", len(values)))
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, retry.Permanent(fmt.Errorf("balanceOf unexpected type %T", values[0]))
	}
	out, overflow := uint256.FromBig(bal)
	if overflow {
		return nil, retry.Permanent(fmt.Errorf("balanceOf %s does not fit 256 bits", bal))
	}
	return out, nil
}

// FetchTokenMeta loads decimals and symbol; a missing symbol is logged and
// left empty.
func FetchTokenMeta(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (TokenMeta, error) {
	meta := TokenMeta{Address: token}
	if caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := erc20ABIInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := call(ctx, caller, token, parsed, nil, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("decimals unexpected type %T", values[0])
	}
	meta.Decimals = decimals

	if values, err := call(ctx, caller, token, parsed, nil, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
		return meta, nil
	}
	fallback, err := symbolBytes32ABIInstance()
	if err != nil {
		return meta, fmt.Errorf("parse bytes32 abi: %w", err)
	}
	if values, err := call(ctx, caller, token, fallback, nil, "symbol"); err == nil {
		if raw, ok := values[0].([32]byte); ok {
			meta.Symbol = string(bytes.TrimRight(raw[:], "\x00"))
		}
	} else {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	return meta, nil
}

// call packs and sends one eth_call. Errors decoding the reply are marked
// retry.Permanent; transport errors are not.
func call(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, block *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("pack %s: %w", method, err))
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("unpack %s: %w", method, err))
	}
	if len(values) == 0 {
		return nil, retry.Permanent(fmt.Errorf("%s returned nothing", method))
	}
	return values, nil
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}
