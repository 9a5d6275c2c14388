package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"multipool/internal/retry"
)

// stubCaller answers eth_call by method name using the ERC20 ABI.
type stubCaller struct {
	responses map[string][]byte
	blocks    []*big.Int
}

func (s *stubCaller) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	s.blocks = append(s.blocks, block)
	parsed, err := erc20ABIInstance()
	if err != nil {
		return nil, err
	}
	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	resp, ok := s.responses[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

func packOutput(t *testing.T, method string, values ...interface{}) []byte {
	t.Helper()
	parsed, err := erc20ABIInstance()
	require.NoError(t, err)
	out, err := parsed.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return out
}

var (
	token  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	holder = common.HexToAddress("0x9000000000000000000000000000000000000009")
)

func TestBalanceOf(t *testing.T) {
	want, _ := new(big.Int).SetString("400040000000000000000002", 10)
	caller := &stubCaller{responses: map[string][]byte{"balanceOf": packOutput(t, "balanceOf", want)}}

	got, err := BalanceOf(context.Background(), caller, token, holder, big.NewInt(42))
	require.NoError(t, err)
	require.Equal(t, want.String(), got.Dec())
	require.Equal(t, big.NewInt(42), caller.blocks[0])

	_, err = BalanceOf(context.Background(), &stubCaller{}, token, holder, nil)
	require.Error(t, err)
	require.False(t, retry.IsPermanent(err))

	garbled := &stubCaller{responses: map[string][]byte{"balanceOf": {0x01}}}
	_, err = BalanceOf(context.Background(), garbled, token, holder, nil)
	require.True(t, retry.IsPermanent(err))

	_, err = BalanceOf(context.Background(), nil, token, holder, nil)
	require.Error(t, err)
}

func TestFetchTokenMeta(t *testing.T) {
	caller := &stubCaller{responses: map[string][]byte{
		"decimals": packOutput(t, "decimals", uint8(6)),
		"symbol":   packOutput(t, "symbol", "USDC"),
	}}
	meta, err := FetchTokenMeta(context.Background(), caller, token, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, TokenMeta{Address: token, Decimals: 6, Symbol: "USDC"}, meta)
}

func TestFetchTokenMetaWithoutSymbol(t *testing.T) {
	caller := &stubCaller{responses: map[string][]byte{
		"decimals": packOutput(t, "decimals", uint8(18)),
	}}
	meta, err := FetchTokenMeta(context.Background(), caller, token, nil)
	require.NoError(t, err)
	require.Equal(t, uint8(18), meta.Decimals)
	require.Empty(t, meta.Symbol)

	_, err = FetchTokenMeta(context.Background(), &stubCaller{}, token, nil)
	require.Error(t, err)
}

func TestTokenMetaCache(t *testing.T) {
	cache := NewTokenMetaCache()
	_, ok := cache.Get(token)
	require.False(t, ok)

	cache.Set(token, TokenMeta{Address: token, Symbol: "A"})
	meta, ok := cache.Get(token)
	require.True(t, ok)
	require.Equal(t, "A", meta.Symbol)
}
