package pool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"multipool/internal/fixedpoint"
	"multipool/internal/model"
	"multipool/internal/poolmath"
)

var (
	tokenA = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0x2000000000000000000000000000000000000002")
	tokenC = common.HexToAddress("0x3000000000000000000000000000000000000003")
	alice  = common.HexToAddress("0xa11ce00000000000000000000000000000000000")
	bob    = common.HexToAddress("0xb0b0000000000000000000000000000000000000")
)

func units(n uint64) *uint256.Int { return fixedpoint.Units(n) }

func scaled(n uint64, exp uint8) *uint256.Int { return fixedpoint.Scaled(n, exp) }

func defaultParams() poolmath.Params {
	var p poolmath.Params
	p.HalfDeviationFeeRatio.Set(scaled(3, 14))
	p.DeviationPercentLimit.Set(scaled(1, 17))
	p.BaseMintFee.Set(scaled(1, 14))
	p.BaseBurnFee.Set(scaled(1, 14))
	p.BaseTradeFee.Set(scaled(5, 13))
	return p
}

// newTestPool returns a pool with A and B at price 10 and 50/50 targets.
func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p, err := New(defaultParams(), zaptest.NewLogger(t))
	require.NoError(t, err)
	for _, addr := range []common.Address{tokenA, tokenB} {
		p.UpdatePrice(addr, units(10))
		p.UpdateAssetPercents(addr, units(50))
	}
	return p
}

func deposit(t *testing.T, p *Pool, addr common.Address, amount *uint256.Int) {
	t.Helper()
	require.NoError(t, p.Deposit(addr, amount))
}

func mint(t *testing.T, p *Pool, addr common.Address, shares *uint256.Int) model.MintResponse {
	t.Helper()
	resp, err := p.Mint(model.MintRequest{AssetIn: addr, SharesOut: *shares, Recipient: alice})
	require.NoError(t, err)
	return resp
}

func burn(t *testing.T, p *Pool, addr common.Address, shares *uint256.Int) model.BurnResponse {
	t.Helper()
	resp, err := p.Burn(model.BurnRequest{AssetOut: addr, SharesIn: *shares, Recipient: alice})
	require.NoError(t, err)
	return resp
}

func swap(t *testing.T, p *Pool, in, out common.Address, shares *uint256.Int) model.SwapResponse {
	t.Helper()
	resp, err := p.Swap(model.SwapRequest{AssetIn: in, AssetOut: out, SharesEquivalent: *shares, Recipient: alice})
	require.NoError(t, err)
	return resp
}

func asset(t *testing.T, p *Pool, addr common.Address) model.Asset {
	t.Helper()
	a, ok := p.Asset(addr)
	require.True(t, ok)
	return a
}

func excess(t *testing.T, p *Pool, addr common.Address) string {
	t.Helper()
	e, err := p.Excess(addr)
	require.NoError(t, err)
	return e.Dec()
}

func totalUsd(t *testing.T, p *Pool) string {
	t.Helper()
	v, err := p.TotalUsd()
	require.NoError(t, err)
	return v.Dec()
}

// requireSolvent checks that every held balance covers what is booked.
func requireSolvent(t *testing.T, p *Pool) {
	t.Helper()
	for _, a := range p.Assets() {
		accounted, err := a.Accounted()
		require.NoError(t, err)
		held := p.Held(a.Address)
		require.False(t, held.Lt(accounted), "asset %s held %s accounted %s", a.Address.Hex(), held.Dec(), accounted.Dec())
	}
}

func TestMintAndBurnWholeSupply(t *testing.T) {
	p := newTestPool(t)

	deposit(t, p, tokenA, units(200000))
	resp := mint(t, p, tokenA, units(100000))
	require.Equal(t, "100000000000000000000000", resp.SharesMinted.Dec())
	require.True(t, resp.FeeCharged.IsZero())

	out := burn(t, p, tokenA, units(100000))
	require.Equal(t, "199980001999800019998000", out.AmountOut.Dec())
	supply := p.TotalSupply()
	require.True(t, supply.IsZero())
	require.Equal(t, "0", totalUsd(t, p))

	a := asset(t, p, tokenA)
	held := p.Held(tokenA)
	residue := new(uint256.Int).Sub(&held, &a.CollectedFees)
	require.Equal(t, "1", residue.Dec())

	// the dust left after a full exit is swept by the next seeding mint
	deposit(t, p, tokenA, units(200000))
	mint(t, p, tokenA, units(10))
	seeded := asset(t, p, tokenA)
	require.Equal(t, "200000000000000000000001", seeded.Quantity.Dec())

	deposit(t, p, tokenB, units(2000000))
	resp = mint(t, p, tokenB, units(20))
	require.Equal(t, "1599959999999999999999998", resp.RefundAmount.Dec())
	require.Equal(t, "6000000000000000000000030", totalUsd(t, p))

	a, b := asset(t, p, tokenA), asset(t, p, tokenB)
	require.Equal(t, "19998000199980001999", a.CollectedFees.Dec())
	require.Equal(t, "40000000000000000000", b.CollectedFees.Dec())
	require.Equal(t, "400000000000000000000002", b.Quantity.Dec())

	_, err := p.Burn(model.BurnRequest{AssetOut: tokenB, SharesIn: *units(20)})
	require.ErrorIs(t, err, poolmath.ErrDeviationOverflow)

	out = burn(t, p, tokenB, units(10))
	require.Equal(t, "199980001999800019998001", out.AmountOut.Dec())
	requireSolvent(t, p)
}

// ladderPool seeds A with 200000 for 10 shares and B with 400000 for 20.
func ladderPool(t *testing.T) *Pool {
	t.Helper()
	p := newTestPool(t)
	deposit(t, p, tokenA, units(200000))
	mint(t, p, tokenA, units(10))
	deposit(t, p, tokenB, units(2000000))
	resp := mint(t, p, tokenB, units(20))
	require.Equal(t, "1599960000000000000000000", resp.RefundAmount.Dec())
	return p
}

func TestSwapLadder(t *testing.T) {
	p := ladderPool(t)

	deposit(t, p, tokenA, units(100000))
	resp := swap(t, p, tokenA, tokenB, units(1))
	require.Equal(t, "79999000000000000000000", resp.RefundAmount.Dec())
	require.Equal(t, "19999000049997500124993", resp.AmountOut.Dec())
	a, b := asset(t, p, tokenA), asset(t, p, tokenB)
	require.Equal(t, "1000000000000000000", a.CollectedFees.Dec())
	require.Equal(t, "220000000000000000000000", a.Quantity.Dec())
	require.Equal(t, "40999950002499875006", b.CollectedFees.Dec())
	require.Equal(t, "380000000000000000000000", b.Quantity.Dec())
	require.Equal(t, "0", excess(t, p, tokenA))

	deposit(t, p, tokenA, units(100000))
	resp = swap(t, p, tokenA, tokenB, units(2))
	require.Equal(t, "59998000000000000000000", resp.RefundAmount.Dec())
	require.Equal(t, "39998000099995000249987", resp.AmountOut.Dec())
	a, b = asset(t, p, tokenA), asset(t, p, tokenB)
	require.Equal(t, "3000000000000000000", a.CollectedFees.Dec())
	require.Equal(t, "42999850007499625018", b.CollectedFees.Dec())
	require.Equal(t, "340000000000000000000000", b.Quantity.Dec())

	deposit(t, p, tokenA, units(1000000))
	before := p.Snapshot()
	_, err := p.Swap(model.SwapRequest{AssetIn: tokenA, AssetOut: tokenB, SharesEquivalent: *units(10)})
	require.ErrorIs(t, err, poolmath.ErrDeviationOverflow)
	require.Equal(t, before, p.Snapshot())

	// B sits above target, so minting more of it pays into the cashback reserve
	deposit(t, p, tokenB, fixedpoint.MustDecimal("10085374999999999997710"))
	mintResp := mint(t, p, tokenB, scaled(5, 17))
	require.True(t, mintResp.RefundAmount.IsZero())

	supply := p.TotalSupply()
	require.Equal(t, "30500000000000000000", supply.Dec())
	require.Equal(t, "6100000000000000000000000", totalUsd(t, p))
	b = asset(t, p, tokenB)
	require.Equal(t, "43999850007499625018", b.CollectedFees.Dec())
	require.Equal(t, "350000000000000000000000", b.Quantity.Dec())
	require.Equal(t, "84374999999999997712", b.CollectedCashbacks.Dec())
	require.Equal(t, "1000000000000000000000000", excess(t, p, tokenA))
	require.Equal(t, "0", excess(t, p, tokenB))
	requireSolvent(t, p)
}

func TestSwapAfterPriceMove(t *testing.T) {
	p := ladderPool(t)
	p.UpdatePrice(tokenB, units(6))

	deposit(t, p, tokenA, units(100000))
	resp := swap(t, p, tokenA, tokenB, units(4))
	require.Equal(t, "41330400000000000000001", resp.RefundAmount.Dec())
	require.Equal(t, "95691698745133859637675", resp.AmountOut.Dec())

	a, b := asset(t, p, tokenA), asset(t, p, tokenB)
	require.Equal(t, "2933333333333333333", a.CollectedFees.Dec())
	require.Equal(t, "258666666666666666666666", a.Quantity.Dec())
	require.Equal(t, "44784584937256692981", b.CollectedFees.Dec())
	require.Equal(t, "302222222222222222222223", b.Quantity.Dec())
	require.Equal(t, "2081294447706661447121", b.CollectedCashbacks.Dec())

	p.UpdateAssetPercents(tokenC, units(100))
	p.UpdatePrice(tokenA, units(10))
	p.UpdatePrice(tokenB, units(10))
	p.UpdatePrice(tokenC, units(20))

	deposit(t, p, tokenC, units(100000))
	mintResp := mint(t, p, tokenC, units(10))
	require.Equal(t, "6509170370370370370371", mintResp.RefundAmount.Dec())
	require.Len(t, p.Assets(), 3)
	requireSolvent(t, p)
}

func TestChangeFees(t *testing.T) {
	p := newTestPool(t)
	deposit(t, p, tokenA, units(200000))
	mint(t, p, tokenA, units(10))
	deposit(t, p, tokenB, units(200020))
	mint(t, p, tokenB, units(10))

	b := asset(t, p, tokenB)
	require.Equal(t, "20000000000000000000", b.CollectedFees.Dec())
	require.Equal(t, "200000000000000000000000", b.Quantity.Dec())

	require.NoError(t, p.SetBaseMintFee(units(10)))
	deposit(t, p, tokenA, units(1000000))
	resp := mint(t, p, tokenA, units(2))
	require.Equal(t, "559900000000000000002200", resp.RefundAmount.Dec())

	a := asset(t, p, tokenA)
	require.Equal(t, "400000000000000000000000", a.CollectedFees.Dec())
	require.Equal(t, "240000000000000000000000", a.Quantity.Dec())
	require.Equal(t, "99999999999999997800", a.CollectedCashbacks.Dec())
}

func TestOperationsAlongCurve(t *testing.T) {
	p := newTestPool(t)
	aliceA := new(uint256.Int).Set(units(10000000))
	bobB := new(uint256.Int).Set(units(10000000))

	pay := func(wallet *uint256.Int, addr common.Address, amount *uint256.Int) {
		wallet.Sub(wallet, amount)
		deposit(t, p, addr, amount)
	}

	pay(aliceA, tokenA, units(10))
	mint(t, p, tokenA, units(10))
	pay(aliceA, tokenA, units(10))
	refund := mint(t, p, tokenA, units(9)).RefundAmount
	aliceA.Add(aliceA, &refund)
	require.Equal(t, "9999980999100000000000000", aliceA.Dec())

	pay(bobB, tokenB, units(25))
	refund = mint(t, p, tokenB, units(24)).RefundAmount
	bobB.Add(bobB, &refund)
	require.Equal(t, "9999975997600000000000000", bobB.Dec())

	out := burn(t, p, tokenB, units(4)).AmountOut
	bobB.Add(bobB, &out)
	require.Equal(t, "9999979997200039996000399", bobB.Dec())

	p.UpdateAssetPercents(tokenA, units(30))
	p.UpdateAssetPercents(tokenB, units(70))
	pay(bobB, tokenB, scaled(30005, 15))
	refund = mint(t, p, tokenB, units(30)).RefundAmount
	bobB.Add(bobB, &refund)
	require.Equal(t, "9999949994200039996000400", bobB.Dec())
	requireSolvent(t, p)
}

func TestSwapFromBalancedPool(t *testing.T) {
	p := balancedPool(t)

	deposit(t, p, tokenA, units(1100))
	resp := swap(t, p, tokenA, tokenB, units(5))
	require.Equal(t, "1094999560606060606061", resp.RefundAmount.Dec())
	require.Equal(t, "4999365465152499879", resp.AmountOut.Dec())

	supply := p.TotalSupply()
	require.Equal(t, "2000000000000000000000", supply.Dec())
}

func TestMintAfterPriceUpdate(t *testing.T) {
	p := newTestPool(t)
	deposit(t, p, tokenA, units(1000))
	mint(t, p, tokenA, units(1000))
	p.UpdatePrice(tokenB, units(15))

	deposit(t, p, tokenA, units(30))
	resp := mint(t, p, tokenA, units(29))
	require.Equal(t, "997100000000000000", resp.RefundAmount.Dec())
}

func TestMintRefundsUnusedDeposit(t *testing.T) {
	p := newTestPool(t)
	deposit(t, p, tokenA, units(10))
	mint(t, p, tokenA, units(10))
	deposit(t, p, tokenA, units(1000))
	mint(t, p, tokenA, units(10))

	held := p.Held(tokenA)
	require.Equal(t, "20001000000000000000", held.Dec())
	require.Equal(t, "0", excess(t, p, tokenA))
}

func TestMintMoreThanDeposited(t *testing.T) {
	p := newTestPool(t)
	deposit(t, p, tokenA, units(10))
	mint(t, p, tokenA, units(11))
	deposit(t, p, tokenA, units(10))

	before := p.Snapshot()
	_, err := p.Mint(model.MintRequest{AssetIn: tokenA, SharesOut: *units(11)})
	require.ErrorIs(t, err, poolmath.ErrMintAmountExceeded)
	require.Equal(t, before, p.Snapshot())
}

func TestSwapAfterBurn(t *testing.T) {
	p := newTestPool(t)
	deposit(t, p, tokenA, units(10))
	mint(t, p, tokenA, units(10))
	deposit(t, p, tokenB, scaled(1001, 15))
	mint(t, p, tokenB, units(1))
	burn(t, p, tokenA, units(1))
	deposit(t, p, tokenB, scaled(1001, 15))

	resp := swap(t, p, tokenB, tokenA, scaled(10001, 14))
	require.Equal(t, "1000049997500124993", resp.AmountOut.Dec())
	require.Equal(t, "0", excess(t, p, tokenB))
	requireSolvent(t, p)
}

func TestRoundTripWithoutFees(t *testing.T) {
	var params poolmath.Params
	params.DeviationPercentLimit.Set(fixedpoint.ONE)
	p, err := New(params, zaptest.NewLogger(t))
	require.NoError(t, err)
	for _, addr := range []common.Address{tokenA, tokenB} {
		p.UpdatePrice(addr, fixedpoint.ONE)
		p.UpdateAssetPercents(addr, units(50))
	}

	deposit(t, p, tokenA, units(1000))
	mint(t, p, tokenA, units(1000))
	deposit(t, p, tokenB, units(1000))
	resp := mint(t, p, tokenB, units(1000))
	require.True(t, resp.RefundAmount.IsZero())

	out := burn(t, p, tokenB, units(1000))
	require.Equal(t, "1000000000000000000000", out.AmountOut.Dec())
}

func TestOperationErrors(t *testing.T) {
	p := newTestPool(t)
	unknown := common.HexToAddress("0xdead")

	require.ErrorIs(t, p.Deposit(unknown, units(1)), poolmath.ErrUnknownAsset)

	_, err := p.Burn(model.BurnRequest{AssetOut: tokenA, SharesIn: *units(1)})
	require.ErrorIs(t, err, poolmath.ErrNoSharesExist)

	_, err = p.Swap(model.SwapRequest{AssetIn: tokenA, AssetOut: tokenA, SharesEquivalent: *units(1)})
	require.ErrorIs(t, err, poolmath.ErrSameAssetSwap)

	_, err = p.Mint(model.MintRequest{AssetIn: unknown, SharesOut: *units(1)})
	require.ErrorIs(t, err, poolmath.ErrUnknownAsset)

	require.ErrorIs(t, p.SetDeviationPercentLimit(new(uint256.Int)), poolmath.ErrInvalidParams)
	params := p.Params()
	require.Equal(t, scaled(1, 17).Dec(), params.DeviationPercentLimit.Dec())
}

// balancedPool holds 1000 A and 1000 B against 2000 shares.
func balancedPool(t *testing.T) *Pool {
	t.Helper()
	p := newTestPool(t)
	deposit(t, p, tokenA, units(1000))
	mint(t, p, tokenA, units(1000))
	deposit(t, p, tokenB, units(1100))
	mint(t, p, tokenB, units(1000))
	return p
}

func TestEstimatesDoNotMutate(t *testing.T) {
	p := balancedPool(t)
	before := p.Snapshot()
	req := model.MintRequest{AssetIn: tokenA, SharesOut: *units(10)}

	m1, err := p.EstimateMint(req, units(1000))
	require.NoError(t, err)
	m2, err := p.EstimateMint(req, units(1000))
	require.NoError(t, err)
	require.Equal(t, m1, m2)

	_, err = p.EstimateBurn(model.BurnRequest{AssetOut: tokenB, SharesIn: *units(1)})
	require.NoError(t, err)
	_, err = p.EstimateSwap(model.SwapRequest{AssetIn: tokenA, AssetOut: tokenB, SharesEquivalent: *units(1)}, units(10))
	require.NoError(t, err)
	_, err = p.EstimateMintAmountIn(tokenA, units(1))
	require.NoError(t, err)
	_, _, err = p.EstimateBurnExactOut(tokenB, units(10))
	require.NoError(t, err)
	_, err = p.EstimateSwapExactIn(tokenA, tokenB, units(10))
	require.NoError(t, err)
	_, err = p.EstimateSwapExactOut(tokenA, tokenB, units(10))
	require.NoError(t, err)

	require.Equal(t, before, p.Snapshot())

	// committing the estimated mint moves A off target, so the next one costs more
	deposit(t, p, tokenA, units(1000))
	got := mint(t, p, tokenA, units(10))
	require.Equal(t, m1, got)

	m3, err := p.EstimateMint(req, units(1000))
	require.NoError(t, err)
	require.True(t, m3.FeeCharged.Gt(&m1.FeeCharged))
}

func TestMintZeroSharesKeepsSupply(t *testing.T) {
	p := newTestPool(t)
	deposit(t, p, tokenA, units(10))
	mint(t, p, tokenA, units(11))

	deposit(t, p, tokenA, units(10))
	_, err := p.Mint(model.MintRequest{AssetIn: tokenA, SharesOut: *units(11), Recipient: alice})
	require.ErrorIs(t, err, poolmath.ErrMintAmountExceeded)
	require.Equal(t, units(10).Dec(), excess(t, p, tokenA))

	supplyBefore := p.TotalSupply()
	assetBefore := asset(t, p, tokenA)
	resp := mint(t, p, tokenA, new(uint256.Int))
	require.True(t, resp.SharesMinted.IsZero())
	require.True(t, resp.FeeCharged.IsZero())
	require.Equal(t, units(10).Dec(), resp.RefundAmount.Dec())

	supplyAfter := p.TotalSupply()
	require.Equal(t, supplyBefore, supplyAfter)
	require.Equal(t, assetBefore, asset(t, p, tokenA))
	require.Equal(t, "0", excess(t, p, tokenA))
	requireSolvent(t, p)
}

func TestSwapZeroSharesRefundsDeposit(t *testing.T) {
	p := ladderPool(t)
	deposit(t, p, tokenA, units(5))
	before := asset(t, p, tokenB)

	resp := swap(t, p, tokenA, tokenB, new(uint256.Int))
	require.True(t, resp.AmountOut.IsZero())
	require.Equal(t, units(5).Dec(), resp.RefundAmount.Dec())
	require.Equal(t, before, asset(t, p, tokenB))
	require.Equal(t, "0", excess(t, p, tokenA))
}

func TestSwapFromZeroPercentAssetFails(t *testing.T) {
	p := ladderPool(t)
	p.UpdatePrice(tokenC, units(10))
	deposit(t, p, tokenC, units(1))
	before := p.Snapshot()

	_, err := p.Swap(model.SwapRequest{AssetIn: tokenC, AssetOut: tokenB, SharesEquivalent: *scaled(1, 17), Recipient: alice})
	require.ErrorIs(t, err, poolmath.ErrZeroPercentAsset)
	_, err = p.EstimateSwapExactIn(tokenC, tokenB, units(1))
	require.ErrorIs(t, err, poolmath.ErrZeroPercentAsset)
	_, err = p.Mint(model.MintRequest{AssetIn: tokenC, SharesOut: *scaled(1, 17)})
	require.ErrorIs(t, err, poolmath.ErrZeroPercentAsset)

	require.Equal(t, before, p.Snapshot())
	require.Equal(t, units(1).Dec(), excess(t, p, tokenC))
}

func TestEstimateMintExactIn(t *testing.T) {
	p := ladderPool(t)

	est, err := p.EstimateMintExactIn(tokenA, units(1000))
	require.NoError(t, err)
	require.False(t, est.SharesMinted.IsZero())

	deposit(t, p, tokenA, units(1000))
	got := mint(t, p, tokenA, &est.SharesMinted)
	require.Equal(t, est, got)
	require.Equal(t, "0", excess(t, p, tokenA))

	// one more share does not fit the same deposit
	deposit(t, p, tokenA, units(1000))
	next, err := p.EstimateMintExactIn(tokenA, units(1000))
	require.NoError(t, err)
	over := new(uint256.Int).AddUint64(&next.SharesMinted, 1)
	_, err = p.Mint(model.MintRequest{AssetIn: tokenA, SharesOut: *over})
	require.ErrorIs(t, err, poolmath.ErrMintAmountExceeded)
}

func TestExactOutBurnPaysAtLeast(t *testing.T) {
	p := ladderPool(t)
	want := units(1000)

	shares, est, err := p.EstimateBurnExactOut(tokenB, want)
	require.NoError(t, err)
	require.False(t, est.AmountOut.Lt(want))

	got := burn(t, p, tokenB, &shares)
	require.Equal(t, est, got)
}

func TestExactOutSwapDeposit(t *testing.T) {
	p := ladderPool(t)
	want := units(1000)

	est, err := p.EstimateSwapExactOut(tokenA, tokenB, want)
	require.NoError(t, err)
	require.False(t, est.AmountOut.Lt(want))

	deposit(t, p, tokenA, &est.AmountIn)
	got := swap(t, p, tokenA, tokenB, &est.SharesEquivalent)
	require.Equal(t, est.AmountOut, got.AmountOut)
	require.Equal(t, "0", excess(t, p, tokenA))
}

func TestWithdrawals(t *testing.T) {
	p := ladderPool(t)
	treasury := common.HexToAddress("0x7000000000000000000000000000000000000007")

	fees := asset(t, p, tokenB).CollectedFees
	heldBefore := p.Held(tokenB)

	w, err := p.WithdrawCollectedFees(tokenB, treasury)
	require.NoError(t, err)
	require.Equal(t, tokenB, w.Asset)
	require.Equal(t, treasury, w.To)
	require.Equal(t, fees, w.Amount)

	b := asset(t, p, tokenB)
	require.True(t, b.CollectedFees.IsZero())
	heldAfter := p.Held(tokenB)
	require.Equal(t, new(uint256.Int).Sub(&heldBefore, &fees).Dec(), heldAfter.Dec())

	again, err := p.WithdrawCollectedFees(tokenB, treasury)
	require.NoError(t, err)
	require.True(t, again.Amount.IsZero())

	w, err = p.WithdrawCollectedCashbacks(tokenA, bob)
	require.NoError(t, err)
	require.True(t, w.Amount.IsZero())

	_, err = p.WithdrawCollectedFees(common.HexToAddress("0xdead"), treasury)
	require.ErrorIs(t, err, poolmath.ErrUnknownAsset)
	requireSolvent(t, p)
}

func TestSnapshotRestore(t *testing.T) {
	p := ladderPool(t)
	deposit(t, p, tokenA, units(5))
	snap := p.Snapshot()
	require.Len(t, snap.Assets, 2)
	require.Equal(t, tokenA.Hex(), snap.Assets[0].Address)

	restored, err := Restore(snap, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, snap, restored.Snapshot())
	require.Equal(t, "5000000000000000000", excess(t, restored, tokenA))

	bad := snap
	bad.Assets = append([]model.AssetState(nil), snap.Assets...)
	bad.Assets[1].Held = "1"
	_, err = Restore(bad, nil)
	require.Error(t, err)

	dup := snap
	dup.Assets = []model.AssetState{snap.Assets[0], snap.Assets[0]}
	_, err = Restore(dup, nil)
	require.Error(t, err)
}
