// Package cellchain swaps on TON through DeDust volatile pools.
package cellchain

import (
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"custody/app/models"
	tonnet "custody/app/network/cellchain"
	"custody/app/swap"
	"custody/pkg/log"
	"custody/pkg/units"
)

const (
	opNativeSwap = 0xea06185d
	opJettonSwap = 0xe3a0d482

	poolTypeVolatile = 0
	swapDeadline     = 5 * time.Minute
)

var (
	nativeSwapGas    = tlb.MustFromTON("0.25")
	jettonSwapValue  = tlb.MustFromTON("0.3")
	jettonForwardGas = tlb.MustFromTON("0.25")
	nativeSwapFee    = decimal.RequireFromString("0.25")
	jettonSwapFee    = decimal.RequireFromString("0.3")
)

type Chain interface {
	NextID() uint64
	Send(ctx context.Context, keys *models.KeyMaterial, messages ...*tonnet.Outgoing) error
	RunGetMethod(ctx context.Context, addr *address.Address, method string, params ...interface{}) ([]interface{}, error)
	JettonWallet(ctx context.Context, master, owner string) (*address.Address, error)
	Account(ctx context.Context, addr string) (*tonnet.Account, error)
}

type Router struct {
	chain    Chain
	factory  *address.Address
	referral *address.Address
	now      func() time.Time
}

func NewRouter(cfg swap.Config, chain Chain) (*Router, error) {
	factory, err := address.ParseAddr(cfg.DedustFactory)
	if err != nil {
		return nil, errors.Wrap(err, "invalid dedust factory address")
	}
	r := &Router{chain: chain, factory: factory, now: time.Now}
	if cfg.DedustReferral != "" {
		if r.referral, err = address.ParseAddr(cfg.DedustReferral); err != nil {
			return nil, errors.Wrap(err, "invalid dedust referral address")
		}
	}
	return r, nil
}

func (r *Router) Network() models.Network {
	return models.TON
}

func (r *Router) EstimateFee(_ context.Context, order *models.SwapOrder) (decimal.Decimal, error) {
	if order.From.IsNative() {
		return nativeSwapFee, nil
	}
	return jettonSwapFee, nil
}

// asset is the DeDust Asset cell: native$0000 or jetton$0001 workchain:int8 address:uint256.
func asset(t models.SwapToken) (*cell.Cell, error) {
	if t.IsNative() {
		return cell.BeginCell().MustStoreUInt(0, 4).EndCell(), nil
	}
	master, err := address.ParseAddr(t.Contract)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidAddress, "%s is not a jetton master", t.Contract)
	}
	return cell.BeginCell().
		MustStoreUInt(1, 4).
		MustStoreInt(int64(master.Workchain()), 8).
		MustStoreSlice(master.Data(), 256).
		EndCell(), nil
}

type route struct {
	pool  *address.Address
	vault *address.Address
	out   *big.Int
	limit *big.Int
}

// prepare resolves the pool and the vault of the sold asset and fails before
// anything is sent when either is not deployed yet.
func (r *Router) prepare(ctx context.Context, order *models.SwapOrder) (*route, error) {
	from, err := asset(order.From)
	if err != nil {
		return nil, err
	}
	to, err := asset(order.To)
	if err != nil {
		return nil, err
	}

	res, err := r.chain.RunGetMethod(ctx, r.factory, "get_pool_address", poolTypeVolatile, from.BeginParse(), to.BeginParse())
	if err != nil {
		return nil, models.NewAdapterError(models.TON, "get_pool_address", err)
	}
	pool, err := addrAt(res, 0)
	if err != nil {
		return nil, err
	}
	if err = r.checkPool(ctx, pool); err != nil {
		return nil, err
	}

	res, err = r.chain.RunGetMethod(ctx, r.factory, "get_vault_address", from.BeginParse())
	if err != nil {
		return nil, models.NewAdapterError(models.TON, "get_vault_address", err)
	}
	vault, err := addrAt(res, 0)
	if err != nil {
		return nil, err
	}
	account, err := r.chain.Account(ctx, vault.String())
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, errors.Wrapf(models.ErrVaultNotReady, "vault %s is %s", vault.String(), account.Status)
	}

	amount := units.ToBase(order.Amount, order.From.Decimals)
	res, err = r.chain.RunGetMethod(ctx, pool, "estimate_swap_out", from.BeginParse(), amount)
	if err != nil {
		return nil, models.NewAdapterError(models.TON, "estimate_swap_out", err)
	}
	out, err := intAt(res, 1)
	if err != nil {
		return nil, err
	}
	if out.Sign() <= 0 {
		return nil, errors.Wrap(models.ErrPoolNotReady, "pool returns nothing for the amount")
	}

	limit := swap.MinOut(decimal.NewFromBigInt(out, 0), order.SlippageBps).BigInt()
	return &route{pool: pool, vault: vault, out: out, limit: limit}, nil
}

func (r *Router) checkPool(ctx context.Context, pool *address.Address) error {
	account, err := r.chain.Account(ctx, pool.String())
	if err != nil {
		return err
	}
	if !account.IsActive() {
		return errors.Wrapf(models.ErrPoolNotReady, "pool %s is %s", pool.String(), account.Status)
	}

	res, err := r.chain.RunGetMethod(ctx, pool, "get_reserves")
	if err != nil {
		return models.NewAdapterError(models.TON, "get_reserves", err)
	}
	for i := 0; i < 2; i++ {
		reserve, err := intAt(res, i)
		if err != nil {
			return err
		}
		if reserve.Sign() <= 0 {
			return errors.Wrapf(models.ErrPoolNotReady, "pool %s has no liquidity", pool.String())
		}
	}
	return nil
}

func (r *Router) Swap(ctx context.Context, order *models.SwapOrder) (*models.SwapResult, error) {
	owner, err := address.ParseAddr(order.Keys.Address)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidAddress, "%s is not a ton address", order.Keys.Address)
	}

	rt, err := r.prepare(ctx, order)
	if err != nil {
		return nil, err
	}

	amount := units.ToBase(order.Amount, order.From.Decimals)
	ref := models.CorrelationRef{ID: r.chain.NextID(), Jetton: !order.From.IsNative()}
	params := r.swapParams(owner)

	var msg *tonnet.Outgoing
	fee := nativeSwapFee
	if order.From.IsNative() {
		body := cell.BeginCell().
			MustStoreUInt(opNativeSwap, 32).
			MustStoreUInt(ref.ID, 64).
			MustStoreBigCoins(amount).
			MustStoreBuilder(swapStep(rt.pool, rt.limit)).
			MustStoreRef(params).
			EndCell()
		msg = &tonnet.Outgoing{
			To:     rt.vault,
			Amount: tlb.FromNanoTON(new(big.Int).Add(amount, nativeSwapGas.Nano())),
			Body:   body,
			Bounce: true,
		}
	} else {
		jettonWallet, err := r.chain.JettonWallet(ctx, order.From.Contract, order.Keys.Address)
		if err != nil {
			return nil, err
		}
		payload := cell.BeginCell().
			MustStoreUInt(opJettonSwap, 32).
			MustStoreBuilder(swapStep(rt.pool, rt.limit)).
			MustStoreRef(params).
			EndCell()
		msg = &tonnet.Outgoing{
			To:     jettonWallet,
			Amount: jettonSwapValue,
			Body:   tonnet.JettonTransferBody(ref.ID, amount, rt.vault, owner, jettonForwardGas, payload),
			Bounce: true,
		}
		fee = jettonSwapFee
	}

	if err = r.chain.Send(ctx, order.Keys, msg); err != nil {
		return nil, err
	}

	log.Infow("swap sent", "network", models.TON, "ref", ref.String(), "pool", rt.pool.String(),
		"amount", amount.String(), "limit", rt.limit.String())
	return &models.SwapResult{
		Hash:       ref.String(),
		FromAmount: order.Amount,
		ToAmount:   units.ToDecimal(rt.out, order.To.Decimals),
		Fee:        fee,
	}, nil
}

// swapStep is pool_addr, kind given_in, limit and no next step.
func swapStep(pool *address.Address, limit *big.Int) *cell.Builder {
	return cell.BeginCell().
		MustStoreAddr(pool).
		MustStoreUInt(0, 1).
		MustStoreBigCoins(limit).
		MustStoreMaybeRef(nil)
}

func (r *Router) swapParams(recipient *address.Address) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(r.now().Add(swapDeadline).Unix()), 32).
		MustStoreAddr(recipient).
		MustStoreAddr(r.referral).
		MustStoreMaybeRef(nil).
		MustStoreMaybeRef(nil).
		EndCell()
}

func addrAt(stack []interface{}, i int) (*address.Address, error) {
	if len(stack) <= i {
		return nil, errors.Errorf("get-method returned %d values, want more than %d", len(stack), i)
	}
	s, ok := stack[i].(*cell.Slice)
	if !ok {
		return nil, errors.Errorf("get-method value %d is %T, not a slice", i, stack[i])
	}
	addr, err := s.LoadAddr()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load address from get-method result")
	}
	return addr, nil
}

func intAt(stack []interface{}, i int) (*big.Int, error) {
	if len(stack) <= i {
		return nil, errors.Errorf("get-method returned %d values, want more than %d", len(stack), i)
	}
	v, ok := stack[i].(*big.Int)
	if !ok {
		return nil, errors.Errorf("get-method value %d is %T, not an integer", i, stack[i])
	}
	return v, nil
}
