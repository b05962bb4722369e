package cellchain

import (
	"context"

	"github.com/pkg/errors"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Outgoing is one internal message sent from a custody wallet.
type Outgoing struct {
	To     *address.Address
	Amount tlb.Coins
	Body   *cell.Cell
	Bounce bool
}

// Chain is the part of a TON node the adapter and the DeDust router need:
// sending signed wallet messages and running get-methods.
type Chain interface {
	Send(ctx context.Context, words []string, messages ...*Outgoing) error
	RunGetMethod(ctx context.Context, addr *address.Address, method string, params ...interface{}) ([]interface{}, error)
}

// Lite implements Chain over a liteserver connection pool.
type Lite struct {
	api ton.APIClientWrapped
}

func NewLite(api ton.APIClientWrapped) *Lite {
	return &Lite{api: api}
}

// DialLite connects to every liteserver listed in the global config at configURL.
func DialLite(ctx context.Context, configURL string) (*Lite, error) {
	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
		return nil, errors.Wrap(err, "failed to connect to liteservers")
	}
	return NewLite(ton.NewAPIClient(pool).WithRetry()), nil
}

func (l *Lite) Send(ctx context.Context, words []string, messages ...*Outgoing) error {
	w, err := openWallet(l.api, words)
	if err != nil {
		return err
	}

	msgs := make([]*wallet.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, &wallet.Message{
			Mode: wallet.PayGasSeparately + wallet.IgnoreErrors,
			InternalMessage: &tlb.InternalMessage{
				IHRDisabled: true,
				Bounce:      m.Bounce,
				DstAddr:     m.To,
				Amount:      m.Amount,
				Body:        m.Body,
			},
		})
	}

	if err = w.SendMany(ctx, msgs); err != nil {
		return errors.Wrap(err, "failed to send wallet message")
	}
	return nil
}

func (l *Lite) RunGetMethod(ctx context.Context, addr *address.Address, method string, params ...interface{}) (
	[]interface{}, error) {
	block, err := l.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get masterchain info")
	}

	res, err := l.api.RunGetMethod(ctx, block, addr, method, params...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to run %s on %s", method, addr.String())
	}
	return res.AsTuple(), nil
}
