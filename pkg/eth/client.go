package eth

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// Dial connects to an EVM node over http(s) or ws(s).
func Dial(ctx context.Context, rawurl string) (*ethclient.Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", rawurl)
	}
	return ethclient.NewClient(rpcClient), nil
}
