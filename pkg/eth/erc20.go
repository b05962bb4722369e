package eth

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const ERC20ABI = `[
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var (
	erc20ABI = mustParseABI(ERC20ABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ERC20 is a read-only binding to a fungible token contract. Writes go
// through PackTransfer / PackApprove calldata.
type ERC20 struct {
	Address  common.Address
	contract *bind.BoundContract
}

func NewERC20(address common.Address, backend bind.ContractBackend) *ERC20 {
	return &ERC20{
		Address:  address,
		contract: bind.NewBoundContract(address, erc20ABI, backend, backend, backend),
	}
}

// PackTransfer returns calldata for transfer(to, amount).
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("transfer", to, amount)
}

// PackApprove returns calldata for approve(spender, amount).
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}

func (t *ERC20) call(opts *bind.CallOpts, method string, params ...interface{}) (interface{}, error) {
	var out []interface{}
	if err := t.contract.Call(opts, &out, method, params...); err != nil {
		return nil, errors.Wrapf(err, "failed to call %s on %s", method, t.Address.Hex())
	}
	if len(out) == 0 {
		return nil, errors.Errorf("empty %s result from %s", method, t.Address.Hex())
	}
	return out[0], nil
}

func (t *ERC20) BalanceOf(opts *bind.CallOpts, owner common.Address) (*big.Int, error) {
	out, err := t.call(opts, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out, new(*big.Int)).(**big.Int), nil
}

func (t *ERC20) Decimals(opts *bind.CallOpts) (uint8, error) {
	out, err := t.call(opts, "decimals")
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out, new(uint8)).(*uint8), nil
}

func (t *ERC20) Symbol(opts *bind.CallOpts) (string, error) {
	out, err := t.call(opts, "symbol")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out, new(string)).(*string), nil
}

func (t *ERC20) Name(opts *bind.CallOpts) (string, error) {
	out, err := t.call(opts, "name")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out, new(string)).(*string), nil
}
