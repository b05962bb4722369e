package models

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPoolNotReady        = errors.New("liquidity pool is not ready")
	ErrVaultNotReady       = errors.New("vault is not ready")
	ErrConfirmationTimeout = errors.New("transaction was not confirmed in time")
	ErrReferralStale       = errors.New("referral commission window has passed")
	ErrReferralMissing     = errors.New("no inviter to credit")
	ErrWalletNotDeletable  = errors.New("wallet cannot be deleted")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTokenNotFound       = errors.New("token not found")
	ErrTokenExists         = errors.New("token already added")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidSecret       = errors.New("invalid mnemonic or private key")
	ErrInvalidAddress      = errors.New("invalid address")
)

// AdapterError is a failed call to a chain node or an upstream API. It is
// retryable: the caller may try the same operation again later.
type AdapterError struct {
	Network Network
	Op      string
	Err     error
}

func NewAdapterError(network Network, op string, err error) *AdapterError {
	return &AdapterError{Network: network, Op: op, Err: err}
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Network, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err came from an upstream that may recover.
func IsRetryable(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}
