package models

import (
	"github.com/shopspring/decimal"
)

type Referral struct {
	UserID    string          `json:"user_id"`
	InvitedBy string          `json:"invited_by,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
}

func (r *Referral) HasInviter() bool {
	return r != nil && r.InvitedBy != ""
}
