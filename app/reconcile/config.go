package reconcile

import (
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	TransferSpec       string        `mapstructure:"transferSpec"`
	SwapSpec           string        `mapstructure:"swapSpec"`
	ReferralSpec       string        `mapstructure:"referralSpec"`
	Workers            int           `mapstructure:"workers"`
	TickDeadline       time.Duration `mapstructure:"tickDeadline"`
	SwapMaxPending     time.Duration `mapstructure:"swapMaxPending"`
	ReferralStaleAfter time.Duration `mapstructure:"referralStaleAfter"`
	ReferralShare      float64       `mapstructure:"referralShare"`
}

func (c *Config) applyDefaults() {
	if c.TransferSpec == "" {
		c.TransferSpec = "@every 10s"
	}
	if c.SwapSpec == "" {
		c.SwapSpec = "@every 10s"
	}
	if c.ReferralSpec == "" {
		c.ReferralSpec = "@every 30s"
	}
	if c.Workers == 0 {
		c.Workers = 16
	}
	if c.TickDeadline == 0 {
		c.TickDeadline = 2 * time.Minute
	}
	if c.SwapMaxPending == 0 {
		c.SwapMaxPending = 5 * time.Minute
	}
	if c.ReferralStaleAfter == 0 {
		c.ReferralStaleAfter = 24 * time.Hour
	}
	if c.ReferralShare == 0 {
		c.ReferralShare = 0.3
	}
}

func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.New("you must provide a non-negative number of reconcile workers in a config")
	}
	if c.ReferralShare < 0 || c.ReferralShare > 1 {
		return errors.New("you must provide a referral share between 0 and 1 in a config")
	}
	return nil
}
