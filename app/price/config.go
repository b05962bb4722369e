package price

import (
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	CMCURL    string        `mapstructure:"cmcUrl"`
	CMCAPIKey string        `mapstructure:"cmcApiKey"`
	RPS       float64       `mapstructure:"rps"`
	PriceTTL  time.Duration `mapstructure:"priceTtl"`
	MetaTTL   time.Duration `mapstructure:"metaTtl"`
	RedisAddr string        `mapstructure:"redisAddr"` // empty disables the shared cache
}

func (c *Config) Validate() error {
	if c.CMCURL == "" {
		return errors.New("you must provide a coinmarketcap api url in a config")
	}
	if c.CMCAPIKey == "" {
		return errors.New("you must provide a coinmarketcap api key in a config")
	}
	return nil
}
