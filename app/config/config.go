package config

import (
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"custody/app/models"
	"custody/app/network/cellchain"
	"custody/app/network/evm"
	"custody/app/network/fastchain"
	"custody/app/price"
	"custody/app/reconcile"
	"custody/app/storage/database"
	"custody/app/swap"
	"custody/pkg/log"
)

const (
	defaultConfigPath = "./configs/config.yaml"
	envPrefix         = "CUSTODY"

	defaultOpsAddr         = ":8000"
	defaultMigrationsTable = "custody_schema_migrations"
	defaultServiceFeeBps   = 100
)

type Secrets struct {
	API       string `mapstructure:"api"`       // signs websocket subscriptions
	MasterKey string `mapstructure:"masterKey"` // seals wallet secrets at rest
	Salt      string `mapstructure:"salt"`
}

func (s *Secrets) Validate() error {
	if s.API == "" {
		return errors.New("you must provide an api secret in a config")
	}
	if s.MasterKey == "" || s.Salt == "" {
		return errors.New("you must provide a master key and a salt in a config")
	}
	return nil
}

type Config struct {
	OpsAddr        string           `mapstructure:"opsAddr"`
	Logging        log.Config       `mapstructure:"log"`
	Database       database.Config  `mapstructure:"database"`
	Secrets        Secrets          `mapstructure:"secrets"`
	Ethereum       evm.Config       `mapstructure:"ethereum"`
	BSC            evm.Config       `mapstructure:"bsc"`
	Solana         fastchain.Config `mapstructure:"solana"`
	TON            cellchain.Config `mapstructure:"ton"`
	Price          price.Config     `mapstructure:"price"`
	Swap           swap.Config      `mapstructure:"swap"`
	Reconcile      reconcile.Config `mapstructure:"reconcile"`
	SignupNetworks []string         `mapstructure:"signupNetworks"`
}

// Networks parses the sign-up networks.
func (c *Config) Networks() ([]models.Network, error) {
	result := make([]models.Network, 0, len(c.SignupNetworks))
	for _, s := range c.SignupNetworks {
		n, err := models.ParseNetwork(s)
		if err != nil {
			return nil, errors.WithMessage(err, "bad sign-up network in a config")
		}
		result = append(result, n)
	}
	return result, nil
}

func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.Database,
		&c.Secrets,
		&c.Ethereum,
		&c.BSC,
		&c.Solana,
		&c.TON,
		&c.Price,
		&c.Swap,
		&c.Reconcile,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	_, err := c.Networks()
	return err
}

func Parse() (*Config, error) {
	configPath := flag.String("config", defaultConfigPath, "configuration file path")
	flag.Parse()

	return Load(*configPath)
}

// Load reads the file at path. Environment variables prefixed with CUSTODY_
// override file values, e.g. CUSTODY_SECRETS_MASTERKEY; a .env file in the
// working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	v := viper.New()

	// set reasonable defaults
	v.SetDefault("opsAddr", defaultOpsAddr)
	v.SetDefault("database.migrationsTable", defaultMigrationsTable)
	v.SetDefault("swap.serviceFeeBps", defaultServiceFeeBps)
	v.SetDefault("signupNetworks", []string{"ETH", "BSC", "SOL", "TON"})

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// read a config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read a file")
	}

	// unmarshal to a config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal a config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
