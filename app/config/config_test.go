package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/app/models"
)

const minimal = `
database:
  host: localhost
  port: 5432
  user: custody
secrets:
  api: api-secret
  masterKey: from-file
  salt: salt
ethereum:
  nodeUrl: http://eth
bsc:
  nodeUrl: http://bsc
solana:
  rpcUrl: http://sol
ton:
  liteConfigUrl: http://ton/global.config.json
  apiUrl: http://ton/api/v3
price:
  cmcUrl: http://cmc
  cmcApiKey: key
swap:
  zeroXUrl: http://0x
  jupiterUrl: http://jup
  dedustFactory: EQfactory
reconcile:
  tickDeadline: 90s
signupNetworks: [eth, ton]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("CUSTODY_SECRETS_MASTERKEY", "from-env")

	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, defaultOpsAddr, cfg.OpsAddr)
	assert.Equal(t, defaultMigrationsTable, cfg.Database.MigrationsTable)
	assert.Equal(t, uint16(defaultServiceFeeBps), cfg.Swap.ServiceFeeBps)
	assert.Equal(t, "from-env", cfg.Secrets.MasterKey)
	assert.Equal(t, 90*time.Second, cfg.Reconcile.TickDeadline)

	networks, err := cfg.Networks()
	require.NoError(t, err)
	assert.Equal(t, []models.Network{models.ETH, models.TON}, networks)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"no master key":       "secrets:\n  api: a\n",
		"unknown signup":      strings.Replace(minimal, "[eth, ton]", "[eth, doge]", 1),
		"service fee too big": strings.Replace(minimal, "swap:\n", "swap:\n  serviceFeeBps: 10000\n", 1),
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
