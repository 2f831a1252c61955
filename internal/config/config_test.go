package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

const testConfig = `
server:
  host: 0.0.0.0
  port: 8090
  write-timeout: 60s
  read-timeout: 60s
  idle-timeout: 60s
  allowed-origins: ["*"]
  log-level: debug
  max-content-length: 4096
  health-check-interval: 300
db:
  db-name: liquid-staking
  address: "mongodb://localhost:27017"
  max-pagination-limit: 10
  max-tx-attempts: 4
queue:
  queue_user: user
  queue_password: password
  url: "localhost:5672"
  processing_timeout: 5
  max_retry_attempts: 3
  send_attempts: 3
  send_retry_delay: 100ms
metrics:
  host: 0.0.0.0
  port: 2112
runtime:
  block-interval: 6s
  maturity-batch-limit: 50
  timeout-sweep-limit: 50
  default-query-timeout: 100
  retry-policy: disabled
  divergence-tolerance: "0.05"
  divergence-alert-threshold: 3
vault:
  fee-account: fee-account
  max-user-unlocking-chunks: 10
  pools:
    - symbol: KSM
      minimum-mint: "100"
      minimum-redeem: "50"
      time-unit: era
      unlock-duration: 28
      ongoing-time-unit: 1000
      mint-fee: "0"
      redeem-fee: "0.001"
staking:
  agents:
    - symbol: KSM
      protocol: relay_staking
      destination: relay
      fee-asset: KSM
      fee-reserve-account: fee-reserve
      sovereign-account: sovereign
      minimum-bond: "1000"
      unbonding-duration: 28
      max-unlocking-chunks: 32
      weight: 4000000000
      default-fee: "10"
      fees:
        bond: "12"
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewConfig(t *testing.T) {
	cfg, err := New(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, RetryDisabled, cfg.Runtime.RetryPolicy)
	assert.Equal(t, "0.050000000000000000", cfg.Runtime.DivergenceToleranceDec.String())

	pool, ok := cfg.Vault.Pool("KSM")
	require.True(t, ok)
	built, err := pool.Build()
	require.NoError(t, err)
	assert.Equal(t, types.NewTimeUnit(types.Era, 28), built.UnlockDuration)
	assert.Equal(t, "0.001000000000000000", built.Fees.Redeem.String())

	agent, ok := cfg.Staking.Agent("KSM")
	require.True(t, ok)
	assert.Equal(t, types.RelayStaking, agent.StakingProtocol())
	assert.Equal(t, "12", agent.FeeFor(types.OpBond).String())
	assert.Equal(t, "10", agent.FeeFor(types.OpUnbond).String())
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("RUNTIME_RETRY__POLICY", "replay")
	cfg, err := New(writeConfig(t, testConfig))
	require.NoError(t, err)
	assert.Equal(t, RetryReplay, cfg.Runtime.RetryPolicy)
}

func TestPoolConfigValidation(t *testing.T) {
	p := PoolConfig{
		Symbol: "KSM", MinimumMint: "1", MinimumRedeem: "1", TimeUnit: "era",
		MintFee: "1.5", RedeemFee: "0",
	}
	_, err := p.Build()
	assert.Error(t, err)

	p.MintFee = "0.01"
	p.TimeUnit = "week"
	_, err = p.Build()
	assert.Error(t, err)

	p.TimeUnit = "round"
	_, err = p.Build()
	assert.NoError(t, err)
}

func TestAgentWithoutPoolIsRejected(t *testing.T) {
	cfg, err := New(writeConfig(t, testConfig))
	require.NoError(t, err)
	cfg.Staking.Agents[0].Symbol = "DOT"
	assert.Error(t, cfg.Validate())
}
