// Package testutil generates random fixtures for tests.
package testutil

import (
	"encoding/hex"

	sdkmath "cosmossdk.io/math"
	"github.com/brianvoe/gofakeit/v7"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

// RandomAccount returns a fresh local account id.
func RandomAccount() string {
	return "acct-" + gofakeit.LetterN(12)
}

// RandomAmount returns an amount in [min, max].
func RandomAmount(min, max int) sdkmath.Int {
	return sdkmath.NewInt(int64(gofakeit.IntRange(min, max)))
}

func randomHex(size int) string {
	b := make([]byte, size)
	for i := range b {
		b[i] = gofakeit.Uint8()
	}
	return hex.EncodeToString(b)
}

func RandomAccount32Delegator() types.Delegator {
	return types.Delegator{Scheme: types.Account32, Value: randomHex(32)}
}

func RandomKey20Delegator() types.Delegator {
	return types.Delegator{Scheme: types.Key20, Value: randomHex(20)}
}

// RandomTargets returns n validator or collator ids.
func RandomTargets(n int) []string {
	targets := make([]string, n)
	for i := range targets {
		targets[i] = "0x" + randomHex(32)
	}
	return targets
}

// PoolConfig returns a zero fee pool config for symbol scheduled in eras,
// currently at era 4 with a one era unlock duration.
func PoolConfig(symbol string) config.PoolConfig {
	return config.PoolConfig{
		Symbol:          symbol,
		MinimumMint:     "1",
		MinimumRedeem:   "1",
		TimeUnit:        string(types.Era),
		UnlockDuration:  1,
		OngoingTimeUnit: 4,
		MintFee:         "0",
		RedeemFee:       "0",
	}
}

func VaultConfig(pools ...config.PoolConfig) *config.VaultConfig {
	return &config.VaultConfig{
		FeeAccount:             "vault-fees",
		MaxUserUnlockingChunks: 8,
		Pools:                  pools,
	}
}

// AgentConfig returns an agent config whose fees are all 1 unit of the staked
// asset.
func AgentConfig(symbol string, protocol types.StakingProtocol) config.AgentConfig {
	return config.AgentConfig{
		Symbol:             symbol,
		Protocol:           string(protocol),
		Destination:        "parachain-" + gofakeit.LetterN(4),
		FeeAsset:           symbol,
		FeeReserveAccount:  "fee-reserve",
		SovereignAccount:   "sovereign",
		MinimumBond:        "10",
		UnbondingDuration:  2,
		MaxUnlockingChunks: 4,
		QueryTimeout:       10,
		Weight:             1_000_000,
		DefaultFee:         "1",
	}
}

func RuntimeConfig() *config.RuntimeConfig {
	return &config.RuntimeConfig{
		MaturityBatchLimit:       100,
		TimeoutSweepLimit:        100,
		DefaultQueryTimeout:      20,
		RetryPolicy:              config.RetryReplay,
		DivergenceTolerance:      "0.05",
		DivergenceAlertThreshold: 2,
		DivergenceToleranceDec:   sdkmath.LegacyNewDecWithPrec(5, 2),
	}
}
