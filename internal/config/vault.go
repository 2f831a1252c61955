package config

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type VaultConfig struct {
	FeeAccount             string       `mapstructure:"fee-account"`
	MaxUserUnlockingChunks int64        `mapstructure:"max-user-unlocking-chunks"`
	Pools                  []PoolConfig `mapstructure:"pools"`
}

type PoolConfig struct {
	Symbol          string `mapstructure:"symbol"`
	MinimumMint     string `mapstructure:"minimum-mint"`
	MinimumRedeem   string `mapstructure:"minimum-redeem"`
	TimeUnit        string `mapstructure:"time-unit"`
	UnlockDuration  uint32 `mapstructure:"unlock-duration"`
	OngoingTimeUnit uint32 `mapstructure:"ongoing-time-unit"`
	MintFee         string `mapstructure:"mint-fee"`
	RedeemFee       string `mapstructure:"redeem-fee"`
}

func (cfg *VaultConfig) Validate() error {
	if cfg.FeeAccount == "" {
		return fmt.Errorf("missing vault fee account")
	}

	if cfg.MaxUserUnlockingChunks <= 0 {
		return fmt.Errorf("max user unlocking chunks must be positive")
	}

	if len(cfg.Pools) == 0 {
		return fmt.Errorf("at least one vault pool must be configured")
	}

	seen := make(map[string]struct{}, len(cfg.Pools))
	for _, p := range cfg.Pools {
		if _, ok := seen[p.Symbol]; ok {
			return fmt.Errorf("duplicated vault pool: %s", p.Symbol)
		}
		seen[p.Symbol] = struct{}{}
		if _, err := p.Build(); err != nil {
			return fmt.Errorf("invalid vault pool %s: %w", p.Symbol, err)
		}
	}

	return nil
}

func (cfg *VaultConfig) Pool(symbol string) (PoolConfig, bool) {
	for _, p := range cfg.Pools {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return PoolConfig{}, false
}

// Build returns the initial pool state described by the config.
func (p PoolConfig) Build() (types.Pool, error) {
	asset := types.Asset(p.Symbol)
	if err := asset.Validate(); err != nil {
		return types.Pool{}, err
	}
	if asset.IsVToken() {
		return types.Pool{}, fmt.Errorf("pool asset cannot be a vtoken: %s", p.Symbol)
	}
	kind := types.TimeUnitKind(p.TimeUnit)
	if err := kind.Validate(); err != nil {
		return types.Pool{}, err
	}
	minMint, err := types.ParseAmount(p.MinimumMint)
	if err != nil {
		return types.Pool{}, err
	}
	minRedeem, err := types.ParseAmount(p.MinimumRedeem)
	if err != nil {
		return types.Pool{}, err
	}
	mintFee, err := types.ParseRate(p.MintFee)
	if err != nil {
		return types.Pool{}, err
	}
	redeemFee, err := types.ParseRate(p.RedeemFee)
	if err != nil {
		return types.Pool{}, err
	}

	return types.Pool{
		Asset:           asset,
		TokenPool:       sdkmath.ZeroInt(),
		MinimumMint:     minMint,
		MinimumRedeem:   minRedeem,
		UnlockDuration:  types.NewTimeUnit(kind, p.UnlockDuration),
		OngoingTimeUnit: types.NewTimeUnit(kind, p.OngoingTimeUnit),
		Fees:            types.Fees{Mint: mintFee, Redeem: redeemFee},
		RemoteTotal:     sdkmath.ZeroInt(),
	}, nil
}
