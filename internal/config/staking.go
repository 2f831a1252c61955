package config

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type StakingConfig struct {
	Agents []AgentConfig `mapstructure:"agents"`
}

type AgentConfig struct {
	Symbol             string `mapstructure:"symbol"`
	Protocol           string `mapstructure:"protocol"`
	Destination        string `mapstructure:"destination"`
	FeeAsset           string `mapstructure:"fee-asset"`
	FeeReserveAccount  string `mapstructure:"fee-reserve-account"`
	SovereignAccount   string `mapstructure:"sovereign-account"`
	MinimumBond        string `mapstructure:"minimum-bond"`
	UnbondingDuration  uint32 `mapstructure:"unbonding-duration"`
	MaxUnlockingChunks int    `mapstructure:"max-unlocking-chunks"`
	// blocks, 0 falls back to runtime.default-query-timeout
	QueryTimeout uint64 `mapstructure:"query-timeout"`
	Weight       uint64 `mapstructure:"weight"`
	// wrapped asset for protocols staking through an intermediate token
	WrappedAsset string `mapstructure:"wrapped-asset"`
	DefaultFee   string `mapstructure:"default-fee"`
	// per operation fee overrides keyed by operation name
	Fees map[string]string `mapstructure:"fees"`
}

func (cfg *StakingConfig) Validate() error {
	seen := make(map[string]struct{}, len(cfg.Agents))
	for _, a := range cfg.Agents {
		if _, ok := seen[a.Symbol]; ok {
			return fmt.Errorf("duplicated staking agent: %s", a.Symbol)
		}
		seen[a.Symbol] = struct{}{}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("invalid staking agent %s: %w", a.Symbol, err)
		}
	}
	return nil
}

func (cfg *StakingConfig) Agent(symbol string) (AgentConfig, bool) {
	for _, a := range cfg.Agents {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return AgentConfig{}, false
}

func (a AgentConfig) Validate() error {
	if err := types.Asset(a.Symbol).Validate(); err != nil {
		return err
	}
	if _, err := types.StakingProtocolFromString(a.Protocol); err != nil {
		return err
	}
	if a.Destination == "" {
		return fmt.Errorf("missing destination")
	}
	if err := types.Asset(a.FeeAsset).Validate(); err != nil {
		return fmt.Errorf("invalid fee asset: %w", err)
	}
	if a.FeeReserveAccount == "" {
		return fmt.Errorf("missing fee reserve account")
	}
	if a.SovereignAccount == "" {
		return fmt.Errorf("missing sovereign account")
	}
	if _, err := types.ParseAmount(a.MinimumBond); err != nil {
		return fmt.Errorf("invalid minimum bond: %w", err)
	}
	if a.MaxUnlockingChunks <= 0 {
		return fmt.Errorf("max unlocking chunks must be positive")
	}
	if a.Weight == 0 {
		return fmt.Errorf("weight must be positive")
	}
	if a.WrappedAsset != "" {
		if err := types.Asset(a.WrappedAsset).Validate(); err != nil {
			return fmt.Errorf("invalid wrapped asset: %w", err)
		}
	}
	if _, err := types.ParseAmount(a.DefaultFee); err != nil {
		return fmt.Errorf("invalid default fee: %w", err)
	}
	for op, fee := range a.Fees {
		if _, ok := types.OperationKindFromString(op); !ok {
			return fmt.Errorf("unknown operation in fee table: %s", op)
		}
		if _, err := types.ParseAmount(fee); err != nil {
			return fmt.Errorf("invalid fee for %s: %w", op, err)
		}
	}
	return nil
}

func (a AgentConfig) StakingProtocol() types.StakingProtocol {
	return types.StakingProtocol(a.Protocol)
}

// FeeFor returns the fee-reserve debit for an operation. Amounts are validated
// at load time.
func (a AgentConfig) FeeFor(op types.OperationKind) sdkmath.Int {
	if fee, ok := a.Fees[string(op)]; ok {
		v, _ := types.ParseAmount(fee)
		return v
	}
	v, _ := types.ParseAmount(a.DefaultFee)
	return v
}

func (a AgentConfig) MinimumBondAmount() sdkmath.Int {
	v, _ := types.ParseAmount(a.MinimumBond)
	return v
}
