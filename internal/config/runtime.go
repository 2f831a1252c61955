package config

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

type RetryPolicy string

const (
	// failed or timed out queries are never re-sent
	RetryDisabled RetryPolicy = "disabled"
	// re-send the original operation, same amounts, under a fresh query id
	RetryReplay RetryPolicy = "replay"
)

type RuntimeConfig struct {
	BlockInterval       time.Duration `mapstructure:"block-interval"`
	MaturityBatchLimit  int64         `mapstructure:"maturity-batch-limit"`
	TimeoutSweepLimit   int64         `mapstructure:"timeout-sweep-limit"`
	DefaultQueryTimeout uint64        `mapstructure:"default-query-timeout"`
	RetryPolicy         RetryPolicy   `mapstructure:"retry-policy"`
	// relative divergence between token pool and remote total, e.g. "0.05"
	DivergenceTolerance      string `mapstructure:"divergence-tolerance"`
	DivergenceAlertThreshold uint32 `mapstructure:"divergence-alert-threshold"`

	DivergenceToleranceDec sdkmath.LegacyDec `mapstructure:"-"`
}

func (cfg *RuntimeConfig) Validate() error {
	if cfg.BlockInterval <= 0 {
		return fmt.Errorf("block interval must be positive")
	}

	if cfg.MaturityBatchLimit <= 0 {
		return fmt.Errorf("maturity batch limit must be positive")
	}

	if cfg.TimeoutSweepLimit <= 0 {
		return fmt.Errorf("timeout sweep limit must be positive")
	}

	if cfg.DefaultQueryTimeout == 0 {
		return fmt.Errorf("default query timeout must be positive")
	}

	switch cfg.RetryPolicy {
	case "":
		cfg.RetryPolicy = RetryDisabled
	case RetryDisabled, RetryReplay:
	default:
		return fmt.Errorf("unknown retry policy: %s", cfg.RetryPolicy)
	}

	tolerance, err := sdkmath.LegacyNewDecFromStr(cfg.DivergenceTolerance)
	if err != nil {
		return fmt.Errorf("invalid divergence tolerance: %w", err)
	}
	if tolerance.IsNegative() {
		return fmt.Errorf("divergence tolerance cannot be negative")
	}
	cfg.DivergenceToleranceDec = tolerance

	if cfg.DivergenceAlertThreshold == 0 {
		return fmt.Errorf("divergence alert threshold must be positive")
	}

	return nil
}
