package types

import (
	sdkmath "cosmossdk.io/math"
)

type Fees struct {
	Mint   sdkmath.LegacyDec `json:"mint"`
	Redeem sdkmath.LegacyDec `json:"redeem"`
}

func (f Fees) Validate() error {
	if err := ValidateRate(f.Mint); err != nil {
		return err
	}
	return ValidateRate(f.Redeem)
}

// Pool is the per-asset vault state. The exchange rate is never stored, it is
// derived from TokenPool and the vToken total issuance when needed.
type Pool struct {
	Asset           Asset       `json:"asset"`
	TokenPool       sdkmath.Int `json:"token_pool"`
	MinimumMint     sdkmath.Int `json:"minimum_mint"`
	MinimumRedeem   sdkmath.Int `json:"minimum_redeem"`
	UnlockDuration  TimeUnit    `json:"unlock_duration"`
	OngoingTimeUnit TimeUnit    `json:"ongoing_time_unit"`
	Fees            Fees        `json:"fees"`

	// reconciliation bookkeeping, never used to rewrite TokenPool
	RemoteTotal      sdkmath.Int `json:"remote_total"`
	DivergenceStreak uint32      `json:"divergence_streak"`
	LastReconciledAt uint64      `json:"last_reconciled_at"`
}

// ExchangeRate returns token per vToken. With no issuance the seed ratio 1 is
// returned.
func (p Pool) ExchangeRate(vtokenIssuance sdkmath.Int) sdkmath.LegacyDec {
	if vtokenIssuance.IsZero() || p.TokenPool.IsZero() {
		return sdkmath.LegacyOneDec()
	}
	return p.TokenPool.ToLegacyDec().Quo(vtokenIssuance.ToLegacyDec())
}

type UnlockingRecord struct {
	ID          uint64      `json:"id"`
	Owner       string      `json:"owner"`
	Asset       Asset       `json:"asset"`
	TokenAmount sdkmath.Int `json:"token_amount"`
	UnlockAt    TimeUnit    `json:"unlock_at"`
	CreatedAt   uint64      `json:"created_at"`
	// fee records are paid to the vault fee account
	IsFee bool `json:"is_fee"`
}
