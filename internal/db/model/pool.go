package model

import (
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type PoolDocument struct {
	Asset            string         `bson:"_id"` // Primary key
	TokenPool        string         `bson:"token_pool"`
	MinimumMint      string         `bson:"minimum_mint"`
	MinimumRedeem    string         `bson:"minimum_redeem"`
	UnlockDuration   types.TimeUnit `bson:"unlock_duration"`
	OngoingTimeUnit  types.TimeUnit `bson:"ongoing_time_unit"`
	MintFee          string         `bson:"mint_fee"`
	RedeemFee        string         `bson:"redeem_fee"`
	RemoteTotal      string         `bson:"remote_total"`
	DivergenceStreak uint32         `bson:"divergence_streak"`
	LastReconciledAt uint64         `bson:"last_reconciled_at"`
}

func NewPoolDocument(p types.Pool) *PoolDocument {
	return &PoolDocument{
		Asset:            p.Asset.String(),
		TokenPool:        intToString(p.TokenPool),
		MinimumMint:      intToString(p.MinimumMint),
		MinimumRedeem:    intToString(p.MinimumRedeem),
		UnlockDuration:   p.UnlockDuration,
		OngoingTimeUnit:  p.OngoingTimeUnit,
		MintFee:          decToString(p.Fees.Mint),
		RedeemFee:        decToString(p.Fees.Redeem),
		RemoteTotal:      intToString(p.RemoteTotal),
		DivergenceStreak: p.DivergenceStreak,
		LastReconciledAt: p.LastReconciledAt,
	}
}

func (d *PoolDocument) ToPool() (*types.Pool, error) {
	p := types.Pool{
		Asset:            types.Asset(d.Asset),
		UnlockDuration:   d.UnlockDuration,
		OngoingTimeUnit:  d.OngoingTimeUnit,
		DivergenceStreak: d.DivergenceStreak,
		LastReconciledAt: d.LastReconciledAt,
	}
	var err error
	if p.TokenPool, err = intFromString("token_pool", d.TokenPool); err != nil {
		return nil, err
	}
	if p.MinimumMint, err = intFromString("minimum_mint", d.MinimumMint); err != nil {
		return nil, err
	}
	if p.MinimumRedeem, err = intFromString("minimum_redeem", d.MinimumRedeem); err != nil {
		return nil, err
	}
	if p.RemoteTotal, err = intFromString("remote_total", d.RemoteTotal); err != nil {
		return nil, err
	}
	if p.Fees.Mint, err = decFromString("mint_fee", d.MintFee); err != nil {
		return nil, err
	}
	if p.Fees.Redeem, err = decFromString("redeem_fee", d.RedeemFee); err != nil {
		return nil, err
	}
	return &p, nil
}
