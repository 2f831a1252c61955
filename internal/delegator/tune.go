package delegator

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/observability/metrics"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type TuneResult struct {
	Asset       types.Asset       `json:"asset"`
	TokenPool   sdkmath.Int       `json:"token_pool"`
	RemoteTotal sdkmath.Int       `json:"remote_total"`
	Divergence  sdkmath.LegacyDec `json:"divergence"`
	Streak      uint32            `json:"streak"`
	Alerted     bool              `json:"alerted"`
}

// Divergence returns |pool - remote| / pool. An empty pool diverges fully from
// any non zero remote total.
func Divergence(pool, remote sdkmath.Int) sdkmath.LegacyDec {
	if pool.IsZero() {
		if remote.IsZero() {
			return sdkmath.LegacyZeroDec()
		}
		return sdkmath.LegacyOneDec()
	}
	return pool.Sub(remote).Abs().ToLegacyDec().Quo(pool.ToLegacyDec())
}

// TuneExchangeRateFromRemote compares a confirmed remote total with the pool.
// Consecutive reports beyond tolerance raise an alert once the streak reaches
// the configured threshold. The pool's token amount is never rewritten here.
func (s *Store) TuneExchangeRateFromRemote(
	ctx context.Context, asset types.Asset, remoteTotal sdkmath.Int,
) (*TuneResult, error) {
	if err := types.ValidateAmount("remote total", remoteTotal); err != nil {
		return nil, err
	}
	pool, err := s.vault.Pool(ctx, asset)
	if err != nil {
		return nil, err
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, err
	}

	divergence := Divergence(pool.TokenPool, remoteTotal)
	streak := uint32(0)
	if divergence.GT(s.runtime.DivergenceToleranceDec) {
		streak = pool.DivergenceStreak + 1
	}
	if err := s.vault.RecordReconciliation(ctx, asset, remoteTotal, streak, now); err != nil {
		return nil, err
	}
	ratio, _ := divergence.Float64()
	metrics.RecordExchangeRateDivergence(asset.String(), ratio)

	res := &TuneResult{
		Asset:       asset,
		TokenPool:   pool.TokenPool,
		RemoteTotal: remoteTotal,
		Divergence:  divergence,
		Streak:      streak,
	}
	if streak >= s.runtime.DivergenceAlertThreshold {
		res.Alerted = true
		log.Ctx(ctx).Warn().Str("asset", asset.String()).Str("tokenPool", pool.TokenPool.String()).
			Str("remoteTotal", remoteTotal.String()).Str("divergence", divergence.String()).
			Uint32("streak", streak).Msg("exchange rate diverges from remote stake")
		events.Emit(ctx, types.NewExchangeRateDivergenceEvent(
			now, asset, pool.TokenPool, remoteTotal, divergence, streak,
		))
	}
	return res, nil
}

// ReconcileFromLedgers tunes the pool against the sum of every delegator's
// confirmed total.
func (s *Store) ReconcileFromLedgers(ctx context.Context, asset types.Asset) (*TuneResult, error) {
	ledgers, err := s.List(ctx, asset)
	if err != nil {
		return nil, err
	}
	total := sdkmath.ZeroInt()
	for _, l := range ledgers {
		if l.Dirty {
			log.Ctx(ctx).Warn().Str("asset", asset.String()).Str("delegator", l.Delegator.Key()).
				Msg("reconciling with a dirty delegator ledger")
		}
		sum, err := types.CheckedAdd(total, l.Total)
		if err != nil {
			return nil, errorsmod.Wrapf(err, "summing ledger of %s", l.Delegator.Key())
		}
		total = sum
	}
	return s.TuneExchangeRateFromRemote(ctx, asset, total)
}
