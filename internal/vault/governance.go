package vault

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

func (v *Vault) SetMinimumMint(ctx context.Context, asset types.Asset, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "minimum mint cannot be negative")
	}
	return v.updatePool(ctx, asset, "minimum_mint", amount.String(), func(p *types.Pool) error {
		p.MinimumMint = amount
		return nil
	})
}

func (v *Vault) SetMinimumRedeem(ctx context.Context, asset types.Asset, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "minimum redeem cannot be negative")
	}
	return v.updatePool(ctx, asset, "minimum_redeem", amount.String(), func(p *types.Pool) error {
		p.MinimumRedeem = amount
		return nil
	})
}

// SetUnlockDuration only accepts a duration of the kind the pool already
// schedules in. Existing records keep their unlock time.
func (v *Vault) SetUnlockDuration(ctx context.Context, asset types.Asset, duration types.TimeUnit) error {
	if err := duration.Validate(); err != nil {
		return err
	}
	return v.updatePool(ctx, asset, "unlock_duration", duration.String(), func(p *types.Pool) error {
		if p.UnlockDuration.Kind != duration.Kind {
			return errorsmod.Wrapf(types.ErrMixedTimeUnit, "pool schedules in %s", p.UnlockDuration.Kind)
		}
		p.UnlockDuration = duration
		return nil
	})
}

func (v *Vault) SetFees(ctx context.Context, asset types.Asset, fees types.Fees) error {
	if err := fees.Validate(); err != nil {
		return err
	}
	value := "mint=" + fees.Mint.String() + ",redeem=" + fees.Redeem.String()
	return v.updatePool(ctx, asset, "fees", value, func(p *types.Pool) error {
		p.Fees = fees
		return nil
	})
}

// RecordReconciliation stores the outcome of a remote reconciliation on the
// pool. TokenPool is left untouched.
func (v *Vault) RecordReconciliation(
	ctx context.Context, asset types.Asset, remoteTotal sdkmath.Int, streak uint32, height uint64,
) error {
	pool, err := v.Pool(ctx, asset)
	if err != nil {
		return err
	}
	pool.RemoteTotal = remoteTotal
	pool.DivergenceStreak = streak
	pool.LastReconciledAt = height
	return v.db.SavePool(ctx, *pool)
}

func (v *Vault) updatePool(
	ctx context.Context, asset types.Asset, field, value string, apply func(p *types.Pool) error,
) error {
	pool, err := v.Pool(ctx, asset)
	if err != nil {
		return err
	}
	if err := apply(pool); err != nil {
		return err
	}
	if err := v.db.SavePool(ctx, *pool); err != nil {
		return err
	}
	height, err := v.clock.Now(ctx)
	if err != nil {
		return err
	}
	events.Emit(ctx, types.NewPoolConfigUpdatedEvent(height, asset, field, value))
	return nil
}
