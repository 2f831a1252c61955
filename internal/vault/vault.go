// Package vault keeps the per-asset token pools, the vToken exchange rate and
// the time-locked unlocking queue. Every method expects to run inside an
// atomic transition opened by the caller.
package vault

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/clock"
	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/ledger"
	"github.com/vtokenlabs/liquid-staking-service/internal/observability/metrics"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type Vault struct {
	db     db.DBClient
	ledger *ledger.Ledger
	clock  *clock.Clock
	cfg    *config.VaultConfig
}

func New(dbClient db.DBClient, l *ledger.Ledger, c *clock.Clock, cfg *config.VaultConfig) *Vault {
	return &Vault{
		db:     dbClient,
		ledger: l,
		clock:  c,
		cfg:    cfg,
	}
}

// EnsurePools registers every configured pool that does not exist yet.
// Existing pools keep their stored state.
func (v *Vault) EnsurePools(ctx context.Context) error {
	for _, p := range v.cfg.Pools {
		pool, err := p.Build()
		if err != nil {
			return err
		}
		err = v.db.InsertPool(ctx, pool)
		if err != nil {
			if db.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}
		log.Ctx(ctx).Info().Str("asset", pool.Asset.String()).Msg("registered vault pool")
	}
	return nil
}

func (v *Vault) Pool(ctx context.Context, asset types.Asset) (*types.Pool, error) {
	pool, err := v.db.FindPool(ctx, asset)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, errorsmod.Wrapf(types.ErrPoolNotFound, "%s", asset)
		}
		return nil, err
	}
	return pool, nil
}

func (v *Vault) Pools(ctx context.Context) ([]types.Pool, error) {
	return v.db.FindPools(ctx)
}

// ExchangeRate returns the token value of one vToken, derived from the pool and
// the vToken issuance at the time of the call.
func (v *Vault) ExchangeRate(ctx context.Context, pool types.Pool) (sdkmath.LegacyDec, sdkmath.Int, error) {
	issuance, err := v.ledger.TotalIssuance(ctx, pool.Asset.VToken())
	if err != nil {
		return sdkmath.LegacyDec{}, sdkmath.Int{}, err
	}
	return pool.ExchangeRate(issuance), issuance, nil
}

// tradablePool resolves the pool behind a user call. Unknown assets and
// vTokens are rejected as unsupported.
func (v *Vault) tradablePool(ctx context.Context, asset types.Asset) (*types.Pool, error) {
	if asset.IsVToken() {
		return nil, errorsmod.Wrapf(types.ErrUnsupportedAsset, "%s is a vtoken", asset)
	}
	pool, err := v.db.FindPool(ctx, asset)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, errorsmod.Wrapf(types.ErrUnsupportedAsset, "%s", asset)
		}
		return nil, err
	}
	return pool, nil
}

// Mint takes amount of asset from who and credits vToken at the current rate.
func (v *Vault) Mint(ctx context.Context, asset types.Asset, who string, amount sdkmath.Int) (sdkmath.Int, error) {
	if err := requirePositive(amount); err != nil {
		return sdkmath.Int{}, err
	}
	pool, err := v.tradablePool(ctx, asset)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if amount.LT(pool.MinimumMint) {
		return sdkmath.Int{}, errorsmod.Wrapf(types.ErrBelowMinimum, "mint %s < %s", amount, pool.MinimumMint)
	}

	fee := types.ApplyRate(amount, pool.Fees.Mint)
	afterFee, err := types.CheckedSub(amount, fee)
	if err != nil {
		return sdkmath.Int{}, err
	}
	issuance, err := v.ledger.TotalIssuance(ctx, asset.VToken())
	if err != nil {
		return sdkmath.Int{}, err
	}
	minted, err := toVToken(afterFee, pool.TokenPool, issuance)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if minted.IsZero() {
		return sdkmath.Int{}, errorsmod.Wrapf(types.ErrBelowMinimum, "mint of %s yields no vtoken", amount)
	}

	if err := v.ledger.Withdraw(ctx, asset, who, amount); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.ledger.Deposit(ctx, asset, v.cfg.FeeAccount, fee); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.ledger.Deposit(ctx, asset.VToken(), who, minted); err != nil {
		return sdkmath.Int{}, err
	}
	if pool.TokenPool, err = types.CheckedAdd(pool.TokenPool, afterFee); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.db.SavePool(ctx, *pool); err != nil {
		return sdkmath.Int{}, err
	}

	height, err := v.clock.Now(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	events.Emit(ctx, types.NewMintedEvent(height, asset, who, amount, fee, minted))
	return minted, nil
}

// Redeem burns vAmount of vToken and queues the token value for release once
// the unlock duration has passed. It returns the id of the owner's record.
func (v *Vault) Redeem(ctx context.Context, asset types.Asset, who string, vAmount sdkmath.Int) (uint64, error) {
	if err := requirePositive(vAmount); err != nil {
		return 0, err
	}
	pool, err := v.tradablePool(ctx, asset)
	if err != nil {
		return 0, err
	}
	if vAmount.LT(pool.MinimumRedeem) {
		return 0, errorsmod.Wrapf(types.ErrBelowMinimum, "redeem %s < %s", vAmount, pool.MinimumRedeem)
	}
	issuance, err := v.ledger.TotalIssuance(ctx, asset.VToken())
	if err != nil {
		return 0, err
	}
	if pool.TokenPool.IsZero() || issuance.IsZero() {
		return 0, errorsmod.Wrapf(types.ErrEmptyPool, "%s", asset)
	}
	if pool.OngoingTimeUnit.IsZero() {
		return 0, errorsmod.Wrapf(types.ErrOngoingTimeUnitNotSet, "%s", asset)
	}

	open, err := v.db.CountUnlockingRecordsByOwner(ctx, asset, who)
	if err != nil {
		return 0, err
	}
	if open >= v.cfg.MaxUserUnlockingChunks {
		return 0, errorsmod.Wrapf(types.ErrTooManyUnlockChunks, "%s has %d open records", who, open)
	}

	gross, err := types.MulDiv(vAmount, pool.TokenPool, issuance)
	if err != nil {
		return 0, err
	}
	if gross.IsZero() {
		return 0, errorsmod.Wrapf(types.ErrBelowMinimum, "redeem of %s yields no token", vAmount)
	}
	fee := types.ApplyRate(gross, pool.Fees.Redeem)
	net, err := types.CheckedSub(gross, fee)
	if err != nil {
		return 0, err
	}
	unlockAt, err := pool.OngoingTimeUnit.Add(pool.UnlockDuration)
	if err != nil {
		return 0, err
	}

	if err := v.ledger.Withdraw(ctx, asset.VToken(), who, vAmount); err != nil {
		return 0, err
	}
	if pool.TokenPool, err = types.CheckedSub(pool.TokenPool, gross); err != nil {
		return 0, err
	}
	if err := v.db.SavePool(ctx, *pool); err != nil {
		return 0, err
	}

	height, err := v.clock.Now(ctx)
	if err != nil {
		return 0, err
	}
	id, err := v.insertRecord(ctx, asset, who, net, unlockAt, height, false)
	if err != nil {
		return 0, err
	}
	if fee.IsPositive() {
		if _, err := v.insertRecord(ctx, asset, v.cfg.FeeAccount, fee, unlockAt, height, true); err != nil {
			return 0, err
		}
	}

	events.Emit(ctx, types.NewRedeemStartedEvent(height, asset, who, id, vAmount, net, fee, unlockAt))
	return id, nil
}

func (v *Vault) insertRecord(
	ctx context.Context, asset types.Asset, owner string, amount sdkmath.Int,
	unlockAt types.TimeUnit, height uint64, isFee bool,
) (uint64, error) {
	id, err := v.db.NextSequence(ctx, db.UnlockIdSequence)
	if err != nil {
		return 0, err
	}
	record := types.UnlockingRecord{
		ID:          id,
		Owner:       owner,
		Asset:       asset,
		TokenAmount: amount,
		UnlockAt:    unlockAt,
		CreatedAt:   height,
		IsFee:       isFee,
	}
	if err := v.db.InsertUnlockingRecord(ctx, record); err != nil {
		return 0, err
	}
	return id, nil
}

// MatureUnlocks releases records whose unlock time has been reached, oldest
// record first and at most limit of them. Records left over are picked up by
// the next call.
func (v *Vault) MatureUnlocks(ctx context.Context, asset types.Asset, limit int64) ([]types.UnlockingRecord, error) {
	pool, err := v.Pool(ctx, asset)
	if err != nil {
		return nil, err
	}
	if pool.OngoingTimeUnit.IsZero() {
		return nil, nil
	}
	records, err := v.db.FindMaturedUnlockingRecords(ctx, asset, pool.OngoingTimeUnit, limit)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	height, err := v.clock.Now(ctx)
	if err != nil {
		return nil, err
	}
	matured := make([]types.UnlockingRecord, 0, len(records))
	for _, rec := range records {
		if err := v.db.DeleteUnlockingRecord(ctx, rec.ID); err != nil {
			if db.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		if err := v.ledger.Deposit(ctx, asset, rec.Owner, rec.TokenAmount); err != nil {
			return nil, err
		}
		events.Emit(ctx, types.NewRedeemMaturedEvent(height, rec))
		matured = append(matured, rec)
	}
	metrics.RecordMaturedUnlocks(asset.String(), len(matured))
	return matured, nil
}

// UpdateOngoingTimeUnit moves the current time unit of asset forward. Equal
// units are accepted and change nothing.
func (v *Vault) UpdateOngoingTimeUnit(ctx context.Context, asset types.Asset, unit types.TimeUnit) error {
	if err := unit.Validate(); err != nil {
		return err
	}
	pool, err := v.Pool(ctx, asset)
	if err != nil {
		return err
	}
	previous := pool.OngoingTimeUnit
	if !previous.IsZero() {
		c, err := unit.Compare(previous)
		if err != nil {
			return err
		}
		if c < 0 {
			return errorsmod.Wrapf(types.ErrNotAllowedBack, "%s -> %s", previous, unit)
		}
		if c == 0 {
			return nil
		}
	} else if unit.Kind != pool.UnlockDuration.Kind {
		return errorsmod.Wrapf(types.ErrMixedTimeUnit, "pool schedules in %s", pool.UnlockDuration.Kind)
	}

	pool.OngoingTimeUnit = unit
	if err := v.db.SavePool(ctx, *pool); err != nil {
		return err
	}
	height, err := v.clock.Now(ctx)
	if err != nil {
		return err
	}
	events.Emit(ctx, types.NewTimeUnitUpdatedEvent(height, asset, previous, unit))
	return nil
}

// RebondByUnlockId cancels a pending unlocking record of who and mints the
// token amount back into vToken at the current rate.
func (v *Vault) RebondByUnlockId(ctx context.Context, asset types.Asset, who string, id uint64) (sdkmath.Int, error) {
	pool, err := v.tradablePool(ctx, asset)
	if err != nil {
		return sdkmath.Int{}, err
	}
	rec, err := v.db.FindUnlockingRecord(ctx, id)
	if err != nil {
		if db.IsNotFoundError(err) {
			return sdkmath.Int{}, errorsmod.Wrapf(types.ErrUnlockRecordNotFound, "id %d", id)
		}
		return sdkmath.Int{}, err
	}
	if rec.Asset != asset {
		return sdkmath.Int{}, errorsmod.Wrapf(types.ErrUnlockRecordNotFound, "id %d for %s", id, asset)
	}
	if rec.Owner != who || rec.IsFee {
		return sdkmath.Int{}, errorsmod.Wrapf(types.ErrNotOwner, "id %d", id)
	}
	if !pool.OngoingTimeUnit.IsZero() {
		reached, err := rec.UnlockAt.ReachedBy(pool.OngoingTimeUnit)
		if err != nil {
			return sdkmath.Int{}, err
		}
		if reached {
			return sdkmath.Int{}, errorsmod.Wrapf(types.ErrUnlockRecordMatured, "id %d", id)
		}
	}

	issuance, err := v.ledger.TotalIssuance(ctx, asset.VToken())
	if err != nil {
		return sdkmath.Int{}, err
	}
	minted, err := toVToken(rec.TokenAmount, pool.TokenPool, issuance)
	if err != nil {
		return sdkmath.Int{}, err
	}

	if err := v.db.DeleteUnlockingRecord(ctx, id); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.ledger.Deposit(ctx, asset.VToken(), who, minted); err != nil {
		return sdkmath.Int{}, err
	}
	if pool.TokenPool, err = types.CheckedAdd(pool.TokenPool, rec.TokenAmount); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.db.SavePool(ctx, *pool); err != nil {
		return sdkmath.Int{}, err
	}

	height, err := v.clock.Now(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	events.Emit(ctx, types.NewRebondedByUnlockIdEvent(height, *rec, minted))
	return minted, nil
}

func (v *Vault) UnlockingRecords(ctx context.Context, asset types.Asset, owner string) ([]types.UnlockingRecord, error) {
	if _, err := v.Pool(ctx, asset); err != nil {
		return nil, err
	}
	return v.db.FindUnlockingRecordsByOwner(ctx, asset, owner)
}

// toVToken converts a token amount at the rate pool/issuance. An empty pool
// mints at 1:1.
func toVToken(amount, tokenPool, issuance sdkmath.Int) (sdkmath.Int, error) {
	if tokenPool.IsZero() || issuance.IsZero() {
		return amount, nil
	}
	return types.MulDiv(amount, issuance, tokenPool)
}

func requirePositive(amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "amount must be positive")
	}
	return nil
}
