// Package delegator keeps the confirmed view of every delegator's remote
// stake and reconciles it with the vault pools.
package delegator

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/clock"
	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/ledger"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
	"github.com/vtokenlabs/liquid-staking-service/internal/vault"
)

type Store struct {
	db      db.DBClient
	ledger  *ledger.Ledger
	clock   *clock.Clock
	vault   *vault.Vault
	runtime *config.RuntimeConfig
}

func New(
	dbClient db.DBClient, l *ledger.Ledger, c *clock.Clock, v *vault.Vault, runtime *config.RuntimeConfig,
) *Store {
	return &Store{
		db:      dbClient,
		ledger:  l,
		clock:   c,
		vault:   v,
		runtime: runtime,
	}
}

func (s *Store) Initialize(ctx context.Context, asset types.Asset, d types.Delegator) (*types.DelegatorLedger, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.vault.Pool(ctx, asset); err != nil {
		return nil, err
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, err
	}
	l := types.NewDelegatorLedger(asset, d, now)
	if err := s.db.InsertDelegatorLedger(ctx, l); err != nil {
		if db.IsDuplicateKeyError(err) {
			return nil, errorsmod.Wrapf(types.ErrDelegatorAlreadyExists, "%s on %s", d, asset)
		}
		return nil, err
	}
	events.Emit(ctx, types.NewDelegatorInitializedEvent(now, asset, d))
	log.Ctx(ctx).Info().Str("asset", asset.String()).Str("delegator", d.Key()).Msg("delegator initialized")
	return &l, nil
}

// Remove drops a delegator that holds no stake and has no query in flight.
func (s *Store) Remove(ctx context.Context, asset types.Asset, d types.Delegator) error {
	l, err := s.Get(ctx, asset, d)
	if err != nil {
		return err
	}
	if !l.IsEmpty() {
		return errorsmod.Wrapf(types.ErrDelegatorInUse, "%s still has %s bonded, %s total", d, l.Bonded, l.Total)
	}
	pending, err := s.db.CountPendingQueriesByDelegator(ctx, asset, d)
	if err != nil {
		return err
	}
	if pending > 0 {
		return errorsmod.Wrapf(types.ErrDelegatorInUse, "%s has %d pending queries", d, pending)
	}
	if err := s.db.DeleteDelegatorLedger(ctx, asset, d); err != nil {
		return err
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return err
	}
	events.Emit(ctx, types.NewDelegatorRemovedEvent(now, asset, d))
	return nil
}

func (s *Store) Get(ctx context.Context, asset types.Asset, d types.Delegator) (*types.DelegatorLedger, error) {
	l, err := s.db.FindDelegatorLedger(ctx, asset, d)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, errorsmod.Wrapf(types.ErrDelegatorNotInitialized, "%s on %s", d, asset)
		}
		return nil, err
	}
	return l, nil
}

func (s *Store) List(ctx context.Context, asset types.Asset) ([]types.DelegatorLedger, error) {
	return s.db.FindDelegatorLedgers(ctx, asset)
}
