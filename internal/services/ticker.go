package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

// Tick advances the local block height by one, then times out expired
// queries and releases matured unlocking records of every pool. Each step is
// its own transition. A pool that fails to mature is logged and skipped, and
// the first such error is returned once every pool was visited.
func (s *Services) Tick(ctx context.Context) *types.Error {
	var height uint64
	if err := s.atomic(ctx, "advance_block", func(ctx context.Context) error {
		var err error
		height, err = s.clock.Advance(ctx)
		return err
	}); err != nil {
		return err
	}

	var swept int
	if err := s.atomic(ctx, "sweep_timeouts", func(ctx context.Context) error {
		expired, err := s.engine.SweepTimeouts(ctx, s.cfg.Runtime.TimeoutSweepLimit)
		swept = len(expired)
		return err
	}); err != nil {
		return err
	}
	if swept > 0 {
		log.Ctx(ctx).Warn().Uint64("height", height).Int("queries", swept).Msg("queries timed out")
	}

	pools, err := s.vault.Pools(ctx)
	if err != nil {
		return toError(ctx, "tick", err)
	}
	// one failing pool must not hold back the others
	var first *types.Error
	for _, p := range pools {
		if err := s.matureUnlocks(ctx, p.Asset); err != nil {
			log.Ctx(ctx).Error().Str("asset", p.Asset.String()).Err(err).Msg("failed to mature unlocks")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (s *Services) matureUnlocks(ctx context.Context, asset types.Asset) *types.Error {
	return s.atomic(ctx, "mature_unlocks", func(ctx context.Context) error {
		matured, err := s.vault.MatureUnlocks(ctx, asset, s.cfg.Runtime.MaturityBatchLimit)
		if err != nil {
			return err
		}
		if len(matured) > 0 {
			log.Ctx(ctx).Debug().Str("asset", asset.String()).Int("records", len(matured)).Msg("unlocks matured")
		}
		return nil
	})
}

func (s *Services) Height(ctx context.Context) (uint64, *types.Error) {
	h, err := s.clock.Now(ctx)
	if err != nil {
		return 0, toError(ctx, "height", err)
	}
	return h, nil
}
