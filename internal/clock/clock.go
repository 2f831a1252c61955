// Package clock reads and advances the local block height. The current time
// unit of an asset lives on its pool.
package clock

import (
	"context"

	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type Clock struct {
	store db.DBClient
}

func New(store db.DBClient) *Clock {
	return &Clock{store: store}
}

// Now returns the current block height.
func (c *Clock) Now(ctx context.Context) (uint64, error) {
	info, err := c.store.FindChainInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.Height, nil
}

// Advance moves the height forward by one block and returns the new height.
func (c *Clock) Advance(ctx context.Context) (uint64, error) {
	info, err := c.store.FindChainInfo(ctx)
	if err != nil {
		return 0, err
	}
	info.Height++
	if err := c.store.SaveChainInfo(ctx, *info); err != nil {
		return 0, err
	}
	return info.Height, nil
}

func (c *Clock) CurrentTimeUnit(ctx context.Context, asset types.Asset) (types.TimeUnit, error) {
	pool, err := c.store.FindPool(ctx, asset)
	if err != nil {
		return types.TimeUnit{}, err
	}
	return pool.OngoingTimeUnit, nil
}
