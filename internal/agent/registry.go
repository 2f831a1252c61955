package agent

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"github.com/vtokenlabs/liquid-staking-service/internal/clock"
	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/delegator"
	"github.com/vtokenlabs/liquid-staking-service/internal/ledger"
	"github.com/vtokenlabs/liquid-staking-service/internal/query"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
	"github.com/vtokenlabs/liquid-staking-service/internal/xcm"
)

// Registry holds one agent per staked asset.
type Registry struct {
	agents map[types.Asset]*Agent
}

func NewRegistry(
	cfg *config.StakingConfig, l *ledger.Ledger, c *clock.Clock, engine *query.Engine,
	delegators *delegator.Store, sender xcm.Sender,
) *Registry {
	agents := make(map[types.Asset]*Agent, len(cfg.Agents))
	for _, a := range cfg.Agents {
		agents[types.Asset(a.Symbol)] = &Agent{
			cfg:        a,
			ledger:     l,
			clock:      c,
			engine:     engine,
			delegators: delegators,
			sender:     sender,
		}
	}
	return &Registry{agents: agents}
}

func (r *Registry) Get(asset types.Asset) (*Agent, error) {
	a, ok := r.agents[asset]
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrUnsupportedAsset, "no staking agent for %s", asset)
	}
	return a, nil
}

func (r *Registry) Execute(ctx context.Context, req types.StakingRequest) (*types.PendingQuery, error) {
	a, err := r.Get(req.Asset)
	if err != nil {
		return nil, err
	}
	return a.Execute(ctx, req)
}

func (r *Registry) Replay(ctx context.Context, original types.PendingQuery) (*types.PendingQuery, error) {
	a, err := r.Get(original.Asset)
	if err != nil {
		return nil, err
	}
	return a.Replay(ctx, original)
}
