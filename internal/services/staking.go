package services

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/vtokenlabs/liquid-staking-service/internal/delegator"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type UnlockChunkPublic struct {
	Amount   string `json:"amount"`
	UnlockAt string `json:"unlock_at"`
}

type DelegatorLedgerPublic struct {
	Asset       string              `json:"asset"`
	Delegator   string              `json:"delegator"`
	Bonded      string              `json:"bonded"`
	Total       string              `json:"total"`
	Unlocking   []UnlockChunkPublic `json:"unlocking"`
	Targets     []string            `json:"targets"`
	Dirty       bool                `json:"dirty"`
	DirtyReason string              `json:"dirty_reason,omitempty"`
	UpdatedAt   uint64              `json:"updated_at"`
}

// StakingResultPublic is the outcome of a staking operation. Query is nil when
// the operation settled locally.
type StakingResultPublic struct {
	Operation string       `json:"operation"`
	Query     *QueryPublic `json:"query,omitempty"`
}

type ReconciliationPublic struct {
	Asset       string `json:"asset"`
	TokenPool   string `json:"token_pool"`
	RemoteTotal string `json:"remote_total"`
	Divergence  string `json:"divergence"`
	Streak      uint32 `json:"streak"`
	Alerted     bool   `json:"alerted"`
}

func fromDelegatorLedger(l types.DelegatorLedger) DelegatorLedgerPublic {
	chunks := make([]UnlockChunkPublic, 0, len(l.Unlocking))
	for _, c := range l.Unlocking {
		chunks = append(chunks, UnlockChunkPublic{Amount: intString(c.Amount), UnlockAt: c.UnlockAt.String()})
	}
	targets := l.Targets
	if targets == nil {
		targets = []string{}
	}
	return DelegatorLedgerPublic{
		Asset:       l.Asset.String(),
		Delegator:   l.Delegator.Key(),
		Bonded:      intString(l.Bonded),
		Total:       intString(l.Total),
		Unlocking:   chunks,
		Targets:     targets,
		Dirty:       l.Dirty,
		DirtyReason: l.DirtyReason,
		UpdatedAt:   l.UpdatedAt,
	}
}

func fromTuneResult(r delegator.TuneResult) ReconciliationPublic {
	return ReconciliationPublic{
		Asset:       r.Asset.String(),
		TokenPool:   intString(r.TokenPool),
		RemoteTotal: intString(r.RemoteTotal),
		Divergence:  r.Divergence.String(),
		Streak:      r.Streak,
		Alerted:     r.Alerted,
	}
}

func (s *Services) InitializeDelegator(
	ctx context.Context, asset types.Asset, d types.Delegator,
) (*DelegatorLedgerPublic, *types.Error) {
	a, err := s.agents.Get(asset)
	if err != nil {
		return nil, toError(ctx, "initialize_delegator", err)
	}
	var l *types.DelegatorLedger
	if err := s.atomic(ctx, "initialize_delegator", func(ctx context.Context) error {
		var err error
		l, err = a.InitializeDelegator(ctx, d)
		return err
	}); err != nil {
		return nil, err
	}
	pub := fromDelegatorLedger(*l)
	return &pub, nil
}

func (s *Services) RemoveDelegator(ctx context.Context, asset types.Asset, d types.Delegator) *types.Error {
	a, err := s.agents.Get(asset)
	if err != nil {
		return toError(ctx, "remove_delegator", err)
	}
	return s.atomic(ctx, "remove_delegator", func(ctx context.Context) error {
		return a.RemoveDelegator(ctx, d)
	})
}

func (s *Services) Delegators(ctx context.Context, asset types.Asset) ([]DelegatorLedgerPublic, *types.Error) {
	ledgers, err := s.delegators.List(ctx, asset)
	if err != nil {
		return nil, toError(ctx, "delegators", err)
	}
	out := make([]DelegatorLedgerPublic, 0, len(ledgers))
	for _, l := range ledgers {
		out = append(out, fromDelegatorLedger(l))
	}
	return out, nil
}

func (s *Services) Delegator(ctx context.Context, asset types.Asset, d types.Delegator) (*DelegatorLedgerPublic, *types.Error) {
	l, err := s.delegators.Get(ctx, asset, d)
	if err != nil {
		return nil, toError(ctx, "delegator", err)
	}
	pub := fromDelegatorLedger(*l)
	return &pub, nil
}

// Stake runs a staking agent operation. Remote operations return the pending
// query tracking them.
func (s *Services) Stake(ctx context.Context, req types.StakingRequest) (*StakingResultPublic, *types.Error) {
	var q *types.PendingQuery
	if err := s.atomic(ctx, req.Operation.String(), func(ctx context.Context) error {
		var err error
		q, err = s.agents.Execute(ctx, req)
		return err
	}); err != nil {
		return nil, err
	}
	res := &StakingResultPublic{Operation: req.Operation.String()}
	if q != nil {
		pub := fromPendingQuery(*q)
		res.Query = &pub
	}
	return res, nil
}

// Reconcile compares the pool of an asset with the confirmed delegator
// ledgers, or with remoteTotal when one is given.
func (s *Services) Reconcile(
	ctx context.Context, asset types.Asset, remoteTotal *sdkmath.Int,
) (*ReconciliationPublic, *types.Error) {
	var res *delegator.TuneResult
	if err := s.atomic(ctx, "reconcile", func(ctx context.Context) error {
		var err error
		if remoteTotal != nil {
			res, err = s.delegators.TuneExchangeRateFromRemote(ctx, asset, *remoteTotal)
		} else {
			res, err = s.delegators.ReconcileFromLedgers(ctx, asset)
		}
		return err
	}); err != nil {
		return nil, err
	}
	pub := fromTuneResult(*res)
	return &pub, nil
}
