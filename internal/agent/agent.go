// Package agent turns logical staking operations into cross-chain programs for
// the protocol staking each asset. Remote operations never touch the delegator
// ledger, they only register a pending query whose confirmation applies the
// guarded mutation.
package agent

import (
	"context"
	"errors"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/clock"
	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/delegator"
	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/ledger"
	"github.com/vtokenlabs/liquid-staking-service/internal/query"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
	"github.com/vtokenlabs/liquid-staking-service/internal/xcm"
)

// Agent is the staking agent of one asset. Its protocol decides which
// operations exist and how they are encoded.
type Agent struct {
	cfg        config.AgentConfig
	ledger     *ledger.Ledger
	clock      *clock.Clock
	engine     *query.Engine
	delegators *delegator.Store
	sender     xcm.Sender
}

func (a *Agent) Asset() types.Asset {
	return types.Asset(a.cfg.Symbol)
}

func (a *Agent) Protocol() types.StakingProtocol {
	return a.cfg.StakingProtocol()
}

func (a *Agent) Capabilities() []types.OperationKind {
	return Capabilities(a.cfg)
}

// Execute runs one operation. A nil query means the operation settled locally
// and nothing was sent.
func (a *Agent) Execute(ctx context.Context, req types.StakingRequest) (*types.PendingQuery, error) {
	return a.execute(ctx, req, 0)
}

// Replay re-issues the operation of a failed or timed out query under a fresh
// query id.
func (a *Agent) Replay(ctx context.Context, original types.PendingQuery) (*types.PendingQuery, error) {
	return a.execute(ctx, original.Mutation.Request, original.ID)
}

func (a *Agent) InitializeDelegator(ctx context.Context, d types.Delegator) (*types.DelegatorLedger, error) {
	return a.delegators.Initialize(ctx, a.Asset(), d)
}

func (a *Agent) RemoveDelegator(ctx context.Context, d types.Delegator) error {
	return a.delegators.Remove(ctx, a.Asset(), d)
}

func (a *Agent) execute(ctx context.Context, req types.StakingRequest, retryOf uint64) (*types.PendingQuery, error) {
	req.Asset = a.Asset()
	if req.Operation == types.OpInitializeDelegator {
		if _, err := a.InitializeDelegator(ctx, req.Delegator); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if !Supports(a.cfg, req.Operation) {
		return nil, errorsmod.Wrapf(types.ErrUnsupportedOperation, "%s on %s", req.Operation, a.cfg.Protocol)
	}
	if req.Operation.MovesAmount() && !req.AmountOrZero().IsPositive() {
		return nil, errorsmod.Wrapf(types.ErrInvalidAmount, "%s needs a positive amount", req.Operation)
	}
	if err := req.Delegator.Validate(); err != nil {
		return nil, err
	}
	l, err := a.delegators.Get(ctx, req.Asset, req.Delegator)
	if err != nil {
		return nil, err
	}

	if req.Delegator.IsLocal() && (req.Operation == types.OpTransferTo || req.Operation == types.OpTransferBack) {
		return nil, a.transferLocal(ctx, req)
	}
	if err := a.checkLimits(req, l); err != nil {
		return nil, err
	}

	// the call is built before any balance moves so that encoding errors
	// leave nothing to roll back
	var call xcm.Call
	if req.Operation != types.OpTransferTo {
		if call, err = encodeCall(callInput{req: req, ledger: l, cfg: a.cfg}); err != nil {
			return nil, err
		}
	}

	fee := a.cfg.FeeFor(req.Operation)
	if err := a.chargeFeeReserve(ctx, fee); err != nil {
		return nil, err
	}
	mutation, err := a.guardedMutation(ctx, req)
	if err != nil {
		return nil, err
	}

	q, err := a.engine.CreateQuery(ctx, query.Request{
		Asset:       req.Asset,
		Delegator:   req.Delegator,
		Kind:        req.Operation,
		Destination: a.cfg.Destination,
		Mutation:    mutation,
		Timeout:     a.cfg.QueryTimeout,
		RetryOf:     retryOf,
	})
	if err != nil {
		return nil, err
	}

	xfee := xcm.Fee{Asset: types.Asset(a.cfg.FeeAsset), Amount: fee, Weight: a.cfg.Weight}
	var program xcm.Program
	if req.Operation == types.OpTransferTo {
		program, err = xcm.NewTransferProgram(a.cfg.Destination, xfee, a.cfg.SovereignAccount,
			req.Asset, req.Amount, req.Delegator.Value, q.ID)
		if err != nil {
			return nil, err
		}
	} else {
		program = xcm.NewTransactProgram(a.cfg.Destination, xfee, a.cfg.SovereignAccount, call, q.ID)
	}
	// sending is the last step: a failure aborts the whole transition,
	// including the query and the fee debit
	if err := a.sender.Send(ctx, program); err != nil {
		if !errors.Is(err, types.ErrXcmSend) {
			err = errorsmod.Wrap(types.ErrXcmSend, err.Error())
		}
		return nil, err
	}

	events.Emit(ctx, types.NewQueryEvent(types.XcmSentEventType, q.CreatedAt, q, call.String()))
	log.Ctx(ctx).Info().Uint64("queryId", q.ID).Str("asset", q.Asset.String()).
		Str("delegator", q.Delegator.Key()).Str("operation", q.Kind.String()).
		Uint64("timeoutAt", q.TimeoutAt).Msg("xcm program sent")
	return &q, nil
}

// checkLimits rejects operations the remote chain would refuse anyway.
func (a *Agent) checkLimits(req types.StakingRequest, l *types.DelegatorLedger) error {
	amount := req.AmountOrZero()
	switch req.Operation {
	case types.OpBond, types.OpBondExtra, types.OpDelegate:
		if amount.IsZero() {
			return nil
		}
		minimum := a.cfg.MinimumBondAmount()
		bonded, err := types.CheckedAdd(l.Bonded, amount)
		if err != nil {
			return err
		}
		if bonded.LT(minimum) {
			return errorsmod.Wrapf(types.ErrBelowMinimumBond, "bonded %s + %s is below %s", l.Bonded, amount, minimum)
		}
	case types.OpUnbond, types.OpUnbondAll, types.OpUndelegate:
		if req.Operation == types.OpUndelegate && amount.IsZero() {
			return nil
		}
		if len(l.Unlocking) >= a.cfg.MaxUnlockingChunks {
			return errorsmod.Wrapf(types.ErrTooManyUnlockChunks, "%s already has %d unlocking chunks",
				l.Delegator, len(l.Unlocking))
		}
	}
	return nil
}

func (a *Agent) chargeFeeReserve(ctx context.Context, fee sdkmath.Int) error {
	if !fee.IsPositive() {
		return nil
	}
	err := a.ledger.Withdraw(ctx, types.Asset(a.cfg.FeeAsset), a.cfg.FeeReserveAccount, fee)
	if errors.Is(err, types.ErrInsufficientBalance) {
		return errorsmod.Wrapf(types.ErrInsufficientFeeReserve, "%s needs %s %s", a.cfg.FeeReserveAccount, fee, a.cfg.FeeAsset)
	}
	return err
}

// guardedMutation records what a confirmation may apply. Funds leaving the
// sovereign account are taken now and refunded if the remote call fails.
func (a *Agent) guardedMutation(ctx context.Context, req types.StakingRequest) (types.GuardedMutation, error) {
	m := types.GuardedMutation{Request: req}
	switch req.Operation {
	case types.OpUnbond, types.OpUnbondAll, types.OpUndelegate:
		current, err := a.clock.CurrentTimeUnit(ctx, req.Asset)
		if err != nil {
			return m, err
		}
		// without an ongoing unit only the remote report can date the chunk
		if current.IsZero() {
			return m, nil
		}
		at, err := current.Add(types.NewTimeUnit(current.Kind, a.cfg.UnbondingDuration))
		if err != nil {
			return m, err
		}
		m.UnlockAt = &at
	case types.OpTransferTo:
		if err := a.ledger.Withdraw(ctx, req.Asset, a.cfg.SovereignAccount, req.Amount); err != nil {
			return m, err
		}
		m.Debit = &types.LocalMovement{Asset: req.Asset, Account: a.cfg.SovereignAccount, Amount: req.Amount}
	case types.OpTransferBack:
		m.Credit = &types.LocalMovement{Asset: req.Asset, Account: a.cfg.SovereignAccount, Amount: req.Amount}
	}
	return m, nil
}

// transferLocal moves funds between the sovereign account and one of its
// local sub-accounts. It settles synchronously.
func (a *Agent) transferLocal(ctx context.Context, req types.StakingRequest) error {
	from, to := a.cfg.SovereignAccount, req.Delegator.LocalAccount(a.cfg.SovereignAccount)
	if req.Operation == types.OpTransferBack {
		from, to = to, from
	}
	if err := a.ledger.Transfer(ctx, req.Asset, from, to, req.Amount); err != nil {
		return err
	}
	now, err := a.clock.Now(ctx)
	if err != nil {
		return err
	}
	events.Emit(ctx, types.NewLocalTransferEvent(now, req.Asset, req.Operation, from, to, req.Amount))
	return nil
}
