// Package query correlates asynchronous cross-chain responses with the
// operations that were sent. A pending query is resolved exactly once. A timed
// out query may still be failed by an operator, which refunds its debit.
package query

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/clock"
	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/ledger"
	"github.com/vtokenlabs/liquid-staking-service/internal/observability/metrics"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
	"github.com/vtokenlabs/liquid-staking-service/internal/utils"
)

// MutationApplier applies the guarded mutation of a confirmed query.
type MutationApplier interface {
	ApplyConfirmed(ctx context.Context, q types.PendingQuery, resp types.QueryResponse) error
}

// Request describes the operation a new query tracks.
type Request struct {
	Asset       types.Asset
	Delegator   types.Delegator
	Kind        types.OperationKind
	Destination string
	Mutation    types.GuardedMutation
	// blocks until the query times out, 0 uses the engine default
	Timeout uint64
	RetryOf uint64
}

type Engine struct {
	db             db.DBClient
	ledger         *ledger.Ledger
	clock          *clock.Clock
	applier        MutationApplier
	defaultTimeout uint64
}

func New(
	dbClient db.DBClient, l *ledger.Ledger, c *clock.Clock, applier MutationApplier, defaultTimeout uint64,
) *Engine {
	return &Engine{
		db:             dbClient,
		ledger:         l,
		clock:          c,
		applier:        applier,
		defaultTimeout: defaultTimeout,
	}
}

// CreateQuery stores a new pending query under a fresh id. Ids come from a
// persistent counter and are never reused.
func (e *Engine) CreateQuery(ctx context.Context, req Request) (types.PendingQuery, error) {
	id, err := e.db.NextSequence(ctx, db.QueryIdSequence)
	if err != nil {
		return types.PendingQuery{}, err
	}
	now, err := e.clock.Now(ctx)
	if err != nil {
		return types.PendingQuery{}, err
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = e.defaultTimeout
	}
	q := types.PendingQuery{
		ID:          id,
		Asset:       req.Asset,
		Delegator:   req.Delegator,
		Kind:        req.Kind,
		Destination: req.Destination,
		Mutation:    req.Mutation,
		Status:      types.QueryPending,
		CreatedAt:   now,
		TimeoutAt:   now + timeout,
		RetryOf:     req.RetryOf,
	}
	if err := e.db.InsertQuery(ctx, q); err != nil {
		return types.PendingQuery{}, err
	}
	e.refreshPendingGauge(ctx, q.Asset)
	return q, nil
}

// OnResponse is the only entry point that resolves a query from a remote
// answer. Unknown and already consumed ids are ignored.
func (e *Engine) OnResponse(ctx context.Context, resp types.QueryResponse) error {
	q, err := e.db.FindQuery(ctx, resp.QueryID)
	if err != nil {
		if db.IsNotFoundError(err) {
			log.Ctx(ctx).Warn().Uint64("queryId", resp.QueryID).Msg("response for unknown query ignored")
			return nil
		}
		return err
	}

	switch {
	case q.Status == types.QueryTimedOut:
		return e.keepLateResponse(ctx, *q, resp)
	case utils.Contains(utils.OutdatedStatesForResponse, q.Status):
		log.Ctx(ctx).Debug().Uint64("queryId", q.ID).Str("status", q.Status.ToString()).
			Msg("duplicate response ignored")
		return nil
	}

	now, err := e.clock.Now(ctx)
	if err != nil {
		return err
	}
	// expired but not swept yet
	if q.TimeoutAt <= now {
		if err := e.timeOut(ctx, *q, now); err != nil {
			return err
		}
		q.Status = types.QueryTimedOut
		return e.keepLateResponse(ctx, *q, resp)
	}
	if resp.Success {
		return e.confirm(ctx, *q, resp, now)
	}
	return e.fail(ctx, *q, utils.QualifiedStatesToFailed(), now, resp.Error, types.QueryFailedEventType)
}

func (e *Engine) confirm(ctx context.Context, q types.PendingQuery, resp types.QueryResponse, now uint64) error {
	err := e.db.ResolveQuery(ctx, q.ID, utils.QualifiedStatesToConfirmed(), types.QueryResolution{
		Status:     types.QueryConfirmed,
		ResolvedAt: now,
	})
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	if err := e.applier.ApplyConfirmed(ctx, q, resp); err != nil {
		return err
	}
	q.Status = types.QueryConfirmed
	events.Emit(ctx, types.NewQueryEvent(types.QueryConfirmedEventType, now, q, ""))
	metrics.RecordQueryOutcome(q.Kind.String(), q.Status.ToString())
	e.refreshPendingGauge(ctx, q.Asset)
	return nil
}

// fail resolves q as Failed when it is in one of the from states and returns
// any local debit the operation made.
func (e *Engine) fail(
	ctx context.Context, q types.PendingQuery, from []types.QueryStatus, now uint64, reason string,
	eventType types.EventType,
) error {
	err := e.db.ResolveQuery(ctx, q.ID, from, types.QueryResolution{
		Status:     types.QueryFailed,
		ResolvedAt: now,
		Failure:    reason,
	})
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	if debit := q.Mutation.Debit; debit != nil {
		if err := e.ledger.Deposit(ctx, debit.Asset, debit.Account, debit.Amount); err != nil {
			return err
		}
	}
	q.Status = types.QueryFailed
	log.Ctx(ctx).Warn().Uint64("queryId", q.ID).Str("asset", q.Asset.String()).
		Str("delegator", q.Delegator.Key()).Str("operation", q.Kind.String()).
		Str("reason", reason).Msg("query failed")
	events.Emit(ctx, types.NewQueryEvent(eventType, now, q, reason))
	metrics.RecordQueryOutcome(q.Kind.String(), q.Status.ToString())
	e.refreshPendingGauge(ctx, q.Asset)
	return nil
}

// keepLateResponse stores the first response that arrives after a timeout.
// It is never applied.
func (e *Engine) keepLateResponse(ctx context.Context, q types.PendingQuery, resp types.QueryResponse) error {
	log.Ctx(ctx).Warn().Uint64("queryId", q.ID).Str("asset", q.Asset.String()).
		Str("delegator", q.Delegator.Key()).Bool("success", resp.Success).
		Msg("late response for timed out query")
	if q.LateResponse != nil {
		return nil
	}
	return e.db.SaveLateResponse(ctx, q.ID, resp)
}

// OnTimeout moves a still pending query to TimedOut. Its mutation is not
// applied and it is never retried without an operator.
func (e *Engine) OnTimeout(ctx context.Context, id uint64) error {
	q, err := e.db.FindQuery(ctx, id)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	if q.Status != types.QueryPending {
		return nil
	}
	now, err := e.clock.Now(ctx)
	if err != nil {
		return err
	}
	return e.timeOut(ctx, *q, now)
}

func (e *Engine) timeOut(ctx context.Context, q types.PendingQuery, now uint64) error {
	err := e.db.ResolveQuery(ctx, q.ID, utils.QualifiedStatesToTimedOut(), types.QueryResolution{
		Status:     types.QueryTimedOut,
		ResolvedAt: now,
	})
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	q.Status = types.QueryTimedOut
	log.Ctx(ctx).Warn().Uint64("queryId", q.ID).Str("asset", q.Asset.String()).
		Str("delegator", q.Delegator.Key()).Str("operation", q.Kind.String()).
		Uint64("timeoutAt", q.TimeoutAt).Msg("query timed out")
	events.Emit(ctx, types.NewQueryEvent(types.QueryTimedOutEventType, now, q, ""))
	metrics.RecordQueryOutcome(q.Kind.String(), q.Status.ToString())
	e.refreshPendingGauge(ctx, q.Asset)
	return nil
}

// SweepTimeouts times out pending queries whose timeout height has passed,
// earliest first and at most limit of them.
func (e *Engine) SweepTimeouts(ctx context.Context, limit int64) ([]types.PendingQuery, error) {
	now, err := e.clock.Now(ctx)
	if err != nil {
		return nil, err
	}
	expired, err := e.db.FindExpiredQueries(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	for i := range expired {
		if err := e.timeOut(ctx, expired[i], now); err != nil {
			return nil, err
		}
		expired[i].Status = types.QueryTimedOut
	}
	return expired, nil
}

// ManualFail forces a pending or timed out query into Failed when it is known
// out of band that the operation did not happen, refunding its debit. A timed
// out query whose late response reported success cannot be failed.
func (e *Engine) ManualFail(ctx context.Context, id uint64, reason string) error {
	q, err := e.Get(ctx, id)
	if err != nil {
		return err
	}
	if !utils.Contains(utils.QualifiedStatesToManuallyFailed(), q.Status) {
		return errorsmod.Wrapf(types.ErrInvalidQueryState, "query %d is %s", id, q.Status)
	}
	if q.LateResponse != nil && q.LateResponse.Success {
		return errorsmod.Wrapf(types.ErrInvalidQueryState, "query %d succeeded after its timeout", id)
	}
	now, err := e.clock.Now(ctx)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "failed by operator"
	}
	return e.fail(ctx, *q, utils.QualifiedStatesToManuallyFailed(), now, reason,
		types.QueryManuallyFailedEventType)
}

// Retryable returns the query if it may be re-sent: it failed or timed out
// and has not been retried before.
func (e *Engine) Retryable(ctx context.Context, id uint64) (*types.PendingQuery, error) {
	q, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !utils.Contains(utils.QualifiedStatesToRetry(), q.Status) {
		return nil, errorsmod.Wrapf(types.ErrInvalidQueryState, "query %d is %s", id, q.Status)
	}
	if q.RetriedBy != 0 {
		return nil, errorsmod.Wrapf(types.ErrAlreadyRetried, "query %d retried by %d", id, q.RetriedBy)
	}
	return q, nil
}

// LinkRetry records that retry re-sent the operation of original.
func (e *Engine) LinkRetry(ctx context.Context, original types.PendingQuery, retry uint64) error {
	if err := e.db.SetRetriedBy(ctx, original.ID, retry); err != nil {
		return err
	}
	now, err := e.clock.Now(ctx)
	if err != nil {
		return err
	}
	ev := types.NewQueryEvent(types.QueryRetriedEventType, now, original, "")
	ev.RetryQueryID = retry
	events.Emit(ctx, ev)
	return nil
}

func (e *Engine) Get(ctx context.Context, id uint64) (*types.PendingQuery, error) {
	q, err := e.db.FindQuery(ctx, id)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, errorsmod.Wrapf(types.ErrQueryNotFound, "id %d", id)
		}
		return nil, err
	}
	return q, nil
}

func (e *Engine) List(
	ctx context.Context, status types.QueryStatus, paginationToken string,
) (*db.DbResultMap[types.PendingQuery], error) {
	return e.db.FindQueries(ctx, status, paginationToken)
}

func (e *Engine) refreshPendingGauge(ctx context.Context, asset types.Asset) {
	count, err := e.db.CountPendingQueries(ctx, asset)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("failed to count pending queries")
		return
	}
	metrics.RecordPendingQueries(asset.String(), count)
}
