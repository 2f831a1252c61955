package delegator

import (
	"context"
	"fmt"
	"slices"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

// confirmation is what a mutation handler sees of a confirmed query.
type confirmation struct {
	query    types.PendingQuery
	response types.QueryResponse
	// current time unit of the asset when the response was applied
	current types.TimeUnit
}

func (c confirmation) amount() sdkmath.Int {
	return c.query.Mutation.Request.AmountOrZero()
}

func (c confirmation) unlockAt() *types.TimeUnit {
	if c.response.UnlockAt != nil {
		return c.response.UnlockAt
	}
	return c.query.Mutation.UnlockAt
}

// mutation changes l in place. An error leaves the stored ledger untouched
// and marks it dirty.
type mutation func(l *types.DelegatorLedger, c confirmation) error

var mutations = map[types.OperationKind]mutation{
	types.OpBond:          applyBond,
	types.OpBondExtra:     applyBond,
	types.OpUnbond:        applyUnbond,
	types.OpUnbondAll:     applyUnbondAll,
	types.OpRebond:        applyRebond,
	types.OpDelegate:      applyDelegate,
	types.OpUndelegate:    applyUndelegate,
	types.OpRedelegate:    applyRedelegate,
	types.OpPayout:        applyPayout,
	types.OpLiquidize:     applyLiquidize,
	types.OpChill:         applyChill,
	types.OpRefreshLedger: applySnapshot,
	// funds move between local and remote free balances, stake is unchanged
	types.OpTransferTo:   unchanged,
	types.OpTransferBack: unchanged,
	types.OpConvertAsset: unchanged,
}

// ApplyConfirmed applies the guarded mutation of a confirmed query to the
// delegator ledger and settles its local credit. A mutation that cannot be
// applied consistently, including one carrying a malformed remote payload,
// marks the ledger dirty instead of failing.
func (s *Store) ApplyConfirmed(ctx context.Context, q types.PendingQuery, resp types.QueryResponse) error {
	if credit := q.Mutation.Credit; credit != nil {
		if err := s.ledger.Deposit(ctx, credit.Asset, credit.Account, credit.Amount); err != nil {
			return err
		}
	}

	l, err := s.db.FindDelegatorLedger(ctx, q.Asset, q.Delegator)
	if err != nil {
		if db.IsNotFoundError(err) {
			log.Ctx(ctx).Warn().Uint64("queryId", q.ID).Str("asset", q.Asset.String()).
				Str("delegator", q.Delegator.Key()).Msg("confirmation for unknown delegator")
			return nil
		}
		return err
	}
	apply, ok := mutations[q.Kind]
	if !ok {
		log.Ctx(ctx).Warn().Uint64("queryId", q.ID).Str("operation", q.Kind.String()).
			Msg("no ledger mutation for operation")
		return nil
	}

	current, err := s.clock.CurrentTimeUnit(ctx, q.Asset)
	if err != nil {
		return err
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return err
	}
	wasDirty := l.Dirty
	if err := resp.ValidatePayload(); err != nil {
		l.MarkDirty("malformed response: " + err.Error())
	} else {
		next := l.Clone()
		if err := apply(&next, confirmation{query: q, response: resp, current: current}); err != nil {
			l.MarkDirty(fmt.Sprintf("%s not applied: %s", q.Kind, err))
		} else {
			*l = next
		}
	}
	l.UpdatedAt = now
	if err := s.db.SaveDelegatorLedger(ctx, *l); err != nil {
		return err
	}

	if l.Dirty && !wasDirty {
		log.Ctx(ctx).Warn().Uint64("queryId", q.ID).Str("asset", q.Asset.String()).
			Str("delegator", q.Delegator.Key()).Str("reason", l.DirtyReason).Msg("delegator ledger marked dirty")
		events.Emit(ctx, types.NewLedgerMarkedDirtyEvent(now, *l, q.ID))
	}
	if q.Kind == types.OpRefreshLedger {
		if _, err := s.ReconcileFromLedgers(ctx, q.Asset); err != nil {
			return err
		}
	}
	return nil
}

func unchanged(*types.DelegatorLedger, confirmation) error {
	return nil
}

// stake adds amount to both the bonded and the total stake.
func stake(l *types.DelegatorLedger, amount sdkmath.Int) error {
	bonded, err := types.CheckedAdd(l.Bonded, amount)
	if err != nil {
		return err
	}
	total, err := types.CheckedAdd(l.Total, amount)
	if err != nil {
		return err
	}
	l.Bonded, l.Total = bonded, total
	return nil
}

func applyBond(l *types.DelegatorLedger, c confirmation) error {
	if err := stake(l, c.amount()); err != nil {
		return err
	}
	addTargets(l, c.query.Mutation.Request.Targets)
	return nil
}

func applyUnbond(l *types.DelegatorLedger, c confirmation) error {
	return unbond(l, c.amount(), c.unlockAt())
}

func applyUnbondAll(l *types.DelegatorLedger, c confirmation) error {
	return unbond(l, l.Bonded, c.unlockAt())
}

func unbond(l *types.DelegatorLedger, amount sdkmath.Int, unlockAt *types.TimeUnit) error {
	if unlockAt == nil {
		l.MarkDirty(fmt.Sprintf("unbond of %s confirmed without unlock time", amount))
		return nil
	}
	if l.Bonded.LT(amount) {
		l.MarkDirty(fmt.Sprintf("unbond of %s exceeds bonded %s", amount, l.Bonded))
		amount = l.Bonded
	}
	if amount.IsZero() {
		return nil
	}
	l.Bonded = l.Bonded.Sub(amount)
	for i := range l.Unlocking {
		if l.Unlocking[i].UnlockAt == *unlockAt {
			merged, err := types.CheckedAdd(l.Unlocking[i].Amount, amount)
			if err != nil {
				return err
			}
			l.Unlocking[i].Amount = merged
			return nil
		}
	}
	l.Unlocking = append(l.Unlocking, types.UnlockChunk{Amount: amount, UnlockAt: *unlockAt})
	return nil
}

// applyRebond moves unlocking funds back to bonded, newest chunk first.
func applyRebond(l *types.DelegatorLedger, c confirmation) error {
	remaining := c.amount()
	for len(l.Unlocking) > 0 && remaining.IsPositive() {
		last := len(l.Unlocking) - 1
		chunk := l.Unlocking[last]
		moved := remaining
		if chunk.Amount.LTE(remaining) {
			moved = chunk.Amount
		}
		bonded, err := types.CheckedAdd(l.Bonded, moved)
		if err != nil {
			return err
		}
		l.Bonded = bonded
		remaining = remaining.Sub(moved)
		if moved.Equal(chunk.Amount) {
			l.Unlocking = l.Unlocking[:last]
			continue
		}
		l.Unlocking[last].Amount = chunk.Amount.Sub(moved)
	}
	if remaining.IsPositive() {
		l.MarkDirty(fmt.Sprintf("rebond exceeds unlocking by %s", remaining))
	}
	return nil
}

func applyDelegate(l *types.DelegatorLedger, c confirmation) error {
	if c.amount().IsPositive() {
		return applyBond(l, c)
	}
	addTargets(l, c.query.Mutation.Request.Targets)
	return nil
}

func applyUndelegate(l *types.DelegatorLedger, c confirmation) error {
	removed := c.query.Mutation.Request.Targets
	l.Targets = slices.DeleteFunc(l.Targets, func(t string) bool {
		return slices.Contains(removed, t)
	})
	if c.amount().IsPositive() {
		return unbond(l, c.amount(), c.unlockAt())
	}
	return nil
}

func applyRedelegate(l *types.DelegatorLedger, c confirmation) error {
	req := c.query.Mutation.Request
	i := slices.Index(l.Targets, req.From)
	switch {
	case i < 0:
		l.MarkDirty(fmt.Sprintf("redelegate from unknown target %s", req.From))
		addTargets(l, []string{req.To})
	case slices.Contains(l.Targets, req.To):
		l.Targets = slices.Delete(l.Targets, i, i+1)
	default:
		l.Targets[i] = req.To
	}
	return nil
}

// applyPayout restakes the reward reported by the remote chain.
func applyPayout(l *types.DelegatorLedger, c confirmation) error {
	reward := c.response.Reward
	if reward == nil || !reward.IsPositive() {
		return nil
	}
	return stake(l, *reward)
}

// applyLiquidize drops the chunks that have unlocked by now.
func applyLiquidize(l *types.DelegatorLedger, c confirmation) error {
	now := c.current
	if at := c.query.Mutation.Request.TimeUnit; at != nil {
		now = *at
	}
	kept := l.Unlocking[:0]
	released := sdkmath.ZeroInt()
	for _, chunk := range l.Unlocking {
		reached, err := chunk.UnlockAt.ReachedBy(now)
		if err != nil {
			l.MarkDirty(err.Error())
			kept = append(kept, chunk)
			continue
		}
		if reached {
			sum, err := types.CheckedAdd(released, chunk.Amount)
			if err != nil {
				return err
			}
			released = sum
			continue
		}
		kept = append(kept, chunk)
	}
	l.Unlocking = kept
	if l.Total.LT(released) {
		l.MarkDirty(fmt.Sprintf("liquidized %s exceeds total %s", released, l.Total))
		released = l.Total
	}
	l.Total = l.Total.Sub(released)
	return nil
}

func applyChill(l *types.DelegatorLedger, _ confirmation) error {
	l.Targets = []string{}
	return nil
}

// applySnapshot overwrites the ledger with a remote report and clears the
// dirty flag.
func applySnapshot(l *types.DelegatorLedger, c confirmation) error {
	snap := c.response.Snapshot
	if snap == nil {
		l.MarkDirty("refresh confirmed without snapshot")
		return nil
	}
	l.Bonded = snap.Bonded
	l.Total = snap.Total
	l.Unlocking = append([]types.UnlockChunk{}, snap.Unlocking...)
	l.Targets = append([]string{}, snap.Targets...)
	l.Dirty = false
	l.DirtyReason = ""
	return nil
}

func addTargets(l *types.DelegatorLedger, targets []string) {
	for _, t := range targets {
		if !slices.Contains(l.Targets, t) {
			l.Targets = append(l.Targets, t)
		}
	}
}
