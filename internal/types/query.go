package types

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
)

type QueryStatus string

const (
	QueryPending   QueryStatus = "pending"
	QueryConfirmed QueryStatus = "confirmed"
	QueryFailed    QueryStatus = "failed"
	QueryTimedOut  QueryStatus = "timed_out"
)

func (s QueryStatus) ToString() string {
	return string(s)
}

func QueryStatusFromString(s string) (QueryStatus, bool) {
	switch QueryStatus(s) {
	case QueryPending, QueryConfirmed, QueryFailed, QueryTimedOut:
		return QueryStatus(s), true
	default:
		return "", false
	}
}

// LocalMovement is a balance change made on the local ledger on behalf of a
// remote operation.
type LocalMovement struct {
	Asset   Asset       `json:"asset"`
	Account string      `json:"account"`
	Amount  sdkmath.Int `json:"amount"`
}

// GuardedMutation is what a confirmation is allowed to apply.
type GuardedMutation struct {
	Request StakingRequest `json:"request"`
	// expected remote unlock time for unbond style operations
	UnlockAt *TimeUnit `json:"unlock_at,omitempty"`
	// taken when the query was sent, returned if the remote call fails
	Debit *LocalMovement `json:"debit,omitempty"`
	// deposited once the remote call is confirmed
	Credit *LocalMovement `json:"credit,omitempty"`
}

type PendingQuery struct {
	ID          uint64          `json:"id"`
	Asset       Asset           `json:"asset"`
	Delegator   Delegator       `json:"delegator"`
	Kind        OperationKind   `json:"kind"`
	Destination string          `json:"destination"`
	Mutation    GuardedMutation `json:"mutation"`
	Status      QueryStatus     `json:"status"`
	CreatedAt   uint64          `json:"created_at"`
	TimeoutAt   uint64          `json:"timeout_at"`
	ResolvedAt  uint64          `json:"resolved_at,omitempty"`
	Failure     string          `json:"failure,omitempty"`
	// a response that arrived after the query timed out, kept for operators
	LateResponse *QueryResponse `json:"late_response,omitempty"`
	RetryOf      uint64         `json:"retry_of,omitempty"`
	RetriedBy    uint64         `json:"retried_by,omitempty"`
}

// QueryResponse is the inbound "report back" payload matched by QueryID.
type QueryResponse struct {
	QueryID uint64 `json:"query_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// remote unlock time reported for unbond style operations
	UnlockAt *TimeUnit `json:"unlock_at,omitempty"`
	// rewards restaked by a payout
	Reward *sdkmath.Int `json:"reward,omitempty"`
	// refresh_ledger result
	Snapshot *LedgerSnapshot `json:"snapshot,omitempty"`
}

// ValidatePayload checks the amounts reported by the remote chain.
func (r QueryResponse) ValidatePayload() error {
	if r.Reward != nil {
		if err := ValidateAmount("reward", *r.Reward); err != nil {
			return err
		}
	}
	snap := r.Snapshot
	if snap == nil {
		return nil
	}
	if err := ValidateAmount("snapshot bonded", snap.Bonded); err != nil {
		return err
	}
	if err := ValidateAmount("snapshot total", snap.Total); err != nil {
		return err
	}
	if snap.Bonded.GT(snap.Total) {
		return errorsmod.Wrapf(ErrInvalidAmount, "snapshot bonded %s exceeds total %s", snap.Bonded, snap.Total)
	}
	for i, c := range snap.Unlocking {
		if err := ValidateAmount(fmt.Sprintf("snapshot unlocking[%d]", i), c.Amount); err != nil {
			return err
		}
	}
	return nil
}

// QueryResolution is the state written when a query leaves Pending.
type QueryResolution struct {
	Status       QueryStatus
	ResolvedAt   uint64
	Failure      string
	LateResponse *QueryResponse
}
