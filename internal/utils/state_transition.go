package utils

import (
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

// QualifiedStatesToConfirmed returns the qualified existing states to transition to "confirmed"
func QualifiedStatesToConfirmed() []types.QueryStatus {
	return []types.QueryStatus{types.QueryPending}
}

// QualifiedStatesToFailed returns the qualified existing states to transition to "failed"
func QualifiedStatesToFailed() []types.QueryStatus {
	return []types.QueryStatus{types.QueryPending}
}

// QualifiedStatesToManuallyFailed returns the states an operator may fail a query from
func QualifiedStatesToManuallyFailed() []types.QueryStatus {
	return []types.QueryStatus{types.QueryPending, types.QueryTimedOut}
}

// QualifiedStatesToTimedOut returns the qualified existing states to transition to "timed_out"
func QualifiedStatesToTimedOut() []types.QueryStatus {
	return []types.QueryStatus{types.QueryPending}
}

// List of states whose responses are ignored as they have already been processed
var OutdatedStatesForResponse = []types.QueryStatus{types.QueryConfirmed, types.QueryFailed}

// QualifiedStatesToRetry returns the states a query may be retried from
func QualifiedStatesToRetry() []types.QueryStatus {
	return []types.QueryStatus{types.QueryFailed, types.QueryTimedOut}
}
