package types

import (
	sdkmath "cosmossdk.io/math"
)

type UnlockChunk struct {
	Amount   sdkmath.Int `json:"amount"`
	UnlockAt TimeUnit    `json:"unlock_at"`
}

// DelegatorLedger is the last confirmed view of a delegator's stake on the
// remote chain. Only confirmed query responses mutate it.
type DelegatorLedger struct {
	Asset     Asset         `json:"asset"`
	Delegator Delegator     `json:"delegator"`
	Bonded    sdkmath.Int   `json:"bonded"`
	Total     sdkmath.Int   `json:"total"`
	Unlocking []UnlockChunk `json:"unlocking"`
	Targets   []string      `json:"targets"`
	// set when a confirmation could not be applied consistently
	Dirty       bool   `json:"dirty"`
	DirtyReason string `json:"dirty_reason,omitempty"`
	CreatedAt   uint64 `json:"created_at"`
	UpdatedAt   uint64 `json:"updated_at"`
}

func NewDelegatorLedger(asset Asset, delegator Delegator, height uint64) DelegatorLedger {
	return DelegatorLedger{
		Asset:     asset,
		Delegator: delegator,
		Bonded:    sdkmath.ZeroInt(),
		Total:     sdkmath.ZeroInt(),
		Unlocking: []UnlockChunk{},
		Targets:   []string{},
		CreatedAt: height,
		UpdatedAt: height,
	}
}

// Clone returns a deep copy so callers can mutate freely.
func (l DelegatorLedger) Clone() DelegatorLedger {
	c := l
	c.Unlocking = append([]UnlockChunk{}, l.Unlocking...)
	c.Targets = append([]string{}, l.Targets...)
	return c
}

func (l DelegatorLedger) IsEmpty() bool {
	return l.Bonded.IsZero() && l.Total.IsZero() && len(l.Unlocking) == 0
}

func (l *DelegatorLedger) MarkDirty(reason string) {
	l.Dirty = true
	l.DirtyReason = reason
}

// LedgerSnapshot is a read-only remote ledger report.
type LedgerSnapshot struct {
	Bonded    sdkmath.Int   `json:"bonded"`
	Total     sdkmath.Int   `json:"total"`
	Unlocking []UnlockChunk `json:"unlocking"`
	Targets   []string      `json:"targets"`
}
