package types

import (
	sdkmath "cosmossdk.io/math"
)

type OperationKind string

const (
	OpInitializeDelegator OperationKind = "initialize_delegator"
	OpBond                OperationKind = "bond"
	OpBondExtra           OperationKind = "bond_extra"
	OpUnbond              OperationKind = "unbond"
	OpUnbondAll           OperationKind = "unbond_all"
	OpRebond              OperationKind = "rebond"
	OpDelegate            OperationKind = "delegate"
	OpUndelegate          OperationKind = "undelegate"
	OpRedelegate          OperationKind = "redelegate"
	OpPayout              OperationKind = "payout"
	OpLiquidize           OperationKind = "liquidize"
	OpChill               OperationKind = "chill"
	OpTransferTo          OperationKind = "transfer_to"
	OpTransferBack        OperationKind = "transfer_back"
	OpConvertAsset        OperationKind = "convert_asset"
	OpRefreshLedger       OperationKind = "refresh_ledger"
)

func (k OperationKind) String() string {
	return string(k)
}

var remoteOperations = []OperationKind{
	OpBond, OpBondExtra, OpUnbond, OpUnbondAll, OpRebond, OpDelegate,
	OpUndelegate, OpRedelegate, OpPayout, OpLiquidize, OpChill,
	OpTransferTo, OpTransferBack, OpConvertAsset, OpRefreshLedger,
}

// RemoteOperations lists every operation that can go through the staking
// agent. initialize_delegator is local only.
func RemoteOperations() []OperationKind {
	out := make([]OperationKind, len(remoteOperations))
	copy(out, remoteOperations)
	return out
}

func OperationKindFromString(s string) (OperationKind, bool) {
	for _, k := range remoteOperations {
		if string(k) == s {
			return k, true
		}
	}
	if s == string(OpInitializeDelegator) {
		return OpInitializeDelegator, true
	}
	return "", false
}

// MovesAmount reports whether the operation carries an amount.
func (k OperationKind) MovesAmount() bool {
	switch k {
	case OpBond, OpBondExtra, OpUnbond, OpRebond, OpTransferTo, OpTransferBack, OpConvertAsset:
		return true
	default:
		return false
	}
}

// StakingRequest carries the arguments of a staking agent operation. It is
// stored on the pending query so the operation can be replayed.
type StakingRequest struct {
	Asset     Asset         `json:"asset"`
	Delegator Delegator     `json:"delegator"`
	Operation OperationKind `json:"operation"`
	Amount    sdkmath.Int   `json:"amount"`
	// validators, collators or contracts depending on the protocol
	Targets []string `json:"targets,omitempty"`
	// redelegate source and destination
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	// payout
	Validator string    `json:"validator,omitempty"`
	TimeUnit  *TimeUnit `json:"time_unit,omitempty"`
	// convert_asset target
	TargetAsset Asset `json:"target_asset,omitempty"`
}

func (r StakingRequest) AmountOrZero() sdkmath.Int {
	if r.Amount.IsNil() {
		return sdkmath.ZeroInt()
	}
	return r.Amount
}
