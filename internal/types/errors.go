package types

import (
	errorsmod "cosmossdk.io/errors"
)

const Codespace = "vtoken"

// Registered domain errors. Codes start at 2, 1 is reserved by the errors package.
var (
	// user input
	ErrBelowMinimum        = errorsmod.Register(Codespace, 2, "amount below minimum")
	ErrInsufficientBalance = errorsmod.Register(Codespace, 3, "insufficient balance")
	ErrUnsupportedAsset    = errorsmod.Register(Codespace, 4, "unsupported asset")
	ErrInvalidFee          = errorsmod.Register(Codespace, 5, "invalid fee rate")
	ErrInvalidAmount       = errorsmod.Register(Codespace, 6, "invalid amount")
	ErrInvalidDelegator    = errorsmod.Register(Codespace, 7, "invalid delegator")
	ErrInvalidRequest      = errorsmod.Register(Codespace, 8, "invalid staking request")

	// capacity and preconditions
	ErrEmptyPool               = errorsmod.Register(Codespace, 10, "token pool is empty")
	ErrDelegatorNotInitialized = errorsmod.Register(Codespace, 11, "delegator not initialized")
	ErrDelegatorAlreadyExists  = errorsmod.Register(Codespace, 12, "delegator already initialized")
	ErrDelegatorInUse          = errorsmod.Register(Codespace, 13, "delegator still holds stake or pending queries")
	ErrInsufficientFeeReserve  = errorsmod.Register(Codespace, 14, "insufficient fee reserve")
	ErrUnsupportedOperation    = errorsmod.Register(Codespace, 15, "operation not supported by staking protocol")
	ErrTooManyUnlockChunks     = errorsmod.Register(Codespace, 16, "too many unlocking chunks")
	ErrUnlockRecordNotFound    = errorsmod.Register(Codespace, 17, "unlocking record not found")
	ErrNotOwner                = errorsmod.Register(Codespace, 18, "caller does not own the unlocking record")
	ErrUnlockRecordMatured     = errorsmod.Register(Codespace, 19, "unlocking record already matured")
	ErrBelowMinimumBond        = errorsmod.Register(Codespace, 20, "bond below protocol minimum")
	ErrOngoingTimeUnitNotSet   = errorsmod.Register(Codespace, 21, "ongoing time unit not set")
	ErrPoolNotFound            = errorsmod.Register(Codespace, 22, "pool not found")

	// time units
	ErrNotAllowedBack  = errorsmod.Register(Codespace, 30, "time unit cannot move backward")
	ErrMixedTimeUnit   = errorsmod.Register(Codespace, 31, "time units of different kinds are not comparable")
	ErrInvalidTimeUnit = errorsmod.Register(Codespace, 32, "invalid time unit")

	// arithmetic
	ErrOverflow  = errorsmod.Register(Codespace, 40, "arithmetic overflow")
	ErrUnderflow = errorsmod.Register(Codespace, 41, "arithmetic underflow")
	ErrDivByZero = errorsmod.Register(Codespace, 42, "division by zero")

	// queries
	ErrQueryNotFound     = errorsmod.Register(Codespace, 50, "query not found")
	ErrInvalidQueryState = errorsmod.Register(Codespace, 51, "query is not in a valid state for this action")
	ErrRetryDisabled     = errorsmod.Register(Codespace, 52, "query retry is disabled by policy")
	ErrAlreadyRetried    = errorsmod.Register(Codespace, 53, "query has already been retried")
	ErrXcmSend           = errorsmod.Register(Codespace, 54, "failed to send xcm program")
)
