package types

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"
)

type DelegatorScheme string

const (
	// 32 byte account id (relay chain, astar)
	Account32 DelegatorScheme = "account32"
	// 20 byte ethereum style key (parachain staking on EVM chains)
	Key20 DelegatorScheme = "key20"
	// local derivation index of the sovereign account
	DerivativeIndex DelegatorScheme = "index"
)

// Delegator is a remote-chain staking identity controlled by the vault.
type Delegator struct {
	Scheme DelegatorScheme `json:"scheme" bson:"scheme"`
	Value  string          `json:"value" bson:"value"`
}

func NewDelegator(scheme DelegatorScheme, value string) (Delegator, error) {
	d := Delegator{Scheme: scheme, Value: normalizeDelegatorValue(scheme, value)}
	if err := d.Validate(); err != nil {
		return Delegator{}, err
	}
	return d, nil
}

func normalizeDelegatorValue(scheme DelegatorScheme, value string) string {
	value = strings.TrimSpace(value)
	if scheme == Account32 || scheme == Key20 {
		return strings.ToLower(strings.TrimPrefix(value, "0x"))
	}
	return value
}

func (d Delegator) Validate() error {
	switch d.Scheme {
	case Account32:
		return validateHexLen(d.Value, 32)
	case Key20:
		return validateHexLen(d.Value, 20)
	case DerivativeIndex:
		if _, err := strconv.ParseUint(d.Value, 10, 16); err != nil {
			return errorsmod.Wrapf(ErrInvalidDelegator, "derivative index %q", d.Value)
		}
		return nil
	default:
		return errorsmod.Wrapf(ErrInvalidDelegator, "unknown scheme %q", d.Scheme)
	}
}

func validateHexLen(value string, size int) error {
	b, err := hex.DecodeString(value)
	if err != nil {
		return errorsmod.Wrapf(ErrInvalidDelegator, "not hex: %q", value)
	}
	if len(b) != size {
		return errorsmod.Wrapf(ErrInvalidDelegator, "expected %d bytes, got %d", size, len(b))
	}
	return nil
}

// IsLocal reports whether the delegator is a sub-account of the local sovereign
// account, in which case transfers to it settle synchronously.
func (d Delegator) IsLocal() bool {
	return d.Scheme == DerivativeIndex
}

// LocalAccount is the ledger account of a local sub-account delegator.
func (d Delegator) LocalAccount(sovereign string) string {
	return fmt.Sprintf("%s/sub/%s", sovereign, d.Value)
}

// Key is the canonical string form "scheme:value", used in URLs and as a
// storage key.
func (d Delegator) Key() string {
	return string(d.Scheme) + ":" + d.Value
}

func (d Delegator) String() string {
	return d.Key()
}

func ParseDelegatorKey(key string) (Delegator, error) {
	scheme, value, ok := strings.Cut(key, ":")
	if !ok {
		return Delegator{}, errorsmod.Wrapf(ErrInvalidDelegator, "malformed key %q", key)
	}
	return NewDelegator(DelegatorScheme(scheme), value)
}
