package types

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
)

const maxBitLen = 256

// Checked arithmetic on balances. Results never saturate: an operation that
// would leave the 256 bit range or go negative returns ErrOverflow or
// ErrUnderflow instead.

func CheckedAdd(a, b sdkmath.Int) (sdkmath.Int, error) {
	if a.IsNil() || b.IsNil() {
		return sdkmath.Int{}, errorsmod.Wrap(ErrInvalidAmount, "missing operand")
	}
	r := new(big.Int).Add(a.BigInt(), b.BigInt())
	if r.BitLen() > maxBitLen {
		return sdkmath.Int{}, errorsmod.Wrapf(ErrOverflow, "%s + %s", a, b)
	}
	return sdkmath.NewIntFromBigInt(r), nil
}

func CheckedSub(a, b sdkmath.Int) (sdkmath.Int, error) {
	if a.IsNil() || b.IsNil() {
		return sdkmath.Int{}, errorsmod.Wrap(ErrInvalidAmount, "missing operand")
	}
	if a.LT(b) {
		return sdkmath.Int{}, errorsmod.Wrapf(ErrUnderflow, "%s - %s", a, b)
	}
	return a.Sub(b), nil
}

// MulDiv returns floor(a * b / c).
func MulDiv(a, b, c sdkmath.Int) (sdkmath.Int, error) {
	if c.IsZero() {
		return sdkmath.Int{}, errorsmod.Wrapf(ErrDivByZero, "%s * %s / 0", a, b)
	}
	r := new(big.Int).Mul(a.BigInt(), b.BigInt())
	r.Quo(r, c.BigInt())
	if r.BitLen() > maxBitLen {
		return sdkmath.Int{}, errorsmod.Wrapf(ErrOverflow, "%s * %s / %s", a, b, c)
	}
	return sdkmath.NewIntFromBigInt(r), nil
}

// ApplyRate returns floor(amount * rate).
func ApplyRate(amount sdkmath.Int, rate sdkmath.LegacyDec) sdkmath.Int {
	if rate.IsZero() || amount.IsZero() {
		return sdkmath.ZeroInt()
	}
	return amount.ToLegacyDec().Mul(rate).TruncateInt()
}

// ValidateRate checks 0 <= rate <= 1.
func ValidateRate(rate sdkmath.LegacyDec) error {
	if rate.IsNil() || rate.IsNegative() || rate.GT(sdkmath.LegacyOneDec()) {
		return errorsmod.Wrapf(ErrInvalidFee, "rate %s outside [0, 1]", rate)
	}
	return nil
}

// ValidateAmount rejects amounts that are missing, negative or wider than
// 256 bits.
func ValidateAmount(field string, v sdkmath.Int) error {
	switch {
	case v.IsNil():
		return errorsmod.Wrapf(ErrInvalidAmount, "%s is missing", field)
	case v.IsNegative():
		return errorsmod.Wrapf(ErrInvalidAmount, "%s is negative: %s", field, v)
	case v.BigInt().BitLen() > maxBitLen:
		return errorsmod.Wrapf(ErrOverflow, "%s exceeds %d bits", field, maxBitLen)
	}
	return nil
}

// ParseAmount parses a non-negative integer amount.
func ParseAmount(s string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, errorsmod.Wrapf(ErrInvalidAmount, "cannot parse %q", s)
	}
	if v.IsNegative() {
		return sdkmath.Int{}, errorsmod.Wrapf(ErrInvalidAmount, "negative amount %q", s)
	}
	return v, nil
}

// ParseRate parses a fee rate in [0, 1].
func ParseRate(s string) (sdkmath.LegacyDec, error) {
	d, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyDec{}, errorsmod.Wrapf(ErrInvalidFee, "cannot parse %q", s)
	}
	if err := ValidateRate(d); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return d, nil
}
