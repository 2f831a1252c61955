package model

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Amounts are persisted as decimal strings, bson has no 256 bit integer.

func intToString(v sdkmath.Int) string {
	if v.IsNil() {
		return "0"
	}
	return v.String()
}

func intFromString(field, s string) (sdkmath.Int, error) {
	if s == "" {
		return sdkmath.ZeroInt(), nil
	}
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("invalid %s amount %q", field, s)
	}
	return v, nil
}

func decToString(v sdkmath.LegacyDec) string {
	if v.IsNil() {
		return "0"
	}
	return v.String()
}

func decFromString(field, s string) (sdkmath.LegacyDec, error) {
	if s == "" {
		return sdkmath.LegacyZeroDec(), nil
	}
	v, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("invalid %s rate %q: %w", field, s, err)
	}
	return v, nil
}
