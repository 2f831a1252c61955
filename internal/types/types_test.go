package types

import (
	"math/big"
	"testing"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeUnitCompare(t *testing.T) {
	c, err := NewTimeUnit(Era, 4).Compare(NewTimeUnit(Era, 5))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = NewTimeUnit(Round, 7).Compare(NewTimeUnit(Round, 7))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	_, err = NewTimeUnit(Era, 1).Compare(NewTimeUnit(Round, 1))
	require.Error(t, err)
	assert.True(t, errorsmod.IsOf(err, ErrMixedTimeUnit))
}

func TestTimeUnitAdd(t *testing.T) {
	next, err := NewTimeUnit(Era, 4).Add(NewTimeUnit(Era, 1))
	require.NoError(t, err)
	assert.Equal(t, NewTimeUnit(Era, 5), next)

	_, err = NewTimeUnit(Era, 4).Add(NewTimeUnit(Hour, 1))
	assert.True(t, errorsmod.IsOf(err, ErrMixedTimeUnit))

	_, err = NewTimeUnit(Kblock, ^uint32(0)).Next()
	assert.True(t, errorsmod.IsOf(err, ErrOverflow))
}

func TestParseTimeUnit(t *testing.T) {
	tu, err := ParseTimeUnit("Era(12)")
	require.NoError(t, err)
	assert.Equal(t, NewTimeUnit(Era, 12), tu)
	assert.Equal(t, "era(12)", tu.String())

	tu, err = ParseTimeUnit("slashing_span(3)")
	require.NoError(t, err)
	assert.Equal(t, SlashingSpan, tu.Kind)

	_, err = ParseTimeUnit("week(1)")
	assert.Error(t, err)
	_, err = ParseTimeUnit("era")
	assert.Error(t, err)
}

func TestCheckedArithmetic(t *testing.T) {
	sum, err := CheckedAdd(sdkmath.NewInt(2), sdkmath.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, "5", sum.String())

	_, err = CheckedSub(sdkmath.NewInt(2), sdkmath.NewInt(3))
	assert.True(t, errorsmod.IsOf(err, ErrUnderflow))

	maxInt := sdkmath.NewIntFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))
	_, err = CheckedAdd(maxInt, sdkmath.OneInt())
	assert.True(t, errorsmod.IsOf(err, ErrOverflow))

	r, err := MulDiv(sdkmath.NewInt(20), sdkmath.NewInt(200), sdkmath.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, "40", r.String())

	_, err = MulDiv(sdkmath.NewInt(1), sdkmath.NewInt(1), sdkmath.ZeroInt())
	assert.True(t, errorsmod.IsOf(err, ErrDivByZero))
}

func TestApplyRate(t *testing.T) {
	rate := sdkmath.LegacyMustNewDecFromStr("0.1")
	assert.Equal(t, "10", ApplyRate(sdkmath.NewInt(105), rate).String())
	assert.True(t, ApplyRate(sdkmath.NewInt(105), sdkmath.LegacyZeroDec()).IsZero())

	_, err := ParseRate("1.5")
	assert.True(t, errorsmod.IsOf(err, ErrInvalidFee))
	_, err = ParseRate("-0.1")
	assert.Error(t, err)
}

func TestDelegator(t *testing.T) {
	d, err := NewDelegator(Key20, "0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD")
	require.NoError(t, err)
	assert.Equal(t, "abcdefabcdefabcdefabcdefabcdefabcdefabcd", d.Value)
	assert.False(t, d.IsLocal())

	parsed, err := ParseDelegatorKey(d.Key())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = NewDelegator(Account32, "abcd")
	assert.True(t, errorsmod.IsOf(err, ErrInvalidDelegator))

	local, err := NewDelegator(DerivativeIndex, "3")
	require.NoError(t, err)
	assert.True(t, local.IsLocal())
	assert.Equal(t, "sovereign/sub/3", local.LocalAccount("sovereign"))

	_, err = NewDelegator(DerivativeIndex, "70000")
	assert.Error(t, err)
}

func TestAsset(t *testing.T) {
	ksm := Asset("KSM")
	assert.Equal(t, Asset("vKSM"), ksm.VToken())
	assert.True(t, ksm.VToken().IsVToken())
	assert.False(t, ksm.IsVToken())
	assert.Equal(t, ksm, ksm.VToken().Underlying())
	assert.NoError(t, ksm.Validate())
	assert.Error(t, Asset("").Validate())
}

func TestPoolExchangeRate(t *testing.T) {
	p := Pool{TokenPool: sdkmath.NewInt(100)}
	assert.Equal(t, "0.500000000000000000", p.ExchangeRate(sdkmath.NewInt(200)).String())
	assert.True(t, p.ExchangeRate(sdkmath.ZeroInt()).Equal(sdkmath.LegacyOneDec()))
}
