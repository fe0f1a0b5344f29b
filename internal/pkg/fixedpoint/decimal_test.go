package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStringRoundTrip(t *testing.T) {
	cases := []struct {
		s     string
		scale uint32
	}{
		{"0.000000000000000000", 18},
		{"1.500000000000000000", 18},
		{"-42.123456", 6},
		{"123456789.00", 2},
		{"0.01", 2},
	}
	for _, tc := range cases {
		d, err := FromString(tc.s, tc.scale)
		require.NoError(t, err, tc.s)
		assert.Equal(t, tc.s, d.String(), "round trip of %q", tc.s)
	}
}

func TestFromStringRejectsExcessPrecision(t *testing.T) {
	_, err := FromString("1.123", 2)
	require.Error(t, err)

	_, err = FromString("abc", 2)
	require.Error(t, err)

	_, err = FromString("", 2)
	require.Error(t, err)
}

func TestAddRequiresMatchingScale(t *testing.T) {
	a := FromInt64(150, 2)
	b := FromInt64(25, 3)

	_, err := a.Add(b)
	require.Error(t, err)

	sum, err := a.Add(b.Rescale(2, RoundDown))
	require.NoError(t, err)
	assert.Equal(t, "1.52", sum.String())
}

func TestMulGrowsScale(t *testing.T) {
	a := FromInt64(15, 1) // 1.5
	b := FromInt64(20, 1) // 2.0

	p := a.Mul(b)
	assert.Equal(t, uint32(2), p.Scale())
	assert.Equal(t, "3.00", p.String())
}

func TestDivRounding(t *testing.T) {
	a := FromInt64(10, 0)
	b := FromInt64(3, 0)

	down, err := a.Div(b, 2, RoundDown)
	require.NoError(t, err)
	assert.Equal(t, "3.33", down.String())

	half, err := a.Div(b, 0, RoundHalfUp)
	require.NoError(t, err)
	assert.Equal(t, "3", half.String())

	neg, err := FromInt64(-10, 0).Div(b, 2, RoundHalfUp)
	require.NoError(t, err)
	assert.Equal(t, "-3.33", neg.String())

	_, err = a.Div(Zero(0), 2, RoundDown)
	require.Error(t, err)
}

func TestRescale(t *testing.T) {
	d := FromInt64(12345, 3) // 12.345

	up := d.Rescale(6, RoundDown)
	assert.Equal(t, "12.345000", up.String())

	down := d.Rescale(1, RoundHalfUp)
	assert.Equal(t, "12.3", down.String())

	down = FromInt64(12350, 3).Rescale(1, RoundHalfUp)
	assert.Equal(t, "12.4", down.String())
}

func TestZeroValueIsUsable(t *testing.T) {
	var d Decimal
	assert.True(t, d.IsZero())
	assert.Equal(t, "0", d.String())

	sum, err := d.Add(Zero(0))
	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

func TestFromBigIntCopies(t *testing.T) {
	raw := big.NewInt(100)
	d := FromBigInt(raw, 2)
	raw.SetInt64(999)
	assert.Equal(t, "1.00", d.String())
}

func TestMarshalJSON(t *testing.T) {
	d := FromInt64(1500000000000000000, 18)
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.500000000000000000"`, string(b))
}

func TestStringFixedTruncates(t *testing.T) {
	d, err := FromString("1.987654", 6)
	require.NoError(t, err)
	assert.Equal(t, "1.98", d.StringFixed(2))
	assert.Equal(t, "1.98765400", d.StringFixed(8))
}
