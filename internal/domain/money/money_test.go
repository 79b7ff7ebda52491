package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRate(t *testing.T) {
	cases := []struct {
		name   string
		amount Cents
		rate   Rate
		want   Cents
	}{
		{"vat on R500", 50000, DefaultVAT, 7500},
		{"below half cent rounds down", 3, 1500, 0},
		{"exact half rounds away from zero", 10, 500, 1},
		{"negative half rounds away from zero", -10, 500, -1},
		{"zero rate", 12345, 0, 0},
		{"R799 at 15%", 79900, 1500, 11985},
		{"R16.07 at 15%", 1607, 1500, 241},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ApplyRate(tc.amount, tc.rate))
		})
	}
}

func TestProrate(t *testing.T) {
	// R799 for 16 of 28 days in February 2026.
	assert.Equal(t, Cents(45657), Prorate(79900, 16, 28))
	assert.Equal(t, Cents(79900), Prorate(79900, 31, 30))
	assert.Equal(t, Cents(0), Prorate(79900, 0, 30))
	assert.Equal(t, Cents(0), Prorate(79900, 10, 0))
	// 50000 * 1 / 3 = 16666.67 -> 16667
	assert.Equal(t, Cents(16667), Prorate(50000, 1, 3))
}

func TestParseRate(t *testing.T) {
	r, err := ParseRate("15")
	require.NoError(t, err)
	assert.Equal(t, Rate(1500), r)

	r, err = ParseRate("15.5%")
	require.NoError(t, err)
	assert.Equal(t, Rate(1550), r)
	assert.Equal(t, "15.5%", r.String())

	_, err = ParseRate("15.125")
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = ParseRate("-1")
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = ParseRate("abc")
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestParseAndFormat(t *testing.T) {
	c, err := Parse("R16.08")
	require.NoError(t, err)
	assert.Equal(t, Cents(1608), c)

	c, err = Parse("R 1,234.50")
	require.NoError(t, err)
	assert.Equal(t, Cents(123450), c)

	c, err = Parse("-5")
	require.NoError(t, err)
	assert.Equal(t, Cents(-500), c)

	_, err = Parse("R1.005")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Parse("R")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Equal(t, "R16.08", Format(1608, "ZAR"))
	assert.Equal(t, "R1,234.50", Format(123450, "ZAR"))
	assert.Equal(t, "-R0.05", Format(-5, "ZAR"))
	assert.Equal(t, "R575.00", Format(57500, ""))
}

func TestMajorConversions(t *testing.T) {
	assert.True(t, ToMajor(57500).Equal(decimal.RequireFromString("575")))
	assert.Equal(t, Cents(57500), FromMajor(decimal.RequireFromString("575.00")))
	assert.Equal(t, Cents(1609), FromMajor(decimal.RequireFromString("16.085")))
}
