package infra

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "96.50", "-12.3456", "4903.50", "0.0001", "100000000.99"} {
		d := decimal.RequireFromString(s)
		n := DecimalToNumeric(d)
		back, err := NumericToDecimal(n)
		require.NoError(t, err, s)
		assert.True(t, d.Equal(back), "round trip %s got %s", s, back)
	}
}

func TestNumericToDecimal_PositiveExponent(t *testing.T) {
	// 42 * 10^2 = 4200
	n := pgtype.Numeric{Int: big.NewInt(42), Exp: 2, Valid: true}
	d, err := NumericToDecimal(n)
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(4200)))
}

func TestNumericToDecimal_RejectsNull(t *testing.T) {
	_, err := NumericToDecimal(pgtype.Numeric{Valid: false})
	assert.Error(t, err)
}

func TestNumericToDecimal_RejectsNaN(t *testing.T) {
	_, err := NumericToDecimal(pgtype.Numeric{NaN: true, Valid: true})
	assert.Error(t, err)
}

func TestNumericToDecimal_RejectsInfinity(t *testing.T) {
	_, err := NumericToDecimal(pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true, Int: big.NewInt(0)})
	assert.Error(t, err)
}
