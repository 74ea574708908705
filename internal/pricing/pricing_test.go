package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCalculateTotalAmount(t *testing.T) {
	t.Parallel()

	total := CalculateTotalAmount([]Line{
		{UnitPrice: dec(20000), Quantity: 2},
		{UnitPrice: decimal.RequireFromString("1500.50"), Quantity: 3},
	})
	require.True(t, total.Equal(decimal.RequireFromString("44501.50")), total.String())

	require.True(t, CalculateTotalAmount(nil).IsZero())
}

func TestCalculateFinalAmountClampsNegativeInputs(t *testing.T) {
	t.Parallel()

	final := CalculateFinalAmount(dec(10000), dec(-500), dec(-3000))
	require.True(t, final.Equal(dec(10000)))

	final = CalculateFinalAmount(dec(10000), dec(1000), dec(3000))
	require.True(t, final.Equal(dec(12000)))
}

func TestAmountsRecomputeFinalOnEveryChange(t *testing.T) {
	t.Parallel()

	a := NewAmounts(dec(40000), dec(0), dec(3000))
	require.True(t, a.Final().Equal(dec(43000)))

	a = a.WithDiscount(dec(5000))
	require.True(t, a.Final().Equal(dec(38000)))

	a = a.WithDeliveryFee(dec(0))
	require.True(t, a.Final().Equal(dec(35000)))

	a = NewAmounts(dec(60000), a.Discount(), a.DeliveryFee())
	require.True(t, a.Final().Equal(dec(55000)))

	for _, amounts := range []Amounts{a, a.WithDiscount(dec(-1)), a.WithDeliveryFee(dec(7))} {
		expected := amounts.Total().Sub(amounts.Discount()).Add(amounts.DeliveryFee())
		require.True(t, amounts.Final().Equal(expected))
	}
}

func TestDeliveryPolicyFee(t *testing.T) {
	t.Parallel()

	policy := DefaultDeliveryPolicy()

	require.True(t, policy.Fee(dec(49999)).Equal(dec(3000)))
	require.True(t, policy.Fee(dec(50000)).IsZero())
	require.True(t, policy.Fee(dec(120000)).IsZero())
	require.True(t, policy.RemainingForFreeShipping(dec(45000)).Equal(dec(5000)))
	require.True(t, policy.RemainingForFreeShipping(dec(50000)).IsZero())

	custom := DeliveryPolicy{FreeShippingThreshold: dec(30000), FlatFee: dec(2500)}
	require.True(t, custom.Fee(dec(29999)).Equal(dec(2500)))
	require.True(t, custom.Fee(dec(30000)).IsZero())
}
