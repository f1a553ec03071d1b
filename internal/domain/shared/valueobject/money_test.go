package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid inputs", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), INR)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
		assert.Equal(t, INR, m.Currency())
	})

	t.Run("fails with empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(10), "")
		require.Error(t, err)
	})
}

func TestNewMoneyINRFromString(t *testing.T) {
	t.Run("parses valid decimal string", func(t *testing.T) {
		m, err := NewMoneyINRFromString("1234.56")
		require.NoError(t, err)
		assert.Equal(t, "1234.56", m.StringFixed(2))
	})

	t.Run("rejects malformed string", func(t *testing.T) {
		_, err := NewMoneyINRFromString("abc")
		require.Error(t, err)
	})
}

func TestMoneyArithmetic(t *testing.T) {
	a := NewMoneyINRFromFloat(100)
	b := NewMoneyINRFromFloat(40.25)

	t.Run("adds same currency", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.Equal(t, "140.25", sum.StringFixed(2))
	})

	t.Run("subtracts same currency", func(t *testing.T) {
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.Equal(t, "59.75", diff.StringFixed(2))
	})

	t.Run("rejects mixed currencies", func(t *testing.T) {
		usd, err := NewMoney(decimal.NewFromInt(1), USD)
		require.NoError(t, err)
		_, err = a.Add(usd)
		assert.Error(t, err)
		_, err = a.Subtract(usd)
		assert.Error(t, err)
	})

	t.Run("negate and abs", func(t *testing.T) {
		neg := a.Negate()
		assert.True(t, neg.IsNegative())
		assert.True(t, neg.Abs().Equals(a))
	})
}

func TestMoneyClamp(t *testing.T) {
	lo := ZeroINR()
	hi := NewMoneyINRFromFloat(300)

	t.Run("below range clamps to lower bound", func(t *testing.T) {
		m, err := NewMoneyINRFromFloat(-50).Clamp(lo, hi)
		require.NoError(t, err)
		assert.True(t, m.IsZero())
	})

	t.Run("above range clamps to upper bound", func(t *testing.T) {
		m, err := NewMoneyINRFromFloat(999).Clamp(lo, hi)
		require.NoError(t, err)
		assert.True(t, m.Equals(hi))
	})

	t.Run("inside range is unchanged", func(t *testing.T) {
		v := NewMoneyINRFromFloat(200)
		m, err := v.Clamp(lo, hi)
		require.NoError(t, err)
		assert.True(t, m.Equals(v))
	})

	t.Run("rejects mixed currencies", func(t *testing.T) {
		usd, err := NewMoney(decimal.NewFromInt(1), USD)
		require.NoError(t, err)
		_, err = usd.Clamp(lo, hi)
		assert.Error(t, err)
	})
}

func TestMoneyComparisons(t *testing.T) {
	a := NewMoneyINRFromFloat(100)
	b := NewMoneyINRFromFloat(200)

	less, err := a.LessThan(b)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := b.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, greater)

	assert.True(t, a.Equals(NewMoneyINRFromFloat(100)))
	assert.False(t, a.Equals(b))
}

func TestMoneyJSON(t *testing.T) {
	t.Run("round trips through JSON", func(t *testing.T) {
		m := NewMoneyINRFromFloat(500.75)
		data, err := json.Marshal(m)
		require.NoError(t, err)

		var decoded Money
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, m.Equals(decoded))
	})

	t.Run("rejects invalid amount", func(t *testing.T) {
		var decoded Money
		err := json.Unmarshal([]byte(`{"amount":"oops","currency":"INR"}`), &decoded)
		assert.Error(t, err)
	})
}

func TestMoneyScan(t *testing.T) {
	t.Run("scans string value", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("123.45"))
		assert.Equal(t, "123.45", m.StringFixed(2))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("scans nil as zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
	})

	t.Run("rejects unsupported type", func(t *testing.T) {
		var m Money
		assert.Error(t, m.Scan(42))
	})
}
