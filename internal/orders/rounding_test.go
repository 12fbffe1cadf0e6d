package orders

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"executor/internal/filters"
)

func TestIntegerRounding(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"250000", "250000"},
		{"2.5", "3"},
		{"2.4999", "2"},
		{"0.4", "0"},
		{"0.5", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := IntegerRounding{}.RoundQuantity("ANY", d(tt.in))
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(got), "got %s", got.String())
		})
	}
}

func TestStepRounding(t *testing.T) {
	policy := StepRounding{StepSize: d("0.01"), MinQty: d("0.1")}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "floors to step", in: "123.456", want: "123.45"},
		{name: "exact multiple", in: "0.25", want: "0.25"},
		{name: "below minimum", in: "0.099", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.RoundQuantity("ANY", d(tt.in))
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(got), "got %s", got.String())
		})
	}

	t.Run("zero step only applies minimum", func(t *testing.T) {
		got, err := StepRounding{}.RoundQuantity("ANY", d("1.2345"))
		require.NoError(t, err)
		assert.True(t, d("1.2345").Equal(got))
	})
}

func TestFilterRounding(t *testing.T) {
	policy := FilterRounding{Validator: filters.NewSymbolValidator([]filters.SymbolFilter{{
		Symbol:  "BTCUSDT",
		Filters: []filters.Filter{&filters.LotSizeFilter{MinQty: d("0.00001"), StepSize: d("0.00001")}},
	}}, zerolog.Nop())}

	got, err := policy.RoundQuantity("BTCUSDT", d("0.000123456"))
	require.NoError(t, err)
	assert.True(t, d("0.00012").Equal(got), "got %s", got.String())

	_, err = policy.RoundQuantity("ETHUSDT", decimal.NewFromInt(1))
	assert.Error(t, err)
}
