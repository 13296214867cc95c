package helpers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   float64
		currency string
		want     string
	}{
		{amount: 1250, currency: "USD", want: "$1,250.00"},
		{amount: 100, currency: "usd", want: "$100.00"},
		{amount: 1500000, currency: "VND", want: "₫1,500,000"},
		{amount: 12.5, currency: "CHF", want: "12.50 CHF"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(tt.amount, tt.currency))
		})
	}
}

func TestNewSagaID(t *testing.T) {
	a, b := NewSagaID("DEP"), NewSagaID("DEP")
	assert.True(t, strings.HasPrefix(a, "DEP-"))
	assert.NotEqual(t, a, b)
}

func TestSince(t *testing.T) {
	assert.Equal(t, "3 minutes ago", Since(time.Now().Add(-3*time.Minute)))
}

func TestIsStringSliceContains(t *testing.T) {
	assert.True(t, IsStringSliceContains([]string{"a", "b"}, "b"))
	assert.False(t, IsStringSliceContains(nil, "b"))
}
