package steps

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
)

func TestRequiredFunds(t *testing.T) {
	tests := []struct {
		name      string
		order     entities.OrderBuyDetails
		feeBuffer float64
		want      float64
		wantPrice float64
		wantErr   error
	}{
		{
			name:      "market_uses_market_price",
			order:     entities.OrderBuyDetails{OrderType: constants.OrderTypeMarket, Quantity: 10, MarketPrice: 100, LimitPrice: 90},
			feeBuffer: 0.01,
			want:      1010,
			wantPrice: 100,
		},
		{
			name:      "limit_uses_limit_price",
			order:     entities.OrderBuyDetails{OrderType: constants.OrderTypeLimit, Quantity: 10, MarketPrice: 100, LimitPrice: 90},
			feeBuffer: 0.5,
			want:      1350,
			wantPrice: 90,
		},
		{
			name:    "market_without_price",
			order:   entities.OrderBuyDetails{OrderType: constants.OrderTypeMarket, Quantity: 10},
			wantErr: sagaerrors.ErrMissingPrice,
		},
		{
			name:    "limit_with_negative_price",
			order:   entities.OrderBuyDetails{OrderType: constants.OrderTypeLimit, Quantity: 10, LimitPrice: -1, MarketPrice: 100},
			wantErr: sagaerrors.ErrMissingPrice,
		},
		{
			name:    "zero_quantity",
			order:   entities.OrderBuyDetails{OrderType: constants.OrderTypeMarket, MarketPrice: 100},
			wantErr: sagaerrors.ErrInvalidPayload,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := tt.order
			funds, price, err := RequiredFunds(&order, tt.feeBuffer)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, funds, 1e-9)
			assert.Equal(t, tt.wantPrice, price)
		})
	}
}

func TestOrderBuy_LocalFundsStep(t *testing.T) {
	def := NewOrderBuyDefinition(0.02)
	step, ok := def.Step(StepCalculateRequiredFunds)
	require.True(t, ok)
	require.True(t, step.IsLocal())

	state := &entities.SagaState{
		SagaID:   "OBY-1",
		OrderBuy: &entities.OrderBuyDetails{OrderType: constants.OrderTypeMarket, Quantity: 2, MarketPrice: 50},
	}
	require.NoError(t, step.Local(state))
	assert.InDelta(t, 102.0, state.OrderBuy.RequiredFunds, 1e-9)
	assert.InDelta(t, 102.0, state.StepData[DataRequiredFunds], 1e-9)
	assert.Equal(t, 50.0, state.StepData[DataPriceUsed])

	missing := &entities.SagaState{SagaID: "OBY-2", OrderBuy: &entities.OrderBuyDetails{OrderType: constants.OrderTypeMarket, Quantity: 2}}
	assert.Error(t, step.Local(missing))
}

func TestOrderBuy_ExtractExecution(t *testing.T) {
	step, ok := NewOrderBuyDefinition(DefaultFeeBuffer).Step(StepSubmitOrder)
	require.True(t, ok)

	state := &entities.SagaState{OrderBuy: &entities.OrderBuyDetails{}}
	err := step.Extract(state, map[string]interface{}{
		"venueOrderId":     "V-1",
		"executionPrice":   "101.5",
		"executedQuantity": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "V-1", state.OrderBuy.VenueOrderID)
	assert.Equal(t, 101.5, state.OrderBuy.ExecutionPrice)
	assert.Equal(t, 3.0, state.OrderBuy.ExecutedQuantity)

	err = step.Extract(state, map[string]interface{}{"venueOrderId": "V-1"})
	assert.True(t, errors.Is(err, sagaerrors.ErrInvalidPayload))
}

func TestDeposit_PayloadCarriesEarlierResults(t *testing.T) {
	step, ok := Deposit.Step(StepProcessPayment)
	require.True(t, ok)

	state := &entities.SagaState{Deposit: &entities.DepositDetails{
		UserID: "u1", AccountID: "a1", Amount: 100, Currency: "USD", PaymentMethodID: "pm1", TransactionID: "tx-9",
	}}
	payload, err := step.Payload(state)
	require.NoError(t, err)
	m, err := entities.ToPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "tx-9", m["transactionId"])
	assert.Equal(t, 100.0, m["amount"])
	assert.Equal(t, "pm1", m["paymentMethodId"])

	_, err = step.Payload(&entities.SagaState{})
	assert.Error(t, err)
}
