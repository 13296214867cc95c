package value_objects

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"saga-orchestrator/domain/entities"
)

func TestNewSagaDTO_KeepsRecentEvents(t *testing.T) {
	state := &entities.SagaState{
		SagaID:   "DEP-1",
		SagaType: entities.SagaTypeDeposit,
		Status:   entities.SagaStatusInProgress,
	}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		state.AppendEvent(entities.LogTypeSagaStepExec, fmt.Sprintf("event-%d", i), at.Add(time.Duration(i)*time.Second))
	}

	dto := NewSagaDTO(state)

	assert.Len(t, dto.SagaEvents, RecentEventsWindow)
	assert.Equal(t, "event-5", dto.SagaEvents[0].Description)
	assert.Equal(t, "event-14", dto.SagaEvents[RecentEventsWindow-1].Description)
	assert.Equal(t, "STEP_EXECUTED", dto.SagaEvents[0].Type)
	assert.Len(t, state.SagaEvents, 15)
	assert.Equal(t, "IN_PROGRESS", dto.Status)
	assert.NotNil(t, dto.CompletedSteps)
}

func TestNewSagaListDTO(t *testing.T) {
	list := NewSagaListDTO([]*entities.SagaState{{SagaID: "a"}, {SagaID: "b"}})
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "b", list.Sagas[1].SagaID)

	empty := NewSagaListDTO(nil)
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Sagas)
}

func TestNewSagaDTO_DetailsUseCamelCaseKeys(t *testing.T) {
	state := &entities.SagaState{
		SagaID:   "DEP-2",
		SagaType: entities.SagaTypeDeposit,
		Deposit:  &entities.DepositDetails{UserID: "u1", AccountID: "a1", Amount: 5, Currency: "USD", PaymentMethodID: "card", TransactionID: "TX-1"},
	}
	raw, err := json.Marshal(NewSagaDTO(state))
	require.NoError(t, err)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &top))
	deposit := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(top["deposit"], &deposit))

	assert.Equal(t, "u1", deposit["userId"])
	assert.Equal(t, "card", deposit["paymentMethodId"])
	assert.Equal(t, "TX-1", deposit["transactionId"])
	assert.NotContains(t, deposit, "user_id")
	assert.NotContains(t, top, "withdrawal")
	assert.NotContains(t, top, "orderBuy")
}

func TestNewSagaDTO_OrderBuyDetails(t *testing.T) {
	dto := NewSagaDTO(&entities.SagaState{OrderBuy: &entities.OrderBuyDetails{Symbol: "AAPL", OrderType: "LIMIT", ReservationID: "R-1"}})
	require.NotNil(t, dto.OrderBuy)
	assert.Equal(t, "AAPL", dto.OrderBuy.Symbol)
	assert.Equal(t, "R-1", dto.OrderBuy.ReservationID)
	assert.Nil(t, dto.Deposit)
	assert.Nil(t, dto.Withdrawal)
}
