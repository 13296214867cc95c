package test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	"saga-orchestrator/domain/request_params"
	"saga-orchestrator/domain/steps"
)

var withdrawalReplies = []map[string]interface{}{
	{},
	{},
	{},
	{"availableBalance": "500"},
	{"transactionId": "TX-9"},
	{},
}

func startWithdrawal(t *testing.T, th *MockService) *entities.SagaState {
	state, err := th.App.Withdrawal.Start(context.Background(), &request_params.WithdrawalReq{
		UserID:          "user-2",
		AccountID:       "acc-2",
		Amount:          250,
		Currency:        "EUR",
		PaymentMethodID: "iban-1",
		Description:     "rent",
	})
	require.NoError(t, err)
	return state
}

func TestWithdrawal_CompensatesFromBalanceReversal(t *testing.T) {
	th := NewTestSagaApplication(t)
	th.AllowNotifications()
	state := startWithdrawal(t, th)
	for _, payload := range withdrawalReplies {
		th.Answer(t, true, payload)
	}
	require.Equal(t, steps.StepProcessPayment, th.Saga(t, state.SagaID).CurrentStep)
	assert.Equal(t, 500.0, th.Saga(t, state.SagaID).Withdrawal.AvailableBalance)

	// payout rejected after the balance was debited
	th.Answer(t, false, nil)

	s := th.Saga(t, state.SagaID)
	assert.Equal(t, entities.SagaStatusCompensating, s.Status)
	assert.Equal(t, steps.StepCompReverseBalanceUpdate, s.CurrentStep)
	cmd := th.LastCommand(t)
	assert.Equal(t, constants.CmdAccountWithdrawalReverseBalanceUpdate, cmd.Type)
	assert.Equal(t, "account.commands.withdrawal", constants.CommandTopic(cmd.TargetService, constants.FlowWithdrawal))
	assert.Equal(t, "TX-9", cmd.Payload["transactionId"])

	th.Answer(t, true, nil)
	s = th.Saga(t, state.SagaID)
	assert.Equal(t, steps.StepCompMarkTransactionFailed, s.CurrentStep)
	assert.Equal(t, constants.CmdTransactionMarkFailed, th.LastCommand(t).Type)

	th.Answer(t, true, nil)
	final := th.Saga(t, state.SagaID)
	assert.Equal(t, entities.SagaStatusCompensationCompleted, final.Status)
	assert.Equal(t, steps.StepCompleteCompensation, final.CurrentStep)
	assert.Equal(t, "PAYMENT_PAYOUT rejected", final.FailureReason)
	assert.Contains(t, final.CompletedSteps, steps.StepCompReverseBalanceUpdate)
	assert.Contains(t, final.CompletedSteps, steps.StepCompMarkTransactionFailed)
	th.Alerter.AssertNotCalled(t, "Alert", mock.Anything, mock.Anything)
}

func TestWithdrawal_StepFailureBeforeBalanceUpdate(t *testing.T) {
	th := NewTestSagaApplication(t)
	th.AllowNotifications()
	state := startWithdrawal(t, th)
	for _, payload := range withdrawalReplies[:5] {
		th.Answer(t, true, payload)
	}

	// balance debit refused, only the transaction must be marked failed
	th.Answer(t, false, nil)
	s := th.Saga(t, state.SagaID)
	assert.Equal(t, entities.SagaStatusCompensating, s.Status)
	assert.Equal(t, steps.StepCompMarkTransactionFailed, s.CurrentStep)
}

func TestWithdrawal_CompensationFailureAlerts(t *testing.T) {
	th := NewTestSagaApplication(t)
	th.Notifier.On("NotifyStatus", mock.Anything, mock.Anything).Return(nil)
	state := startWithdrawal(t, th)
	th.Alerter.On("Alert", mock.Anything, mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, state.SagaID)
	})).Return(nil).Once()

	for _, payload := range withdrawalReplies {
		th.Answer(t, true, payload)
	}
	th.Answer(t, false, nil)
	th.Answer(t, false, nil)

	final := th.Saga(t, state.SagaID)
	assert.Equal(t, entities.SagaStatusFailed, final.Status)
	assert.Equal(t, steps.StepCompReverseBalanceUpdate, final.CurrentStep)
	assert.Equal(t, "PAYMENT_PAYOUT rejected", final.FailureReason)
	th.Alerter.AssertExpectations(t)
	th.Notifier.AssertCalled(t, "NotifyStatus", mock.Anything, mock.MatchedBy(func(s *entities.SagaState) bool {
		return s.Status.IsFailed()
	}))
}

func TestWithdrawal_CompensationTimeoutFails(t *testing.T) {
	th := NewTestSagaApplication(t)
	th.AllowNotifications()
	state := startWithdrawal(t, th)
	for _, payload := range withdrawalReplies {
		th.Answer(t, true, payload)
	}
	th.Answer(t, false, nil)
	require.Equal(t, entities.SagaStatusCompensating, th.Saga(t, state.SagaID).Status)

	timeout := th.Config.Sagas.Withdrawal.TimeoutFor(steps.StepCompReverseBalanceUpdate)
	for i := 0; i < th.Config.Sagas.Withdrawal.MaxRetries; i++ {
		th.Clock.Advance(timeout)
		assert.Equal(t, 1, th.App.JobCheckTimeouts(context.Background()).Retried)
	}
	th.Clock.Advance(timeout)
	assert.Equal(t, 1, th.App.JobCheckTimeouts(context.Background()).Compensated)

	final := th.Saga(t, state.SagaID)
	assert.Equal(t, entities.SagaStatusFailed, final.Status)
	assert.Equal(t, steps.StepCompReverseBalanceUpdate, final.CurrentStep)
	th.Alerter.AssertNumberOfCalls(t, "Alert", 1)
}
