package test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"saga-orchestrator/application"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	"saga-orchestrator/domain/steps"
	"saga-orchestrator/utils/helpers"
)

func deadLetters(t *testing.T, th *MockService) []application.DeadLetter {
	var res []application.DeadLetter
	for _, rec := range th.Broker.Records(constants.TopicDeadLetter) {
		var letter application.DeadLetter
		require.NoError(t, json.Unmarshal(rec.Value, &letter))
		res = append(res, letter)
	}
	return res
}

func TestConsumeEvent_DeadLetters(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		value string
		err   string
	}{
		{name: "invalid-json", topic: "user.events.deposit", value: `{"sagaId":`, err: "invalid payload"},
		{name: "missing-saga-id", topic: "user.events.deposit", value: `{"messageId":"m-1","type":"USER_IDENTITY_VERIFIED"}`, err: "sagaId and type are required"},
		{name: "unknown-flow", topic: "user.events.refund", value: `{}`, err: "unknown saga flow"},
		{name: "not-an-event-topic", topic: "user.commands.deposit", value: `{}`, err: "unknown saga flow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := NewTestSagaApplication(t)
			err := th.App.ConsumeEvent(context.Background(), tt.topic, []byte("DEP-1"), []byte(tt.value))
			require.NoError(t, err)

			letters := deadLetters(t, th)
			require.Len(t, letters, 1)
			assert.Equal(t, tt.topic, letters[0].OriginalTopic)
			assert.Contains(t, letters[0].Error, tt.err)
			assert.NotEmpty(t, letters[0].FailedAt)
			assert.Equal(t, "DEP-1", th.Broker.Records(constants.TopicDeadLetter)[0].Key)
		})
	}
}

func TestConsumeEvent_AdvancesSaga(t *testing.T) {
	th := NewTestSagaApplication(t)
	state := startDeposit(t, th)
	cmd := th.LastCommand(t)

	// a reply that omits stepId and success still matches the current step
	value, err := json.Marshal(map[string]interface{}{
		"messageId":     helpers.GetUUId(),
		"sagaId":        state.SagaID,
		"type":          constants.EvtUserIdentityVerified,
		"sourceService": cmd.TargetService,
	})
	require.NoError(t, err)
	require.NoError(t, th.App.ConsumeEvent(context.Background(), "user.events.deposit", []byte(state.SagaID), value))

	assert.Equal(t, steps.StepValidateAccount, th.Saga(t, state.SagaID).CurrentStep)
	assert.Empty(t, deadLetters(t, th))
}

func TestConsumeEvent_UnknownSagaIsAcknowledged(t *testing.T) {
	th := NewTestSagaApplication(t)
	value := []byte(`{"messageId":"m-9","sagaId":"DEP-none","type":"USER_IDENTITY_VERIFIED"}`)
	assert.NoError(t, th.App.ConsumeEvent(context.Background(), "user.events.deposit", []byte("DEP-none"), value))
	assert.Empty(t, deadLetters(t, th))
}

func TestConsumeEvents_FromBroker(t *testing.T) {
	th := NewTestSagaApplication(t)
	state := startDeposit(t, th)
	cmd := th.LastCommand(t)
	ev := th.Reply(t, cmd, true, nil)
	value, err := json.Marshal(ev)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- th.App.ConsumeEvents(ctx)
	}()

	// redelivering the same message is harmless, so keep producing until the consumer is subscribed
	assert.Eventually(t, func() bool {
		_ = th.Broker.Produce(ctx, "user.events.deposit", state.SagaID, value)
		return th.Saga(t, state.SagaID).CurrentStep == steps.StepValidateAccount
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Len(t, th.Broker.Records("account.commands.deposit"), 1)
}

func TestJobPurgeProcessed(t *testing.T) {
	th := NewTestSagaApplication(t)
	ctx := context.Background()
	require.NoError(t, th.App.Ledger.RecordProcessing(ctx, "old", "DEP-1", 1, constants.EvtUserIdentityVerified, nil))
	th.Clock.Advance(25 * time.Hour)
	require.NoError(t, th.App.Ledger.RecordProcessing(ctx, "new", "DEP-1", 2, constants.EvtAccountValidated, nil))

	deleted, err := th.App.JobPurgeProcessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	processed, err := th.App.Ledger.IsProcessed(ctx, "new")
	require.NoError(t, err)
	assert.True(t, processed)
	processed, err = th.App.Ledger.IsProcessed(ctx, "old")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestLedger_RecordTwiceKeepsFirst(t *testing.T) {
	th := NewTestSagaApplication(t)
	ctx := context.Background()
	require.NoError(t, th.App.Ledger.RecordProcessing(ctx, "m-1", "DEP-1", 1, "A", map[string]interface{}{"n": 1}))
	require.NoError(t, th.App.Ledger.RecordProcessing(ctx, "m-1", "DEP-1", 1, "A", map[string]interface{}{"n": 2}))

	result, err := th.App.Ledger.GetProcessedResult(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result["n"])
}

func TestJobCheckTimeouts_NothingStuck(t *testing.T) {
	th := NewTestSagaApplication(t)
	state := startDeposit(t, th)
	report := th.App.JobCheckTimeouts(context.Background())
	assert.Equal(t, application.TimeoutReport{}, *report)
	assert.Equal(t, entities.SagaStatusStarted, th.Saga(t, state.SagaID).Status)
}
