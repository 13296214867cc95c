package steps

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
)

func noPayload(*entities.SagaState) (interface{}, error) { return nil, nil }

func TestNewDefinition_Validation(t *testing.T) {
	verify := func(n int, name string) *Step {
		return &Step{Number: n, Name: name, CommandType: constants.CmdUserVerifyIdentity,
			ReplyEventType: constants.EvtUserIdentityVerified, TargetService: constants.ServiceUser, Payload: noPayload}
	}
	create := func(n int) *Step {
		return &Step{Number: n, Name: StepCreateTransaction, CommandType: constants.CmdTransactionCreate,
			ReplyEventType: constants.EvtTransactionCreated, TargetService: constants.ServiceTransaction,
			HasSideEffect: true, Payload: noPayload}
	}
	markFailed := func(n int, undoes string) *Step {
		return &Step{Number: n, Name: StepCompMarkTransactionFailed, CommandType: constants.CmdTransactionMarkFailed,
			ReplyEventType: constants.EvtTransactionMarkedFailed, TargetService: constants.ServiceTransaction,
			Undoes: undoes, Payload: noPayload}
	}

	tests := []struct {
		name         string
		forward      []*Step
		compensation []*Step
		wantErr      bool
	}{
		{
			name:         "valid",
			forward:      []*Step{verify(1, StepVerifyIdentity), create(2)},
			compensation: []*Step{markFailed(101, StepCreateTransaction)},
		},
		{
			name:    "empty",
			wantErr: true,
		},
		{
			name:    "numbers_not_increasing",
			forward: []*Step{create(2), verify(1, StepVerifyIdentity)},
			wantErr: true,
		},
		{
			name:    "forward_in_compensation_range",
			forward: []*Step{verify(100, StepVerifyIdentity)},
			wantErr: true,
		},
		{
			name:         "compensation_below_base",
			forward:      []*Step{create(1)},
			compensation: []*Step{markFailed(50, StepCreateTransaction)},
			wantErr:      true,
		},
		{
			name:         "undo_without_side_effect",
			forward:      []*Step{verify(1, StepVerifyIdentity), create(2)},
			compensation: []*Step{markFailed(101, StepVerifyIdentity)},
			wantErr:      true,
		},
		{
			name:    "duplicate_name",
			forward: []*Step{verify(1, StepVerifyIdentity), verify(2, StepVerifyIdentity)},
			wantErr: true,
		},
		{
			name: "reply_does_not_answer_command",
			forward: []*Step{{Number: 1, Name: StepVerifyIdentity, CommandType: constants.CmdUserVerifyIdentity,
				ReplyEventType: constants.EvtAccountValidated, TargetService: constants.ServiceUser, Payload: noPayload}},
			wantErr: true,
		},
		{
			name:    "local_step_without_command",
			forward: []*Step{{Number: 1, Name: "LOCAL", Local: func(*entities.SagaState) error { return nil }}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDefinition(entities.SagaTypeDeposit, tt.forward, tt.compensation)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, d)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.forward[0].Name, d.First().Name)
		})
	}
}

func TestDefinition_NextStep(t *testing.T) {
	var walked []string
	for s := Deposit.First(); !s.Terminal; {
		walked = append(walked, s.Name)
		next, err := Deposit.NextStep(s.Name)
		require.NoError(t, err)
		assert.Greater(t, next.Number, s.Number)
		s = next
	}
	assert.Equal(t, Deposit.ForwardNames(), walked)
	assert.Len(t, walked, 7)

	last, err := Deposit.NextStep(StepUpdateBalance)
	require.NoError(t, err)
	assert.Equal(t, StepCompleteSaga, last.Name)
	assert.Equal(t, NumberCompleteSaga, last.Number)

	_, err = Deposit.NextStep("NOPE")
	assert.Error(t, err)
}

func TestDefinition_FirstCompensationStep(t *testing.T) {
	orderBuy := NewOrderBuyDefinition(DefaultFeeBuffer)
	tests := []struct {
		name      string
		def       *Definition
		completed []string
		want      string
		wantOK    bool
	}{
		{
			name:      "order_reserved_funds_releases_first",
			def:       orderBuy,
			completed: []string{StepCreateOrder, StepVerifyTradingPermission, StepReserveFunds},
			want:      StepCompReleaseFunds,
			wantOK:    true,
		},
		{
			name:      "order_created_only",
			def:       orderBuy,
			completed: []string{StepCreateOrder, StepVerifyTradingPermission},
			want:      StepCompCancelOrder,
			wantOK:    true,
		},
		{
			name:      "withdrawal_after_balance_update",
			def:       Withdrawal,
			completed: []string{StepVerifyIdentity, StepValidateAccount, StepValidatePaymentMethod, StepCheckBalance, StepCreateTransaction, StepUpdateBalance},
			want:      StepCompReverseBalanceUpdate,
			wantOK:    true,
		},
		{
			name:      "deposit_validation_only",
			def:       Deposit,
			completed: []string{StepVerifyIdentity, StepValidateAccount},
			wantOK:    false,
		},
		{
			name:      "deposit_nothing_done",
			def:       Deposit,
			completed: nil,
			wantOK:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.def.FirstCompensationStep(tt.completed)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.Name)
			}
		})
	}
}

func TestDefinition_NextCompensationStep(t *testing.T) {
	orderBuy := NewOrderBuyDefinition(DefaultFeeBuffer)
	completed := []string{StepCreateOrder, StepVerifyTradingPermission, StepValidateStock, StepCalculateRequiredFunds, StepReserveFunds}

	next, err := orderBuy.NextCompensationStep(StepCompReleaseFunds, completed)
	require.NoError(t, err)
	assert.Equal(t, StepCompCancelOrder, next.Name)

	next, err = orderBuy.NextCompensationStep(StepCompCancelOrder, completed)
	require.NoError(t, err)
	assert.Equal(t, StepCompleteCompensation, next.Name)
	assert.True(t, next.Terminal)

	_, err = orderBuy.NextCompensationStep(StepReserveFunds, completed)
	assert.Error(t, err)
}

// Walking compensation from any forward prefix visits exactly the undo steps of the
// side effects that ran, in table order, and always ends at COMPLETE_COMPENSATION.
func TestDefinition_CompensationWalkProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	for _, def := range []*Definition{Deposit, Withdrawal, NewOrderBuyDefinition(DefaultFeeBuffer)} {
		def := def
		forward := def.ForwardNames()
		properties.Property(string(def.SagaType)+" compensation undoes only completed side effects", prop.ForAll(
			func(done int) bool {
				completed := forward[:done]
				ran := map[string]bool{}
				for _, name := range completed {
					ran[name] = true
				}
				var expected []string
				for _, s := range def.CompensationSteps() {
					if ran[s.Undoes] {
						expected = append(expected, s.Name)
					}
				}

				first, ok := def.FirstCompensationStep(completed)
				if !ok {
					return len(expected) == 0
				}
				var visited []string
				for s := first; !s.Terminal; {
					visited = append(visited, s.Name)
					next, err := def.NextCompensationStep(s.Name, completed)
					if err != nil || next.Number <= s.Number {
						return false
					}
					s = next
				}
				return assert.ObjectsAreEqual(expected, visited)
			},
			gen.IntRange(0, len(forward)),
		))
	}

	properties.TestingRun(t)
}

func TestDefinition_Matches(t *testing.T) {
	step, ok := Deposit.Step(StepCreateTransaction)
	require.True(t, ok)
	local, ok := NewOrderBuyDefinition(DefaultFeeBuffer).Step(StepCalculateRequiredFunds)
	require.True(t, ok)

	tests := []struct {
		name  string
		step  *Step
		event entities.EventMessage
		want  bool
	}{
		{name: "matching_with_step_id", step: step, event: entities.EventMessage{StepID: 4, Type: constants.EvtTransactionCreated}, want: true},
		{name: "matching_without_step_id", step: step, event: entities.EventMessage{Type: constants.EvtTransactionCreated}, want: true},
		{name: "stale_step_id", step: step, event: entities.EventMessage{StepID: 3, Type: constants.EvtTransactionCreated}},
		{name: "other_command_reply", step: step, event: entities.EventMessage{StepID: 4, Type: constants.EvtPaymentProcessed}},
		{name: "unknown_event", step: step, event: entities.EventMessage{Type: "SOMETHING_ELSE"}},
		{name: "local_step", step: local, event: entities.EventMessage{StepID: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tt.event
			assert.Equal(t, tt.want, Deposit.Matches(tt.step, &ev))
		})
	}
}

func TestDefinition_TargetServices(t *testing.T) {
	assert.ElementsMatch(t, []string{
		constants.ServiceUser, constants.ServiceAccount, constants.ServicePayment, constants.ServiceTransaction,
	}, Deposit.TargetServices())
	assert.ElementsMatch(t, []string{
		constants.ServiceOrder, constants.ServiceUser, constants.ServiceMarketData, constants.ServiceAccount, constants.ServiceTrading,
	}, NewOrderBuyDefinition(DefaultFeeBuffer).TargetServices())
}
