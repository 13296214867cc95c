package steps

import (
	"github.com/pkg/errors"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
)

const (
	StepCheckBalance = "CHECK_BALANCE"

	StepCompReverseBalanceUpdate = "COMP_REVERSE_BALANCE_UPDATE"
)

func withdrawalOf(s *entities.SagaState) (*entities.WithdrawalDetails, error) {
	if s.Withdrawal == nil {
		return nil, errors.Wrapf(sagaerrors.ErrInvalidPayload, "saga %s has no withdrawal details", s.SagaID)
	}
	return s.Withdrawal, nil
}

// Withdrawal is the step table of the WITHDRAWAL saga. The payout has no compensation:
// once money left, only the balance and the transaction record are reverted.
var Withdrawal = MustDefinition(entities.SagaTypeWithdrawal, []*Step{
	{
		Number:         1,
		Name:           StepVerifyIdentity,
		Description:    "Verify user identity",
		CommandType:    constants.CmdUserVerifyIdentity,
		ReplyEventType: constants.EvtUserIdentityVerified,
		TargetService:  constants.ServiceUser,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			w, err := withdrawalOf(s)
			if err != nil {
				return nil, err
			}
			return entities.VerifyIdentityPayload{UserID: w.UserID}, nil
		},
	},
	{
		Number:         2,
		Name:           StepValidateAccount,
		Description:    "Validate source account",
		CommandType:    constants.CmdAccountValidate,
		ReplyEventType: constants.EvtAccountValidated,
		TargetService:  constants.ServiceAccount,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			w, err := withdrawalOf(s)
			if err != nil {
				return nil, err
			}
			return entities.ValidateAccountPayload{UserID: w.UserID, AccountID: w.AccountID, Currency: w.Currency}, nil
		},
	},
	{
		Number:         3,
		Name:           StepValidatePaymentMethod,
		Description:    "Validate payout method",
		CommandType:    constants.CmdPaymentValidateMethod,
		ReplyEventType: constants.EvtPaymentMethodValidated,
		TargetService:  constants.ServicePayment,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			w, err := withdrawalOf(s)
			if err != nil {
				return nil, err
			}
			return entities.ValidatePaymentMethodPayload{UserID: w.UserID, PaymentMethodID: w.PaymentMethodID}, nil
		},
	},
	{
		Number:         4,
		Name:           StepCheckBalance,
		Description:    "Check available balance",
		CommandType:    constants.CmdAccountCheckBalance,
		ReplyEventType: constants.EvtAccountBalanceChecked,
		TargetService:  constants.ServiceAccount,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			w, err := withdrawalOf(s)
			if err != nil {
				return nil, err
			}
			return entities.CheckBalancePayload{AccountID: w.AccountID, Amount: w.Amount, Currency: w.Currency}, nil
		},
		Extract: func(s *entities.SagaState, p map[string]interface{}) error {
			out, err := entities.DecodeBalanceChecked(p)
			if err != nil {
				return err
			}
			s.Withdrawal.AvailableBalance = out.AvailableBalance
			return nil
		},
	},
	{
		Number:         5,
		Name:           StepCreateTransaction,
		Description:    "Create pending withdrawal transaction",
		CommandType:    constants.CmdTransactionCreate,
		ReplyEventType: constants.EvtTransactionCreated,
		TargetService:  constants.ServiceTransaction,
		HasSideEffect:  true,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			w, err := withdrawalOf(s)
			if err != nil {
				return nil, err
			}
			return entities.CreateTransactionPayload{
				UserID:          w.UserID,
				AccountID:       w.AccountID,
				PaymentMethodID: w.PaymentMethodID,
				Amount:          w.Amount,
				Currency:        w.Currency,
				TransactionType: constants.TransactionTypeWithdrawal,
				Description:     w.Description,
			}, nil
		},
		Extract: func(s *entities.SagaState, p map[string]interface{}) error {
			out, err := entities.DecodeTransactionCreated(p)
			if err != nil {
				return err
			}
			s.Withdrawal.TransactionID = out.TransactionID
			return nil
		},
	},
	{
		Number:         6,
		Name:           StepUpdateBalance,
		Description:    "Debit account balance",
		CommandType:    constants.CmdAccountWithdrawalUpdateBalance,
		ReplyEventType: constants.EvtAccountWithdrawalBalanceUpdated,
		TargetService:  constants.ServiceAccount,
		HasSideEffect:  true,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			w, err := withdrawalOf(s)
			if err != nil {
				return nil, err
			}
			return entities.UpdateBalancePayload{
				AccountID:     w.AccountID,
				TransactionID: w.TransactionID,
				Amount:        w.Amount,
				Currency:      w.Currency,
				Operation:     constants.BalanceOperationDebit,
			}, nil
		},
	},
	{
		Number:         7,
		Name:           StepProcessPayment,
		Description:    "Pay out to the payment method",
		CommandType:    constants.CmdPaymentPayout,
		ReplyEventType: constants.EvtPaymentPayoutProcessed,
		TargetService:  constants.ServicePayment,
		HasSideEffect:  true,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			w, err := withdrawalOf(s)
			if err != nil {
				return nil, err
			}
			return entities.ProcessPaymentPayload{
				TransactionID:   w.TransactionID,
				PaymentMethodID: w.PaymentMethodID,
				Amount:          w.Amount,
				Currency:        w.Currency,
			}, nil
		},
		Extract: func(s *entities.SagaState, p map[string]interface{}) error {
			out, err := entities.DecodePayoutProcessed(p)
			if err != nil {
				return err
			}
			s.Withdrawal.PayoutID = out.PayoutID
			return nil
		},
	},
	{
		Number:         8,
		Name:           StepUpdateTransactionStatus,
		Description:    "Mark transaction completed",
		CommandType:    constants.CmdTransactionUpdateStatus,
		ReplyEventType: constants.EvtTransactionStatusUpdated,
		TargetService:  constants.ServiceTransaction,
		HasSideEffect:  true,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			w, err := withdrawalOf(s)
			if err != nil {
				return nil, err
			}
			return entities.UpdateTransactionStatusPayload{
				TransactionID: w.TransactionID,
				Status:        constants.TransactionStatusCompleted,
				PaymentID:     w.PayoutID,
			}, nil
		},
	},
}, []*Step{
	{
		Number:         101,
		Name:           StepCompReverseBalanceUpdate,
		Description:    "Credit back the debited amount",
		CommandType:    constants.CmdAccountWithdrawalReverseBalanceUpdate,
		ReplyEventType: constants.EvtAccountWithdrawalBalanceReversed,
		TargetService:  constants.ServiceAccount,
		Undoes:         StepUpdateBalance,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			w, err := withdrawalOf(s)
			if err != nil {
				return nil, err
			}
			return entities.UpdateBalancePayload{
				AccountID:     w.AccountID,
				TransactionID: w.TransactionID,
				Amount:        w.Amount,
				Currency:      w.Currency,
				Operation:     constants.BalanceOperationCredit,
			}, nil
		},
	},
	{
		Number:         102,
		Name:           StepCompMarkTransactionFailed,
		Description:    "Mark transaction failed",
		CommandType:    constants.CmdTransactionMarkFailed,
		ReplyEventType: constants.EvtTransactionMarkedFailed,
		TargetService:  constants.ServiceTransaction,
		Undoes:         StepCreateTransaction,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			w, err := withdrawalOf(s)
			if err != nil {
				return nil, err
			}
			return entities.MarkTransactionFailedPayload{TransactionID: w.TransactionID, Reason: s.FailureReason}, nil
		},
	},
})
