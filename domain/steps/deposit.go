package steps

import (
	"github.com/pkg/errors"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
)

const (
	StepVerifyIdentity          = "VERIFY_IDENTITY"
	StepValidateAccount         = "VALIDATE_ACCOUNT"
	StepValidatePaymentMethod   = "VALIDATE_PAYMENT_METHOD"
	StepCreateTransaction       = "CREATE_TRANSACTION"
	StepProcessPayment          = "PROCESS_PAYMENT"
	StepUpdateTransactionStatus = "UPDATE_TRANSACTION_STATUS"
	StepUpdateBalance           = "UPDATE_BALANCE"

	StepCompRefundPayment         = "COMP_REFUND_PAYMENT"
	StepCompMarkTransactionFailed = "COMP_MARK_TRANSACTION_FAILED"
)

func depositOf(s *entities.SagaState) (*entities.DepositDetails, error) {
	if s.Deposit == nil {
		return nil, errors.Wrapf(sagaerrors.ErrInvalidPayload, "saga %s has no deposit details", s.SagaID)
	}
	return s.Deposit, nil
}

// Deposit is the step table of the DEPOSIT saga.
var Deposit = MustDefinition(entities.SagaTypeDeposit, []*Step{
	{
		Number:         1,
		Name:           StepVerifyIdentity,
		Description:    "Verify user identity",
		CommandType:    constants.CmdUserVerifyIdentity,
		ReplyEventType: constants.EvtUserIdentityVerified,
		TargetService:  constants.ServiceUser,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			d, err := depositOf(s)
			if err != nil {
				return nil, err
			}
			return entities.VerifyIdentityPayload{UserID: d.UserID}, nil
		},
	},
	{
		Number:         2,
		Name:           StepValidateAccount,
		Description:    "Validate destination account",
		CommandType:    constants.CmdAccountValidate,
		ReplyEventType: constants.EvtAccountValidated,
		TargetService:  constants.ServiceAccount,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			d, err := depositOf(s)
			if err != nil {
				return nil, err
			}
			return entities.ValidateAccountPayload{UserID: d.UserID, AccountID: d.AccountID, Currency: d.Currency}, nil
		},
	},
	{
		Number:         3,
		Name:           StepValidatePaymentMethod,
		Description:    "Validate payment method",
		CommandType:    constants.CmdPaymentValidateMethod,
		ReplyEventType: constants.EvtPaymentMethodValidated,
		TargetService:  constants.ServicePayment,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			d, err := depositOf(s)
			if err != nil {
				return nil, err
			}
			return entities.ValidatePaymentMethodPayload{UserID: d.UserID, PaymentMethodID: d.PaymentMethodID}, nil
		},
	},
	{
		Number:         4,
		Name:           StepCreateTransaction,
		Description:    "Create pending deposit transaction",
		CommandType:    constants.CmdTransactionCreate,
		ReplyEventType: constants.EvtTransactionCreated,
		TargetService:  constants.ServiceTransaction,
		HasSideEffect:  true,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			d, err := depositOf(s)
			if err != nil {
				return nil, err
			}
			return entities.CreateTransactionPayload{
				UserID:          d.UserID,
				AccountID:       d.AccountID,
				PaymentMethodID: d.PaymentMethodID,
				Amount:          d.Amount,
				Currency:        d.Currency,
				TransactionType: constants.TransactionTypeDeposit,
			}, nil
		},
		Extract: func(s *entities.SagaState, p map[string]interface{}) error {
			out, err := entities.DecodeTransactionCreated(p)
			if err != nil {
				return err
			}
			s.Deposit.TransactionID = out.TransactionID
			return nil
		},
	},
	{
		Number:         5,
		Name:           StepProcessPayment,
		Description:    "Charge the payment method",
		CommandType:    constants.CmdPaymentProcess,
		ReplyEventType: constants.EvtPaymentProcessed,
		TargetService:  constants.ServicePayment,
		HasSideEffect:  true,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			d, err := depositOf(s)
			if err != nil {
				return nil, err
			}
			return entities.ProcessPaymentPayload{
				TransactionID:   d.TransactionID,
				PaymentMethodID: d.PaymentMethodID,
				Amount:          d.Amount,
				Currency:        d.Currency,
			}, nil
		},
		Extract: func(s *entities.SagaState, p map[string]interface{}) error {
			out, err := entities.DecodePaymentProcessed(p)
			if err != nil {
				return err
			}
			s.Deposit.PaymentID = out.PaymentID
			return nil
		},
	},
	{
		Number:         6,
		Name:           StepUpdateTransactionStatus,
		Description:    "Mark transaction completed",
		CommandType:    constants.CmdTransactionUpdateStatus,
		ReplyEventType: constants.EvtTransactionStatusUpdated,
		TargetService:  constants.ServiceTransaction,
		HasSideEffect:  true,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			d, err := depositOf(s)
			if err != nil {
				return nil, err
			}
			return entities.UpdateTransactionStatusPayload{
				TransactionID: d.TransactionID,
				Status:        constants.TransactionStatusCompleted,
				PaymentID:     d.PaymentID,
			}, nil
		},
	},
	{
		Number:         7,
		Name:           StepUpdateBalance,
		Description:    "Credit account balance",
		CommandType:    constants.CmdAccountDepositUpdateBalance,
		ReplyEventType: constants.EvtAccountDepositBalanceUpdated,
		TargetService:  constants.ServiceAccount,
		HasSideEffect:  true,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			d, err := depositOf(s)
			if err != nil {
				return nil, err
			}
			return entities.UpdateBalancePayload{
				AccountID:     d.AccountID,
				TransactionID: d.TransactionID,
				Amount:        d.Amount,
				Currency:      d.Currency,
				Operation:     constants.BalanceOperationCredit,
			}, nil
		},
		Extract: func(s *entities.SagaState, p map[string]interface{}) error {
			out, err := entities.DecodeBalanceUpdated(p)
			if err != nil {
				return err
			}
			s.Deposit.NewBalance = out.NewBalance
			return nil
		},
	},
}, []*Step{
	{
		Number:         101,
		Name:           StepCompRefundPayment,
		Description:    "Refund captured payment",
		CommandType:    constants.CmdPaymentRefund,
		ReplyEventType: constants.EvtPaymentRefunded,
		TargetService:  constants.ServicePayment,
		Undoes:         StepProcessPayment,
		Payload: func(s *entities.SagaState) (interface{}, error) {
			d, err := depositOf(s)
			if err != nil {
				return nil, err
			}
			return entities.RefundPaymentPayload{
				TransactionID: d.TransactionID,
				PaymentID:     d.PaymentID,
				Amount:        d.Amount,
				Currency:      d.Currency,
				Reason:        s.FailureReason,
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
			d, err := depositOf(s)
			if err != nil {
				return nil, err
			}
			return entities.MarkTransactionFailedPayload{TransactionID: d.TransactionID, Reason: s.FailureReason}, nil
		},
	},
})
