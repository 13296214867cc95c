package constants

const (
	MsgStepFailed          = "step %s failed"
	MsgStepTimedOut        = "step %s timed out after %d retries"
	MsgCompensationFailed  = "compensation step %s failed: %s"
	MsgInvalidEventPayload = "invalid %s payload: %s"
	MsgLocalStepFailed     = "local step %s failed: %s"
)

// Result keys recorded in the idempotency ledger.
const (
	ResultIgnored = "ignored"
	ResultReason  = "reason"
	ResultStatus  = "status"
	ResultStep    = "step"
	ResultNumber  = "stepNumber"
)

const (
	IgnoredTerminal     = "saga_terminal"
	IgnoredStepMismatch = "step_mismatch"
	IgnoredWrongFlow    = "wrong_flow"
)

// Metadata keys carried on commands.
const (
	MetaRetryCount = "retryCount"
	MetaSagaType   = "sagaType"
	MetaFlow       = "flow"
)

const (
	OrderTypeMarket = "MARKET"
	OrderTypeLimit  = "LIMIT"

	TransactionTypeDeposit    = "DEPOSIT"
	TransactionTypeWithdrawal = "WITHDRAWAL"

	TransactionStatusCompleted = "COMPLETED"

	BalanceOperationCredit = "CREDIT"
	BalanceOperationDebit  = "DEBIT"
)
