package constants

// Command types sent to domain services.
const (
	CmdUserVerifyIdentity          = "USER_VERIFY_IDENTITY"
	CmdUserVerifyTradingPermission = "USER_VERIFY_TRADING_PERMISSION"

	CmdAccountValidate                       = "ACCOUNT_VALIDATE"
	CmdAccountCheckBalance                   = "ACCOUNT_CHECK_BALANCE"
	CmdAccountDepositUpdateBalance           = "ACCOUNT_DEPOSIT_UPDATE_BALANCE"
	CmdAccountWithdrawalUpdateBalance        = "ACCOUNT_WITHDRAWAL_UPDATE_BALANCE"
	CmdAccountWithdrawalReverseBalanceUpdate = "ACCOUNT_WITHDRAWAL_REVERSE_BALANCE_UPDATE"
	CmdAccountReserveFunds                   = "ACCOUNT_RESERVE_FUNDS"
	CmdAccountReleaseFunds                   = "ACCOUNT_RELEASE_FUNDS"
	CmdAccountSettleFunds                    = "ACCOUNT_SETTLE_FUNDS"
	CmdAccountReverseSettlement              = "ACCOUNT_REVERSE_SETTLEMENT"
	CmdAccountUpdatePortfolio                = "ACCOUNT_UPDATE_PORTFOLIO"
	CmdAccountReversePortfolioUpdate         = "ACCOUNT_REVERSE_PORTFOLIO_UPDATE"

	CmdPaymentValidateMethod = "PAYMENT_VALIDATE_METHOD"
	CmdPaymentProcess        = "PAYMENT_PROCESS"
	CmdPaymentRefund         = "PAYMENT_REFUND"
	CmdPaymentPayout         = "PAYMENT_PAYOUT"

	CmdTransactionCreate       = "TRANSACTION_CREATE"
	CmdTransactionUpdateStatus = "TRANSACTION_UPDATE_STATUS"
	CmdTransactionMarkFailed   = "TRANSACTION_MARK_FAILED"

	CmdOrderCreate   = "ORDER_CREATE"
	CmdOrderComplete = "ORDER_COMPLETE"
	CmdOrderCancel   = "ORDER_CANCEL"

	CmdMarketDataValidateSymbol = "MARKET_DATA_VALIDATE_SYMBOL"

	CmdTradingSubmitOrder = "TRADING_SUBMIT_ORDER"
	CmdTradingCancelOrder = "TRADING_CANCEL_ORDER"
)

// Event types replied by domain services.
const (
	EvtUserIdentityVerified          = "USER_IDENTITY_VERIFIED"
	EvtUserTradingPermissionVerified = "USER_TRADING_PERMISSION_VERIFIED"

	EvtAccountValidated                 = "ACCOUNT_VALIDATED"
	EvtAccountBalanceChecked            = "ACCOUNT_BALANCE_CHECKED"
	EvtAccountDepositBalanceUpdated     = "ACCOUNT_DEPOSIT_BALANCE_UPDATED"
	EvtAccountWithdrawalBalanceUpdated  = "ACCOUNT_WITHDRAWAL_BALANCE_UPDATED"
	EvtAccountWithdrawalBalanceReversed = "ACCOUNT_WITHDRAWAL_BALANCE_REVERSED"
	EvtAccountFundsReserved             = "ACCOUNT_FUNDS_RESERVED"
	EvtAccountFundsReleased             = "ACCOUNT_FUNDS_RELEASED"
	EvtAccountFundsSettled              = "ACCOUNT_FUNDS_SETTLED"
	EvtAccountSettlementReversed        = "ACCOUNT_SETTLEMENT_REVERSED"
	EvtAccountPortfolioUpdated          = "ACCOUNT_PORTFOLIO_UPDATED"
	EvtAccountPortfolioUpdateReversed   = "ACCOUNT_PORTFOLIO_UPDATE_REVERSED"

	EvtPaymentMethodValidated = "PAYMENT_METHOD_VALIDATED"
	EvtPaymentProcessed       = "PAYMENT_PROCESSED"
	EvtPaymentRefunded        = "PAYMENT_REFUNDED"
	EvtPaymentPayoutProcessed = "PAYMENT_PAYOUT_PROCESSED"

	EvtTransactionCreated       = "TRANSACTION_CREATED"
	EvtTransactionStatusUpdated = "TRANSACTION_STATUS_UPDATED"
	EvtTransactionMarkedFailed  = "TRANSACTION_MARKED_FAILED"

	EvtOrderCreated   = "ORDER_CREATED"
	EvtOrderCompleted = "ORDER_COMPLETED"
	EvtOrderCancelled = "ORDER_CANCELLED"

	EvtMarketDataSymbolValidated = "MARKET_DATA_SYMBOL_VALIDATED"

	EvtTradingOrderExecuted  = "TRADING_ORDER_EXECUTED"
	EvtTradingOrderCancelled = "TRADING_ORDER_CANCELLED"
)

// eventCommandTypes associates every reply event with the command that caused it.
var eventCommandTypes = map[string]string{
	EvtUserIdentityVerified:          CmdUserVerifyIdentity,
	EvtUserTradingPermissionVerified: CmdUserVerifyTradingPermission,

	EvtAccountValidated:                 CmdAccountValidate,
	EvtAccountBalanceChecked:            CmdAccountCheckBalance,
	EvtAccountDepositBalanceUpdated:     CmdAccountDepositUpdateBalance,
	EvtAccountWithdrawalBalanceUpdated:  CmdAccountWithdrawalUpdateBalance,
	EvtAccountWithdrawalBalanceReversed: CmdAccountWithdrawalReverseBalanceUpdate,
	EvtAccountFundsReserved:             CmdAccountReserveFunds,
	EvtAccountFundsReleased:             CmdAccountReleaseFunds,
	EvtAccountFundsSettled:              CmdAccountSettleFunds,
	EvtAccountSettlementReversed:        CmdAccountReverseSettlement,
	EvtAccountPortfolioUpdated:          CmdAccountUpdatePortfolio,
	EvtAccountPortfolioUpdateReversed:   CmdAccountReversePortfolioUpdate,

	EvtPaymentMethodValidated: CmdPaymentValidateMethod,
	EvtPaymentProcessed:       CmdPaymentProcess,
	EvtPaymentRefunded:        CmdPaymentRefund,
	EvtPaymentPayoutProcessed: CmdPaymentPayout,

	EvtTransactionCreated:       CmdTransactionCreate,
	EvtTransactionStatusUpdated: CmdTransactionUpdateStatus,
	EvtTransactionMarkedFailed:  CmdTransactionMarkFailed,

	EvtOrderCreated:   CmdOrderCreate,
	EvtOrderCompleted: CmdOrderComplete,
	EvtOrderCancelled: CmdOrderCancel,

	EvtMarketDataSymbolValidated: CmdMarketDataValidateSymbol,

	EvtTradingOrderExecuted:  CmdTradingSubmitOrder,
	EvtTradingOrderCancelled: CmdTradingCancelOrder,
}

// CommandTypeForEvent returns the command type an event type replies to.
func CommandTypeForEvent(eventType string) (string, bool) {
	cmd, ok := eventCommandTypes[eventType]
	return cmd, ok
}
