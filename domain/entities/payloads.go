package entities

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	sagaerrors "saga-orchestrator/errors"
)

// Command payloads. Built by the step tables and flattened to a map only at the transport edge.

type VerifyIdentityPayload struct {
	UserID string `json:"userId"`
}

type ValidateAccountPayload struct {
	UserID    string `json:"userId"`
	AccountID string `json:"accountId"`
	Currency  string `json:"currency"`
}

type ValidatePaymentMethodPayload struct {
	UserID          string `json:"userId"`
	PaymentMethodID string `json:"paymentMethodId"`
}

type CheckBalancePayload struct {
	AccountID string  `json:"accountId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

type CreateTransactionPayload struct {
	UserID          string  `json:"userId"`
	AccountID       string  `json:"accountId"`
	PaymentMethodID string  `json:"paymentMethodId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	TransactionType string  `json:"transactionType"`
	Description     string  `json:"description,omitempty"`
}

type ProcessPaymentPayload struct {
	TransactionID   string  `json:"transactionId"`
	PaymentMethodID string  `json:"paymentMethodId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

type RefundPaymentPayload struct {
	TransactionID string  `json:"transactionId"`
	PaymentID     string  `json:"paymentId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Reason        string  `json:"reason,omitempty"`
}

type UpdateTransactionStatusPayload struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	PaymentID     string `json:"paymentId,omitempty"`
}

type MarkTransactionFailedPayload struct {
	TransactionID string `json:"transactionId"`
	Reason        string `json:"reason"`
}

type UpdateBalancePayload struct {
	AccountID     string  `json:"accountId"`
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Operation     string  `json:"operation"`
}

type CreateOrderPayload struct {
	UserID     string  `json:"userId"`
	AccountID  string  `json:"accountId"`
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	OrderType  string  `json:"orderType"`
	LimitPrice float64 `json:"limitPrice,omitempty"`
	Currency   string  `json:"currency"`
}

type VerifyTradingPermissionPayload struct {
	UserID    string `json:"userId"`
	AccountID string `json:"accountId"`
	Symbol    string `json:"symbol"`
}

type ValidateSymbolPayload struct {
	Symbol string `json:"symbol"`
}

type FundsPayload struct {
	AccountID     string  `json:"accountId"`
	OrderID       string  `json:"orderId"`
	ReservationID string  `json:"reservationId,omitempty"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

type SubmitOrderPayload struct {
	OrderID    string  `json:"orderId"`
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	OrderType  string  `json:"orderType"`
	LimitPrice float64 `json:"limitPrice,omitempty"`
}

type CancelSubmittedOrderPayload struct {
	OrderID      string `json:"orderId"`
	VenueOrderID string `json:"venueOrderId"`
}

type PortfolioPayload struct {
	AccountID string  `json:"accountId"`
	OrderID   string  `json:"orderId"`
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

type CompleteOrderPayload struct {
	OrderID          string  `json:"orderId"`
	VenueOrderID     string  `json:"venueOrderId"`
	ExecutionPrice   float64 `json:"executionPrice"`
	ExecutedQuantity float64 `json:"executedQuantity"`
}

type CancelOrderPayload struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// ToPayload flattens a typed payload into the wire map.
func ToPayload(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "flatten payload")
	}
	return out, nil
}

// Event payloads decoded from the wire map. Numeric fields accept any numeric
// representation (float, int, json.Number, numeric string).

type TransactionCreatedPayload struct {
	TransactionID string
}

type PaymentProcessedPayload struct {
	PaymentID string
}

type BalanceUpdatedPayload struct {
	NewBalance float64
}

type BalanceCheckedPayload struct {
	AvailableBalance float64
}

type PayoutProcessedPayload struct {
	PayoutID string
}

type OrderCreatedPayload struct {
	OrderID string
}

type SymbolValidatedPayload struct {
	MarketPrice float64
}

type FundsReservedPayload struct {
	ReservationID string
}

type OrderExecutedPayload struct {
	VenueOrderID     string
	ExecutionPrice   float64
	ExecutedQuantity float64
}

func DecodeTransactionCreated(p map[string]interface{}) (out TransactionCreatedPayload, err error) {
	out.TransactionID, err = RequiredString(p, "transactionId")
	return
}

func DecodePaymentProcessed(p map[string]interface{}) (out PaymentProcessedPayload, err error) {
	out.PaymentID, err = RequiredString(p, "paymentId")
	return
}

func DecodeBalanceUpdated(p map[string]interface{}) (out BalanceUpdatedPayload, err error) {
	out.NewBalance, _, err = OptionalFloat(p, "newBalance")
	return
}

func DecodeBalanceChecked(p map[string]interface{}) (out BalanceCheckedPayload, err error) {
	out.AvailableBalance, _, err = OptionalFloat(p, "availableBalance")
	return
}

func DecodePayoutProcessed(p map[string]interface{}) (out PayoutProcessedPayload, err error) {
	out.PayoutID, err = RequiredString(p, "payoutId")
	return
}

func DecodeOrderCreated(p map[string]interface{}) (out OrderCreatedPayload, err error) {
	out.OrderID, err = RequiredString(p, "orderId")
	return
}

// DecodeSymbolValidated leaves MarketPrice at zero when the reply carries no quote.
func DecodeSymbolValidated(p map[string]interface{}) (out SymbolValidatedPayload, err error) {
	out.MarketPrice, _, err = OptionalFloat(p, "marketPrice")
	return
}

func DecodeFundsReserved(p map[string]interface{}) (out FundsReservedPayload, err error) {
	out.ReservationID, err = RequiredString(p, "reservationId")
	return
}

func DecodeOrderExecuted(p map[string]interface{}) (out OrderExecutedPayload, err error) {
	if out.VenueOrderID, err = RequiredString(p, "venueOrderId"); err != nil {
		return
	}
	if out.ExecutionPrice, err = RequiredFloat(p, "executionPrice"); err != nil {
		return
	}
	out.ExecutedQuantity, err = RequiredFloat(p, "executedQuantity")
	return
}

func RequiredString(p map[string]interface{}, key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", errors.Wrapf(sagaerrors.ErrInvalidPayload, "missing %s", key)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", errors.Wrapf(sagaerrors.ErrInvalidPayload, "%s: %v", key, err)
	}
	if s == "" {
		return "", errors.Wrapf(sagaerrors.ErrInvalidPayload, "empty %s", key)
	}
	return s, nil
}

func RequiredFloat(p map[string]interface{}, key string) (float64, error) {
	f, ok, err := OptionalFloat(p, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Wrapf(sagaerrors.ErrInvalidPayload, "missing %s", key)
	}
	return f, nil
}

// OptionalFloat returns ok=false when the key is absent or null.
func OptionalFloat(p map[string]interface{}, key string) (float64, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	if n, isNumber := v.(json.Number); isNumber {
		f, err := n.Float64()
		if err != nil {
			return 0, false, errors.Wrapf(sagaerrors.ErrInvalidPayload, "%s: %v", key, err)
		}
		return f, true, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false, errors.Wrapf(sagaerrors.ErrInvalidPayload, "%s: %v", key, err)
	}
	return f, true, nil
}
