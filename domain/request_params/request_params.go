package request_params

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"saga-orchestrator/domain/constants"
	sagaerrors "saga-orchestrator/errors"
)

type DepositReq struct {
	UserID          string  `json:"userId"`
	AccountID       string  `json:"accountId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	PaymentMethodID string  `json:"paymentMethodId"`
}

type WithdrawalReq struct {
	UserID          string  `json:"userId"`
	AccountID       string  `json:"accountId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	PaymentMethodID string  `json:"paymentMethodId"`
	Description     string  `json:"description"`
}

type OrderBuyReq struct {
	UserID     string  `json:"userId"`
	AccountID  string  `json:"accountId"`
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	OrderType  string  `json:"orderType"`
	LimitPrice float64 `json:"limitPrice"`
	Currency   string  `json:"currency"`
}

func required(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Wrapf(sagaerrors.ErrInvalidRequest, "missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func (r *DepositReq) Validate() error {
	if err := required(map[string]string{
		"userId": r.UserID, "accountId": r.AccountID, "currency": r.Currency, "paymentMethodId": r.PaymentMethodID,
	}); err != nil {
		return err
	}
	if r.Amount <= 0 {
		return errors.Wrap(sagaerrors.ErrInvalidRequest, "amount must be positive")
	}
	return nil
}

func (r *WithdrawalReq) Validate() error {
	if err := required(map[string]string{
		"userId": r.UserID, "accountId": r.AccountID, "currency": r.Currency, "paymentMethodId": r.PaymentMethodID,
	}); err != nil {
		return err
	}
	if r.Amount <= 0 {
		return errors.Wrap(sagaerrors.ErrInvalidRequest, "amount must be positive")
	}
	return nil
}

// Validate also upper-cases OrderType; an empty type means MARKET.
func (r *OrderBuyReq) Validate() error {
	if err := required(map[string]string{
		"userId": r.UserID, "accountId": r.AccountID, "symbol": r.Symbol, "currency": r.Currency,
	}); err != nil {
		return err
	}
	if r.Quantity <= 0 {
		return errors.Wrap(sagaerrors.ErrInvalidRequest, "quantity must be positive")
	}
	r.OrderType = strings.ToUpper(strings.TrimSpace(r.OrderType))
	switch r.OrderType {
	case "":
		r.OrderType = constants.OrderTypeMarket
	case constants.OrderTypeMarket:
	case constants.OrderTypeLimit:
		if r.LimitPrice <= 0 {
			return errors.Wrap(sagaerrors.ErrInvalidRequest, "limit order needs a positive limitPrice")
		}
	default:
		return errors.Wrapf(sagaerrors.ErrInvalidRequest, "unknown orderType %s", r.OrderType)
	}
	return nil
}
