package value_objects

import (
	"time"

	"saga-orchestrator/domain/entities"
)

// RecentEventsWindow bounds the audit events exposed on a saga DTO.
const RecentEventsWindow = 10

type SagaEventDTO struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type SagaDTO struct {
	SagaID            string                      `json:"sagaId"`
	SagaType          string                      `json:"sagaType"`
	Status            string                      `json:"status"`
	CurrentStep       string                      `json:"currentStep"`
	CurrentStepNumber int                         `json:"currentStepNumber"`
	CompletedSteps    []string                    `json:"completedSteps"`
	Deposit           *DepositDTO    `json:"deposit,omitempty"`
	Withdrawal        *WithdrawalDTO `json:"withdrawal,omitempty"`
	OrderBuy          *OrderBuyDTO   `json:"orderBuy,omitempty"`
	SagaEvents        []SagaEventDTO `json:"sagaEvents"`
	FailureReason     string         `json:"failureReason,omitempty"`
	StartTime         time.Time      `json:"startTime"`
	CurrentStepStart  time.Time      `json:"currentStepStartTime"`
	LastUpdatedTime   time.Time      `json:"lastUpdatedTime"`
	EndTime           *time.Time     `json:"endTime,omitempty"`
	RetryCount        int            `json:"retryCount"`
	MaxRetries        int            `json:"maxRetries"`
}

type DepositDTO struct {
	UserID          string  `json:"userId"`
	AccountID       string  `json:"accountId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	PaymentMethodID string  `json:"paymentMethodId"`
	TransactionID   string  `json:"transactionId,omitempty"`
	PaymentID       string  `json:"paymentId,omitempty"`
	NewBalance      float64 `json:"newBalance,omitempty"`
}

type WithdrawalDTO struct {
	UserID           string  `json:"userId"`
	AccountID        string  `json:"accountId"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	PaymentMethodID  string  `json:"paymentMethodId"`
	Description      string  `json:"description,omitempty"`
	AvailableBalance float64 `json:"availableBalance,omitempty"`
	TransactionID    string  `json:"transactionId,omitempty"`
	PayoutID         string  `json:"payoutId,omitempty"`
}

type OrderBuyDTO struct {
	UserID           string  `json:"userId"`
	AccountID        string  `json:"accountId"`
	Symbol           string  `json:"symbol"`
	Quantity         float64 `json:"quantity"`
	OrderType        string  `json:"orderType"`
	LimitPrice       float64 `json:"limitPrice,omitempty"`
	Currency         string  `json:"currency"`
	OrderID          string  `json:"orderId,omitempty"`
	MarketPrice      float64 `json:"marketPrice,omitempty"`
	RequiredFunds    float64 `json:"requiredFunds,omitempty"`
	ReservationID    string  `json:"reservationId,omitempty"`
	VenueOrderID     string  `json:"venueOrderId,omitempty"`
	ExecutionPrice   float64 `json:"executionPrice,omitempty"`
	ExecutedQuantity float64 `json:"executedQuantity,omitempty"`
}

type SagaListDTO struct {
	Sagas []SagaDTO `json:"sagas"`
	Count int       `json:"count"`
}

func NewSagaDTO(s *entities.SagaState) SagaDTO {
	dto := SagaDTO{
		SagaID:            s.SagaID,
		SagaType:          string(s.SagaType),
		Status:            string(s.Status),
		CurrentStep:       s.CurrentStep,
		CurrentStepNumber: s.CurrentStepNumber,
		CompletedSteps:    append([]string{}, s.CompletedSteps...),
		Deposit:           newDepositDTO(s.Deposit),
		Withdrawal:        newWithdrawalDTO(s.Withdrawal),
		OrderBuy:          newOrderBuyDTO(s.OrderBuy),
		SagaEvents:        []SagaEventDTO{},
		FailureReason:     s.FailureReason,
		StartTime:         s.StartTime,
		CurrentStepStart:  s.CurrentStepStartTime,
		LastUpdatedTime:   s.LastUpdatedTime,
		EndTime:           s.EndTime,
		RetryCount:        s.RetryCount,
		MaxRetries:        s.MaxRetries,
	}
	for _, e := range s.RecentEvents(RecentEventsWindow) {
		dto.SagaEvents = append(dto.SagaEvents, SagaEventDTO{
			Type:        e.Type.ToString(),
			Description: e.Description,
			Timestamp:   e.Timestamp,
		})
	}
	return dto
}

func newDepositDTO(d *entities.DepositDetails) *DepositDTO {
	if d == nil {
		return nil
	}
	return &DepositDTO{
		UserID:          d.UserID,
		AccountID:       d.AccountID,
		Amount:          d.Amount,
		Currency:        d.Currency,
		PaymentMethodID: d.PaymentMethodID,
		TransactionID:   d.TransactionID,
		PaymentID:       d.PaymentID,
		NewBalance:      d.NewBalance,
	}
}

func newWithdrawalDTO(w *entities.WithdrawalDetails) *WithdrawalDTO {
	if w == nil {
		return nil
	}
	return &WithdrawalDTO{
		UserID:           w.UserID,
		AccountID:        w.AccountID,
		Amount:           w.Amount,
		Currency:         w.Currency,
		PaymentMethodID:  w.PaymentMethodID,
		Description:      w.Description,
		AvailableBalance: w.AvailableBalance,
		TransactionID:    w.TransactionID,
		PayoutID:         w.PayoutID,
	}
}

func newOrderBuyDTO(o *entities.OrderBuyDetails) *OrderBuyDTO {
	if o == nil {
		return nil
	}
	return &OrderBuyDTO{
		UserID:           o.UserID,
		AccountID:        o.AccountID,
		Symbol:           o.Symbol,
		Quantity:         o.Quantity,
		OrderType:        o.OrderType,
		LimitPrice:       o.LimitPrice,
		Currency:         o.Currency,
		OrderID:          o.OrderID,
		MarketPrice:      o.MarketPrice,
		RequiredFunds:    o.RequiredFunds,
		ReservationID:    o.ReservationID,
		VenueOrderID:     o.VenueOrderID,
		ExecutionPrice:   o.ExecutionPrice,
		ExecutedQuantity: o.ExecutedQuantity,
	}
}

func NewSagaListDTO(states []*entities.SagaState) SagaListDTO {
	list := SagaListDTO{Sagas: make([]SagaDTO, 0, len(states))}
	for _, s := range states {
		list.Sagas = append(list.Sagas, NewSagaDTO(s))
	}
	list.Count = len(list.Sagas)
	return list
}
