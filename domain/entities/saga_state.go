package entities

import "time"

// SagaState is the durable progress record of one saga instance. Exactly one of the
// Deposit, Withdrawal or OrderBuy details is set, matching SagaType.
type SagaState struct {
	SagaID            string                 `json:"saga_id" bson:"_id"`
	SagaType          SagaType               `json:"saga_type" bson:"saga_type"`
	Status            SagaStatus             `json:"status" bson:"status"`
	CurrentStep       string                 `json:"current_step" bson:"current_step"`
	CurrentStepNumber int                    `json:"current_step_number" bson:"current_step_number"`
	CompletedSteps    []string               `json:"completed_steps" bson:"completed_steps"`
	StepData          map[string]interface{} `json:"step_data" bson:"step_data"`

	Deposit    *DepositDetails    `json:"deposit,omitempty" bson:"deposit,omitempty"`
	Withdrawal *WithdrawalDetails `json:"withdrawal,omitempty" bson:"withdrawal,omitempty"`
	OrderBuy   *OrderBuyDetails   `json:"order_buy,omitempty" bson:"order_buy,omitempty"`

	StartTime            time.Time  `json:"start_time" bson:"start_time"`
	CurrentStepStartTime time.Time  `json:"current_step_start_time" bson:"current_step_start_time"`
	LastUpdatedTime      time.Time  `json:"last_updated_time" bson:"last_updated_time"`
	EndTime              *time.Time `json:"end_time,omitempty" bson:"end_time,omitempty"`

	RetryCount int `json:"retry_count" bson:"retry_count"`
	MaxRetries int `json:"max_retries" bson:"max_retries"`

	SagaEvents    []SagaEvent `json:"saga_events" bson:"saga_events"`
	FailureReason string      `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	LastCommandID string      `json:"last_command_id,omitempty" bson:"last_command_id,omitempty"`

	// Version is bumped by the store on every successful update.
	Version int64 `json:"version" bson:"version"`
}

type DepositDetails struct {
	UserID          string  `json:"user_id" bson:"user_id"`
	AccountID       string  `json:"account_id" bson:"account_id"`
	Amount          float64 `json:"amount" bson:"amount"`
	Currency        string  `json:"currency" bson:"currency"`
	PaymentMethodID string  `json:"payment_method_id" bson:"payment_method_id"`
	TransactionID   string  `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	PaymentID       string  `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	NewBalance      float64 `json:"new_balance,omitempty" bson:"new_balance,omitempty"`
}

type WithdrawalDetails struct {
	UserID           string  `json:"user_id" bson:"user_id"`
	AccountID        string  `json:"account_id" bson:"account_id"`
	Amount           float64 `json:"amount" bson:"amount"`
	Currency         string  `json:"currency" bson:"currency"`
	PaymentMethodID  string  `json:"payment_method_id" bson:"payment_method_id"`
	Description      string  `json:"description,omitempty" bson:"description,omitempty"`
	AvailableBalance float64 `json:"available_balance,omitempty" bson:"available_balance,omitempty"`
	TransactionID    string  `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	PayoutID         string  `json:"payout_id,omitempty" bson:"payout_id,omitempty"`
}

type OrderBuyDetails struct {
	UserID           string  `json:"user_id" bson:"user_id"`
	AccountID        string  `json:"account_id" bson:"account_id"`
	Symbol           string  `json:"symbol" bson:"symbol"`
	Quantity         float64 `json:"quantity" bson:"quantity"`
	OrderType        string  `json:"order_type" bson:"order_type"`
	LimitPrice       float64 `json:"limit_price,omitempty" bson:"limit_price,omitempty"`
	Currency         string  `json:"currency" bson:"currency"`
	OrderID          string  `json:"order_id,omitempty" bson:"order_id,omitempty"`
	MarketPrice      float64 `json:"market_price,omitempty" bson:"market_price,omitempty"`
	RequiredFunds    float64 `json:"required_funds,omitempty" bson:"required_funds,omitempty"`
	ReservationID    string  `json:"reservation_id,omitempty" bson:"reservation_id,omitempty"`
	VenueOrderID     string  `json:"venue_order_id,omitempty" bson:"venue_order_id,omitempty"`
	ExecutionPrice   float64 `json:"execution_price,omitempty" bson:"execution_price,omitempty"`
	ExecutedQuantity float64 `json:"executed_quantity,omitempty" bson:"executed_quantity,omitempty"`
}

// Clone returns a deep copy; transitions never mutate the state they were given.
func (s *SagaState) Clone() *SagaState {
	if s == nil {
		return nil
	}
	c := *s
	c.CompletedSteps = append([]string(nil), s.CompletedSteps...)
	c.SagaEvents = append([]SagaEvent(nil), s.SagaEvents...)
	c.StepData = make(map[string]interface{}, len(s.StepData))
	for k, v := range s.StepData {
		c.StepData[k] = v
	}
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	if s.Deposit != nil {
		d := *s.Deposit
		c.Deposit = &d
	}
	if s.Withdrawal != nil {
		w := *s.Withdrawal
		c.Withdrawal = &w
	}
	if s.OrderBuy != nil {
		o := *s.OrderBuy
		c.OrderBuy = &o
	}
	return &c
}

func (s *SagaState) HasCompleted(step string) bool {
	for _, name := range s.CompletedSteps {
		if name == step {
			return true
		}
	}
	return false
}

// MarkCompleted appends step to CompletedSteps at most once.
func (s *SagaState) MarkCompleted(step string) {
	if step == "" || s.HasCompleted(step) {
		return
	}
	s.CompletedSteps = append(s.CompletedSteps, step)
}

func (s *SagaState) AppendEvent(t SagaEventType, description string, at time.Time) {
	s.SagaEvents = append(s.SagaEvents, SagaEvent{Type: t, Description: description, Timestamp: at})
}

// RecentEvents returns at most n of the latest audit events, oldest first.
func (s *SagaState) RecentEvents(n int) []SagaEvent {
	if n <= 0 || len(s.SagaEvents) <= n {
		return append([]SagaEvent(nil), s.SagaEvents...)
	}
	return append([]SagaEvent(nil), s.SagaEvents[len(s.SagaEvents)-n:]...)
}
