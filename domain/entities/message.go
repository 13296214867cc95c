package entities

import (
	"encoding/json"
	"time"
)

// CommandMessage is a directive to a domain service to execute one saga step.
type CommandMessage struct {
	MessageID      string                 `json:"messageId"`
	SagaID         string                 `json:"sagaId"`
	StepID         int                    `json:"stepId"`
	Type           string                 `json:"type"`
	SourceService  string                 `json:"sourceService"`
	TargetService  string                 `json:"targetService"`
	IsCompensation bool                   `json:"isCompensation"`
	Timestamp      time.Time              `json:"timestamp"`
	Payload        map[string]interface{} `json:"payload"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// EventMessage is a domain service reply. StepID is zero when the service did not echo it.
type EventMessage struct {
	MessageID     string                 `json:"messageId"`
	SagaID        string                 `json:"sagaId"`
	StepID        int                    `json:"stepId,omitempty"`
	Type          string                 `json:"type"`
	SourceService string                 `json:"sourceService"`
	Success       bool                   `json:"success"`
	ErrorCode     string                 `json:"errorCode,omitempty"`
	ErrorMessage  string                 `json:"errorMessage,omitempty"`
	Timestamp     time.Time              `json:"timestamp,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// UnmarshalJSON defaults Success to true when the field is absent.
func (e *EventMessage) UnmarshalJSON(data []byte) error {
	type alias EventMessage
	aux := &struct {
		Success *bool `json:"success"`
		*alias
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	e.Success = aux.Success == nil || *aux.Success
	return nil
}

// ProcessedMessage is one idempotency ledger record.
type ProcessedMessage struct {
	MessageID   string                 `json:"message_id" bson:"_id"`
	SagaID      string                 `json:"saga_id" bson:"saga_id"`
	StepID      int                    `json:"step_id" bson:"step_id"`
	MessageType string                 `json:"message_type" bson:"message_type"`
	ProcessedAt time.Time              `json:"processed_at" bson:"processed_at"`
	Result      map[string]interface{} `json:"result" bson:"result"`
}
