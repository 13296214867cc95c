package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"saga-orchestrator/domain/entities"
)

const publishTimeout = 5 * time.Second

func Connection(uri, user, password string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().AddBroker(uri)
	opts.SetUsername(user)
	opts.SetPassword(password)
	opts.SetClientID(fmt.Sprintf("saga-orchestrator-%d", time.Now().UnixNano()))
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrap(token.Error(), "mqtt connect")
	}
	return client, nil
}

// StatusMessage is the retained payload announcing a saga's end state.
type StatusMessage struct {
	SagaID        string     `json:"sagaId"`
	SagaType      string     `json:"sagaType"`
	Status        string     `json:"status"`
	CurrentStep   string     `json:"currentStep"`
	FailureReason string     `json:"failureReason,omitempty"`
	EndTime       *time.Time `json:"endTime,omitempty"`
}

type StatusNotifier struct {
	client mqtt.Client
	prefix string
	logger *zap.Logger
}

func NewStatusNotifier(client mqtt.Client, prefix string, logger *zap.Logger) *StatusNotifier {
	return &StatusNotifier{client: client, prefix: prefix, logger: logger}
}

// StatusTopic is <prefix>/sagas/<sagaId>/status.
func StatusTopic(prefix, sagaID string) string {
	if prefix == "" {
		return "sagas/" + sagaID + "/status"
	}
	return prefix + "/sagas/" + sagaID + "/status"
}

func NewStatusMessage(state *entities.SagaState) StatusMessage {
	return StatusMessage{
		SagaID:        state.SagaID,
		SagaType:      string(state.SagaType),
		Status:        state.Status.String(),
		CurrentStep:   state.CurrentStep,
		FailureReason: state.FailureReason,
		EndTime:       state.EndTime,
	}
}

func (n *StatusNotifier) NotifyStatus(ctx context.Context, state *entities.SagaState) error {
	body, err := json.Marshal(NewStatusMessage(state))
	if err != nil {
		return err
	}
	topic := StatusTopic(n.prefix, state.SagaID)
	token := n.client.Publish(topic, byte(1), true, body)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("mqtt publish to %s timed out", topic)
	}
	if err = token.Error(); err != nil {
		n.logger.Error("MQTT_PUBLISH", zap.String("topic", topic), zap.Error(err))
		return err
	}
	return nil
}

func (n *StatusNotifier) Close() {
	n.client.Disconnect(250)
}
