package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
)

type ProcessedStore struct {
	mu       sync.RWMutex
	messages map[string]entities.ProcessedMessage
}

func NewProcessedStore() *ProcessedStore {
	return &ProcessedStore{messages: map[string]entities.ProcessedMessage{}}
}

func (p *ProcessedStore) Exists(ctx context.Context, messageID string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.messages[messageID]
	return ok, nil
}

func (p *ProcessedStore) Insert(ctx context.Context, msg *entities.ProcessedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.messages[msg.MessageID]; ok {
		return errors.Wrapf(sagaerrors.ErrAlreadyProcessed, "message %s", msg.MessageID)
	}
	p.messages[msg.MessageID] = copyMessage(*msg)
	return nil
}

func (p *ProcessedStore) FindByID(ctx context.Context, messageID string) (*entities.ProcessedMessage, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	msg, ok := p.messages[messageID]
	if !ok {
		return nil, errors.Wrapf(sagaerrors.ErrMessageNotFound, "message %s", messageID)
	}
	msg = copyMessage(msg)
	return &msg, nil
}

func (p *ProcessedStore) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int64
	for id, msg := range p.messages {
		if msg.ProcessedAt.Before(before) {
			delete(p.messages, id)
			n++
		}
	}
	return n, nil
}

// Len is the number of recorded messages.
func (p *ProcessedStore) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.messages)
}

func copyMessage(msg entities.ProcessedMessage) entities.ProcessedMessage {
	result := make(map[string]interface{}, len(msg.Result))
	for k, v := range msg.Result {
		result[k] = v
	}
	msg.Result = result
	return msg
}
