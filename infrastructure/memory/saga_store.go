package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
)

// SagaStore keeps saga states in process. Values are cloned on the way in and out so
// callers never share memory with the store.
type SagaStore struct {
	mu    sync.RWMutex
	sagas map[string]*entities.SagaState
}

func NewSagaStore() *SagaStore {
	return &SagaStore{sagas: map[string]*entities.SagaState{}}
}

func (s *SagaStore) Create(ctx context.Context, state *entities.SagaState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sagas[state.SagaID]; ok {
		return errors.Wrapf(sagaerrors.ErrSagaExists, "saga %s", state.SagaID)
	}
	s.sagas[state.SagaID] = state.Clone()
	return nil
}

func (s *SagaStore) FindByID(ctx context.Context, sagaID string) (*entities.SagaState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sagas[sagaID]
	if !ok {
		return nil, errors.Wrapf(sagaerrors.ErrSagaNotFound, "saga %s", sagaID)
	}
	return state.Clone(), nil
}

func (s *SagaStore) Update(ctx context.Context, state *entities.SagaState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sagas[state.SagaID]
	if !ok {
		return errors.Wrapf(sagaerrors.ErrSagaNotFound, "saga %s", state.SagaID)
	}
	if stored.Version != state.Version {
		return errors.Wrapf(sagaerrors.ErrVersionConflict, "saga %s: stored %d, got %d", state.SagaID, stored.Version, state.Version)
	}
	state.Version++
	s.sagas[state.SagaID] = state.Clone()
	return nil
}

func (s *SagaStore) FindByStatus(ctx context.Context, statuses []entities.SagaStatus) ([]*entities.SagaState, error) {
	return s.find(func(st *entities.SagaState) bool {
		return hasStatus(statuses, st.Status)
	}), nil
}

func (s *SagaStore) FindStuck(ctx context.Context, sagaType entities.SagaType, statuses []entities.SagaStatus, olderThan time.Time) ([]*entities.SagaState, error) {
	return s.find(func(st *entities.SagaState) bool {
		return st.SagaType == sagaType && hasStatus(statuses, st.Status) && !st.CurrentStepStartTime.After(olderThan)
	}), nil
}

func (s *SagaStore) find(match func(*entities.SagaState) bool) []*entities.SagaState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*entities.SagaState
	for _, st := range s.sagas {
		if match(st) {
			res = append(res, st.Clone())
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].StartTime.Before(res[j].StartTime)
	})
	return res
}

func hasStatus(statuses []entities.SagaStatus, status entities.SagaStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
