package errors

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrSagaNotFound will throw if no saga is stored under the requested id
	ErrSagaNotFound = errors.New("saga not found")
	// ErrSagaExists will throw when a saga is created twice with the same id
	ErrSagaExists = errors.New("saga already exists")
	// ErrVersionConflict will throw when a saga was updated concurrently since it was loaded
	ErrVersionConflict = errors.New("saga version conflict")
	// ErrMessageNotFound will throw if the message id is not in the idempotency ledger
	ErrMessageNotFound = errors.New("processed message not found")
	// ErrAlreadyProcessed will throw when the ledger already holds the message id
	ErrAlreadyProcessed = errors.New("message already processed")

	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrUnknownFlow     = errors.New("unknown saga flow")
	ErrUnknownStep     = errors.New("unknown saga step")
	ErrMissingPrice    = errors.New("price not available")
	ErrLockNotAcquired = errors.New("saga lock not acquired")
)

// HTTPStatus maps an error returned by the application layer to a response code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrUnknownFlow):
		return http.StatusBadRequest
	case errors.Is(err, ErrSagaNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSagaExists), errors.Is(err, ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, ErrLockNotAcquired):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
