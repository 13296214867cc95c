package errors

import (
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRecoveryError(t *testing.T) {
	cause := fmt.Errorf("boom")
	assert.True(t, pkgerrors.Is(RecoveryError(cause), cause))
	assert.EqualError(t, RecoveryError("nil map"), "panic: nil map")
}

func TestPublicMessage(t *testing.T) {
	err := fmt.Errorf("mongo: connection refused")
	assert.Equal(t, "Internal Server Error", PublicMessage(err, http.StatusInternalServerError))
	assert.Equal(t, "mongo: connection refused", PublicMessage(err, http.StatusServiceUnavailable))
	assert.Equal(t, "mongo: connection refused", PublicMessage(err, http.StatusBadRequest))
}
