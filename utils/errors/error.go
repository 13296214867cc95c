package errors

import (
	"net/http"

	"github.com/pkg/errors"
)

// RecoveryError turns a recovered panic value into an error with a stack.
func RecoveryError(p interface{}) error {
	if err, ok := p.(error); ok {
		return errors.WithStack(err)
	}
	return errors.Errorf("panic: %v", p)
}

// PublicMessage hides internal failures from API callers.
func PublicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		return http.StatusText(status)
	}
	return err.Error()
}
