package core

import (
	"errors"

	"github.com/vovakirdan/relaychat/internal/store"
)

// Error codes sent to clients.
const (
	ErrCodeValidation          = "validation_error"
	ErrCodeDeliveryFailed      = "delivery_failed"
	ErrCodeHistoryFailed       = "history_failed"
	ErrCodeWelcomeNotPersisted = "welcome_not_persisted"
	ErrCodeBadRequest          = "bad_request"
	ErrCodeRateLimited         = "rate_limited"
)

// ErrValidation is matched by every input validation failure.
var ErrValidation = errors.New("validation failed")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	// Op is the client operation that failed: join, send or history.
	Op  string
	Err error
}

func (e *CoreError) Error() string {
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

func validationError(op, msg string) *CoreError {
	return &CoreError{Code: ErrCodeValidation, Message: msg, Op: op, Err: ErrValidation}
}

func storageError(code, op, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Op: op, Err: store.Wrap(op, err)}
}

// IsValidation reports whether err is a rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsStorage reports whether err comes from the persistence layer.
func IsStorage(err error) bool {
	return errors.Is(err, store.ErrUnavailable)
}
