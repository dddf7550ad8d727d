package service

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorCode classifies a chat pipeline failure. The router converts every
// code except InvalidInput into a fallback answer; controllers use the code
// for the HTTP status and the stream error event.
type ErrorCode string

const (
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrCodeClassification ErrorCode = "CLASSIFICATION_FAILURE"
	ErrCodeNoEvidence     ErrorCode = "NO_EVIDENCE"
	ErrCodeUnsupported    ErrorCode = "UNSUPPORTED_INTENT"
	ErrCodeUpstream       ErrorCode = "UPSTREAM_FAILURE"
	ErrCodeBudgetExceeded ErrorCode = "BUDGET_EXCEEDED"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeInternal       ErrorCode = "INTERNAL"
)

// ChatError carries the taxonomy code alongside the underlying failure.
type ChatError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ChatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

func newChatError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the taxonomy code, defaulting to INTERNAL for untyped
// errors.
func CodeOf(err error) ErrorCode {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps a pipeline error to the response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeInvalidInput:
		return fiber.StatusBadRequest
	case ErrCodeNotFound:
		return fiber.StatusNotFound
	case ErrCodeUpstream:
		return fiber.StatusBadGateway
	case ErrCodeBudgetExceeded:
		return fiber.StatusRequestEntityTooLarge
	default:
		return fiber.StatusInternalServerError
	}
}
