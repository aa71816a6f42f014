package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Extraction errors. Only ErrExtractionFailure is fatal to an upload.
var (
	ErrExtractionFailure     = errors.New("document could not be read")
	ErrOracleFailure         = errors.New("oracle call failed")
	ErrOracleMalformedOutput = errors.New("oracle output malformed")
)

// Session errors
var (
	ErrUnsupportedCountry = errors.New("unsupported country")
	ErrNoActiveSession    = errors.New("no active session")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoMoreQuestions    = errors.New("no more questions")
	ErrQuestionRequired   = errors.New("question is required")
)

// Answer validation errors
var (
	ErrRequiredFieldMissing = errors.New("required field missing")
	ErrInvalidYesNo         = errors.New("invalid yes/no answer")
	ErrInvalidDate          = errors.New("invalid date answer")
	ErrInvalidSelection     = errors.New("invalid selection answer")
	ErrInvalidNumeric       = errors.New("invalid numeric answer")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// UserMessage returns the AppError message if err carries one, else err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// GRPCStatus maps domain errors onto gRPC status errors.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	msg := UserMessage(err)
	switch {
	case errors.Is(err, ErrRequiredFieldMissing),
		errors.Is(err, ErrInvalidYesNo),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidSelection),
		errors.Is(err, ErrInvalidNumeric),
		errors.Is(err, ErrUnsupportedCountry),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, ErrNoActiveSession),
		errors.Is(err, ErrNoMoreQuestions),
		errors.Is(err, ErrQuestionRequired):
		return status.Error(codes.FailedPrecondition, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
