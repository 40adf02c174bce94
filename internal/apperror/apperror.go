package apperror

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	CodeValidation          = "VALIDATION"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeNotFound            = "NOT_FOUND"
	CodePersistence         = "PERSISTENCE"
)

// Sentinels for errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFound            = errors.New("not found")
	ErrPersistence         = errors.New("persistence failure")
)

type AppError struct {
	Code    string // e.g. VALIDATION
	Message string // user-facing message
	Err     error  // wrapped cause (optional)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error code so callers can use errors.Is
// without caring about the concrete message.
func (e *AppError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Code == CodeValidation
	case ErrInsufficientBalance:
		return e.Code == CodeInsufficientBalance
	case ErrNotFound:
		return e.Code == CodeNotFound
	case ErrPersistence:
		return e.Code == CodePersistence
	}
	return false
}

func Validation(format string, args ...any) *AppError {
	return &AppError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a database error. A nil err yields nil.
func Persistence(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	var balanceErr *InsufficientBalanceError
	if errors.As(err, &balanceErr) {
		return err
	}
	return &AppError{Code: CodePersistence, Message: message, Err: err}
}

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	AgentID   uint
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance (%sd) to deduct %sd",
		e.Available.StringFixed(1), e.Requested.String())
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// IsClientError reports whether err is due to operator input rather than
// a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrNotFound)
}
