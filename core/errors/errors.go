package errors

import "fmt"

type ErrorCode string

const (
	// Generic codes
	ErrInternalServer             ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrNotFound                   ErrorCode = "NOT_FOUND"
	ErrAlreadyExists              ErrorCode = "ALREADY_EXISTS"
	ErrInvalidInput               ErrorCode = "INVALID_INPUT"
	ErrInvalidRequestData         ErrorCode = "INVALID_REQUEST_DATA"
	ErrUnauthorized               ErrorCode = "UNAUTHORIZED"
	ErrForbidden                  ErrorCode = "FORBIDDEN"
	ErrTokenExpired               ErrorCode = "TOKEN_EXPIRED"
	ErrInvalidTokenFormat         ErrorCode = "INVALID_TOKEN_FORMAT"
	ErrMissingAuthorizationHeader ErrorCode = "MISSING_AUTHORIZATION_HEADER"
	ErrCreateFailed               ErrorCode = "CREATE_FAILED"
	ErrGetFailed                  ErrorCode = "GET_FAILED"
	ErrUpdateFailed               ErrorCode = "UPDATE_FAILED"
	ErrDeleteFailed               ErrorCode = "DELETE_FAILED"

	// Availability rule validation codes
	ErrInvalidDayOfWeek  ErrorCode = "INVALID_DAY_OF_WEEK"
	ErrInvalidTimeRange  ErrorCode = "INVALID_TIME_RANGE"
	ErrInvalidTimeFormat ErrorCode = "INVALID_TIME_FORMAT"
	ErrSlotTooShort      ErrorCode = "SLOT_TOO_SHORT"
	ErrSlotExceedsWindow ErrorCode = "SLOT_EXCEEDS_WINDOW"
	ErrOverlappingRule   ErrorCode = "OVERLAPPING_RULE"
	ErrRuleNotFound      ErrorCode = "RULE_NOT_FOUND"
)

// AppError is the structured error carried between service and controller layers.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails attaches structured diagnostics (e.g. the conflicting
// rule id on an overlap, or the available window length).
func NewAppErrorWithDetails(code ErrorCode, message string, details any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
