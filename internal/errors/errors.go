package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrMailNotConfigured = &AppError{Code: "MAIL_001", Message: "mail relay not configured"}
	ErrMailRejected      = &AppError{Code: "MAIL_002", Message: "mail relay rejected message"}
	ErrMailUnavailable   = &AppError{Code: "MAIL_003", Message: "mail relay unavailable"}

	ErrNoRecipients = &AppError{Code: "DISPATCH_001", Message: "no resolvable recipients"}

	ErrUnknownMetric = &AppError{Code: "GOAL_001", Message: "unknown goal metric"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapAs attaches a cause to one of the sentinel errors above, keeping the
// code and message single-sourced at the sentinel table.
func WrapAs(base *AppError, cause error) *AppError {
	return &AppError{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}
