package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotEligible                     = "NOT_ELIGIBLE"
	CodeInvalidAmount                   = "INVALID_AMOUNT"
	CodeInvalidSignature                = "INVALID_SIGNATURE"
	CodeNotFound                        = "NOT_FOUND"
	CodePaymentVerifiedCaseUpdateFailed = "PAYMENT_VERIFIED_CASE_UPDATE_FAILED"
	CodeBadRequest                      = "BAD_REQUEST"
	CodeUnauthorized                    = "UNAUTHORIZED"
	CodeForbidden                       = "FORBIDDEN"
	CodeConflict                        = "CONFLICT"
	CodeInternal                        = "INTERNAL_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
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

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func NotEligible(message string) *AppError {
	return &AppError{
		Code:    CodeNotEligible,
		Message: message,
		Status:  http.StatusConflict,
	}
}

func InvalidAmount(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidAmount,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func InvalidSignature(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidSignature,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// PaymentVerifiedCaseUpdateFailed marks a torn write: the payment is terminal
// but its case is still pending_payment. Operators resolve it; callers must
// not blindly retry the payment side.
func PaymentVerifiedCaseUpdateFailed(caseID uint, err error) *AppError {
	return &AppError{
		Code:    CodePaymentVerifiedCaseUpdateFailed,
		Message: fmt.Sprintf("payment verified but case %d could not be updated", caseID),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the AppError code carried by err, or CodeInternal for
// anything that is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
