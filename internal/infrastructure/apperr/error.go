package apperr

import (
	"errors"
	"fmt"
	"slices"
)

const (
	CodeBadRequest   Code = "core/bad_request"
	CodeUnauthorized Code = "core/unauthorized"
	CodeForbidden    Code = "core/forbidden"
	CodeNotFound     Code = "core/not_found"
	CodeBadGateway   Code = "core/bad_gateway"
	CodeTooLarge     Code = "core/too_large"
	CodeInternal     Code = "core/internal_error"
)

const (
	BadRequestMsg   = "Bad request"
	UnauthorizedMsg = "Unauthorized"
	ForbiddenMsg    = "Forbidden"
	NotFoundMsg     = "Not found"
	BadGatewayMsg   = "Backend unavailable"
	TooLargeMsg     = "Request body too large"
	InternalMsg     = "Internal server error"
)

func ErrBadRequest() *appError {
	return New(BadRequestMsg, CodeBadRequest, ClassBadRequest, LogLevelWarn)
}

func ErrUnauthorized() *appError {
	return New(UnauthorizedMsg, CodeUnauthorized, ClassUnauthorized, LogLevelWarn)
}

func ErrForbidden() *appError {
	return New(ForbiddenMsg, CodeForbidden, ClassForbidden, LogLevelWarn)
}

func ErrNotFound() *appError {
	return New(NotFoundMsg, CodeNotFound, ClassNotFound, LogLevelWarn)
}

func ErrBadGateway() *appError {
	return New(BadGatewayMsg, CodeBadGateway, ClassBadGateway, LogLevelError)
}

func ErrTooLarge(limit int64) *appError {
	return New(TooLargeMsg, CodeTooLarge, ClassTooLarge, LogLevelWarn).
		WithDetail(fmt.Sprintf("request body exceeds %d bytes", limit))
}

func ErrRequired(field Field) *appError {
	return ErrBadRequest().
		WithDetail(fmt.Sprintf("%s is required", field.String())).
		WithViolation(Violation{Field: field, Rule: RuleRequired})
}

// appError is used for errors whose message may be shown to the user (400, 401, 403, 404, 502).
// Anything else is wrapped with fmt.Errorf and reported as an internal error.
type appError struct {
	Message    string      `json:"message"` // Message for user
	Code       Code        `json:"code"`
	Violations []Violation `json:"violations,omitempty"`
	class      Class
	logLevel   LogLevel
	detail     string // detail for logs
}

func New(message string, code Code, class Class, logLevel LogLevel) *appError {
	return &appError{
		Message:  message,
		Code:     code,
		class:    class,
		logLevel: logLevel,
		detail:   message,
	}
}

func (e *appError) WithUserMessage(message string) *appError {
	e.Message = message
	return e
}

func (e *appError) WithDetail(detail string) *appError {
	e.detail = detail
	return e
}

func (e *appError) WithViolation(v Violation) *appError {
	e.Violations = append(e.Violations, v)
	return e
}

func (e *appError) Error() string {
	return e.detail
}

// Is matches by code, and by violations when the target lists any.
func (e *appError) Is(target error) bool {
	t, ok := target.(*appError)
	if !ok {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	if len(t.Violations) == 0 {
		return true
	}

	return slices.EqualFunc(e.Violations, t.Violations, func(a, b Violation) bool {
		return a.Field == b.Field && a.Rule == b.Rule
	})
}

type Violation struct {
	Field  Field          `json:"field"`
	Rule   Rule           `json:"rule"`
	Params map[string]any `json:"params,omitempty"`
}

type Field string

func (f Field) String() string { return string(f) }

const (
	FieldRequest Field = "request"
)

type Code string

type Class uint8

const (
	ClassInternal     Class = 1
	ClassBadRequest   Class = 2
	ClassNotFound     Class = 3
	ClassUnauthorized Class = 4
	ClassForbidden    Class = 5
	ClassBadGateway   Class = 6
	ClassTooLarge     Class = 7
)

type LogLevel int

const (
	LogLevelError LogLevel = 0
	LogLevelWarn  LogLevel = 1
)

func ClassOf(err error) Class {
	var ae *appError
	if errors.As(err, &ae) {
		return ae.class
	}
	return ClassInternal
}

func CodeOf(err error) Code {
	var ae *appError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func LogLevelOf(err error) LogLevel {
	var ae *appError
	if errors.As(err, &ae) {
		return ae.logLevel
	}
	return LogLevelError
}

// MessageOf returns the user-facing message, or the generic internal one.
func MessageOf(err error) string {
	return FromError(err).Message
}

func FromError(err error) *appError {
	var ae *appError
	if errors.As(err, &ae) {
		return ae
	}
	return &appError{
		Message:  InternalMsg,
		Code:     CodeInternal,
		class:    ClassInternal,
		logLevel: LogLevelError,
		detail:   err.Error(),
	}
}
