package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
)

const (
	FieldEmail     apperr.Field = "email"
	FieldPassword  apperr.Field = "password"
	FieldSessionID apperr.Field = "session_id"
	FieldEndpoint  apperr.Field = "endpoint"
)

const (
	CodeEmailNotFound    apperr.Code = "session/email_not_found"
	CodeWrongPassword    apperr.Code = "session/wrong_password"
	CodeLoginFailed      apperr.Code = "session/login_failed"
	CodeSessionExpired   apperr.Code = "session/expired"
	CodeValidationFailed apperr.Code = "session/validation_failed"
	CodeBackendRejected  apperr.Code = "session/backend_rejected"
)

// Reason tells the login screen which message to show.
type Reason string

const (
	ReasonEmailNotFound Reason = "email_not_found"
	ReasonWrongPassword Reason = "wrong_password"
	ReasonGeneric       Reason = "generic"
)

const (
	msgEmailNotFound  = "This email address is not registered."
	msgWrongPassword  = "The password is incorrect."
	msgLoginFailed    = "Could not sign in. Please try again."
	msgSessionExpired = "Your session has expired. Please sign in again."
)

func ErrSessionExpired() error {
	return apperr.New(msgSessionExpired, CodeSessionExpired, apperr.ClassUnauthorized, apperr.LogLevelWarn)
}

func ErrValidation(field apperr.Field) error {
	return apperr.New(fmt.Sprintf("%s is required", field), CodeValidationFailed, apperr.ClassBadRequest, apperr.LogLevelWarn).
		WithViolation(apperr.Violation{Field: field, Rule: apperr.RuleRequired})
}

// AuthenticationError is returned by Login. No session is left behind when it occurs.
type AuthenticationError struct {
	Reason Reason
	app    error
	cause  error
}

func newAuthenticationError(reason Reason, cause error) *AuthenticationError {
	var app error
	switch reason {
	case ReasonEmailNotFound:
		app = apperr.New(msgEmailNotFound, CodeEmailNotFound, apperr.ClassUnauthorized, apperr.LogLevelWarn)
	case ReasonWrongPassword:
		app = apperr.New(msgWrongPassword, CodeWrongPassword, apperr.ClassUnauthorized, apperr.LogLevelWarn)
	default:
		reason = ReasonGeneric
		class := apperr.ClassUnauthorized
		if cause != nil {
			if c := apperr.ClassOf(cause); c == apperr.ClassInternal || c == apperr.ClassBadGateway {
				// backend unreachable or broken, not a rejection
				class = apperr.ClassBadGateway
			}
		}
		app = apperr.New(msgLoginFailed, CodeLoginFailed, class, apperr.LogLevelWarn)
	}

	return &AuthenticationError{Reason: reason, app: app, cause: cause}
}

func (e *AuthenticationError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("authentication failed (%s)", e.Reason)
	}
	return fmt.Sprintf("authentication failed (%s): %v", e.Reason, e.cause)
}

// Message is the human-readable text for the user.
func (e *AuthenticationError) Message() string {
	return apperr.MessageOf(e.app)
}

func (e *AuthenticationError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.app}
	}
	return []error{e.app, e.cause}
}

// SessionExpiredError means a 401 could not be recovered by a refresh. The session
// has already been cleared when it is returned; the caller redirects to login.
type SessionExpiredError struct {
	cause error
}

func (e *SessionExpiredError) Error() string {
	if e.cause == nil {
		return "session expired"
	}
	return fmt.Sprintf("session expired: %v", e.cause)
}

func (e *SessionExpiredError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrSessionExpired()}
	}
	return []error{ErrSessionExpired(), e.cause}
}

func IsSessionExpired(err error) bool {
	var target *SessionExpiredError
	return errors.As(err, &target)
}

// backendError is the error body of the REST backend. It is sent either as
// {"error":{"message":..,"code":..}} or flat as {"message":..,"code":..}.
type backendError struct {
	Status  int
	Message string
	Code    string
}

func (e backendError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend status %d: %s (%s)", e.Status, e.Message, e.Code)
}

func readBackendError(resp *http.Response) backendError {
	defer resp.Body.Close()

	out := backendError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		out.Message = http.StatusText(resp.StatusCode)
		return out
	}

	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Code    string          `json:"code"`
	}
	if err = json.Unmarshal(raw, &body); err != nil {
		out.Message = strings.TrimSpace(string(raw))
		return out
	}
	out.Message, out.Code = body.Message, body.Code

	if len(body.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		var flat string
		switch {
		case json.Unmarshal(body.Error, &nested) == nil:
			if nested.Message != "" {
				out.Message = nested.Message
			}
			if nested.Code != "" {
				out.Code = nested.Code
			}
		case json.Unmarshal(body.Error, &flat) == nil && out.Message == "":
			out.Message = flat
		}
	}
	if out.Message == "" {
		out.Message = http.StatusText(resp.StatusCode)
	}

	return out
}

// toAppError maps a non-2xx backend answer onto the error taxonomy.
func (e backendError) toAppError() error {
	var class apperr.Class
	switch {
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		class = apperr.ClassBadRequest
	case e.Status == http.StatusUnauthorized:
		class = apperr.ClassUnauthorized
	case e.Status == http.StatusForbidden:
		class = apperr.ClassForbidden
	case e.Status == http.StatusNotFound:
		class = apperr.ClassNotFound
	case e.Status >= http.StatusInternalServerError:
		class = apperr.ClassBadGateway
	default:
		class = apperr.ClassBadRequest
	}

	return apperr.New(e.Message, CodeBackendRejected, class, apperr.LogLevelWarn).WithDetail(e.Error())
}

var loginCodeReasons = map[string]Reason{
	"auth/email_not_found":  ReasonEmailNotFound,
	"auth/user_not_found":   ReasonEmailNotFound,
	"user/not_found":        ReasonEmailNotFound,
	"auth/wrong_password":   ReasonWrongPassword,
	"auth/invalid_password": ReasonWrongPassword,
}

var (
	emailKeywords    = []string{"email", "correo", "usuario no encontrado", "user not found", "no existe", "not registered"}
	passwordKeywords = []string{"password", "contraseña", "contrasena", "clave"}
)

// classifyLoginFailure prefers the structured code. Matching keywords in the
// message is kept only for backends that still answer with free text.
func classifyLoginFailure(e backendError) Reason {
	if reason, ok := loginCodeReasons[e.Code]; ok {
		return reason
	}

	msg := strings.ToLower(e.Message)
	email := containsAny(msg, emailKeywords)
	password := containsAny(msg, passwordKeywords)
	switch {
	case email && !password:
		return ReasonEmailNotFound
	case password && !email:
		return ReasonWrongPassword
	default:
		return ReasonGeneric
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
