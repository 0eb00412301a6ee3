package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
	"github.com/66gu1/thesisportal/internal/infrastructure/logger"
)

// ErrorBody is the envelope written by ReturnError. The backend answers in the same shape.
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func ReturnError(ctx context.Context, w http.ResponseWriter, returningErr error) {
	appError := apperr.FromError(returningErr)
	code := StatusOf(apperr.ClassOf(appError))
	if code == 0 {
		logger.Error(ctx, returningErr).Int("error_code", code).Msg("httpx.ReturnError: incorrect error class")
		code = http.StatusInternalServerError
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(map[string]any{
		"error": appError,
	})
	if err != nil {
		logger.Error(ctx, err).Str("returning_error", returningErr.Error()).Msg("httpx.ReturnError: encode failed")
	}
}

func StatusOf(class apperr.Class) int {
	switch class {
	case apperr.ClassBadRequest:
		return http.StatusBadRequest
	case apperr.ClassNotFound:
		return http.StatusNotFound
	case apperr.ClassUnauthorized:
		return http.StatusUnauthorized
	case apperr.ClassForbidden:
		return http.StatusForbidden
	case apperr.ClassBadGateway:
		return http.StatusBadGateway
	case apperr.ClassTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.ClassInternal:
		return http.StatusInternalServerError
	}

	return 0
}
