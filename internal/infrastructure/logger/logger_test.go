package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
	"github.com/66gu1/thesisportal/internal/infrastructure/contextx"
	"github.com/66gu1/thesisportal/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestError_LevelFromAppErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{name: "warn class error", err: apperr.ErrUnauthorized(), wantLevel: "warn"},
		{name: "plain error", err: errors.New("boom"), wantLevel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := &bytes.Buffer{}
			ctx := zerolog.New(buf).WithContext(context.Background())
			requestID := uuid.New()
			ctx = contextx.SetRequestID(ctx, requestID)

			logger.Error(ctx, tt.err).Msg("test")

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			require.Equal(t, tt.wantLevel, line["level"])
			require.Equal(t, requestID.String(), line["backend_request_id"])
			require.Equal(t, tt.err.Error(), line["error"])
		})
	}
}

func TestLogger_InjectsRequestLogger(t *testing.T) {
	t.Parallel()

	var fromCtx *zerolog.Logger
	h := logger.Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = zerolog.Ctx(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, fromCtx)
	require.NotEqual(t, zerolog.Disabled, fromCtx.GetLevel())
}
