package httpx_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
	"github.com/66gu1/thesisportal/internal/infrastructure/httpx"
	"github.com/stretchr/testify/require"
)

func TestMaxBodyBytes(t *testing.T) {
	t.Parallel()

	const limit = 8

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			httpx.ReturnError(r.Context(), w, httpx.BodyError(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := httpx.MaxBodyBytes(limit)(echo)

	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantStatus    int
	}{
		{name: "within limit", body: "12345678", contentLength: 8, wantStatus: http.StatusNoContent},
		{name: "declared oversize", body: "123456789", contentLength: 9, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "undeclared oversize", body: "123456789", contentLength: -1, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusNoContent {
				var body httpx.ErrorBody
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				require.Equal(t, string(apperr.CodeTooLarge), body.Error.Code)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     bool
	}{
		{name: "ok", contentType: "application/json", body: `{"email":"a@b.c"}`},
		{name: "missing content type", body: `{"email":"a@b.c"}`, wantErr: true},
		{name: "unsupported content type", contentType: "text/plain", body: `{"email":"a@b.c"}`, wantErr: true},
		{name: "unknown field", contentType: "application/json", body: `{"mail":"a@b.c"}`, wantErr: true},
		{name: "trailing object", contentType: "application/json", body: `{"email":"a"}{"email":"b"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			var got payload
			err := httpx.DecodeJSON(req, &got)
			if tt.wantErr {
				require.Error(t, err)
				require.Equal(t, apperr.ClassBadRequest, apperr.ClassOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, "a@b.c", got.Email)
		})
	}
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusBadGateway, httpx.StatusOf(apperr.ClassBadGateway))
	require.Equal(t, http.StatusUnauthorized, httpx.StatusOf(apperr.ClassUnauthorized))
	require.Equal(t, 0, httpx.StatusOf(apperr.Class(0)))
}

func TestOriginGuard(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := httpx.OriginGuard(httpx.NewAllowedOrigins([]string{"http://localhost:5173/"}))(ok)

	tests := []struct {
		name       string
		method     string
		origin     string
		fetchSite  string
		wantStatus int
	}{
		{name: "cli without origin", method: http.MethodPost, wantStatus: http.StatusNoContent},
		{name: "allowed origin", method: http.MethodPost, origin: "http://localhost:5173", wantStatus: http.StatusNoContent},
		{name: "same origin", method: http.MethodDelete, origin: "http://127.0.0.1:8081", wantStatus: http.StatusNoContent},
		{name: "foreign origin", method: http.MethodPost, origin: "https://evil.example", wantStatus: http.StatusForbidden},
		{name: "foreign origin delete", method: http.MethodDelete, origin: "https://evil.example", wantStatus: http.StatusForbidden},
		{name: "cross site without origin", method: http.MethodPost, fetchSite: "cross-site", wantStatus: http.StatusForbidden},
		{name: "safe method from foreign origin", method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "http://127.0.0.1:8081/session/logout-all", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.fetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", tt.fetchSite)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
