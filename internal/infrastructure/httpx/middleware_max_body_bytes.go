package httpx

import (
	"net/http"

	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
	"github.com/66gu1/thesisportal/internal/infrastructure/logger"
)

const defaultMaxBodyBytes = 1 << 20

// MaxBodyBytes caps request bodies, including the ones proxied to the backend.
// Declared oversize bodies are rejected up front; others fail while being read.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				ctx := r.Context()
				err := apperr.ErrTooLarge(limit)
				logger.Warn(ctx, err).Int64("content_length", r.ContentLength).Msg("httpx.MaxBodyBytes: rejected")
				w.Header().Set("Connection", "close")
				ReturnError(ctx, w, err)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
