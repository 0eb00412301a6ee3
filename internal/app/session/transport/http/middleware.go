package http

import (
	"net/http"

	"github.com/66gu1/thesisportal/internal/infrastructure/contextx"
	"github.com/google/uuid"
)

// SessionContext puts the current user and session IDs into the request context so
// every log line of the request carries them.
func SessionContext(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if s, ok := svc.Current(); ok {
				if s.SessionID != uuid.Nil {
					ctx = contextx.SetSessionID(ctx, s.SessionID)
				}
				if s.Profile.ID != 0 {
					ctx = contextx.SetUserID(ctx, s.Profile.ID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
