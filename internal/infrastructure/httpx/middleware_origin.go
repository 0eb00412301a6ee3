package httpx

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
	"github.com/66gu1/thesisportal/internal/infrastructure/logger"
	"github.com/samber/lo"
)

type AllowedOrigins map[string]struct{}

func NewAllowedOrigins(origins []string) AllowedOrigins {
	return lo.Keyify(lo.Map(origins, func(o string, _ int) string {
		return strings.TrimRight(strings.ToLower(o), "/")
	}))
}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[strings.ToLower(origin)]
	return ok
}

// OriginGuard rejects state-changing requests sent by a browser from another origin.
// Requests without browser origin headers (CLI, scripts) and same-origin requests pass.
func OriginGuard(allowed AllowedOrigins) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			switch {
			case origin != "":
				if allowed.IsAllowedOrigin(origin) || sameOrigin(r, origin) {
					next.ServeHTTP(w, r)
					return
				}
			case r.Header.Get("Sec-Fetch-Site") == "cross-site":
			default:
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			err := apperr.ErrForbidden().WithDetail(fmt.Sprintf("cross-origin %s from %q", r.Method, origin))
			logger.Warn(ctx, err).Msg("httpx.OriginGuard: rejected")
			ReturnError(ctx, w, err)
		})
	}
}

func sameOrigin(r *http.Request, origin string) bool {
	host := strings.ToLower(r.Host)
	origin = strings.ToLower(origin)
	return origin == "http://"+host || origin == "https://"+host
}
