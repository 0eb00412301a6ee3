package http

import (
	"net/http"
	"strings"

	"github.com/66gu1/thesisportal/internal/app/authz"
	"github.com/66gu1/thesisportal/internal/infrastructure/httpx"
	"github.com/66gu1/thesisportal/internal/infrastructure/logger"
	"github.com/go-chi/chi/v5"
)

// PageGuard gates the {page_id} route. Unauthenticated users are sent to the login
// path, users without a granting role to the default page under pagePrefix. While the
// session is still loading it answers 503 with Retry-After.
func (h *Handler) PageGuard(pagePrefix string) func(http.Handler) http.Handler {
	pagePrefix = strings.TrimRight(pagePrefix, "/")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			page := authz.PageID(chi.URLParam(r, URLParamPageID))
			decision := h.resolver.Guard(h.subject(ctx), page)

			switch decision.State {
			case authz.GuardAuthorized:
				next.ServeHTTP(w, r)
			case authz.GuardLoading:
				w.Header().Set("Retry-After", "1")
				httpx.WriteJSON(ctx, w, http.StatusServiceUnavailable, decision)
			case authz.GuardUnauthenticated:
				http.Redirect(w, r, decision.RedirectPath, http.StatusFound)
			default:
				logger.Debug(ctx).
					Str("page", decision.Page.String()).
					Str("redirect_page", decision.RedirectPage.String()).
					Msg("authz.PageGuard: page not allowed for held roles")
				http.Redirect(w, r, pagePrefix+"/"+decision.RedirectPage.String(), http.StatusFound)
			}
		})
	}
}
