package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/66gu1/thesisportal/internal/app/session"
	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
	"github.com/66gu1/thesisportal/internal/infrastructure/httpx"
	"github.com/66gu1/thesisportal/internal/infrastructure/logger"
)

var forwardedRequestHeaders = []string{"Accept", "Accept-Language", "Content-Type", "If-None-Match"}

var forwardedResponseHeaders = []string{"Cache-Control", "Content-Disposition", "Content-Type", "ETag", "Last-Modified", "Location"}

// Proxy forwards every request under prefix to the backend through the session, so
// CRUD pages get the bearer credential and the refresh-and-replay handling for free.
//
// @Summary      Backend pass-through
// @Description  Forwards the call to the backend with the session credential. Credential endpoints are sent without it.
// @Tags         proxy
// @Param        path path string true "Backend path"
// @Success      200 "Backend answer"
// @Failure      default {object} apperr.appError "Error"
// @Router       /api/{path} [get]
func (h *Handler) Proxy(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		endpoint := "/" + strings.TrimLeft(strings.TrimPrefix(r.URL.Path, prefix), "/")
		if r.URL.RawQuery != "" {
			endpoint += "?" + r.URL.RawQuery
		}

		opts := session.RequestOptions{Method: r.Method, Header: http.Header{}}
		for _, key := range forwardedRequestHeaders {
			if v := r.Header.Values(key); len(v) > 0 {
				opts.Header[key] = v
			}
		}
		if r.Body != nil && r.Body != http.NoBody {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Warn(ctx, err).Msg("session.Handler.Proxy: read body")
				httpx.ReturnError(ctx, w, httpx.BodyError(err))
				return
			}
			if len(body) > 0 {
				opts.Body = body
			}
		}

		resp, err := h.svc.Request(ctx, endpoint, opts)
		if err != nil {
			if apperr.ClassOf(err) == apperr.ClassInternal {
				err = apperr.ErrBadGateway().WithDetail(err.Error())
			}
			logger.Error(ctx, err).Str(session.FieldEndpoint.String(), endpoint).Msg("session.Handler.Proxy: Request")
			httpx.ReturnError(ctx, w, err)
			return
		}
		defer resp.Body.Close()

		for _, key := range forwardedResponseHeaders {
			for _, v := range resp.Header.Values(key) {
				w.Header().Add(key, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if _, err = io.Copy(w, resp.Body); err != nil {
			logger.Warn(ctx, err).Str(session.FieldEndpoint.String(), endpoint).Msg("session.Handler.Proxy: copy body")
		}
	}
}
