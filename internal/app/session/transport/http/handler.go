package http

import (
	"context"
	"net/http"

	"github.com/66gu1/thesisportal/internal/app/session"
	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
	"github.com/66gu1/thesisportal/internal/infrastructure/httpx"
	"github.com/66gu1/thesisportal/internal/infrastructure/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	URLParamSessionID = "session_id"
)

type Service interface {
	State() session.State
	CurrentProfile() (session.Profile, bool)
	Current() (session.Session, bool)
	Login(ctx context.Context, email, password string) (session.Session, error)
	Refresh(ctx context.Context) (string, bool)
	Logout(ctx context.Context)
	LogoutAllDevices(ctx context.Context) error
	LogoutDevice(ctx context.Context, id uuid.UUID) error
	ListSessions(ctx context.Context) ([]session.DeviceSession, error)
	ForgotPassword(ctx context.Context, email string) error
	Request(ctx context.Context, endpoint string, opts session.RequestOptions) (*http.Response, error)
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordInput struct {
	Email string `json:"email"`
}

// StatusOutput is the session signal: loading, authenticated or unauthenticated.
type StatusOutput struct {
	State     session.State    `json:"state"`
	SessionID *uuid.UUID       `json:"session_id,omitempty"`
	Profile   *session.Profile `json:"profile,omitempty"`
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	if svc == nil {
		panic("nil session Service")
	}
	return &Handler{svc: svc}
}

// Status godoc
// @Summary      Session state
// @Description  Returns the session signal (loading, authenticated, unauthenticated) and the cached profile.
// @Tags         session
// @Produce      json
// @Success      200 {object} StatusOutput
// @Router       /session [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(r.Context(), w, http.StatusOK, h.status())
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges email and password for a session. A rejected login keeps any previous session.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Credentials"
// @Success      200 {object} StatusOutput
// @Failure      default {object} apperr.appError "Error"
// @Router       /session/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input LoginInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		logger.Warn(ctx, err).Msg("session.Handler.Login: request json decode failed")
		httpx.ReturnError(ctx, w, err)
		return
	}

	if _, err := h.svc.Login(ctx, input.Email, input.Password); err != nil {
		httpx.ReturnError(ctx, w, err)
		return
	}

	httpx.WriteJSON(ctx, w, http.StatusOK, h.status())
}

// Refresh godoc
// @Summary      Refresh the access token
// @Description  Runs the shared silent refresh. 401 means the session could not be recovered.
// @Tags         session
// @Produce      json
// @Success      200 {object} StatusOutput
// @Failure      default {object} apperr.appError "Error"
// @Router       /session/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.svc.Refresh(ctx); !ok {
		httpx.ReturnError(ctx, w, session.ErrSessionExpired())
		return
	}

	httpx.WriteJSON(ctx, w, http.StatusOK, h.status())
}

// Logout godoc
// @Summary      Log out
// @Description  Notifies the backend on a best-effort basis and always clears the local session.
// @Tags         session
// @Success      204 "No Content"
// @Router       /session/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll godoc
// @Summary      Log out from every device
// @Tags         session
// @Success      204 "No Content"
// @Failure      default {object} apperr.appError "Error"
// @Router       /session/logout-all [post]
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.svc.LogoutAllDevices(ctx); err != nil {
		httpx.ReturnError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword godoc
// @Summary      Request a password reset
// @Tags         session
// @Accept       json
// @Param        input body ForgotPasswordInput true "Account email"
// @Success      202 "Accepted"
// @Failure      default {object} apperr.appError "Error"
// @Router       /session/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input ForgotPasswordInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		logger.Warn(ctx, err).Msg("session.Handler.ForgotPassword: request json decode failed")
		httpx.ReturnError(ctx, w, err)
		return
	}

	if err := h.svc.ForgotPassword(ctx, input.Email); err != nil {
		httpx.ReturnError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ListDevices godoc
// @Summary      List device sessions
// @Description  Returns every server-side session of the user, the current one flagged.
// @Tags         devices
// @Produce      json
// @Success      200 {array} session.DeviceSession
// @Failure      default {object} apperr.appError "Error"
// @Router       /session/devices [get]
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.svc.ListSessions(ctx)
	if err != nil {
		httpx.ReturnError(ctx, w, err)
		return
	}

	httpx.WriteJSON(ctx, w, http.StatusOK, sessions)
}

// RevokeDevice godoc
// @Summary      Revoke a device session
// @Description  Ends one server-side session. Revoking the current one also clears the local session.
// @Tags         devices
// @Param        session_id path string true "Session ID"
// @Success      204 "No Content"
// @Failure      default {object} apperr.appError "Error"
// @Router       /session/devices/{session_id} [delete]
func (h *Handler) RevokeDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	idStr := chi.URLParam(r, URLParamSessionID)
	id, err := uuid.Parse(idStr)
	if err != nil {
		logger.Warn(ctx, err).
			Str(session.FieldSessionID.String(), idStr).
			Msg("session.Handler.RevokeDevice: invalid session ID format")
		httpx.ReturnError(ctx, w, apperr.ErrBadRequest())
		return
	}

	if err = h.svc.LogoutDevice(ctx, id); err != nil {
		httpx.ReturnError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) status() StatusOutput {
	out := StatusOutput{State: h.svc.State()}
	if s, ok := h.svc.Current(); ok && s.SessionID != uuid.Nil {
		out.SessionID = &s.SessionID
	}
	if p, ok := h.svc.CurrentProfile(); ok {
		out.Profile = &p
	}

	return out
}
