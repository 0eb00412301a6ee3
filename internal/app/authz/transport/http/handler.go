package http

import (
	"context"
	"net/http"

	"github.com/66gu1/thesisportal/internal/app/authz"
	"github.com/66gu1/thesisportal/internal/infrastructure/httpx"
	"github.com/go-chi/chi/v5"
)

const (
	URLParamPageID = "page_id"
)

type Resolver interface {
	AllowedPages(roles []authz.RoleID) []authz.PageID
	VisibleMenuItems(roles []authz.RoleID) []authz.MenuItem
	Guard(subject authz.Subject, page authz.PageID) authz.Decision
}

// SubjectFunc describes the current user for authorization. It is provided by the
// caller so this package stays independent of the session.
type SubjectFunc func(ctx context.Context) authz.Subject

type Handler struct {
	resolver Resolver
	subject  SubjectFunc
}

func NewHandler(resolver Resolver, subject SubjectFunc) *Handler {
	if resolver == nil {
		panic("nil authz Resolver")
	}
	if subject == nil {
		panic("nil SubjectFunc")
	}
	return &Handler{resolver: resolver, subject: subject}
}

// Menu godoc
// @Summary      Navigation menu
// @Description  Menu items visible to the roles of the current user, in catalog order. Empty unless authenticated.
// @Tags         navigation
// @Produce      json
// @Success      200 {array} authz.MenuItem
// @Router       /navigation/menu [get]
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := h.subject(ctx)

	items := h.resolver.VisibleMenuItems(subject.Roles)
	if !subject.Authenticated {
		items = []authz.MenuItem{}
	}

	httpx.WriteJSON(ctx, w, http.StatusOK, items)
}

// Pages godoc
// @Summary      Allowed pages
// @Tags         navigation
// @Produce      json
// @Success      200 {array} string
// @Router       /navigation/pages [get]
func (h *Handler) Pages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := h.subject(ctx)

	pages := h.resolver.AllowedPages(subject.Roles)
	if !subject.Authenticated {
		pages = []authz.PageID{}
	}

	httpx.WriteJSON(ctx, w, http.StatusOK, pages)
}

// Guard godoc
// @Summary      Route guard decision
// @Description  Loading, unauthenticated, unauthorized or authorized, with the redirect target.
// @Tags         navigation
// @Produce      json
// @Param        page_id path string true "Page ID"
// @Success      200 {object} authz.Decision
// @Router       /navigation/guard/{page_id} [get]
func (h *Handler) Guard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := authz.PageID(chi.URLParam(r, URLParamPageID))
	httpx.WriteJSON(ctx, w, http.StatusOK, h.resolver.Guard(h.subject(ctx), page))
}

// Page renders the placeholder of a guarded page. The screens themselves live elsewhere.
//
// @Summary      Guarded page
// @Tags         navigation
// @Produce      json
// @Param        page_id path string true "Page ID"
// @Success      200 {object} authz.Decision
// @Success      302 "Redirect to login or default page"
// @Failure      503 "Session still loading"
// @Router       /pages/{page_id} [get]
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := authz.PageID(chi.URLParam(r, URLParamPageID))
	httpx.WriteJSON(ctx, w, http.StatusOK, authz.Decision{State: authz.GuardAuthorized, Page: page})
}
