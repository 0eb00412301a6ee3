package main

import (
	"fmt"
	"net/http"

	authzhttp "github.com/66gu1/thesisportal/internal/app/authz/transport/http"
	sessionhttp "github.com/66gu1/thesisportal/internal/app/session/transport/http"
	"github.com/66gu1/thesisportal/internal/infrastructure/httpx"
	"github.com/66gu1/thesisportal/internal/infrastructure/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	apiPrefix   = "/api"
	pagesPrefix = "/pages"
)

func newRouter(a *app) http.Handler {
	sessionHandler := sessionhttp.NewHandler(a.manager)
	navHandler := authzhttp.NewHandler(a.resolver, a.subject)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logger.Logger)
	r.Use(httpx.MaxBodyBytes(a.cfg.MaxBodySize))
	r.Use(httpx.OriginGuard(httpx.NewAllowedOrigins(a.cfg.AllowedOrigins)))
	r.Use(sessionhttp.SessionContext(a.manager))

	// --- session routes
	r.Route("/session", func(r chi.Router) {
		r.Get("/", sessionHandler.Status)                         // GET  /session
		r.Post("/login", sessionHandler.Login)                    // POST /session/login
		r.Post("/refresh", sessionHandler.Refresh)                // POST /session/refresh
		r.Post("/logout", sessionHandler.Logout)                  // POST /session/logout
		r.Post("/logout-all", sessionHandler.LogoutAll)           // POST /session/logout-all
		r.Post("/forgot-password", sessionHandler.ForgotPassword) // POST /session/forgot-password

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", sessionHandler.ListDevices)                                                     // GET /session/devices
			r.Delete(fmt.Sprintf("/{%s}", sessionhttp.URLParamSessionID), sessionHandler.RevokeDevice) // DELETE /session/devices/{session_id}
		})
	})

	// --- navigation routes
	r.Route("/navigation", func(r chi.Router) {
		r.Get("/menu", navHandler.Menu)                                               // GET /navigation/menu
		r.Get("/pages", navHandler.Pages)                                             // GET /navigation/pages
		r.Get(fmt.Sprintf("/guard/{%s}", authzhttp.URLParamPageID), navHandler.Guard) // GET /navigation/guard/{page_id}
	})

	// --- guarded pages
	r.Route(fmt.Sprintf("%s/{%s}", pagesPrefix, authzhttp.URLParamPageID), func(r chi.Router) {
		r.Use(navHandler.PageGuard(pagesPrefix))
		r.Get("/", navHandler.Page) // GET /pages/{page_id}
	})

	// --- backend pass-through
	r.HandleFunc(apiPrefix+"/*", sessionHandler.Proxy(apiPrefix)) // ANY /api/*

	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})) // GET /metrics

	return r
}
