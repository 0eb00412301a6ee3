package main

import (
	"context"
	"fmt"

	"github.com/66gu1/thesisportal/config"
	"github.com/66gu1/thesisportal/internal/app/authz"
	"github.com/66gu1/thesisportal/internal/app/session"
	"github.com/66gu1/thesisportal/internal/app/session/store"
	"github.com/66gu1/thesisportal/internal/infrastructure/httpx"
	"github.com/66gu1/thesisportal/internal/infrastructure/metrics"
	"github.com/66gu1/thesisportal/internal/infrastructure/system"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
)

type app struct {
	cfg      config.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	manager  *session.Manager
	resolver *authz.Resolver
}

func newApp(cfg config.Config, fs afero.Fs) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	client, err := httpx.NewClient(cfg.BackendTimeout())
	if err != nil {
		return nil, fmt.Errorf("newApp: %w", err)
	}

	manager, err := session.NewManager(client, store.NewFile(fs, cfg.StateDir), &system.RequestIDGenerator{}, m, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("newApp: %w", err)
	}

	resolver, err := authz.NewResolver(cfg.Authz, m)
	if err != nil {
		return nil, fmt.Errorf("newApp: %w", err)
	}

	return &app{
		cfg:      cfg,
		registry: registry,
		metrics:  m,
		manager:  manager,
		resolver: resolver,
	}, nil
}

// subject adapts the session state for the page guard.
func (a *app) subject(_ context.Context) authz.Subject {
	state := a.manager.State()
	s := authz.Subject{
		Loading:       state == session.StateLoading,
		Authenticated: state == session.StateAuthenticated,
	}
	if p, ok := a.manager.CurrentProfile(); ok {
		s.Roles = authz.RoleIDs(p.RoleIDs())
	}

	return s
}
