package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/66gu1/thesisportal/config"
	"github.com/66gu1/thesisportal/internal/app/authz"
	"github.com/66gu1/thesisportal/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestLoad_RepositoryConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("config.yaml")
	require.NoError(t, err)

	require.Equal(t, "8081", cfg.Port)
	require.Equal(t, "127.0.0.1:8081", cfg.Addr())
	require.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	require.Equal(t, config.LogLevelInfo, cfg.LogLevel)
	require.Equal(t, 15*time.Second, cfg.BackendTimeout())
	require.Equal(t, "http://localhost:8080/api", cfg.Session.BaseURL)
	require.True(t, cfg.Session.PreserveOnTransportError)

	resolver, err := authz.NewResolver(cfg.Authz, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)

	// DOCENTETG is not allowed on the report page
	require.False(t, resolver.CanAccess("reporte", []authz.RoleID{2}))
	require.True(t, resolver.CanAccess("reporte", []authz.RoleID{1}))
	require.Equal(t,
		[]authz.PageID{"defensas", "entregas", "perfil", "proyectos", "sesiones"},
		resolver.AllowedPages([]authz.RoleID{2}))
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session:
  base_url: http://backend.local
authz:
  default_page: perfil
  login_path: /login
  pages:
    perfil:
      everyone: true
`), 0o600))

	t.Setenv("PORTAL_SESSION_BASE_URL", "https://tesis.example.edu/api")
	t.Setenv("PORTAL_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://tesis.example.edu/api", cfg.Session.BaseURL)
	require.Equal(t, config.LogLevelDebug, cfg.LogLevel)
	require.Equal(t, 10, cfg.Session.RefreshTimeoutSeconds)
	require.NotEmpty(t, cfg.StateDir)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\n"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
}
