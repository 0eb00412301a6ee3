package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/66gu1/thesisportal/internal/app/authz"
	"github.com/66gu1/thesisportal/internal/app/session"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const EnvPrefix = "PORTAL"

type Config struct {
	// Host is the gateway bind address. It defaults to loopback because the gateway
	// lends the held session to whoever can reach it.
	Host                  string   `mapstructure:"host" json:"host"`
	Port                  string   `mapstructure:"port" json:"port"`
	LogLevel              LogLevel `mapstructure:"log_level" json:"log_level"`
	MaxBodySize           int64    `mapstructure:"max_body_size" json:"max_body_size"`
	StateDir              string   `mapstructure:"state_dir" json:"state_dir"`
	BackendTimeoutSeconds int      `mapstructure:"backend_timeout_seconds" json:"backend_timeout_seconds"`
	// AllowedOrigins may send state-changing requests from a browser besides the
	// gateway's own origin.
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`

	Session session.Config `mapstructure:"session" json:"session"`
	Authz   authz.Policy   `mapstructure:"authz" json:"authz"`
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSeconds) * time.Second
}

// Load reads path, or config.yaml from ./config and . when path is empty. Any key can be
// overridden from the environment as PORTAL_<KEY>, with nested keys joined by "_".
func Load(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", "8081")
	v.SetDefault("log_level", string(LogLevelInfo))
	v.SetDefault("max_body_size", 1<<20)
	v.SetDefault("state_dir", defaultStateDir())
	v.SetDefault("backend_timeout_seconds", 15)
	v.SetDefault("session.refresh_timeout_seconds", 10)
	v.SetDefault("session.preserve_on_transport_error", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config.Load: read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: unmarshal: %w", err)
	}
	if cfg.Session.BaseURL == "" {
		return Config{}, fmt.Errorf("config.Load: session.base_url is required")
	}

	return cfg, nil
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".portal"
	}
	return filepath.Join(dir, "thesisportal")
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (l LogLevel) ZeroLog() zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel

	default:
		return zerolog.InfoLevel
	}
}
