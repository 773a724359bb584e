// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP         HTTPServer   `yaml:"http"`
	Admin        Admin        `yaml:"admin"`
	AuthProvider AuthProvider `yaml:"authProvider"`
	Housekeeper  Housekeeper  `yaml:"housekeeper"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

// Admin configures the session gated admin subtree.
type Admin struct {
	Prefix       string        `yaml:"prefix" default:"/admin"`
	Title        string        `yaml:"title" default:"Admin"`
	LoginURL     string        `yaml:"loginURL" default:"/login"`
	Navigation   []NavItem     `yaml:"navigation"`
	AssetsMaxAge time.Duration `yaml:"assetsMaxAge" default:"24h"`
}

type NavItem struct {
	Label string `yaml:"label"`
	Path  string `yaml:"path"`
}

type ProviderType string

const (
	ProviderGoTrue ProviderType = "gotrue"
	ProviderValKey ProviderType = "valkey"
	ProviderSQL    ProviderType = "sql"
	ProviderMemory ProviderType = "memory"
)

// AuthProvider selects and configures the backend that owns the sessions.
type AuthProvider struct {
	Type          ProviderType   `yaml:"type" default:"memory"`
	SessionCookie CookieTemplate `yaml:"sessionCookie"`
	RefreshCookie CookieTemplate `yaml:"refreshCookie"`

	GoTrue   GoTrue   `yaml:"gotrue"`
	ValKey   ValKey   `yaml:"valkey"`
	Database Database `yaml:"database"`
	Memory   Memory   `yaml:"memory"`
}

type GoTrue struct {
	URL     commoncfg.SourceRef `yaml:"url"`
	APIKey  commoncfg.SourceRef `yaml:"apiKey"`
	Timeout time.Duration       `yaml:"timeout" default:"10s"`
	// MTLS authenticates the service towards the auth server.
	MTLS *commoncfg.MTLS `yaml:"mtls"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	SSLMode  string              `yaml:"sslMode" default:"disable"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	Prefix    string              `yaml:"prefix"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
}

type Memory struct {
	CleanupInterval time.Duration `yaml:"cleanupInterval" default:"10m"`
	// Sessions are loaded into the store on start. A zero TTL never expires.
	Sessions []MemorySession `yaml:"sessions"`
}

type MemorySession struct {
	ID      string        `yaml:"id"`
	Subject string        `yaml:"subject"`
	Email   string        `yaml:"email"`
	TTL     time.Duration `yaml:"ttl"`
}

// Housekeeper configures the purge of expired sessions of the sql provider.
type Housekeeper struct {
	TriggerInterval time.Duration `yaml:"triggerInterval" default:"10m"`
}

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

// CookieTemplate holds every cookie attribute except the value.
type CookieTemplate struct {
	Name     string         `yaml:"name"`
	MaxAge   int            `yaml:"maxAge"`
	Path     string         `yaml:"path" default:"/"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure"`
	SameSite CookieSameSite `yaml:"sameSite"`
	HTTPOnly bool           `yaml:"httpOnly"`
}

var (
	ErrUnknownProvider       = errors.New("unknown auth provider type")
	ErrMissingSessionCookie  = errors.New("session cookie name is required")
	ErrMissingRefreshCookie  = errors.New("refresh cookie name is required for the gotrue provider")
	ErrInvalidAdminPrefix    = errors.New("admin prefix must start with '/' and must not be '/'")
	ErrInvalidNavigationPath = errors.New("navigation path must start with '/'")
	ErrMissingGoTrueURL      = errors.New("gotrue url is required")
	ErrMissingValKeyHost     = errors.New("valkey host is required")
	ErrMissingDatabaseName   = errors.New("database name is required")
	ErrMissingDatabaseHost   = errors.New("database host is required")
	ErrInvalidTriggerPeriod  = errors.New("housekeeper trigger interval must be positive")
	ErrInvalidMemorySession  = errors.New("memory session needs an id and a non negative ttl")
)

// Validate checks the settings that cannot be expressed with defaults.
func (c *Config) Validate() error {
	prefix := strings.TrimSuffix(c.Admin.Prefix, "/")
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidAdminPrefix, c.Admin.Prefix)
	}

	for _, item := range c.Admin.Navigation {
		if !strings.HasPrefix(item.Path, "/") {
			return fmt.Errorf("%w: %q", ErrInvalidNavigationPath, item.Path)
		}
	}

	if c.AuthProvider.SessionCookie.Name == "" {
		return ErrMissingSessionCookie
	}

	ap := c.AuthProvider
	switch ap.Type {
	case ProviderGoTrue:
		if ap.RefreshCookie.Name == "" {
			return ErrMissingRefreshCookie
		}
		if !isSet(ap.GoTrue.URL) {
			return ErrMissingGoTrueURL
		}
	case ProviderValKey:
		if !isSet(ap.ValKey.Host) {
			return ErrMissingValKeyHost
		}
	case ProviderSQL:
		if ap.Database.Name == "" {
			return ErrMissingDatabaseName
		}
		if !isSet(ap.Database.Host) {
			return ErrMissingDatabaseHost
		}
		if c.Housekeeper.TriggerInterval <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTriggerPeriod, c.Housekeeper.TriggerInterval)
		}
	case ProviderMemory:
		for i, s := range ap.Memory.Sessions {
			if s.ID == "" || s.TTL < 0 {
				return fmt.Errorf("%w: sessions[%d]", ErrInvalidMemorySession, i)
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, ap.Type)
	}

	return nil
}

// isSet reports whether ref points at a value. The content of env and file
// sources is only known when it is loaded.
func isSet(ref commoncfg.SourceRef) bool {
	switch ref.Source {
	case commoncfg.EmbeddedSourceValue:
		return strings.TrimSpace(ref.Value) != ""
	case commoncfg.EnvSourceValue:
		return ref.Env != ""
	case commoncfg.FileSourceValue:
		return ref.File.Path != ""
	default:
		return false
	}
}
