package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"riddle-hunt-service/internal/domain"
)

const (
	// StoreMemory keeps every record in process memory.
	StoreMemory = "memory"
	// StoreRedis keeps records in Redis hashes.
	StoreRedis = "redis"
	// StorePostgres keeps records in Postgres tables managed by migrations.
	StorePostgres = "postgres"

	// CatalogFromConfig reads riddles from the contest block of this file.
	CatalogFromConfig = "config"
	// CatalogFromPostgres reads riddles from the riddles table.
	CatalogFromPostgres = "postgres"
)

// adminPasswordEnv overrides contest.admin_password so the secret can stay out of the file.
const adminPasswordEnv = "CONTEST_ADMIN_PASSWORD"

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level       string `yaml:"level"`
		Format      string `yaml:"format"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Store struct {
		Backend string `yaml:"backend"`
	} `yaml:"store"`
	Session struct {
		TTL string `yaml:"ttl"`
	} `yaml:"session"`
	Winners struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"winners"`
	Contest Contest `yaml:"contest"`
}

// Contest is the configuration surface of the riddle contest itself.
type Contest struct {
	TimeLimitSeconds int                   `yaml:"time_limit_seconds"`
	AdminPassword    string                `yaml:"admin_password"`
	StartsAt         string                `yaml:"starts_at"`
	CatalogSource    string                `yaml:"catalog_source"`
	Entries          []domain.CatalogEntry `yaml:"entries"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if pw := os.Getenv(adminPasswordEnv); pw != "" {
		cfg.Contest.AdminPassword = pw
	}
	return cfg, nil
}

// Validate runs the startup checks. Any failure wraps domain.ErrConfigurationInvalid.
func (c Config) Validate() error {
	switch c.StoreBackend() {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis store selected without redis.addr", domain.ErrConfigurationInvalid)
		}
	case StorePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("%w: postgres store selected without postgres.url", domain.ErrConfigurationInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", domain.ErrConfigurationInvalid, c.Store.Backend)
	}
	return c.Contest.Validate()
}

// StoreBackend returns the configured gateway backend, memory when unset.
func (c Config) StoreBackend() string {
	if c.Store.Backend == "" {
		return StoreMemory
	}
	return strings.ToLower(c.Store.Backend)
}

// Validate checks the contest block. Riddle entries are only checked here when
// they come from this file; a Postgres catalog is validated once it is loaded.
func (c Contest) Validate() error {
	if strings.TrimSpace(c.AdminPassword) == "" {
		return fmt.Errorf("%w: admin password must be set", domain.ErrConfigurationInvalid)
	}
	if c.TimeLimitSeconds <= 0 {
		return fmt.Errorf("%w: time_limit_seconds must be positive", domain.ErrConfigurationInvalid)
	}
	if _, err := c.StartTime(); err != nil {
		return err
	}
	switch c.CatalogSourceName() {
	case CatalogFromConfig:
		_, err := domain.NewCatalog(c.Entries)
		return err
	case CatalogFromPostgres:
		return nil
	default:
		return fmt.Errorf("%w: unknown catalog source %q", domain.ErrConfigurationInvalid, c.CatalogSource)
	}
}

// CatalogSourceName returns where riddles are read from, config when unset.
func (c Contest) CatalogSourceName() string {
	if c.CatalogSource == "" {
		return CatalogFromConfig
	}
	return strings.ToLower(c.CatalogSource)
}

// TimeLimit is the per-riddle answer window.
func (c Contest) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitSeconds) * time.Second
}

// StartTime parses starts_at. A zero time means the contest is always open.
func (c Contest) StartTime() (time.Time, error) {
	if c.StartsAt == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, c.StartsAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: starts_at: %v", domain.ErrConfigurationInvalid, err)
	}
	return t, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
