package modernblog

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Giriprasad013-git/modern-blog/auth"
	"github.com/Giriprasad013-git/modern-blog/cache"
	"github.com/Giriprasad013-git/modern-blog/database"
	"github.com/Giriprasad013-git/modern-blog/views"
)

// SiteConfig holds all configuration for a site. LoadConfig fills it from
// the environment; fields left zero get defaults in New.
type SiteConfig struct {
	Name        string `env:"SITE_NAME"`
	URL         string `env:"SITE_URL"`
	Description string `env:"SITE_DESCRIPTION"`
	Author      string `env:"SITE_AUTHOR"`

	Addr string `env:"ADDR"`

	DatabaseDriver string `env:"DATABASE_DRIVER"`
	// DatabaseURL is a file path for SQLite and a connection string for
	// Postgres.
	DatabaseURL string `env:"DATABASE_URL"`

	SessionSecret  string `env:"SESSION_SECRET"`
	CookieSecure   bool   `env:"COOKIE_SECURE"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminEmails   string `env:"ADMIN_EMAILS"`
	EditorEmails  string `env:"EDITOR_EMAILS"`

	PostCacheTTL  time.Duration `env:"POST_CACHE_TTL"`
	PrefsCacheTTL time.Duration `env:"PREFS_CACHE_TTL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	AnalyticsEnabled       bool `env:"ANALYTICS_ENABLED,default=true"`
	AnalyticsRetentionDays int  `env:"ANALYTICS_RETENTION_DAYS"`

	StaticDir      string `env:"STATIC_DIR"`
	CategoriesFile string `env:"CATEGORIES_FILE"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Modern Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = database.DriverSQLite
	}
	if c.DatabaseURL == "" && c.DatabaseDriver == database.DriverSQLite {
		c.DatabaseURL = "data/blog.db"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.PrefsCacheTTL == 0 {
		c.PrefsCacheTTL = 10 * time.Minute
	}
	if c.AnalyticsRetentionDays == 0 {
		c.AnalyticsRetentionDays = 365
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.ResetTokenTTL == 0 {
		c.ResetTokenTTL = time.Hour
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}

// Validate reports configuration that cannot start a server.
func (c SiteConfig) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("modernblog: SESSION_SECRET is required")
	}
	switch c.DatabaseDriver {
	case database.DriverSQLite, database.DriverPostgres:
	default:
		return errors.Errorf("modernblog: unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("modernblog: DATABASE_URL is required")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("modernblog: ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// site is the subset of the config the views need.
func (c SiteConfig) site() views.SiteConfig {
	return views.SiteConfig{Name: c.Name, URL: c.URL, Description: c.Description, Author: c.Author}
}

func (c SiteConfig) authConfig() auth.Config {
	return auth.Config{
		AdminEmails:  splitList(c.AdminEmails),
		EditorEmails: splitList(c.EditorEmails),
		ResetSecret:  []byte(c.SessionSecret),
		ResetTTL:     c.ResetTokenTTL,
		ResetURL:     c.URL + "/reset-password",
	}
}

func (c SiteConfig) redisOptions() cache.RedisOptions {
	return cache.RedisOptions{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

func (c SiteConfig) origins() []string {
	if list := splitList(c.AllowedOrigins); len(list) > 0 {
		return list
	}
	return []string{c.URL}
}

// splitList splits a comma separated setting, dropping blanks.
func splitList(s string) []string {
	return FilterEmpty(strings.Split(s, ","))
}

// LoadConfig reads .env files from dir and decodes the environment.
// Files are loaded in priority order and never override variables that
// are already set: .env.<APP_ENV>.local, .env.local, .env.<APP_ENV>, .env.
// APP_ENV defaults to development.
func LoadConfig(dir string) (SiteConfig, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	files := []string{".env." + env + ".local"}
	if env != "test" {
		files = append(files, ".env.local")
	}
	files = append(files, ".env."+env, ".env")
	for _, f := range files {
		path := filepath.Join(dir, f)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return SiteConfig{}, errors.Wrapf(err, "modernblog: load %s", f)
		}
	}

	var cfg SiteConfig
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return SiteConfig{}, errors.Wrap(err, "modernblog: decode environment")
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes once the built-in ones are
// in place.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir overrides the directory served at / for static assets and
// uploads.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithCache replaces the preferences cache backend.
func WithCache(c cache.Cache) Option {
	return func(a *App) {
		a.cache = c
	}
}

// WithMailer replaces the password-reset mailer.
func WithMailer(m auth.Mailer) Option {
	return func(a *App) {
		a.mailer = m
	}
}

// WithoutCSRF disables the CSRF middleware. Meant for tests and API-only
// deployments behind another gateway.
func WithoutCSRF() Option {
	return func(a *App) {
		a.csrf = false
	}
}
