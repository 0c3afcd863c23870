// Package modernblog is the HTTP backend of a content-driven blog: public
// post browsing and search, per-device personalization, accounts with
// roles, a content-management API, first-party analytics, RSS and a
// sitemap.
package modernblog

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Giriprasad013-git/modern-blog/analytics"
	"github.com/Giriprasad013-git/modern-blog/auth"
	"github.com/Giriprasad013-git/modern-blog/cache"
	"github.com/Giriprasad013-git/modern-blog/content"
	"github.com/Giriprasad013-git/modern-blog/database"
	"github.com/Giriprasad013-git/modern-blog/media"
	"github.com/Giriprasad013-git/modern-blog/prefs"
)

// App wires the stores, services, middleware and routes of one site.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Logger  *zap.Logger
	Metrics *Metrics
	DB      *sqlx.DB

	Content    *content.Service
	Prefs      *prefs.Service
	Auth       *auth.Service
	Media      *media.Library
	Events     *analytics.Recorder
	EventStore *analytics.Store

	google       *auth.GoogleProvider
	loginLimiter *LoginLimiter
	collector    *analytics.Handler
	scheduler    *cron.Cron
	cache        cache.Cache
	mailer       auth.Mailer
	customRoutes []func(*App)
	csrf         bool
	closers      []func() error
	ready        bool
}

// New creates an App. Nothing is opened until Init or Start.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()
	a := &App{
		Config:  cfg,
		Echo:    echo.New(),
		Metrics: NewMetrics(),
		csrf:    true,
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init opens the database, builds the services and registers middleware
// and routes. It is called by Start and may be called directly to serve
// requests through a.Echo without listening.
func (a *App) Init(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}
	if a.Logger == nil {
		logger, err := NewLogger(a.Config.LogLevel, a.Config.LogFormat)
		if err != nil {
			return err
		}
		a.Logger = logger
	}

	db, err := database.Open(a.Config.DatabaseDriver, a.Config.DatabaseURL)
	if err != nil {
		return err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if err := a.initContent(); err != nil {
		return err
	}
	if err := a.initPrefs(ctx); err != nil {
		return err
	}
	if err := a.initAuth(ctx); err != nil {
		return err
	}
	a.Media = media.NewLibrary(media.NewStore(db), a.Config.StaticDir, a.Logger.Named("media"))
	if err := a.initAnalytics(); err != nil {
		return err
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

func (a *App) initContent() error {
	catalog := content.DefaultCatalog()
	if a.Config.CategoriesFile != "" {
		c, err := content.LoadCatalog(a.Config.CategoriesFile)
		if err != nil {
			return err
		}
		catalog = c
	}
	store := content.NewSQLStore(a.DB)
	posts := content.NewPostCache(store, a.Config.PostCacheTTL)
	posts.OnLoad = func(n int) {
		a.Metrics.postCacheLoads.Inc()
		a.Logger.Debug("post cache loaded", zap.Int("posts", n))
	}
	a.Content = content.NewService(store, posts, catalog, a.Logger.Named("content"))
	return nil
}

func (a *App) initPrefs(ctx context.Context) error {
	if a.cache == nil {
		if a.Config.RedisAddr != "" {
			r, err := cache.NewRedis(ctx, a.Config.redisOptions())
			if err != nil {
				return err
			}
			a.cache = r
			a.closers = append(a.closers, r.Close)
		} else {
			a.cache = cache.NewMemory()
		}
	}
	a.Prefs = prefs.NewService(prefs.NewSQLStore(a.DB), a.cache, a.Config.PrefsCacheTTL, a.Logger.Named("prefs"))
	return nil
}

func (a *App) initAuth(ctx context.Context) error {
	a.Auth = auth.NewService(auth.NewSQLStore(a.DB), a.mailer, a.Config.authConfig(), a.Logger.Named("auth"))
	if err := a.Auth.EnsureAdmin(ctx, a.Config.AdminEmail, a.Config.AdminPassword); err != nil {
		return errors.Wrap(err, "modernblog: bootstrap admin")
	}
	a.google = auth.NewGoogleProvider(a.Config.GoogleClientID, a.Config.GoogleClientSecret, a.Config.URL+"/auth/callback")
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.closers = append(a.closers, a.loginLimiter.Close)
	return nil
}

func (a *App) initAnalytics() error {
	a.EventStore = analytics.NewStore(a.DB)
	if !a.Config.AnalyticsEnabled {
		return nil
	}
	logger := a.Logger.Named("analytics")
	rec, err := analytics.NewRecorder(a.EventStore, logger, analytics.RecorderHooks{
		Accepted: a.Metrics.eventAccepted,
		Dropped:  a.Metrics.eventDropped,
		Persisted: func(_ analytics.Event, err error) {
			if err != nil {
				a.Metrics.eventDropped("failed")
			}
		},
	})
	if err != nil {
		return err
	}
	a.Events = rec
	a.closers = append(a.closers, rec.Close)

	limiter := analytics.NewLimiter(analytics.CollectPerMinute)
	a.collector = analytics.NewHandler(rec, limiter, DeviceID, logger)
	job := analytics.NewRetentionJob(a.EventStore, a.Config.AnalyticsRetentionDays, logger)
	a.scheduler, err = analytics.NewScheduler(job, limiter, logger)
	return err
}

// Start initializes the App if needed, starts background jobs and serves
// HTTP until Shutdown.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}
	a.Logger.Info("listening",
		zap.String("addr", a.Config.Addr),
		zap.String("url", a.Config.URL),
		zap.String("driver", a.Config.DatabaseDriver))
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, then the scheduler, then the event bus and
// finally closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.scheduler != nil {
		select {
		case <-a.scheduler.Stop().Done():
		case <-ctx.Done():
		}
	}
	return multiClose(err, a.close())
}

// Close releases resources without touching the HTTP server.
func (a *App) Close() error {
	return a.close()
}

func (a *App) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return first
}

func multiClose(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *App) uploadsDir() string {
	return filepath.Join(a.Config.StaticDir, media.UploadsDir)
}

func (a *App) handleHealth(c echo.Context) error {
	if err := a.DB.PingContext(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
