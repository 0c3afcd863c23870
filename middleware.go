package modernblog

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Giriprasad013-git/modern-blog/auth"
	"github.com/Giriprasad013-git/modern-blog/prefs"
)

const (
	sessionName  = "modernblog_session"
	deviceCookie = "device_id"
	deviceHeader = "X-Device-ID"
	csrfHeader   = "X-CSRF-Token"

	ctxUser   = "user"
	ctxDevice = "device_id"

	deviceCookieMaxAge = 365 * 24 * 60 * 60
)

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.NonWWWRedirect())
	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			a.Logger.Info("request", fields...)
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Use(a.Metrics.Middleware())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/uploads/")
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' https: data:; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'",
		HSTSMaxAge:            31536000,
	}))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     a.Config.origins(),
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, csrfHeader, deviceHeader},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
	}))

	e.Use(session.Middleware(a.newSessionStore()))

	if a.csrf {
		e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "header:" + csrfHeader,
			CookieName:     "_csrf",
			CookiePath:     "/",
			CookieSameSite: http.SameSiteLaxMode,
			CookieSecure:   a.Config.CookieSecure,
			Skipper: func(c echo.Context) bool {
				return c.Request().URL.Path == "/api/events"
			},
			ErrorHandler: func(err error, c echo.Context) error {
				return echo.NewHTTPError(http.StatusForbidden, "Invalid CSRF token")
			},
		}))
	}

	e.Use(a.identity)
	e.Use(cacheControlMiddleware)
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		h := c.Response().Header()
		switch {
		case strings.HasPrefix(path, "/uploads/"):
			h.Set("Cache-Control", "public, max-age=31536000, immutable")
		case path == "/sitemap.xml" || path == "/feed.xml":
			h.Set("Cache-Control", "public, max-age=3600")
		case strings.HasPrefix(path, "/api/me"),
			strings.HasPrefix(path, "/api/auth"),
			strings.HasPrefix(path, "/api/cms"),
			strings.HasPrefix(path, "/api/bookmarks"),
			strings.HasPrefix(path, "/api/reading-list"),
			strings.HasSuffix(path, "/rating"),
			strings.HasSuffix(path, "/helpful"),
			strings.HasPrefix(path, "/auth/"):
			h.Set("Cache-Control", "no-store")
		case strings.HasPrefix(path, "/api/"):
			h.Set("Cache-Control", "public, max-age=60")
		}
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 24 * 30,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// identity resolves the signed-in user and the device id of the request.
func (a *App) identity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if u, ok := a.sessionUser(c); ok {
			c.Set(ctxUser, u)
		}
		c.Set(ctxDevice, a.resolveDevice(c))
		return next(c)
	}
}

func (a *App) sessionUser(c echo.Context) (auth.User, bool) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return auth.User{}, false
	}
	id, _ := sess.Values["user_id"].(string)
	if id == "" {
		return auth.User{}, false
	}
	u, err := a.Auth.User(c.Request().Context(), id)
	if err != nil {
		if err != auth.ErrNotFound {
			a.Logger.Warn("load session user", zap.Error(err))
		}
		return auth.User{}, false
	}
	return u, true
}

// resolveDevice picks the device id: the user id when signed in, else a
// valid X-Device-ID header or device_id cookie, else a new id stored in
// the cookie.
func (a *App) resolveDevice(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return u.ID
	}
	if id := c.Request().Header.Get(deviceHeader); prefs.ValidDeviceID(id) {
		return id
	}
	if ck, err := c.Cookie(deviceCookie); err == nil && prefs.ValidDeviceID(ck.Value) {
		return ck.Value
	}
	id := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     deviceCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   deviceCookieMaxAge,
		HttpOnly: true,
		Secure:   a.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// CurrentUser returns the signed-in user of the request.
func CurrentUser(c echo.Context) (auth.User, bool) {
	u, ok := c.Get(ctxUser).(auth.User)
	return u, ok
}

// DeviceID returns the device id resolved for the request.
func DeviceID(c echo.Context) string {
	id, _ := c.Get(ctxDevice).(string)
	return id
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}

func (a *App) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := CurrentUser(c); !ok {
			return errUnauthorized
		}
		return next(c)
	}
}

func (a *App) requireEditor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := CurrentUser(c)
		if !ok {
			return errUnauthorized
		}
		if !u.IsEditor() {
			return errForbidden
		}
		return next(c)
	}
}

func (a *App) startSession(c echo.Context, u auth.User) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["user_id"] = u.ID
	delete(sess.Values, "oauth_state")
	delete(sess.Values, "oauth_device")
	c.Set(ctxUser, u)
	c.Set(ctxDevice, u.ID)
	return sess.Save(c.Request(), c.Response())
}

func (a *App) endSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}
