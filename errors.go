package modernblog

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Giriprasad013-git/modern-blog/analytics"
	"github.com/Giriprasad013-git/modern-blog/auth"
	"github.com/Giriprasad013-git/modern-blog/content"
	"github.com/Giriprasad013-git/modern-blog/media"
	"github.com/Giriprasad013-git/modern-blog/prefs"
	"github.com/Giriprasad013-git/modern-blog/views"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	errForbidden    = echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	errRateLimited  = echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts. Try again later.")
)

// errorStatus maps an error to its HTTP status and the message shown to
// the client.
func errorStatus(err error) (int, string) {
	var (
		he  *echo.HTTPError
		cve *content.ValidationError
		pve *prefs.ValidationError
		ave *analytics.ValidationError
	)
	switch {
	case errors.As(err, &he):
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, msg
	case errors.Is(err, content.ErrNotFound),
		errors.Is(err, prefs.ErrNotFound),
		errors.Is(err, auth.ErrNotFound),
		errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound, rootMessage(err)
	case errors.Is(err, content.ErrSlugTaken),
		errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict, rootMessage(err)
	case errors.As(err, &cve), errors.As(err, &pve), errors.As(err, &ave),
		errors.Is(err, content.ErrInvalidSlug),
		errors.Is(err, content.ErrInvalidCategory),
		errors.Is(err, prefs.ErrInvalidDevice),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrEmailNotVerified),
		errors.Is(err, media.ErrInvalidImage),
		errors.Is(err, media.ErrInvalidName),
		errors.Is(err, media.ErrTooLarge):
		return http.StatusBadRequest, rootMessage(err)
	}
	return http.StatusInternalServerError, "Internal server error"
}

func rootMessage(err error) string {
	return errors.Cause(err).Error()
}

func wantsJSON(c echo.Context) bool {
	req := c.Request()
	return strings.HasPrefix(req.URL.Path, "/api/") ||
		strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := errorStatus(err)
	if code >= http.StatusInternalServerError {
		a.Logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	if wantsJSON(c) {
		_ = c.JSON(code, map[string]string{"error": msg})
		return
	}
	_ = RenderStatus(c, code, views.ForStatus(a.Config.site(), code, msg))
}
