package modernblog

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Giriprasad013-git/modern-blog/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User     auth.User `json:"user"`
	IsAdmin  bool      `json:"is_admin"`
	IsEditor bool      `json:"is_editor"`
}

// anonymousDevice returns the request's device id when nobody is signed
// in. A signed-in request carries a user id, which must never be adopted.
func anonymousDevice(c echo.Context) string {
	if _, ok := CurrentUser(c); ok {
		return ""
	}
	return DeviceID(c)
}

// signedIn starts the session for u and moves the anonymous device's
// saved lists onto the account.
func (a *App) signedIn(c echo.Context, u auth.User) error {
	anon := anonymousDevice(c)
	if err := a.startSession(c, u); err != nil {
		return err
	}
	if err := a.Prefs.Adopt(c.Request().Context(), anon, u.ID); err != nil {
		a.Logger.Warn("adopt device preferences", zap.String("user_id", u.ID), zap.Error(err))
	}
	return nil
}

// credentials runs a password operation behind the per-IP login limiter.
// Only failed attempts count towards the limit.
func (a *App) credentials(c echo.Context, status int, op func(email, password string) (auth.User, error)) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return errRateLimited
	}
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := op(req.Email, req.Password)
	if err != nil {
		a.loginLimiter.Record(ip)
		return err
	}
	if err := a.signedIn(c, u); err != nil {
		return err
	}
	return c.JSON(status, sessionResponse{User: u, IsAdmin: u.IsAdmin(), IsEditor: u.IsEditor()})
}

func (a *App) handleSignUp(c echo.Context) error {
	ctx := c.Request().Context()
	return a.credentials(c, http.StatusCreated, func(email, password string) (auth.User, error) {
		return a.Auth.SignUp(ctx, email, password)
	})
}

func (a *App) handleSignIn(c echo.Context) error {
	ctx := c.Request().Context()
	return a.credentials(c, http.StatusOK, func(email, password string) (auth.User, error) {
		return a.Auth.SignIn(ctx, email, password)
	})
}

func (a *App) handleSignOut(c echo.Context) error {
	if err := a.endSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleForgotPassword answers the same way whether or not the address
// has an account. Every request counts towards the login limit.
func (a *App) handleForgotPassword(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return errRateLimited
	}
	a.loginLimiter.Record(ip)
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := a.Auth.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrInvalidEmail) {
			return err
		}
		a.Logger.Error("password reset request", zap.Error(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "If an account exists for that email, a reset link has been sent."})
}

func (a *App) handleResetPassword(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return errRateLimited
	}
	var req resetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := a.Auth.ResetPassword(c.Request().Context(), req.Token, req.Password)
	if err != nil {
		a.loginLimiter.Record(ip)
		return err
	}
	if err := a.signedIn(c, u); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{User: u, IsAdmin: u.IsAdmin(), IsEditor: u.IsEditor()})
}

func (a *App) handleUpdatePassword(c echo.Context) error {
	u, _ := CurrentUser(c)
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := a.Auth.UpdatePassword(c.Request().Context(), u.ID, req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleGoogleStart redirects to Google's consent screen. The state and
// the anonymous device id are kept in the session until the callback.
func (a *App) handleGoogleStart(c echo.Context) error {
	if a.google == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Google sign-in is not configured")
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	state := uuid.NewString()
	sess.Values["oauth_state"] = state
	sess.Values["oauth_device"] = anonymousDevice(c)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, a.google.AuthCodeURL(state))
}

func (a *App) handleGoogleCallback(c echo.Context) error {
	if a.google == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Google sign-in is not configured")
	}
	fail := func(reason string) error {
		return c.Redirect(http.StatusSeeOther, a.Config.URL+"/signin?error="+url.QueryEscape(reason))
	}

	sess, err := session.Get(sessionName, c)
	if err != nil {
		return fail("session")
	}
	want, _ := sess.Values["oauth_state"].(string)
	anon, _ := sess.Values["oauth_device"].(string)
	if want == "" || c.QueryParam("state") != want {
		return fail("state")
	}
	if reason := c.QueryParam("error"); reason != "" {
		return fail(reason)
	}

	ctx := c.Request().Context()
	email, err := a.google.Exchange(ctx, c.QueryParam("code"))
	if err != nil {
		a.Logger.Warn("google exchange", zap.Error(err))
		return fail("exchange")
	}
	u, err := a.Auth.SignInWithProvider(ctx, auth.ProviderGoogle, email)
	if err != nil {
		a.Logger.Warn("google sign-in", zap.Error(err))
		return fail("signin")
	}
	if err := a.startSession(c, u); err != nil {
		return err
	}
	if err := a.Prefs.Adopt(ctx, anon, u.ID); err != nil {
		a.Logger.Warn("adopt device preferences", zap.String("user_id", u.ID), zap.Error(err))
	}
	return c.Redirect(http.StatusSeeOther, a.Config.URL+"/")
}
