package modernblog

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Giriprasad013-git/modern-blog/auth"
	"github.com/Giriprasad013-git/modern-blog/prefs"
)

type meResponse struct {
	DeviceID        string        `json:"device_id"`
	User            *auth.User    `json:"user"`
	IsAuthenticated bool          `json:"is_authenticated"`
	IsAdmin         bool          `json:"is_admin"`
	IsEditor        bool          `json:"is_editor"`
	Profile         prefs.Profile `json:"profile"`
	CSRFToken       string        `json:"csrf_token,omitempty"`
}

// handleMe is the client's start-up call: who is signed in, which device
// this is and its stored preferences.
func (a *App) handleMe(c echo.Context) error {
	profile, err := a.Prefs.Load(c.Request().Context(), DeviceID(c))
	if err != nil {
		return err
	}
	resp := meResponse{
		DeviceID:  DeviceID(c),
		Profile:   profile,
		CSRFToken: CsrfToken(c),
	}
	if u, ok := CurrentUser(c); ok {
		resp.User = &u
		resp.IsAuthenticated = true
		resp.IsAdmin = u.IsAdmin()
		resp.IsEditor = u.IsEditor()
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *App) handleSavePreferences(c echo.Context) error {
	var u prefs.Update
	if err := bind(c, &u); err != nil {
		return err
	}
	p, err := a.Prefs.Save(c.Request().Context(), DeviceID(c), u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

type categoriesRequest struct {
	Categories []string `json:"categories"`
}

func (a *App) handlePreferredCategories(c echo.Context) error {
	var req categoriesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := a.Prefs.UpdatePreferredCategories(c.Request().Context(), DeviceID(c), req.Categories)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

type listOp func(*prefs.Service, context.Context, string, string) (prefs.Preferences, error)

// listChange adapts a bookmark or reading-list operation to a handler. The
// slug must name an existing post; removals accept any slug so stale
// entries can be cleared.
func (a *App) listChange(op listOp, mustExist bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		slug := c.Param("slug")
		if mustExist {
			post, err := a.Content.PostBySlug(ctx, slug)
			if err != nil {
				return err
			}
			slug = post.Slug
		}
		p, err := op(a.Prefs, ctx, DeviceID(c), slug)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, p)
	}
}

func (a *App) handleToggleBookmark(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Content.PostBySlug(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	added, p, err := a.Prefs.ToggleBookmark(ctx, DeviceID(c), post.Slug)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"bookmarked": added, "preferences": p})
}

// handleNotifications decodes the body over the current switches, so
// omitted keys keep their values.
func (a *App) handleNotifications(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := a.Prefs.Preferences(ctx, DeviceID(c))
	if err != nil {
		return err
	}
	n := current.Notifications
	if err := bind(c, &n); err != nil {
		return err
	}
	p, err := a.Prefs.UpdateNotifications(ctx, DeviceID(c), n)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

type subscribeRequest struct {
	Email string `json:"email"`
	Type  string `json:"subscription_type"`
}

func (a *App) handleSubscribe(c echo.Context) error {
	var req subscribeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	dev, err := a.Prefs.Subscribe(c.Request().Context(), DeviceID(c), req.Email, req.Type)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dev)
}

func (a *App) handleDismissNewsletter(c echo.Context) error {
	if err := a.Prefs.DismissNewsletter(c.Request().Context(), DeviceID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// savedPosts resolves one of the signed-in user's saved lists to posts.
func (a *App) savedPosts(c echo.Context, pick func(prefs.Preferences) []string) error {
	ctx := c.Request().Context()
	p, err := a.Prefs.Preferences(ctx, DeviceID(c))
	if err != nil {
		return err
	}
	posts, err := a.Content.PostsBySlugs(ctx, pick(p))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleBookmarks(c echo.Context) error {
	return a.savedPosts(c, func(p prefs.Preferences) []string { return p.BookmarkedPosts })
}

func (a *App) handleReadingList(c echo.Context) error {
	return a.savedPosts(c, func(p prefs.Preferences) []string { return p.ReadingList })
}
