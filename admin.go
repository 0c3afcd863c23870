package modernblog

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Giriprasad013-git/modern-blog/analytics"
	"github.com/Giriprasad013-git/modern-blog/content"
)

// summaryWindow is how far back post views are read for the analytics
// dashboard.
const summaryWindow = 30 * 24 * time.Hour

func (a *App) handleCMSPosts(c echo.Context) error {
	posts, err := a.Content.AllPosts(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleCMSPost(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	post, err := a.Content.PostByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleCMSCreate(c echo.Context) error {
	var in content.PostInput
	if err := bind(c, &in); err != nil {
		return err
	}
	in.ID = 0
	if in.Author == "" {
		if u, ok := CurrentUser(c); ok {
			in.Author = u.Email
		}
	}
	post, err := a.Content.Save(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

func (a *App) handleCMSUpdate(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in content.PostInput
	if err := bind(c, &in); err != nil {
		return err
	}
	in.ID = id
	ctx := c.Request().Context()
	if in.Author == "" {
		existing, err := a.Content.PostByID(ctx, id)
		if err != nil {
			return err
		}
		in.Author = existing.Author
	}
	post, err := a.Content.Save(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleCMSDelete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.Content.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleCMSStats(c echo.Context) error {
	stats, err := a.Content.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (a *App) handleCMSAnalytics(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Content.Posts(ctx)
	if err != nil {
		return err
	}
	totals, err := a.Prefs.Totals(ctx)
	if err != nil {
		return err
	}
	recent, err := a.EventStore.Recent(ctx, analytics.RecentEventLimit)
	if err != nil {
		return err
	}
	views, err := a.EventStore.OfType(ctx, analytics.EventPostView, time.Now().UTC().Add(-summaryWindow))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analytics.BuildSummary(posts, totals, recent, views))
}
