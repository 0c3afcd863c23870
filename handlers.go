package modernblog

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Giriprasad013-git/modern-blog/analytics"
	"github.com/Giriprasad013-git/modern-blog/content"
	"github.com/Giriprasad013-git/modern-blog/prefs"
	"github.com/Giriprasad013-git/modern-blog/views"
)

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/healthz", a.handleHealth)
	e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.Static("/uploads", a.uploadsDir())
	e.GET("/auth/callback", a.handleGoogleCallback)

	api := e.Group("/api")
	api.GET("/posts", a.handlePosts)
	api.GET("/posts/:slug", a.handlePost)
	api.GET("/posts/:slug/related", a.handleRelated)
	api.GET("/posts/:slug/meta", a.handlePostMeta)
	api.GET("/posts/:slug/rating", a.handleRating)
	api.PUT("/posts/:slug/rating", a.handleRate)
	api.PUT("/posts/:slug/helpful", a.handleHelpful)
	api.GET("/categories", a.handleCategories)
	api.GET("/categories/:category", a.handleCategory)
	api.GET("/categories/:category/posts", a.handleCategoryPosts)
	api.GET("/tags", a.handleTags)
	api.GET("/tags/:tag/posts", a.handleTagPosts)
	api.GET("/search", a.handleSearch)
	api.GET("/popular", a.handlePopular)
	api.GET("/archives", a.handleArchives)
	api.GET("/meta", a.handleHomeMeta)

	me := api.Group("/me")
	me.GET("", a.handleMe)
	me.PUT("/preferences", a.handleSavePreferences)
	me.PUT("/categories", a.handlePreferredCategories)
	me.POST("/bookmarks/:slug", a.listChange((*prefs.Service).AddBookmark, true))
	me.DELETE("/bookmarks/:slug", a.listChange((*prefs.Service).RemoveBookmark, false))
	me.POST("/bookmarks/:slug/toggle", a.handleToggleBookmark)
	me.POST("/reading-list/:slug", a.listChange((*prefs.Service).AddToReadingList, true))
	me.DELETE("/reading-list/:slug", a.listChange((*prefs.Service).RemoveFromReadingList, false))
	me.PUT("/notifications", a.handleNotifications)
	me.POST("/subscribe", a.handleSubscribe)
	me.POST("/newsletter/dismiss", a.handleDismissNewsletter)

	api.GET("/bookmarks", a.handleBookmarks, a.requireUser)
	api.GET("/reading-list", a.handleReadingList, a.requireUser)

	ag := api.Group("/auth")
	ag.POST("/signup", a.handleSignUp)
	ag.POST("/signin", a.handleSignIn)
	ag.POST("/signout", a.handleSignOut)
	ag.POST("/forgot-password", a.handleForgotPassword)
	ag.POST("/reset-password", a.handleResetPassword)
	ag.PUT("/password", a.handleUpdatePassword, a.requireUser)
	ag.GET("/google", a.handleGoogleStart)

	cms := api.Group("/cms", a.requireEditor)
	cms.GET("/posts", a.handleCMSPosts)
	cms.POST("/posts", a.handleCMSCreate)
	cms.GET("/posts/:id", a.handleCMSPost)
	cms.PUT("/posts/:id", a.handleCMSUpdate)
	cms.DELETE("/posts/:id", a.handleCMSDelete)
	cms.GET("/stats", a.handleCMSStats)
	cms.GET("/analytics", a.handleCMSAnalytics)
	cms.GET("/images", a.handleImageList)
	cms.POST("/images", a.handleImageUpload)
	cms.DELETE("/images/:filename", a.handleImageDelete)

	if a.collector != nil {
		api.POST("/events", a.collector.Collect)
	}
}

func (a *App) handlePosts(c echo.Context) error {
	posts, err := a.Content.Posts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// handlePost returns one post and counts the view. Crawlers and
// ?track=false requests are not counted; a failed count never fails the
// request.
func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Content.PostBySlug(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	if c.QueryParam("track") != "false" && !analytics.IsBot(c.Request().UserAgent()) {
		n, err := a.Content.RecordView(ctx, post.Slug)
		if err != nil {
			a.Logger.Warn("record view", zap.String("slug", post.Slug), zap.Error(err))
		} else {
			post.Views = n
			a.Metrics.postViews.Inc()
		}
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleRelated(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Content.PostBySlug(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	related, err := a.Content.Related(ctx, post.Category, post.Slug, queryLimit(c, 3, 12))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, related)
}

func (a *App) handlePostMeta(c echo.Context) error {
	post, err := a.Content.PostBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views.PostMeta(a.Config.site(), post))
}

func (a *App) handleHomeMeta(c echo.Context) error {
	return c.JSON(http.StatusOK, views.HomeMeta(a.Config.site()))
}

func (a *App) handleCategories(c echo.Context) error {
	stats, err := a.Content.CategoryStats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

type categoryResponse struct {
	content.CategoryStat
	Description string         `json:"description"`
	Meta        views.PageMeta `json:"meta"`
}

func (a *App) handleCategory(c echo.Context) error {
	slug := content.NormalizeSlug(c.Param("category"))
	if slug == "" {
		return content.ErrInvalidCategory
	}
	stats, err := a.Content.CategoryStats(c.Request().Context())
	if err != nil {
		return err
	}
	for _, s := range stats {
		if s.Slug != slug {
			continue
		}
		resp := categoryResponse{CategoryStat: s, Meta: views.CategoryMeta(a.Config.site(), s.Name, s.Slug)}
		if cat, ok := a.Content.Catalog().Lookup(slug); ok {
			resp.Description = cat.Description
		}
		return c.JSON(http.StatusOK, resp)
	}
	return echo.NewHTTPError(http.StatusNotFound, "Category not found")
}

func (a *App) handleCategoryPosts(c echo.Context) error {
	posts, err := a.Content.PostsByCategory(c.Request().Context(), c.Param("category"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleTags(c echo.Context) error {
	tags, err := a.Content.Tags(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

func (a *App) handleTagPosts(c echo.Context) error {
	posts, err := a.Content.PostsByTag(c.Request().Context(), c.Param("tag"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleSearch(c echo.Context) error {
	posts, err := a.Content.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handlePopular(c echo.Context) error {
	posts, err := a.Content.Popular(c.Request().Context(), queryLimit(c, 10, 50))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleArchives(c echo.Context) error {
	archive, err := a.Content.Archive(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, archive)
}

type rateRequest struct {
	Rating int `json:"rating"`
}

type helpfulRequest struct {
	Helpful bool `json:"helpful"`
}

func (a *App) handleRating(c echo.Context) error {
	summary, err := a.Prefs.Rating(c.Request().Context(), DeviceID(c), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (a *App) handleRate(c echo.Context) error {
	ctx := c.Request().Context()
	var req rateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := a.Content.PostBySlug(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	summary, err := a.Prefs.Rate(ctx, DeviceID(c), post.Slug, req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (a *App) handleHelpful(c echo.Context) error {
	ctx := c.Request().Context()
	var req helpfulRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := a.Content.PostBySlug(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	summary, err := a.Prefs.MarkHelpful(ctx, DeviceID(c), post.Slug, req.Helpful)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
