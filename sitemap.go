package modernblog

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Giriprasad013-git/modern-blog/content"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// handleSitemap lists the home page, every post, every category with
// posts and every tag.
func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Content.Posts(ctx)
	if err != nil {
		return err
	}
	categories, err := a.Content.CategoryStats(ctx)
	if err != nil {
		return err
	}
	tags, err := a.Content.Tags(ctx)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts, categories, tags)
}

func (a *App) renderSitemap(c echo.Context, posts []content.Post, categories []content.CategoryStat, tags []content.Tag) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base), ChangeFreq: "daily", Priority: "1.0"},
	}
	for _, p := range posts {
		lastMod := p.Date
		if !p.UpdatedAt.IsZero() {
			lastMod = p.UpdatedAt.UTC().Format(content.DateLayout)
		}
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, "post", p.Slug),
			LastMod:    lastMod,
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	for _, cat := range categories {
		if cat.Count == 0 {
			continue
		}
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, "category", cat.Slug),
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}
	for _, t := range tags {
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, "tag", t.Slug),
			ChangeFreq: "weekly",
			Priority:   "0.4",
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
