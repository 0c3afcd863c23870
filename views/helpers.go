package views

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Giriprasad013-git/modern-blog/content"
)

// buildURL joins path segments onto a base URL.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	return u.String()
}

func website(cfg SiteConfig) map[string]interface{} {
	home := buildURL(cfg.URL)
	return map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      home,
		"potentialAction": map[string]string{
			"@type":       "SearchAction",
			"target":      strings.TrimRight(home, "/") + "/search?q={search_term_string}",
			"query-input": "required name=search_term_string",
		},
	}
}

func breadcrumbs(cfg SiteConfig, crumbs ...[2]string) map[string]interface{} {
	items := []map[string]interface{}{{
		"@type":    "ListItem",
		"position": 1,
		"name":     "Home",
		"item":     buildURL(cfg.URL),
	}}
	for i, c := range crumbs {
		items = append(items, map[string]interface{}{
			"@type":    "ListItem",
			"position": i + 2,
			"name":     c[0],
			"item":     c[1],
		})
	}
	return map[string]interface{}{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": items,
	}
}

func isoDate(s string, fallback time.Time) string {
	if t, err := time.Parse(content.DateLayout, s); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return fallback.UTC().Format(time.RFC3339)
}

// HomeMeta describes the front page.
func HomeMeta(cfg SiteConfig) PageMeta {
	return PageMeta{
		Title:       cfg.Name,
		Description: cfg.Description,
		URL:         buildURL(cfg.URL),
		OGType:      "website",
		JSONLD:      []interface{}{website(cfg)},
	}
}

// PostMeta describes an article page.
func PostMeta(cfg SiteConfig, p content.Post) PageMeta {
	postURL := buildURL(cfg.URL, "post", p.Slug)
	author := p.Author
	if author == "" {
		author = cfg.Author
	}
	description := p.Excerpt
	if description == "" {
		description = cfg.Description
	}
	article := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "Article",
		"headline":      p.Title,
		"datePublished": isoDate(p.Date, p.CreatedAt),
		"dateModified":  p.UpdatedAt.UTC().Format(time.RFC3339),
		"author":        map[string]string{"@type": "Person", "name": author},
		"publisher":     map[string]string{"@type": "Organization", "name": cfg.Name},
		"description":   description,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if p.Image != "" {
		article["image"] = []string{p.Image}
	}
	keywords := strings.Join(p.Tags, ", ")
	if keywords != "" {
		article["keywords"] = keywords
	}
	categoryURL := buildURL(cfg.URL, "category", content.NormalizeSlug(p.Category))
	return PageMeta{
		Title:       p.Title + " | " + cfg.Name,
		Description: description,
		URL:         postURL,
		Image:       p.Image,
		OGType:      "article",
		Keywords:    keywords,
		JSONLD: []interface{}{
			website(cfg),
			article,
			breadcrumbs(cfg, [2]string{p.Category, categoryURL}, [2]string{p.Title, postURL}),
		},
	}
}

// CategoryMeta describes a category listing page.
func CategoryMeta(cfg SiteConfig, name, slug string) PageMeta {
	pageURL := buildURL(cfg.URL, "category", slug)
	return PageMeta{
		Title:       name + " | " + cfg.Name,
		Description: "Articles about " + name + " on " + cfg.Name,
		URL:         pageURL,
		OGType:      "website",
		JSONLD: []interface{}{
			website(cfg),
			map[string]interface{}{
				"@context":    "https://schema.org",
				"@type":       "CollectionPage",
				"name":        name + " - " + cfg.Name,
				"description": "Articles about " + name + " on " + cfg.Name,
				"url":         pageURL,
				"isPartOf": map[string]string{
					"@type": "WebSite",
					"name":  cfg.Name,
					"url":   buildURL(cfg.URL),
				},
			},
			breadcrumbs(cfg, [2]string{name, pageURL}),
		},
	}
}
