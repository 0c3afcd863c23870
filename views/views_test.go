package views

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giriprasad013-git/modern-blog/content"
)

var testSite = SiteConfig{Name: "Fast & Facts", URL: "https://blog.example.com", Description: "Insights", Author: "Team"}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestErrorPagesEscape(t *testing.T) {
	out := render(t, ErrorPage(testSite, http.StatusBadRequest, "<b>Bad</b>", "a & b"))
	assert.Contains(t, out, "&lt;b&gt;Bad&lt;/b&gt;")
	assert.Contains(t, out, "a &amp; b")
	assert.Contains(t, out, "Fast &amp; Facts")
	assert.Contains(t, out, `href="https://blog.example.com"`)
}

func TestForStatus(t *testing.T) {
	assert.Contains(t, render(t, ForStatus(testSite, http.StatusNotFound, "")), "Page not found")
	assert.Contains(t, render(t, ForStatus(testSite, http.StatusUnauthorized, "")), "Sign in required")
	assert.Contains(t, render(t, ForStatus(testSite, http.StatusForbidden, "")), "Access denied")
	assert.Contains(t, render(t, ForStatus(testSite, http.StatusBadGateway, "")), "Something went wrong")
	out := render(t, ForStatus(testSite, http.StatusTooManyRequests, "slow down"))
	assert.Contains(t, out, "Too Many Requests")
	assert.Contains(t, out, "slow down")
}

func TestPostMeta(t *testing.T) {
	p := content.Post{
		Title:     "Go Generics",
		Slug:      "go-generics",
		Excerpt:   "Type parameters",
		Category:  "Web Development",
		Date:      "2026-02-03",
		Tags:      []string{"go", "types"},
		UpdatedAt: time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC),
	}
	m := PostMeta(testSite, p)
	assert.Equal(t, "https://blog.example.com/post/go-generics", m.URL)
	assert.Equal(t, "article", m.OGType)
	assert.Equal(t, "go, types", m.Keywords)
	assert.Equal(t, "Type parameters", m.Description)

	b, err := json.Marshal(m.JSONLD)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"datePublished":"2026-02-03T00:00:00Z"`)
	assert.Contains(t, string(b), `"author":{"@type":"Person","name":"Team"}`)
	assert.Contains(t, string(b), "https://blog.example.com/category/web-development")
}

func TestCategoryMeta(t *testing.T) {
	m := CategoryMeta(testSite, "Health", "health")
	assert.Equal(t, "https://blog.example.com/category/health", m.URL)
	require.Len(t, m.JSONLD, 3)
	assert.Equal(t, "Health | Fast & Facts", m.Title)
	assert.Equal(t, "https://blog.example.com", HomeMeta(testSite).URL)
}
