package content

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":          "hello-world",
		"Don't stop":             "dont-stop",
		"  Go 1.22 -- released ": "go-122-released",
		"Ünïcode Títle":          "ncode-ttle",
		"tabs\tvanish":           "tabsvanish",
		"!!!":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, "web-development", NormalizeSlug("  Web   Development "))
	assert.Equal(t, "c++-tips", NormalizeSlug("C++ Tips"))
	assert.Equal(t, "", NormalizeSlug(" \t "))
}

func TestPlainText(t *testing.T) {
	got := PlainText("<h2>Title</h2><p>First<br>line</p><ul><li>one</li><li>two</li></ul>")
	assert.Equal(t, []string{"Title", "First", "line", "one", "two"}, strings.Fields(got))
	assert.Equal(t, "no markup", PlainText("no markup"))
}

func TestEstimateReadTime(t *testing.T) {
	assert.Equal(t, 1, EstimateReadTime(""))
	assert.Equal(t, 1, EstimateReadTime("<p>short</p>"))
	assert.Equal(t, 2, EstimateReadTime("<p>"+strings.Repeat("word ", 201)+"</p>"))
}

func TestDeriveExcerpt(t *testing.T) {
	assert.Equal(t, "Short body.", DeriveExcerpt("<p>Short   body.</p>"))

	long := "<p>" + strings.Repeat("lorem ipsum ", 40) + "</p>"
	got := DeriveExcerpt(long)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), excerptLength+1)
	assert.False(t, strings.Contains(got, "<p>"))
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	all := c.All()
	assert.Len(t, all, 5)
	assert.Equal(t, "technology", all[0].Slug)

	cat, ok := c.Lookup("Finance")
	assert.True(t, ok)
	assert.Equal(t, "bg-yellow-500", cat.Color)

	_, ok = c.Lookup("cooking")
	assert.False(t, ok)
}

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte("- name: Open Source\n- name: Travel\n  color: bg-pink-500\n"))
	assert.NoError(t, err)
	cat, ok := c.Lookup("open-source")
	assert.True(t, ok)
	assert.Equal(t, ColorFor("open-source"), cat.Color)

	_, err = ParseCatalog([]byte("- slug: a\n- slug: A\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("- description: nameless\n"))
	assert.Error(t, err)
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, "bg-teal-500", ColorFor("a"))
	assert.Equal(t, ColorFor("web-dev"), ColorFor("web-dev"))
}
