package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	wordsPerMinute = 200
	excerptLength  = 160
)

// PlainText strips markup from an HTML fragment. Block boundaries become
// newlines so words from adjacent paragraphs do not run together.
func PlainText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return html
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("br").AfterHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, blockquote, pre").AfterHtml("\n")
	return doc.Text()
}

// EstimateReadTime returns the reading time of an HTML body in minutes,
// never less than one.
func EstimateReadTime(html string) int {
	words := len(strings.Fields(PlainText(html)))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// DeriveExcerpt returns roughly the first 160 characters of the body text,
// cut at a word boundary.
func DeriveExcerpt(html string) string {
	text := strings.Join(strings.Fields(PlainText(html)), " ")
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}
	cut := string(runes[:excerptLength])
	if i := strings.LastIndexByte(cut, ' '); i > excerptLength/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// searchFields lists the lower-cased fields a post is matched against,
// one entry per tag.
func searchFields(p Post) []string {
	fields := make([]string, 0, 4+len(p.Tags))
	fields = append(fields,
		strings.ToLower(p.Title),
		strings.ToLower(PlainText(p.Content)),
		strings.ToLower(p.Excerpt),
		strings.ToLower(p.Author),
	)
	for _, t := range p.Tags {
		fields = append(fields, strings.ToLower(t))
	}
	return fields
}
