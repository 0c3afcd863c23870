package views

// SiteConfig holds the site-wide settings the pages and metadata need.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// PageMeta is the SEO and OpenGraph metadata of one page.
type PageMeta struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	Image       string      `json:"image,omitempty"`
	OGType      string      `json:"og_type"`
	Keywords    string      `json:"keywords,omitempty"`
	JSONLD      interface{} `json:"json_ld"`
}
