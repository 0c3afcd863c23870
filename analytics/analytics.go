// Package analytics records first-party usage events and summarizes them
// for the CMS dashboard.
package analytics

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/Giriprasad013-git/modern-blog/database"
)

// Event types sent by the site.
const (
	EventPageView   = "page_view"
	EventPostView   = "post_view"
	EventBookmark   = "bookmark"
	EventSearch     = "search"
	EventShare      = "share"
	EventSubscribe  = "subscribe"
	EventRating     = "rating"
	EventReadingEnd = "reading_complete"
)

// Input limits for a single event.
const (
	maxTypeLen = 64
	maxDataLen = 8 << 10
	maxURLLen  = 2048
)

// Event is one row of user_analytics.
type Event struct {
	ID        string           `db:"id" json:"id"`
	DeviceID  string           `db:"device_id" json:"device_id"`
	Type      string           `db:"event_type" json:"event_type"`
	Data      database.RawJSON `db:"event_data" json:"event_data"`
	PageURL   string           `db:"page_url" json:"page_url"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// ValidationError describes a rejected event.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Validate trims the event and checks it against the input limits.
func (e *Event) Validate() error {
	e.Type = strings.TrimSpace(e.Type)
	e.PageURL = strings.TrimSpace(e.PageURL)
	switch n := utf8.RuneCountInString(e.Type); {
	case n == 0:
		return &ValidationError{Field: "event_type", Reason: "is required"}
	case n > maxTypeLen:
		return &ValidationError{Field: "event_type", Reason: "is too long"}
	}
	if len(e.Data) == 0 {
		e.Data = database.RawJSON("{}")
	}
	if len(e.Data) > maxDataLen {
		return &ValidationError{Field: "event_data", Reason: "is too large"}
	}
	if !gjson.ValidBytes(e.Data) {
		return &ValidationError{Field: "event_data", Reason: "is not valid JSON"}
	}
	if len(e.PageURL) > maxURLLen {
		return &ValidationError{Field: "page_url", Reason: "is too long"}
	}
	return nil
}

// dedupKey identifies repeats of the same event from the same device. The
// payload is compacted so formatting does not matter.
func (e Event) dedupKey() string {
	return e.DeviceID + "\x00" + e.Type + "\x00" + gjson.GetBytes(e.Data, "@ugly").Raw
}

var botMarkers = []string{
	"bot", "crawler", "spider", "crawl", "slurp", "scrape",
	"googlebot", "bingbot", "yandex", "baidu", "duckduckbot",
	"facebookexternalhit", "twitterbot", "linkedinbot",
	"ahrefsbot", "semrushbot", "mj12bot", "dotbot",
	"headlesschrome", "lighthouse",
}

// IsBot reports whether a User-Agent looks like a crawler. An empty agent
// counts as a bot.
func IsBot(ua string) bool {
	if strings.TrimSpace(ua) == "" {
		return true
	}
	ua = strings.ToLower(ua)
	for _, m := range botMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}
