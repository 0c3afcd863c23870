// Package content owns blog posts, tags and categories: storage, the
// read-side snapshot cache and the operations behind the public and CMS APIs.
package content

import (
	"time"

	"github.com/Giriprasad013-git/modern-blog/database"
)

// DateLayout is the display date format stored in Post.Date.
const DateLayout = "2006-01-02"

// Freshness badges.
const (
	FreshNew     = "new"
	FreshUpdated = "updated"
)

// Post is a published article. Content is HTML.
type Post struct {
	ID        int64               `db:"id" json:"id"`
	Title     string              `db:"title" json:"title"`
	Slug      string              `db:"slug" json:"slug"`
	Excerpt   string              `db:"excerpt" json:"excerpt"`
	Content   string              `db:"content" json:"content"`
	Image     string              `db:"image" json:"image"`
	Category  string              `db:"category" json:"category"`
	Author    string              `db:"author" json:"author"`
	Date      string              `db:"date" json:"date"`
	ReadTime  int                 `db:"read_time" json:"read_time"`
	Views     int64               `db:"views" json:"views"`
	Tags      database.StringList `db:"tags" json:"tags"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`

	Freshness string `db:"-" json:"freshness,omitempty"`
}

// FreshnessAt returns FreshNew for posts created within three days of now,
// FreshUpdated for older posts updated within seven days, else "".
func (p Post) FreshnessAt(now time.Time) string {
	if daysBetween(p.CreatedAt, now) <= 3 {
		return FreshNew
	}
	if !p.UpdatedAt.IsZero() && daysBetween(p.UpdatedAt, now) <= 7 {
		return FreshUpdated
	}
	return ""
}

// daysBetween counts whole days elapsed from t to now.
func daysBetween(t, now time.Time) int {
	return int(now.Sub(t) / (24 * time.Hour))
}

// Published returns the display date as a time, falling back to CreatedAt
// when Date does not parse.
func (p Post) Published() time.Time {
	if t, err := time.Parse(DateLayout, p.Date); err == nil {
		return t
	}
	return p.CreatedAt
}

// Tag is a row of the tags table.
type Tag struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryStat is the post count of one category.
type CategoryStat struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

// ArchiveYear groups posts by the year of their display date.
type ArchiveYear struct {
	Year   int            `json:"year"`
	Count  int            `json:"count"`
	Months []ArchiveMonth `json:"months"`
}

// ArchiveMonth groups posts of one month.
type ArchiveMonth struct {
	Month int    `json:"month"`
	Name  string `json:"name"`
	Posts []Post `json:"posts"`
}

// Stats summarizes the content for the CMS dashboard.
type Stats struct {
	TotalPosts int    `json:"total_posts"`
	TotalViews int64  `json:"total_views"`
	Categories int    `json:"categories"`
	Tags       int    `json:"tags"`
	Recent     []Post `json:"recent"`
	Popular    []Post `json:"popular"`
}

// PostInput is the CMS payload for creating (ID == 0) or updating a post.
type PostInput struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Slug     string   `json:"slug"`
	Excerpt  string   `json:"excerpt"`
	Content  string   `json:"content"`
	Image    string   `json:"image"`
	Category string   `json:"category"`
	Author   string   `json:"author"`
	Date     string   `json:"date"`
	ReadTime int      `json:"read_time"`
	Tags     []string `json:"tags"`
}
