package analytics

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Giriprasad013-git/modern-blog/content"
	"github.com/Giriprasad013-git/modern-blog/prefs"
)

// Summary limits.
const (
	RecentEventLimit = 100
	activityLimit    = 10
	topViewedLimit   = 10
)

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Activity counts events of one type on one UTC day.
type Activity struct {
	Type  string `json:"type"`
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type SlugCount struct {
	Slug  string `json:"slug"`
	Views int    `json:"views"`
}

// Summary is the CMS analytics dashboard.
type Summary struct {
	TotalViews        int64           `json:"total_views"`
	TotalBookmarks    int             `json:"total_bookmarks"`
	TotalReadingList  int             `json:"total_reading_list"`
	TotalSubscribers  int             `json:"total_subscribers"`
	PopularCategories []CategoryCount `json:"popular_categories"`
	RecentActivity    []Activity      `json:"recent_activity"`
	TopViewed         []SlugCount     `json:"top_viewed"`
}

// BuildSummary aggregates posts, preference totals, the most recent events
// and post_view events into a Summary.
func BuildSummary(posts []content.Post, totals prefs.Totals, recent, postViews []Event) Summary {
	s := Summary{
		TotalBookmarks:    totals.Bookmarks,
		TotalReadingList:  totals.ReadingList,
		TotalSubscribers:  totals.Subscribers,
		PopularCategories: []CategoryCount{},
		RecentActivity:    []Activity{},
		TopViewed:         []SlugCount{},
	}

	categories := map[string]int{}
	for _, p := range posts {
		s.TotalViews += p.Views
		if p.Category != "" {
			categories[p.Category]++
		}
	}
	for name, n := range categories {
		s.PopularCategories = append(s.PopularCategories, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(s.PopularCategories, func(i, j int) bool {
		a, b := s.PopularCategories[i], s.PopularCategories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})

	if len(recent) > RecentEventLimit {
		recent = recent[:RecentEventLimit]
	}
	type dayKey struct{ typ, date string }
	activity := map[dayKey]int{}
	for _, e := range recent {
		activity[dayKey{e.Type, e.CreatedAt.UTC().Format(content.DateLayout)}]++
	}
	for k, n := range activity {
		s.RecentActivity = append(s.RecentActivity, Activity{Type: k.typ, Date: k.date, Count: n})
	}
	sort.Slice(s.RecentActivity, func(i, j int) bool {
		a, b := s.RecentActivity[i], s.RecentActivity[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Type < b.Type
	})
	if len(s.RecentActivity) > activityLimit {
		s.RecentActivity = s.RecentActivity[:activityLimit]
	}

	views := map[string]int{}
	for _, e := range postViews {
		slug := strings.TrimSpace(gjson.GetBytes(e.Data, "slug").String())
		if slug != "" {
			views[slug]++
		}
	}
	for slug, n := range views {
		s.TopViewed = append(s.TopViewed, SlugCount{Slug: slug, Views: n})
	}
	sort.Slice(s.TopViewed, func(i, j int) bool {
		a, b := s.TopViewed[i], s.TopViewed[j]
		if a.Views != b.Views {
			return a.Views > b.Views
		}
		return a.Slug < b.Slug
	})
	if len(s.TopViewed) > topViewedLimit {
		s.TopViewed = s.TopViewed[:topViewedLimit]
	}
	return s
}
