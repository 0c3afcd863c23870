// Package prefs keeps per-device state: the device record, reading
// preferences (bookmarks, reading list, notification settings, theme),
// newsletter subscription and article ratings.
package prefs

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/Giriprasad013-git/modern-blog/database"
)

// Allowed values of Preferences.EmailFrequency and Preferences.Theme.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"

	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidDevice = errors.New("invalid device id")
)

// ValidationError reports a rejected preference value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

var (
	uuidPattern     = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	fallbackPattern = regexp.MustCompile(`^device_\d+_[a-z0-9]+$`)
)

// ValidDeviceID reports whether id is a UUID (versions 1 to 5) or a
// device_<millis>_<random> fallback id.
func ValidDeviceID(id string) bool {
	return uuidPattern.MatchString(id) || fallbackPattern.MatchString(id)
}

// Device is one browser or signed-in user.
type Device struct {
	ID                    string     `db:"id" json:"-"`
	DeviceID              string     `db:"device_id" json:"device_id"`
	Email                 *string    `db:"email" json:"email,omitempty"`
	IsSubscribed          bool       `db:"is_subscribed" json:"is_subscribed"`
	SubscriptionDate      *time.Time `db:"subscription_date" json:"subscription_date,omitempty"`
	SubscriptionType      *string    `db:"subscription_type" json:"subscription_type,omitempty"`
	NewsletterDismissedAt *time.Time `db:"newsletter_dismissed_at" json:"newsletter_dismissed_at,omitempty"`
	LastSeen              *time.Time `db:"last_seen" json:"last_seen,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// newsletterCooldown is how long a dismissed newsletter prompt stays hidden.
const newsletterCooldown = 7 * 24 * time.Hour

// NewsletterDue reports whether the newsletter prompt should be shown.
func (d Device) NewsletterDue(now time.Time) bool {
	if d.IsSubscribed {
		return false
	}
	return d.NewsletterDismissedAt == nil || now.Sub(*d.NewsletterDismissedAt) >= newsletterCooldown
}

// Notifications are the per-device notification switches.
type Notifications struct {
	NewPosts bool `json:"new_posts"`
	Comments bool `json:"comments"`
	Digest   bool `json:"digest"`
}

// DefaultNotifications is applied to new devices and to missing keys.
func DefaultNotifications() Notifications {
	return Notifications{NewPosts: true, Comments: false, Digest: true}
}

// Scan implements sql.Scanner. Keys absent from the stored JSON keep their
// default values.
func (n *Notifications) Scan(src interface{}) error {
	*n = DefaultNotifications()
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.Errorf("Notifications: cannot scan %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, n), "Notifications: decode")
}

// Value implements driver.Valuer.
func (n Notifications) Value() (driver.Value, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Preferences is the stored preference row of a device.
type Preferences struct {
	ID                  string              `db:"id" json:"-"`
	DeviceID            string              `db:"device_id" json:"device_id"`
	BookmarkedPosts     database.StringList `db:"bookmarked_posts" json:"bookmarked_posts"`
	ReadingList         database.StringList `db:"reading_list" json:"reading_list"`
	PreferredCategories database.StringList `db:"preferred_categories" json:"preferred_categories"`
	EmailFrequency      string              `db:"email_frequency" json:"email_frequency"`
	Notifications       Notifications       `db:"notifications" json:"notifications"`
	Theme               string              `db:"theme" json:"theme"`
	CreatedAt           time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time           `db:"updated_at" json:"updated_at"`
}

// DefaultPreferences returns the preferences a new device starts with.
func DefaultPreferences(deviceID string) Preferences {
	return Preferences{
		DeviceID:            deviceID,
		BookmarkedPosts:     database.StringList{},
		ReadingList:         database.StringList{},
		PreferredCategories: database.StringList{},
		EmailFrequency:      FrequencyWeekly,
		Notifications:       DefaultNotifications(),
		Theme:               ThemeSystem,
	}
}

// Update is a partial preferences change. Nil fields are left unchanged.
type Update struct {
	BookmarkedPosts     []string       `json:"bookmarked_posts"`
	ReadingList         []string       `json:"reading_list"`
	PreferredCategories []string       `json:"preferred_categories"`
	EmailFrequency      *string        `json:"email_frequency"`
	Notifications       *Notifications `json:"notifications"`
	Theme               *string        `json:"theme"`
}

func (u Update) validate() error {
	if u.EmailFrequency != nil {
		switch *u.EmailFrequency {
		case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		default:
			return &ValidationError{Field: "email_frequency", Reason: "must be daily, weekly or monthly"}
		}
	}
	if u.Theme != nil {
		switch *u.Theme {
		case ThemeLight, ThemeDark, ThemeSystem:
		default:
			return &ValidationError{Field: "theme", Reason: "must be light, dark or system"}
		}
	}
	return nil
}

func (u Update) apply(p *Preferences) {
	if u.BookmarkedPosts != nil {
		p.BookmarkedPosts = union(nil, u.BookmarkedPosts)
	}
	if u.ReadingList != nil {
		p.ReadingList = union(nil, u.ReadingList)
	}
	if u.PreferredCategories != nil {
		p.PreferredCategories = union(nil, u.PreferredCategories)
	}
	if u.EmailFrequency != nil {
		p.EmailFrequency = *u.EmailFrequency
	}
	if u.Notifications != nil {
		p.Notifications = *u.Notifications
	}
	if u.Theme != nil {
		p.Theme = *u.Theme
	}
}

// Rating is one device's rating of one article. A zero Rating means only
// the helpful flag was set.
type Rating struct {
	DeviceID  string    `db:"device_id" json:"-"`
	Slug      string    `db:"slug" json:"slug"`
	Rating    int       `db:"rating" json:"rating"`
	Helpful   *bool     `db:"helpful" json:"helpful"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RatingSummary is a device's own rating plus the article's aggregate.
type RatingSummary struct {
	Slug    string  `json:"slug"`
	Rating  int     `json:"rating"`
	Helpful *bool   `json:"helpful"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Totals are site-wide preference counters for the CMS dashboard.
type Totals struct {
	Bookmarks   int `json:"total_bookmarks"`
	ReadingList int `json:"total_reading_list"`
	Subscribers int `json:"total_subscribers"`
}

// Profile is everything the client needs about its device at start-up.
type Profile struct {
	Device        Device      `json:"device"`
	Preferences   Preferences `json:"preferences"`
	NewsletterDue bool        `json:"newsletter_due"`
}

// union appends the items of add missing from base, keeping order.
func union(base, add []string) database.StringList {
	seen := make(map[string]bool, len(base)+len(add))
	out := make(database.StringList, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func without(list []string, v string) database.StringList {
	out := make(database.StringList, 0, len(list))
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
