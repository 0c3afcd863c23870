package prefs

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Repository persists devices, preferences and ratings.
type Repository interface {
	TouchDevice(ctx context.Context, deviceID string, at time.Time) (Device, error)
	GetDevice(ctx context.Context, deviceID string) (Device, error)
	SetSubscription(ctx context.Context, deviceID, email, kind string, at time.Time) error
	SetNewsletterDismissed(ctx context.Context, deviceID string, at time.Time) error
	CountSubscribers(ctx context.Context) (int, error)

	GetPreferences(ctx context.Context, deviceID string) (Preferences, error)
	SavePreferences(ctx context.Context, p *Preferences) error
	DeletePreferences(ctx context.Context, deviceID string) error
	ListPreferences(ctx context.Context) ([]Preferences, error)

	SetRating(ctx context.Context, deviceID, slug string, rating int, at time.Time) error
	SetHelpful(ctx context.Context, deviceID, slug string, helpful bool, at time.Time) error
	GetRating(ctx context.Context, deviceID, slug string) (Rating, error)
	AverageRating(ctx context.Context, slug string) (float64, int, error)
}

var _ Repository = (*SQLStore)(nil)

const (
	deviceColumns = `id, device_id, email, is_subscribed, subscription_date, subscription_type, newsletter_dismissed_at, last_seen, created_at, updated_at`
	prefsColumns  = `id, device_id, bookmarked_posts, reading_list, preferred_categories, email_frequency, notifications, theme, created_at, updated_at`
)

// SQLStore implements Repository with sqlx.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// TouchDevice creates the device row if needed and records it as seen at at.
func (s *SQLStore) TouchDevice(ctx context.Context, deviceID string, at time.Time) (Device, error) {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO user_devices (id, device_id, last_seen, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (device_id) DO UPDATE SET last_seen = excluded.last_seen`),
		uuid.NewString(), deviceID, at, at, at)
	if err != nil {
		return Device{}, errors.Wrap(err, "prefs: touch device")
	}
	return s.GetDevice(ctx, deviceID)
}

func (s *SQLStore) GetDevice(ctx context.Context, deviceID string) (Device, error) {
	var d Device
	err := s.db.GetContext(ctx, &d, s.db.Rebind(`SELECT `+deviceColumns+` FROM user_devices WHERE device_id = ?`), deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return Device{}, ErrNotFound
	}
	return d, errors.Wrap(err, "prefs: get device")
}

func (s *SQLStore) SetSubscription(ctx context.Context, deviceID, email, kind string, at time.Time) error {
	return s.execOne(ctx, "set subscription", `
UPDATE user_devices SET email = ?, is_subscribed = ?, subscription_date = ?, subscription_type = ?, updated_at = ?
WHERE device_id = ?`, email, true, at, kind, at, deviceID)
}

func (s *SQLStore) SetNewsletterDismissed(ctx context.Context, deviceID string, at time.Time) error {
	return s.execOne(ctx, "dismiss newsletter",
		`UPDATE user_devices SET newsletter_dismissed_at = ?, updated_at = ? WHERE device_id = ?`, at, at, deviceID)
}

func (s *SQLStore) CountSubscribers(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM user_devices WHERE is_subscribed = ?`), true)
	return n, errors.Wrap(err, "prefs: count subscribers")
}

func (s *SQLStore) GetPreferences(ctx context.Context, deviceID string) (Preferences, error) {
	var p Preferences
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`SELECT `+prefsColumns+` FROM user_preferences WHERE device_id = ?`), deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{}, ErrNotFound
	}
	return p, errors.Wrap(err, "prefs: get preferences")
}

// SavePreferences inserts or replaces the preference row of p.DeviceID.
func (s *SQLStore) SavePreferences(ctx context.Context, p *Preferences) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO user_preferences (`+prefsColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (device_id) DO UPDATE SET
    bookmarked_posts = excluded.bookmarked_posts,
    reading_list = excluded.reading_list,
    preferred_categories = excluded.preferred_categories,
    email_frequency = excluded.email_frequency,
    notifications = excluded.notifications,
    theme = excluded.theme,
    updated_at = excluded.updated_at`),
		p.ID, p.DeviceID, p.BookmarkedPosts, p.ReadingList, p.PreferredCategories,
		p.EmailFrequency, p.Notifications, p.Theme, p.CreatedAt, p.UpdatedAt)
	return errors.Wrap(err, "prefs: save preferences")
}

func (s *SQLStore) DeletePreferences(ctx context.Context, deviceID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM user_preferences WHERE device_id = ?`), deviceID)
	return errors.Wrap(err, "prefs: delete preferences")
}

func (s *SQLStore) ListPreferences(ctx context.Context) ([]Preferences, error) {
	all := []Preferences{}
	err := s.db.SelectContext(ctx, &all, `SELECT `+prefsColumns+` FROM user_preferences`)
	return all, errors.Wrap(err, "prefs: list preferences")
}

func (s *SQLStore) SetRating(ctx context.Context, deviceID, slug string, rating int, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO article_ratings (device_id, slug, rating, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (device_id, slug) DO UPDATE SET rating = excluded.rating, updated_at = excluded.updated_at`),
		deviceID, slug, rating, at)
	return errors.Wrap(err, "prefs: set rating")
}

func (s *SQLStore) SetHelpful(ctx context.Context, deviceID, slug string, helpful bool, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO article_ratings (device_id, slug, rating, helpful, updated_at) VALUES (?, ?, 0, ?, ?)
ON CONFLICT (device_id, slug) DO UPDATE SET helpful = excluded.helpful, updated_at = excluded.updated_at`),
		deviceID, slug, helpful, at)
	return errors.Wrap(err, "prefs: set helpful")
}

func (s *SQLStore) GetRating(ctx context.Context, deviceID, slug string) (Rating, error) {
	var r Rating
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT device_id, slug, rating, helpful, updated_at FROM article_ratings WHERE device_id = ? AND slug = ?`), deviceID, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return Rating{}, ErrNotFound
	}
	return r, errors.Wrap(err, "prefs: get rating")
}

// AverageRating averages the non-zero ratings of slug.
func (s *SQLStore) AverageRating(ctx context.Context, slug string) (float64, int, error) {
	var row struct {
		Average float64 `db:"average"`
		Count   int     `db:"count"`
	}
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count FROM article_ratings WHERE slug = ? AND rating > 0`), slug)
	if err != nil {
		return 0, 0, errors.Wrap(err, "prefs: average rating")
	}
	return row.Average, row.Count, nil
}

func (s *SQLStore) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return errors.Wrap(err, "prefs: "+op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "prefs: "+op)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
