package analytics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Writer persists events.
type Writer interface {
	Insert(ctx context.Context, e Event) error
}

// Store reads and writes user_analytics.
type Store struct {
	db *sqlx.DB
}

var _ Writer = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const eventColumns = `id, device_id, event_type, event_data, page_url, created_at`

// Insert appends one event.
func (s *Store) Insert(ctx context.Context, e Event) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO user_analytics (`+eventColumns+`)
VALUES (:id, :device_id, :event_type, :event_data, :page_url, :created_at)`, e)
	return errors.Wrap(err, "analytics: insert event")
}

// Recent returns the newest events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	var out []Event
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
SELECT `+eventColumns+` FROM user_analytics
ORDER BY created_at DESC LIMIT ?`), limit)
	return out, errors.Wrap(err, "analytics: recent events")
}

// OfType returns events of one type created at or after since.
func (s *Store) OfType(ctx context.Context, eventType string, since time.Time) ([]Event, error) {
	var out []Event
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
SELECT `+eventColumns+` FROM user_analytics
WHERE event_type = ? AND created_at >= ?
ORDER BY created_at DESC`), eventType, since.UTC())
	return out, errors.Wrap(err, "analytics: events by type")
}

// PurgeBefore deletes events older than cutoff and reports how many went.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM user_analytics WHERE created_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "analytics: purge events")
	}
	return res.RowsAffected()
}
