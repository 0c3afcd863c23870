package media

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Store keeps image metadata in the images table.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Save(ctx context.Context, img Image) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO images (filename, original_name, width, height, size, uploaded_by, uploaded_at)
VALUES (:filename, :original_name, :width, :height, :size, :uploaded_by, :uploaded_at)`, img)
	return errors.Wrap(err, "media: save image")
}

// List returns all images, newest first.
func (s *Store) List(ctx context.Context) ([]Image, error) {
	out := []Image{}
	err := s.db.SelectContext(ctx, &out, `
SELECT filename, original_name, width, height, size, uploaded_by, uploaded_at
FROM images ORDER BY uploaded_at DESC, filename`)
	return out, errors.Wrap(err, "media: list images")
}

func (s *Store) Exists(ctx context.Context, filename string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, s.db.Rebind(`SELECT 1 FROM images WHERE filename = ?`), filename)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "media: lookup image")
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, filename string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM images WHERE filename = ?`), filename)
	if err != nil {
		return errors.Wrap(err, "media: delete image")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
