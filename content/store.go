package content

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Repository is the persistence boundary of the content package.
type Repository interface {
	ListPosts(ctx context.Context) ([]Post, error)
	GetPostBySlug(ctx context.Context, slug string) (Post, error)
	GetPostByID(ctx context.Context, id int64) (Post, error)
	ListPostsByCategory(ctx context.Context, category string) ([]Post, error)
	ListRelatedPosts(ctx context.Context, category, excludeSlug string, limit int) ([]Post, error)
	ListPopularPosts(ctx context.Context, limit int) ([]Post, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	CreatePost(ctx context.Context, p *Post) error
	UpdatePost(ctx context.Context, p *Post) error
	DeletePost(ctx context.Context, id int64) error
	IncrementViews(ctx context.Context, slug string) (int64, error)

	ListTags(ctx context.Context) ([]Tag, error)
	GetTagBySlug(ctx context.Context, slug string) (Tag, error)
	ListPostsByTagID(ctx context.Context, tagID int64) ([]Post, error)
}

var _ Repository = (*SQLStore)(nil)

const postColumns = `id, title, slug, excerpt, content, image, category, author, date, read_time, views, tags, created_at, updated_at`

// SQLStore implements Repository on SQLite or Postgres through sqlx.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) selectPosts(ctx context.Context, query string, args ...interface{}) ([]Post, error) {
	posts := []Post{}
	if err := s.db.SelectContext(ctx, &posts, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "content: select posts")
	}
	return posts, nil
}

func (s *SQLStore) getPost(ctx context.Context, query string, args ...interface{}) (Post, error) {
	var p Post
	err := s.db.GetContext(ctx, &p, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, errors.Wrap(err, "content: get post")
	}
	return p, nil
}

// ListPosts returns every post, newest first.
func (s *SQLStore) ListPosts(ctx context.Context) ([]Post, error) {
	return s.selectPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
}

func (s *SQLStore) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	return s.getPost(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
}

func (s *SQLStore) GetPostByID(ctx context.Context, id int64) (Post, error) {
	return s.getPost(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
}

// ListPostsByCategory matches category case-insensitively.
func (s *SQLStore) ListPostsByCategory(ctx context.Context, category string) ([]Post, error) {
	return s.selectPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE lower(category) = lower(?) ORDER BY created_at DESC, id DESC`, category)
}

func (s *SQLStore) ListRelatedPosts(ctx context.Context, category, excludeSlug string, limit int) ([]Post, error) {
	return s.selectPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE category = ? AND slug <> ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		category, excludeSlug, limit)
}

func (s *SQLStore) ListPopularPosts(ctx context.Context, limit int) ([]Post, error) {
	return s.selectPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE views > 0 ORDER BY views DESC, id DESC LIMIT ?`, limit)
}

// SlugExists reports whether another post than excludeID uses slug.
func (s *SQLStore) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM posts WHERE slug = ? AND id <> ?`), slug, excludeID)
	if err != nil {
		return false, errors.Wrap(err, "content: check slug")
	}
	return n > 0, nil
}

// CreatePost inserts p and links its tags in one transaction, filling in
// its ID and timestamps.
func (s *SQLStore) CreatePost(ctx context.Context, p *Post) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		now := s.now()
		p.CreatedAt, p.UpdatedAt = now, now
		row := tx.QueryRowxContext(ctx, tx.Rebind(`
INSERT INTO posts (title, slug, excerpt, content, image, category, author, date, read_time, views, tags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
			p.Title, p.Slug, p.Excerpt, p.Content, p.Image, p.Category, p.Author, p.Date, p.ReadTime, p.Views, p.Tags, p.CreatedAt, p.UpdatedAt)
		if err := row.Scan(&p.ID); err != nil {
			if isUniqueViolation(err) {
				return ErrSlugTaken
			}
			return errors.Wrap(err, "content: insert post")
		}
		return s.linkTags(ctx, tx, p.ID, p.Tags)
	})
}

// UpdatePost rewrites every editable column of p and relinks its tags in
// one transaction. Views and created_at are left untouched.
func (s *SQLStore) UpdatePost(ctx context.Context, p *Post) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		p.UpdatedAt = s.now()
		res, err := tx.ExecContext(ctx, tx.Rebind(`
UPDATE posts SET title = ?, slug = ?, excerpt = ?, content = ?, image = ?, category = ?, author = ?,
    date = ?, read_time = ?, tags = ?, updated_at = ?
WHERE id = ?`),
			p.Title, p.Slug, p.Excerpt, p.Content, p.Image, p.Category, p.Author, p.Date, p.ReadTime, p.Tags, p.UpdatedAt, p.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrSlugTaken
			}
			return errors.Wrap(err, "content: update post")
		}
		if err := expectOne(res); err != nil {
			return err
		}
		return s.linkTags(ctx, tx, p.ID, p.Tags)
	})
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "content: begin")
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "content: commit")
}

func (s *SQLStore) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "content: delete post")
	}
	return expectOne(res)
}

// IncrementViews adds one view in a single statement and returns the new
// count.
func (s *SQLStore) IncrementViews(ctx context.Context, slug string) (int64, error) {
	var views int64
	err := s.db.GetContext(ctx, &views, s.db.Rebind(`UPDATE posts SET views = views + 1 WHERE slug = ? RETURNING views`), slug)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "content: increment views")
	}
	return views, nil
}

func (s *SQLStore) ListTags(ctx context.Context) ([]Tag, error) {
	tags := []Tag{}
	if err := s.db.SelectContext(ctx, &tags, `SELECT id, name, slug, created_at, updated_at FROM tags ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "content: list tags")
	}
	return tags, nil
}

func (s *SQLStore) GetTagBySlug(ctx context.Context, slug string) (Tag, error) {
	var t Tag
	err := s.db.GetContext(ctx, &t, s.db.Rebind(`SELECT id, name, slug, created_at, updated_at FROM tags WHERE slug = ?`), slug)
	if errors.Is(err, sql.ErrNoRows) {
		return Tag{}, ErrNotFound
	}
	if err != nil {
		return Tag{}, errors.Wrap(err, "content: get tag")
	}
	return t, nil
}

func (s *SQLStore) ListPostsByTagID(ctx context.Context, tagID int64) ([]Post, error) {
	cols := "p." + strings.ReplaceAll(postColumns, ", ", ", p.")
	return s.selectPosts(ctx, `SELECT `+cols+` FROM posts p JOIN post_tags pt ON pt.post_id = p.id
WHERE pt.tag_id = ? ORDER BY p.created_at DESC, p.id DESC`, tagID)
}

// linkTags makes the post_tags rows of postID match tags, creating tag
// rows as needed. Tags that normalize to an empty slug are skipped.
func (s *SQLStore) linkTags(ctx context.Context, tx *sqlx.Tx, postID int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM post_tags WHERE post_id = ?`), postID); err != nil {
		return errors.Wrap(err, "content: clear post tags")
	}
	now := s.now()
	for _, name := range tags {
		slug := NormalizeSlug(name)
		if slug == "" {
			continue
		}
		var tagID int64
		err := tx.GetContext(ctx, &tagID, tx.Rebind(`
INSERT INTO tags (name, slug, created_at, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (slug) DO UPDATE SET updated_at = excluded.updated_at
RETURNING id`), strings.TrimSpace(name), slug, now, now)
		if err != nil {
			return errors.Wrapf(err, "content: upsert tag %q", slug)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING`), postID, tagID); err != nil {
			return errors.Wrap(err, "content: link tag")
		}
	}
	return nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "content: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
