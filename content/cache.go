package content

import (
	"context"
	"strings"
	"sync"
	"time"
)

// PostCache is an in-memory snapshot of all posts with a TTL. Each post's
// lower-cased search fields are computed once per load.
type PostCache struct {
	mu      sync.RWMutex
	posts   []Post
	fields  [][]string
	fetched time.Time
	ttl     time.Duration
	repo    Repository

	// OnLoad, if set, is called after every reload from the repository.
	OnLoad func(n int)
}

// NewPostCache creates a PostCache backed by repo.
func NewPostCache(repo Repository, ttl time.Duration) *PostCache {
	return &PostCache{repo: repo, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.fields = nil
	c.mu.Unlock()
}

func (c *PostCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, err := c.repo.ListPosts(ctx)
	if err != nil {
		return err
	}
	fields := make([][]string, len(posts))
	for i, p := range posts {
		fields[i] = searchFields(p)
	}
	c.posts = posts
	c.fields = fields
	c.fetched = time.Now()
	if c.OnLoad != nil {
		c.OnLoad(len(posts))
	}
	return nil
}

// ensureLoaded returns the cached snapshot after ensuring it is fresh.
// It tries a read lock first and only takes the write lock to reload.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]Post, [][]string, error) {
	c.mu.RLock()
	if c.valid() {
		posts, fields := c.posts, c.fields
		c.mu.RUnlock()
		return posts, fields, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.posts, c.fields, nil
}

// ListPosts returns all posts, newest first. The slice is shared; callers
// must copy before modifying.
func (c *PostCache) ListPosts(ctx context.Context) ([]Post, error) {
	posts, _, err := c.ensureLoaded(ctx)
	return posts, err
}

// Search returns posts whose title, body text, excerpt, author or any
// single tag contains the lower-cased query. A match never spans fields.
func (c *PostCache) Search(ctx context.Context, query string) ([]Post, error) {
	posts, fields, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	matches := []Post{}
	for i, p := range posts {
		if containsAny(fields[i], q) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func containsAny(fields []string, q string) bool {
	for _, f := range fields {
		if strings.Contains(f, q) {
			return true
		}
	}
	return false
}
