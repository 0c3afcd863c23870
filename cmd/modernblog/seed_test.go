package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giriprasad013-git/modern-blog/content"
)

type memPosts struct {
	bySlug map[string]content.Post
	saved  []content.PostInput
}

func (m *memPosts) PostBySlug(_ context.Context, slug string) (content.Post, error) {
	p, ok := m.bySlug[slug]
	if !ok {
		return content.Post{}, content.ErrNotFound
	}
	return p, nil
}

func (m *memPosts) Save(_ context.Context, in content.PostInput) (content.Post, error) {
	if in.Title == "" {
		return content.Post{}, &content.ValidationError{Field: "title", Reason: "is required"}
	}
	m.saved = append(m.saved, in)
	p := content.Post{Slug: in.Slug, Title: in.Title}
	m.bySlug[in.Slug] = p
	return p, nil
}

const seedYAML = `
posts:
  - title: Getting Started With Go
    content: "<p>Hello</p>"
    category: Technology
    author: Ada
    date: "March 3, 2024"
    tags: [go, intro]
  - title: Existing
    slug: existing-post
    content: "<p>Old</p>"
    category: Lifestyle
    author: Ada
`

func TestParseSeed(t *testing.T) {
	posts, err := parseSeed([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Getting Started With Go", posts[0].Title)
	assert.Equal(t, []string{"go", "intro"}, posts[0].Tags)
	assert.Equal(t, "existing-post", posts[1].Slug)

	_, err = parseSeed([]byte("posts: [unterminated"))
	assert.Error(t, err)
}

func TestSeedSkipsExistingSlugs(t *testing.T) {
	posts, err := parseSeed([]byte(seedYAML))
	require.NoError(t, err)

	store := &memPosts{bySlug: map[string]content.Post{"existing-post": {Slug: "existing-post"}}}
	created, err := seed(context.Background(), store, posts)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "getting-started-with-go", store.saved[0].Slug)

	created, err = seed(context.Background(), store, posts)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestSeedStopsOnInvalidPost(t *testing.T) {
	store := &memPosts{bySlug: map[string]content.Post{}}
	created, err := seed(context.Background(), store, []seedPost{{Slug: "no-title"}})
	assert.Error(t, err)
	assert.Zero(t, created)
}
