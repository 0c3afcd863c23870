package content

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	relatedLimit      = 3
	defaultPopular    = 10
	minSearchLength   = 2
	dashboardListSize = 5
)

// Service implements the content operations on top of a Repository and a
// PostCache snapshot.
type Service struct {
	repo    Repository
	cache   *PostCache
	catalog *Catalog
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a Service. A nil catalog means DefaultCatalog.
func NewService(repo Repository, cache *PostCache, catalog *Catalog, logger *zap.Logger) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

// Catalog returns the category catalog in use.
func (s *Service) Catalog() *Catalog { return s.catalog }

// stamp copies posts and fills in their freshness badge.
func (s *Service) stamp(posts []Post) []Post {
	now := s.now()
	out := make([]Post, len(posts))
	for i, p := range posts {
		p.Freshness = p.FreshnessAt(now)
		out[i] = p
	}
	return out
}

// Posts returns every post, newest first.
func (s *Service) Posts(ctx context.Context) ([]Post, error) {
	posts, err := s.cache.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return s.stamp(posts), nil
}

// PostBySlug reads one post from the store.
func (s *Service) PostBySlug(ctx context.Context, slug string) (Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Post{}, ErrInvalidSlug
	}
	p, err := s.repo.GetPostBySlug(ctx, slug)
	if err != nil {
		return Post{}, err
	}
	p.Freshness = p.FreshnessAt(s.now())
	return p, nil
}

// RecordView increments the view counter of slug by one and returns the new
// total.
func (s *Service) RecordView(ctx context.Context, slug string) (int64, error) {
	if strings.TrimSpace(slug) == "" {
		return 0, ErrInvalidSlug
	}
	return s.repo.IncrementViews(ctx, slug)
}

// Related returns up to limit posts of the same category, excluding
// excludeSlug. A non-positive limit means three.
func (s *Service) Related(ctx context.Context, category, excludeSlug string, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = relatedLimit
	}
	posts, err := s.repo.ListRelatedPosts(ctx, category, excludeSlug, limit)
	if err != nil {
		return nil, err
	}
	return s.stamp(posts), nil
}

// PostsByCategory returns the posts of a category. The name is matched
// case-insensitively first; when that finds nothing the request is treated
// as a category slug.
func (s *Service) PostsByCategory(ctx context.Context, category string) ([]Post, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrInvalidCategory
	}
	posts, err := s.repo.ListPostsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(posts) > 0 {
		return s.stamp(posts), nil
	}

	all, err := s.cache.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	want := NormalizeSlug(category)
	matched := []Post{}
	for _, p := range all {
		if NormalizeSlug(p.Category) == want {
			matched = append(matched, p)
		}
	}
	return s.stamp(matched), nil
}

// Search matches query against title, body text, excerpt, author and tags.
// Queries shorter than two characters match nothing.
func (s *Service) Search(ctx context.Context, query string) ([]Post, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if len([]rune(query)) < minSearchLength {
		return []Post{}, nil
	}
	posts, err := s.cache.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.stamp(posts), nil
}

// Tags returns every tag, ordered by name.
func (s *Service) Tags(ctx context.Context) ([]Tag, error) {
	return s.repo.ListTags(ctx)
}

// PostsByTag resolves a tag slug through the tags table and falls back to
// the tags embedded in each post when no such row exists.
func (s *Service) PostsByTag(ctx context.Context, tagSlug string) ([]Post, error) {
	want := NormalizeSlug(tagSlug)
	if want == "" {
		return []Post{}, nil
	}
	tag, err := s.repo.GetTagBySlug(ctx, want)
	switch {
	case err == nil:
		posts, err := s.repo.ListPostsByTagID(ctx, tag.ID)
		if err != nil {
			return nil, err
		}
		return s.stamp(posts), nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	all, err := s.cache.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	matched := []Post{}
	for _, p := range all {
		for _, t := range p.Tags {
			if NormalizeSlug(t) == want {
				matched = append(matched, p)
				break
			}
		}
	}
	return s.stamp(matched), nil
}

// CategoryStats counts posts per category, merged with the catalog. Catalog
// entries without posts are included with a zero count.
func (s *Service) CategoryStats(ctx context.Context) ([]CategoryStat, error) {
	posts, err := s.cache.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	names := map[string]string{}
	var order []string
	for _, p := range posts {
		slug := NormalizeSlug(p.Category)
		if slug == "" {
			continue
		}
		if _, seen := counts[slug]; !seen {
			order = append(order, slug)
		}
		counts[slug]++
		names[slug] = strings.TrimSpace(p.Category)
	}

	stats := make([]CategoryStat, 0, len(order))
	for _, slug := range order {
		st := CategoryStat{Name: names[slug], Slug: slug, Count: counts[slug], Color: ColorFor(slug)}
		if cat, ok := s.catalog.Lookup(slug); ok {
			st.Name, st.Color = cat.Name, cat.Color
		}
		stats = append(stats, st)
	}
	for _, cat := range s.catalog.All() {
		if counts[cat.Slug] == 0 {
			stats = append(stats, CategoryStat{Name: cat.Name, Slug: cat.Slug, Color: cat.Color})
		}
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Slug < stats[j].Slug
	})
	return stats, nil
}

// Popular returns the most viewed posts with at least one view.
func (s *Service) Popular(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = defaultPopular
	}
	posts, err := s.repo.ListPopularPosts(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.stamp(posts), nil
}

// Archive groups posts by year and month of their display date, newest
// first at both levels.
func (s *Service) Archive(ctx context.Context) ([]ArchiveYear, error) {
	posts, err := s.cache.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	posts = s.stamp(posts)
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Published().After(posts[j].Published())
	})

	var years []ArchiveYear
	for _, p := range posts {
		d := p.Published()
		if len(years) == 0 || years[len(years)-1].Year != d.Year() {
			years = append(years, ArchiveYear{Year: d.Year()})
		}
		y := &years[len(years)-1]
		if len(y.Months) == 0 || y.Months[len(y.Months)-1].Month != int(d.Month()) {
			y.Months = append(y.Months, ArchiveMonth{Month: int(d.Month()), Name: d.Month().String()})
		}
		m := &y.Months[len(y.Months)-1]
		m.Posts = append(m.Posts, p)
		y.Count++
	}
	if years == nil {
		years = []ArchiveYear{}
	}
	return years, nil
}

// PostsBySlugs resolves slugs in order, skipping those that no longer exist.
func (s *Service) PostsBySlugs(ctx context.Context, slugs []string) ([]Post, error) {
	posts, err := s.cache.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]Post, len(posts))
	for _, p := range posts {
		bySlug[p.Slug] = p
	}
	out := []Post{}
	for _, slug := range slugs {
		if p, ok := bySlug[slug]; ok {
			out = append(out, p)
		}
	}
	return s.stamp(out), nil
}

// AllPosts lists posts for the CMS straight from the store, optionally
// filtered by a term matched against title, slug, category and author.
func (s *Service) AllPosts(ctx context.Context, term string) ([]Post, error) {
	posts, err := s.repo.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return posts, nil
	}
	out := []Post{}
	for _, p := range posts {
		hay := strings.ToLower(p.Title + "\n" + p.Slug + "\n" + p.Category + "\n" + p.Author)
		if strings.Contains(hay, term) {
			out = append(out, p)
		}
	}
	return out, nil
}

// PostByID reads one post for editing.
func (s *Service) PostByID(ctx context.Context, id int64) (Post, error) {
	return s.repo.GetPostByID(ctx, id)
}

// Save validates in and creates or updates the post it describes.
func (s *Service) Save(ctx context.Context, in PostInput) (Post, error) {
	p, err := s.normalize(in)
	if err != nil {
		return Post{}, err
	}

	if p.ID != 0 {
		existing, err := s.repo.GetPostByID(ctx, p.ID)
		if err != nil {
			return Post{}, err
		}
		p.Views, p.CreatedAt = existing.Views, existing.CreatedAt
	}

	taken, err := s.repo.SlugExists(ctx, p.Slug, p.ID)
	if err != nil {
		return Post{}, err
	}
	if taken {
		return Post{}, ErrSlugTaken
	}

	if p.ID == 0 {
		err = s.repo.CreatePost(ctx, &p)
	} else {
		err = s.repo.UpdatePost(ctx, &p)
	}
	if err != nil {
		return Post{}, err
	}
	s.cache.Invalidate()
	s.logger.Info("post saved", zap.Int64("id", p.ID), zap.String("slug", p.Slug))
	return p, nil
}

func (s *Service) normalize(in PostInput) (Post, error) {
	p := Post{
		ID:       in.ID,
		Title:    strings.TrimSpace(in.Title),
		Excerpt:  strings.TrimSpace(in.Excerpt),
		Content:  strings.TrimSpace(in.Content),
		Image:    strings.TrimSpace(in.Image),
		Category: strings.TrimSpace(in.Category),
		Author:   strings.TrimSpace(in.Author),
		ReadTime: in.ReadTime,
	}
	switch {
	case p.Title == "":
		return Post{}, required("title")
	case p.Content == "":
		return Post{}, required("content")
	case p.Category == "":
		return Post{}, required("category")
	case p.Author == "":
		return Post{}, required("author")
	}

	p.Slug = Slugify(in.Slug)
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Slug == "" {
		return Post{}, &ValidationError{Field: "slug", Reason: "cannot be derived from the title"}
	}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		p.Date = s.now().Format(DateLayout)
	} else {
		t, err := dateparse.ParseAny(date)
		if err != nil {
			return Post{}, &ValidationError{Field: "date", Reason: "is not a recognizable date"}
		}
		p.Date = t.Format(DateLayout)
	}

	if p.ReadTime < 0 {
		return Post{}, &ValidationError{Field: "read_time", Reason: "must not be negative"}
	}
	if p.ReadTime == 0 {
		p.ReadTime = EstimateReadTime(p.Content)
	}
	if p.Excerpt == "" {
		p.Excerpt = DeriveExcerpt(p.Content)
	}
	p.Tags = dedupeTags(in.Tags)
	return p, nil
}

// dedupeTags trims tags and drops empty ones and repeats, comparing by
// normalized slug and keeping the first spelling.
func dedupeTags(tags []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		slug := NormalizeSlug(t)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, t)
	}
	return out
}

// Delete removes a post. Its tag links go with it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate()
	s.logger.Info("post deleted", zap.Int64("id", id))
	return nil
}

// Stats summarizes all posts for the CMS dashboard.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	posts, err := s.repo.ListPosts(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{TotalPosts: len(posts)}
	categories := map[string]bool{}
	tags := map[string]bool{}
	for _, p := range posts {
		st.TotalViews += p.Views
		if c := NormalizeSlug(p.Category); c != "" {
			categories[c] = true
		}
		for _, t := range p.Tags {
			if slug := NormalizeSlug(t); slug != "" {
				tags[slug] = true
			}
		}
	}
	st.Categories = len(categories)
	st.Tags = len(tags)

	recent := append([]Post(nil), posts...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Published().After(recent[j].Published())
	})
	st.Recent = firstN(recent, dashboardListSize)

	popular := append([]Post(nil), posts...)
	sort.SliceStable(popular, func(i, j int) bool { return popular[i].Views > popular[j].Views })
	st.Popular = firstN(popular, dashboardListSize)
	return st, nil
}

func firstN(posts []Post, n int) []Post {
	if len(posts) > n {
		posts = posts[:n]
	}
	return posts
}
