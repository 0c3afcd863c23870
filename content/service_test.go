package content

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Giriprasad013-git/modern-blog/database"
)

var serviceNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *SQLStore) {
	t.Helper()
	store := newTestStore(t)
	svc := NewService(store, NewPostCache(store, time.Minute), nil, zap.NewNop())
	svc.now = func() time.Time { return serviceNow }
	return svc, store
}

func validInput(title string) PostInput {
	return PostInput{
		Title:    title,
		Content:  "<p>Some <em>interesting</em> words.</p>",
		Category: "Technology",
		Author:   "Ada",
		Date:     "2024-03-05",
	}
}

func TestSaveValidatesRequiredFields(t *testing.T) {
	svc, _ := newTestService(t)
	cases := map[string]func(*PostInput){
		"title":    func(in *PostInput) { in.Title = " " },
		"content":  func(in *PostInput) { in.Content = "" },
		"category": func(in *PostInput) { in.Category = "" },
		"author":   func(in *PostInput) { in.Author = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := validInput("Hello")
			mutate(&in)
			_, err := svc.Save(context.Background(), in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, field, verr.Field)
		})
	}
}

func TestSaveFillsDerivedFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	in := validInput("Hello, Gophers!")
	in.Date = ""
	in.Tags = []string{" Go ", "go", "Web Dev", ""}
	p, err := svc.Save(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "hello-gophers", p.Slug)
	assert.Equal(t, "2024-06-10", p.Date)
	assert.Equal(t, 1, p.ReadTime)
	assert.Equal(t, "Some interesting words.", p.Excerpt)
	assert.Equal(t, []string{"Go", "Web Dev"}, []string(p.Tags))

	tags, err := svc.Tags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
}

func TestSaveParsesLenientDates(t *testing.T) {
	svc, _ := newTestService(t)
	in := validInput("Dated")
	in.Date = "March 7, 2024"
	p, err := svc.Save(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-07", p.Date)

	in = validInput("Undated")
	in.Date = "not a date"
	_, err = svc.Save(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)
}

func TestSaveRejectsTakenSlug(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.Save(ctx, validInput("Same Title"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, validInput("Same title"))
	assert.Equal(t, ErrSlugTaken, err)
}

func TestSaveUpdatesExistingPost(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	p, err := svc.Save(ctx, validInput("Original"))
	require.NoError(t, err)
	_, err = store.IncrementViews(ctx, p.Slug)
	require.NoError(t, err)

	in := validInput("Original")
	in.ID = p.ID
	in.Excerpt = "hand written"
	in.ReadTime = 12
	updated, err := svc.Save(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "original", updated.Slug)
	assert.Equal(t, "hand written", updated.Excerpt)
	assert.Equal(t, 12, updated.ReadTime)
	assert.Equal(t, int64(1), updated.Views)

	in.ID = 9999
	_, err = svc.Save(ctx, in)
	assert.Equal(t, ErrNotFound, err)
}

func TestSaveReportsTagLinkFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := NewSQLStore(sqlx.NewDb(db, database.DriverSQLite))
	svc := NewService(store, NewPostCache(store, time.Minute), nil, zap.NewNop())
	svc.now = func() time.Time { return serviceNow }

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM posts WHERE slug`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO posts`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(`DELETE FROM post_tags`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO tags`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	in := validInput("Tagged Post")
	in.Tags = []string{"go"}
	_, err = svc.Save(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	posts, err := svc.Posts(ctx)
	require.NoError(t, err)
	require.Empty(t, posts)

	_, err = svc.Save(ctx, validInput("Fresh"))
	require.NoError(t, err)
	posts, err = svc.Posts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	require.NoError(t, svc.Delete(ctx, posts[0].ID))
	posts, err = svc.Posts(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostBySlug(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.PostBySlug(ctx, "  ")
	assert.Equal(t, ErrInvalidSlug, err)
	_, err = svc.PostBySlug(ctx, "nope")
	assert.Equal(t, ErrNotFound, err)

	_, err = svc.Save(ctx, validInput("Found It"))
	require.NoError(t, err)
	p, err := svc.PostBySlug(ctx, "found-it")
	require.NoError(t, err)
	assert.Equal(t, "Found It", p.Title)
}

func TestRecordView(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.Save(ctx, validInput("Counted"))
	require.NoError(t, err)

	n, err := svc.RecordView(ctx, "counted")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = svc.RecordView(ctx, "counted")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPostsByCategoryFallsBackToSlug(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	in := validInput("Frameworks")
	in.Category = "Web  Development"
	_, err := svc.Save(ctx, in)
	require.NoError(t, err)

	exact, err := svc.PostsByCategory(ctx, "web  development")
	require.NoError(t, err)
	assert.Len(t, exact, 1)

	bySlug, err := svc.PostsByCategory(ctx, "web-development")
	require.NoError(t, err)
	assert.Len(t, bySlug, 1)

	none, err := svc.PostsByCategory(ctx, "cooking")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.PostsByCategory(ctx, "")
	assert.Equal(t, ErrInvalidCategory, err)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	in := validInput("Concurrency Patterns")
	in.Content = "<p>Hello <strong>gophers</strong></p><p>channels</p>"
	in.Tags = []string{"golang"}
	_, err := svc.Save(ctx, in)
	require.NoError(t, err)
	_, err = svc.Save(ctx, validInput("Unrelated"))
	require.NoError(t, err)

	for _, q := range []string{"hello gophers", "CHANNELS", "concurrency", "golang", " ada "} {
		got, err := svc.Search(ctx, q)
		require.NoError(t, err)
		if q == " ada " {
			assert.Len(t, got, 2, q)
			continue
		}
		require.Len(t, got, 1, q)
		assert.Equal(t, "concurrency-patterns", got[0].Slug)
	}

	got, err := svc.Search(ctx, "strong")
	require.NoError(t, err)
	assert.Empty(t, got, "markup is not searchable")

	got, err = svc.Search(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchMatchesWithinOneField(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	in := validInput("Building Services")
	in.Tags = []string{"go", "web"}
	_, err := svc.Save(ctx, in)
	require.NoError(t, err)

	got, err := svc.Search(ctx, "go web")
	require.NoError(t, err)
	assert.Empty(t, got, "query must not span two tags")

	got, err = svc.Search(ctx, "services ada")
	require.NoError(t, err)
	assert.Empty(t, got, "query must not span title and author")

	got, err = svc.Search(ctx, "web")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "building-services", got[0].Slug)
}

func TestPostsByTag(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	in := validInput("Tagged")
	in.Tags = []string{"Machine Learning"}
	_, err := svc.Save(ctx, in)
	require.NoError(t, err)

	// A post written without tag rows still resolves through its
	// embedded tags.
	_, err = store.db.ExecContext(ctx, `
INSERT INTO posts (title, slug, excerpt, content, image, category, author, date, read_time, views, tags, created_at, updated_at)
VALUES ('Legacy', 'legacy', '', '<p>old</p>', '', 'Tech', 'Ada', '2024-01-15', 1, 0, '["Old School"]', ?, ?)`,
		serviceNow, serviceNow)
	require.NoError(t, err)

	got, err := svc.PostsByTag(ctx, "machine-learning")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tagged", got[0].Slug)

	got, err = svc.PostsByTag(ctx, "old-school")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "legacy", got[0].Slug)

	got, err = svc.PostsByTag(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCategoryStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for i, cat := range []string{"Technology", "technology ", "Web Dev"} {
		in := validInput("Post " + string(rune('A'+i)))
		in.Category = cat
		_, err := svc.Save(ctx, in)
		require.NoError(t, err)
	}

	stats, err := svc.CategoryStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 6)

	assert.Equal(t, CategoryStat{Name: "Technology", Slug: "technology", Count: 2, Color: "bg-blue-500"}, stats[0])
	assert.Equal(t, "web-dev", stats[1].Slug)
	assert.Equal(t, 1, stats[1].Count)
	assert.Equal(t, ColorFor("web-dev"), stats[1].Color)
	for _, st := range stats[2:] {
		assert.Zero(t, st.Count)
	}
	assert.Equal(t, "business", stats[2].Slug)
}

func TestPopular(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for _, title := range []string{"Cold", "Warm", "Hot"} {
		_, err := svc.Save(ctx, validInput(title))
		require.NoError(t, err)
	}
	_, _ = svc.RecordView(ctx, "warm")
	_, _ = svc.RecordView(ctx, "hot")
	_, _ = svc.RecordView(ctx, "hot")

	got, err := svc.Popular(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hot", got[0].Slug)

	got, err = svc.Popular(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for title, date := range map[string]string{
		"Spring":   "2024-03-10",
		"Winter":   "2024-01-05",
		"Old Year": "2023-12-01",
		"Also Jan": "2024-01-20",
	} {
		in := validInput(title)
		in.Date = date
		_, err := svc.Save(ctx, in)
		require.NoError(t, err)
	}

	years, err := svc.Archive(ctx)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, 2024, years[0].Year)
	assert.Equal(t, 3, years[0].Count)
	require.Len(t, years[0].Months, 2)
	assert.Equal(t, 3, years[0].Months[0].Month)
	assert.Equal(t, "January", years[0].Months[1].Name)
	assert.Equal(t, "also-jan", years[0].Months[1].Posts[0].Slug)
	assert.Equal(t, 2023, years[1].Year)
}

func TestPostsBySlugsKeepsOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for _, title := range []string{"One", "Two", "Three"} {
		_, err := svc.Save(ctx, validInput(title))
		require.NoError(t, err)
	}
	got, err := svc.PostsBySlugs(ctx, []string{"three", "gone", "one"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].Slug)
	assert.Equal(t, "one", got[1].Slug)
}

func TestAllPostsFilter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	a := validInput("Budgeting")
	a.Category = "Finance"
	_, err := svc.Save(ctx, a)
	require.NoError(t, err)
	_, err = svc.Save(ctx, validInput("Compilers"))
	require.NoError(t, err)

	all, err := svc.AllPosts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := svc.AllPosts(ctx, "FIN")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "budgeting", got[0].Slug)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for i, title := range []string{"A1", "A2", "A3", "A4", "A5", "A6"} {
		in := validInput(title)
		in.Date = time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC).Format(DateLayout)
		in.Tags = []string{"t" + title}
		if i%2 == 0 {
			in.Category = "Health"
		}
		_, err := svc.Save(ctx, in)
		require.NoError(t, err)
	}
	_, _ = svc.RecordView(ctx, "a2")
	_, _ = svc.RecordView(ctx, "a2")
	_, _ = svc.RecordView(ctx, "a4")

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, st.TotalPosts)
	assert.Equal(t, int64(3), st.TotalViews)
	assert.Equal(t, 2, st.Categories)
	assert.Equal(t, 6, st.Tags)
	require.Len(t, st.Recent, 5)
	assert.Equal(t, "a6", st.Recent[0].Slug)
	require.Len(t, st.Popular, 5)
	assert.Equal(t, "a2", st.Popular[0].Slug)
	assert.Equal(t, "a4", st.Popular[1].Slug)
}

func TestFreshnessAt(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	cases := []struct {
		created, updated time.Time
		want             string
	}{
		{now.Add(-2 * day), now.Add(-2 * day), FreshNew},
		{now.Add(-3 * day), time.Time{}, FreshNew},
		{now.Add(-30 * day), now.Add(-5 * day), FreshUpdated},
		{now.Add(-30 * day), now.Add(-8 * day), ""},
		{now.Add(-30 * day), time.Time{}, ""},
	}
	for _, c := range cases {
		p := Post{CreatedAt: c.created, UpdatedAt: c.updated}
		assert.Equal(t, c.want, p.FreshnessAt(now))
	}
}
