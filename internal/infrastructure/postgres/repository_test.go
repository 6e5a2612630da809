package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-blog/internal/domain/entity"
	"github.com/oksasatya/go-blog/internal/domain/repository"
)

// testPool connects to TEST_DATABASE_URL, applies the schema and truncates
// all tables. Tests are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres repository test")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, dsn, 4, 1, time.Hour)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../../db/migrations/000001_init.up.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE posts, profiles, users CASCADE`)
	require.NoError(t, err)
	return pool
}

func seedUser(t *testing.T, repo *UserRepository, username string) *entity.User {
	t.Helper()
	u := &entity.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestMapErr(t *testing.T) {
	assert.Nil(t, mapErr(nil))

	err := mapErr(&pgconn.PgError{Code: uniqueViolation, ConstraintName: repository.ConstraintPostSlug})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.True(t, repository.IsConflictOn(err, repository.ConstraintPostSlug))

	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now \\o/`, escapeLike(`50% off_now \o/`))
}

func TestPostRepository_SlugUniqueIgnoresCase(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	posts := NewPostRepository(pool)
	author := seedUser(t, users, "ana")

	first := &entity.Post{Title: "Hello", Slug: "hello-world", AuthorID: author.ID, Content: "c",
		Status: entity.StatusPublished, PublishedDate: time.Now().Add(-time.Hour)}
	require.NoError(t, posts.Create(ctx, first))

	taken, err := posts.SlugTaken(ctx, "HELLO-WORLD", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = posts.SlugTaken(ctx, "hello-world", first.ID)
	require.NoError(t, err)
	assert.False(t, taken, "a post never conflicts with itself")

	dup := &entity.Post{Title: "Hello", Slug: "Hello-World", AuthorID: author.ID, Content: "c",
		Status: entity.StatusDraft, PublishedDate: time.Now()}
	err = posts.Create(ctx, dup)
	assert.True(t, repository.IsConflictOn(err, repository.ConstraintPostSlug))

	got, err := posts.GetBySlug(ctx, "HELLO-world")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "ana", got.AuthorUsername)
}

func TestPostRepository_ListPublished(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	posts := NewPostRepository(pool)
	author := seedUser(t, users, "writer")
	now := time.Now()

	mk := func(slug string, status entity.PostStatus, at time.Time, content string) {
		require.NoError(t, posts.Create(ctx, &entity.Post{Title: slug, Slug: slug, AuthorID: author.ID,
			Content: content, Status: status, PublishedDate: at}))
	}
	mk("old", entity.StatusPublished, now.Add(-48*time.Hour), "gophers everywhere")
	mk("new", entity.StatusPublished, now.Add(-time.Hour), "rust")
	mk("draft", entity.StatusDraft, now.Add(-time.Hour), "gophers")
	mk("future", entity.StatusPublished, now.Add(time.Hour), "gophers")

	list, total, err := posts.ListPublished(ctx, repository.PostFilter{Now: now, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Slug)

	list, total, err = posts.ListPublished(ctx, repository.PostFilter{Now: now, Query: "GOPHER", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "old", list[0].Slug)

	list, _, err = posts.ListPublished(ctx, repository.PostFilter{Now: now, Query: "WRIT", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 2, "author username is searchable")

	own, err := posts.ListByAuthor(ctx, author.ID, nil)
	require.NoError(t, err)
	assert.Len(t, own, 4)

	public, err := posts.ListByAuthor(ctx, author.ID, &now)
	require.NoError(t, err)
	assert.Len(t, public, 2)
}

func TestProfileRepository_ConcurrentCreateLeavesOneRow(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	profiles := NewProfileRepository(pool)
	u := seedUser(t, users, "twin")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = profiles.Create(ctx, entity.NewProfile(u.ID))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	}
	assert.Equal(t, 1, created)

	p, err := profiles.GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultAvatarKey, p.Avatar)
}

func TestUserRepository_CascadeDeletesProfileAndPosts(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	profiles := NewProfileRepository(pool)
	posts := NewPostRepository(pool)
	u := seedUser(t, users, "gone")

	require.NoError(t, profiles.Create(ctx, entity.NewProfile(u.ID)))
	require.NoError(t, posts.Create(ctx, &entity.Post{Title: "t", Slug: uuid.NewString(), AuthorID: u.ID,
		Content: "c", Status: entity.StatusDraft, PublishedDate: time.Now()}))

	_, err := pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, u.ID)
	require.NoError(t, err)

	_, err = profiles.GetByUserID(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	list, err := posts.ListByAuthor(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}
