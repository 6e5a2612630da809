package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-blog/internal/domain/apperror"
	"github.com/oksasatya/go-blog/internal/domain/entity"
	"github.com/oksasatya/go-blog/internal/testutil"
)

func TestProfileViews(t *testing.T) {
	users := testutil.NewUserRepo()
	posts := testutil.NewPostRepo(users)
	profiles := testutil.NewProfileRepo()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewProfileService(users, posts, NewProfileProvisioner(profiles, "", nil), testutil.NewMemoryStore())
	svc.Now = func() time.Time { return now }
	ctx := context.Background()

	ann := &entity.User{Username: "ann", Email: "ann@example.com", FirstName: "Ann", LastName: "Lee"}
	require.NoError(t, users.Create(ctx, ann))
	posts.Insert(entity.Post{Slug: "live", AuthorID: ann.ID, Status: entity.StatusPublished, PublishedDate: now.Add(-time.Hour)})
	posts.Insert(entity.Post{Slug: "draft", AuthorID: ann.ID, Status: entity.StatusDraft, PublishedDate: now})
	posts.Insert(entity.Post{Slug: "soon", AuthorID: ann.ID, Status: entity.StatusPublished, PublishedDate: now.Add(time.Hour)})

	self := entity.IdentityOf(ann)
	own, err := svc.Own(ctx, self)
	require.NoError(t, err)
	assert.True(t, own.IsSelf)
	assert.Len(t, own.Posts, 3)
	assert.Equal(t, "Ann Lee", own.FullName)
	assert.Equal(t, "https://media.test/"+entity.DefaultAvatarKey, own.AvatarURL)
	assert.Equal(t, 1, profiles.Count(), "profile created on first read")

	public, err := svc.ByUsername(ctx, &entity.Identity{UserID: "someone"}, "ann")
	require.NoError(t, err)
	assert.False(t, public.IsSelf)
	require.Len(t, public.Posts, 1)
	assert.Equal(t, "live", public.Posts[0].Slug)

	anon, err := svc.ByUsername(ctx, nil, "ann")
	require.NoError(t, err)
	assert.Len(t, anon.Posts, 1)

	_, err = svc.ByUsername(ctx, nil, "ghost")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = svc.Own(ctx, nil)
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}
