package application

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-blog/internal/domain/apperror"
	"github.com/oksasatya/go-blog/internal/domain/entity"
	"github.com/oksasatya/go-blog/internal/testutil"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

func init() {
	helpers.PasswordCost = bcrypt.MinCost
}

type userFixture struct {
	svc      *UserService
	users    *testutil.UserRepo
	profiles *testutil.ProfileRepo
	store    *testutil.MemoryStore
	pub      *testutil.Publisher
	mr       *miniredis.Miniredis
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	f := &userFixture{
		users:    testutil.NewUserRepo(),
		profiles: testutil.NewProfileRepo(),
		store:    testutil.NewMemoryStore(),
		pub:      &testutil.Publisher{},
		mr:       mr,
	}
	prov := NewProfileProvisioner(f.profiles, "", nil)
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f.svc = NewUserService(f.users, prov, jwt, rdb, f.store, nil, time.Hour)
	f.svc.Events = f.pub
	f.svc.OnUserCreated(prov.OnUserCreated)
	return f
}

func (f *userFixture) register(t *testing.T, username, email string) *entity.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: "s3cretpass"})
	require.NoError(t, err)
	return u
}

func TestRegisterProvisionsProfile(t *testing.T) {
	f := newUserFixture(t)
	u := f.register(t, "ann", "ann@example.com")

	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "s3cretpass", u.Password)
	prof, err := f.profiles.GetByUserID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultAvatarKey, prof.Avatar)
	assert.Equal(t, []string{"user.created"}, f.pub.Types())
}

func TestRegisterSucceedsWhenProvisioningFails(t *testing.T) {
	f := newUserFixture(t)
	f.profiles.GetErr = assert.AnError

	u, err := f.svc.Register(context.Background(), RegisterInput{Username: "ann", Email: "ann@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, 0, f.profiles.Count())
}

func TestRegisterDuplicates(t *testing.T) {
	f := newUserFixture(t)
	f.register(t, "ann", "ann@example.com")

	_, err := f.svc.Register(context.Background(), RegisterInput{Username: "ann", Email: "other@example.com", Password: "s3cretpass"})
	assert.True(t, apperror.Is(err, apperror.CodeDuplicateUsername))

	_, err = f.svc.Register(context.Background(), RegisterInput{Username: "bob", Email: "ANN@example.com", Password: "s3cretpass"})
	assert.True(t, apperror.Is(err, apperror.CodeDuplicateEmail))

	_, err = f.svc.Register(context.Background(), RegisterInput{Username: "bob", Email: "bob@example.com", Password: "short"})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidField))
}

func TestLoginCreatesSession(t *testing.T) {
	f := newUserFixture(t)
	u := f.register(t, "ann", "ann@example.com")

	for _, login := range []string{"ann", "ann@example.com"} {
		got, pair, err := f.svc.Login(context.Background(), login, "s3cretpass")
		require.NoError(t, err, login)
		assert.Equal(t, u.ID, got.ID)
		assert.NotEmpty(t, pair.AccessToken)

		key := helpers.SessionKey(u.ID)
		assert.Equal(t, "ann", f.mr.HGet(key, "username"))
		assert.Equal(t, "false", f.mr.HGet(key, "is_staff"))
		assert.NotEmpty(t, f.mr.HGet(key, "sid"))
		assert.Equal(t, time.Hour, f.mr.TTL(key))
	}

	_, _, err := f.svc.Login(context.Background(), "ann", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(context.Background(), "nobody", "s3cretpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newUserFixture(t)
	u := f.register(t, "ann", "ann@example.com")
	_, pair, err := f.svc.Login(context.Background(), "ann", "s3cretpass")
	require.NoError(t, err)
	oldSID := f.mr.HGet(helpers.SessionKey(u.ID), "sid")

	next, uid, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)
	assert.NotEmpty(t, next.RefreshToken)
	assert.NotEqual(t, oldSID, f.mr.HGet(helpers.SessionKey(u.ID), "sid"))

	_, _, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutDropsSession(t *testing.T) {
	f := newUserFixture(t)
	u := f.register(t, "ann", "ann@example.com")
	_, pair, err := f.svc.Login(context.Background(), "ann", "s3cretpass")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), u.ID))
	assert.False(t, f.mr.Exists(helpers.SessionKey(u.ID)))

	_, _, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateAccount(t *testing.T) {
	f := newUserFixture(t)
	ann := f.register(t, "ann", "ann@example.com")
	f.register(t, "bob", "bob@example.com")
	ctx := context.Background()

	taken := "BOB@example.com"
	_, _, err := f.svc.UpdateAccount(ctx, ann.ID, AccountInput{Email: &taken})
	assert.True(t, apperror.Is(err, apperror.CodeDuplicateEmail))

	same := "Ann@Example.com"
	first, last, bio := "Ann", "Lee", "writes about Go"
	birth := time.Date(1990, 3, 4, 0, 0, 0, 0, time.UTC)
	u, prof, err := f.svc.UpdateAccount(ctx, ann.ID, AccountInput{
		Email: &same, FirstName: &first, LastName: &last, Bio: &bio, BirthDate: &birth,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann@Example.com", u.Email)
	assert.Equal(t, "Ann Lee", entity.FullName(u))
	assert.Equal(t, "writes about Go", prof.Bio)
	require.NotNil(t, prof.BirthDate)
	assert.True(t, birth.Equal(*prof.BirthDate))
}

func TestUpdateAccountProvisionsMissingProfile(t *testing.T) {
	f := newUserFixture(t)
	u := &entity.User{Username: "legacy", Email: "legacy@example.com"}
	require.NoError(t, f.users.Create(context.Background(), u))

	loc := "Jakarta"
	_, prof, err := f.svc.UpdateAccount(context.Background(), u.ID, AccountInput{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "Jakarta", prof.Location)
	assert.Equal(t, 1, f.profiles.Count())
}

func TestChangePassword(t *testing.T) {
	f := newUserFixture(t)
	u := f.register(t, "ann", "ann@example.com")
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, u.ID, "wrong", "newpassword")
	assert.True(t, apperror.Is(err, apperror.CodeInvalidField))

	err = f.svc.ChangePassword(ctx, u.ID, "s3cretpass", "short")
	assert.True(t, apperror.Is(err, apperror.CodeInvalidField))

	require.NoError(t, f.svc.ChangePassword(ctx, u.ID, "s3cretpass", "newpassword"))
	_, err = f.svc.Authenticate(ctx, "ann", "newpassword")
	assert.NoError(t, err)
}

func TestUploadAvatarReplacesPrevious(t *testing.T) {
	f := newUserFixture(t)
	u := f.register(t, "ann", "ann@example.com")
	ctx := context.Background()

	url1, err := f.svc.UploadAvatar(ctx, u.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	prof, _ := f.profiles.GetByUserID(ctx, u.ID)
	first := prof.Avatar
	assert.Contains(t, first, "avatars/user_"+u.ID+"/")
	assert.Contains(t, first, ".png")
	assert.Equal(t, "https://media.test/"+first, url1)

	_, err = f.svc.UploadAvatar(ctx, u.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.False(t, f.store.Has(first))

	_, err = f.svc.UploadAvatar(ctx, u.ID, bytes.NewReader([]byte("not an image")))
	assert.True(t, apperror.Is(err, apperror.CodeInvalidField))
}
