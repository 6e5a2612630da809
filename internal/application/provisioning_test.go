package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-blog/internal/domain/entity"
	"github.com/oksasatya/go-blog/internal/testutil"
)

func TestEnsureProfileCreatesOnce(t *testing.T) {
	profiles := testutil.NewProfileRepo()
	p := NewProfileProvisioner(profiles, "", nil)
	ctx := context.Background()

	first, err := p.EnsureProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultAvatarKey, first.Avatar)

	second, err := p.EnsureProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, profiles.Count())
}

func TestEnsureProfileUsesConfiguredAvatar(t *testing.T) {
	p := NewProfileProvisioner(testutil.NewProfileRepo(), "avatars/custom.png", nil)
	prof, err := p.EnsureProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "avatars/custom.png", prof.Avatar)
}

func TestEnsureProfileConcurrent(t *testing.T) {
	profiles := testutil.NewProfileRepo()
	p := NewProfileProvisioner(profiles, "", nil)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.EnsureProfile(context.Background(), "u1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, profiles.Count())
	assert.Equal(t, 1, profiles.Creates())
}

// racingProfiles inserts a competing profile right before the provisioner's own insert.
type racingProfiles struct {
	*testutil.ProfileRepo
	once sync.Once
}

func (r *racingProfiles) Create(ctx context.Context, p *entity.Profile) error {
	r.once.Do(func() {
		competitor := entity.NewProfile(p.UserID)
		competitor.Bio = "winner"
		_ = r.ProfileRepo.Create(ctx, competitor)
	})
	return r.ProfileRepo.Create(ctx, p)
}

func TestEnsureProfileLostRaceIsSuccess(t *testing.T) {
	profiles := &racingProfiles{ProfileRepo: testutil.NewProfileRepo()}
	p := NewProfileProvisioner(profiles, "", nil)

	prof, err := p.EnsureProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "winner", prof.Bio)
	assert.Equal(t, 1, profiles.Count())
}

func TestOnUserCreatedLogsAndSwallowsErrors(t *testing.T) {
	profiles := testutil.NewProfileRepo()
	profiles.GetErr = errors.New("connection refused")
	logger, hook := test.NewNullLogger()
	p := NewProfileProvisioner(profiles, "", logger)

	assert.NotPanics(t, func() {
		p.OnUserCreated(context.Background(), &entity.User{ID: "u1"})
	})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "provisioning", entry.Data["component"])
	assert.Equal(t, "u1", entry.Data["user_id"])
	assert.Equal(t, 0, profiles.Count())
}

func TestOnUserCreatedNilUser(t *testing.T) {
	p := NewProfileProvisioner(testutil.NewProfileRepo(), "", nil)
	assert.NotPanics(t, func() { p.OnUserCreated(context.Background(), nil) })
}
