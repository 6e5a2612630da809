package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-blog/internal/domain/repository"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

// UserCreatedHook runs synchronously after a user is committed. Hooks cannot
// fail registration; they handle their own errors.
type UserCreatedHook func(ctx context.Context, u *entity.User)

// ProfileProvisioner guarantees every user has exactly one profile.
type ProfileProvisioner struct {
	Profiles      repo.ProfileRepository
	DefaultAvatar string
	Logger        *logrus.Logger
}

func NewProfileProvisioner(profiles repo.ProfileRepository, defaultAvatar string, logger *logrus.Logger) *ProfileProvisioner {
	return &ProfileProvisioner{Profiles: profiles, DefaultAvatar: defaultAvatar, Logger: logger}
}

// EnsureProfile returns the profile of userID, creating the default one when
// missing. Losing a concurrent insert counts as success.
func (p *ProfileProvisioner) EnsureProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	prof, err := p.Profiles.GetByUserID(ctx, userID)
	if err == nil {
		return prof, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	prof = entity.NewProfile(userID)
	if p.DefaultAvatar != "" {
		prof.Avatar = p.DefaultAvatar
	}
	if err := p.Profiles.Create(ctx, prof); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return p.Profiles.GetByUserID(ctx, userID)
		}
		return nil, err
	}
	helpers.Component(p.Logger, "provisioning").WithField("user_id", userID).Debug("profile created")
	return prof, nil
}

// OnUserCreated is the UserCreatedHook form of EnsureProfile.
func (p *ProfileProvisioner) OnUserCreated(ctx context.Context, u *entity.User) {
	if u == nil {
		return
	}
	if _, err := p.EnsureProfile(ctx, u.ID); err != nil {
		helpers.Component(p.Logger, "provisioning").
			WithError(err).
			WithField("user_id", u.ID).
			Error("profile provisioning failed")
	}
}
