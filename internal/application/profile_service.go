package application

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/go-blog/internal/domain/apperror"
	"github.com/oksasatya/go-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-blog/internal/domain/repository"
)

// ProfileView is a user's public page: account, profile and the posts the viewer may list.
type ProfileView struct {
	User      *entity.User
	Profile   *entity.Profile
	FullName  string
	AvatarURL string
	Posts     []entity.Post
	IsSelf    bool
}

type ProfileService struct {
	Users       repo.UserRepository
	Posts       repo.PostRepository
	Provisioner *ProfileProvisioner
	Store       repo.ObjectStore
	Now         func() time.Time
}

func NewProfileService(users repo.UserRepository, posts repo.PostRepository, provisioner *ProfileProvisioner, store repo.ObjectStore) *ProfileService {
	return &ProfileService{Users: users, Posts: posts, Provisioner: provisioner, Store: store, Now: time.Now}
}

// Own is the viewer's own profile with all of their posts, drafts included.
func (s *ProfileService) Own(ctx context.Context, viewer *entity.Identity) (*ProfileView, error) {
	if viewer == nil {
		return nil, apperror.Unauthorized("login required")
	}
	u, err := s.Users.GetByID(ctx, viewer.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.Unauthorized("account no longer exists")
	}
	if err != nil {
		return nil, err
	}
	return s.view(ctx, u, true)
}

// ByUsername is another user's profile listing only their published posts.
// Viewing oneself by username gives the same result as Own.
func (s *ProfileService) ByUsername(ctx context.Context, viewer *entity.Identity, username string) (*ProfileView, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.NotFound("user", username)
	}
	if err != nil {
		return nil, err
	}
	self := viewer != nil && viewer.UserID == u.ID
	return s.view(ctx, u, self)
}

func (s *ProfileService) view(ctx context.Context, u *entity.User, self bool) (*ProfileView, error) {
	prof, err := s.Provisioner.EnsureProfile(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	var before *time.Time
	if !self {
		now := time.Now()
		if s.Now != nil {
			now = s.Now()
		}
		before = &now
	}
	posts, err := s.Posts.ListByAuthor(ctx, u.ID, before)
	if err != nil {
		return nil, err
	}

	v := &ProfileView{User: u, Profile: prof, FullName: entity.FullName(u), Posts: posts, IsSelf: self}
	if s.Store != nil {
		v.AvatarURL = s.Store.URLFor(prof.AvatarKey())
	}
	return v, nil
}
