package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-blog/internal/domain/apperror"
	"github.com/oksasatya/go-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-blog/internal/domain/repository"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLen = 8

// UserService is the user directory: accounts, sessions and avatar uploads.
type UserService struct {
	Users       repo.UserRepository
	Provisioner *ProfileProvisioner
	JWT         *helpers.JWTManager
	Redis       *redis.Client
	Store       repo.ObjectStore
	Events      EventPublisher
	Logger      *logrus.Logger
	SessionTTL  time.Duration

	hooks []UserCreatedHook
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func NewUserService(users repo.UserRepository, provisioner *ProfileProvisioner, jwt *helpers.JWTManager, rdb *redis.Client, store repo.ObjectStore, logger *logrus.Logger, sessionTTL time.Duration) *UserService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &UserService{
		Users:       users,
		Provisioner: provisioner,
		JWT:         jwt,
		Redis:       rdb,
		Store:       store,
		Logger:      logger,
		SessionTTL:  sessionTTL,
	}
}

// OnUserCreated registers a hook run after every successful Register.
func (s *UserService) OnUserCreated(h UserCreatedHook) {
	if h != nil {
		s.hooks = append(s.hooks, h)
	}
}

func (s *UserService) log() *logrus.Entry { return helpers.Component(s.Logger, "users") }

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if len(in.Password) < minPasswordLen {
		return nil, apperror.Validation(apperror.CodeInvalidField, "password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	taken, err := s.Users.UsernameTaken(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, duplicateUsername()
	}
	taken, err = s.Users.EmailTaken(ctx, in.Email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, duplicateEmail()
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  hash,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, mapUserConflict(err)
	}

	for _, h := range s.hooks {
		h(ctx, u)
	}
	publish(ctx, s.Events, s.log(), Event{Type: EventUserCreated, UserID: u.ID})
	s.log().WithField("user_id", u.ID).Info("user registered")
	return u, nil
}

func duplicateUsername() error {
	return apperror.Validation(apperror.CodeDuplicateUsername, "username", "a user with that username already exists")
}

func duplicateEmail() error {
	return apperror.Validation(apperror.CodeDuplicateEmail, "email", "a user with that email already exists")
}

// mapUserConflict turns a unique violation that slipped past the pre-checks into a validation error.
func mapUserConflict(err error) error {
	switch {
	case repo.IsConflictOn(err, repo.ConstraintUserUsername):
		return duplicateUsername()
	case repo.IsConflictOn(err, repo.ConstraintUserEmail):
		return duplicateEmail()
	}
	return err
}

// Authenticate accepts a username or an email address as login.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*entity.User, error) {
	var (
		u   *entity.User
		err error
	)
	if strings.Contains(login, "@") {
		u, err = s.Users.GetByEmail(ctx, login)
	} else {
		u, err = s.Users.GetByUsername(ctx, login)
	}
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *UserService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.signPair(u.ID, sid)
	if err != nil {
		s.log().WithError(err).WithField("user_id", u.ID).Error("generate tokens failed")
		return TokenPair{}, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":    u.ID,
			"username":   u.Username,
			"is_staff":   strconv.FormatBool(u.IsStaff),
			"sid":        sid,
			"logged_in":  true,
			"created_at": nowRFC3339(),
		}
		key := helpers.SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, s.SessionTTL)
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			s.log().WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}
	return pair, nil
}

func (s *UserService) signPair(userID, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *UserService) Login(ctx context.Context, login, password string) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, login, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh rotates the session id and both tokens. The refresh token must
// belong to the session currently stored for the user.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil || u == nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	key := helpers.SessionKey(u.ID)
	if s.Redis != nil {
		data, rErr := s.Redis.HGetAll(ctx, key).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, "", ErrInvalidCredentials
		}
	}

	sid := uuid.NewString()
	pair, err := s.signPair(u.ID, sid)
	if err != nil {
		return TokenPair{}, "", err
	}
	if s.Redis != nil {
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"sid":        sid,
			"updated_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, s.SessionTTL)
		_, _ = pipe.Exec(ctx)
	}
	return pair, u.ID, nil
}

// Logout drops the user's session; outstanding tokens stop working immediately.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if s.Redis == nil {
		return nil
	}
	return helpers.RedisDel(ctx, s.Redis, helpers.SessionKey(userID))
}

func (s *UserService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.NotFound("user", id)
	}
	return u, err
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.NotFound("user", username)
	}
	return u, err
}

// AccountInput updates the user and profile in one request. Nil fields are left unchanged.
type AccountInput struct {
	Email      *string
	FirstName  *string
	LastName   *string
	Bio        *string
	WebsiteURL *string
	BirthDate  *time.Time
	Location   *string
}

func (s *UserService) UpdateAccount(ctx context.Context, userID string, in AccountInput) (*entity.User, *entity.Profile, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if !strings.EqualFold(email, u.Email) {
			taken, err := s.Users.EmailTaken(ctx, email, u.ID)
			if err != nil {
				return nil, nil, err
			}
			if taken {
				return nil, nil, duplicateEmail()
			}
		}
		u.Email = email
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, nil, mapUserConflict(err)
	}

	prof, err := s.Provisioner.EnsureProfile(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	if in.Bio != nil {
		prof.Bio = *in.Bio
	}
	if in.WebsiteURL != nil {
		prof.WebsiteURL = *in.WebsiteURL
	}
	if in.BirthDate != nil {
		if in.BirthDate.IsZero() {
			prof.BirthDate = nil
		} else {
			bd := *in.BirthDate
			prof.BirthDate = &bd
		}
	}
	if in.Location != nil {
		prof.Location = *in.Location
	}
	if err := s.Profiles().Update(ctx, prof); err != nil {
		return nil, nil, err
	}
	return u, prof, nil
}

// Profiles exposes the provisioner's repository for profile writes.
func (s *UserService) Profiles() repo.ProfileRepository { return s.Provisioner.Profiles }

func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !helpers.CompareHashAndPassword(u.Password, oldPassword) {
		return apperror.Validation(apperror.CodeInvalidField, "old_password", "your old password was entered incorrectly")
	}
	if len(newPassword) < minPasswordLen {
		return apperror.Validation(apperror.CodeInvalidField, "new_password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Users.UpdatePassword(ctx, u.ID, hash)
}

// AvatarKey is the object key for a new avatar of userID.
func AvatarKey(userID, ext string) string {
	return "avatars/user_" + userID + "/" + uuid.NewString() + ext
}

// UploadAvatar stores an image as the user's new avatar and returns its URL.
// The previous avatar is removed unless it is the default one.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, r io.Reader) (string, error) {
	if s.Store == nil {
		return "", errors.New("object store not configured")
	}
	contentType, ext, body, err := helpers.SniffImage(r)
	if err != nil {
		if errors.Is(err, helpers.ErrUnsupportedImage) {
			return "", apperror.Validation(apperror.CodeInvalidField, "avatar", "upload a valid image (jpeg, png, gif or webp)")
		}
		return "", err
	}
	prof, err := s.Provisioner.EnsureProfile(ctx, userID)
	if err != nil {
		return "", err
	}

	key, err := s.Store.Put(ctx, AvatarKey(userID, ext), body, contentType)
	if err != nil {
		return "", err
	}
	old := prof.Avatar
	prof.Avatar = key
	if err := s.Profiles().Update(ctx, prof); err != nil {
		_ = s.Store.Delete(ctx, key)
		return "", err
	}
	if old != "" && old != entity.DefaultAvatarKey && old != s.Provisioner.DefaultAvatar {
		if dErr := s.Store.Delete(ctx, old); dErr != nil {
			s.log().WithError(dErr).WithField("key", old).Warn("delete old avatar failed")
		}
	}
	return s.Store.URLFor(key), nil
}
