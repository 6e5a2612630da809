// Package testutil provides in-memory implementations of the repository
// interfaces for service and handler tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-blog/internal/domain/repository"
)

type UserRepo struct {
	mu    sync.Mutex
	users map[string]entity.User
}

func NewUserRepo() *UserRepo { return &UserRepo{users: map[string]entity.User{}} }

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.users {
		if x.Username == u.Username {
			return &repo.ConflictError{Constraint: repo.ConstraintUserUsername}
		}
		if strings.EqualFold(x.Email, u.Email) {
			return &repo.ConflictError{Constraint: repo.ConstraintUserEmail}
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) find(match func(entity.User) bool) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Username == username })
}

func (r *UserRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.Password = hash
	r.users[id] = u
	return nil
}

func (r *UserRepo) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	_, err := r.find(func(u entity.User) bool { return strings.EqualFold(u.Email, email) && u.ID != excludeID })
	return err == nil, nil
}

func (r *UserRepo) UsernameTaken(_ context.Context, username string) (bool, error) {
	_, err := r.find(func(u entity.User) bool { return u.Username == username })
	return err == nil, nil
}

// ProfileRepo enforces one profile per user like the profiles_user_id_key constraint.
type ProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]entity.Profile
	creates  int

	// GetErr, when set, is returned by GetByUserID.
	GetErr error
}

func NewProfileRepo() *ProfileRepo { return &ProfileRepo{profiles: map[string]entity.Profile{}} }

func (r *ProfileRepo) GetByUserID(_ context.Context, userID string) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &p, nil
}

func (r *ProfileRepo) Create(_ context.Context, p *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UserID]; ok {
		return &repo.ConflictError{Constraint: repo.ConstraintProfileUserID}
	}
	r.creates++
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.profiles[p.UserID] = *p
	return nil
}

func (r *ProfileRepo) Update(_ context.Context, p *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UserID]; !ok {
		return repo.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	r.profiles[p.UserID] = *p
	return nil
}

// Count is the number of stored profiles.
func (r *ProfileRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.profiles)
}

// Creates is the number of successful inserts.
func (r *ProfileRepo) Creates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

// PostRepo keeps slugs unique case-insensitively like posts_slug_lower_key.
type PostRepo struct {
	mu    sync.Mutex
	posts map[string]entity.Post
	users *UserRepo

	// BeforeWrite runs before each Create/Update with the lock released,
	// letting tests slip in a competing write.
	BeforeWrite func(p *entity.Post)
	writes      int
}

// NewPostRepo returns an empty repo. users, when set, fills AuthorUsername on reads.
func NewPostRepo(users *UserRepo) *PostRepo {
	return &PostRepo{posts: map[string]entity.Post{}, users: users}
}

func (r *PostRepo) slugUsedLocked(slug, excludeID string) bool {
	for _, p := range r.posts {
		if p.ID != excludeID && strings.EqualFold(p.Slug, slug) {
			return true
		}
	}
	return false
}

func (r *PostRepo) beforeWrite(p *entity.Post) {
	r.mu.Lock()
	r.writes++
	hook := r.BeforeWrite
	r.mu.Unlock()
	if hook != nil {
		hook(p)
	}
}

// Writes counts Create and Update calls, including failed ones.
func (r *PostRepo) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *PostRepo) Create(_ context.Context, p *entity.Post) error {
	r.beforeWrite(p)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slugUsedLocked(p.Slug, "") {
		return &repo.ConflictError{Constraint: repo.ConstraintPostSlug}
	}
	p.ID = uuid.NewString()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.posts[p.ID] = *p
	return nil
}

// Insert stores p directly, bypassing BeforeWrite. Used to seed fixtures.
func (r *PostRepo) Insert(p entity.Post) entity.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.posts[p.ID] = p
	return p
}

func (r *PostRepo) Update(_ context.Context, p *entity.Post) error {
	r.beforeWrite(p)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return repo.ErrNotFound
	}
	if r.slugUsedLocked(p.Slug, p.ID) {
		return &repo.ConflictError{Constraint: repo.ConstraintPostSlug}
	}
	p.UpdatedAt = time.Now()
	r.posts[p.ID] = *p
	return nil
}

func (r *PostRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *PostRepo) withAuthor(p entity.Post) entity.Post {
	if r.users != nil && p.AuthorUsername == "" {
		if u, err := r.users.GetByID(context.Background(), p.AuthorID); err == nil {
			p.AuthorUsername = u.Username
		}
	}
	return p
}

func (r *PostRepo) GetByID(_ context.Context, id string) (*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	p = r.withAuthor(p)
	return &p, nil
}

func (r *PostRepo) GetBySlug(_ context.Context, slug string) (*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if strings.EqualFold(p.Slug, slug) {
			p = r.withAuthor(p)
			return &p, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *PostRepo) SlugTaken(_ context.Context, slug, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slugUsedLocked(slug, excludeID), nil
}

func (r *PostRepo) sorted(match func(entity.Post) bool) []entity.Post {
	out := make([]entity.Post, 0)
	for _, p := range r.posts {
		p = r.withAuthor(p)
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedDate.After(out[j].PublishedDate) })
	return out
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (r *PostRepo) ListPublished(_ context.Context, f repo.PostFilter) ([]entity.Post, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted(func(p entity.Post) bool {
		if !p.IsPublished(f.Now) {
			return false
		}
		if f.Query == "" {
			return true
		}
		return contains(p.Title, f.Query) || contains(p.Summary, f.Query) ||
			contains(p.Content, f.Query) || contains(p.AuthorUsername, f.Query)
	})
	total := len(all)
	if f.Offset >= total {
		return []entity.Post{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < total {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], total, nil
}

func (r *PostRepo) ListByAuthor(_ context.Context, authorID string, publishedBefore *time.Time) ([]entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(p entity.Post) bool {
		if p.AuthorID != authorID {
			return false
		}
		return publishedBefore == nil || p.IsPublished(*publishedBefore)
	}), nil
}
