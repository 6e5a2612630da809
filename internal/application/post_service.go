package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-blog/internal/domain/apperror"
	"github.com/oksasatya/go-blog/internal/domain/entity"
	"github.com/oksasatya/go-blog/internal/domain/policy"
	repo "github.com/oksasatya/go-blog/internal/domain/repository"
	"github.com/oksasatya/go-blog/internal/domain/slug"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

const (
	ListingPath     = "/posts"
	recentPostsKey  = "posts:recent"
	maxTitleLen     = 200
	maxSlugLen      = slug.MaxLen
	maxMetaDescLen  = 160
	maxKeywordsLen  = 255
	defaultPerPage  = 5
	defaultRetries  = 3
	defaultRecentNo = 5
)

// PostPath is the detail page of a post.
func PostPath(s string) string { return ListingPath + "/" + s }

// PostService owns post writes, slug assignment and the read paths.
type PostService struct {
	Posts    repo.PostRepository
	Store    repo.ObjectStore
	Searcher PostSearcher
	Indexer  PostIndexer
	Events   EventPublisher
	Redis    *redis.Client
	Logger   *logrus.Logger
	Now      func() time.Time

	SlugMaxRetries int
	PerPage        int
	RecentCount    int
	RecentTTL      time.Duration
}

func NewPostService(posts repo.PostRepository, store repo.ObjectStore, rdb *redis.Client, logger *logrus.Logger) *PostService {
	return &PostService{
		Posts:          posts,
		Store:          store,
		Redis:          rdb,
		Logger:         logger,
		Now:            time.Now,
		SlugMaxRetries: defaultRetries,
		PerPage:        defaultPerPage,
		RecentCount:    defaultRecentNo,
		RecentTTL:      30 * time.Second,
	}
}

func (s *PostService) log() *logrus.Entry { return helpers.Component(s.Logger, "posts") }

func (s *PostService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// PostInput carries the editable fields. An empty Slug asks for one to be
// derived from the title. An empty Status and a nil PublishedDate mean
// draft and now on create, unchanged on update.
type PostInput struct {
	Title           string
	Slug            string
	Summary         string
	Content         string
	Status          entity.PostStatus
	PublishedDate   *time.Time
	MetaDescription string
	Keywords        string
}

func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
}

func (in *PostInput) validate() error {
	switch {
	case in.Title == "":
		return apperror.Validation(apperror.CodeInvalidField, "title", "title is required")
	case utf8.RuneCountInString(in.Title) > maxTitleLen:
		return apperror.Validation(apperror.CodeInvalidField, "title", fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	case strings.TrimSpace(in.Content) == "":
		return apperror.Validation(apperror.CodeInvalidField, "content", "content is required")
	case len(in.Slug) > maxSlugLen:
		return apperror.Validation(apperror.CodeInvalidField, "slug", fmt.Sprintf("slug must be at most %d characters", maxSlugLen))
	case !in.Status.Valid():
		return apperror.Validation(apperror.CodeInvalidField, "status", "status must be draft or published")
	case utf8.RuneCountInString(in.MetaDescription) > maxMetaDescLen:
		return apperror.Validation(apperror.CodeInvalidField, "meta_description", fmt.Sprintf("meta description must be at most %d characters", maxMetaDescLen))
	case utf8.RuneCountInString(in.Keywords) > maxKeywordsLen:
		return apperror.Validation(apperror.CodeInvalidField, "keywords", fmt.Sprintf("keywords must be at most %d characters", maxKeywordsLen))
	}
	return nil
}

func (in *PostInput) apply(p *entity.Post) {
	p.Title = in.Title
	p.Slug = in.Slug
	p.Summary = in.Summary
	p.Content = in.Content
	p.Status = in.Status
	p.MetaDescription = in.MetaDescription
	p.Keywords = in.Keywords
	if in.PublishedDate != nil {
		p.PublishedDate = *in.PublishedDate
	}
}

// Create stores a new post authored by actor.
func (s *PostService) Create(ctx context.Context, actor *entity.Identity, in PostInput) (*entity.Post, error) {
	if actor == nil {
		return nil, apperror.Unauthorized("login required")
	}
	in.normalize()
	if in.Status == "" {
		in.Status = entity.StatusDraft
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &entity.Post{AuthorID: actor.UserID, AuthorUsername: actor.Username, PublishedDate: s.now()}
	in.apply(p)

	if err := s.save(ctx, p, in.Slug != "", s.Posts.Create); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, p)
	s.log().WithField("post_id", p.ID).WithField("slug", p.Slug).Info("post created")
	return p, nil
}

// Update edits the post at slugParam. Only its author may do so.
func (s *PostService) Update(ctx context.Context, actor *entity.Identity, slugParam string, in PostInput) (*entity.Post, error) {
	p, err := s.mutable(ctx, actor, slugParam)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if in.Status == "" {
		in.Status = p.Status
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.apply(p)

	if err := s.save(ctx, p, in.Slug != "", s.Posts.Update); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.NotFound("post", slugParam)
		}
		return nil, err
	}
	s.afterWrite(ctx, p)
	return p, nil
}

// Delete removes the post at slugParam and its featured image.
func (s *PostService) Delete(ctx context.Context, actor *entity.Identity, slugParam string) error {
	p, err := s.mutable(ctx, actor, slugParam)
	if err != nil {
		return err
	}
	if err := s.Posts.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperror.NotFound("post", slugParam)
		}
		return err
	}
	if p.FeaturedImage != "" && s.Store != nil {
		if dErr := s.Store.Delete(ctx, p.FeaturedImage); dErr != nil {
			s.log().WithError(dErr).WithField("key", p.FeaturedImage).Warn("delete featured image failed")
		}
	}

	s.invalidateRecent(ctx)
	if s.Indexer != nil {
		if iErr := s.Indexer.DeletePost(ctx, p.ID); iErr != nil {
			s.log().WithError(iErr).WithField("post_id", p.ID).Warn("unindex post failed")
		}
	}
	publish(ctx, s.Events, s.log(), Event{Type: EventPostDeleted, PostID: p.ID})
	s.log().WithField("post_id", p.ID).Info("post deleted")
	return nil
}

// mutable loads a post and checks that actor may change it. A refusal
// redirects to the post when actor can still see it, otherwise to the listing.
func (s *PostService) mutable(ctx context.Context, actor *entity.Identity, slugParam string) (*entity.Post, error) {
	if actor == nil {
		return nil, apperror.Unauthorized("login required")
	}
	p, err := s.Posts.GetBySlug(ctx, slugParam)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.NotFound("post", slugParam)
		}
		return nil, err
	}
	if !policy.CanMutate(p, actor) {
		redirect := ListingPath
		if policy.IsVisible(p, s.now(), actor) {
			redirect = PostPath(p.Slug)
		}
		return nil, apperror.Forbidden("you are not allowed to modify this post", redirect)
	}
	return p, nil
}

// save writes p with a unique slug. An explicit slug is checked once. A
// derived slug is recomputed and retried when a concurrent writer claims it
// between the check and the write.
func (s *PostService) save(ctx context.Context, p *entity.Post, explicit bool, write func(context.Context, *entity.Post) error) error {
	taken := func(candidate string) (bool, error) {
		return s.Posts.SlugTaken(ctx, candidate, p.ID)
	}

	if explicit {
		if err := slug.CheckExplicit(p.Slug, taken); err != nil {
			return err
		}
		err := write(ctx, p)
		if repo.IsConflictOn(err, repo.ConstraintPostSlug) {
			return apperror.DuplicateSlug(p.Slug)
		}
		return err
	}

	retries := s.SlugMaxRetries
	if retries < 0 {
		retries = 0
	}
	for attempt := 0; ; attempt++ {
		candidate, err := slug.Assign(p.Title, taken)
		if err != nil {
			return err
		}
		p.Slug = candidate
		err = write(ctx, p)
		if !repo.IsConflictOn(err, repo.ConstraintPostSlug) {
			return err
		}
		if attempt >= retries {
			s.log().WithField("slug", candidate).Warn("slug retries exhausted")
			return apperror.DuplicateSlug(candidate)
		}
		s.log().WithField("slug", candidate).WithField("attempt", attempt+1).Debug("slug claimed concurrently, retrying")
	}
}

func (s *PostService) afterWrite(ctx context.Context, p *entity.Post) {
	s.invalidateRecent(ctx)
	if s.Indexer != nil {
		if err := s.Indexer.IndexPost(ctx, p); err != nil {
			s.log().WithError(err).WithField("post_id", p.ID).Warn("index post failed")
		}
	}
	publish(ctx, s.Events, s.log(), Event{Type: EventPostSaved, PostID: p.ID})
}

// GetVisible returns the post at slugParam if viewer may see it. Hidden posts
// are reported as not found.
func (s *PostService) GetVisible(ctx context.Context, viewer *entity.Identity, slugParam string) (*entity.Post, error) {
	p, err := s.Posts.GetBySlug(ctx, slugParam)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.NotFound("post", slugParam)
		}
		return nil, err
	}
	if !policy.IsVisible(p, s.now(), viewer) {
		return nil, apperror.NotFound("post", slugParam)
	}
	return p, nil
}

// PostPage is one page of the public listing.
type PostPage struct {
	Posts      []entity.Post
	Query      string
	Page       int
	PerPage    int
	Total      int
	TotalPages int
	Message    string
}

func (pp *PostPage) HasNext() bool { return pp.Page < pp.TotalPages }
func (pp *PostPage) HasPrev() bool { return pp.Page > 1 }

// List returns a page of published posts, newest first, optionally filtered
// by a substring of title, summary, content or author username. Pages below
// one give the first page, pages past the end the last one.
func (s *PostService) List(ctx context.Context, q string, page int) (*PostPage, error) {
	q = strings.TrimSpace(q)
	per := s.PerPage
	if per <= 0 {
		per = defaultPerPage
	}
	if page < 1 {
		page = 1
	}
	now := s.now()

	posts, total, err := s.find(ctx, q, now, per, (page-1)*per)
	if err != nil {
		return nil, err
	}
	pages := (total + per - 1) / per
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		page = pages
		if posts, total, err = s.find(ctx, q, now, per, (page-1)*per); err != nil {
			return nil, err
		}
	}

	out := &PostPage{Posts: posts, Query: q, Page: page, PerPage: per, Total: total, TotalPages: pages}
	if total == 0 {
		if q != "" {
			out.Message = fmt.Sprintf("no posts match '%s'", q)
		} else {
			out.Message = "no posts published yet"
		}
	}
	return out, nil
}

func (s *PostService) find(ctx context.Context, q string, now time.Time, limit, offset int) ([]entity.Post, int, error) {
	if q != "" && s.Searcher != nil {
		posts, total, err := s.Searcher.Search(ctx, q, now, limit, offset)
		if err == nil {
			return posts, total, nil
		}
		s.log().WithError(err).Warn("search backend failed, falling back to database")
	}
	return s.Posts.ListPublished(ctx, repo.PostFilter{Now: now, Query: q, Limit: limit, Offset: offset})
}

// Recent returns the newest published posts for the home page, cached briefly in Redis.
func (s *PostService) Recent(ctx context.Context) ([]entity.Post, error) {
	n := s.RecentCount
	if n <= 0 {
		n = defaultRecentNo
	}
	if s.Redis != nil {
		var cached []entity.Post
		ok, err := helpers.RedisGetJSON(ctx, s.Redis, recentPostsKey, &cached)
		if err != nil {
			s.log().WithError(err).Warn("recent posts cache read failed")
		}
		if ok {
			return cached, nil
		}
	}

	posts, _, err := s.Posts.ListPublished(ctx, repo.PostFilter{Now: s.now(), Limit: n})
	if err != nil {
		return nil, err
	}
	if s.Redis != nil && s.RecentTTL > 0 {
		if err := helpers.RedisSetJSON(ctx, s.Redis, recentPostsKey, posts, s.RecentTTL); err != nil {
			s.log().WithError(err).Warn("recent posts cache write failed")
		}
	}
	return posts, nil
}

func (s *PostService) invalidateRecent(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, recentPostsKey); err != nil {
		s.log().WithError(err).Warn("recent posts cache invalidation failed")
	}
}

// FeaturedImageKey is the object key of a post's featured image:
// post_images/post_<id>_<username>/<filename>, with "new" for unsaved posts.
func FeaturedImageKey(postID, username, filename string) string {
	id := postID
	if id == "" {
		id = "new"
	}
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	return "post_images/post_" + id + "_" + username + "/" + name
}

// UploadFeaturedImage replaces the featured image of the post at slugParam and returns its URL.
func (s *PostService) UploadFeaturedImage(ctx context.Context, actor *entity.Identity, slugParam string, r io.Reader, filename string) (string, error) {
	if s.Store == nil {
		return "", errors.New("object store not configured")
	}
	p, err := s.mutable(ctx, actor, slugParam)
	if err != nil {
		return "", err
	}
	contentType, ext, body, err := helpers.SniffImage(r)
	if err != nil {
		if errors.Is(err, helpers.ErrUnsupportedImage) {
			return "", apperror.Validation(apperror.CodeInvalidField, "featured_image", "upload a valid image (jpeg, png, gif or webp)")
		}
		return "", err
	}
	if path.Ext(filename) == "" {
		filename += ext
	}

	key, err := s.Store.Put(ctx, FeaturedImageKey(p.ID, p.AuthorUsername, filename), body, contentType)
	if err != nil {
		return "", err
	}
	old := p.FeaturedImage
	p.FeaturedImage = key
	if err := s.Posts.Update(ctx, p); err != nil {
		return "", err
	}
	if old != "" && old != key {
		if dErr := s.Store.Delete(ctx, old); dErr != nil {
			s.log().WithError(dErr).WithField("key", old).Warn("delete old featured image failed")
		}
	}
	s.afterWrite(ctx, p)
	return s.Store.URLFor(key), nil
}

// ImageURL resolves a stored key; empty keys give an empty URL.
func (s *PostService) ImageURL(key string) string {
	if key == "" || s.Store == nil {
		return ""
	}
	return s.Store.URLFor(key)
}
