package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-blog/internal/domain/entity"
)

// PostFilter selects published posts for listings.
type PostFilter struct {
	Now    time.Time
	Query  string // substring over title, summary, content and author username
	Limit  int
	Offset int
}

// PostRepository defines the persistence operations for posts.
// Slug lookups and SlugTaken compare case-insensitively.
type PostRepository interface {
	Create(ctx context.Context, p *entity.Post) error
	Update(ctx context.Context, p *entity.Post) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Post, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Post, error)
	SlugTaken(ctx context.Context, slug, excludeID string) (bool, error)
	ListPublished(ctx context.Context, f PostFilter) ([]entity.Post, int, error)
	ListByAuthor(ctx context.Context, authorID string, publishedBefore *time.Time) ([]entity.Post, error)
}
