package repository

import (
	"context"

	"github.com/oksasatya/go-blog/internal/domain/entity"
)

// ProfileRepository stores the one-to-one profile of a user.
// Create returns ErrDuplicate when a profile already exists for the user.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*entity.Profile, error)
	Create(ctx context.Context, p *entity.Profile) error
	Update(ctx context.Context, p *entity.Profile) error
}
