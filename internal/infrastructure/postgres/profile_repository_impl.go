package postgres

import (
	"context"
	"time"

	"github.com/oksasatya/go-blog/internal/domain/entity"
	"github.com/oksasatya/go-blog/internal/domain/repository"
)

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*entity.Profile, error) {
	p := &entity.Profile{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, avatar, bio, website_url, birth_date, location, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.Avatar, &p.Bio, &p.WebsiteURL, &p.BirthDate,
		&p.Location, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

// Create inserts p. A concurrent insert for the same user surfaces as
// repository.ErrDuplicate, never as a second row.
func (r *ProfileRepository) Create(ctx context.Context, p *entity.Profile) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO profiles (user_id, avatar, bio, website_url, birth_date, location)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`, p.UserID, p.AvatarKey(), p.Bio, p.WebsiteURL, p.BirthDate, p.Location).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	err = mapErr(err)
	if err == repository.ErrNotFound {
		return &repository.ConflictError{Constraint: repository.ConstraintProfileUserID}
	}
	return err
}

func (r *ProfileRepository) Update(ctx context.Context, p *entity.Profile) error {
	p.UpdatedAt = time.Now()
	res, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET avatar = $1, bio = $2, website_url = $3, birth_date = $4, location = $5, updated_at = $6
		WHERE user_id = $7
	`, p.AvatarKey(), p.Bio, p.WebsiteURL, p.BirthDate, p.Location, p.UpdatedAt, p.UserID)
	if err != nil {
		return mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.ProfileRepository = (*ProfileRepository)(nil)
