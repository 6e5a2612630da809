package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-blog/internal/domain/entity"
	"github.com/oksasatya/go-blog/internal/domain/repository"
)

type PostRepository struct {
	db DBTX
}

func NewPostRepository(db DBTX) *PostRepository {
	return &PostRepository{db: db}
}

const postSelect = `
	SELECT p.id, p.title, p.slug, p.author_id, u.username, p.summary, p.content, p.featured_image,
	       p.published_date, p.created_at, p.updated_at, p.status, p.meta_description, p.keywords
	FROM posts p
	JOIN users u ON u.id = p.author_id
`

func scanPost(row interface{ Scan(...any) error }) (*entity.Post, error) {
	p := &entity.Post{}
	var status string
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.AuthorID, &p.AuthorUsername, &p.Summary, &p.Content,
		&p.FeaturedImage, &p.PublishedDate, &p.CreatedAt, &p.UpdatedAt, &status, &p.MetaDescription, &p.Keywords); err != nil {
		return nil, mapErr(err)
	}
	p.Status = entity.PostStatus(status)
	return p, nil
}

func (r *PostRepository) Create(ctx context.Context, p *entity.Post) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO posts (title, slug, author_id, summary, content, featured_image, published_date,
		                   status, meta_description, keywords)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, p.Title, p.Slug, p.AuthorID, p.Summary, p.Content, p.FeaturedImage, p.PublishedDate,
		string(p.Status), p.MetaDescription, p.Keywords)
	return mapErr(row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt))
}

func (r *PostRepository) Update(ctx context.Context, p *entity.Post) error {
	err := r.db.QueryRow(ctx, `
		UPDATE posts
		SET title = $1, slug = $2, summary = $3, content = $4, featured_image = $5, published_date = $6,
		    status = $7, meta_description = $8, keywords = $9, updated_at = now()
		WHERE id = $10
		RETURNING updated_at
	`, p.Title, p.Slug, p.Summary, p.Content, p.FeaturedImage, p.PublishedDate, string(p.Status),
		p.MetaDescription, p.Keywords, p.ID).Scan(&p.UpdatedAt)
	return mapErr(err)
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	return scanPost(r.db.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
}

func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (*entity.Post, error) {
	return scanPost(r.db.QueryRow(ctx, postSelect+` WHERE lower(p.slug) = lower($1)`, slug))
}

func (r *PostRepository) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM posts WHERE lower(slug) = lower($1) AND ($2 = '' OR id::text <> $2)
		)
	`, slug, excludeID).Scan(&taken)
	return taken, mapErr(err)
}

// escapeLike makes q match literally inside an ILIKE pattern.
func escapeLike(q string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
}

func (r *PostRepository) ListPublished(ctx context.Context, f repository.PostFilter) ([]entity.Post, int, error) {
	rows, err := r.db.Query(ctx, postSelect+`
		WHERE p.status = 'published' AND p.published_date <= $1
		  AND ($2 = '' OR p.title ILIKE '%' || $2 || '%' OR p.summary ILIKE '%' || $2 || '%'
		       OR p.content ILIKE '%' || $2 || '%' OR u.username ILIKE '%' || $2 || '%')
		ORDER BY p.published_date DESC
		LIMIT $3 OFFSET $4
	`, f.Now, escapeLike(f.Query), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	posts, err := collectPosts(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.db.QueryRow(ctx, `
		SELECT count(*)
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.status = 'published' AND p.published_date <= $1
		  AND ($2 = '' OR p.title ILIKE '%' || $2 || '%' OR p.summary ILIKE '%' || $2 || '%'
		       OR p.content ILIKE '%' || $2 || '%' OR u.username ILIKE '%' || $2 || '%')
	`, f.Now, escapeLike(f.Query)).Scan(&total)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return posts, total, nil
}

// ListByAuthor returns the author's posts, newest first. With publishedBefore
// set only posts visible to the public at that instant are returned.
func (r *PostRepository) ListByAuthor(ctx context.Context, authorID string, publishedBefore *time.Time) ([]entity.Post, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if publishedBefore != nil {
		rows, err = r.db.Query(ctx, postSelect+`
			WHERE p.author_id = $1 AND p.status = 'published' AND p.published_date <= $2
			ORDER BY p.published_date DESC
		`, authorID, *publishedBefore)
	} else {
		rows, err = r.db.Query(ctx, postSelect+`
			WHERE p.author_id = $1
			ORDER BY p.published_date DESC
		`, authorID)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return collectPosts(rows)
}

func collectPosts(rows pgx.Rows) ([]entity.Post, error) {
	defer rows.Close()
	out := make([]entity.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, mapErr(rows.Err())
}

var _ repository.PostRepository = (*PostRepository)(nil)
