package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-blog/config"
	"github.com/oksasatya/go-blog/internal/application"
	"github.com/oksasatya/go-blog/internal/domain/apperror"
	"github.com/oksasatya/go-blog/internal/domain/entity"
	pginfra "github.com/oksasatya/go-blog/internal/infrastructure/postgres"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	users := pginfra.NewUserRepository(pool)
	posts := pginfra.NewPostRepository(pool)
	provisioner := application.NewProfileProvisioner(pginfra.NewProfileRepository(pool), cfg.DefaultAvatarKey, logger)

	userSvc := application.NewUserService(users, provisioner, nil, nil, nil, logger, cfg.SessionTTL)
	userSvc.OnUserCreated(provisioner.OnUserCreated)

	username := getenv("SEED_USERNAME", "admin")
	email := getenv("SEED_EMAIL", "admin@example.com")
	password := getenv("SEED_PASSWORD", "password123")

	u, err := userSvc.Register(ctx, application.RegisterInput{Username: username, Email: email, Password: password})
	switch {
	case apperror.Is(err, apperror.CodeDuplicateUsername):
		if u, err = users.GetByUsername(ctx, username); err != nil {
			log.Fatalf("failed to load existing user: %v", err)
		}
		fmt.Printf("user %s already exists\n", username)
	case err != nil:
		log.Fatalf("failed to seed user: %v", err)
	default:
		fmt.Printf("seeded user: id=%s username=%s email=%s password=%s\n", u.ID, u.Username, u.Email, password)
	}

	if _, err := pool.Exec(ctx, `UPDATE users SET is_staff = true, updated_at = now() WHERE id = $1`, u.ID); err != nil {
		log.Fatalf("failed to mark staff: %v", err)
	}
	u.IsStaff = true
	if _, err := provisioner.EnsureProfile(ctx, u.ID); err != nil {
		log.Fatalf("failed to ensure profile: %v", err)
	}

	postSvc := application.NewPostService(posts, nil, nil, logger)
	p, err := postSvc.Create(ctx, entity.IdentityOf(u), application.PostInput{
		Title:   "Welcome to the blog",
		Summary: "The first post, created by the seed command.",
		Content: "Edit or delete this post once you have written your own.",
		Status:  entity.StatusPublished,
	})
	if err != nil {
		log.Fatalf("failed to seed post: %v", err)
	}
	fmt.Printf("seeded post: slug=%s\n", p.Slug)
}
