package router

import (
	"github.com/oksasatya/go-blog/internal/application"
	"github.com/oksasatya/go-blog/internal/container"
	pginfra "github.com/oksasatya/go-blog/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/go-blog/internal/interface/http"
	"github.com/oksasatya/go-blog/internal/router/modules"
)

// Deps holds everything the HTTP modules need, built from the container.
type Deps struct {
	Users    *application.UserService
	Profiles *application.ProfileService
	Posts    *application.PostService

	UserHandler    *handlers.UserHandler
	ProfileHandler *handlers.ProfileHandler
	PostHandler    *handlers.PostHandler
}

func buildDeps() Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	rdb := container.GetRedis()
	store := container.GetStore()
	pool := container.GetPGPool()

	userRepo := pginfra.NewUserRepository(pool)
	profileRepo := pginfra.NewProfileRepository(pool)
	postRepo := pginfra.NewPostRepository(pool)

	provisioner := application.NewProfileProvisioner(profileRepo, cfg.DefaultAvatarKey, logger)

	users := application.NewUserService(userRepo, provisioner, container.GetJWT(), rdb, store, logger, cfg.SessionTTL)
	users.OnUserCreated(provisioner.OnUserCreated)

	posts := application.NewPostService(postRepo, store, rdb, logger)
	posts.SlugMaxRetries = cfg.SlugMaxRetries
	posts.PerPage = cfg.PostsPerPage
	posts.RecentCount = cfg.RecentPostsCount
	posts.RecentTTL = cfg.RecentPostsCacheTTL

	// With a broker the worker keeps the index current; without one, index inline.
	if pub := container.GetRabbitPub(); pub != nil {
		users.Events = pub
		posts.Events = pub
	} else if idx := container.GetPostIndex(); idx.Enabled() {
		posts.Indexer = idx
	}
	if idx := container.GetPostIndex(); idx.Enabled() {
		posts.Searcher = idx
	}

	profiles := application.NewProfileService(userRepo, postRepo, provisioner, store)

	about := handlers.About{
		OwnerName:     cfg.AboutOwnerName,
		OwnerBio:      cfg.AboutOwnerBio,
		OwnerImageURL: cfg.AboutOwnerImageURL,
	}

	return Deps{
		Users:          users,
		Profiles:       profiles,
		Posts:          posts,
		UserHandler:    handlers.NewUserHandler(users, logger, cfg.CookieDomain, cfg.CookieSecure),
		ProfileHandler: handlers.NewProfileHandler(users, profiles, posts, logger, cfg.MaxUploadBytes),
		PostHandler:    handlers.NewPostHandler(posts, logger, about, cfg.MaxUploadBytes),
	}
}

// InitModules builds the services from the container and registers every
// feature module. Call once at startup, after the container is populated.
func InitModules(r *Registry) {
	deps := buildDeps()
	jwt := container.GetJWT()
	rdb := container.GetRedis()

	var db modules.Pinger
	if pool := container.GetPGPool(); pool != nil {
		db = pool
	}
	r.Add(modules.NewHealthModule(db, rdb))
	r.Add(modules.NewUserModule(deps.UserHandler, rdb, jwt))
	r.Add(modules.NewProfileModule(deps.ProfileHandler, rdb, jwt))
	r.Add(modules.NewPostModule(deps.PostHandler, rdb, jwt))
	if cfg := container.GetConfig(); cfg != nil && cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}
}
