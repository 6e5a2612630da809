package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-blog/internal/interface/http"
	"github.com/oksasatya/go-blog/internal/interface/middleware"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

// PostModule serves the blog pages and post writes.
// Public (viewer resolved when logged in): GET /home, GET /about, GET /posts, GET /posts/:slug
// Protected: POST /posts, PUT /posts/:slug, DELETE /posts/:slug, POST /posts/:slug/image
type PostModule struct {
	Handler *handlers.PostHandler
	Redis   *redis.Client
	JWT     *helpers.JWTManager
}

func NewPostModule(h *handlers.PostHandler, rdb *redis.Client, jwt *helpers.JWTManager) *PostModule {
	return &PostModule{Handler: h, Redis: rdb, JWT: jwt}
}

func (m *PostModule) Register(rg *gin.RouterGroup) {
	readLimiter := middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())

	rg.GET("/about", m.Handler.AboutPage)

	public := rg.Group("/")
	public.Use(readLimiter, middleware.OptionalAuth(m.Redis, m.JWT))
	{
		public.GET("/home", m.Handler.Home)
		public.GET("/posts", m.Handler.List)
		public.GET("/posts/:slug", m.Handler.Show)
	}

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Redis, m.JWT))
	auth.Use(middleware.RateLimit(m.Redis, 30, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/posts", m.Handler.Create)
		auth.PUT("/posts/:slug", m.Handler.Update)
		auth.DELETE("/posts/:slug", m.Handler.Delete)
		auth.POST("/posts/:slug/image", m.Handler.UploadImage)
	}
}
