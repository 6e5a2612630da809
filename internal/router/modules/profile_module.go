package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-blog/internal/interface/http"
	"github.com/oksasatya/go-blog/internal/interface/middleware"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

// ProfileModule
// Public: GET /profiles/:username
// Protected: GET /profile, PUT /profile, POST /profile/avatar
type ProfileModule struct {
	Handler *handlers.ProfileHandler
	Redis   *redis.Client
	JWT     *helpers.JWTManager
}

func NewProfileModule(h *handlers.ProfileHandler, rdb *redis.Client, jwt *helpers.JWTManager) *ProfileModule {
	return &ProfileModule{Handler: h, Redis: rdb, JWT: jwt}
}

func (m *ProfileModule) Register(rg *gin.RouterGroup) {
	rg.GET("/profiles/:username", middleware.OptionalAuth(m.Redis, m.JWT), m.Handler.Show)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Redis, m.JWT))
	auth.Use(middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByUserID(), middleware.AllowSafeMethods()))
	{
		auth.GET("/profile", m.Handler.Me)
		auth.PUT("/profile", m.Handler.Update)
		auth.POST("/profile/avatar", m.Handler.UploadAvatar)
	}
}
