package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-blog/config"
	"github.com/oksasatya/go-blog/internal/domain/repository"
	"github.com/oksasatya/go-blog/internal/infrastructure/search"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

// Process-wide singletons set once by cmd/main.go and read by the router
// when it wires modules.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	objectStore repository.ObjectStore

	jwtManager *helpers.JWTManager

	rabbitPub *helpers.RabbitPublisher
	postIndex *search.PostIndex
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager {
	if jwtManager != nil {
		return jwtManager
	}
	return helpers.DefaultJWT()
}

func SetStore(s repository.ObjectStore)       { objectStore = s }
func GetStore() repository.ObjectStore        { return objectStore }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetPostIndex(x *search.PostIndex)        { postIndex = x }
func GetPostIndex() *search.PostIndex         { return postIndex }
