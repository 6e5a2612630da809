package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "go-blog", cfg.AppName)
	assert.Equal(t, 3, cfg.SlugMaxRetries)
	assert.Equal(t, 5, cfg.PostsPerPage)
	assert.Equal(t, 5, cfg.RecentPostsCount)
	assert.Equal(t, "avatars/default_avatar.png", cfg.DefaultAvatarKey)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SLUG_MAX_RETRIES", "7")
	t.Setenv("RECENT_POSTS_CACHE_TTL", "2m")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("POSTS_PER_PAGE", "not-a-number")

	cfg := Load()

	assert.Equal(t, 7, cfg.SlugMaxRetries)
	assert.Equal(t, 2*time.Minute, cfg.RecentPostsCacheTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 5, cfg.PostsPerPage)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "d", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.PostgresDSN())
}

func TestSplitLists(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " http://a.test, ,http://b.test ", ElasticsearchAddrs: "http://es:9200"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
	assert.Equal(t, []string{"http://es:9200"}, cfg.ESAddrs())
}
