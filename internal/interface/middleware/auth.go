package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-blog/internal/domain/entity"
	"github.com/oksasatya/go-blog/pkg/helpers"
	"github.com/oksasatya/go-blog/pkg/response"
)

const identityKey = "identity"

// Auth validates the access token against the active Redis session and
// aborts with 401 when either is missing. On success the caller's identity
// is stored in the context (see IdentityFrom) and "userID" is set for rate limiting.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, reason := resolve(c, rdb, jwt)
		if id == nil {
			response.Error[any](c, http.StatusUnauthorized, reason, nil)
			c.Abort()
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuth sets the identity when a valid session is presented and
// otherwise lets the request through as anonymous.
func OptionalAuth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, _ := resolve(c, rdb, jwt); id != nil {
			setIdentity(c, id)
		}
		c.Next()
	}
}

// IdentityFrom returns the authenticated caller, or nil for anonymous requests.
func IdentityFrom(c *gin.Context) *entity.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*entity.Identity)
	return id
}

func setIdentity(c *gin.Context, id *entity.Identity) {
	c.Set(identityKey, id)
	c.Set("userID", id.UserID)
}

func resolve(c *gin.Context, rdb *redis.Client, jwt *helpers.JWTManager) (*entity.Identity, string) {
	token, err := c.Cookie(helpers.AccessCookie)
	if err != nil || token == "" {
		return nil, "missing access token"
	}
	if jwt == nil || rdb == nil {
		return nil, "authentication unavailable"
	}
	claims, err := jwt.ParseAccessToken(token)
	if err != nil {
		return nil, "invalid access token"
	}

	data, err := rdb.HGetAll(c.Request.Context(), helpers.SessionKey(claims.UserID)).Result()
	if err != nil || len(data) == 0 {
		return nil, "session not found"
	}
	if data["sid"] != claims.SessionID {
		return nil, "session expired"
	}
	staff, _ := strconv.ParseBool(data["is_staff"])
	return &entity.Identity{UserID: data["user_id"], Username: data["username"], IsStaff: staff}, ""
}
