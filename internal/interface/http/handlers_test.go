package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-blog/internal/application"
	"github.com/oksasatya/go-blog/internal/interface/middleware"
	"github.com/oksasatya/go-blog/internal/testutil"
	"github.com/oksasatya/go-blog/pkg/helpers"
	"github.com/oksasatya/go-blog/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
	helpers.PasswordCost = bcrypt.MinCost
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type envelope struct {
	Status  int            `json:"status"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	Meta    map[string]any `json:"meta"`
	Error   any            `json:"error"`
}

type testServer struct {
	r     *gin.Engine
	store *testutil.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)

	users := testutil.NewUserRepo()
	posts := testutil.NewPostRepo(users)
	store := testutil.NewMemoryStore()
	prov := application.NewProfileProvisioner(testutil.NewProfileRepo(), "", nil)

	userSvc := application.NewUserService(users, prov, jwt, rdb, store, nil, time.Hour)
	userSvc.OnUserCreated(prov.OnUserCreated)
	postSvc := application.NewPostService(posts, store, rdb, nil)
	profileSvc := application.NewProfileService(users, posts, prov, store)

	uh := NewUserHandler(userSvc, nil, "", false)
	ph := NewPostHandler(postSvc, nil, About{OwnerName: "Owner"}, 1<<20)
	prh := NewProfileHandler(userSvc, profileSvc, postSvc, nil, 1<<20)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	api := r.Group("/api")
	api.POST("/register", uh.Register)
	api.POST("/login", uh.Login)
	api.GET("/about", ph.AboutPage)

	public := api.Group("", middleware.OptionalAuth(rdb, jwt))
	public.GET("/home", ph.Home)
	public.GET("/posts", ph.List)
	public.GET("/posts/:slug", ph.Show)
	public.GET("/profiles/:username", prh.Show)

	private := api.Group("", middleware.Auth(rdb, jwt))
	private.POST("/logout", uh.Logout)
	private.POST("/posts", ph.Create)
	private.PUT("/posts/:slug", ph.Update)
	private.DELETE("/posts/:slug", ph.Delete)
	private.POST("/posts/:slug/image", ph.UploadImage)
	private.GET("/profile", prh.Me)
	private.PUT("/profile", prh.Update)
	private.POST("/profile/avatar", prh.UploadAvatar)

	return &testServer{r: r, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (s *testServer) register(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/register", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "s3cretpass",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, env.Message)
	return w.Result().Cookies()
}

func TestPostLifecycle(t *testing.T) {
	s := newTestServer(t)
	ann := s.register(t, "ann")

	w, env := s.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "Hello World", "content": "hi"}, ann)
	require.Equal(t, http.StatusCreated, w.Code, env.Message)
	assert.Equal(t, "hello-world", env.Data["slug"])
	assert.Equal(t, "draft", env.Data["status"])
	assert.Equal(t, true, env.Data["can_edit"])

	w, _ = s.do(t, http.MethodGet, "/api/posts/hello-world", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "drafts are hidden from visitors")

	w, _ = s.do(t, http.MethodGet, "/api/posts/hello-world", nil, ann)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "Hello World", "content": "again", "status": "published", "summary": "short"}, ann)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "hello-world-1", env.Data["slug"])
	assert.Equal(t, "short", env.Data["meta_description"])

	w, env = s.do(t, http.MethodGet, "/api/posts?q=again", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.Data["posts"], 1)
	assert.Equal(t, float64(1), env.Meta["total"])

	w, env = s.do(t, http.MethodGet, "/api/posts?q=zebra", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no posts match 'zebra'", env.Message)

	w, env = s.do(t, http.MethodGet, "/api/home", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.Data["recent_posts"], 1)

	w, env = s.do(t, http.MethodDelete, "/api/posts/hello-world-1", nil, ann)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/posts", env.Meta["redirect"])
}

func TestPostErrors(t *testing.T) {
	s := newTestServer(t)
	ann := s.register(t, "ann")
	bob := s.register(t, "bob")

	w, _ := s.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "x", "content": "y"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/posts", map[string]any{"content": "y"}, ann)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "title")

	w, _ = s.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "Mine", "content": "y", "status": "published"}, ann)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "Other", "slug": "MINE", "content": "y"}, bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DUPLICATE_SLUG", env.Meta["code"])
	assert.Contains(t, env.Error, "slug")

	w, env = s.do(t, http.MethodPut, "/api/posts/mine", map[string]any{"title": "Hijack", "content": "y"}, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "/posts/mine", env.Meta["redirect"])

	w, _ = s.do(t, http.MethodDelete, "/api/posts/nope", nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ann")
	w, env := s.do(t, http.MethodPost, "/api/register", map[string]any{
		"username": "ann", "email": "other@example.com", "password": "s3cretpass",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DUPLICATE_USERNAME", env.Meta["code"])
}

func TestLoginAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ann")

	w, _ := s.do(t, http.MethodPost, "/api/login", map[string]any{"login": "ann", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/login", map[string]any{"login": "ann@example.com", "password": "s3cretpass"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ann", env.Data["username"])
	cookies := w.Result().Cookies()

	w, _ = s.do(t, http.MethodPost, "/api/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/profile", nil, cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(t)
	ann := s.register(t, "ann")

	w, env := s.do(t, http.MethodPut, "/api/profile", map[string]any{
		"first_name": "Ann", "last_name": "Lee", "bio": "hello", "birth_date": "1990-03-04",
	}, ann)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Equal(t, "Ann Lee", env.Data["full_name"])
	assert.Equal(t, "1990-03-04", env.Data["birth_date"])

	w, _ = s.do(t, http.MethodPut, "/api/profile", map[string]any{"birth_date": "04/03/1990"}, ann)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/profile", map[string]any{"website_url": "not a url"}, ann)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/profiles/ann", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", env.Data["bio"])
	assert.Equal(t, false, env.Data["is_self"])

	w, _ = s.do(t, http.MethodGet, "/api/profiles/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte, cookies []*http.Cookie) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, _ = fw.Write(content)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestUploads(t *testing.T) {
	s := newTestServer(t)
	ann := s.register(t, "ann")

	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, multipartRequest(t, "/api/profile/avatar", "avatar", "me.png", pngHeader, ann))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "https://media.test/avatars/user_")

	w, _ = s.do(t, http.MethodPost, "/api/posts", map[string]any{"title": "Pic", "content": "y"}, ann)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	s.r.ServeHTTP(w, multipartRequest(t, "/api/posts/pic/image", "image", "cover.png", pngHeader, ann))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "_ann/cover.png")

	w = httptest.NewRecorder()
	s.r.ServeHTTP(w, multipartRequest(t, "/api/posts/pic/image", "image", "notes.txt", []byte("plain text"), ann))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAboutPage(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/about", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Owner", env.Data["owner_name"])
	assert.Equal(t, "", env.Data["owner_bio"])
}
