package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-blog/internal/application"
	"github.com/oksasatya/go-blog/internal/domain/entity"
	"github.com/oksasatya/go-blog/internal/domain/policy"
	"github.com/oksasatya/go-blog/internal/interface/middleware"
	"github.com/oksasatya/go-blog/pkg/response"
	"github.com/oksasatya/go-blog/pkg/validation"
)

// About is the static content of the about page.
type About struct {
	OwnerName     string
	OwnerBio      string
	OwnerImageURL string
}

type PostHandler struct {
	Svc            *application.PostService
	Logger         *logrus.Logger
	About          About
	MaxUploadBytes int64
}

func NewPostHandler(svc *application.PostService, logger *logrus.Logger, about About, maxUpload int64) *PostHandler {
	return &PostHandler{Svc: svc, Logger: logger, About: about, MaxUploadBytes: maxUpload}
}

type postRequest struct {
	Title           string     `json:"title" binding:"required,max=200"`
	Slug            string     `json:"slug" binding:"omitempty,max=220,slug"`
	Summary         string     `json:"summary"`
	Content         string     `json:"content" binding:"required"`
	Status          string     `json:"status" binding:"omitempty,oneof=draft published"`
	PublishedDate   *time.Time `json:"published_date"`
	MetaDescription string     `json:"meta_description" binding:"max=160"`
	Keywords        string     `json:"keywords" binding:"max=255"`
}

func (r *postRequest) input() application.PostInput {
	return application.PostInput{
		Title:           r.Title,
		Slug:            r.Slug,
		Summary:         r.Summary,
		Content:         r.Content,
		Status:          entity.PostStatus(r.Status),
		PublishedDate:   r.PublishedDate,
		MetaDescription: r.MetaDescription,
		Keywords:        r.Keywords,
	}
}

func postSummaryJSON(p *entity.Post, imageURL func(string) string) gin.H {
	return gin.H{
		"id":                 p.ID,
		"title":              p.Title,
		"slug":               p.Slug,
		"author":             p.AuthorUsername,
		"summary":            p.Summary,
		"featured_image_url": imageURL(p.FeaturedImage),
		"published_date":     p.PublishedDate,
		"status":             p.Status,
		"url":                application.PostPath(p.Slug),
	}
}

func (h *PostHandler) detailJSON(p *entity.Post, viewer *entity.Identity) gin.H {
	out := postSummaryJSON(p, h.Svc.ImageURL)
	out["content"] = p.Content
	out["meta_description"] = p.MetaDescriptionOrSummary()
	out["keywords"] = p.Keywords
	out["created_at"] = p.CreatedAt
	out["updated_at"] = p.UpdatedAt
	out["is_published"] = p.IsPublished(time.Now())
	out["can_edit"] = policy.CanMutate(p, viewer)
	return out
}

func (h *PostHandler) summaries(posts []entity.Post) []gin.H {
	out := make([]gin.H, 0, len(posts))
	for i := range posts {
		out = append(out, postSummaryJSON(&posts[i], h.Svc.ImageURL))
	}
	return out
}

// Home GET /api/home
func (h *PostHandler) Home(c *gin.Context) {
	posts, err := h.Svc.Recent(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recent_posts": h.summaries(posts)}, "home", nil)
}

// AboutPage GET /api/about
func (h *PostHandler) AboutPage(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"owner_name":      h.About.OwnerName,
		"owner_bio":       h.About.OwnerBio,
		"owner_image_url": h.About.OwnerImageURL,
	}, "about", nil)
}

// List GET /api/posts?q=&page=
func (h *PostHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pp, err := h.Svc.List(c.Request.Context(), c.Query("q"), page)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	msg := pp.Message
	if msg == "" {
		msg = "posts"
	}
	response.Success(c, http.StatusOK, gin.H{"posts": h.summaries(pp.Posts), "query": pp.Query}, msg, gin.H{
		"page":        pp.Page,
		"per_page":    pp.PerPage,
		"total":       pp.Total,
		"total_pages": pp.TotalPages,
		"has_next":    pp.HasNext(),
		"has_prev":    pp.HasPrev(),
	})
}

// Show GET /api/posts/:slug
func (h *PostHandler) Show(c *gin.Context) {
	viewer := middleware.IdentityFrom(c)
	p, err := h.Svc.GetVisible(c.Request.Context(), viewer, c.Param("slug"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, h.detailJSON(p, viewer), "post", nil)
}

// Create POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	actor := middleware.IdentityFrom(c)
	p, err := h.Svc.Create(c.Request.Context(), actor, req.input())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, h.detailJSON(p, actor), "post created", nil)
}

// Update PUT /api/posts/:slug
func (h *PostHandler) Update(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	actor := middleware.IdentityFrom(c)
	p, err := h.Svc.Update(c.Request.Context(), actor, c.Param("slug"), req.input())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, h.detailJSON(p, actor), "post updated", nil)
}

// Delete DELETE /api/posts/:slug
func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.IdentityFrom(c), c.Param("slug")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, "post deleted", gin.H{"redirect": application.ListingPath})
}

// UploadImage POST /api/posts/:slug/image (multipart field "image").
func (h *PostHandler) UploadImage(c *gin.Context) {
	f, ok := openUpload(c, "image", h.MaxUploadBytes)
	if !ok {
		return
	}
	defer func() { _ = f.file.Close() }()

	url, err := h.Svc.UploadFeaturedImage(c.Request.Context(), middleware.IdentityFrom(c), c.Param("slug"), f.file, f.name)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"featured_image_url": url}, "image uploaded", nil)
}
