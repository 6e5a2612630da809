package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-blog/internal/application"
	"github.com/oksasatya/go-blog/internal/domain/apperror"
	"github.com/oksasatya/go-blog/internal/interface/middleware"
	"github.com/oksasatya/go-blog/pkg/response"
	"github.com/oksasatya/go-blog/pkg/validation"
)

const birthDateLayout = "2006-01-02"

type ProfileHandler struct {
	Users          *application.UserService
	Profiles       *application.ProfileService
	Posts          *application.PostService
	Logger         *logrus.Logger
	MaxUploadBytes int64
}

func NewProfileHandler(users *application.UserService, profiles *application.ProfileService, posts *application.PostService, logger *logrus.Logger, maxUpload int64) *ProfileHandler {
	return &ProfileHandler{Users: users, Profiles: profiles, Posts: posts, Logger: logger, MaxUploadBytes: maxUpload}
}

// updateAccountRequest mirrors AccountInput; absent fields stay unchanged and
// an empty birth_date clears it.
type updateAccountRequest struct {
	Email      *string `json:"email" binding:"omitempty,email"`
	FirstName  *string `json:"first_name" binding:"omitempty,max=150"`
	LastName   *string `json:"last_name" binding:"omitempty,max=150"`
	Bio        *string `json:"bio" binding:"omitempty,max=500"`
	WebsiteURL *string `json:"website_url" binding:"omitempty,max=200"`
	BirthDate  *string `json:"birth_date"`
	Location   *string `json:"location" binding:"omitempty,max=100"`
}

func (h *ProfileHandler) profileJSON(v *application.ProfileView) gin.H {
	p := v.Profile
	out := gin.H{
		"user":        userJSON(v.User),
		"full_name":   v.FullName,
		"avatar_url":  v.AvatarURL,
		"bio":         p.Bio,
		"website_url": p.WebsiteURL,
		"location":    p.Location,
		"birth_date":  nil,
		"is_self":     v.IsSelf,
	}
	if p.BirthDate != nil {
		out["birth_date"] = p.BirthDate.Format(birthDateLayout)
	}
	posts := make([]gin.H, 0, len(v.Posts))
	for i := range v.Posts {
		posts = append(posts, postSummaryJSON(&v.Posts[i], h.Posts.ImageURL))
	}
	out["posts"] = posts
	return out
}

// Me GET /api/profile
func (h *ProfileHandler) Me(c *gin.Context) {
	v, err := h.Profiles.Own(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, h.profileJSON(v), "profile", nil)
}

// Show GET /api/profiles/:username
func (h *ProfileHandler) Show(c *gin.Context) {
	v, err := h.Profiles.ByUsername(c.Request.Context(), middleware.IdentityFrom(c), c.Param("username"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, h.profileJSON(v), "profile", nil)
}

// Update PUT /api/profile updates account and profile fields together.
func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	in := application.AccountInput{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Bio:        req.Bio,
		WebsiteURL: req.WebsiteURL,
		Location:   req.Location,
	}
	if req.WebsiteURL != nil && *req.WebsiteURL != "" {
		if err := validation.Var(*req.WebsiteURL, "url"); err != nil {
			writeError(c, h.Logger, apperror.Validation(apperror.CodeInvalidField, "website_url", "enter a valid URL"))
			return
		}
	}
	if req.BirthDate != nil {
		var bd time.Time
		if *req.BirthDate != "" {
			parsed, err := time.Parse(birthDateLayout, *req.BirthDate)
			if err != nil {
				writeError(c, h.Logger, apperror.Validation(apperror.CodeInvalidField, "birth_date", "use the YYYY-MM-DD format"))
				return
			}
			bd = parsed
		}
		in.BirthDate = &bd
	}

	id := middleware.IdentityFrom(c)
	if _, _, err := h.Users.UpdateAccount(c.Request.Context(), id.UserID, in); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	v, err := h.Profiles.Own(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, h.profileJSON(v), "your profile has been updated", nil)
}

// UploadAvatar POST /api/profile/avatar (multipart field "avatar").
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	f, ok := openUpload(c, "avatar", h.MaxUploadBytes)
	if !ok {
		return
	}
	defer func() { _ = f.file.Close() }()

	url, err := h.Users.UploadAvatar(c.Request.Context(), middleware.IdentityFrom(c).UserID, f.file)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar updated", nil)
}
