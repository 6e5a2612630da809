// Package policy holds the read and write authorization rules for posts.
package policy

import (
	"time"

	"github.com/oksasatya/go-blog/internal/domain/entity"
)

// IsVisible decides whether viewer may see p at now. Authors and staff may
// preview drafts and scheduled posts; everyone else only sees published ones.
func IsVisible(p *entity.Post, now time.Time, viewer *entity.Identity) bool {
	if p == nil {
		return false
	}
	return CanPreview(p, viewer) || p.IsPublished(now)
}

// CanMutate reports whether actor may edit or delete p. Staff get no extra rights here.
func CanMutate(p *entity.Post, actor *entity.Identity) bool {
	return p != nil && actor != nil && actor.UserID != "" && actor.UserID == p.AuthorID
}

// CanPreview reports whether viewer bypasses the publication rule for p.
func CanPreview(p *entity.Post, viewer *entity.Identity) bool {
	return viewer != nil && (viewer.IsStaff || viewer.UserID == p.AuthorID)
}
