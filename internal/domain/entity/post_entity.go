package entity

import (
	"time"
	"unicode/utf8"
)

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Post is a blog entry. Slug is unique across all posts, compared case-insensitively.
type Post struct {
	ID              string
	Title           string
	Slug            string
	AuthorID        string
	AuthorUsername  string
	Summary         string
	Content         string
	FeaturedImage   string
	PublishedDate   time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Status          PostStatus
	MetaDescription string
	Keywords        string
}

// IsPublished is the viewer-independent publication fact used by listings and feeds.
func (p *Post) IsPublished(now time.Time) bool {
	return p.Status == StatusPublished && !p.PublishedDate.After(now)
}

// MetaDescriptionOrSummary returns the SEO description, falling back to the
// first 160 characters of the summary.
func (p *Post) MetaDescriptionOrSummary() string {
	if p.MetaDescription != "" {
		return p.MetaDescription
	}
	if utf8.RuneCountInString(p.Summary) <= 160 {
		return p.Summary
	}
	return string([]rune(p.Summary)[:160])
}
