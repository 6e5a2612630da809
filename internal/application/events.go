package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-blog/internal/domain/entity"
)

type EventType string

const (
	EventPostSaved   EventType = "post.saved"
	EventPostDeleted EventType = "post.deleted"
	EventUserCreated EventType = "user.created"
)

// Event is the message published to the blog events queue and consumed by cmd/worker.
type Event struct {
	Type   EventType `json:"type"`
	PostID string    `json:"post_id,omitempty"`
	UserID string    `json:"user_id,omitempty"`
	At     time.Time `json:"at"`
}

// EventPublisher is satisfied by *helpers.RabbitPublisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// PostIndexer keeps the search index in step with post writes.
type PostIndexer interface {
	IndexPost(ctx context.Context, p *entity.Post) error
	DeletePost(ctx context.Context, id string) error
}

// PostSearcher runs substring search over published posts.
type PostSearcher interface {
	Search(ctx context.Context, q string, now time.Time, limit, offset int) ([]entity.Post, int, error)
}

// publish is best effort: a broker outage never fails the write that produced the event.
func publish(ctx context.Context, pub EventPublisher, log *logrus.Entry, ev Event) {
	if pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := pub.PublishJSON(ctx, ev); err != nil {
		log.WithError(err).WithField("event", ev.Type).Warn("publish event failed")
	}
}
