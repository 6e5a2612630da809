package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	repo "github.com/oksasatya/go-blog/internal/domain/repository"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

// ErrBadEvent marks messages that can never be processed and must not be redelivered.
var ErrBadEvent = errors.New("malformed event")

// EventConsumer applies blog events in the background worker: it keeps the
// search index current and re-runs profile provisioning for new users.
type EventConsumer struct {
	Posts       repo.PostRepository
	Index       PostIndexer
	Provisioner *ProfileProvisioner
	Logger      *logrus.Logger
}

func NewEventConsumer(posts repo.PostRepository, index PostIndexer, provisioner *ProfileProvisioner, logger *logrus.Logger) *EventConsumer {
	return &EventConsumer{Posts: posts, Index: index, Provisioner: provisioner, Logger: logger}
}

// Handle processes one message body. Errors wrapping ErrBadEvent are
// permanent; any other error is worth a retry.
func (c *EventConsumer) Handle(ctx context.Context, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	log := helpers.Component(c.Logger, "worker").WithField("event", ev.Type)

	switch ev.Type {
	case EventPostSaved:
		if ev.PostID == "" || c.Index == nil {
			return c.skip(ev)
		}
		p, err := c.Posts.GetByID(ctx, ev.PostID)
		if errors.Is(err, repo.ErrNotFound) {
			// deleted before we got here
			return c.Index.DeletePost(ctx, ev.PostID)
		}
		if err != nil {
			return err
		}
		return c.Index.IndexPost(ctx, p)

	case EventPostDeleted:
		if ev.PostID == "" || c.Index == nil {
			return c.skip(ev)
		}
		return c.Index.DeletePost(ctx, ev.PostID)

	case EventUserCreated:
		if ev.UserID == "" || c.Provisioner == nil {
			return c.skip(ev)
		}
		if _, err := c.Provisioner.EnsureProfile(ctx, ev.UserID); err != nil {
			return err
		}
		log.WithField("user_id", ev.UserID).Debug("profile ensured")
		return nil
	}
	return fmt.Errorf("%w: unknown type %q", ErrBadEvent, ev.Type)
}

func (c *EventConsumer) skip(ev Event) error {
	if ev.PostID == "" && ev.UserID == "" {
		return fmt.Errorf("%w: %s without id", ErrBadEvent, ev.Type)
	}
	return nil
}
