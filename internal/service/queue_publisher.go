package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/warnet-bowar/internal/queue"
)

// EventPublisher delivers activity events to the broker.  *queue.Publisher
// satisfies it; a nil EventPublisher disables publishing.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// emitter publishes after commit.  Failures are logged and never returned:
// the database already holds the truth and the request has succeeded.
type emitter struct {
	pub EventPublisher
	log *zap.Logger
}

func (e emitter) emit(ctx context.Context, ev queue.ActivityEvent) {
	if e.pub == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	// detach from the request so a client disconnect does not drop the event
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := e.pub.Publish(pctx, ev); err != nil {
		e.log.Warn("publish event failed", zap.String("type", ev.Type), zap.Error(err))
	}
}
