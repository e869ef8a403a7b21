package workflow

import (
	"context"

	"github.com/mmdatafocus/regflow/config"
)

// RunNotifier announces finished runs. Notification failures never change a run's outcome.
type RunNotifier interface {
	NotifyRun(ctx context.Context, msg config.LoadEventMessage) error
}

// PubSubNotifier publishes to PUBSUB_TOPIC.
type PubSubNotifier struct{}

func (PubSubNotifier) NotifyRun(ctx context.Context, msg config.LoadEventMessage) error {
	_, err := config.PublishLoadEvent(ctx, msg)
	return err
}
