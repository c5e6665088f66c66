package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/pkg/jobs"
)

// JobEvent announces a finished scheduled job on the notification channel.
// Downstream consumers (admin dashboards, the parent-notification gateway)
// subscribe to the Redis channel and fan out from there.
type JobEvent struct {
	Job        string    `json:"job"`
	Date       string    `json:"date"`
	Count      int       `json:"count"`
	FinishedAt time.Time `json:"finished_at"`
}

// Notifier publishes job events over Redis pub/sub. Delivery is retried by an
// in-memory queue so a transient Redis hiccup does not drop the event.
type Notifier struct {
	client  *redis.Client
	channel string
	queue   *jobs.Queue
	logger  *zap.Logger
}

// NewNotifier constructs a Notifier publishing to the given channel.
func NewNotifier(client *redis.Client, channel string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{client: client, channel: channel, logger: logger}
	n.queue = jobs.NewQueue("job-events", n.publish, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 5,
		RetryDelay: 2 * time.Second,
		Logger:     logger,
	})
	return n
}

// Start launches the delivery workers.
func (n *Notifier) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (n *Notifier) Stop() {
	n.queue.Stop()
}

// Notify enqueues one job event for publication.
func (n *Notifier) Notify(event JobEvent) {
	if event.FinishedAt.IsZero() {
		event.FinishedAt = time.Now().UTC()
	}
	if err := n.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    event.Job,
		Payload: event,
	}); err != nil {
		n.logger.Warn("failed to enqueue job event", zap.String("job", event.Job), zap.Error(err))
	}
}

func (n *Notifier) publish(ctx context.Context, job jobs.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return err
	}
	n.logger.Debug("job event published",
		zap.String("channel", n.channel),
		zap.String("job", job.Type))
	return nil
}
