package events

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tallyhub/tallyhub/internal/metrics"
)

const (
	// StreamKey is the Redis stream for poll events.
	StreamKey = "stream:poll_events"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// Payload is the compact event format written to the stream.
type Payload struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	PollID     string `json:"pid"`
	QuestionID string `json:"qid,omitempty"`
	OptionID   string `json:"oid,omitempty"`
	UserID     string `json:"uid,omitempty"`
	OccurredAt int64  `json:"t"` // Unix milliseconds
}

// NewPayload converts an event to its stream form, assigning an ID if missing.
func NewPayload(event Event) Payload {
	id := event.ID
	if id == "" {
		id = NewEventID(event.OccurredAt)
	}
	return Payload{
		ID:         id,
		Type:       event.Type,
		PollID:     event.PollID,
		QuestionID: event.QuestionID,
		OptionID:   event.OptionID,
		UserID:     event.UserID,
		OccurredAt: event.OccurredAt.UnixMilli(),
	}
}

// NewEventID returns a ULID whose time component is t.
func NewEventID(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewRedisPublisher creates a stream publisher.
func NewRedisPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *RedisPublisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{
		redis:   client,
		logger:  logger.With("component", "events.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) (string, error) {
	data, err := json.Marshal(NewPayload(event))
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"type":    event.Type,
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned.
func (p *RedisPublisher) PublishAsync(event Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish poll event",
				"type", event.Type,
				"poll_id", event.PollID,
				"error", err,
			)
			p.metrics.IncEventPublished("dropped")
			return
		}

		p.logger.Debug("poll event published",
			"type", event.Type,
			"poll_id", event.PollID,
			"stream_id", streamID,
		)
		p.metrics.IncEventPublished("success")
	}()
}
