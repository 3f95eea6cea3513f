package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	audit "zerotrust/pkg/platform/audit"
)

// defaultStreamMaxLen caps the stream so a forgotten consumer cannot grow it
// without bound.
const defaultStreamMaxLen = 100_000

// RedisSink appends events to a Redis stream.
type RedisSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

func NewRedisSink(client redis.Cmdable, stream string) *RedisSink {
	return &RedisSink{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":         event.ID.String(),
			"decision":   string(event.Decision),
			"request_id": event.RequestID,
			"timestamp":  event.Timestamp.UTC().Format(time.RFC3339Nano),
			"payload":    string(payload),
		},
	}).Err()
}
