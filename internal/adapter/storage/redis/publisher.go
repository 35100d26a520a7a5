package redis

import (
	"context"
	"fmt"
	"strconv"

	"ledger-wallet/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// EventPublisher implements ports.EventPublisher by appending every event to
// a capped Redis stream.
type EventPublisher struct {
	client goredis.UniversalClient
	stream string
	maxLen int64
}

// NewEventPublisher creates a publisher for stream. maxLen <= 0 leaves the
// stream uncapped.
func NewEventPublisher(client goredis.UniversalClient, stream string, maxLen int64) *EventPublisher {
	return &EventPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	args := &goredis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"id":         event.ID.String(),
			"seq":        strconv.FormatUint(event.Seq, 10),
			"kind":       string(event.Kind),
			"account_id": event.AccountID,
			"payload":    string(event.Payload),
			"timestamp":  event.Timestamp.UnixMilli(),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", p.stream, err)
	}
	return nil
}
