package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis pub/sub channel out-of-process presenters
// subscribe to.
const EventsChannel = "ladder_events"

// RedisBridge mirrors every fan-out event onto a Redis channel so
// presenters running in other processes can render without linking the
// core.
type RedisBridge struct {
	rdb *redis.Client
	ctx context.Context
}

// NewRedisBridge wraps an existing client. Returns nil for a nil client
// so callers can pass the result straight to New.
func NewRedisBridge(ctx context.Context, rdb *redis.Client) *RedisBridge {
	if rdb == nil {
		return nil
	}
	return &RedisBridge{rdb: rdb, ctx: ctx}
}

// PublishEvent implements Publisher. Failures are logged and swallowed;
// the in-process presenters already got the event.
func (b *RedisBridge) PublishEvent(p Payload) {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Printf("[NOTIFY] Failed to marshal %s event: %v", p.Kind, err)
		return
	}
	if n, err := b.rdb.Publish(b.ctx, EventsChannel, raw).Result(); err != nil {
		log.Printf("[NOTIFY] Redis publish failed for %s (match=%d): %v", p.Kind, p.Match.ID, err)
	} else if n > 0 {
		log.Printf("[NOTIFY] Published %s for match %d to %d subscribers", p.Kind, p.Match.ID, n)
	}
}
