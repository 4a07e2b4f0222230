// Package history publishes an ordered per-room action log to Redis.
// The log is append-only and consumed by replay and moderation tooling;
// it is never read back by the game itself.
package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix    = "recall:history:"
	publishLimit = 2 * time.Second
	// retain finished-game logs for a week
	keyTTL = 7 * 24 * time.Hour
)

// Record is one applied action, in application order.
type Record struct {
	ActionIndex int            `json:"actionIndex"`
	ActorID     uuid.UUID      `json:"actorId"`
	Action      string         `json:"action"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   int64          `json:"timestamp"`
}

// Publisher appends action records to a per-room Redis list. Publishing
// is asynchronous and best-effort; a slow or absent Redis never blocks
// or fails the game.
type Publisher struct {
	rdb *redis.Client
	log *logrus.Entry
}

// NewPublisher wraps a Redis client. A nil client yields a disabled
// publisher whose Record is a no-op.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb, log: logrus.WithField("component", "history")}
}

// Record implements game.ActionRecorder.
func (p *Publisher) Record(roomID uuid.UUID, actionIndex int, actorID uuid.UUID, action string, payload map[string]any) {
	if p == nil || p.rdb == nil {
		return
	}
	rec := Record{
		ActionIndex: actionIndex,
		ActorID:     actorID,
		Action:      action,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go p.push(keyPrefix+roomID.String(), rec)
}

func (p *Publisher) push(key string, rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), publishLimit)
	defer cancel()

	b, err := json.Marshal(rec)
	if err != nil {
		p.log.WithError(err).Warn("failed to marshal action record")
		return
	}
	pipe := p.rdb.Pipeline()
	pipe.RPush(ctx, key, b)
	pipe.Expire(ctx, key, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.WithError(err).WithField("key", key).Warn("failed to publish action record")
	}
}

// Tail returns up to n most recent records for a room, oldest first.
func (p *Publisher) Tail(ctx context.Context, roomID uuid.UUID, n int64) ([]Record, error) {
	if p == nil || p.rdb == nil {
		return nil, nil
	}
	raw, err := p.rdb.LRange(ctx, keyPrefix+roomID.String(), -n, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
