package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure RedisNotifier implements model.Deliverer.
var _ model.Deliverer = (*RedisNotifier)(nil)

// streamAdder is the slice of the redis client the notifier needs.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisNotifier appends each delivery to a Redis stream for the
// conversational front-end to consume.
type RedisNotifier struct {
	client streamAdder
	stream string
	maxLen int64
	logger *slog.Logger
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisNotifier returns a deliverer that XADDs to stream, trimming it to
// roughly 10k entries.
func NewRedisNotifier(client streamAdder, stream string, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, stream: stream, maxLen: 10000, logger: logger}
}

type listingMessage struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	Link         string   `json:"link"`
	PostedAgo    string   `json:"posted_ago"`
	TechStack    []string `json:"techstack"`
	Score        *int     `json:"compatibility_score"`
	FilterReason *string  `json:"filter_reason"`
}

// Deliver writes one stream entry per delivery, empty deliveries included, so
// the consumer can tell a quiet cycle from a missing one.
func (n *RedisNotifier) Deliver(ctx context.Context, d model.Delivery) error {
	msgs := make([]listingMessage, len(d.Listings))
	for i, l := range d.Listings {
		stack := l.TechStack
		if stack == nil {
			stack = []string{}
		}
		msgs[i] = listingMessage{
			ID:           string(l.ID),
			Title:        l.Title,
			Company:      l.Company,
			Location:     l.Location,
			Link:         l.Link,
			PostedAgo:    l.PostedAgo,
			TechStack:    stack,
			Score:        l.Score,
			FilterReason: l.FilterReason,
		}
	}
	payload, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal listings: %w", err)
	}

	id, err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: n.maxLen,
		Approx: true,
		Values: map[string]any{
			"search_id": d.SearchID,
			"user_id":   d.UserID,
			"count":     len(d.Listings),
			"listings":  string(payload),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", n.stream, err)
	}

	n.logger.Info("delivery published",
		"stream", n.stream,
		"entry_id", id,
		"search_id", d.SearchID,
		"count", len(d.Listings),
	)
	return nil
}
