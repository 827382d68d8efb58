package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// UnreadRepository tracks per-recipient pending message counts, one hash
// field per sender. Clearing removes the field entirely; an absent field
// means nothing pending, a zero is never stored.
type UnreadRepository interface {
	Increment(ctx context.Context, recipientID, senderID string) error
	Clear(ctx context.Context, recipientID, senderID string) error
	Counters(ctx context.Context, recipientID string) (map[string]int64, error)
}

type redisUnreadRepository struct {
	client *redis.Client
}

// NewRedisUnreadRepository create an UnreadRepository over Redis hashes
func NewRedisUnreadRepository(client *redis.Client) UnreadRepository {
	return &redisUnreadRepository{client: client}
}

func unreadKey(recipientID string) string {
	return "chat:unread:" + recipientID
}

// Increment is HINCRBY, atomic on the server, so concurrent senders never
// lose a count to a read-modify-write race.
func (r *redisUnreadRepository) Increment(ctx context.Context, recipientID, senderID string) error {
	return r.client.HIncrBy(ctx, unreadKey(recipientID), senderID, 1).Err()
}

func (r *redisUnreadRepository) Clear(ctx context.Context, recipientID, senderID string) error {
	return r.client.HDel(ctx, unreadKey(recipientID), senderID).Err()
}

func (r *redisUnreadRepository) Counters(ctx context.Context, recipientID string) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, unreadKey(recipientID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read unread counters: %w", err)
	}
	counters := make(map[string]int64, len(raw))
	for sender, val := range raw {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		counters[sender] = n
	}
	return counters, nil
}
