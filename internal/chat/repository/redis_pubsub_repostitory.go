package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/domain"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// MessagePubSub streams newly persisted messages to subscribers of a
// conversation channel. Any implementation satisfies the contract as long
// as delivery is eventually complete and cancellation releases the
// listener.
type MessagePubSub interface {
	Publish(channel string, msg domain.ChatMessage) error
	// Subscribe delivers every published message on channel to handler
	// until ctx is cancelled.
	Subscribe(ctx context.Context, channel string, handler func(msg domain.ChatMessage)) error
}

// ConversationChannel is the pub/sub channel for one conversation id.
func ConversationChannel(chatID string) string {
	return "chat:conv:" + chatID
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish serializes the stored message and publishes it on channel.
func (r *RedisPubSub) Publish(channel string, msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.Publish(context.Background(), channel, data).Err()
}

// Subscribe listens on channel and forwards each decoded message to
// handler. The goroutine exits and the subscription closes when ctx is
// cancelled; a dangling listener after a conversation switch would decrypt
// new records with a stale key.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(msg domain.ChatMessage)) error {
	sub := r.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("%w: %v", domain.ErrSubscription, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg domain.ChatMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					logger.Log.Error("pubsub payload decode", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(msg)
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				return
			}
		}
	}()
	return nil
}
