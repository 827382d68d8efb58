package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/domain"
	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/repository"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/encrypt"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
)

// defaultPageSize messages per snapshot/page when the caller passes none
const defaultPageSize = 50

// MessageUseCase orchestrates the send path (encrypt then persist) and
// the receive path (stream, decrypt, order) for a conversation, plus
// unread accounting.
type MessageUseCase struct {
	msgRepo    repository.MessageRepository
	groupRepo  repository.GroupRepository
	unreadRepo repository.UnreadRepository
	pubSub     repository.MessagePubSub
	keys       *KeyResolver
}

// NewMessageUseCase init message use case
func NewMessageUseCase(
	msgRepo repository.MessageRepository,
	groupRepo repository.GroupRepository,
	unreadRepo repository.UnreadRepository,
	pubSub repository.MessagePubSub,
	keys *KeyResolver,
) *MessageUseCase {
	return &MessageUseCase{
		msgRepo:    msgRepo,
		groupRepo:  groupRepo,
		unreadRepo: unreadRepo,
		pubSub:     pubSub,
		keys:       keys,
	}
}

// SendMessage encrypts plaintext under the conversation key and persists
// it. Plaintext is never stored: an encryption failure aborts the send.
// Self-chat messages are read immediately and never counted unread.
func (uc *MessageUseCase) SendMessage(ctx context.Context, conv domain.Conversation, sender domain.Identity, plaintext string) (*domain.ChatMessage, error) {
	key, err := uc.keys.Resolve(ctx, conv)
	if err != nil {
		return nil, err
	}

	ciphertext, err := encrypt.EncryptMessage(plaintext, key)
	if err != nil {
		return nil, err
	}

	seq, err := uc.msgRepo.NextSeq(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSend, err)
	}

	now := time.Now().Unix()
	msg := &domain.ChatMessage{
		ID:          uuid.New().String(),
		ChatID:      conv.ID,
		SenderID:    sender.UID,
		SenderName:  sender.DisplayName,
		SenderPhoto: sender.PhotoURL,
		Text:        ciphertext,
		Encrypted:   true,
		CreatedAt:   now,
		Seq:         seq,
	}

	var recipient string
	if conv.Type == domain.ConversationDirect {
		a, b, err := domain.ParseDirectChatID(conv.ID)
		if err != nil {
			return nil, err
		}
		recipient = a
		if recipient == sender.UID {
			recipient = b
		}
		msg.ReceiverID = recipient
		if recipient == sender.UID {
			// Notes to self: no unread accounting against oneself.
			msg.Read = true
			msg.ReadAt = now
			msg.Delivered = true
		}
	}

	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSend, err)
	}

	switch {
	case conv.Type == domain.ConversationGroup:
		if err := uc.groupRepo.IncrementMessageCount(ctx, conv.GroupID, now); err != nil {
			logger.Log.Warn("group message count", zap.String("group", conv.GroupID), zap.Error(err))
		}
	case recipient != sender.UID:
		// Counter accuracy is eventual: a failed increment is logged, not
		// surfaced, and never blocks the already persisted message.
		if err := uc.unreadRepo.Increment(ctx, recipient, sender.UID); err != nil {
			logger.Log.Warn("unread increment", zap.String("recipient", recipient), zap.Error(err))
		}
	}

	if err := uc.pubSub.Publish(repository.ConversationChannel(conv.ID), *msg); err != nil {
		logger.Log.Warn("publish message", zap.String("chat", conv.ID), zap.Error(err))
	}

	return msg, nil
}

// SubscribeMessages resolves the conversation key once, registers the
// live listener and then merges the initial snapshot into it. Every
// emission hands onMessages the full ordered list of decrypted views.
// The listener must be in place before the snapshot query runs: a record
// committed and published during the query would otherwise miss both the
// snapshot and the stream and stay invisible until a resubscribe. The
// id dedupe makes the resulting overlap harmless. The returned function
// cancels the stream; callers must resubscribe when the conversation,
// and with it the key, changes.
func (uc *MessageUseCase) SubscribeMessages(ctx context.Context, conv domain.Conversation, limit int64, onMessages func([]domain.MessageView)) (func(), error) {
	key, err := uc.keys.Resolve(ctx, conv)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	state := newSubscriptionState(key, onMessages)
	subCtx, cancel := context.WithCancel(ctx)
	err = uc.pubSub.Subscribe(subCtx, repository.ConversationChannel(conv.ID), func(msg domain.ChatMessage) {
		state.merge(msg)
		state.emit()
	})
	if err != nil {
		cancel()
		return nil, err
	}

	initial, err := uc.msgRepo.FindRecent(ctx, conv.ID, limit)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", domain.ErrSubscription, err)
	}
	for _, m := range initial {
		state.merge(m)
	}
	state.emit()

	return cancel, nil
}

// subscriptionState keeps one subscriber's ordered decrypted snapshot.
type subscriptionState struct {
	mu         sync.Mutex
	key        string
	views      []domain.MessageView
	seen       map[string]bool
	onMessages func([]domain.MessageView)
}

func newSubscriptionState(key string, onMessages func([]domain.MessageView)) *subscriptionState {
	return &subscriptionState{
		key:        key,
		seen:       make(map[string]bool),
		onMessages: onMessages,
	}
}

func (s *subscriptionState) merge(msg domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[msg.ID] {
		return
	}
	s.seen[msg.ID] = true
	s.views = append(s.views, decryptView(msg, s.key))
	// Network reordering of concurrent sends is resolved purely by the
	// persisted (created_at, seq) pair, not by arrival order.
	sort.SliceStable(s.views, func(i, j int) bool {
		return s.views[i].ChatMessage.Before(s.views[j].ChatMessage)
	})
}

func (s *subscriptionState) emit() {
	s.mu.Lock()
	snapshot := make([]domain.MessageView, len(s.views))
	copy(snapshot, s.views)
	s.mu.Unlock()
	s.onMessages(snapshot)
}

// decryptView decrypts a stored record for display. Undecryptable entries
// keep rendering with the fallback marker instead of failing the stream.
func decryptView(m domain.ChatMessage, key string) domain.MessageView {
	view := domain.MessageView{ChatMessage: m, DisplayText: m.Text}
	if m.Encrypted {
		view.DisplayText = encrypt.DecryptMessage(m.Text, key)
	}
	return view
}

// LoadOlderMessages fetches one page of history before the cursor, with
// the same ordering and decryption contract as the live stream.
// Exhaustion is reported as a boolean, not an error.
func (uc *MessageUseCase) LoadOlderMessages(ctx context.Context, conv domain.Conversation, before domain.Cursor, pageSize int64) ([]domain.MessageView, bool, error) {
	key, err := uc.keys.Resolve(ctx, conv)
	if err != nil {
		return nil, false, err
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	msgs, err := uc.msgRepo.FindBefore(ctx, conv.ID, before, pageSize)
	if err != nil {
		return nil, false, err
	}

	views := make([]domain.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, decryptView(m, key))
	}
	exhausted := int64(len(msgs)) < pageSize
	return views, exhausted, nil
}

// MarkConversationRead flags every pending message addressed to
// recipientID in one batched update and clears the matching unread
// counter entries. An increment racing the clear may be dropped; the
// counters are eventually accurate, not exact. Group conversations carry
// no per-pair counters, so they are a no-op here.
func (uc *MessageUseCase) MarkConversationRead(ctx context.Context, conv domain.Conversation, recipientID string) error {
	if conv.Type != domain.ConversationDirect {
		return nil
	}

	a, b, err := domain.ParseDirectChatID(conv.ID)
	if err != nil {
		return err
	}
	sender := a
	if sender == recipientID {
		sender = b
	}

	if _, err := uc.msgRepo.MarkRead(ctx, conv.ID, recipientID, time.Now().Unix()); err != nil {
		return err
	}
	if sender == recipientID {
		// Self chat never accumulates a counter.
		return nil
	}
	return uc.unreadRepo.Clear(ctx, recipientID, sender)
}

// UnreadCounters returns the pending-message count per sender for a
// recipient. Senders with nothing pending are absent, never zero.
func (uc *MessageUseCase) UnreadCounters(ctx context.Context, recipientID string) (map[string]int64, error) {
	return uc.unreadRepo.Counters(ctx, recipientID)
}
