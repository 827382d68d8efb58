package app

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/domain"
	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/repository"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/encrypt"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

func newLivePubSub() *MockPubSub {
	pubSub := new(MockPubSub)
	pubSub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	pubSub.On("Subscribe", mock.Anything, mock.Anything).Return(nil)
	return pubSub
}

func newTestMessageUseCase(t *testing.T) (*MessageUseCase, *MockMessageRepository, *MockUnreadRepository, *MockPubSub) {
	t.Helper()
	msgRepo := new(MockMessageRepository)
	unreadRepo := new(MockUnreadRepository)
	pubSub := newLivePubSub()
	groupRepo := new(MockGroupRepository)
	uc := NewMessageUseCase(msgRepo, groupRepo, unreadRepo, pubSub, NewKeyResolver(groupRepo))
	return uc, msgRepo, unreadRepo, pubSub
}

func TestSendMessage_Direct(t *testing.T) {
	ctx := context.Background()
	uc, msgRepo, unreadRepo, _ := newTestMessageUseCase(t)

	conv := domain.NewDirectConversation("u2", "u1")
	require.Equal(t, "u1_u2", conv.ID)

	msgRepo.On("NextSeq", ctx, "u1_u2").Return(int64(7), nil)
	msgRepo.On("Insert", ctx, mock.Anything).Return(nil)
	unreadRepo.On("Increment", ctx, "u2", "u1").Return(nil)

	sender := domain.Identity{UID: "u1", DisplayName: "Ana"}
	msg, err := uc.SendMessage(ctx, conv, sender, "Salut")
	require.NoError(t, err)

	assert.Equal(t, "u1_u2", msg.ChatID)
	assert.Equal(t, "u1", msg.SenderID)
	assert.Equal(t, "u2", msg.ReceiverID)
	assert.Equal(t, int64(7), msg.Seq)
	assert.True(t, msg.Encrypted)
	assert.False(t, msg.Read)

	// Stored text is ciphertext, and it round-trips under the pair key.
	assert.NotEqual(t, "Salut", msg.Text)
	key, err := encrypt.DeriveDirectKey("u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "Salut", encrypt.DecryptMessage(msg.Text, key))

	msgRepo.AssertExpectations(t)
	unreadRepo.AssertExpectations(t)
}

func TestSendMessage_SelfChat(t *testing.T) {
	ctx := context.Background()
	uc, msgRepo, unreadRepo, _ := newTestMessageUseCase(t)

	conv := domain.NewDirectConversation("u1", "u1")
	require.Equal(t, "self_u1", conv.ID)

	msgRepo.On("NextSeq", ctx, "self_u1").Return(int64(1), nil)
	msgRepo.On("Insert", ctx, mock.Anything).Return(nil)

	msg, err := uc.SendMessage(ctx, conv, domain.Identity{UID: "u1"}, "notita")
	require.NoError(t, err)

	// Notes to self arrive read and never touch the unread counters.
	assert.Equal(t, "u1", msg.ReceiverID)
	assert.True(t, msg.Read)
	assert.True(t, msg.Delivered)
	assert.NotZero(t, msg.ReadAt)

	unreadRepo.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
	msgRepo.AssertExpectations(t)
}

func TestSendMessage_Group(t *testing.T) {
	ctx := context.Background()
	msgRepo := new(MockMessageRepository)
	unreadRepo := new(MockUnreadRepository)
	groupRepo := new(MockGroupRepository)
	uc := NewMessageUseCase(msgRepo, groupRepo, unreadRepo, newLivePubSub(), NewKeyResolver(groupRepo))

	key, err := encrypt.GenerateGroupKey()
	require.NoError(t, err)
	group := &domain.Group{ID: "g1", Name: "Grupa", EncryptionKey: key, Members: []string{"u1"}}
	conv := domain.NewGroupConversation(group.ID)

	groupRepo.On("FindByID", ctx, "g1").Return(group, nil)
	msgRepo.On("NextSeq", ctx, conv.ID).Return(int64(1), nil)
	msgRepo.On("Insert", ctx, mock.Anything).Return(nil)
	groupRepo.On("IncrementMessageCount", ctx, "g1", mock.Anything).Return(nil)

	msg, err := uc.SendMessage(ctx, conv, domain.Identity{UID: "u1"}, "Salut grup")
	require.NoError(t, err)

	assert.Empty(t, msg.ReceiverID)
	assert.Equal(t, "Salut grup", encrypt.DecryptMessage(msg.Text, key))

	// Group traffic bumps the group activity stats, not per-pair counters.
	unreadRepo.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
	groupRepo.AssertExpectations(t)
}

func TestSendMessage_UnknownGroup(t *testing.T) {
	ctx := context.Background()
	msgRepo := new(MockMessageRepository)
	groupRepo := new(MockGroupRepository)
	uc := NewMessageUseCase(msgRepo, groupRepo, new(MockUnreadRepository), newLivePubSub(), NewKeyResolver(groupRepo))

	groupRepo.On("FindByID", ctx, "missing").Return(nil, nil)

	_, err := uc.SendMessage(ctx, domain.NewGroupConversation("missing"), domain.Identity{UID: "u1"}, "x")
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
	msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSubscribeMessages_InitialSnapshot(t *testing.T) {
	ctx := context.Background()
	uc, msgRepo, _, _ := newTestMessageUseCase(t)

	conv := domain.NewDirectConversation("u1", "u2")
	key, err := encrypt.DeriveDirectKey("u1", "u2")
	require.NoError(t, err)

	first, err := encrypt.EncryptMessage("prima", key)
	require.NoError(t, err)
	second, err := encrypt.EncryptMessage("a doua", key)
	require.NoError(t, err)

	stored := []domain.ChatMessage{
		{ID: "m1", ChatID: conv.ID, Text: first, Encrypted: true, CreatedAt: 100, Seq: 1},
		{ID: "m2", ChatID: conv.ID, Text: second, Encrypted: true, CreatedAt: 101, Seq: 2},
	}
	msgRepo.On("FindRecent", ctx, conv.ID, int64(defaultPageSize)).Return(stored, nil)

	var got [][]domain.MessageView
	cancel, err := uc.SubscribeMessages(ctx, conv, 0, func(views []domain.MessageView) {
		got = append(got, views)
	})
	require.NoError(t, err)
	defer cancel()

	require.Len(t, got, 1)
	require.Len(t, got[0], 2)
	assert.Equal(t, "prima", got[0][0].DisplayText)
	assert.Equal(t, "a doua", got[0][1].DisplayText)
}

func TestSubscribeMessages_PublishDuringSnapshot(t *testing.T) {
	ctx := context.Background()
	uc, msgRepo, _, pubSub := newTestMessageUseCase(t)

	conv := domain.NewDirectConversation("u1", "u2")
	key, err := encrypt.DeriveDirectKey("u1", "u2")
	require.NoError(t, err)

	cipher := func(text string) string {
		c, err := encrypt.EncryptMessage(text, key)
		require.NoError(t, err)
		return c
	}
	channel := repository.ConversationChannel(conv.ID)

	stored := []domain.ChatMessage{
		{ID: "m1", ChatID: conv.ID, Text: cipher("prima"), Encrypted: true, CreatedAt: 100, Seq: 1},
	}
	// A record committed while the snapshot query is still running only
	// reaches subscribers over the channel. The listener must already be
	// registered at that point, otherwise the record is lost until a
	// resubscribe.
	msgRepo.On("FindRecent", ctx, conv.ID, int64(defaultPageSize)).Run(func(mock.Arguments) {
		require.NoError(t, pubSub.Publish(channel, domain.ChatMessage{
			ID: "m2", ChatID: conv.ID, Text: cipher("a doua"), Encrypted: true, CreatedAt: 101, Seq: 2,
		}))
	}).Return(stored, nil).Once()

	var last []domain.MessageView
	cancel, err := uc.SubscribeMessages(ctx, conv, 0, func(views []domain.MessageView) {
		last = views
	})
	require.NoError(t, err)
	defer cancel()

	require.Len(t, last, 2)
	assert.Equal(t, "prima", last[0].DisplayText)
	assert.Equal(t, "a doua", last[1].DisplayText)

	// The same record arriving again over the channel stays deduplicated.
	require.NoError(t, pubSub.Publish(channel, domain.ChatMessage{
		ID: "m2", ChatID: conv.ID, Text: cipher("a doua"), Encrypted: true, CreatedAt: 101, Seq: 2,
	}))
	require.Len(t, last, 2)
}

func TestSubscribeMessages_LiveMergeOrdering(t *testing.T) {
	ctx := context.Background()
	uc, msgRepo, _, pubSub := newTestMessageUseCase(t)

	conv := domain.NewDirectConversation("u1", "u2")
	key, err := encrypt.DeriveDirectKey("u1", "u2")
	require.NoError(t, err)

	msgRepo.On("FindRecent", ctx, conv.ID, int64(defaultPageSize)).Return(nil, nil)

	var last []domain.MessageView
	cancel, err := uc.SubscribeMessages(ctx, conv, 0, func(views []domain.MessageView) {
		last = views
	})
	require.NoError(t, err)
	defer cancel()

	cipher := func(text string) string {
		c, err := encrypt.EncryptMessage(text, key)
		require.NoError(t, err)
		return c
	}
	channel := repository.ConversationChannel(conv.ID)

	// Concurrent sends arriving out of order: same second, later seq
	// first. The snapshot must still come out in (created_at, seq) order.
	require.NoError(t, pubSub.Publish(channel, domain.ChatMessage{
		ID: "m2", ChatID: conv.ID, Text: cipher("a doua"), Encrypted: true, CreatedAt: 200, Seq: 2,
	}))
	require.NoError(t, pubSub.Publish(channel, domain.ChatMessage{
		ID: "m1", ChatID: conv.ID, Text: cipher("prima"), Encrypted: true, CreatedAt: 200, Seq: 1,
	}))
	// Duplicate delivery of an already merged record is dropped.
	require.NoError(t, pubSub.Publish(channel, domain.ChatMessage{
		ID: "m2", ChatID: conv.ID, Text: cipher("a doua"), Encrypted: true, CreatedAt: 200, Seq: 2,
	}))

	require.Len(t, last, 2)
	assert.Equal(t, "prima", last[0].DisplayText)
	assert.Equal(t, "a doua", last[1].DisplayText)
}

func TestSubscribeMessages_UndecryptableEntry(t *testing.T) {
	ctx := context.Background()
	uc, msgRepo, _, _ := newTestMessageUseCase(t)

	conv := domain.NewDirectConversation("u1", "u2")

	// A record encrypted under some other key keeps rendering with the
	// fallback marker instead of breaking the stream.
	otherKey, err := encrypt.GenerateGroupKey()
	require.NoError(t, err)
	foreign, err := encrypt.EncryptMessage("secret", otherKey)
	require.NoError(t, err)

	stored := []domain.ChatMessage{
		{ID: "m1", ChatID: conv.ID, Text: foreign, Encrypted: true, CreatedAt: 100, Seq: 1},
	}
	msgRepo.On("FindRecent", ctx, conv.ID, int64(defaultPageSize)).Return(stored, nil)

	var last []domain.MessageView
	cancel, err := uc.SubscribeMessages(ctx, conv, 0, func(views []domain.MessageView) {
		last = views
	})
	require.NoError(t, err)
	defer cancel()

	require.Len(t, last, 1)
	assert.Equal(t, encrypt.DecryptionFallback, last[0].DisplayText)
}

func TestLoadOlderMessages(t *testing.T) {
	ctx := context.Background()
	uc, msgRepo, _, _ := newTestMessageUseCase(t)

	conv := domain.NewDirectConversation("u1", "u2")
	key, err := encrypt.DeriveDirectKey("u1", "u2")
	require.NoError(t, err)
	old, err := encrypt.EncryptMessage("istoric", key)
	require.NoError(t, err)

	cursor := domain.Cursor{CreatedAt: 300, Seq: 5}
	page := []domain.ChatMessage{
		{ID: "m1", ChatID: conv.ID, Text: old, Encrypted: true, CreatedAt: 250, Seq: 4},
	}
	msgRepo.On("FindBefore", ctx, conv.ID, cursor, int64(10)).Return(page, nil)

	views, exhausted, err := uc.LoadOlderMessages(ctx, conv, cursor, 10)
	require.NoError(t, err)

	require.Len(t, views, 1)
	assert.Equal(t, "istoric", views[0].DisplayText)
	// A short page means history ran out.
	assert.True(t, exhausted)
}

func TestMarkConversationRead(t *testing.T) {
	ctx := context.Background()
	uc, msgRepo, unreadRepo, _ := newTestMessageUseCase(t)

	conv := domain.NewDirectConversation("u1", "u2")

	msgRepo.On("MarkRead", ctx, "u1_u2", "u2", mock.Anything).Return(int64(3), nil)
	unreadRepo.On("Clear", ctx, "u2", "u1").Return(nil)

	require.NoError(t, uc.MarkConversationRead(ctx, conv, "u2"))
	msgRepo.AssertExpectations(t)
	unreadRepo.AssertExpectations(t)
}

func TestMarkConversationRead_SelfChat(t *testing.T) {
	ctx := context.Background()
	uc, msgRepo, unreadRepo, _ := newTestMessageUseCase(t)

	conv := domain.NewDirectConversation("u1", "u1")

	msgRepo.On("MarkRead", ctx, "self_u1", "u1", mock.Anything).Return(int64(0), nil)

	require.NoError(t, uc.MarkConversationRead(ctx, conv, "u1"))
	unreadRepo.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkConversationRead_GroupNoOp(t *testing.T) {
	ctx := context.Background()
	uc, msgRepo, unreadRepo, _ := newTestMessageUseCase(t)

	require.NoError(t, uc.MarkConversationRead(ctx, domain.NewGroupConversation("g1"), "u1"))
	msgRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	unreadRepo.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnreadCounters(t *testing.T) {
	ctx := context.Background()
	uc, _, unreadRepo, _ := newTestMessageUseCase(t)

	counters := map[string]int64{"u1": 2, "u3": 5}
	unreadRepo.On("Counters", ctx, "u2").Return(counters, nil)

	got, err := uc.UnreadCounters(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, counters, got)
}

func TestKeyResolver_CachesGroupKey(t *testing.T) {
	ctx := context.Background()
	groupRepo := new(MockGroupRepository)

	key, err := encrypt.GenerateGroupKey()
	require.NoError(t, err)
	group := &domain.Group{ID: "g1", EncryptionKey: key}
	groupRepo.On("FindByID", ctx, "g1").Return(group, nil).Once()

	resolver := NewKeyResolver(groupRepo)
	conv := domain.NewGroupConversation("g1")

	for i := 0; i < 3; i++ {
		got, err := resolver.Resolve(ctx, conv)
		require.NoError(t, err)
		assert.Equal(t, key, got)
	}
	groupRepo.AssertExpectations(t)

	// Forget drops the cache entry, forcing a fresh lookup.
	resolver.Forget("g1")
	groupRepo.On("FindByID", ctx, "g1").Return(group, nil).Once()
	_, err = resolver.Resolve(ctx, conv)
	require.NoError(t, err)
	groupRepo.AssertExpectations(t)
}
