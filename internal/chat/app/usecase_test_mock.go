package app

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/domain"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// NextSeq mock next sequence
func (m *MockMessageRepository) NextSeq(ctx context.Context, chatID string) (int64, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(int64), args.Error(1)
}

// Insert mock insert msg
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindRecent mock recent page
func (m *MockMessageRepository) FindRecent(ctx context.Context, chatID string, limit int64) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, chatID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindBefore mock older page
func (m *MockMessageRepository) FindBefore(ctx context.Context, chatID string, before domain.Cursor, limit int64) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, chatID, before, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead mock batched read flag update
func (m *MockMessageRepository) MarkRead(ctx context.Context, chatID, recipientID string, readAt int64) (int64, error) {
	args := m.Called(ctx, chatID, recipientID, readAt)
	return args.Get(0).(int64), args.Error(1)
}

// MockGroupRepository Mock GroupRepository
type MockGroupRepository struct {
	mock.Mock
}

// Create mock create group
func (m *MockGroupRepository) Create(ctx context.Context, group *domain.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

// FindByID mock find group by id
func (m *MockGroupRepository) FindByID(ctx context.Context, groupID string) (*domain.Group, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByCode mock find group by code
func (m *MockGroupRepository) FindByCode(ctx context.Context, code string) (*domain.Group, error) {
	args := m.Called(ctx, code)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

// AddMember mock guarded admission
func (m *MockGroupRepository) AddMember(ctx context.Context, groupID, userID string, now int64) (bool, error) {
	args := m.Called(ctx, groupID, userID, now)
	return args.Bool(0), args.Error(1)
}

// RemoveMember mock member removal
func (m *MockGroupRepository) RemoveMember(ctx context.Context, groupID, userID string) (*domain.Group, error) {
	args := m.Called(ctx, groupID, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

// Delete mock delete group
func (m *MockGroupRepository) Delete(ctx context.Context, groupID string) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

// UpdateFields mock field patch
func (m *MockGroupRepository) UpdateFields(ctx context.Context, groupID string, fields bson.M, now int64) error {
	args := m.Called(ctx, groupID, fields, now)
	return args.Error(0)
}

// IncrementMessageCount mock message count bump
func (m *MockGroupRepository) IncrementMessageCount(ctx context.Context, groupID string, now int64) error {
	args := m.Called(ctx, groupID, now)
	return args.Error(0)
}

// MockUnreadRepository Mock UnreadRepository
type MockUnreadRepository struct {
	mock.Mock
}

// Increment mock counter increment
func (m *MockUnreadRepository) Increment(ctx context.Context, recipientID, senderID string) error {
	args := m.Called(ctx, recipientID, senderID)
	return args.Error(0)
}

// Clear mock counter clear
func (m *MockUnreadRepository) Clear(ctx context.Context, recipientID, senderID string) error {
	args := m.Called(ctx, recipientID, senderID)
	return args.Error(0)
}

// Counters mock counter read
func (m *MockUnreadRepository) Counters(ctx context.Context, recipientID string) (map[string]int64, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) != nil {
		return args.Get(0).(map[string]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPubSub Mock MessagePubSub
type MockPubSub struct {
	mock.Mock

	mu       sync.Mutex
	handlers map[string]func(domain.ChatMessage)
}

// Publish mock publisher; also fans out to registered Subscribe handlers
// so tests can drive the live-update path.
func (m *MockPubSub) Publish(channel string, msg domain.ChatMessage) error {
	args := m.Called(channel, msg)

	m.mu.Lock()
	handler := m.handlers[channel]
	m.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
	return args.Error(0)
}

// Subscribe mock subscriber
func (m *MockPubSub) Subscribe(ctx context.Context, channel string, handler func(msg domain.ChatMessage)) error {
	args := m.Called(ctx, channel)

	m.mu.Lock()
	if m.handlers == nil {
		m.handlers = make(map[string]func(domain.ChatMessage))
	}
	m.handlers[channel] = handler
	m.mu.Unlock()
	return args.Error(0)
}

// memoryGroupRepo is an in-memory GroupRepository for multi-step
// scenarios (code uniqueness, join until full, empty-group deletion)
// where wiring mock expectations call by call would obscure the test.
type memoryGroupRepo struct {
	mu     sync.Mutex
	groups map[string]*domain.Group
}

func newMemoryGroupRepo() *memoryGroupRepo {
	return &memoryGroupRepo{groups: make(map[string]*domain.Group)}
}

func (r *memoryGroupRepo) Create(_ context.Context, group *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *group
	r.groups[group.ID] = &cp
	return nil
}

func (r *memoryGroupRepo) FindByID(_ context.Context, groupID string) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[groupID]
	if !ok {
		return nil, nil
	}
	cp := *group
	return &cp, nil
}

func (r *memoryGroupRepo) FindByCode(_ context.Context, code string) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, group := range r.groups {
		if group.Code == code {
			cp := *group
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryGroupRepo) AddMember(_ context.Context, groupID, userID string, now int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[groupID]
	if !ok || group.HasMember(userID) || group.IsFull() {
		return false, nil
	}
	group.Members = append(group.Members, userID)
	group.LastActivity = now
	return true, nil
}

func (r *memoryGroupRepo) RemoveMember(_ context.Context, groupID, userID string) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[groupID]
	if !ok {
		return nil, nil
	}
	group.Members = remove(group.Members, userID)
	group.Admins = remove(group.Admins, userID)
	cp := *group
	return &cp, nil
}

func (r *memoryGroupRepo) Delete(_ context.Context, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, groupID)
	return nil
}

func (r *memoryGroupRepo) UpdateFields(_ context.Context, groupID string, fields bson.M, now int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[groupID]
	if !ok {
		return nil
	}
	if v, ok := fields["name"].(string); ok {
		group.Name = v
	}
	if v, ok := fields["description"].(string); ok {
		group.Description = v
	}
	if v, ok := fields["avatar"].(string); ok {
		group.Avatar = v
	}
	if v, ok := fields["max_members"].(int); ok {
		group.MaxMembers = v
	}
	if v, ok := fields["is_private"].(bool); ok {
		group.IsPrivate = v
	}
	group.LastActivity = now
	return nil
}

func (r *memoryGroupRepo) IncrementMessageCount(_ context.Context, groupID string, now int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if group, ok := r.groups[groupID]; ok {
		group.MessageCount++
		group.LastActivity = now
	}
	return nil
}

func remove(list []string, val string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != val {
			out = append(out, v)
		}
	}
	return out
}
