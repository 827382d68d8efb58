package app

import (
	"context"
	"sync"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/domain"
	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/repository"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/encrypt"
)

// KeyResolver maps a conversation to its symmetric key. Direct chat keys
// are pure functions of the participant uids and recomputed on demand;
// group keys are read from the group record and cached for the session,
// clients never mutate them.
type KeyResolver struct {
	groupRepo repository.GroupRepository

	mu        sync.RWMutex
	groupKeys map[string]string
}

// NewKeyResolver create KeyResolver
func NewKeyResolver(groupRepo repository.GroupRepository) *KeyResolver {
	return &KeyResolver{
		groupRepo: groupRepo,
		groupKeys: make(map[string]string),
	}
}

// Resolve returns the hex key for the conversation. A group conversation
// whose record is gone fails with ErrGroupNotFound.
func (r *KeyResolver) Resolve(ctx context.Context, conv domain.Conversation) (string, error) {
	switch conv.Type {
	case domain.ConversationGroup:
		return r.groupKey(ctx, conv.GroupID)
	default:
		a, b, err := domain.ParseDirectChatID(conv.ID)
		if err != nil {
			return "", err
		}
		return encrypt.DeriveDirectKey(a, b)
	}
}

func (r *KeyResolver) groupKey(ctx context.Context, groupID string) (string, error) {
	r.mu.RLock()
	key, ok := r.groupKeys[groupID]
	r.mu.RUnlock()
	if ok {
		return key, nil
	}

	group, err := r.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return "", err
	}
	if group == nil {
		return "", domain.ErrGroupNotFound
	}

	r.mu.Lock()
	r.groupKeys[groupID] = group.EncryptionKey
	r.mu.Unlock()
	return group.EncryptionKey, nil
}

// Forget drops a cached group key, e.g. after leaving the group.
func (r *KeyResolver) Forget(groupID string) {
	r.mu.Lock()
	delete(r.groupKeys, groupID)
	r.mu.Unlock()
}
