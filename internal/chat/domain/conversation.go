package domain

import (
	"errors"
	"strings"
)

// ConversationType direct (1:1 or self) vs group channel
type ConversationType string

const (
	// ConversationDirect 1:1 chat, including notes-to-self
	ConversationDirect ConversationType = "direct"
	// ConversationGroup group chat keyed by the group record
	ConversationGroup ConversationType = "group"
)

// selfPrefix marks the single-participant form of a direct chat id.
const selfPrefix = "self_"

// ErrBadChatID direct chat id does not parse
var ErrBadChatID = errors.New("malformed direct chat id")

// Conversation is one messaging channel identified by a canonical id.
type Conversation struct {
	ID      string           `json:"id"`
	Type    ConversationType `json:"type"`
	GroupID string           `json:"group_id,omitempty"`
}

// NewDirectConversation builds the direct conversation between selfID and
// otherID. Pass the same uid twice for a self chat.
func NewDirectConversation(selfID, otherID string) Conversation {
	return Conversation{
		ID:   DirectChatID(selfID, otherID),
		Type: ConversationDirect,
	}
}

// NewGroupConversation builds the conversation backed by a group record.
// The conversation id is the group id itself.
func NewGroupConversation(groupID string) Conversation {
	return Conversation{
		ID:      groupID,
		Type:    ConversationGroup,
		GroupID: groupID,
	}
}

// DirectChatID computes the canonical id of a 1:1 chat. The two uids are
// joined in sorted order so both participants compute the same id; a chat
// with oneself gets the distinguished "self_<uid>" form.
func DirectChatID(selfID, otherID string) string {
	if selfID == otherID {
		return selfPrefix + selfID
	}
	if selfID < otherID {
		return selfID + "_" + otherID
	}
	return otherID + "_" + selfID
}

// ParseDirectChatID recovers the two participant uids from a direct chat
// id. For the self form both returned uids are equal.
func ParseDirectChatID(chatID string) (string, string, error) {
	if rest, ok := strings.CutPrefix(chatID, selfPrefix); ok {
		if rest == "" {
			return "", "", ErrBadChatID
		}
		return rest, rest, nil
	}
	a, b, ok := strings.Cut(chatID, "_")
	if !ok || a == "" || b == "" {
		return "", "", ErrBadChatID
	}
	return a, b, nil
}

// Identity is the slice of the auth provider's user the core cares about.
// Only UID ever feeds key derivation and chat ids.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}
