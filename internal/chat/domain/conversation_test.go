package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectChatID_Symmetric(t *testing.T) {
	assert.Equal(t, DirectChatID("u1", "u2"), DirectChatID("u2", "u1"))
	assert.Equal(t, "u1_u2", DirectChatID("u2", "u1"))
}

func TestDirectChatID_Self(t *testing.T) {
	assert.Equal(t, "self_u1", DirectChatID("u1", "u1"))
}

func TestParseDirectChatID(t *testing.T) {
	tests := []struct {
		chatID string
		wantA  string
		wantB  string
	}{
		{chatID: "u1_u2", wantA: "u1", wantB: "u2"},
		{chatID: "self_u1", wantA: "u1", wantB: "u1"},
	}
	for _, tt := range tests {
		a, b, err := ParseDirectChatID(tt.chatID)
		require.NoError(t, err)
		assert.Equal(t, tt.wantA, a)
		assert.Equal(t, tt.wantB, b)
	}
}

func TestParseDirectChatID_Malformed(t *testing.T) {
	for _, chatID := range []string{"", "self_", "u1", "_u2", "u1_"} {
		_, _, err := ParseDirectChatID(chatID)
		assert.ErrorIs(t, err, ErrBadChatID, chatID)
	}
}

func TestParseDirectChatID_RoundTrip(t *testing.T) {
	id := DirectChatID("aaa", "zzz")
	a, b, err := ParseDirectChatID(id)
	require.NoError(t, err)
	assert.Equal(t, id, DirectChatID(a, b))
}

func TestNewDirectConversation(t *testing.T) {
	conv := NewDirectConversation("u2", "u1")
	assert.Equal(t, "u1_u2", conv.ID)
	assert.Equal(t, ConversationDirect, conv.Type)
}

func TestNewGroupConversation(t *testing.T) {
	conv := NewGroupConversation("g-42")
	assert.Equal(t, "g-42", conv.ID)
	assert.Equal(t, "g-42", conv.GroupID)
	assert.Equal(t, ConversationGroup, conv.Type)
}

func TestChatMessageBefore_TieBreak(t *testing.T) {
	a := ChatMessage{CreatedAt: 100, Seq: 1}
	b := ChatMessage{CreatedAt: 100, Seq: 2}
	c := ChatMessage{CreatedAt: 101, Seq: 1}

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, b.Before(c))
}
