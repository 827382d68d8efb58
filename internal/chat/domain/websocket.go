package domain

// Mongo collection names.
const (
	// MessagesCollection persisted chat messages
	MessagesCollection = "messages"
	// GroupsCollection group records
	GroupsCollection = "groups"
	// CountersCollection per-chat sequence counters
	CountersCollection = "counters"
)

// Action websocket request action
type Action string

const (
	// CreateGroup websocket action create_group
	CreateGroup Action = "create_group"
	// JoinGroup websocket action join_group
	JoinGroup Action = "join_group"
	// LeaveGroup websocket action leave_group
	LeaveGroup Action = "leave_group"
	// UpdateGroup websocket action update_group
	UpdateGroup Action = "update_group"

	// EnterConversation websocket action enter_conversation (subscribe)
	EnterConversation Action = "enter_conversation"
	// LeaveConversation websocket action leave_conversation (unsubscribe)
	LeaveConversation Action = "leave_conversation"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// LoadOlder websocket action load_older
	LoadOlder Action = "load_older"
	// ReadMessages websocket action read_messages
	ReadMessages Action = "read_messages"
	// GetUnread websocket action get_unread
	GetUnread Action = "get_unread"
	// SuggestReplies websocket action suggest_replies
	SuggestReplies Action = "suggest_replies"

	// NotifyMessages websocket action notify_messages (server push)
	NotifyMessages Action = "notify_messages"
)

// WSRequest websocket Request
type WSRequest struct {
	Action      string                 `json:"action"`
	ChatType    string                 `json:"chat_type"`
	OtherID     string                 `json:"other_id"`
	GroupID     string                 `json:"group_id"`
	GroupName   string                 `json:"group_name"`
	Description string                 `json:"description"`
	Avatar      string                 `json:"avatar"`
	MaxMembers  int                    `json:"max_members"`
	IsPrivate   bool                   `json:"is_private"`
	Code        string                 `json:"code"`
	RemoveID    string                 `json:"remove_id"`
	Patch       map[string]interface{} `json:"patch"`
	Content     string                 `json:"content"`
	Limit       int64                  `json:"limit"`
	Before      *Cursor                `json:"before"`
	LastMsgID   string                 `json:"last_msg_id"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
