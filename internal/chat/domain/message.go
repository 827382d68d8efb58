package domain

// ChatMessage is one message persisted for one conversation. Text holds the
// ciphertext envelope whenever Encrypted is set; sender, receiver and Text
// are immutable once stored, only the read/delivered flags mutate.
type ChatMessage struct {
	ID          string `bson:"_id,omitempty" json:"id"`
	ChatID      string `bson:"chat_id" json:"chat_id"`
	SenderID    string `bson:"sender_id" json:"sender_id"`
	ReceiverID  string `bson:"receiver_id,omitempty" json:"receiver_id,omitempty"`
	SenderName  string `bson:"sender_name,omitempty" json:"sender_name,omitempty"`
	SenderPhoto string `bson:"sender_photo,omitempty" json:"sender_photo,omitempty"`
	Text        string `bson:"text" json:"text"`
	Encrypted   bool   `bson:"encrypted" json:"encrypted"`
	CreatedAt   int64  `bson:"created_at" json:"created_at"`
	Seq         int64  `bson:"seq" json:"seq"`
	Delivered   bool   `bson:"delivered" json:"delivered"`
	Read        bool   `bson:"read" json:"read"`
	ReadAt      int64  `bson:"read_at,omitempty" json:"read_at,omitempty"`
}

// Before reports whether m was persisted strictly before other, using the
// store-assigned (created_at, seq) pair. Seq breaks server-clock ties.
func (m ChatMessage) Before(other ChatMessage) bool {
	if m.CreatedAt != other.CreatedAt {
		return m.CreatedAt < other.CreatedAt
	}
	return m.Seq < other.Seq
}

// Cursor points just past the oldest message a client already holds; used
// for backward pagination.
type Cursor struct {
	CreatedAt int64 `json:"created_at"`
	Seq       int64 `json:"seq"`
}

// CursorOf returns the pagination cursor of a message.
func CursorOf(m ChatMessage) Cursor {
	return Cursor{CreatedAt: m.CreatedAt, Seq: m.Seq}
}

// MessageView is a stored message together with its decrypted text. For an
// undecryptable record DisplayText carries the fixed fallback marker.
type MessageView struct {
	ChatMessage
	DisplayText string `json:"display_text"`
}
