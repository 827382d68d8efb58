package domain

import "github.com/lucrare-diploma/university-chat-sub000/pkg"

// Group is a group chat record. The creator starts as the only member and
// the only admin; admins stay a subset of members; a group whose last
// member leaves is deleted rather than kept empty.
type Group struct {
	ID            string   `bson:"_id,omitempty" json:"id"`
	Name          string   `bson:"name" json:"name"`
	Description   string   `bson:"description,omitempty" json:"description,omitempty"`
	Code          string   `bson:"code" json:"code"`
	EncryptionKey string   `bson:"encryption_key" json:"encryption_key"`
	CreatedBy     string   `bson:"created_by" json:"created_by"`
	CreatedAt     int64    `bson:"created_at" json:"created_at"`
	Members       []string `bson:"members" json:"members"`
	Admins        []string `bson:"admins" json:"admins"`
	MaxMembers    int      `bson:"max_members" json:"max_members"`
	IsPrivate     bool     `bson:"is_private" json:"is_private"`
	Avatar        string   `bson:"avatar,omitempty" json:"avatar,omitempty"`
	LastActivity  int64    `bson:"last_activity" json:"last_activity"`
	MessageCount  int64    `bson:"message_count" json:"message_count"`
}

// HasMember check user in group members
func (g *Group) HasMember(userID string) bool {
	return pkg.Contains(g.Members, userID)
}

// HasAdmin check user in group admins
func (g *Group) HasAdmin(userID string) bool {
	return pkg.Contains(g.Admins, userID)
}

// IsFull check group at member capacity
func (g *Group) IsFull() bool {
	return len(g.Members) >= g.MaxMembers
}
