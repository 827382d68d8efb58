package repository

import (
	"context"
	"errors"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository persists ordered chat messages per conversation id.
// Ordering is owned by the store: CreatedAt is assigned alongside a
// per-chat Seq that grows monotonically, so equal timestamps still order
// deterministically.
type MessageRepository interface {
	// NextSeq reserves the next sequence number for a chat.
	NextSeq(ctx context.Context, chatID string) (int64, error)
	Insert(ctx context.Context, msg *domain.ChatMessage) error
	// FindRecent returns at most limit newest messages, ascending.
	FindRecent(ctx context.Context, chatID string, limit int64) ([]domain.ChatMessage, error)
	// FindBefore returns at most limit messages older than the cursor, ascending.
	FindBefore(ctx context.Context, chatID string, before domain.Cursor, limit int64) ([]domain.ChatMessage, error)
	// MarkRead flags every unread message addressed to recipientID in one
	// batched update and reports how many were flagged.
	MarkRead(ctx context.Context, chatID, recipientID string, readAt int64) (int64, error)
}

type chatMessageRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

// NewMongoChatMessageRepository create a MessageRepository over MongoDB
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll:     db.Collection(domain.MessagesCollection),
		counters: db.Collection(domain.CountersCollection),
	}
}

// NextSeq atomically bumps the per-chat counter document ($inc with
// upsert), never a read-then-write on the client.
func (r *chatMessageRepository) NextSeq(ctx context.Context, chatID string) (int64, error) {
	filter := bson.M{"_id": chatID}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	if err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (r *chatMessageRepository) Insert(ctx context.Context, msg *domain.ChatMessage) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *chatMessageRepository) FindRecent(ctx context.Context, chatID string, limit int64) ([]domain.ChatMessage, error) {
	filter := bson.M{"chat_id": chatID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}).
		SetLimit(limit)

	return r.findAscending(ctx, filter, opts)
}

func (r *chatMessageRepository) FindBefore(ctx context.Context, chatID string, before domain.Cursor, limit int64) ([]domain.ChatMessage, error) {
	filter := bson.M{
		"chat_id": chatID,
		"$or": []bson.M{
			{"created_at": bson.M{"$lt": before.CreatedAt}},
			{"created_at": before.CreatedAt, "seq": bson.M{"$lt": before.Seq}},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}).
		SetLimit(limit)

	return r.findAscending(ctx, filter, opts)
}

// findAscending runs a newest-first query and flips the page so callers
// always see (created_at, seq) ascending.
func (r *chatMessageRepository) findAscending(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.ChatMessage, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var page []domain.ChatMessage
	if err := cur.All(ctx, &page); err != nil {
		return nil, err
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

func (r *chatMessageRepository) MarkRead(ctx context.Context, chatID, recipientID string, readAt int64) (int64, error) {
	filter := bson.M{
		"chat_id":     chatID,
		"receiver_id": recipientID,
		"read":        false,
	}
	update := bson.M{"$set": bson.M{
		"read":      true,
		"read_at":   readAt,
		"delivered": true,
	}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// IsNotFound reports whether err is the driver's no-document result.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
