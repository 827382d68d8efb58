package repository

import (
	"context"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GroupRepository persists group records. Membership mutations that race
// (joins near capacity) are single guarded server-side updates, never
// client-side read-then-write.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	FindByID(ctx context.Context, groupID string) (*domain.Group, error)
	// FindByCode returns (nil, nil) when no group carries the code;
	// absence is a valid outcome, not a query failure.
	FindByCode(ctx context.Context, code string) (*domain.Group, error)
	// AddMember admits userID only while the group is below capacity and
	// userID is absent, in one atomic update. Returns false when the
	// guard rejected the update.
	AddMember(ctx context.Context, groupID, userID string, now int64) (bool, error)
	// RemoveMember pulls userID from members and admins and returns the
	// updated record, or nil when the group does not exist.
	RemoveMember(ctx context.Context, groupID, userID string) (*domain.Group, error)
	Delete(ctx context.Context, groupID string) error
	// UpdateFields applies an already-validated field patch.
	UpdateFields(ctx context.Context, groupID string, fields bson.M, now int64) error
	// IncrementMessageCount bumps message_count and last_activity.
	IncrementMessageCount(ctx context.Context, groupID string, now int64) error
}

type groupRepository struct {
	coll *mongo.Collection
}

// NewMongoGroupRepository create a GroupRepository over MongoDB
func NewMongoGroupRepository(db *mongo.Database) GroupRepository {
	return &groupRepository{
		coll: db.Collection(domain.GroupsCollection),
	}
}

func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	_, err := r.coll.InsertOne(ctx, group)
	return err
}

func (r *groupRepository) FindByID(ctx context.Context, groupID string) (*domain.Group, error) {
	var group domain.Group
	err := r.coll.FindOne(ctx, bson.M{"_id": groupID}).Decode(&group)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) FindByCode(ctx context.Context, code string) (*domain.Group, error) {
	var group domain.Group
	err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&group)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// AddMember filter carries the admission guard: the user must not be a
// member yet and the member list must be under max_members. A concurrent
// join that fills the last slot makes this update match nothing.
func (r *groupRepository) AddMember(ctx context.Context, groupID, userID string, now int64) (bool, error) {
	filter := bson.M{
		"_id":     groupID,
		"members": bson.M{"$ne": userID},
		"$expr":   bson.M{"$lt": bson.A{bson.M{"$size": "$members"}, "$max_members"}},
	}
	update := bson.M{
		"$addToSet": bson.M{"members": userID},
		"$set":      bson.M{"last_activity": now},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID string) (*domain.Group, error) {
	filter := bson.M{"_id": groupID}
	update := bson.M{"$pull": bson.M{
		"members": userID,
		"admins":  userID,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var group domain.Group
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&group)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) Delete(ctx context.Context, groupID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": groupID})
	return err
}

func (r *groupRepository) UpdateFields(ctx context.Context, groupID string, fields bson.M, now int64) error {
	set := bson.M{"last_activity": now}
	for k, v := range fields {
		set[k] = v
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": groupID}, bson.M{"$set": set})
	return err
}

func (r *groupRepository) IncrementMessageCount(ctx context.Context, groupID string, now int64) error {
	update := bson.M{
		"$inc": bson.M{"message_count": int64(1)},
		"$set": bson.M{"last_activity": now},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": groupID}, update)
	return err
}
