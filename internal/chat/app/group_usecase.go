package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/domain"
	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/repository"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/encrypt"
)

const (
	// codeAlphabet 32 symbols, visually ambiguous 0/O/I/1 excluded
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// codeLength human-enterable join code length
	codeLength = 6
	// codeAttempts rejection sampling bound before giving up
	codeAttempts = 10

	// defaultMaxMembers cap applied when the creator does not pick one
	defaultMaxMembers = 50
)

// CreateGroupInput caller-supplied group attributes.
type CreateGroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Avatar      string `json:"avatar"`
	MaxMembers  int    `json:"max_members"`
	IsPrivate   bool   `json:"is_private"`
}

// GroupUseCase owns the group lifecycle: creation with a unique join code,
// code lookup, admission, leave/removal and admin-gated updates.
type GroupUseCase struct {
	groupRepo repository.GroupRepository
}

// NewGroupUseCase init group use case
func NewGroupUseCase(groupRepo repository.GroupRepository) *GroupUseCase {
	return &GroupUseCase{groupRepo: groupRepo}
}

// CreateGroup validates the input, generates a unique join code and a
// fresh group key, and persists the record with the creator as sole
// member and admin.
func (uc *GroupUseCase) CreateGroup(ctx context.Context, input CreateGroupInput, creatorID string) (*domain.Group, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: group name must not be empty", domain.ErrValidation)
	}
	if creatorID == "" {
		return nil, fmt.Errorf("%w: creator id must not be empty", domain.ErrValidation)
	}

	code, err := uc.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	key, err := encrypt.GenerateGroupKey()
	if err != nil {
		return nil, err
	}

	maxMembers := input.MaxMembers
	if maxMembers <= 0 {
		maxMembers = defaultMaxMembers
	}

	now := time.Now().Unix()
	group := &domain.Group{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Code:          code,
		EncryptionKey: key,
		CreatedBy:     creatorID,
		CreatedAt:     now,
		Members:       []string{creatorID},
		Admins:        []string{creatorID},
		MaxMembers:    maxMembers,
		IsPrivate:     input.IsPrivate,
		Avatar:        input.Avatar,
		LastActivity:  now,
		MessageCount:  0,
	}

	if err := uc.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// uniqueCode draws candidates until one is unused, bounded by
// codeAttempts; a full run of collisions fails the whole create, which is
// safe to retry.
func (uc *GroupUseCase) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		existing, err := uc.groupRepo.FindByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", domain.ErrCodeExhausted
}

// randomCode draws codeLength symbols from codeAlphabet with crypto/rand.
// 32 symbols divide 256 evenly, so a byte mod 32 stays uniform.
func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// NormalizeCode trims and uppercases a user-entered join code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FindByCode looks a group up by normalized join code. A missing group is
// (nil, nil), distinguished from a query failure.
func (uc *GroupUseCase) FindByCode(ctx context.Context, code string) (*domain.Group, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: join code must not be empty", domain.ErrValidation)
	}
	return uc.groupRepo.FindByCode(ctx, code)
}

// JoinByCode admits userID into the group carrying the code. The
// capacity/duplicate guard runs inside one atomic repository update, so
// concurrent joins near the limit cannot overshoot it.
func (uc *GroupUseCase) JoinByCode(ctx context.Context, code, userID string) (*domain.Group, error) {
	group, err := uc.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, domain.ErrInvalidCode
	}
	if group.HasMember(userID) {
		return nil, domain.ErrAlreadyMember
	}
	if group.IsFull() {
		return nil, domain.ErrGroupFull
	}

	ok, err := uc.groupRepo.AddMember(ctx, group.ID, userID, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race: somebody joined meanwhile. Re-read to classify.
		current, err := uc.groupRepo.FindByID(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		switch {
		case current == nil:
			return nil, domain.ErrInvalidCode
		case current.HasMember(userID):
			return nil, domain.ErrAlreadyMember
		default:
			return nil, domain.ErrGroupFull
		}
	}

	return uc.groupRepo.FindByID(ctx, group.ID)
}

// Leave removes userID from the group. A removal on behalf of somebody
// else (removedBy set and different) is admin-only. The group record is
// deleted outright when the last member leaves.
func (uc *GroupUseCase) Leave(ctx context.Context, groupID, userID, removedBy string) error {
	group, err := uc.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return domain.ErrGroupNotFound
	}
	if !group.HasMember(userID) {
		return domain.ErrNotMember
	}
	if removedBy != "" && removedBy != userID && !group.HasAdmin(removedBy) {
		return domain.ErrForbidden
	}

	updated, err := uc.groupRepo.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if updated != nil && len(updated.Members) == 0 {
		return uc.groupRepo.Delete(ctx, groupID)
	}
	return nil
}

// updatableFields allow-list of group attributes admins may patch.
var updatableFields = map[string]bool{
	"name":        true,
	"description": true,
	"avatar":      true,
	"max_members": true,
	"is_private":  true,
}

// UpdateGroup applies an allow-listed patch, admin-gated. Unknown fields
// are dropped silently; an empty effective patch still bumps activity.
func (uc *GroupUseCase) UpdateGroup(ctx context.Context, groupID, userID string, patch map[string]interface{}) error {
	group, err := uc.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return domain.ErrGroupNotFound
	}
	if !group.HasAdmin(userID) {
		return domain.ErrForbidden
	}

	fields := bson.M{}
	for k, v := range patch {
		if updatableFields[k] {
			fields[k] = v
		}
	}
	if name, ok := fields["name"].(string); ok && strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: group name must not be empty", domain.ErrValidation)
	}
	if raw, ok := fields["max_members"]; ok {
		maxMembers, ok := intField(raw)
		if !ok || maxMembers < len(group.Members) {
			return fmt.Errorf("%w: max_members must be at least the current member count (%d)", domain.ErrValidation, len(group.Members))
		}
		fields["max_members"] = maxMembers
	}

	return uc.groupRepo.UpdateFields(ctx, groupID, fields, time.Now().Unix())
}

// intField coerces a patch value to int. JSON-decoded numbers arrive as
// float64 in a map patch.
func intField(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
