package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/domain"
)

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	group, err := uc.CreateGroup(ctx, CreateGroupInput{Name: "Grupa 123"}, "u1")
	require.NoError(t, err)

	assert.NotEmpty(t, group.ID)
	assert.Equal(t, "Grupa 123", group.Name)
	assert.Equal(t, "u1", group.CreatedBy)
	assert.Equal(t, []string{"u1"}, group.Members)
	assert.Equal(t, []string{"u1"}, group.Admins)
	assert.Equal(t, defaultMaxMembers, group.MaxMembers)
	assert.Equal(t, int64(0), group.MessageCount)
	assert.NotEmpty(t, group.EncryptionKey)

	// Join code: 6 symbols, none visually ambiguous.
	assert.Len(t, group.Code, codeLength)
	for _, c := range group.Code {
		assert.Contains(t, codeAlphabet, string(c))
	}
	assert.NotContains(t, group.Code, "0")
	assert.NotContains(t, group.Code, "O")
	assert.NotContains(t, group.Code, "I")
	assert.NotContains(t, group.Code, "1")
}

func TestCreateGroup_EmptyName(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	for _, name := range []string{"", "   "} {
		_, err := uc.CreateGroup(ctx, CreateGroupInput{Name: name}, "u1")
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestCreateGroup_UniqueCodes(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	codes := make(map[string]bool)
	for i := 0; i < 50; i++ {
		group, err := uc.CreateGroup(ctx, CreateGroupInput{Name: fmt.Sprintf("Grupa %d", i)}, "u1")
		require.NoError(t, err)
		assert.False(t, codes[group.Code], "duplicate code %s", group.Code)
		codes[group.Code] = true
	}
}

func TestCreateGroup_CodeExhausted(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockGroupRepository)

	// Every candidate collides.
	taken := &domain.Group{ID: "g1", Name: "Taken"}
	mockRepo.On("FindByCode", ctx, mock.Anything).Return(taken, nil).Times(codeAttempts)

	uc := NewGroupUseCase(mockRepo)
	_, err := uc.CreateGroup(ctx, CreateGroupInput{Name: "Grupa"}, "u1")

	assert.ErrorIs(t, err, domain.ErrCodeExhausted)
	mockRepo.AssertExpectations(t)
}

func TestFindByCode_Normalization(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryGroupRepo()
	uc := NewGroupUseCase(repo)

	group, err := uc.CreateGroup(ctx, CreateGroupInput{Name: "Grupa"}, "u1")
	require.NoError(t, err)

	found, err := uc.FindByCode(ctx, "  "+strings.ToLower(group.Code)+" ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, group.ID, found.ID)
}

func TestFindByCode_Absent(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	found, err := uc.FindByCode(ctx, "ZZZZZZ")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestJoinByCode(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	group, err := uc.CreateGroup(ctx, CreateGroupInput{Name: "Grupa 123"}, "u1")
	require.NoError(t, err)

	joined, err := uc.JoinByCode(ctx, group.Code, "u2")
	require.NoError(t, err)
	assert.Contains(t, joined.Members, "u2")
	assert.NotContains(t, joined.Admins, "u2")

	// Joining twice with the same user fails.
	_, err = uc.JoinByCode(ctx, group.Code, "u2")
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)
}

func TestJoinByCode_InvalidCode(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	_, err := uc.JoinByCode(ctx, "ABCDEF", "u2")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = uc.JoinByCode(ctx, "  ", "u2")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestJoinByCode_GroupFull(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	group, err := uc.CreateGroup(ctx, CreateGroupInput{Name: "Grupa", MaxMembers: 3}, "u1")
	require.NoError(t, err)

	_, err = uc.JoinByCode(ctx, group.Code, "u2")
	require.NoError(t, err)
	_, err = uc.JoinByCode(ctx, group.Code, "u3")
	require.NoError(t, err)

	_, err = uc.JoinByCode(ctx, group.Code, "u4")
	assert.ErrorIs(t, err, domain.ErrGroupFull)

	// Membership never overshoots the cap.
	current, err := uc.FindByCode(ctx, group.Code)
	require.NoError(t, err)
	assert.Len(t, current.Members, 3)
}

func TestJoinByCode_LostAdmissionRace(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockGroupRepository)

	// Lookup sees one free slot, but the guarded update loses the race
	// and the re-read shows the group filled meanwhile.
	before := &domain.Group{ID: "g1", Code: "ABCDEF", Members: []string{"u1"}, MaxMembers: 2}
	after := &domain.Group{ID: "g1", Code: "ABCDEF", Members: []string{"u1", "u3"}, MaxMembers: 2}

	mockRepo.On("FindByCode", ctx, "ABCDEF").Return(before, nil)
	mockRepo.On("AddMember", ctx, "g1", "u2", mock.Anything).Return(false, nil)
	mockRepo.On("FindByID", ctx, "g1").Return(after, nil)

	uc := NewGroupUseCase(mockRepo)
	_, err := uc.JoinByCode(ctx, "ABCDEF", "u2")

	assert.ErrorIs(t, err, domain.ErrGroupFull)
	mockRepo.AssertExpectations(t)
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	group, err := uc.CreateGroup(ctx, CreateGroupInput{Name: "Grupa"}, "u1")
	require.NoError(t, err)
	_, err = uc.JoinByCode(ctx, group.Code, "u2")
	require.NoError(t, err)

	require.NoError(t, uc.Leave(ctx, group.ID, "u2", ""))

	current, err := uc.FindByCode(ctx, group.Code)
	require.NoError(t, err)
	assert.NotContains(t, current.Members, "u2")
}

func TestLeave_Errors(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	group, err := uc.CreateGroup(ctx, CreateGroupInput{Name: "Grupa"}, "u1")
	require.NoError(t, err)

	assert.ErrorIs(t, uc.Leave(ctx, "missing", "u1", ""), domain.ErrGroupNotFound)
	assert.ErrorIs(t, uc.Leave(ctx, group.ID, "u9", ""), domain.ErrNotMember)
}

func TestLeave_RemovalIsAdminGated(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	group, err := uc.CreateGroup(ctx, CreateGroupInput{Name: "Grupa"}, "u1")
	require.NoError(t, err)
	_, err = uc.JoinByCode(ctx, group.Code, "u2")
	require.NoError(t, err)
	_, err = uc.JoinByCode(ctx, group.Code, "u3")
	require.NoError(t, err)

	// A plain member cannot remove somebody else.
	assert.ErrorIs(t, uc.Leave(ctx, group.ID, "u3", "u2"), domain.ErrForbidden)

	// The admin can.
	require.NoError(t, uc.Leave(ctx, group.ID, "u3", "u1"))
	current, err := uc.FindByCode(ctx, group.Code)
	require.NoError(t, err)
	assert.NotContains(t, current.Members, "u3")
}

func TestLeave_LastMemberDeletesGroup(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	group, err := uc.CreateGroup(ctx, CreateGroupInput{Name: "Grupa"}, "u1")
	require.NoError(t, err)

	require.NoError(t, uc.Leave(ctx, group.ID, "u1", ""))

	// The record is gone, its code free again.
	found, err := uc.FindByCode(ctx, group.Code)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestUpdateGroup_AdminGated(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryGroupRepo()
	uc := NewGroupUseCase(repo)

	group, err := uc.CreateGroup(ctx, CreateGroupInput{Name: "Grupa"}, "u1")
	require.NoError(t, err)
	_, err = uc.JoinByCode(ctx, group.Code, "u2")
	require.NoError(t, err)

	err = uc.UpdateGroup(ctx, group.ID, "u2", map[string]interface{}{"name": "Hacked"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// The record is untouched.
	current, err := repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grupa", current.Name)
}

func TestUpdateGroup_AllowList(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockGroupRepository)

	group := &domain.Group{ID: "g1", Name: "Grupa", Members: []string{"u1"}, Admins: []string{"u1"}, MaxMembers: 50}
	mockRepo.On("FindByID", ctx, "g1").Return(group, nil)
	mockRepo.On("UpdateFields", ctx, "g1", bson.M{"name": "Grupa 2", "is_private": true}, mock.Anything).Return(nil)

	uc := NewGroupUseCase(mockRepo)
	err := uc.UpdateGroup(ctx, "g1", "u1", map[string]interface{}{
		"name":       "Grupa 2",
		"is_private": true,
		// Not on the allow-list; must be dropped.
		"code":           "HACKED",
		"encryption_key": "0000",
		"members":        []string{"u1", "intruder"},
	})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestUpdateGroup_MaxMembersFloor(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockGroupRepository)

	group := &domain.Group{ID: "g1", Name: "Grupa", Members: []string{"u1", "u2", "u3"}, Admins: []string{"u1"}, MaxMembers: 50}
	mockRepo.On("FindByID", ctx, "g1").Return(group, nil)

	uc := NewGroupUseCase(mockRepo)

	// Shrinking the cap below the current membership would strand members.
	err := uc.UpdateGroup(ctx, "g1", "u1", map[string]interface{}{"max_members": 2})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = uc.UpdateGroup(ctx, "g1", "u1", map[string]interface{}{"max_members": "zece"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	mockRepo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// Matching the member count exactly is fine, and a JSON-decoded
	// number arrives as float64.
	mockRepo.On("UpdateFields", ctx, "g1", bson.M{"max_members": 3}, mock.Anything).Return(nil).Once()
	require.NoError(t, uc.UpdateGroup(ctx, "g1", "u1", map[string]interface{}{"max_members": 3}))

	mockRepo.On("UpdateFields", ctx, "g1", bson.M{"max_members": 5}, mock.Anything).Return(nil).Once()
	require.NoError(t, uc.UpdateGroup(ctx, "g1", "u1", map[string]interface{}{"max_members": float64(5)}))

	mockRepo.AssertExpectations(t)
}

func TestUpdateGroup_NotFound(t *testing.T) {
	ctx := context.Background()
	uc := NewGroupUseCase(newMemoryGroupRepo())

	err := uc.UpdateGroup(ctx, "missing", "u1", map[string]interface{}{"name": "X"})
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}
