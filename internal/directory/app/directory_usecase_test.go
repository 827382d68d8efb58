package app

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lucrare-diploma/university-chat-sub000/internal/directory/domain"
)

// MockProfileRepository Mock ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

// Upsert mock profile upsert
func (m *MockProfileRepository) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

// UpdateStatus mock presence status update
func (m *MockProfileRepository) UpdateStatus(ctx context.Context, uid string, status domain.ProfileStatus, lastSeen time.Time) error {
	args := m.Called(ctx, uid, status, lastSeen)
	return args.Error(0)
}

// FindBy mock profile lookup
func (m *MockProfileRepository) FindBy(ctx context.Context, query *domain.ProfileQuery) (*domain.Profile, error) {
	args := m.Called(ctx, query)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

// Search mock profile search
func (m *MockProfileRepository) Search(ctx context.Context, keyword string, limit int) ([]domain.Profile, error) {
	args := m.Called(ctx, keyword, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPresenceRepo Mock RedisRepository[domain.Presence]
type MockPresenceRepo struct {
	mock.Mock
}

// Set mock presence set
func (m *MockPresenceRepo) Set(ctx context.Context, key string, value domain.Presence, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Get mock presence get
func (m *MockPresenceRepo) Get(ctx context.Context, key string) (domain.Presence, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.Presence), args.Error(1)
}

// Del mock presence delete
func (m *MockPresenceRepo) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// GetTTL mock presence TTL
func (m *MockPresenceRepo) GetTTL(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

// ExtendTTL mock presence TTL extend
func (m *MockPresenceRepo) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

func TestEnsureProfile(t *testing.T) {
	ctx := context.Background()
	profileRepo := new(MockProfileRepository)
	presenceRepo := new(MockPresenceRepo)

	uid := "u1"
	stored := &domain.Profile{ID: 1, UID: uid, Email: "ana@stud.ubbcluj.ro", DisplayName: "Ana"}
	profileRepo.On("Upsert", ctx, mock.Anything).Return(nil)
	profileRepo.On("FindBy", ctx, &domain.ProfileQuery{UID: &uid}).Return(stored, nil)

	uc := NewDirectoryUseCase(profileRepo, time.Minute, presenceRepo)
	profile, err := uc.EnsureProfile(ctx, uid, "ana@stud.ubbcluj.ro", "Ana", "")
	require.NoError(t, err)
	assert.Equal(t, stored, profile)
	profileRepo.AssertExpectations(t)
}

func TestEnsureProfile_FallsBackToEmail(t *testing.T) {
	ctx := context.Background()
	profileRepo := new(MockProfileRepository)

	uid := "u1"
	profileRepo.On("Upsert", ctx, mock.MatchedBy(func(p *domain.Profile) bool {
		return p.DisplayName == "ana@stud.ubbcluj.ro"
	})).Return(nil)
	profileRepo.On("FindBy", ctx, mock.Anything).Return(&domain.Profile{UID: uid}, nil)

	uc := NewDirectoryUseCase(profileRepo, time.Minute, new(MockPresenceRepo))
	_, err := uc.EnsureProfile(ctx, uid, "ana@stud.ubbcluj.ro", "", "")
	require.NoError(t, err)
	profileRepo.AssertExpectations(t)
}

func TestEnsureProfile_EmptyUID(t *testing.T) {
	uc := NewDirectoryUseCase(new(MockProfileRepository), time.Minute, new(MockPresenceRepo))
	_, err := uc.EnsureProfile(context.Background(), "  ", "a@b", "A", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFind_NotFound(t *testing.T) {
	ctx := context.Background()
	profileRepo := new(MockProfileRepository)
	uid := "missing"
	profileRepo.On("FindBy", ctx, &domain.ProfileQuery{UID: &uid}).Return(nil, nil)

	uc := NewDirectoryUseCase(profileRepo, time.Minute, new(MockPresenceRepo))
	_, err := uc.Find(ctx, &domain.ProfileQuery{UID: &uid})
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	profileRepo := new(MockProfileRepository)
	results := []domain.Profile{{UID: "u1", DisplayName: "Ana"}}
	profileRepo.On("Search", ctx, "ana", defaultSearchLimit).Return(results, nil)

	uc := NewDirectoryUseCase(profileRepo, time.Minute, new(MockPresenceRepo))
	profiles, err := uc.Search(ctx, " ana ", 0)
	require.NoError(t, err)
	assert.Equal(t, results, profiles)

	_, err = uc.Search(ctx, "   ", 10)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestHeartbeat(t *testing.T) {
	ctx := context.Background()
	profileRepo := new(MockProfileRepository)
	presenceRepo := new(MockPresenceRepo)

	connectedAt := time.Now().Add(-time.Hour)
	presenceRepo.On("Get", ctx, presenceKey("u1")).Return(domain.Presence{UID: "u1", ConnectedAt: connectedAt}, nil)
	// A live lease is only extended; the stored record, and with it the
	// original connect time, stays untouched.
	presenceRepo.On("ExtendTTL", ctx, presenceKey("u1"), time.Minute).Return(nil)
	profileRepo.On("UpdateStatus", ctx, "u1", domain.ProfileStatusOnline, mock.Anything).Return(nil)

	uc := NewDirectoryUseCase(profileRepo, time.Minute, presenceRepo)
	require.NoError(t, uc.Heartbeat(ctx, "u1"))
	presenceRepo.AssertNotCalled(t, "Set", ctx, presenceKey("u1"), mock.Anything, mock.Anything)
	presenceRepo.AssertExpectations(t)
	profileRepo.AssertExpectations(t)
}

func TestHeartbeat_FirstLease(t *testing.T) {
	ctx := context.Background()
	profileRepo := new(MockProfileRepository)
	presenceRepo := new(MockPresenceRepo)

	presenceRepo.On("Get", ctx, presenceKey("u1")).Return(domain.Presence{}, redis.Nil)
	presenceRepo.On("Set", ctx, presenceKey("u1"), mock.Anything, time.Minute).Return(nil)
	profileRepo.On("UpdateStatus", ctx, "u1", domain.ProfileStatusOnline, mock.Anything).Return(nil)

	uc := NewDirectoryUseCase(profileRepo, time.Minute, presenceRepo)
	require.NoError(t, uc.Heartbeat(ctx, "u1"))
}

func TestDisconnectAndIsOnline(t *testing.T) {
	ctx := context.Background()
	profileRepo := new(MockProfileRepository)
	presenceRepo := new(MockPresenceRepo)

	presenceRepo.On("Del", ctx, presenceKey("u1")).Return(nil)
	profileRepo.On("UpdateStatus", ctx, "u1", domain.ProfileStatusOffline, mock.Anything).Return(nil)
	presenceRepo.On("GetTTL", ctx, presenceKey("u1")).Return(0, nil)
	presenceRepo.On("GetTTL", ctx, presenceKey("u2")).Return(42, nil)

	uc := NewDirectoryUseCase(profileRepo, time.Minute, presenceRepo)
	require.NoError(t, uc.Disconnect(ctx, "u1"))

	online, err := uc.IsOnline(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, online)

	online, err = uc.IsOnline(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, online)
}
