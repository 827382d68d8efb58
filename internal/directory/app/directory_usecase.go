package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lucrare-diploma/university-chat-sub000/internal/directory/domain"
	"github.com/lucrare-diploma/university-chat-sub000/internal/directory/repository"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/database"
)

// presenceKey redis key of one user's presence lease
func presenceKey(uid string) string {
	return "directory:presence:" + uid
}

// defaultSearchLimit directory search page cap
const defaultSearchLimit = 20

// DirectoryUseCase application service of the user directory
type DirectoryUseCase interface {
	EnsureProfile(ctx context.Context, uid, email, displayName, photoURL string) (*domain.Profile, error)
	Find(ctx context.Context, query *domain.ProfileQuery) (*domain.Profile, error)
	Search(ctx context.Context, keyword string, limit int) ([]domain.Profile, error)
	Heartbeat(ctx context.Context, uid string) error
	Disconnect(ctx context.Context, uid string) error
	IsOnline(ctx context.Context, uid string) (bool, error)
}

type directoryUseCase struct {
	profileRepo repository.ProfileRepository
	presenceTTL time.Duration
	redisRepo   database.RedisRepository[domain.Presence]
}

// NewDirectoryUseCase create a DirectoryUseCase
func NewDirectoryUseCase(profileRepo repository.ProfileRepository,
	presenceTTL time.Duration,
	redisRepo database.RedisRepository[domain.Presence],
) DirectoryUseCase {
	return &directoryUseCase{
		profileRepo: profileRepo,
		presenceTTL: presenceTTL,
		redisRepo:   redisRepo,
	}
}

// EnsureProfile mirrors the authenticated identity into the directory.
// The auth provider owns the identity; this only records or refreshes
// the attributes other users see. Called on every authenticated connect,
// so it must stay idempotent.
func (d *directoryUseCase) EnsureProfile(ctx context.Context, uid, email, displayName, photoURL string) (*domain.Profile, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, fmt.Errorf("%w: uid must not be empty", domain.ErrValidation)
	}
	if displayName == "" {
		displayName = email
	}

	profile := &domain.Profile{
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		PhotoURL:    photoURL,
		Status:      domain.ProfileStatusOffline,
	}
	if err := d.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	return d.profileRepo.FindBy(ctx, &domain.ProfileQuery{UID: &uid})
}

// Find looks a profile up by any of the query fields.
func (d *directoryUseCase) Find(ctx context.Context, query *domain.ProfileQuery) (*domain.Profile, error) {
	profile, err := d.profileRepo.FindBy(ctx, query)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	return profile, nil
}

// Search finds profiles whose name or email contains the keyword.
func (d *directoryUseCase) Search(ctx context.Context, keyword string, limit int) ([]domain.Profile, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: search keyword must not be empty", domain.ErrValidation)
	}
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}
	return d.profileRepo.Search(ctx, keyword, limit)
}

// Heartbeat refreshes the caller's presence lease and flags the profile
// online. A missed heartbeat simply lets the lease expire.
func (d *directoryUseCase) Heartbeat(ctx context.Context, uid string) error {
	now := time.Now()
	key := presenceKey(uid)

	if _, err := d.redisRepo.Get(ctx, key); err == nil {
		// Live lease: push the expiry out and keep the stored record,
		// so the original connect time survives.
		if err := d.redisRepo.ExtendTTL(ctx, key, d.presenceTTL); err != nil {
			return err
		}
		return d.profileRepo.UpdateStatus(ctx, uid, domain.ProfileStatusOnline, now)
	}

	presence := domain.Presence{
		UID:          uid,
		ConnectedAt:  now,
		LastActivity: now,
	}
	if err := d.redisRepo.Set(ctx, key, presence, d.presenceTTL); err != nil {
		return err
	}
	return d.profileRepo.UpdateStatus(ctx, uid, domain.ProfileStatusOnline, now)
}

// Disconnect drops the presence lease immediately instead of waiting for
// the TTL.
func (d *directoryUseCase) Disconnect(ctx context.Context, uid string) error {
	if err := d.redisRepo.Del(ctx, presenceKey(uid)); err != nil {
		return err
	}
	return d.profileRepo.UpdateStatus(ctx, uid, domain.ProfileStatusOffline, time.Now())
}

// IsOnline reports whether the user holds a live presence lease.
func (d *directoryUseCase) IsOnline(ctx context.Context, uid string) (bool, error) {
	ttl, err := d.redisRepo.GetTTL(ctx, presenceKey(uid))
	if err != nil {
		return false, err
	}
	return ttl > 0, nil
}
