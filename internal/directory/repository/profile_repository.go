package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/lucrare-diploma/university-chat-sub000/internal/directory/domain"
)

// ProfileRepository definition directory profile storage
type ProfileRepository interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, profile *domain.Profile) error
	UpdateStatus(ctx context.Context, uid string, status domain.ProfileStatus, lastSeen time.Time) error
	FindBy(ctx context.Context, query *domain.ProfileQuery) (*domain.Profile, error)
	Search(ctx context.Context, keyword string, limit int) ([]domain.Profile, error)
}

type profileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository create a ProfileRepository
func NewProfileRepository(db *pgxpool.Pool) ProfileRepository {
	return &profileRepository{db: db}
}

// EnsureSchema creates the profiles table when it does not exist yet.
func (r *profileRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS profiles (
        id BIGSERIAL PRIMARY KEY,
        uid TEXT NOT NULL UNIQUE,
        email TEXT NOT NULL,
        display_name TEXT NOT NULL,
        photo_url TEXT NOT NULL DEFAULT '',
        status INT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        last_seen TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `)
	return err
}

// Upsert inserts the profile on first contact and refreshes the mutable
// attributes afterwards, keyed by the provider uid.
func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	_, err := r.db.Exec(ctx, `
      INSERT INTO profiles(uid, email, display_name, photo_url, status, created_at, last_seen)
      VALUES ($1, $2, $3, $4, $5, $6, $6)
      ON CONFLICT (uid) DO UPDATE
      SET email = EXCLUDED.email,
          display_name = EXCLUDED.display_name,
          photo_url = EXCLUDED.photo_url,
          last_seen = EXCLUDED.last_seen
    `, profile.UID, profile.Email, profile.DisplayName, profile.PhotoURL, profile.Status, time.Now())
	return err
}

func (r *profileRepository) UpdateStatus(ctx context.Context, uid string, status domain.ProfileStatus, lastSeen time.Time) error {
	_, err := r.db.Exec(ctx, "UPDATE profiles SET status = $1, last_seen = $2 WHERE uid = $3", status, lastSeen, uid)
	return err
}

// FindBy looks one profile up. A missing profile is (nil, nil).
func (r *profileRepository) FindBy(ctx context.Context, query *domain.ProfileQuery) (*domain.Profile, error) {
	queryStr := "SELECT id, uid, email, display_name, photo_url, status, created_at, last_seen FROM profiles WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if query.Email != nil {
		queryStr += fmt.Sprintf(" AND email = $%d", paramCount)
		params = append(params, *query.Email)
		paramCount++
	}
	if query.UID != nil {
		queryStr += fmt.Sprintf(" AND uid = $%d", paramCount)
		params = append(params, *query.UID)
		paramCount++
	}
	if query.ID != nil {
		queryStr += fmt.Sprintf(" AND id = $%d", paramCount)
		params = append(params, *query.ID)
		paramCount++
	}

	row := r.db.QueryRow(ctx, queryStr, params...)
	var profile domain.Profile
	err := row.Scan(&profile.ID, &profile.UID, &profile.Email, &profile.DisplayName,
		&profile.PhotoURL, &profile.Status, &profile.CreatedAt, &profile.LastSeen)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &profile, nil
}

// Search matches display name or email case-insensitively, suspended
// profiles excluded.
func (r *profileRepository) Search(ctx context.Context, keyword string, limit int) ([]domain.Profile, error) {
	like := "%" + keyword + "%"
	rows, err := r.db.Query(ctx, `
      SELECT id, uid, email, display_name, photo_url, status, created_at, last_seen
      FROM profiles
      WHERE (display_name ILIKE $1 OR email ILIKE $1) AND status != $2
      ORDER BY display_name
      LIMIT $3
    `, like, domain.ProfileStatusSuspended, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var profile domain.Profile
		if err := rows.Scan(&profile.ID, &profile.UID, &profile.Email, &profile.DisplayName,
			&profile.PhotoURL, &profile.Status, &profile.CreatedAt, &profile.LastSeen); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}
