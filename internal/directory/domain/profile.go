package domain

import (
	"time"
)

// ProfileStatus presence state of a user
type ProfileStatus int

const (
	// ProfileStatusOffline user has no live connection
	ProfileStatusOffline ProfileStatus = iota
	// ProfileStatusOnline user holds at least one live connection
	ProfileStatusOnline
	// ProfileStatusSuspended user blocked by an administrator
	ProfileStatusSuspended
)

// Profile is the directory record of one user. Identity comes from the
// external auth provider; the directory only mirrors the attributes
// other users are allowed to see.
type Profile struct {
	ID          int64         `json:"-"`
	UID         string        `json:"uid"`
	Email       string        `json:"email"`
	DisplayName string        `json:"display_name"`
	PhotoURL    string        `json:"photo_url,omitempty"`
	Status      ProfileStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	LastSeen    time.Time     `json:"last_seen"`
}

// Presence one live connection lease, held in redis under a TTL.
type Presence struct {
	UID          string    `json:"uid"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
}

// ProfileQuery join conditions used to look profiles up
type ProfileQuery struct {
	ID    *int64
	UID   *string
	Email *string
}
