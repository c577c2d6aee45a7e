package model

import "time"

// Band is the tenancy boundary: every song, track, revision and mix session
// is reachable from exactly one band, and membership gates all access.
type Band struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BandMember links a user to a band with a single role label.
type BandMember struct {
	BandID   int64     `json:"bandId"`
	UserID   int64     `json:"userId"`
	Role     string    `json:"role"` // "admin" or "member"
	JoinedAt time.Time `json:"joinedAt"`
}

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)
