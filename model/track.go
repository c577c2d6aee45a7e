package model

import "time"

// Track is one recording lane within a song (e.g. "Guitar").
// ActiveRevisionID is a weak back-reference to one of the track's own
// revisions; nil until the first revision is created or setActive is called.
type Track struct {
	ID               int64     `json:"id"`
	SongID           int64     `json:"songId"`
	Name             string    `json:"name"`
	Position         int       `json:"position"`
	ActiveRevisionID *int64    `json:"activeRevisionId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
