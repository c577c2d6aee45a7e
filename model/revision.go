package model

import "time"

// Revision is one versioned take of a track. RevisionNumber is assigned by
// the per-track allocator at creation and never reassigned; rows are
// immutable once written.
type Revision struct {
	ID             int64     `json:"id"`
	TrackID        int64     `json:"trackId"`
	RevisionNumber int64     `json:"revisionNumber"`
	Title          string    `json:"title,omitempty"`
	Memo           string    `json:"memo,omitempty"`
	IdempotencyKey string    `json:"-"` // unique within the track when set
	CreatedBy      int64     `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
}
