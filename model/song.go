package model

import "time"

// Song belongs to a band and owns tracks, mix sessions, notes and decisions.
type Song struct {
	ID          int64     `json:"id"`
	BandID      int64     `json:"bandId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
