package model

import "time"

// SongNote is a free-form note logged against a song.
type SongNote struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SongID    int64     `gorm:"index;not null" json:"songId"`
	AuthorID  int64     `gorm:"not null" json:"authorId"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName matches the snake_case table names used by the raw-SQL schema.
func (SongNote) TableName() string { return "song_notes" }

// SongDecision records an agreed outcome for a song ("keep take 3 for the
// bridge"). Decisions are append-only.
type SongDecision struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SongID    int64     `gorm:"index;not null" json:"songId"`
	AuthorID  int64     `gorm:"not null" json:"authorId"`
	Topic     string    `gorm:"size:255;not null" json:"topic"`
	Outcome   string    `gorm:"type:text;not null" json:"outcome"`
	CreatedAt time.Time `json:"createdAt"`
}

func (SongDecision) TableName() string { return "song_decisions" }
