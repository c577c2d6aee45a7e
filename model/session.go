package model

import "time"

// Snapshot bases for createMixSession.
const (
	SessionBaseActive = "active"
	SessionBaseLatest = "latest"
)

// MixSession is a named snapshot of per-track playback settings for a song.
// Membership (the set of track rows) is fixed at creation; the rows
// themselves are replaced wholesale by updates afterward.
type MixSession struct {
	ID        int64     `json:"id"`
	SongID    int64     `json:"songId"`
	Name      string    `json:"name"`
	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// MixSessionTrack is one (session, track) row. TrackRevisionID pins the
// revision this session plays for the track, independent of the track's
// current active revision; nil means the track had nothing to play when
// the snapshot was taken.
type MixSessionTrack struct {
	SessionID       int64   `json:"sessionId"`
	TrackID         int64   `json:"trackId"`
	TrackRevisionID *int64  `json:"trackRevisionId"`
	Mute            bool    `json:"mute"`
	GainDB          float64 `json:"gainDb"`
	Pan             float64 `json:"pan"`
	StartOffsetMs   int     `json:"startOffsetMs"`
}
