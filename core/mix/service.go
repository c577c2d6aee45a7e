// Package mix manages mix sessions: per-song snapshots that pin each
// track to a revision together with its playback parameters.
package mix

import (
	"context"

	"stemroom/core/apperr"
	"stemroom/model"
	"stemroom/repository"
)

// Playback parameter bounds. Out-of-range values are clamped rather than
// rejected so a session save never fails over a fader position.
const (
	GainMinDB = -60.0
	GainMaxDB = 12.0
)

// Service builds and edits mix sessions over the song, track, revision
// and session stores.
type Service struct {
	sessions  repository.SessionRepository
	songs     repository.SongRepository
	tracks    repository.TrackRepository
	revisions repository.RevisionRepository
}

// NewService creates a mix service.
func NewService(
	sessions repository.SessionRepository,
	songs repository.SongRepository,
	tracks repository.TrackRepository,
	revisions repository.RevisionRepository,
) *Service {
	return &Service{sessions: sessions, songs: songs, tracks: tracks, revisions: revisions}
}

// SessionTrackInput is one track row of a session edit. A nil
// TrackRevisionID leaves the row unpinned, meaning playback follows the
// track's active revision.
type SessionTrackInput struct {
	TrackID         int64
	TrackRevisionID *int64
	Mute            bool
	GainDB          float64
	Pan             float64
	StartOffsetMs   int
}

// CreateSession snapshots the song's tracks into a new session.
//
// base selects how each track is pinned: "active" pins to the track's
// active revision (tracks without one are included unpinned), "latest"
// pins to the highest-numbered revision (tracks with no revisions at all
// are included unpinned). Playback parameters start at their defaults.
func (s *Service) CreateSession(ctx context.Context, songID int64, name, base string, createdBy int64) (*model.MixSession, []*model.MixSessionTrack, error) {
	if name == "" {
		return nil, nil, apperr.InvalidInputf("session name is required")
	}
	if base != model.SessionBaseActive && base != model.SessionBaseLatest {
		return nil, nil, apperr.InvalidInputf("base must be %q or %q", model.SessionBaseActive, model.SessionBaseLatest)
	}

	song, err := s.songs.GetSongByID(ctx, songID)
	if err != nil {
		return nil, nil, err
	}
	if song == nil {
		return nil, nil, apperr.NotFoundf("song %d", songID)
	}

	tracks, err := s.tracks.GetTracksBySongID(ctx, songID)
	if err != nil {
		return nil, nil, err
	}

	session := &model.MixSession{
		SongID:    songID,
		Name:      name,
		CreatedBy: createdBy,
	}

	rows := make([]*model.MixSessionTrack, 0, len(tracks))
	for _, t := range tracks {
		row := &model.MixSessionTrack{TrackID: t.ID}
		switch base {
		case model.SessionBaseActive:
			if t.ActiveRevisionID != nil {
				id := *t.ActiveRevisionID
				row.TrackRevisionID = &id
			}
		case model.SessionBaseLatest:
			latest, err := s.revisions.GetLatestRevision(ctx, t.ID)
			if err != nil {
				return nil, nil, err
			}
			if latest != nil {
				id := latest.ID
				row.TrackRevisionID = &id
			}
		}
		rows = append(rows, row)
	}

	if err := s.sessions.CreateSession(ctx, session, rows); err != nil {
		return nil, nil, err
	}
	return session, rows, nil
}

// GetSession returns a session and its track rows.
func (s *Service) GetSession(ctx context.Context, sessionID int64) (*model.MixSession, []*model.MixSessionTrack, error) {
	session, err := s.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, apperr.NotFoundf("session %d", sessionID)
	}
	rows, err := s.sessions.GetSessionTracks(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session, rows, nil
}

// ListSessions returns the song's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, songID int64) ([]*model.MixSession, error) {
	song, err := s.songs.GetSongByID(ctx, songID)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, apperr.NotFoundf("song %d", songID)
	}
	return s.sessions.GetSessionsBySongID(ctx, songID)
}

// ReplaceSessionTracks swaps the session's track rows for the given set.
// The replacement is total: rows absent from the input are removed, and
// an empty input empties the session. Every referenced track must belong
// to the session's song and every pinned revision to its track, and no
// track may appear twice.
func (s *Service) ReplaceSessionTracks(ctx context.Context, sessionID int64, inputs []SessionTrackInput) ([]*model.MixSessionTrack, error) {
	session, err := s.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.NotFoundf("session %d", sessionID)
	}

	seen := make(map[int64]bool, len(inputs))
	rows := make([]*model.MixSessionTrack, 0, len(inputs))
	for _, in := range inputs {
		if seen[in.TrackID] {
			return nil, apperr.InvalidInputf("track %d appears more than once", in.TrackID)
		}
		seen[in.TrackID] = true

		track, err := s.tracks.GetTrackByID(ctx, in.TrackID)
		if err != nil {
			return nil, err
		}
		if track == nil || track.SongID != session.SongID {
			return nil, apperr.NotFoundf("track %d on song %d", in.TrackID, session.SongID)
		}

		var pinned *int64
		if in.TrackRevisionID != nil {
			rev, err := s.revisions.GetRevisionByID(ctx, *in.TrackRevisionID)
			if err != nil {
				return nil, err
			}
			if rev == nil || rev.TrackID != in.TrackID {
				return nil, apperr.NotFoundf("revision %d on track %d", *in.TrackRevisionID, in.TrackID)
			}
			id := rev.ID
			pinned = &id
		}

		rows = append(rows, &model.MixSessionTrack{
			SessionID:       sessionID,
			TrackID:         in.TrackID,
			TrackRevisionID: pinned,
			Mute:            in.Mute,
			GainDB:          clamp(in.GainDB, GainMinDB, GainMaxDB),
			Pan:             clamp(in.Pan, -1, 1),
			StartOffsetMs:   maxInt(in.StartOffsetMs, 0),
		})
	}

	if err := s.sessions.ReplaceSessionTracks(ctx, sessionID, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(v, lo int) int {
	if v < lo {
		return lo
	}
	return v
}
