// Package take owns the revision history of a track: number allocation,
// idempotent creation, and the active-revision pointer.
package take

import (
	"context"

	"stemroom/core/apperr"
	"stemroom/model"
	"stemroom/repository"
)

// Service coordinates revision creation and the active pointer over the
// track and revision stores. Number uniqueness under concurrency is the
// store's job (atomic counter); this layer owns idempotency, validation
// and the one-time promotion rule.
type Service struct {
	tracks    repository.TrackRepository
	revisions repository.RevisionRepository
}

// NewService creates a take service.
func NewService(tracks repository.TrackRepository, revisions repository.RevisionRepository) *Service {
	return &Service{tracks: tracks, revisions: revisions}
}

// CreateRevisionInput carries the caller-supplied fields for a new take.
type CreateRevisionInput struct {
	TrackID        int64
	Title          string
	Memo           string
	IdempotencyKey string
	CreatedBy      int64
}

// CreateRevision records a new take for the track.
//
// When an idempotency key is supplied and a revision already exists under
// it, that revision is returned without allocating a number, which makes
// the call safe to retry. Two concurrent creates racing on the same key
// surface as Conflict from the store's unique index; they are not merged.
func (s *Service) CreateRevision(ctx context.Context, in CreateRevisionInput) (*model.Revision, error) {
	track, err := s.tracks.GetTrackByID(ctx, in.TrackID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, apperr.NotFoundf("track %d", in.TrackID)
	}

	if in.IdempotencyKey != "" {
		existing, err := s.revisions.GetRevisionByTrackAndKey(ctx, in.TrackID, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	rev := &model.Revision{
		TrackID:        in.TrackID,
		Title:          in.Title,
		Memo:           in.Memo,
		IdempotencyKey: in.IdempotencyKey,
		CreatedBy:      in.CreatedBy,
	}
	if err := s.revisions.CreateRevision(ctx, rev); err != nil {
		return nil, err
	}

	// A track's first-ever take becomes active automatically so new tracks
	// are playable without an extra call. Later takes never move the
	// pointer; only an explicit SetActiveRevision does. The conditional
	// update keeps the promotion race-safe.
	if rev.RevisionNumber == 1 {
		if _, err := s.tracks.PromoteIfUnset(ctx, in.TrackID, rev.ID); err != nil {
			return nil, err
		}
	}

	return rev, nil
}

// SetActiveRevision points the track at one of its own revisions. A
// revision that exists but belongs to another track is NotFound, and the
// track is left untouched.
func (s *Service) SetActiveRevision(ctx context.Context, trackID, revisionID int64) error {
	track, err := s.tracks.GetTrackByID(ctx, trackID)
	if err != nil {
		return err
	}
	if track == nil {
		return apperr.NotFoundf("track %d", trackID)
	}

	rev, err := s.revisions.GetRevisionByID(ctx, revisionID)
	if err != nil {
		return err
	}
	if rev == nil || rev.TrackID != trackID {
		return apperr.NotFoundf("revision %d on track %d", revisionID, trackID)
	}

	return s.tracks.SetActiveRevision(ctx, trackID, revisionID)
}

// ListRevisions returns the track's take history, oldest first.
func (s *Service) ListRevisions(ctx context.Context, trackID int64) ([]*model.Revision, error) {
	track, err := s.tracks.GetTrackByID(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, apperr.NotFoundf("track %d", trackID)
	}

	return s.revisions.GetRevisionsByTrackID(ctx, trackID)
}
