package server

import (
	"net/http"

	"stemroom/core/take"
	"stemroom/logger"
	"stemroom/model"
)

// CreateRevisionHandler records a new take on a track. Clients that
// retry on timeouts should send an Idempotency-Key header (or the
// idempotencyKey body field) so the retry lands on the same revision.
func (h *APIHandler) CreateRevisionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	trackID, err := pathID(r, "track_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireTrackAccess(r.Context(), trackID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		Title          string `json:"title"`
		Memo           string `json:"memo"`
		IdempotencyKey string `json:"idempotencyKey"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	rev, err := h.takeSvc.CreateRevision(r.Context(), take.CreateRevisionInput{
		TrackID:        trackID,
		Title:          req.Title,
		Memo:           req.Memo,
		IdempotencyKey: req.IdempotencyKey,
		CreatedBy:      userID,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	logger.Info("revision created",
		logger.Int64("trackId", trackID),
		logger.Int64("revisionId", rev.ID),
		logger.Int64("revisionNumber", rev.RevisionNumber))
	respondJSON(w, http.StatusCreated, rev)
}

// ListRevisionsHandler returns the track's take history, oldest first.
func (h *APIHandler) ListRevisionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	trackID, err := pathID(r, "track_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireTrackAccess(r.Context(), trackID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	revs, err := h.takeSvc.ListRevisions(r.Context(), trackID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if revs == nil {
		revs = []*model.Revision{}
	}
	respondJSON(w, http.StatusOK, revs)
}
