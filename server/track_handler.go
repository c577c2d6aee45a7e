package server

import (
	"net/http"
	"strings"

	"stemroom/logger"
	"stemroom/model"
)

// CreateTrackHandler adds a recording lane to a song.
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	songID, err := pathID(r, "song_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireSongAccess(r.Context(), songID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		Name     string `json:"name"`
		Position int    `json:"position"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "Track name is required", http.StatusBadRequest)
		return
	}

	track := &model.Track{SongID: songID, Name: req.Name, Position: req.Position}
	id, err := h.trackRepo.CreateTrack(r.Context(), track)
	if err != nil {
		respondError(w, r, err)
		return
	}
	track.ID = id

	logger.Info("track created", logger.Int64("trackId", id), logger.Int64("songId", songID))
	respondJSON(w, http.StatusCreated, track)
}

// ListTracksHandler returns a song's tracks in position order.
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	songID, err := pathID(r, "song_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireSongAccess(r.Context(), songID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	tracks, err := h.trackRepo.GetTracksBySongID(r.Context(), songID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if tracks == nil {
		tracks = []*model.Track{}
	}
	respondJSON(w, http.StatusOK, tracks)
}

// UpdateTrackHandler renames a track or moves its position.
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
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
		Name     *string `json:"name"`
		Position *int    `json:"position"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			http.Error(w, "Track name cannot be empty", http.StatusBadRequest)
			return
		}
		if err := h.trackRepo.RenameTrack(r.Context(), trackID, name); err != nil {
			respondError(w, r, err)
			return
		}
	}
	if req.Position != nil {
		if err := h.trackRepo.UpdateTrackPosition(r.Context(), trackID, *req.Position); err != nil {
			respondError(w, r, err)
			return
		}
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, track)
}

// SetActiveRevisionHandler moves the track's active-revision pointer.
func (h *APIHandler) SetActiveRevisionHandler(w http.ResponseWriter, r *http.Request) {
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
		RevisionID int64 `json:"revisionId"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.takeSvc.SetActiveRevision(r.Context(), trackID, req.RevisionID); err != nil {
		respondError(w, r, err)
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logger.Info("active revision set",
		logger.Int64("trackId", trackID),
		logger.Int64("revisionId", req.RevisionID))
	respondJSON(w, http.StatusOK, track)
}
