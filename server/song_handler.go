package server

import (
	"net/http"
	"strings"

	"stemroom/core/apperr"
	"stemroom/logger"
	"stemroom/model"
)

// CreateSongHandler adds a song to a band.
func (h *APIHandler) CreateSongHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	bandID, err := pathID(r, "band_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireBandMember(r.Context(), bandID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "Song title is required", http.StatusBadRequest)
		return
	}

	song := &model.Song{
		BandID:      bandID,
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   userID,
	}
	id, err := h.songRepo.CreateSong(r.Context(), song)
	if err != nil {
		respondError(w, r, err)
		return
	}
	song.ID = id

	logger.Info("song created", logger.Int64("songId", id), logger.Int64("bandId", bandID))
	respondJSON(w, http.StatusCreated, song)
}

// ListSongsHandler returns the band's songs.
func (h *APIHandler) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	bandID, err := pathID(r, "band_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireBandMember(r.Context(), bandID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	songs, err := h.songRepo.GetSongsByBandID(r.Context(), bandID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if songs == nil {
		songs = []*model.Song{}
	}
	respondJSON(w, http.StatusOK, songs)
}

// GetSongHandler returns one song.
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
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

	song, err := h.songRepo.GetSongByID(r.Context(), songID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if song == nil {
		respondError(w, r, apperr.NotFoundf("song %d", songID))
		return
	}
	respondJSON(w, http.StatusOK, song)
}

// UpdateSongHandler renames a song or updates its description.
func (h *APIHandler) UpdateSongHandler(w http.ResponseWriter, r *http.Request) {
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

	song, err := h.songRepo.GetSongByID(r.Context(), songID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if song == nil {
		respondError(w, r, apperr.NotFoundf("song %d", songID))
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			http.Error(w, "Song title cannot be empty", http.StatusBadRequest)
			return
		}
		song.Title = title
	}
	if req.Description != nil {
		song.Description = *req.Description
	}

	if err := h.songRepo.UpdateSong(r.Context(), song); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, song)
}

// DeleteSongHandler removes a song and everything under it.
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
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

	if err := h.songRepo.DeleteSong(r.Context(), songID); err != nil {
		respondError(w, r, err)
		return
	}

	logger.Info("song deleted", logger.Int64("songId", songID), logger.Int64("userId", userID))
	w.WriteHeader(http.StatusNoContent)
}
