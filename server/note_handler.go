package server

import (
	"net/http"
	"strings"

	"stemroom/core/apperr"
	"stemroom/model"
)

// CreateSongNoteHandler logs a note against a song.
func (h *APIHandler) CreateSongNoteHandler(w http.ResponseWriter, r *http.Request) {
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
		Body string `json:"body"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		http.Error(w, "Note body is required", http.StatusBadRequest)
		return
	}

	note := &model.SongNote{SongID: songID, AuthorID: userID, Body: req.Body}
	if err := h.noteRepo.CreateNote(r.Context(), note); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

// ListSongNotesHandler returns a song's notes.
func (h *APIHandler) ListSongNotesHandler(w http.ResponseWriter, r *http.Request) {
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

	notes, err := h.noteRepo.GetNotesBySongID(r.Context(), songID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if notes == nil {
		notes = []*model.SongNote{}
	}
	respondJSON(w, http.StatusOK, notes)
}

// UpdateSongNoteHandler edits a note. Only the author may edit.
func (h *APIHandler) UpdateSongNoteHandler(w http.ResponseWriter, r *http.Request) {
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
	noteID, err := pathID(r, "note_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireSongAccess(r.Context(), songID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	note, err := h.noteRepo.GetNoteByID(r.Context(), noteID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if note == nil || note.SongID != songID {
		respondError(w, r, apperr.NotFoundf("note %d on song %d", noteID, songID))
		return
	}
	if note.AuthorID != userID {
		respondError(w, r, apperr.Forbiddenf("only the author can edit a note"))
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		http.Error(w, "Note body is required", http.StatusBadRequest)
		return
	}

	note.Body = req.Body
	if err := h.noteRepo.UpdateNote(r.Context(), note); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// DeleteSongNoteHandler removes a note. Only the author may delete.
func (h *APIHandler) DeleteSongNoteHandler(w http.ResponseWriter, r *http.Request) {
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
	noteID, err := pathID(r, "note_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireSongAccess(r.Context(), songID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	note, err := h.noteRepo.GetNoteByID(r.Context(), noteID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if note == nil || note.SongID != songID {
		respondError(w, r, apperr.NotFoundf("note %d on song %d", noteID, songID))
		return
	}
	if note.AuthorID != userID {
		respondError(w, r, apperr.Forbiddenf("only the author can delete a note"))
		return
	}

	if err := h.noteRepo.DeleteNote(r.Context(), noteID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSongDecisionHandler records an agreed outcome for a song.
func (h *APIHandler) CreateSongDecisionHandler(w http.ResponseWriter, r *http.Request) {
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
		Topic   string `json:"topic"`
		Outcome string `json:"outcome"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Topic) == "" || strings.TrimSpace(req.Outcome) == "" {
		http.Error(w, "Topic and outcome are required", http.StatusBadRequest)
		return
	}

	decision := &model.SongDecision{SongID: songID, AuthorID: userID, Topic: req.Topic, Outcome: req.Outcome}
	if err := h.noteRepo.CreateDecision(r.Context(), decision); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, decision)
}

// ListSongDecisionsHandler returns a song's decision log.
func (h *APIHandler) ListSongDecisionsHandler(w http.ResponseWriter, r *http.Request) {
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

	decisions, err := h.noteRepo.GetDecisionsBySongID(r.Context(), songID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if decisions == nil {
		decisions = []*model.SongDecision{}
	}
	respondJSON(w, http.StatusOK, decisions)
}
