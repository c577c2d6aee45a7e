package server

import (
	"net/http"

	"stemroom/cache"
	"stemroom/core/mix"
	"stemroom/logger"
	"stemroom/model"
)

// sessionResponse is the session read payload.
type sessionResponse struct {
	Session *model.MixSession        `json:"session"`
	Tracks  []*model.MixSessionTrack `json:"tracks"`
}

// CreateSessionHandler snapshots a song's tracks into a new mix session.
func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
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
		Name string `json:"name"`
		Base string `json:"base"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Base == "" {
		req.Base = model.SessionBaseActive
	}

	session, tracks, err := h.mixSvc.CreateSession(r.Context(), songID, req.Name, req.Base, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logger.Info("mix session created",
		logger.Int64("sessionId", session.ID),
		logger.Int64("songId", songID),
		logger.String("base", req.Base))
	respondJSON(w, http.StatusCreated, sessionResponse{Session: session, Tracks: tracks})
}

// ListSessionsHandler returns the song's sessions, newest first.
func (h *APIHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
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

	sessions, err := h.mixSvc.ListSessions(r.Context(), songID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*model.MixSession{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

// GetSessionHandler returns a session with its track rows, through the
// Redis cache.
func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	sessionID, err := pathID(r, "session_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireSessionAccess(r.Context(), sessionID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	if cached := cache.GetSession(r.Context(), sessionID); cached != nil {
		respondJSON(w, http.StatusOK, sessionResponse{Session: cached.Session, Tracks: cached.Tracks})
		return
	}

	session, tracks, err := h.mixSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	cache.SetSession(r.Context(), &cache.SessionPayload{Session: session, Tracks: tracks})
	respondJSON(w, http.StatusOK, sessionResponse{Session: session, Tracks: tracks})
}

// ReplaceSessionTracksHandler swaps the session's track rows wholesale.
func (h *APIHandler) ReplaceSessionTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	sessionID, err := pathID(r, "session_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireSessionAccess(r.Context(), sessionID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		Tracks []struct {
			TrackID         int64   `json:"trackId"`
			TrackRevisionID *int64  `json:"trackRevisionId"`
			Mute            bool    `json:"mute"`
			GainDB          float64 `json:"gainDb"`
			Pan             float64 `json:"pan"`
			StartOffsetMs   int     `json:"startOffsetMs"`
		} `json:"tracks"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	inputs := make([]mix.SessionTrackInput, 0, len(req.Tracks))
	for _, t := range req.Tracks {
		inputs = append(inputs, mix.SessionTrackInput{
			TrackID:         t.TrackID,
			TrackRevisionID: t.TrackRevisionID,
			Mute:            t.Mute,
			GainDB:          t.GainDB,
			Pan:             t.Pan,
			StartOffsetMs:   t.StartOffsetMs,
		})
	}

	rows, err := h.mixSvc.ReplaceSessionTracks(r.Context(), sessionID, inputs)
	if err != nil {
		respondError(w, r, err)
		return
	}

	cache.InvalidateSession(r.Context(), sessionID)
	logger.Info("mix session tracks replaced",
		logger.Int64("sessionId", sessionID),
		logger.Int("trackCount", len(rows)))
	respondJSON(w, http.StatusOK, rows)
}
