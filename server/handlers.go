package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"stemroom/config"
	"stemroom/core/apperr"
	"stemroom/core/auth"
	"stemroom/core/mix"
	"stemroom/core/take"
	"stemroom/core/upload"
	"stemroom/logger"
	"stemroom/repository"
)

// APIHandler carries the wired repositories and services for all routes.
type APIHandler struct {
	userRepo  repository.UserRepository
	bandRepo  repository.BandRepository
	songRepo  repository.SongRepository
	trackRepo repository.TrackRepository
	noteRepo  repository.NoteRepository

	takeSvc   *take.Service
	mixSvc    *mix.Service
	uploadSvc *upload.Service

	cfg *config.Config
}

// NewAPIHandler creates the handler set.
func NewAPIHandler(
	userRepo repository.UserRepository,
	bandRepo repository.BandRepository,
	songRepo repository.SongRepository,
	trackRepo repository.TrackRepository,
	noteRepo repository.NoteRepository,
	takeSvc *take.Service,
	mixSvc *mix.Service,
	uploadSvc *upload.Service,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:  userRepo,
		bandRepo:  bandRepo,
		songRepo:  songRepo,
		trackRepo: trackRepo,
		noteRepo:  noteRepo,
		takeSvc:   takeSvc,
		mixSvc:    mixSvc,
		uploadSvc: uploadSvc,
		cfg:       cfg,
	}
}

// AuthMiddleware checks for a valid JWT token and stashes the caller's
// identity in the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID set by AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value("userID").(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logger.Error("failed to encode response", logger.ErrorField(err))
		}
	}
}

// respondError maps service errors onto HTTP statuses. Anything that is
// not one of the known kinds is a 500 and gets logged.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperr.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, apperr.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, apperr.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// pathID parses the named route variable as an int64.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInputf("invalid %s %q", name, raw)
	}
	return id, nil
}

// decodeBody decodes the JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.InvalidInputf("invalid request body: %v", err)
	}
	return nil
}

// requireBandMember resolves the resource's band and checks the caller
// belongs to it. A resource whose band cannot be resolved is NotFound; a
// resolved band without the caller is Forbidden, so outsiders learn that
// the resource exists but nothing more.
func (h *APIHandler) requireBandMember(ctx context.Context, bandID, userID int64) error {
	if bandID == 0 {
		return apperr.NotFoundf("resource")
	}
	ok, err := h.bandRepo.IsMember(ctx, bandID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbiddenf("user %d is not a member of band %d", userID, bandID)
	}
	return nil
}

func (h *APIHandler) requireSongAccess(ctx context.Context, songID, userID int64) error {
	bandID, err := h.bandRepo.BandIDForSong(ctx, songID)
	if err != nil {
		return err
	}
	if bandID == 0 {
		return apperr.NotFoundf("song %d", songID)
	}
	return h.requireBandMember(ctx, bandID, userID)
}

func (h *APIHandler) requireTrackAccess(ctx context.Context, trackID, userID int64) error {
	bandID, err := h.bandRepo.BandIDForTrack(ctx, trackID)
	if err != nil {
		return err
	}
	if bandID == 0 {
		return apperr.NotFoundf("track %d", trackID)
	}
	return h.requireBandMember(ctx, bandID, userID)
}

func (h *APIHandler) requireRevisionAccess(ctx context.Context, revisionID, userID int64) error {
	bandID, err := h.bandRepo.BandIDForRevision(ctx, revisionID)
	if err != nil {
		return err
	}
	if bandID == 0 {
		return apperr.NotFoundf("revision %d", revisionID)
	}
	return h.requireBandMember(ctx, bandID, userID)
}

func (h *APIHandler) requireSessionAccess(ctx context.Context, sessionID, userID int64) error {
	bandID, err := h.bandRepo.BandIDForSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if bandID == 0 {
		return apperr.NotFoundf("session %d", sessionID)
	}
	return h.requireBandMember(ctx, bandID, userID)
}

func (h *APIHandler) requireAssetAccess(ctx context.Context, assetID, userID int64) error {
	bandID, err := h.bandRepo.BandIDForAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if bandID == 0 {
		return apperr.NotFoundf("asset %d", assetID)
	}
	return h.requireBandMember(ctx, bandID, userID)
}
