package server

import (
	"net/http"
	"strings"

	"stemroom/core/apperr"
	"stemroom/logger"
	"stemroom/model"
)

// CreateBandHandler creates a band with the caller as its first admin.
func (h *APIHandler) CreateBandHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "Band name is required", http.StatusBadRequest)
		return
	}

	band := &model.Band{Name: req.Name, CreatedBy: userID}
	id, err := h.bandRepo.CreateBand(r.Context(), band)
	if err != nil {
		respondError(w, r, err)
		return
	}
	band.ID = id

	logger.Info("band created", logger.Int64("bandId", id), logger.Int64("userId", userID))
	respondJSON(w, http.StatusCreated, band)
}

// ListBandsHandler returns the caller's bands.
func (h *APIHandler) ListBandsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bands, err := h.bandRepo.GetBandsByUserID(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if bands == nil {
		bands = []*model.Band{}
	}
	respondJSON(w, http.StatusOK, bands)
}

// GetBandHandler returns one band, members only.
func (h *APIHandler) GetBandHandler(w http.ResponseWriter, r *http.Request) {
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

	band, err := h.bandRepo.GetBandByID(r.Context(), bandID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if band == nil {
		respondError(w, r, apperr.NotFoundf("band %d", bandID))
		return
	}
	if err := h.requireBandMember(r.Context(), bandID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, band)
}

// AddBandMemberHandler adds a user to the band. Only admins may add.
func (h *APIHandler) AddBandMemberHandler(w http.ResponseWriter, r *http.Request) {
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

	members, err := h.bandRepo.GetMembers(r.Context(), bandID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	isAdmin := false
	for _, m := range members {
		if m.UserID == userID && m.Role == model.RoleAdmin {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		respondError(w, r, apperr.Forbiddenf("only band admins can add members"))
		return
	}

	var req struct {
		UserID int64  `json:"userId"`
		Email  string `json:"email"`
		Role   string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = model.RoleMember
	}
	if req.Role != model.RoleAdmin && req.Role != model.RoleMember {
		http.Error(w, "Role must be admin or member", http.StatusBadRequest)
		return
	}

	var target *model.User
	switch {
	case req.UserID != 0:
		target, err = h.userRepo.GetUserByID(r.Context(), req.UserID)
	case req.Email != "":
		target, err = h.userRepo.GetUserByEmail(r.Context(), req.Email)
	default:
		http.Error(w, "userId or email is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	if target == nil {
		respondError(w, r, apperr.NotFoundf("user"))
		return
	}

	member := &model.BandMember{BandID: bandID, UserID: target.ID, Role: req.Role}
	if err := h.bandRepo.AddMember(r.Context(), member); err != nil {
		respondError(w, r, err)
		return
	}

	logger.Info("band member added",
		logger.Int64("bandId", bandID),
		logger.Int64("userId", target.ID),
		logger.String("role", req.Role))
	respondJSON(w, http.StatusCreated, member)
}

// ListBandMembersHandler returns the band's roster.
func (h *APIHandler) ListBandMembersHandler(w http.ResponseWriter, r *http.Request) {
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

	members, err := h.bandRepo.GetMembers(r.Context(), bandID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}
