package server

import (
	"net/http"

	"stemroom/core/upload"
	"stemroom/logger"
	"stemroom/model"
)

// PresignAssetHandler reserves an asset slot on a revision and returns a
// presigned PUT URL for the bytes.
func (h *APIHandler) PresignAssetHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	revisionID, err := pathID(r, "revision_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireRevisionAccess(r.Context(), revisionID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		Type        string `json:"type"`
		Format      string `json:"format"`
		ContentType string `json:"contentType"`
		ByteSize    int64  `json:"byteSize"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.uploadSvc.PresignAsset(r.Context(), upload.PresignInput{
		RevisionID:  revisionID,
		Type:        req.Type,
		Format:      req.Format,
		ContentType: req.ContentType,
		ByteSize:    req.ByteSize,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	logger.Info("asset presigned",
		logger.Int64("revisionId", revisionID),
		logger.Int64("assetId", res.Asset.ID),
		logger.String("type", req.Type))
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"asset":     res.Asset,
		"uploadUrl": res.UploadURL,
		"headers":   res.Headers,
	})
}

// ListAssetsHandler returns the revision's assets.
func (h *APIHandler) ListAssetsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	revisionID, err := pathID(r, "revision_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireRevisionAccess(r.Context(), revisionID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	assets, err := h.uploadSvc.ListAssets(r.Context(), revisionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if assets == nil {
		assets = []*model.Asset{}
	}
	respondJSON(w, http.StatusOK, assets)
}

// CompleteAssetHandler confirms the bytes landed and records metadata.
func (h *APIHandler) CompleteAssetHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	assetID, err := pathID(r, "asset_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireAssetAccess(r.Context(), assetID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		ByteSize    int64   `json:"byteSize"`
		DurationSec float64 `json:"durationSec"`
		SampleRate  int     `json:"sampleRate"`
		Channels    int     `json:"channels"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	asset, err := h.uploadSvc.CompleteAsset(r.Context(), upload.CompleteInput{
		AssetID:     assetID,
		ByteSize:    req.ByteSize,
		DurationSec: req.DurationSec,
		SampleRate:  req.SampleRate,
		Channels:    req.Channels,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	logger.Info("asset ready", logger.Int64("assetId", assetID), logger.Int64("bytes", req.ByteSize))
	respondJSON(w, http.StatusOK, asset)
}

// FailAssetHandler records that the upload did not complete.
func (h *APIHandler) FailAssetHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	assetID, err := pathID(r, "asset_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.requireAssetAccess(r.Context(), assetID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	asset, err := h.uploadSvc.FailAsset(r.Context(), assetID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logger.Warn("asset upload failed", logger.Int64("assetId", assetID))
	respondJSON(w, http.StatusOK, asset)
}
