package server

import (
	"net/http"

	"stemroom/core/apperr"
	"stemroom/logger"
	"stemroom/model"
	"stemroom/storage"
)

// DownloadAssetHandler streams an asset's bytes from object storage.
// http.ServeContent handles Range requests, so players can seek without
// pulling the whole file.
func (h *APIHandler) DownloadAssetHandler(w http.ResponseWriter, r *http.Request) {
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

	asset, err := h.uploadSvc.GetAsset(r.Context(), assetID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if asset.Status != model.AssetStatusReady {
		respondError(w, r, apperr.Conflictf("asset %d is %s, not ready", assetID, asset.Status))
		return
	}

	object, info, err := storage.OpenObject(r.Context(), h.cfg.MinioBucket, asset.ObjectKey)
	if err != nil {
		logger.Error("failed to open asset object",
			logger.Int64("assetId", assetID),
			logger.String("objectKey", asset.ObjectKey),
			logger.ErrorField(err))
		http.Error(w, "Asset data unavailable", http.StatusBadGateway)
		return
	}
	defer object.Close()

	if asset.ContentType != "" {
		w.Header().Set("Content-Type", asset.ContentType)
	}
	http.ServeContent(w, r, asset.ObjectKey, info.LastModified, object)
}
