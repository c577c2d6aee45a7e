// Package upload drives the asset lifecycle: presign, client upload,
// then completion or failure.
package upload

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"stemroom/core/apperr"
	"stemroom/model"
	"stemroom/repository"
)

// Presigner hands out short-lived upload URLs for an object key.
type Presigner interface {
	PresignPut(ctx context.Context, objectKey, contentType string) (string, map[string]string, error)
}

// Service manages assets attached to revisions. Each revision holds at
// most one asset per type; re-presigning an occupied slot rewinds the
// existing row instead of creating a second one.
type Service struct {
	assets    repository.AssetRepository
	revisions repository.RevisionRepository
	presigner Presigner
}

// NewService creates an upload service.
func NewService(assets repository.AssetRepository, revisions repository.RevisionRepository, presigner Presigner) *Service {
	return &Service{assets: assets, revisions: revisions, presigner: presigner}
}

// PresignInput describes the upload the client intends to perform.
type PresignInput struct {
	RevisionID  int64
	Type        string
	Format      string
	ContentType string
	ByteSize    int64 // declared size, refreshed on completion
}

// PresignResult carries the pending asset row and where to PUT the bytes.
type PresignResult struct {
	Asset     *model.Asset
	UploadURL string
	Headers   map[string]string
}

// PresignAsset reserves the revision's slot for the given asset type and
// returns a presigned upload URL. If the slot already holds an asset in
// any state it is reset to pending under a fresh object key, so a retried
// or replaced upload never serves stale bytes.
func (s *Service) PresignAsset(ctx context.Context, in PresignInput) (*PresignResult, error) {
	if !model.ValidAssetType(in.Type) {
		return nil, apperr.InvalidInputf("unknown asset type %q", in.Type)
	}
	if in.ContentType == "" {
		return nil, apperr.InvalidInputf("content type is required")
	}

	rev, err := s.revisions.GetRevisionByID(ctx, in.RevisionID)
	if err != nil {
		return nil, err
	}
	if rev == nil {
		return nil, apperr.NotFoundf("revision %d", in.RevisionID)
	}

	objectKey := newObjectKey(in.RevisionID, in.Type, in.Format)

	asset, err := s.assets.GetAssetByRevisionAndType(ctx, in.RevisionID, in.Type)
	if err != nil {
		return nil, err
	}
	if asset != nil {
		if err := s.assets.ResetPending(ctx, asset.ID, in.Format, in.ContentType, objectKey, in.ByteSize); err != nil {
			return nil, err
		}
		asset, err = s.assets.GetAssetByID(ctx, asset.ID)
		if err != nil {
			return nil, err
		}
	} else {
		asset = &model.Asset{
			RevisionID:  in.RevisionID,
			Type:        in.Type,
			Format:      in.Format,
			ContentType: in.ContentType,
			Status:      model.AssetStatusPending,
			ObjectKey:   objectKey,
			ByteSize:    in.ByteSize,
		}
		id, err := s.assets.CreateAsset(ctx, asset)
		if err != nil {
			return nil, err
		}
		asset.ID = id
	}

	url, headers, err := s.presigner.PresignPut(ctx, objectKey, in.ContentType)
	if err != nil {
		return nil, err
	}

	return &PresignResult{Asset: asset, UploadURL: url, Headers: headers}, nil
}

// CompleteInput carries what the client learned about the uploaded file.
type CompleteInput struct {
	AssetID     int64
	ByteSize    int64
	DurationSec float64
	SampleRate  int
	Channels    int
}

// CompleteAsset marks an upload as ready. Only pending or uploaded assets
// can complete; completing a ready or failed asset is a Conflict, which
// keeps a late duplicate callback from clobbering a slot that has moved
// on.
func (s *Service) CompleteAsset(ctx context.Context, in CompleteInput) (*model.Asset, error) {
	if in.ByteSize <= 0 {
		return nil, apperr.InvalidInputf("byte size must be positive")
	}

	asset, err := s.assets.GetAssetByID(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, apperr.NotFoundf("asset %d", in.AssetID)
	}

	affected, err := s.assets.MarkReady(ctx, in.AssetID, in.ByteSize, in.DurationSec, in.SampleRate, in.Channels)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, apperr.Conflictf("asset %d is %s and cannot be completed", in.AssetID, asset.Status)
	}

	return s.assets.GetAssetByID(ctx, in.AssetID)
}

// FailAsset marks an upload as failed. The slot stays claimable: a later
// presign for the same revision and type resets it.
func (s *Service) FailAsset(ctx context.Context, assetID int64) (*model.Asset, error) {
	asset, err := s.assets.GetAssetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, apperr.NotFoundf("asset %d", assetID)
	}

	if err := s.assets.MarkFailed(ctx, assetID); err != nil {
		return nil, err
	}
	return s.assets.GetAssetByID(ctx, assetID)
}

// GetAsset returns one asset row.
func (s *Service) GetAsset(ctx context.Context, assetID int64) (*model.Asset, error) {
	asset, err := s.assets.GetAssetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, apperr.NotFoundf("asset %d", assetID)
	}
	return asset, nil
}

// ListAssets returns all assets attached to a revision.
func (s *Service) ListAssets(ctx context.Context, revisionID int64) ([]*model.Asset, error) {
	rev, err := s.revisions.GetRevisionByID(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if rev == nil {
		return nil, apperr.NotFoundf("revision %d", revisionID)
	}
	return s.assets.GetAssetsByRevisionID(ctx, revisionID)
}

func newObjectKey(revisionID int64, assetType, format string) string {
	name := uuid.New().String()
	if format != "" {
		name += "." + format
	}
	return fmt.Sprintf("revisions/%d/%s/%s", revisionID, assetType, name)
}
