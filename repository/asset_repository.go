package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stemroom/core/apperr"
	"stemroom/model"
)

// AssetRepository defines asset data operations. The unique key on
// (revision_id, asset_type) backs the one-asset-per-type rule; ResetPending
// reuses the row instead of inserting a sibling.
type AssetRepository interface {
	CreateAsset(ctx context.Context, asset *model.Asset) (int64, error)
	GetAssetByID(ctx context.Context, id int64) (*model.Asset, error)
	GetAssetByRevisionAndType(ctx context.Context, revisionID int64, assetType string) (*model.Asset, error)
	GetAssetsByRevisionID(ctx context.Context, revisionID int64) ([]*model.Asset, error)

	// ResetPending rewinds an existing asset to pending with fresh upload
	// intent metadata, superseding whatever was there.
	ResetPending(ctx context.Context, id int64, format, contentType, objectKey string, byteSize int64) error
	// MarkReady finishes the lifecycle, recording observed metadata. Only
	// rows in pending or uploaded state transition; returns the number of
	// rows updated so the caller can detect an illegal transition.
	MarkReady(ctx context.Context, id int64, byteSize int64, durationSec float64, sampleRate, channels int) (int64, error)
	MarkFailed(ctx context.Context, id int64) error
}

// MySQLAssetRepository implements AssetRepository for MySQL.
type MySQLAssetRepository struct {
	db *sql.DB
}

// NewMySQLAssetRepository creates a new MySQL asset repository instance.
func NewMySQLAssetRepository(db *sql.DB) *MySQLAssetRepository {
	return &MySQLAssetRepository{db: db}
}

// CreateAsset inserts a new asset in pending state.
func (r *MySQLAssetRepository) CreateAsset(ctx context.Context, asset *model.Asset) (int64, error) {
	query := `INSERT INTO assets (revision_id, asset_type, format, content_type, status, object_key, byte_size, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	res, err := r.db.ExecContext(ctx, query,
		asset.RevisionID, asset.Type, asset.Format, asset.ContentType,
		model.AssetStatusPending, asset.ObjectKey, asset.ByteSize, now, now)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, apperr.Conflictf("asset of type %q already exists for revision %d", asset.Type, asset.RevisionID)
		}
		return 0, fmt.Errorf("failed to execute CreateAsset: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateAsset: %w", err)
	}
	return id, nil
}

const assetColumns = `id, revision_id, asset_type, format, content_type, status, object_key, byte_size, duration_sec, sample_rate, channels, created_at, updated_at`

func scanAsset(scan func(dest ...interface{}) error) (*model.Asset, error) {
	a := &model.Asset{}
	var format, contentType sql.NullString
	err := scan(&a.ID, &a.RevisionID, &a.Type, &format, &contentType, &a.Status, &a.ObjectKey,
		&a.ByteSize, &a.DurationSec, &a.SampleRate, &a.Channels, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Format = format.String
	a.ContentType = contentType.String
	return a, nil
}

// GetAssetByID retrieves an asset by id.
func (r *MySQLAssetRepository) GetAssetByID(ctx context.Context, id int64) (*model.Asset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan asset by ID %d: %w", id, err)
	}
	return asset, nil
}

// GetAssetByRevisionAndType retrieves the single asset of the given type on
// a revision, or nil.
func (r *MySQLAssetRepository) GetAssetByRevisionAndType(ctx context.Context, revisionID int64, assetType string) (*model.Asset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE revision_id = ? AND asset_type = ?`, revisionID, assetType)
	asset, err := scanAsset(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan asset by revision %d type %s: %w", revisionID, assetType, err)
	}
	return asset, nil
}

// GetAssetsByRevisionID lists all assets on a revision.
func (r *MySQLAssetRepository) GetAssetsByRevisionID(ctx context.Context, revisionID int64) ([]*model.Asset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE revision_id = ? ORDER BY asset_type`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets for revision %d: %w", revisionID, err)
	}
	defer rows.Close()

	assets := make([]*model.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset in GetAssetsByRevisionID: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetAssetsByRevisionID: %w", err)
	}
	return assets, nil
}

// ResetPending rewinds the asset to pending and replaces its upload intent
// metadata. Old duration and channel metadata is cleared; it described the
// superseded bytes.
func (r *MySQLAssetRepository) ResetPending(ctx context.Context, id int64, format, contentType, objectKey string, byteSize int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE assets
		    SET status = ?, format = ?, content_type = ?, object_key = ?, byte_size = ?,
		        duration_sec = 0, sample_rate = 0, channels = 0, updated_at = ?
		  WHERE id = ?`,
		model.AssetStatusPending, format, contentType, objectKey, byteSize, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute ResetPending for asset %d: %w", id, err)
	}
	return nil
}

// MarkReady transitions pending/uploaded to ready and records metadata.
func (r *MySQLAssetRepository) MarkReady(ctx context.Context, id int64, byteSize int64, durationSec float64, sampleRate, channels int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assets
		    SET status = ?, byte_size = ?, duration_sec = ?, sample_rate = ?, channels = ?, updated_at = ?
		  WHERE id = ? AND status IN (?, ?)`,
		model.AssetStatusReady, byteSize, durationSec, sampleRate, channels, time.Now(),
		id, model.AssetStatusPending, model.AssetStatusUploaded)
	if err != nil {
		return 0, fmt.Errorf("failed to execute MarkReady for asset %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for MarkReady: %w", err)
	}
	return affected, nil
}

// MarkFailed transitions the asset to failed from any state.
func (r *MySQLAssetRepository) MarkFailed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE assets SET status = ?, updated_at = ? WHERE id = ?`,
		model.AssetStatusFailed, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute MarkFailed for asset %d: %w", id, err)
	}
	return nil
}
