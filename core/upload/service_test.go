package upload

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stemroom/core/apperr"
	"stemroom/model"
)

type fakeAssetRepo struct {
	mu     sync.Mutex
	nextID int64
	assets map[int64]*model.Asset

	// missLookups makes slot lookups return nothing, simulating a
	// concurrent presign landing between the service's check and its
	// insert.
	missLookups bool
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{assets: make(map[int64]*model.Asset)}
}

func (r *fakeAssetRepo) CreateAsset(ctx context.Context, asset *model.Asset) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assets {
		if a.RevisionID == asset.RevisionID && a.Type == asset.Type {
			return 0, apperr.Conflictf("asset of type %q already exists for revision %d", asset.Type, asset.RevisionID)
		}
	}
	r.nextID++
	cp := *asset
	cp.ID = r.nextID
	r.assets[cp.ID] = &cp
	return cp.ID, nil
}

func (r *fakeAssetRepo) GetAssetByID(ctx context.Context, id int64) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAssetRepo) GetAssetByRevisionAndType(ctx context.Context, revisionID int64, assetType string) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missLookups {
		return nil, nil
	}
	for _, a := range r.assets {
		if a.RevisionID == revisionID && a.Type == assetType {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAssetRepo) GetAssetsByRevisionID(ctx context.Context, revisionID int64) ([]*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Asset
	for _, a := range r.assets {
		if a.RevisionID == revisionID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAssetRepo) ResetPending(ctx context.Context, id int64, format, contentType, objectKey string, byteSize int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.assets[id]
	a.Status = model.AssetStatusPending
	a.Format = format
	a.ContentType = contentType
	a.ObjectKey = objectKey
	a.ByteSize = byteSize
	a.DurationSec = 0
	a.SampleRate = 0
	a.Channels = 0
	return nil
}

func (r *fakeAssetRepo) MarkReady(ctx context.Context, id int64, byteSize int64, durationSec float64, sampleRate, channels int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return 0, nil
	}
	if a.Status != model.AssetStatusPending && a.Status != model.AssetStatusUploaded {
		return 0, nil
	}
	a.Status = model.AssetStatusReady
	a.ByteSize = byteSize
	a.DurationSec = durationSec
	a.SampleRate = sampleRate
	a.Channels = channels
	return 1, nil
}

func (r *fakeAssetRepo) MarkFailed(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[id].Status = model.AssetStatusFailed
	return nil
}

type fakeRevisionRepo struct {
	revs map[int64]*model.Revision
}

func (r *fakeRevisionRepo) CreateRevision(ctx context.Context, rev *model.Revision) error {
	return nil
}

func (r *fakeRevisionRepo) GetRevisionByID(ctx context.Context, id int64) (*model.Revision, error) {
	return r.revs[id], nil
}

func (r *fakeRevisionRepo) GetRevisionByTrackAndKey(ctx context.Context, trackID int64, key string) (*model.Revision, error) {
	return nil, nil
}

func (r *fakeRevisionRepo) GetRevisionsByTrackID(ctx context.Context, trackID int64) ([]*model.Revision, error) {
	return nil, nil
}

func (r *fakeRevisionRepo) GetLatestRevision(ctx context.Context, trackID int64) (*model.Revision, error) {
	return nil, nil
}

type fakePresigner struct {
	calls []string
}

func (p *fakePresigner) PresignPut(ctx context.Context, objectKey, contentType string) (string, map[string]string, error) {
	p.calls = append(p.calls, objectKey)
	return fmt.Sprintf("https://storage.test/%s?sig=abc", objectKey),
		map[string]string{"Content-Type": contentType}, nil
}

func newTestService() (*Service, *fakeAssetRepo, *fakePresigner) {
	assets := newFakeAssetRepo()
	revs := &fakeRevisionRepo{revs: map[int64]*model.Revision{
		7: {ID: 7, TrackID: 1, RevisionNumber: 1},
	}}
	presigner := &fakePresigner{}
	return NewService(assets, revs, presigner), assets, presigner
}

func TestPresignAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending asset with an upload URL", func(t *testing.T) {
		svc, _, _ := newTestService()

		res, err := svc.PresignAsset(ctx, PresignInput{
			RevisionID:  7,
			Type:        model.AssetTypeAudioSource,
			Format:      "wav",
			ContentType: "audio/wav",
			ByteSize:    1024,
		})
		require.NoError(t, err)

		assert.Equal(t, model.AssetStatusPending, res.Asset.Status)
		assert.Equal(t, int64(7), res.Asset.RevisionID)
		assert.True(t, strings.HasSuffix(res.Asset.ObjectKey, ".wav"))
		assert.True(t, strings.HasPrefix(res.Asset.ObjectKey, "revisions/7/audio_source/"))
		assert.Contains(t, res.UploadURL, res.Asset.ObjectKey)
		assert.Equal(t, "audio/wav", res.Headers["Content-Type"])
	})

	t.Run("re-presigning the slot reuses the row under a new key", func(t *testing.T) {
		svc, assets, _ := newTestService()

		first, err := svc.PresignAsset(ctx, PresignInput{
			RevisionID: 7, Type: model.AssetTypeMIDI, Format: "mid", ContentType: "audio/midi",
		})
		require.NoError(t, err)

		// Complete, then replace the upload.
		_, err = svc.CompleteAsset(ctx, CompleteInput{AssetID: first.Asset.ID, ByteSize: 10})
		require.NoError(t, err)

		second, err := svc.PresignAsset(ctx, PresignInput{
			RevisionID: 7, Type: model.AssetTypeMIDI, Format: "mid", ContentType: "audio/midi",
		})
		require.NoError(t, err)

		assert.Equal(t, first.Asset.ID, second.Asset.ID)
		assert.NotEqual(t, first.Asset.ObjectKey, second.Asset.ObjectKey)
		assert.Equal(t, model.AssetStatusPending, second.Asset.Status)
		assert.Zero(t, second.Asset.DurationSec)

		all, err := assets.GetAssetsByRevisionID(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("one slot per type", func(t *testing.T) {
		svc, assets, _ := newTestService()

		_, err := svc.PresignAsset(ctx, PresignInput{
			RevisionID: 7, Type: model.AssetTypeAudioSource, Format: "wav", ContentType: "audio/wav",
		})
		require.NoError(t, err)
		_, err = svc.PresignAsset(ctx, PresignInput{
			RevisionID: 7, Type: model.AssetTypeAudioPreview, Format: "mp3", ContentType: "audio/mpeg",
		})
		require.NoError(t, err)

		all, err := assets.GetAssetsByRevisionID(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("losing an insert race surfaces conflict", func(t *testing.T) {
		svc, assets, _ := newTestService()

		_, err := svc.PresignAsset(ctx, PresignInput{
			RevisionID: 7, Type: model.AssetTypeAudioPreview, Format: "mp3", ContentType: "audio/mpeg",
		})
		require.NoError(t, err)

		// A concurrent presign claimed the slot after our lookup missed.
		assets.missLookups = true
		_, err = svc.PresignAsset(ctx, PresignInput{
			RevisionID: 7, Type: model.AssetTypeAudioPreview, Format: "mp3", ContentType: "audio/mpeg",
		})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("validates input", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.PresignAsset(ctx, PresignInput{RevisionID: 7, Type: "video", ContentType: "video/mp4"})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)

		_, err = svc.PresignAsset(ctx, PresignInput{RevisionID: 7, Type: model.AssetTypeMIDI})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)

		_, err = svc.PresignAsset(ctx, PresignInput{RevisionID: 404, Type: model.AssetTypeMIDI, ContentType: "audio/midi"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestCompleteAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("moves pending to ready with metadata", func(t *testing.T) {
		svc, _, _ := newTestService()

		res, err := svc.PresignAsset(ctx, PresignInput{
			RevisionID: 7, Type: model.AssetTypeAudioSource, Format: "wav", ContentType: "audio/wav",
		})
		require.NoError(t, err)

		asset, err := svc.CompleteAsset(ctx, CompleteInput{
			AssetID: res.Asset.ID, ByteSize: 2048, DurationSec: 12.5, SampleRate: 48000, Channels: 2,
		})
		require.NoError(t, err)

		assert.Equal(t, model.AssetStatusReady, asset.Status)
		assert.Equal(t, int64(2048), asset.ByteSize)
		assert.Equal(t, 12.5, asset.DurationSec)
		assert.Equal(t, 48000, asset.SampleRate)
		assert.Equal(t, 2, asset.Channels)
	})

	t.Run("completing twice is a conflict", func(t *testing.T) {
		svc, _, _ := newTestService()

		res, err := svc.PresignAsset(ctx, PresignInput{
			RevisionID: 7, Type: model.AssetTypeAudioSource, Format: "wav", ContentType: "audio/wav",
		})
		require.NoError(t, err)

		_, err = svc.CompleteAsset(ctx, CompleteInput{AssetID: res.Asset.ID, ByteSize: 2048})
		require.NoError(t, err)
		_, err = svc.CompleteAsset(ctx, CompleteInput{AssetID: res.Asset.ID, ByteSize: 2048})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("completing a failed asset is a conflict", func(t *testing.T) {
		svc, _, _ := newTestService()

		res, err := svc.PresignAsset(ctx, PresignInput{
			RevisionID: 7, Type: model.AssetTypeAudioSource, Format: "wav", ContentType: "audio/wav",
		})
		require.NoError(t, err)

		_, err = svc.FailAsset(ctx, res.Asset.ID)
		require.NoError(t, err)
		_, err = svc.CompleteAsset(ctx, CompleteInput{AssetID: res.Asset.ID, ByteSize: 2048})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("validates input", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CompleteAsset(ctx, CompleteInput{AssetID: 1, ByteSize: 0})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)

		_, err = svc.CompleteAsset(ctx, CompleteInput{AssetID: 404, ByteSize: 10})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestFailAsset(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	res, err := svc.PresignAsset(ctx, PresignInput{
		RevisionID: 7, Type: model.AssetTypeAudioSource, Format: "wav", ContentType: "audio/wav",
	})
	require.NoError(t, err)

	asset, err := svc.FailAsset(ctx, res.Asset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssetStatusFailed, asset.Status)

	// The slot stays claimable after a failure.
	again, err := svc.PresignAsset(ctx, PresignInput{
		RevisionID: 7, Type: model.AssetTypeAudioSource, Format: "wav", ContentType: "audio/wav",
	})
	require.NoError(t, err)
	assert.Equal(t, asset.ID, again.Asset.ID)
	assert.Equal(t, model.AssetStatusPending, again.Asset.Status)

	_, err = svc.FailAsset(ctx, 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
