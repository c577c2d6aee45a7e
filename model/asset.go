package model

import "time"

// Asset types. At most one asset of each type exists per revision;
// re-presigning the same type reuses the row.
const (
	AssetTypeAudioPreview = "audio_preview"
	AssetTypeAudioSource  = "audio_source"
	AssetTypeMIDI         = "midi"
)

// Asset upload states. Presign enters pending, complete moves to ready,
// the uploader reports failed.
const (
	AssetStatusPending  = "pending"
	AssetStatusUploaded = "uploaded"
	AssetStatusReady    = "ready"
	AssetStatusFailed   = "failed"
)

// Asset is one uploaded file attached to a revision. The bytes live in
// object storage under ObjectKey; this row only tracks identity, status
// and metadata.
type Asset struct {
	ID          int64     `json:"id"`
	RevisionID  int64     `json:"revisionId"`
	Type        string    `json:"type"`
	Format      string    `json:"format"` // e.g. "wav", "flac", "mid"
	ContentType string    `json:"contentType"`
	Status      string    `json:"status"`
	ObjectKey   string    `json:"-"`
	ByteSize    int64     `json:"byteSize,omitempty"`
	DurationSec float64   `json:"durationSec,omitempty"`
	SampleRate  int       `json:"sampleRate,omitempty"`
	Channels    int       `json:"channels,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ValidAssetType reports whether t is one of the defined asset types.
func ValidAssetType(t string) bool {
	switch t {
	case AssetTypeAudioPreview, AssetTypeAudioSource, AssetTypeMIDI:
		return true
	}
	return false
}
