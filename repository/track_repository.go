package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stemroom/model"
)

// TrackRepository defines the interface for track data operations.
// SetActiveRevision and PromoteIfUnset are the only writers of the
// active-revision pointer.
type TrackRepository interface {
	CreateTrack(ctx context.Context, track *model.Track) (int64, error)
	GetTrackByID(ctx context.Context, id int64) (*model.Track, error)
	GetTracksBySongID(ctx context.Context, songID int64) ([]*model.Track, error)
	RenameTrack(ctx context.Context, id int64, name string) error
	UpdateTrackPosition(ctx context.Context, id int64, position int) error

	// SetActiveRevision moves the pointer unconditionally (last writer wins).
	SetActiveRevision(ctx context.Context, trackID, revisionID int64) error
	// PromoteIfUnset sets the pointer only when it is currently null and
	// reports whether the update took. Used for first-revision bootstrap.
	PromoteIfUnset(ctx context.Context, trackID, revisionID int64) (bool, error)
}

// MySQLTrackRepository implements TrackRepository for MySQL.
type MySQLTrackRepository struct {
	db *sql.DB
}

// NewMySQLTrackRepository creates a new MySQL track repository instance.
func NewMySQLTrackRepository(db *sql.DB) *MySQLTrackRepository {
	return &MySQLTrackRepository{db: db}
}

// CreateTrack adds a new track to the database.
func (r *MySQLTrackRepository) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (song_id, name, position, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?)`

	now := time.Now()
	res, err := r.db.ExecContext(ctx, query, track.SongID, track.Name, track.Position, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	return id, nil
}

const trackColumns = `id, song_id, name, position, active_revision_id, created_at, updated_at`

func scanTrack(scan func(dest ...interface{}) error) (*model.Track, error) {
	track := &model.Track{}
	var active sql.NullInt64
	err := scan(&track.ID, &track.SongID, &track.Name, &track.Position, &active, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if active.Valid {
		track.ActiveRevisionID = &active.Int64
	}
	return track, nil
}

// GetTrackByID retrieves a track by id.
func (r *MySQLTrackRepository) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	track, err := scanTrack(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// GetTracksBySongID retrieves all tracks of a song in lane order.
func (r *MySQLTrackRepository) GetTracksBySongID(ctx context.Context, songID int64) ([]*model.Track, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE song_id = ? ORDER BY position, id`, songID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for song %d: %w", songID, err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in GetTracksBySongID: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetTracksBySongID: %w", err)
	}
	return tracks, nil
}

// RenameTrack updates the track name.
func (r *MySQLTrackRepository) RenameTrack(ctx context.Context, id int64, name string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tracks SET name = ?, updated_at = ? WHERE id = ?`, name, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute RenameTrack for ID %d: %w", id, err)
	}
	return nil
}

// UpdateTrackPosition updates the track's sort position within its song.
func (r *MySQLTrackRepository) UpdateTrackPosition(ctx context.Context, id int64, position int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tracks SET position = ?, updated_at = ? WHERE id = ?`, position, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateTrackPosition for ID %d: %w", id, err)
	}
	return nil
}

// SetActiveRevision points the track at the given revision. The caller is
// responsible for validating that the revision belongs to the track.
func (r *MySQLTrackRepository) SetActiveRevision(ctx context.Context, trackID, revisionID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tracks SET active_revision_id = ?, updated_at = ? WHERE id = ?`,
		revisionID, time.Now(), trackID)
	if err != nil {
		return fmt.Errorf("failed to execute SetActiveRevision for track %d: %w", trackID, err)
	}
	return nil
}

// PromoteIfUnset sets the pointer only while it is still null, so two
// concurrent first-revision creates cannot both promote.
func (r *MySQLTrackRepository) PromoteIfUnset(ctx context.Context, trackID, revisionID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tracks SET active_revision_id = ?, updated_at = ? WHERE id = ? AND active_revision_id IS NULL`,
		revisionID, time.Now(), trackID)
	if err != nil {
		return false, fmt.Errorf("failed to execute PromoteIfUnset for track %d: %w", trackID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for PromoteIfUnset: %w", err)
	}
	return affected > 0, nil
}
