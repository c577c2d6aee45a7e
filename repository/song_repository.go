package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stemroom/model"
)

// SongRepository defines the interface for song data operations.
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) (int64, error)
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
	GetSongsByBandID(ctx context.Context, bandID int64) ([]*model.Song, error)
	UpdateSong(ctx context.Context, song *model.Song) error
	DeleteSong(ctx context.Context, id int64) error
}

// MySQLSongRepository implements SongRepository for MySQL.
type MySQLSongRepository struct {
	db *sql.DB
}

// NewMySQLSongRepository creates a new MySQL song repository instance.
func NewMySQLSongRepository(db *sql.DB) *MySQLSongRepository {
	return &MySQLSongRepository{db: db}
}

// CreateSong adds a new song to the database.
func (r *MySQLSongRepository) CreateSong(ctx context.Context, song *model.Song) (int64, error) {
	query := `INSERT INTO songs (band_id, title, description, created_by, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?)`

	now := time.Now()
	res, err := r.db.ExecContext(ctx, query, song.BandID, song.Title, song.Description, song.CreatedBy, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateSong: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateSong: %w", err)
	}
	return id, nil
}

// GetSongByID retrieves a song by id.
func (r *MySQLSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, band_id, title, description, created_by, created_at, updated_at FROM songs WHERE id = ?`, id)

	song := &model.Song{}
	var description sql.NullString
	err := row.Scan(&song.ID, &song.BandID, &song.Title, &description, &song.CreatedBy, &song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan song by ID %d: %w", id, err)
	}
	song.Description = description.String
	return song, nil
}

// GetSongsByBandID retrieves all songs of a band.
func (r *MySQLSongRepository) GetSongsByBandID(ctx context.Context, bandID int64) ([]*model.Song, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, band_id, title, description, created_by, created_at, updated_at
		  FROM songs WHERE band_id = ? ORDER BY created_at`, bandID)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs for band %d: %w", bandID, err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song := &model.Song{}
		var description sql.NullString
		if err := rows.Scan(&song.ID, &song.BandID, &song.Title, &description, &song.CreatedBy, &song.CreatedAt, &song.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan song in GetSongsByBandID: %w", err)
		}
		song.Description = description.String
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetSongsByBandID: %w", err)
	}
	return songs, nil
}

// UpdateSong updates title and description.
func (r *MySQLSongRepository) UpdateSong(ctx context.Context, song *model.Song) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE songs SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		song.Title, song.Description, time.Now(), song.ID)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateSong for ID %d: %w", song.ID, err)
	}
	return nil
}

// DeleteSong removes a song; tracks, revisions and sessions cascade.
func (r *MySQLSongRepository) DeleteSong(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteSong for ID %d: %w", id, err)
	}
	return nil
}
