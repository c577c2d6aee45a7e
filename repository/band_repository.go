package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stemroom/core/apperr"
	"stemroom/model"
)

// BandRepository defines band and membership data operations. The BandIDFor*
// helpers resolve the owning band for nested entities so handlers can gate
// every operation on membership with one lookup.
type BandRepository interface {
	CreateBand(ctx context.Context, band *model.Band) (int64, error)
	GetBandByID(ctx context.Context, id int64) (*model.Band, error)
	GetBandsByUserID(ctx context.Context, userID int64) ([]*model.Band, error)

	AddMember(ctx context.Context, member *model.BandMember) error
	GetMembers(ctx context.Context, bandID int64) ([]*model.BandMember, error)
	IsMember(ctx context.Context, bandID, userID int64) (bool, error)

	BandIDForSong(ctx context.Context, songID int64) (int64, error)
	BandIDForTrack(ctx context.Context, trackID int64) (int64, error)
	BandIDForRevision(ctx context.Context, revisionID int64) (int64, error)
	BandIDForSession(ctx context.Context, sessionID int64) (int64, error)
	BandIDForAsset(ctx context.Context, assetID int64) (int64, error)
}

// MySQLBandRepository implements BandRepository for MySQL.
type MySQLBandRepository struct {
	db *sql.DB
}

// NewMySQLBandRepository creates a new MySQL band repository instance.
func NewMySQLBandRepository(db *sql.DB) *MySQLBandRepository {
	return &MySQLBandRepository{db: db}
}

// CreateBand inserts the band and enrolls the creator as its admin in one
// transaction.
func (r *MySQLBandRepository) CreateBand(ctx context.Context, band *model.Band) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for CreateBand: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bands (name, created_by, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		band.Name, band.CreatedBy, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert band: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateBand: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO band_members (band_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		id, band.CreatedBy, model.RoleAdmin, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit CreateBand: %w", err)
	}
	return id, nil
}

// GetBandByID retrieves a band by id.
func (r *MySQLBandRepository) GetBandByID(ctx context.Context, id int64) (*model.Band, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at, updated_at FROM bands WHERE id = ?`, id)

	band := &model.Band{}
	err := row.Scan(&band.ID, &band.Name, &band.CreatedBy, &band.CreatedAt, &band.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan band by ID %d: %w", id, err)
	}
	return band, nil
}

// GetBandsByUserID retrieves every band the user is a member of.
func (r *MySQLBandRepository) GetBandsByUserID(ctx context.Context, userID int64) ([]*model.Band, error) {
	query := `SELECT b.id, b.name, b.created_by, b.created_at, b.updated_at
	           FROM bands b
	           JOIN band_members m ON m.band_id = b.id
	           WHERE m.user_id = ?
	           ORDER BY b.created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bands for user %d: %w", userID, err)
	}
	defer rows.Close()

	bands := make([]*model.Band, 0)
	for rows.Next() {
		band := &model.Band{}
		if err := rows.Scan(&band.ID, &band.Name, &band.CreatedBy, &band.CreatedAt, &band.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan band in GetBandsByUserID: %w", err)
		}
		bands = append(bands, band)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetBandsByUserID: %w", err)
	}
	return bands, nil
}

// AddMember enrolls a user in a band.
func (r *MySQLBandRepository) AddMember(ctx context.Context, member *model.BandMember) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO band_members (band_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		member.BandID, member.UserID, member.Role, time.Now())
	if err != nil {
		if isDuplicateEntry(err) {
			return apperr.Conflictf("user %d is already a member of band %d", member.UserID, member.BandID)
		}
		return fmt.Errorf("failed to insert band member: %w", err)
	}
	return nil
}

// GetMembers lists the memberships of a band.
func (r *MySQLBandRepository) GetMembers(ctx context.Context, bandID int64) ([]*model.BandMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT band_id, user_id, role, joined_at FROM band_members WHERE band_id = ? ORDER BY joined_at`, bandID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members for band %d: %w", bandID, err)
	}
	defer rows.Close()

	members := make([]*model.BandMember, 0)
	for rows.Next() {
		m := &model.BandMember{}
		if err := rows.Scan(&m.BandID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan band member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetMembers: %w", err)
	}
	return members, nil
}

// IsMember reports whether the user belongs to the band.
func (r *MySQLBandRepository) IsMember(ctx context.Context, bandID, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM band_members WHERE band_id = ? AND user_id = ?`, bandID, userID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check membership for band %d user %d: %w", bandID, userID, err)
	}
	return true, nil
}

func (r *MySQLBandRepository) bandIDScan(ctx context.Context, query string, id int64) (int64, error) {
	var bandID int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&bandID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to resolve band for id %d: %w", id, err)
	}
	return bandID, nil
}

// BandIDForSong resolves a song to its owning band. Returns 0 if the song
// does not exist.
func (r *MySQLBandRepository) BandIDForSong(ctx context.Context, songID int64) (int64, error) {
	return r.bandIDScan(ctx, `SELECT band_id FROM songs WHERE id = ?`, songID)
}

// BandIDForTrack resolves a track to its owning band.
func (r *MySQLBandRepository) BandIDForTrack(ctx context.Context, trackID int64) (int64, error) {
	return r.bandIDScan(ctx,
		`SELECT s.band_id FROM tracks t JOIN songs s ON s.id = t.song_id WHERE t.id = ?`, trackID)
}

// BandIDForRevision resolves a revision to its owning band.
func (r *MySQLBandRepository) BandIDForRevision(ctx context.Context, revisionID int64) (int64, error) {
	return r.bandIDScan(ctx,
		`SELECT s.band_id FROM revisions rv
		  JOIN tracks t ON t.id = rv.track_id
		  JOIN songs s ON s.id = t.song_id
		 WHERE rv.id = ?`, revisionID)
}

// BandIDForSession resolves a mix session to its owning band.
func (r *MySQLBandRepository) BandIDForSession(ctx context.Context, sessionID int64) (int64, error) {
	return r.bandIDScan(ctx,
		`SELECT s.band_id FROM mix_sessions ms JOIN songs s ON s.id = ms.song_id WHERE ms.id = ?`, sessionID)
}

// BandIDForAsset resolves an asset to its owning band.
func (r *MySQLBandRepository) BandIDForAsset(ctx context.Context, assetID int64) (int64, error) {
	return r.bandIDScan(ctx,
		`SELECT s.band_id FROM assets a
		  JOIN revisions rv ON rv.id = a.revision_id
		  JOIN tracks t ON t.id = rv.track_id
		  JOIN songs s ON s.id = t.song_id
		 WHERE a.id = ?`, assetID)
}
