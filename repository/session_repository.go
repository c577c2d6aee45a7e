package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stemroom/model"
)

// SessionRepository defines mix-session data operations. Creation and
// replacement are transactional: callers never observe a session with a
// partial track set.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.MixSession, tracks []*model.MixSessionTrack) error
	GetSessionByID(ctx context.Context, id int64) (*model.MixSession, error)
	GetSessionsBySongID(ctx context.Context, songID int64) ([]*model.MixSession, error)
	GetSessionTracks(ctx context.Context, sessionID int64) ([]*model.MixSessionTrack, error)
	ReplaceSessionTracks(ctx context.Context, sessionID int64, tracks []*model.MixSessionTrack) error
}

// MySQLSessionRepository implements SessionRepository for MySQL.
type MySQLSessionRepository struct {
	db *sql.DB
}

// NewMySQLSessionRepository creates a new MySQL session repository instance.
func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}

func insertSessionTracks(ctx context.Context, tx *sql.Tx, sessionID int64, tracks []*model.MixSessionTrack) error {
	for _, t := range tracks {
		var revisionID interface{}
		if t.TrackRevisionID != nil {
			revisionID = *t.TrackRevisionID
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO mix_session_tracks (session_id, track_id, track_revision_id, mute, gain_db, pan, start_offset_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, t.TrackID, revisionID, t.Mute, t.GainDB, t.Pan, t.StartOffsetMs)
		if err != nil {
			return fmt.Errorf("failed to insert session track (session %d, track %d): %w", sessionID, t.TrackID, err)
		}
	}
	return nil
}

// CreateSession inserts the session row and its snapshot rows in one
// transaction.
func (r *MySQLSessionRepository) CreateSession(ctx context.Context, session *model.MixSession, tracks []*model.MixSessionTrack) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for CreateSession: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO mix_sessions (song_id, name, created_by, created_at) VALUES (?, ?, ?, ?)`,
		session.SongID, session.Name, session.CreatedBy, now)
	if err != nil {
		return fmt.Errorf("failed to insert mix session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for CreateSession: %w", err)
	}

	for _, t := range tracks {
		t.SessionID = id
	}
	if err := insertSessionTracks(ctx, tx, id, tracks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit CreateSession: %w", err)
	}

	session.ID = id
	session.CreatedAt = now
	return nil
}

// GetSessionByID retrieves a mix session by id.
func (r *MySQLSessionRepository) GetSessionByID(ctx context.Context, id int64) (*model.MixSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, song_id, name, created_by, created_at FROM mix_sessions WHERE id = ?`, id)

	session := &model.MixSession{}
	err := row.Scan(&session.ID, &session.SongID, &session.Name, &session.CreatedBy, &session.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan mix session by ID %d: %w", id, err)
	}
	return session, nil
}

// GetSessionsBySongID lists a song's mix sessions, newest first.
func (r *MySQLSessionRepository) GetSessionsBySongID(ctx context.Context, songID int64) ([]*model.MixSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, song_id, name, created_by, created_at FROM mix_sessions WHERE song_id = ? ORDER BY created_at DESC`, songID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mix sessions for song %d: %w", songID, err)
	}
	defer rows.Close()

	sessions := make([]*model.MixSession, 0)
	for rows.Next() {
		s := &model.MixSession{}
		if err := rows.Scan(&s.ID, &s.SongID, &s.Name, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mix session in GetSessionsBySongID: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetSessionsBySongID: %w", err)
	}
	return sessions, nil
}

// GetSessionTracks retrieves the session's current track rows.
func (r *MySQLSessionRepository) GetSessionTracks(ctx context.Context, sessionID int64) ([]*model.MixSessionTrack, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, track_id, track_revision_id, mute, gain_db, pan, start_offset_ms
		  FROM mix_session_tracks WHERE session_id = ? ORDER BY track_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session tracks for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	tracks := make([]*model.MixSessionTrack, 0)
	for rows.Next() {
		t := &model.MixSessionTrack{}
		var revisionID sql.NullInt64
		if err := rows.Scan(&t.SessionID, &t.TrackID, &revisionID, &t.Mute, &t.GainDB, &t.Pan, &t.StartOffsetMs); err != nil {
			return nil, fmt.Errorf("failed to scan session track in GetSessionTracks: %w", err)
		}
		if revisionID.Valid {
			t.TrackRevisionID = &revisionID.Int64
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetSessionTracks: %w", err)
	}
	return tracks, nil
}

// ReplaceSessionTracks discards every row of the session and inserts the
// provided list as the new complete membership, in one transaction.
func (r *MySQLSessionRepository) ReplaceSessionTracks(ctx context.Context, sessionID int64, tracks []*model.MixSessionTrack) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for ReplaceSessionTracks: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM mix_session_tracks WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear session tracks for session %d: %w", sessionID, err)
	}

	for _, t := range tracks {
		t.SessionID = sessionID
	}
	if err := insertSessionTracks(ctx, tx, sessionID, tracks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ReplaceSessionTracks: %w", err)
	}
	return nil
}
