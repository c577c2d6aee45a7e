package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"stemroom/core/apperr"
	"stemroom/model"
)

// RevisionRepository defines revision data operations. CreateRevision owns
// the per-track number allocation; callers never pick numbers themselves.
type RevisionRepository interface {
	CreateRevision(ctx context.Context, rev *model.Revision) error
	GetRevisionByID(ctx context.Context, id int64) (*model.Revision, error)
	GetRevisionByTrackAndKey(ctx context.Context, trackID int64, key string) (*model.Revision, error)
	GetRevisionsByTrackID(ctx context.Context, trackID int64) ([]*model.Revision, error)
	GetLatestRevision(ctx context.Context, trackID int64) (*model.Revision, error)
}

// MySQLRevisionRepository implements RevisionRepository for MySQL.
type MySQLRevisionRepository struct {
	db *sql.DB
}

// NewMySQLRevisionRepository creates a new MySQL revision repository instance.
func NewMySQLRevisionRepository(db *sql.DB) *MySQLRevisionRepository {
	return &MySQLRevisionRepository{db: db}
}

// CreateRevision allocates the next revision number for the track and
// inserts the row, both inside one transaction.
//
// The counter upsert is a single atomic increment-and-return: the insert
// path seeds the counter at 1 and routes the value through
// LAST_INSERT_ID(), the update path increments under the counter's row
// lock. That lock is held until commit, so concurrent creates for the same
// track serialize and the numbers come out unique and gapless; creates for
// different tracks touch different counter rows and never block each other.
// A plain max(revision_number)+1 read would let two callers pick the same
// number.
func (r *MySQLRevisionRepository) CreateRevision(ctx context.Context, rev *model.Revision) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for CreateRevision: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO revision_counters (track_id, last_number)
		 VALUES (?, LAST_INSERT_ID(1))
		 ON DUPLICATE KEY UPDATE last_number = LAST_INSERT_ID(last_number + 1)`,
		rev.TrackID)
	if err != nil {
		return fmt.Errorf("failed to advance revision counter for track %d: %w", rev.TrackID, err)
	}

	number, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read allocated revision number: %w", err)
	}

	var key interface{}
	if rev.IdempotencyKey != "" {
		key = rev.IdempotencyKey
	}

	now := time.Now()
	res, err = tx.ExecContext(ctx,
		`INSERT INTO revisions (track_id, revision_number, title, memo, idempotency_key, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rev.TrackID, number, rev.Title, rev.Memo, key, rev.CreatedBy, now)
	if err != nil {
		if isDuplicateEntry(err) {
			return apperr.Conflictf("revision with idempotency key %q already exists for track %d", rev.IdempotencyKey, rev.TrackID)
		}
		return fmt.Errorf("failed to insert revision for track %d: %w", rev.TrackID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for CreateRevision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit CreateRevision: %w", err)
	}

	rev.ID = id
	rev.RevisionNumber = number
	rev.CreatedAt = now
	return nil
}

func isDuplicateEntry(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate entry")
}

const revisionColumns = `id, track_id, revision_number, title, memo, idempotency_key, created_by, created_at`

func scanRevision(scan func(dest ...interface{}) error) (*model.Revision, error) {
	rev := &model.Revision{}
	var title, memo, key sql.NullString
	err := scan(&rev.ID, &rev.TrackID, &rev.RevisionNumber, &title, &memo, &key, &rev.CreatedBy, &rev.CreatedAt)
	if err != nil {
		return nil, err
	}
	rev.Title = title.String
	rev.Memo = memo.String
	rev.IdempotencyKey = key.String
	return rev, nil
}

// GetRevisionByID retrieves a revision by id.
func (r *MySQLRevisionRepository) GetRevisionByID(ctx context.Context, id int64) (*model.Revision, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+revisionColumns+` FROM revisions WHERE id = ?`, id)
	rev, err := scanRevision(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan revision by ID %d: %w", id, err)
	}
	return rev, nil
}

// GetRevisionByTrackAndKey retrieves the revision created under the given
// idempotency key, if any.
func (r *MySQLRevisionRepository) GetRevisionByTrackAndKey(ctx context.Context, trackID int64, key string) (*model.Revision, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+revisionColumns+` FROM revisions WHERE track_id = ? AND idempotency_key = ?`, trackID, key)
	rev, err := scanRevision(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan revision by track %d key %q: %w", trackID, key, err)
	}
	return rev, nil
}

// GetRevisionsByTrackID retrieves the take history of a track, oldest first.
func (r *MySQLRevisionRepository) GetRevisionsByTrackID(ctx context.Context, trackID int64) ([]*model.Revision, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+revisionColumns+` FROM revisions WHERE track_id = ? ORDER BY revision_number`, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions for track %d: %w", trackID, err)
	}
	defer rows.Close()

	revisions := make([]*model.Revision, 0)
	for rows.Next() {
		rev, err := scanRevision(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revision in GetRevisionsByTrackID: %w", err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetRevisionsByTrackID: %w", err)
	}
	return revisions, nil
}

// GetLatestRevision retrieves the highest-numbered revision of a track, or
// nil if the track has none.
func (r *MySQLRevisionRepository) GetLatestRevision(ctx context.Context, trackID int64) (*model.Revision, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+revisionColumns+` FROM revisions WHERE track_id = ? ORDER BY revision_number DESC LIMIT 1`, trackID)
	rev, err := scanRevision(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan latest revision for track %d: %w", trackID, err)
	}
	return rev, nil
}
