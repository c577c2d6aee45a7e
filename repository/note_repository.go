package repository

import (
	"context"

	"stemroom/model"

	"gorm.io/gorm"
)

// NoteRepository covers song notes and the decision log.
type NoteRepository interface {
	CreateNote(ctx context.Context, note *model.SongNote) error
	GetNotesBySongID(ctx context.Context, songID int64) ([]*model.SongNote, error)
	GetNoteByID(ctx context.Context, id int64) (*model.SongNote, error)
	UpdateNote(ctx context.Context, note *model.SongNote) error
	DeleteNote(ctx context.Context, id int64) error

	CreateDecision(ctx context.Context, decision *model.SongDecision) error
	GetDecisionsBySongID(ctx context.Context, songID int64) ([]*model.SongDecision, error)
}

// gormNoteRepository is the GORM implementation.
type gormNoteRepository struct {
	db *gorm.DB
}

// NewGormNoteRepository creates a GORM note repository.
func NewGormNoteRepository(db *gorm.DB) NoteRepository {
	return &gormNoteRepository{db: db}
}

func (r *gormNoteRepository) CreateNote(ctx context.Context, note *model.SongNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *gormNoteRepository) GetNotesBySongID(ctx context.Context, songID int64) ([]*model.SongNote, error) {
	var notes []*model.SongNote
	err := r.db.WithContext(ctx).
		Where("song_id = ?", songID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *gormNoteRepository) GetNoteByID(ctx context.Context, id int64) (*model.SongNote, error) {
	var note model.SongNote
	err := r.db.WithContext(ctx).First(&note, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

func (r *gormNoteRepository) UpdateNote(ctx context.Context, note *model.SongNote) error {
	return r.db.WithContext(ctx).Save(note).Error
}

func (r *gormNoteRepository) DeleteNote(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.SongNote{}, id).Error
}

func (r *gormNoteRepository) CreateDecision(ctx context.Context, decision *model.SongDecision) error {
	return r.db.WithContext(ctx).Create(decision).Error
}

func (r *gormNoteRepository) GetDecisionsBySongID(ctx context.Context, songID int64) ([]*model.SongDecision, error) {
	var decisions []*model.SongDecision
	err := r.db.WithContext(ctx).
		Where("song_id = ?", songID).
		Order("created_at DESC").
		Find(&decisions).Error
	if err != nil {
		return nil, err
	}
	return decisions, nil
}
