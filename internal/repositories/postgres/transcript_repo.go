package postgres

import (
	"context"

	"github.com/northcall/voicebridge/internal/models"
	"gorm.io/gorm"
)

type TranscriptRepo interface {
	Insert(ctx context.Context, entry *models.TranscriptEntry) error
	ListByCall(ctx context.Context, callSID string, limit int) ([]models.TranscriptEntry, error)
}

type transcriptRepo struct {
	db *gorm.DB
}

func NewTranscriptRepo(db *gorm.DB) TranscriptRepo {
	return &transcriptRepo{db: db}
}

func (r *transcriptRepo) Insert(ctx context.Context, entry *models.TranscriptEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *transcriptRepo) ListByCall(ctx context.Context, callSID string, limit int) ([]models.TranscriptEntry, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []models.TranscriptEntry
	err := r.db.WithContext(ctx).
		Where("call_sid = ?", callSID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
