package postgres

import (
	"context"

	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DigestRepository interface {
	Upsert(ctx context.Context, d *models.MeetingDigest) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.MeetingDigest, error)
	Delete(ctx context.Context, sessionID string) error
}

type digestRepo struct {
	db *gorm.DB
}

func NewDigestRepo(db *gorm.DB) DigestRepository {
	return &digestRepo{db: db}
}

func (r *digestRepo) Upsert(ctx context.Context, d *models.MeetingDigest) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).
		Create(d).Error
}

func (r *digestRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.MeetingDigest, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []models.MeetingDigest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *digestRepo) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.MeetingDigest{}).Error
}
